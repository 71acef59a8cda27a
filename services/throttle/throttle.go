package throttle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const loginKeyTpl = "login:failures:%s" // login:failures:${email}

// Limiter counts failed attempts per key inside a sliding-on-failure window.
type Limiter interface {
	// Allow reports whether another attempt is permitted for key.
	Allow(ctx context.Context, key string) (bool, error)
	// Fail records a failed attempt and (re)starts the window.
	Fail(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

type redisLimiter struct {
	client   *redis.Client
	attempts int64
	window   time.Duration
}

var _ Limiter = (*redisLimiter)(nil) // interface compliance check

func NewRedisLimiter(client *redis.Client, attempts int, window time.Duration) Limiter {
	return &redisLimiter{client: client, attempts: int64(attempts), window: window}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	return redis.NewClient(opts), nil
}

func loginKey(key string) string {
	return fmt.Sprintf(loginKeyTpl, strings.ToLower(key))
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Get(ctx, loginKey(key)).Int64()
	if err != nil {
		if err == redis.Nil {
			return true, nil
		}
		return false, errors.Wrap(err, "reading attempts")
	}
	return n < l.attempts, nil
}

func (l *redisLimiter) Fail(ctx context.Context, key string) error {
	k := loginKey(key)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, l.window)
		return nil
	})
	return errors.Wrap(err, "recording failed attempt")
}

func (l *redisLimiter) Reset(ctx context.Context, key string) error {
	return errors.Wrap(l.client.Del(ctx, loginKey(key)).Err(), "resetting attempts")
}

type noopLimiter struct{}

var _ Limiter = noopLimiter{} // interface compliance check

// NewNoopLimiter never throttles. It is used when no redis URL is configured.
func NewNoopLimiter() Limiter {
	return noopLimiter{}
}

func (noopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }
func (noopLimiter) Fail(context.Context, string) error          { return nil }
func (noopLimiter) Reset(context.Context, string) error         { return nil }
