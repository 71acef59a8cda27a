package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) string {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return "redis://" + endpoint + "/0"
}

func TestRedisLimiter(t *testing.T) {
	client, err := NewRedisClient(setupRedis(t))
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	limiter := NewRedisLimiter(client, 2, time.Minute)
	email := "Jane@sims.test"

	ok, err := limiter.Allow(ctx, email)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, limiter.Fail(ctx, email))
	ok, err = limiter.Allow(ctx, email)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, limiter.Fail(ctx, "jane@sims.test"))
	ok, err = limiter.Allow(ctx, email)
	require.NoError(t, err)
	assert.False(t, ok, "keys are case insensitive")

	ttl, err := client.TTL(ctx, loginKey(email)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, limiter.Reset(ctx, email))
	ok, err = limiter.Allow(ctx, email)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNoopLimiter(t *testing.T) {
	ctx := context.Background()
	limiter := NewNoopLimiter()
	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Fail(ctx, "x"))
	}
	ok, err := limiter.Allow(ctx, "x")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewRedisClient_badURL(t *testing.T) {
	_, err := NewRedisClient("not a url")
	assert.Error(t, err)
}
