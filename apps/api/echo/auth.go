package echoapi

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/user"
)

const (
	tokenContextKey   = "userToken"
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/v1/auth"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Email       string    `json:"email,omitempty"`
	Role        user.Role `json:"role,omitempty"`
	IsSuperuser bool      `json:"is_superuser,omitempty"`
}

// NewClaims builds short-lived access token claims for actor.
func NewClaims(actor user.Actor, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   actor.User.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email:       actor.User.Email,
		Role:        actor.Role(),
		IsSuperuser: actor.IsSuperuser(),
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// refreshSession is the payload of the refresh cookie.
type refreshSession struct {
	UserID       string
	OrigIssuedAt int64
}

type tokenizer struct {
	conf   *core.Config
	cookie *securecookie.SecureCookie
}

func newTokenizer(conf *core.Config) *tokenizer {
	hashKey := sha256.Sum256([]byte("refresh-hash:" + conf.SecretKey))
	blockKey := sha256.Sum256([]byte("refresh-block:" + conf.SecretKey))
	cookie := securecookie.New(hashKey[:], blockKey[:])
	cookie.MaxAge(int(conf.Server.JWTRefreshExpirationDelta.Seconds()))
	return &tokenizer{conf: conf, cookie: cookie}
}

func (tk *tokenizer) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(tk.conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

func (tk *tokenizer) accessToken(actor user.Actor) (string, error) {
	return GenerateToken(NewClaims(actor, tk.conf), tk.conf.SecretKey)
}

func (tk *tokenizer) setRefreshCookie(ctx echo.Context, sess refreshSession) error {
	value, err := tk.cookie.Encode(refreshCookieName, sess)
	if err != nil {
		return errors.Wrap(err, "encoding refresh cookie")
	}
	ctx.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     refreshCookiePath,
		Expires:  time.Unix(sess.OrigIssuedAt, 0).Add(tk.conf.Server.JWTRefreshExpirationDelta),
		HttpOnly: true,
		Secure:   tk.conf.Server.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

func (tk *tokenizer) clearRefreshCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   tk.conf.Server.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// readRefreshCookie returns errUnauthorized for a missing or tampered cookie,
// errRefreshExpired once the refresh window has passed.
func (tk *tokenizer) readRefreshCookie(ctx echo.Context) (refreshSession, error) {
	c, err := ctx.Cookie(refreshCookieName)
	if err != nil || c.Value == "" {
		return refreshSession{}, errUnauthorized
	}
	var sess refreshSession
	if err = tk.cookie.Decode(refreshCookieName, c.Value, &sess); err != nil {
		return refreshSession{}, errUnauthorized
	}
	expires := time.Unix(sess.OrigIssuedAt, 0).Add(tk.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expires) {
		return refreshSession{}, errRefreshExpired
	}
	return sess, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}
