package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/user"
	"github.com/sims-edu/sims/services/throttle"
)

type (
	LoginResponse struct {
		Token string  `json:"token"`
		User  user.Me `json:"user"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

const (
	passwordResetSent = "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."
	passwordResetDone = "Password has been reset with the new password."
)

type authApi struct {
	tokens   *tokenizer
	svc      *user.Service
	resetter *user.Resetter
	limiter  throttle.Limiter
	validate *validator.Validate
}

func registerAuthAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	tokens *tokenizer,
	svc *user.Service,
	resetter *user.Resetter,
	limiter throttle.Limiter,
	validate *validator.Validate,
) {
	api := authApi{
		tokens:   tokens,
		svc:      svc,
		resetter: resetter,
		limiter:  limiter,
		validate: validate,
	}

	ag := g.Group("/auth")

	// the refresh token travels in an HTTP-only cookie, no access token needed
	ag.POST("/login", api.login)
	ag.POST("/token-refresh", api.refreshToken)
	ag.POST("/logout", api.logout)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	g.GET("/users/me", withActor(api.me), authed...)
}

func (api *authApi) login(ctx echo.Context) error {
	var data user.LoginCredentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginCredentials")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	allowed, err := api.limiter.Allow(reqCtx, data.Email)
	if err != nil {
		return errors.Wrap(err, "checking login attempts")
	}
	if !allowed {
		return errTooManyAttempts
	}

	usr, err := api.svc.Authenticate(reqCtx, data.Email, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrInvalidCredentials:
			if fErr := api.limiter.Fail(reqCtx, data.Email); fErr != nil {
				return errors.Wrap(fErr, "recording failed login")
			}
			return core.NewValidationError(user.ErrInvalidCredentials)
		case user.ErrAccountDeactivated:
			return errAccountDeactivated
		}
		return errors.Wrap(err, "authenticating")
	}
	if err = api.limiter.Reset(reqCtx, data.Email); err != nil {
		return errors.Wrap(err, "resetting login attempts")
	}

	actor, err := api.svc.GetActor(reqCtx, usr.ID)
	if err != nil {
		return errors.Wrap(err, "loading actor")
	}
	token, err := api.tokens.accessToken(actor)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	if err = api.tokens.setRefreshCookie(ctx, refreshSession{UserID: usr.ID, OrigIssuedAt: time.Now().Unix()}); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: actor.Me()})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	sess, err := api.tokens.readRefreshCookie(ctx)
	if err != nil {
		return err
	}

	actor, err := api.svc.GetActor(ctx.Request().Context(), sess.UserID)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrNotFound:
			api.tokens.clearRefreshCookie(ctx)
			return errUnauthorized
		case user.ErrAccountDeactivated:
			api.tokens.clearRefreshCookie(ctx)
			return errAccountDeactivated
		}
		return errors.Wrap(err, "loading actor")
	}

	token, err := api.tokens.accessToken(actor)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *authApi) logout(ctx echo.Context) error {
	api.tokens.clearRefreshCookie(ctx)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data user.PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	// every reset request counts against its own budget
	key := "password-reset:" + data.Email
	allowed, err := api.limiter.Allow(reqCtx, key)
	if err != nil {
		return errors.Wrap(err, "checking reset attempts")
	}
	if !allowed {
		return errTooManyAttempts
	}
	if err = api.limiter.Fail(reqCtx, key); err != nil {
		return errors.Wrap(err, "recording reset attempt")
	}

	if err = api.resetter.Request(reqCtx, data.Email); err != nil {
		if _, ok := errors.Cause(err).(*core.NotFoundError); !ok {
			// unknown emails and failures look the same to the caller
			ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
		}
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: passwordResetSent})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.resetter.Confirm(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: passwordResetDone})
}

func (api *authApi) me(ctx echo.Context, actor user.Actor) error {
	return ctx.JSON(http.StatusOK, actor.Me())
}
