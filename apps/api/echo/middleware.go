package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core/access"
	"github.com/sims-edu/sims/core/metrics"
	"github.com/sims-edu/sims/core/user"
)

const contextActorKey = "actor"

// actorMiddleware loads the authenticated user and profile named by the JWT subject.
func actorMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			actor, err := svc.GetActor(ctx.Request().Context(), claims.Subject)
			if err != nil {
				switch errors.Cause(err) {
				case user.ErrNotFound:
					return errUnauthorized
				case user.ErrAccountDeactivated:
					return errAccountDeactivated
				}
				return errors.Wrap(err, "loading actor")
			}
			ctx.Set(contextActorKey, actor)
			return next(ctx)
		}
	}
}

func getContextActor(ctx echo.Context) (user.Actor, error) {
	if actor, ok := ctx.Get(contextActorKey).(user.Actor); ok {
		return actor, nil
	}
	return user.Actor{}, errUnauthorized
}

// gateMiddleware applies the role-level policy of res to the request method.
func gateMiddleware(res access.Resource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			actor, err := getContextActor(ctx)
			if err != nil {
				return err
			}
			if !access.Allowed(actor, ctx.Request().Method, res) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		if err := next(ctx); err != nil {
			// render now so the recorded status is the one sent
			ctx.Error(err)
		}

		status := ctx.Response().Status
		path := ctx.Path()
		if path == "" {
			path = "unmatched"
		}
		metrics.APIRequestDuration.
			WithLabelValues(path, ctx.Request().Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return nil
	}
}

// withActor adapts a handler that needs the current actor.
func withActor(h func(ctx echo.Context, actor user.Actor) error) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		actor, err := getContextActor(ctx)
		if err != nil {
			return err
		}
		return h(ctx, actor)
	}
}

// protected returns the authentication chain followed by the gate for res.
func protected(authed []echo.MiddlewareFunc, res access.Resource) []echo.MiddlewareFunc {
	mws := make([]echo.MiddlewareFunc, 0, len(authed)+1)
	mws = append(mws, authed...)
	return append(mws, gateMiddleware(res))
}
