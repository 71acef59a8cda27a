package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core/access"
	"github.com/sims-edu/sims/core/user"
)

type userApi struct {
	svc      *user.Service
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *user.Service, validate *validator.Validate) {
	api := userApi{svc: svc, validate: validate}

	ug := g.Group("/users", protected(authed, access.ResourceUsers)...)
	ug.POST("", api.create)
	ug.GET("", withActor(api.query))

	// detail endpoints
	ug.GET("/:id", withActor(api.retrieve))
	ug.PUT("/:id", withActor(api.update))
	ug.DELETE("/:id", withActor(api.destroy))
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, actor.Me())
}

// query lists users; ?search=, ?role= and ?is_active= narrow the result.
func (api *userApi) query(ctx echo.Context, actor user.Actor) error {
	filter := user.QueryFilter{
		Search: ctx.QueryParam("search"),
		Role:   user.Role(ctx.QueryParam("role")),
	}
	if active, err := strconv.ParseBool(ctx.QueryParam("is_active")); err == nil {
		filter.IsActive = &active
	}
	filter.Clean()

	var ord Ordering
	ord.Bind(ctx)

	actors, err := api.svc.Query(ctx.Request().Context(), actor, filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	users := make([]user.Me, 0, len(actors))
	for _, a := range actors {
		users = append(users, a.Me())
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context, actor user.Actor) error {
	target, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user")
	}
	return ctx.JSON(http.StatusOK, target.Me())
}

func (api *userApi) update(ctx echo.Context, actor user.Actor) error {
	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	target, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, target.Me())
}

func (api *userApi) destroy(ctx echo.Context, actor user.Actor) error {
	if err := api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}
