package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core/access"
	"github.com/sims-edu/sims/core/coursework"
	"github.com/sims-edu/sims/core/user"
)

type assignmentApi struct {
	svc      *coursework.Service
	validate *validator.Validate
}

func registerAssignmentAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *coursework.Service, validate *validator.Validate) {
	api := assignmentApi{svc: svc, validate: validate}

	ag := g.Group("/assignments", protected(authed, access.ResourceAssignments)...)
	ag.GET("", withActor(api.query))
	ag.POST("", withActor(api.create))

	ag.GET("/:id", withActor(api.retrieve))
	ag.PUT("/:id", withActor(api.update))
	ag.PATCH("/:id", withActor(api.update))
	ag.DELETE("/:id", withActor(api.destroy))
}

func (api *assignmentApi) query(ctx echo.Context, actor user.Actor) error {
	var ord Ordering
	ord.Bind(ctx)

	assignments, err := api.svc.QueryAssignments(ctx.Request().Context(), actor, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *assignmentApi) create(ctx echo.Context, actor user.Actor) error {
	var data coursework.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.CreateAssignment(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assignmentApi) retrieve(ctx echo.Context, actor user.Actor) error {
	a, err := api.svc.GetAssignment(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) update(ctx echo.Context, actor user.Actor) error {
	var data coursework.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.UpdateAssignment(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) destroy(ctx echo.Context, actor user.Actor) error {
	if err := api.svc.DeleteAssignment(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
