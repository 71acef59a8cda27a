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

type submissionApi struct {
	svc      *coursework.Service
	validate *validator.Validate
}

func registerSubmissionAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *coursework.Service, validate *validator.Validate) {
	api := submissionApi{svc: svc, validate: validate}

	sg := g.Group("/submissions", protected(authed, access.ResourceSubmissions)...)
	sg.GET("", withActor(api.query))
	sg.POST("", withActor(api.create))

	sg.GET("/:id", withActor(api.retrieve))
	sg.PUT("/:id", withActor(api.patch))
	sg.PATCH("/:id", withActor(api.patch))
	sg.DELETE("/:id", withActor(api.destroy))
}

// query accepts ?assignment=<id> to narrow the list.
func (api *submissionApi) query(ctx echo.Context, actor user.Actor) error {
	var ord Ordering
	ord.Bind(ctx)

	submissions, err := api.svc.QuerySubmissions(ctx.Request().Context(), actor, ctx.QueryParam("assignment"), ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, submissions)
}

func (api *submissionApi) create(ctx echo.Context, actor user.Actor) error {
	var data coursework.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.CreateSubmission(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating submission")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *submissionApi) retrieve(ctx echo.Context, actor user.Actor) error {
	s, err := api.svc.GetSubmission(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding submission")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *submissionApi) patch(ctx echo.Context, actor user.Actor) error {
	var data coursework.PatchSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PatchSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.PatchSubmission(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating submission")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *submissionApi) destroy(ctx echo.Context, actor user.Actor) error {
	if err := api.svc.DeleteSubmission(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting submission")
	}
	return ctx.NoContent(http.StatusNoContent)
}
