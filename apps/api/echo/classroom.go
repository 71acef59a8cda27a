package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core/access"
	"github.com/sims-edu/sims/core/classroom"
)

type classroomApi struct {
	svc      *classroom.Service
	validate *validator.Validate
}

func registerClassroomAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *classroom.Service, validate *validator.Validate) {
	api := classroomApi{svc: svc, validate: validate}

	cg := g.Group("/classrooms", protected(authed, access.ResourceClassrooms)...)
	cg.GET("", api.query)
	cg.POST("", api.create)
}

func (api *classroomApi) query(ctx echo.Context) error {
	classrooms, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying classrooms")
	}
	return ctx.JSON(http.StatusOK, classrooms)
}

func (api *classroomApi) create(ctx echo.Context) error {
	var data classroom.NewClassroom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassroom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating classroom")
	}
	return ctx.JSON(http.StatusCreated, cr)
}
