package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core/access"
	"github.com/sims-edu/sims/core/upload"
	"github.com/sims-edu/sims/core/user"
)

type uploadApi struct {
	svc      *upload.Service
	validate *validator.Validate
}

func registerUploadAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *upload.Service, validate *validator.Validate) {
	api := uploadApi{svc: svc, validate: validate}

	ug := g.Group("/uploads", protected(authed, access.ResourceUploads)...)
	ug.POST("", withActor(api.start))
	ug.GET("/:id", withActor(api.retrieve))
	ug.POST("/:id/finish", withActor(api.finish))

	g.GET("/materials", withActor(api.materials), authed...)
}

func (api *uploadApi) start(ctx echo.Context, actor user.Actor) error {
	var data upload.NewUpload
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUpload")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	started, err := api.svc.Start(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "starting upload")
	}
	return ctx.JSON(http.StatusCreated, started)
}

func (api *uploadApi) finish(ctx echo.Context, actor user.Actor) error {
	u, err := api.svc.Finish(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finishing upload")
	}
	return ctx.JSON(http.StatusOK, u)
}

func (api *uploadApi) retrieve(ctx echo.Context, actor user.Actor) error {
	u, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding upload")
	}
	return ctx.JSON(http.StatusOK, u)
}

// materials lists valid course materials; instructors and admins may pass ?classroom=<id>.
func (api *uploadApi) materials(ctx echo.Context, actor user.Actor) error {
	var filter upload.MaterialFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to MaterialFilter")
	}
	filter.Clean()

	var ord Ordering
	ord.Bind(ctx)

	materials, err := api.svc.QueryMaterials(ctx.Request().Context(), actor, filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying course materials")
	}
	return ctx.JSON(http.StatusOK, materials)
}
