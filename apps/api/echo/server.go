package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/classroom"
	"github.com/sims-edu/sims/core/coursework"
	"github.com/sims-edu/sims/core/upload"
	"github.com/sims-edu/sims/core/user"
	"github.com/sims-edu/sims/services/throttle"
)

type (
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		UserSvc       *user.Service
		Resetter      *user.Resetter
		ClassroomSvc  *classroom.Service
		CourseworkSvc *coursework.Service
		UploadSvc     *upload.Service
		Limiter       throttle.Limiter
		Validate      *validator.Validate
		Translator    ut.Translator
	}

	Server struct {
		conf     *core.Config
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		conf:     deps.Conf,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !deps.Conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(deps.Conf.Debug || deps.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.signalShutdown)
	s.app.Debug = deps.Conf.Debug

	s.app.GET("/", home(deps.Conf.AppName))

	if deps.Limiter == nil {
		deps.Limiter = throttle.NewNoopLimiter()
	}
	tokens := newTokenizer(deps.Conf)
	v1 := s.app.Group("/v1")
	authed := []echo.MiddlewareFunc{middleware.JWTWithConfig(tokens.jwtConfig()), actorMiddleware(deps.UserSvc)}

	registerAuthAPI(v1, authed, tokens, deps.UserSvc, deps.Resetter, deps.Limiter, deps.Validate)
	registerUserAPI(v1, authed, deps.UserSvc, deps.Validate)
	registerClassroomAPI(v1, authed, deps.ClassroomSvc, deps.Validate)
	registerAssignmentAPI(v1, authed, deps.CourseworkSvc, deps.Validate)
	registerSubmissionAPI(v1, authed, deps.CourseworkSvc, deps.Validate)
	registerUploadAPI(v1, authed, deps.UploadSvc, deps.Validate)

	return s
}

// Start blocks until the server stops. Unexpected failures are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(appName string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "Welcome to "+appName+" API!")
	}
}
