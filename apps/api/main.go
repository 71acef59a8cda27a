package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/sims-edu/sims/apps/api/echo"
	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/classroom"
	"github.com/sims-edu/sims/core/coursework"
	"github.com/sims-edu/sims/core/upload"
	"github.com/sims-edu/sims/core/user"
	emailsvc "github.com/sims-edu/sims/services/email"
	logsvc "github.com/sims-edu/sims/services/logger"
	storagesvc "github.com/sims-edu/sims/services/storage"
	"github.com/sims-edu/sims/services/throttle"
	"github.com/sims-edu/sims/storage/database"
	sqlxrepos "github.com/sims-edu/sims/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up object storage; a missing setting stops the process here
	issuer, err := upload.NewIssuer(conf.Storage, storagesvc.NewS3Presigner(conf.Storage))
	if err != nil {
		var cErr *core.ConfigError
		if errors.As(err, &cErr) {
			logger.Fatal(fmt.Sprintf("configuring uploads: %v", cErr), err)
		}
		logger.Fatal(fmt.Sprintf("setting up upload issuer: %v", err), err)
	}

	// set up login throttling
	limiter := throttle.NewNoopLimiter()
	if conf.Redis.URL != "" {
		client, err := throttle.NewRedisClient(conf.Redis.URL)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
		}
		defer client.Close()
		limiter = throttle.NewRedisLimiter(client, conf.Redis.LoginAttempts, conf.Redis.LoginWindow)
	} else {
		logger.Warn("redis.url not set: login attempts are not throttled")
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	crSvc := classroom.NewService(sqlxrepos.NewClassroomRepository(db))
	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, crSvc)
	resetter := user.NewResetter(usrRepo, mailSvc, conf, logger)
	uplSvc := upload.NewService(sqlxrepos.NewUploadRepository(db), issuer, crSvc)
	cwSvc := coursework.NewService(coursework.Deps{
		Repo:        sqlxrepos.NewCourseworkRepository(db),
		Classrooms:  crSvc,
		Attachments: uplSvc,
		Students:    usrSvc,
		MailSvc:     mailSvc,
		Logger:      logger,
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : %s", conf))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			UserSvc:       usrSvc,
			Resetter:      resetter,
			ClassroomSvc:  crSvc,
			CourseworkSvc: cwSvc,
			UploadSvc:     uplSvc,
			Limiter:       limiter,
			Validate:      validate,
			Translator:    translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
