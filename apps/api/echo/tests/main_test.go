package tests

import (
	"os"
	"testing"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/sims-edu/sims/apps/api/echo"
	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/classroom"
	"github.com/sims-edu/sims/core/coursework"
	"github.com/sims-edu/sims/core/upload"
	"github.com/sims-edu/sims/core/user"
	"github.com/sims-edu/sims/services/email"
	"github.com/sims-edu/sims/storage/database/dummy"
	"github.com/sims-edu/sims/tests"
)

var (
	db        *dummydb.DB
	conf      *core.Config
	app       *echoapi.Server
	usrRepo   user.Repository
	crRepo    classroom.Repository
	cwRepo    coursework.Repository
	presigner *testutil.FakePresigner
	resetter  *user.Resetter
	deps      echoapi.ServerDeps

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func TestMain(m *testing.M) {
	logger := testutil.NopLogger{}

	conf = core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.Server.DisableReqLogs = true
	conf.Storage = testutil.StorageConfig()

	// set up DB & repos
	db = dummydb.Open()
	usrRepo = dummydb.NewUserRepository(db)
	crRepo = dummydb.NewClassroomRepository(db)
	cwRepo = dummydb.NewCourseworkRepository(db)
	uplRepo := dummydb.NewUploadRepository(db)

	// set up validators & templates
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)
	core.ParseEmailTemplates(conf, logger)

	// set up services
	presigner = new(testutil.FakePresigner)
	issuer, err := upload.NewIssuer(conf.Storage, presigner)
	if err != nil {
		panic(err)
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	crSvc := classroom.NewService(crRepo)
	usrSvc := user.NewService(usrRepo, crSvc)
	resetter = user.NewResetter(usrRepo, mailSvc, conf, logger)
	uplSvc := upload.NewService(uplRepo, issuer, crSvc)
	cwSvc := coursework.NewService(coursework.Deps{
		Repo:        cwRepo,
		Classrooms:  crSvc,
		Attachments: uplSvc,
		Students:    usrSvc,
		MailSvc:     mailSvc,
		Logger:      logger,
	})

	// set up server
	deps = echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		UserSvc:       usrSvc,
		Resetter:      resetter,
		ClassroomSvc:  crSvc,
		CourseworkSvc: cwSvc,
		UploadSvc:     uplSvc,
		Validate:      validate,
		Translator:    translator,
	}
	app = echoapi.NewServer(deps)

	os.Exit(m.Run())
}
