package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/classroom"
	"github.com/sims-edu/sims/core/user"
	"github.com/sims-edu/sims/storage/database/dummy"
	"github.com/sims-edu/sims/tests"
)

const testPassword = "Sup3r$ecret!"

var (
	usrRepo user.Repository
	crRepo  classroom.Repository
)

func setup(t *testing.T) *commandLine {
	// set up DB & repos
	db := dummydb.Open()
	usrRepo = dummydb.NewUserRepository(db)
	crRepo = dummydb.NewClassroomRepository(db)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(testutil.NopLogger{})

	crSvc := classroom.NewService(crRepo)

	// start CLI
	return &commandLine{
		usrSvc:   user.NewService(usrRepo, crSvc),
		crSvc:    crSvc,
		validate: validate,
		out:      new(bytes.Buffer),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	cr := testutil.CreateClassroom(t, crRepo, "CPE 500L")
	testutil.CreateAdmin(t, usrRepo, "taken@test.cd", "", false)

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"adduser", "-email", "a@test.cd"}, wantErr: errHelp},
		{name: "bad role", args: []string{"adduser", "-email", "a@test.cd", "-role", "janitor"}, extra: testPassword, wantErrStr: "role: oneof"},
		{name: "weak password", args: []string{"adduser", "-email", "a@test.cd", "-role", "admin"}, extra: "password", wantErrStr: "password: " + user.PasswordPolicyText("pwdcplx")},
		{name: "student without classroom", args: []string{"adduser", "-email", "s@test.cd"}, extra: testPassword, wantErrStr: "classroom_id: required"},
		{name: "email taken", args: []string{"adduser", "-email", "TAKEN@test.cd", "-role", "admin"}, extra: testPassword, wantErrStr: "email: a user with this email already exists"},
		{name: "superuser", args: []string{"adduser", "-email", "root@test.cd", "-role", "admin", "-superuser"}, extra: testPassword},
		{name: "class rep", args: []string{"adduser", "-email", "rep@test.cd", "-classroom", cr.ID, "-classrep"}, extra: testPassword},
		{name: "instructor", args: []string{"adduser", "-email", "instructor@test.cd", "-role", "instructor", "-firstname", "Ada"}, extra: testPassword},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	ctx := context.Background()
	root, err := cli.usrSvc.GetByEmail(ctx, "root@test.cd")
	require.NoError(t, err)
	assert.True(t, root.IsSuperuser)
	assert.NoError(t, root.CheckPassword(testPassword))

	repUsr, err := cli.usrSvc.GetByEmail(ctx, "rep@test.cd")
	require.NoError(t, err)
	rep, err := cli.usrSvc.GetActor(ctx, repUsr.ID)
	require.NoError(t, err)
	st, ok := rep.Student()
	require.True(t, ok)
	assert.True(t, st.ClassRepresentative)
	assert.Equal(t, cr.ID, st.ClassroomID)

	in, err := cli.usrSvc.GetByEmail(ctx, "instructor@test.cd")
	require.NoError(t, err)
	assert.Equal(t, "Ada", in.FirstName)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "awe@test.cd", "Old-pa55word", true, false)

	tests := []cliTest{
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, extra: testPassword, wantErr: user.ErrNotFound},
		{name: "weak password", args: []string{"resetpassword", "-email", usr.Email}, extra: "12345678", wantErrStr: user.PasswordPolicyText("pwdnotallnum")},
		{name: "reset", args: []string{"resetpassword", "-email", " AWE@test.cd "}, extra: testPassword},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword(testPassword))
}

func Test_commandLine_loadClassrooms(t *testing.T) {
	cli := setup(t)
	testutil.CreateClassroom(t, crRepo, "CPE 100L")

	dir := t.TempDir()
	write := func(name, content string) string {
		fp := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(fp, []byte(content), 0o600))
		return fp
	}
	bad := write("bad.toml", "[[classroom]\nname = ")
	long := write("long.toml", "[[classroom]]\nname = \"A classroom name that is way too long\"\n")

	tests := []cliTest{
		{name: "no file", args: []string{"loadclassrooms", "-file", filepath.Join(dir, "missing.toml")}, wantErrStr: "reading seed file: open " + filepath.Join(dir, "missing.toml") + ": no such file or directory"},
		{name: "invalid name", args: []string{"loadclassrooms", "-file", long}, wantErrStr: "classroom #1: name: max"},
		{name: "seed file", args: []string{"loadclassrooms", "-file", filepath.Join(core.ProjectRoot(), "config", "classrooms.toml")}},
		{name: "loaded twice", args: []string{"loadclassrooms", "-file", filepath.Join(core.ProjectRoot(), "config", "classrooms.toml")}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("malformed file", func(t *testing.T) {
		assert.Error(t, cli.run([]string{"admin", "loadclassrooms", "-file", bad}))
	})

	classrooms, err := cli.crSvc.QueryAll(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(classrooms))
	for _, cr := range classrooms {
		names = append(names, cr.Name)
	}
	assert.Equal(t, []string{"CPE 100L", "CPE 200L", "CPE 300L", "CPE 400L", "CPE 500L"}, names)
}
