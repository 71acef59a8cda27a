package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/sims-edu/sims/core/classroom"
	"github.com/sims-edu/sims/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB
	usrSvc   *user.Service
	crSvc    *classroom.Service
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run goose migration commands (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)")
	_, _ = fmt.Fprintln(cli.out, "  adduser -email EMAIL -role ROLE [-classroom ID] [-classrep] [-superuser] [-firstname NAME] [-lastname NAME] - create a user")
	_, _ = fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset user's password")
	_, _ = fmt.Fprintln(cli.out, "  loadclassrooms -file PATH - create the classrooms listed in a TOML file")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", string(user.RoleStudent), "STUDENT, INSTRUCTOR or ADMIN.")
	addUserClassroom := addUserCmd.String("classroom", "", "The student's classroom ID.")
	addUserClassRep := addUserCmd.Bool("classrep", false, "Make the student a class representative.")
	addUserSuperuser := addUserCmd.Bool("superuser", false, "Grant every permission.")
	addUserFirstName := addUserCmd.String("firstname", "", "The user's first name.")
	addUserLastName := addUserCmd.String("lastname", "", "The user's last name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	loadClassroomsCmd := flag.NewFlagSet("loadclassrooms", flag.ContinueOnError)
	loadClassroomsCmd.SetOutput(cli.out)
	loadClassroomsFile := loadClassroomsCmd.String("file", "config/classrooms.toml", "Path to the TOML seed file.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(user.NewUser{
			Email:               *addUserEmail,
			FirstName:           *addUserFirstName,
			LastName:            *addUserLastName,
			Password:            pwd,
			PasswordConfirm:     pwd,
			Role:                user.Role(*addUserRole),
			ClassroomID:         *addUserClassroom,
			ClassRepresentative: *addUserClassRep,
			IsSuperuser:         *addUserSuperuser,
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "loadclassrooms":
		if err := loadClassroomsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loadClassroomsFile == "" {
			loadClassroomsCmd.Usage()
			return errHelp
		}
		return cli.loadClassrooms(*loadClassroomsFile)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
