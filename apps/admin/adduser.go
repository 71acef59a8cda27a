package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/user"
)

// addUser creates a user.User and its profile
func (cli *commandLine) addUser(nu user.NewUser) error {
	if err := nu.Validate(cli.validate); err != nil {
		return validationErr(err)
	}
	actor, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return validationErr(err)
	}
	_, _ = fmt.Fprintf(cli.out, "created %s %s (%s)\n", strings.ToLower(string(actor.Role())), actor.User.Email, actor.User.ID)
	return nil
}

// validationErr flattens field errors into a single line for the terminal.
func validationErr(err error) error {
	var msgs []string
	switch vErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for _, fe := range vErr {
			tag := fe.Tag()
			if text := user.PasswordPolicyText(tag); text != "" {
				tag = text
			}
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), tag))
		}
	case *core.ValidationError:
		for _, fe := range vErr.Fields {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Error))
		}
	}
	if len(msgs) == 0 {
		return err
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}
