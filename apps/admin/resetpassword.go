package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core/user"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if tag := user.CheckPasswordPolicy(pwd, usr.FirstName, usr.LastName, usr.Email); tag != "" {
		return errors.New(user.PasswordPolicyText(tag))
	}
	if err = cli.usrSvc.SetPassword(ctx, usr.Email, pwd); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "password updated for %s\n", usr.Email)
	return nil
}
