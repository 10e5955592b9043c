package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/user"
)

var errNameRequired = errors.New("-name is required for new users")

// addUser updates or creates a user.User; the account ends up active with the given role and password.
func (cli *commandLine) addUser(name, email string, role user.Role, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	role = user.Role(core.CleanString(string(role), true /* lower */))
	if !role.Valid() {
		return fmt.Errorf("%q: unknown role", role)
	}

	now := user.NowFunc().UTC()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	found := err == nil
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		if name == "" {
			return errNameRequired
		}
		usr = user.User{Email: email, CreatedAt: now}
	}

	if name != "" {
		usr.Name = name
	}
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if found {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	if err != nil {
		return err
	}
	cli.logger.Info(fmt.Sprintf("user %s saved as %s", usr.Email, usr.Role))
	return nil
}
