package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

// addUser creates the user.User owning email, or updates its name, role & password when it exists.
// The account is (re)activated either way.
func (cli *commandLine) addUser(name, email string, role user.Role, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	if !role.IsValid() {
		return errors.Errorf("invalid role %q", role)
	}

	now := core.NowFunc().UTC()
	usr, err := cli.usrRepo.Get(ctx, user.GetFilter{Email: email})
	exists := err == nil
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return errors.Wrap(err, "finding user by email")
		}
		usr = user.User{
			ID:              uuid.NewString(),
			Email:           email,
			IsEmailVerified: true,
			CreatedAt:       now,
		}
	}

	usr.Name = name
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}

	if exists {
		_, err = cli.usrRepo.Update(ctx, usr)
	} else {
		_, err = cli.usrRepo.Create(ctx, usr)
	}
	if err != nil {
		return errors.Wrap(err, "saving user")
	}
	_, _ = fmt.Fprintf(cli.out, "%s <%s> saved as %s\n", usr.Name, usr.Email, usr.Role)
	return nil
}
