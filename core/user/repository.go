package user

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

type Repository interface {
	// CreateUser fails with a core.ConflictError when the username is taken.
	CreateUser(ctx context.Context, usr User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	QueryUsers(ctx context.Context, filter Filter) ([]User, error)
	// SetUsersActive sets IsActive on every user matching filter and returns the IDs it changed.
	SetUsersActive(ctx context.Context, filter Filter, active bool) ([]string, error)
	SetUserPassword(ctx context.Context, id string, hash []byte) error
	DeleteUser(ctx context.Context, id string) error
}

// DefaultUsername derives a login from a user's names when none is given.
func DefaultUsername(givenName, familyName string) string {
	uname := core.CleanString(familyName, true /* lower */) + "_" + core.CleanString(givenName, true /* lower */)
	return strings.Join(strings.Fields(uname), "")
}

// GetKind returns the user with the given ID, failing with NotFound when it
// does not exist or is not of the expected kind.
func GetKind(ctx context.Context, repo Repository, id string, kind Kind) (User, error) {
	usr, err := repo.GetUser(ctx, id)
	if err != nil {
		return User{}, errors.Wrapf(err, "getting %s", kind)
	}
	if usr.Kind != kind {
		return User{}, core.NewNotFoundError(string(kind), id)
	}
	return usr, nil
}
