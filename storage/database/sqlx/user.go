package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

var userColumns = []string{
	"id", "branch_id", "kind", "username", "given_name", "family_name", "image_url",
	"is_active", "password_hash", "created_at", "updated_at", "last_login",
}

func (repo *repository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	q := psql.Insert("users").Columns(userColumns...).Values(
		usr.ID, usr.BranchID, usr.Kind, usr.Username, usr.GivenName, usr.FamilyName, usr.ImageURL,
		usr.IsActive, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, usr.LastLogin,
	)
	if _, err := repo.exec(ctx, q); err != nil {
		if pgCode(err) == uniqueViolation {
			return user.User{}, core.NewConflictError("username %q is taken", usr.Username)
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *repository) GetUser(ctx context.Context, id string) (user.User, error) {
	var usr user.User
	err := repo.get(ctx, &usr, psql.Select(userColumns...).From("users").Where(sq.Eq{"id": id}), "user", id)
	return usr, err
}

func (repo *repository) QueryUsers(ctx context.Context, filter user.Filter) ([]user.User, error) {
	users := make([]user.User, 0)
	q := psql.Select(userColumns...).From("users").Where(userWhere(filter)).OrderBy("created_at")
	if err := repo.selectAll(ctx, &users, q); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	return users, nil
}

func (repo *repository) SetUsersActive(ctx context.Context, filter user.Filter, active bool) ([]string, error) {
	q := psql.Update("users").
		Set("is_active", active).
		Where(userWhere(filter)).
		Where(sq.NotEq{"is_active": active}).
		Suffix("RETURNING id")

	changed := make([]string, 0)
	if err := repo.selectAll(ctx, &changed, q); err != nil {
		return nil, errors.Wrap(err, "updating users")
	}
	return changed, nil
}

func (repo *repository) SetUserPassword(ctx context.Context, id string, hash []byte) error {
	n, err := repo.exec(ctx, psql.Update("users").Set("password_hash", hash).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	if n == 0 {
		return core.NewNotFoundError("user", id)
	}
	return nil
}

func (repo *repository) DeleteUser(ctx context.Context, id string) error {
	_, err := repo.exec(ctx, psql.Delete("users").Where(sq.Eq{"id": id}))
	return errors.Wrap(err, "deleting user")
}
