package inmemdb

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

func (repo *repository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.lock()()

	if slices.ContainsFunc(repo.db.users, func(u user.User) bool { return u.Username == usr.Username }) {
		return user.User{}, core.NewConflictError("username %q is taken", usr.Username)
	}
	usr.ID = uuid.New().String()
	repo.db.users = append(repo.db.users, usr)
	return usr, nil
}

func (repo *repository) GetUser(ctx context.Context, id string) (user.User, error) {
	defer repo.rlock()()
	return get(repo.db.users, func(u user.User) bool { return u.ID == id }, "user", id)
}

func (repo *repository) QueryUsers(ctx context.Context, filter user.Filter) ([]user.User, error) {
	defer repo.rlock()()
	return query(repo.db.users, filter.Match), nil
}

func (repo *repository) SetUsersActive(ctx context.Context, filter user.Filter, active bool) ([]string, error) {
	defer repo.lock()()

	changed := make([]string, 0)
	update(repo.db.users, filter.Match, func(u *user.User) {
		if u.IsActive != active {
			u.IsActive = active
			changed = append(changed, u.ID)
		}
	})
	return changed, nil
}

func (repo *repository) SetUserPassword(ctx context.Context, id string, hash []byte) error {
	defer repo.lock()()

	i := slices.IndexFunc(repo.db.users, func(u user.User) bool { return u.ID == id })
	if i < 0 {
		return core.NewNotFoundError("user", id)
	}
	repo.db.users[i].PasswordHash = hash
	return nil
}

func (repo *repository) DeleteUser(ctx context.Context, id string) error {
	defer repo.lock()()
	repo.db.users = slices.DeleteFunc(repo.db.users, func(u user.User) bool { return u.ID == id })
	return nil
}
