package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) emailTaken(email, excludedID string) bool {
	for _, usr := range repo.db.data.users {
		if usr.Email == email && usr.ID != excludedID {
			return true
		}
	}
	return false
}

func (repo *userRepository) Create(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.emailTaken(usr.Email, "") {
		return user.User{}, user.ErrEmailExists
	}
	put(exec, repo.db.data.users, usr.ID, usr)
	return usr, nil
}

func (repo *userRepository) Get(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	switch {
	case filter.ID != "":
		if usr, ok := repo.db.data.users[filter.ID]; ok {
			return usr, nil
		}
	case filter.Email != "":
		for _, usr := range repo.db.data.users {
			if usr.Email == filter.Email {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) Query(_ context.Context, filter user.QueryFilter, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := idSet(filter.IDs)
	users := make([]user.User, 0)
	for _, usr := range repo.db.data.users {
		if ids != nil && !ids[usr.ID] {
			continue
		}
		if filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		users = append(users, usr)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (repo *userRepository) Update(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.data.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if repo.emailTaken(usr.Email, usr.ID) {
		return user.User{}, user.ErrEmailExists
	}
	put(exec, repo.db.data.users, usr.ID, usr)
	return usr, nil
}

// Delete mirrors the foreign keys of the SQL schema: the teacher profile goes with its user
// and the user's attendance marks are kept unattributed.
func (repo *userRepository) Delete(_ context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	del(exec, repo.db.data.users, id)
	for tid, t := range repo.db.data.teachers {
		if t.UserID == id {
			del(exec, repo.db.data.teachers, tid)
		}
	}
	for aid, a := range repo.db.data.attendance {
		if a.MarkedBy == id {
			a.MarkedBy = ""
			put(exec, repo.db.data.attendance, aid, a)
		}
	}
	return nil
}
