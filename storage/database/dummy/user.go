package dummydb

import (
	"context"
	"strings"
	"time"

	"github.com/sims-edu/sims/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, u := range repo.db.users {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	users := make([]user.User, 0)
	for _, usr := range repo.db.users {
		if search != "" && !strings.Contains(strings.ToLower(usr.Email), search) &&
			!strings.Contains(strings.ToLower(usr.FirstName), search) &&
			!strings.Contains(strings.ToLower(usr.LastName), search) {
			continue
		}
		if filter.Role != "" && repo.role(usr.ID) != filter.Role {
			continue
		}
		if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
			continue
		}
		users = append(users, *usr)
	}
	sortRows(users, func(u user.User) timestamps {
		var lastLogin time.Time
		if u.LastLogin != nil {
			lastLogin = *u.LastLogin
		}
		return timestamps{id: u.ID, createdAt: u.CreatedAt, updatedAt: u.UpdatedAt, extra: map[string]time.Time{"last_login": lastLogin}}
	}, filter.Orderings)
	return users, nil
}

func (repo *userRepository) role(userID string) user.Role {
	for _, st := range repo.db.students {
		if st.UserID == userID {
			return user.RoleStudent
		}
	}
	for _, in := range repo.db.instructors {
		if in.UserID == userID {
			return user.RoleInstructor
		}
	}
	return user.RoleAdmin
}

// DeleteUser drops the user and its profile. Other tables are left alone.
func (repo *userRepository) DeleteUser(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(repo.db.users, id)
	for stID, st := range repo.db.students {
		if st.UserID == id {
			delete(repo.db.students, stID)
		}
	}
	for inID, in := range repo.db.instructors {
		if in.UserID == id {
			delete(repo.db.instructors, inID)
		}
	}
	return nil
}

func (repo *userRepository) CreateStudent(_ context.Context, st user.Student) (user.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.students[st.ID] = &st
	return st, nil
}

func (repo *userRepository) CreateInstructor(_ context.Context, in user.Instructor) (user.Instructor, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.instructors[in.ID] = &in
	return in, nil
}

func (repo *userRepository) GetStudentByID(_ context.Context, id string) (user.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if st, ok := repo.db.students[id]; ok {
		return *st, nil
	}
	return user.Student{}, user.ErrProfileNotFound
}

func (repo *userRepository) GetProfile(_ context.Context, userID string) (user.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, st := range repo.db.students {
		if st.UserID == userID {
			return *st, nil
		}
	}
	for _, in := range repo.db.instructors {
		if in.UserID == userID {
			return *in, nil
		}
	}
	return nil, nil
}
