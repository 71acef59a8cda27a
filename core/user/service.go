package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound           = core.NewNotFoundError("user")
	ErrProfileNotFound    = core.NewNotFoundError("profile")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrClassroomRequired  = errors.New("students must belong to a classroom")
	ErrClassroomNotFound  = errors.New("classroom not found")

	userOrderingFields = []string{"created_at", "updated_at", "last_login"}
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// UpdateUser returns ErrEmailExists when the email is taken.
		UpdateUser(ctx context.Context, usr User) (User, error)
		QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		DeleteUser(ctx context.Context, id string) error

		CreateStudent(ctx context.Context, st Student) (Student, error)
		CreateInstructor(ctx context.Context, in Instructor) (Instructor, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		// GetProfile returns a nil Profile for users without a Student or Instructor row.
		GetProfile(ctx context.Context, userID string) (Profile, error)
	}

	ClassroomChecker interface {
		ClassroomExists(ctx context.Context, id string) (bool, error)
	}

	Service struct {
		repo       Repository
		classrooms ClassroomChecker
	}
)

func NewService(repo Repository, classrooms ClassroomChecker) *Service {
	return &Service{repo: repo, classrooms: classrooms}
}

// Create validates uniqueness & profile requirements, then creates the User and its profile.
func (svc *Service) Create(ctx context.Context, nu NewUser) (Actor, error) {
	if _, err := svc.repo.GetUserByEmail(ctx, nu.Email); err == nil {
		return Actor{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Actor{}, errors.Wrap(err, "checking email uniqueness")
	}

	if nu.Role == RoleStudent {
		if nu.ClassroomID == "" {
			return Actor{}, core.NewValidationError(ErrClassroomRequired, core.FieldError{Field: "classroom_id", Error: ErrClassroomRequired.Error()})
		}
		ok, err := svc.classrooms.ClassroomExists(ctx, nu.ClassroomID)
		if err != nil {
			return Actor{}, errors.Wrap(err, "checking classroom")
		}
		if !ok {
			return Actor{}, core.NewValidationError(ErrClassroomNotFound, core.FieldError{Field: "classroom_id", Error: ErrClassroomNotFound.Error()})
		}
	}

	now := NowFunc().UTC()
	usr := User{
		ID:          uuid.NewString(),
		Email:       nu.Email,
		FirstName:   nu.FirstName,
		LastName:    nu.LastName,
		IsActive:    true,
		IsSuperuser: nu.IsSuperuser,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return Actor{}, errors.Wrap(err, "setting password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return Actor{}, errors.Wrap(err, "creating user")
	}

	actor := Actor{User: usr}
	switch nu.Role {
	case RoleStudent:
		st, err := svc.repo.CreateStudent(ctx, Student{
			ID:                  uuid.NewString(),
			UserID:              usr.ID,
			ClassroomID:         nu.ClassroomID,
			ClassRepresentative: nu.ClassRepresentative,
		})
		if err != nil {
			return Actor{}, errors.Wrap(err, "creating student")
		}
		actor.Profile = st
	case RoleInstructor:
		in, err := svc.repo.CreateInstructor(ctx, Instructor{ID: uuid.NewString(), UserID: usr.ID})
		if err != nil {
			return Actor{}, errors.Wrap(err, "creating instructor")
		}
		actor.Profile = in
	}
	return actor, nil
}

// Authenticate checks the credentials and records the login time.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	now := NowFunc().UTC()
	usr.LastLogin = &now
	usr.UpdatedAt = now
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// GetActor loads an active User together with its profile.
func (svc *Service) GetActor(ctx context.Context, userID string) (Actor, error) {
	usr, err := svc.repo.GetUserByID(ctx, userID)
	if err != nil {
		return Actor{}, err
	}
	if !usr.IsActive {
		return Actor{}, ErrAccountDeactivated
	}
	profile, err := svc.repo.GetProfile(ctx, usr.ID)
	if err != nil {
		return Actor{}, errors.Wrap(err, "loading profile")
	}
	return Actor{User: usr, Profile: profile}, nil
}

// GetStudentUser returns the User behind a Student profile.
func (svc *Service) GetStudentUser(ctx context.Context, studentID string) (User, error) {
	st, err := svc.repo.GetStudentByID(ctx, studentID)
	if err != nil {
		return User{}, err
	}
	return svc.repo.GetUserByID(ctx, st.UserID)
}

func (svc *Service) SetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = NowFunc().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}

func isAdmin(actor Actor) bool {
	return actor.IsSuperuser() || actor.Role() == RoleAdmin
}

// Query lists users with their profiles. Admins only.
func (svc *Service) Query(ctx context.Context, actor Actor, filter QueryFilter, orderings []core.DBOrdering) ([]Actor, error) {
	if !isAdmin(actor) {
		return nil, core.ErrForbidden
	}
	filter.Orderings = core.CleanOrderings(orderings, userOrderingFields...)
	users, err := svc.repo.QueryUsers(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	actors := make([]Actor, 0, len(users))
	for _, usr := range users {
		profile, err := svc.repo.GetProfile(ctx, usr.ID)
		if err != nil {
			return nil, errors.Wrap(err, "loading profile")
		}
		actors = append(actors, Actor{User: usr, Profile: profile})
	}
	return actors, nil
}

// Get returns the user id with its profile. Non-admins only see themselves.
func (svc *Service) Get(ctx context.Context, actor Actor, id string) (Actor, error) {
	if id != actor.User.ID && !isAdmin(actor) {
		return Actor{}, ErrNotFound
	}
	if _, err := uuid.Parse(id); err != nil {
		return Actor{}, ErrNotFound
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return Actor{}, err
	}
	profile, err := svc.repo.GetProfile(ctx, usr.ID)
	if err != nil {
		return Actor{}, errors.Wrap(err, "loading profile")
	}
	return Actor{User: usr, Profile: profile}, nil
}

// Update applies uu to the user id. Users may change their own names and password;
// the email and account flags need an admin, and is_superuser a superuser.
func (svc *Service) Update(ctx context.Context, actor Actor, id string, uu UpdateUser) (Actor, error) {
	target, err := svc.Get(ctx, actor, id)
	if err != nil {
		return Actor{}, err
	}
	if uu.adminOnly() && !isAdmin(actor) {
		return Actor{}, core.ErrForbidden
	}
	if (uu.IsSuperuser != nil || target.IsSuperuser()) && !actor.IsSuperuser() {
		return Actor{}, core.ErrForbidden
	}

	usr := target.User
	if uu.Email != nil && *uu.Email != usr.Email {
		if _, err := svc.repo.GetUserByEmail(ctx, *uu.Email); err == nil {
			return Actor{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		} else if errors.Cause(err) != ErrNotFound {
			return Actor{}, errors.Wrap(err, "checking email uniqueness")
		}
		usr.Email = *uu.Email
	}
	if uu.FirstName != nil {
		usr.FirstName = *uu.FirstName
	}
	if uu.LastName != nil {
		usr.LastName = *uu.LastName
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.IsSuperuser != nil {
		usr.IsSuperuser = *uu.IsSuperuser
	}
	if uu.Password != "" {
		if tag := CheckPasswordPolicy(uu.Password, usr.FirstName, usr.LastName, usr.Email); tag != "" {
			return Actor{}, core.NewValidationError(nil, core.FieldError{Field: "password", Error: PasswordPolicyText(tag)})
		}
		if err = usr.SetPassword(uu.Password); err != nil {
			return Actor{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = NowFunc().UTC()

	usr, err = svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return Actor{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return Actor{}, errors.Wrap(err, "updating user")
	}
	return Actor{User: usr, Profile: target.Profile}, nil
}

// Delete removes the user id and everything it owns. Superusers only, and never themselves.
func (svc *Service) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.IsSuperuser() || id == actor.User.ID {
		return core.ErrForbidden
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return svc.repo.DeleteUser(ctx, id)
}
