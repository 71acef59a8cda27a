package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/sims-edu/sims/core"
)

type Role string

// Roles
const (
	RoleAdmin      Role = "ADMIN"
	RoleInstructor Role = "INSTRUCTOR"
	RoleStudent    Role = "STUDENT"
)

var AllRoles = []Role{RoleStudent, RoleInstructor, RoleAdmin}

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	IsActive     bool       `json:"is_active"`
	IsSuperuser  bool       `json:"is_superuser"`
	PasswordHash []byte     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"` // UTC
	LastLogin    *time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Profile is the role-specific part of an Actor. Only Student and Instructor implement it.
type Profile interface {
	role() Role
}

type Student struct {
	ID                  string `json:"id"`
	UserID              string `json:"user_id"`
	ClassroomID         string `json:"classroom_id"`
	ClassRepresentative bool   `json:"class_representative"`
}

func (Student) role() Role { return RoleStudent }

type Instructor struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

func (Instructor) role() Role { return RoleInstructor }

// Actor is an authenticated User with at most one profile. No profile means Admin.
type Actor struct {
	User    User
	Profile Profile
}

func (a Actor) Role() Role {
	if a.Profile == nil {
		return RoleAdmin
	}
	return a.Profile.role()
}

func (a Actor) Student() (Student, bool) {
	st, ok := a.Profile.(Student)
	return st, ok
}

func (a Actor) Instructor() (Instructor, bool) {
	in, ok := a.Profile.(Instructor)
	return in, ok
}

func (a Actor) IsSuperuser() bool { return a.User.IsSuperuser }

// Me is the public view of an Actor.
type Me struct {
	User
	Role       Role        `json:"role"`
	Student    *Student    `json:"student,omitempty"`
	Instructor *Instructor `json:"instructor,omitempty"`
}

func (a Actor) Me() Me {
	me := Me{User: a.User, Role: a.Role()}
	switch p := a.Profile.(type) {
	case Student:
		me.Student = &p
	case Instructor:
		me.Instructor = &p
	}
	return me
}

// NewUser contains information needed to create a new User and its profile.
type NewUser struct {
	Email               string `json:"email" validate:"required,email"`
	FirstName           string `json:"first_name" validate:"max=150"`
	LastName            string `json:"last_name" validate:"max=150"`
	Password            string `json:"password" validate:"required"`
	PasswordConfirm     string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role                Role   `json:"role" validate:"required,oneof=STUDENT INSTRUCTOR ADMIN"`
	ClassroomID         string `json:"classroom_id"`
	ClassRepresentative bool   `json:"class_representative"`
	IsSuperuser         bool   `json:"is_superuser"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.ClassroomID = core.CleanString(nu.ClassroomID)
	nu.Role = Role(strings.ToUpper(core.CleanString(string(nu.Role))))
	return validate.Struct(nu)
}

type LoginCredentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (lc *LoginCredentials) Validate(validate *validator.Validate) error {
	lc.Email = core.CleanString(lc.Email, true /* lower */)
	return validate.Struct(lc)
}

// UpdateUser defines what may change on an existing User. Nil fields are left untouched.
type UpdateUser struct {
	Email           *string `json:"email" validate:"omitempty,email"`
	FirstName       *string `json:"first_name" validate:"omitempty,max=150"`
	LastName        *string `json:"last_name" validate:"omitempty,max=150"`
	IsActive        *bool   `json:"is_active"`
	IsSuperuser     *bool   `json:"is_superuser"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(validate *validator.Validate) error {
	if uu.Email != nil {
		email := core.CleanString(*uu.Email, true /* lower */)
		uu.Email = &email
		if email == "" {
			uu.Email = nil
		}
	}
	if uu.FirstName != nil {
		name := core.CleanString(*uu.FirstName)
		uu.FirstName = &name
	}
	if uu.LastName != nil {
		name := core.CleanString(*uu.LastName)
		uu.LastName = &name
	}
	return validate.Struct(uu)
}

// adminOnly reports whether uu touches fields only admins may change.
func (uu UpdateUser) adminOnly() bool {
	return uu.Email != nil || uu.IsActive != nil || uu.IsSuperuser != nil
}

// QueryFilter ANDs its set fields. Search matches the email, first or last name case-insensitively.
type QueryFilter struct {
	Search    string
	Role      Role
	IsActive  *bool
	Orderings []core.DBOrdering
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = Role(strings.ToUpper(core.CleanString(string(qf.Role))))
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	rp.Token = core.CleanString(rp.Token)
	rp.UID = core.CleanString(rp.UID)
	return validate.Struct(rp)
}
