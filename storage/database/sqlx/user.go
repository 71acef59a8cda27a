package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sims-edu/sims/core/user"
)

const userColumns = `id, email, first_name, last_name, password_hash, is_active, is_superuser, created_at, updated_at, last_login`

type userRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	PasswordHash []byte    `db:"password_hash"`
	IsActive     bool      `db:"is_active"`
	IsSuperuser  bool      `db:"is_superuser"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Email:        usr.Email,
		FirstName:    usr.FirstName,
		LastName:     usr.LastName,
		PasswordHash: usr.PasswordHash,
		IsActive:     usr.IsActive,
		IsSuperuser:  usr.IsSuperuser,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.TimeFromPtr(usr.LastLogin),
	}
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		PasswordHash: r.PasswordHash,
		IsActive:     r.IsActive,
		IsSuperuser:  r.IsSuperuser,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    utcPtr(r.LastLogin),
	}
}

type studentRow struct {
	ID                  string `db:"id"`
	UserID              string `db:"user_id"`
	ClassroomID         string `db:"classroom_id"`
	ClassRepresentative bool   `db:"class_representative"`
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :email, :first_name, :last_name, :password_hash, :is_active, :is_superuser, :created_at, :updated_at, :last_login)`,
		toUserRow(usr))
	if err != nil {
		if c, ok := uniqueConstraint(err); ok && c == "users_email_key" {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) getUser(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE `+where, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, "id = $1", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, "email = $1", email)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE users SET email = :email, first_name = :first_name, last_name = :last_name, password_hash = :password_hash,
			is_active = :is_active, is_superuser = :is_superuser, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`,
		toUserRow(usr))
	if err != nil {
		if c, ok := uniqueConstraint(err); ok && c == "users_email_key" {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err = checkAffected(res, user.ErrNotFound, "updating user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	var where conditions
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		where.add("(email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?)", pattern, pattern, pattern)
	}
	switch filter.Role {
	case user.RoleStudent:
		where.addRaw("EXISTS (SELECT 1 FROM students s WHERE s.user_id = users.id)")
	case user.RoleInstructor:
		where.addRaw("EXISTS (SELECT 1 FROM instructors i WHERE i.user_id = users.id)")
	case user.RoleAdmin:
		where.addRaw("NOT EXISTS (SELECT 1 FROM students s WHERE s.user_id = users.id)")
		where.addRaw("NOT EXISTS (SELECT 1 FROM instructors i WHERE i.user_id = users.id)")
	}
	if filter.IsActive != nil {
		where.add("is_active = ?", *filter.IsActive)
	}

	var rows []userRow
	q := where.query(`SELECT `+userColumns+` FROM users`, orderBy(filter.Orderings))
	if err := repo.db.SelectContext(ctx, &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

// DeleteUser cascades to the user's profile, uploads and coursework.
func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return checkAffected(res, user.ErrNotFound, "deleting user")
}

func (repo *userRepository) CreateStudent(ctx context.Context, st user.Student) (user.Student, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO students (id, user_id, classroom_id, class_representative)
		VALUES (:id, :user_id, :classroom_id, :class_representative)`,
		studentRow(st))
	if err != nil {
		return user.Student{}, errors.Wrap(err, "inserting student")
	}
	return st, nil
}

func (repo *userRepository) CreateInstructor(ctx context.Context, in user.Instructor) (user.Instructor, error) {
	_, err := repo.db.ExecContext(ctx, `INSERT INTO instructors (id, user_id) VALUES ($1, $2)`, in.ID, in.UserID)
	if err != nil {
		return user.Instructor{}, errors.Wrap(err, "inserting instructor")
	}
	return in, nil
}

func (repo *userRepository) GetStudentByID(ctx context.Context, id string) (user.Student, error) {
	var row studentRow
	err := repo.db.GetContext(ctx, &row, `SELECT id, user_id, classroom_id, class_representative FROM students WHERE id = $1`, id)
	if err != nil {
		return user.Student{}, trapNoRowsErr(err, user.ErrProfileNotFound, "finding student")
	}
	return user.Student(row), nil
}

// GetProfile returns nil, nil for users with neither profile.
func (repo *userRepository) GetProfile(ctx context.Context, userID string) (user.Profile, error) {
	var st studentRow
	err := repo.db.GetContext(ctx, &st, `SELECT id, user_id, classroom_id, class_representative FROM students WHERE user_id = $1`, userID)
	if err == nil {
		return user.Student(st), nil
	}
	if err = trapNoRowsErr(err, user.ErrProfileNotFound, "finding student"); err != user.ErrProfileNotFound {
		return nil, err
	}

	var in user.Instructor
	err = repo.db.QueryRowxContext(ctx, `SELECT id, user_id FROM instructors WHERE user_id = $1`, userID).Scan(&in.ID, &in.UserID)
	if err == nil {
		return in, nil
	}
	if err = trapNoRowsErr(err, user.ErrProfileNotFound, "finding instructor"); err != user.ErrProfileNotFound {
		return nil, err
	}
	return nil, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}
