package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core/classroom"
)

type classroomRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r classroomRow) toClassroom() classroom.Classroom {
	return classroom.Classroom{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC()}
}

type classroomRepository struct {
	db *sqlx.DB
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *sqlx.DB) classroom.Repository {
	return &classroomRepository{db: db}
}

func (repo *classroomRepository) CreateClassroom(ctx context.Context, cr classroom.Classroom) (classroom.Classroom, error) {
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO classrooms (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`,
		classroomRow{ID: cr.ID, Name: cr.Name, CreatedAt: cr.CreatedAt.UTC(), UpdatedAt: cr.UpdatedAt.UTC()})
	if err != nil {
		if c, ok := uniqueConstraint(err); ok && c == "classrooms_name_key" {
			return classroom.Classroom{}, classroom.ErrNameExists
		}
		return classroom.Classroom{}, errors.Wrap(err, "inserting classroom")
	}
	return cr, nil
}

func (repo *classroomRepository) getClassroom(ctx context.Context, where string, arg interface{}) (classroom.Classroom, error) {
	var row classroomRow
	if err := repo.db.GetContext(ctx, &row, `SELECT id, name, created_at, updated_at FROM classrooms WHERE `+where, arg); err != nil {
		return classroom.Classroom{}, trapNoRowsErr(err, classroom.ErrNotFound, "finding classroom")
	}
	return row.toClassroom(), nil
}

func (repo *classroomRepository) GetClassroomByID(ctx context.Context, id string) (classroom.Classroom, error) {
	return repo.getClassroom(ctx, "id = $1", id)
}

func (repo *classroomRepository) GetClassroomByName(ctx context.Context, name string) (classroom.Classroom, error) {
	return repo.getClassroom(ctx, "name = $1", name)
}

func (repo *classroomRepository) QueryClassrooms(ctx context.Context) ([]classroom.Classroom, error) {
	var rows []classroomRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT id, name, created_at, updated_at FROM classrooms ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying classrooms")
	}
	classrooms := make([]classroom.Classroom, 0, len(rows))
	for _, r := range rows {
		classrooms = append(classrooms, r.toClassroom())
	}
	return classrooms, nil
}
