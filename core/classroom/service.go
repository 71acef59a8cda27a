package classroom

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
	ErrNotFound   = core.NewNotFoundError("classroom")
	ErrNameExists = errors.New("a classroom with this name already exists")
)

type (
	Repository interface {
		// CreateClassroom returns ErrNameExists when the name is taken.
		CreateClassroom(ctx context.Context, cr Classroom) (Classroom, error)
		GetClassroomByID(ctx context.Context, id string) (Classroom, error)
		GetClassroomByName(ctx context.Context, name string) (Classroom, error)
		QueryClassrooms(ctx context.Context) ([]Classroom, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewClassroom) (Classroom, error) {
	now := NowFunc().UTC()
	cr, err := svc.repo.CreateClassroom(ctx, Classroom{
		ID:        uuid.NewString(),
		Name:      nc.Name,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Cause(err) == ErrNameExists {
		return Classroom{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return cr, err
}

func (svc *Service) GetByID(ctx context.Context, id string) (Classroom, error) {
	return svc.repo.GetClassroomByID(ctx, id)
}

// QueryAll lists classrooms by name.
func (svc *Service) QueryAll(ctx context.Context) ([]Classroom, error) {
	return svc.repo.QueryClassrooms(ctx)
}

func (svc *Service) ClassroomExists(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	if _, err := svc.repo.GetClassroomByID(ctx, id); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Load creates the classrooms that do not exist yet and returns how many were created.
func (svc *Service) Load(ctx context.Context, classrooms []NewClassroom) (int, error) {
	var created int
	for _, nc := range classrooms {
		nc.Name = core.CleanString(nc.Name)
		if nc.Name == "" {
			continue
		}
		if _, err := svc.repo.GetClassroomByName(ctx, nc.Name); err == nil {
			continue
		} else if errors.Cause(err) != ErrNotFound {
			return created, errors.Wrapf(err, "finding classroom %q", nc.Name)
		}
		if _, err := svc.Create(ctx, nc); err != nil {
			return created, errors.Wrapf(err, "creating classroom %q", nc.Name)
		}
		created++
	}
	return created, nil
}
