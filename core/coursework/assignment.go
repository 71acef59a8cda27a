package coursework

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/user"
)

// assignmentScope narrows a query to what actor may see.
func assignmentScope(actor user.Actor) AssignmentFilter {
	switch p := actor.Profile.(type) {
	case user.Instructor:
		return AssignmentFilter{InstructorID: p.ID}
	case user.Student:
		return AssignmentFilter{ClassroomID: p.ClassroomID}
	}
	return AssignmentFilter{}
}

func assignmentVisible(actor user.Actor, a Assignment) bool {
	scope := assignmentScope(actor)
	return (scope.InstructorID == "" || scope.InstructorID == a.InstructorID) &&
		(scope.ClassroomID == "" || scope.ClassroomID == a.ClassroomID)
}

// isAuthor is the ownership check for assignment mutations.
func isAuthor(actor user.Actor, a Assignment) bool {
	in, ok := actor.Instructor()
	return ok && in.ID == a.InstructorID
}

func (svc *Service) QueryAssignments(ctx context.Context, actor user.Actor, orderings []core.DBOrdering) ([]Assignment, error) {
	filter := assignmentScope(actor)
	filter.Orderings = core.CleanOrderings(orderings, assignmentOrderingFields...)

	assignments, err := svc.Repo.QueryAssignments(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	now := NowFunc()
	for i := range assignments {
		assignments[i] = withStatus(assignments[i], now)
	}
	return assignments, nil
}

func (svc *Service) getAssignment(ctx context.Context, actor user.Actor, id string) (Assignment, error) {
	if !validID(id) {
		return Assignment{}, ErrAssignmentNotFound
	}
	a, err := svc.Repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if !assignmentVisible(actor, a) {
		return Assignment{}, ErrAssignmentNotFound
	}
	return a, nil
}

// GetAssignment returns the assignment if it is in actor's scope, ErrAssignmentNotFound otherwise.
func (svc *Service) GetAssignment(ctx context.Context, actor user.Actor, id string) (Assignment, error) {
	a, err := svc.getAssignment(ctx, actor, id)
	if err != nil {
		return Assignment{}, err
	}
	return withStatus(a, NowFunc()), nil
}

func (svc *Service) CreateAssignment(ctx context.Context, actor user.Actor, na NewAssignment) (Assignment, error) {
	in, ok := actor.Instructor()
	if !ok {
		return Assignment{}, core.ErrForbidden
	}

	exists, err := svc.Classrooms.ClassroomExists(ctx, na.ClassroomID)
	if err != nil {
		return Assignment{}, errors.Wrap(err, "checking classroom")
	}
	if !exists {
		return Assignment{}, core.NewValidationError(ErrClassroomNotFound, core.FieldError{Field: "classroom_id", Error: ErrClassroomNotFound.Error()})
	}

	now := NowFunc().UTC()
	a := Assignment{
		ID:           uuid.NewString(),
		Question:     na.Question,
		Code:         na.Code,
		Course:       na.Course,
		InstructorID: in.ID,
		ClassroomID:  na.ClassroomID,
		Marks:        na.Marks,
		Due:          utcPtr(na.Due),
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	a, err = svc.Repo.CreateAssignment(ctx, a)
	if err != nil {
		return Assignment{}, questionErr(err, "creating assignment")
	}
	return withStatus(a, now), nil
}

func (svc *Service) UpdateAssignment(ctx context.Context, actor user.Actor, id string, ua UpdateAssignment) (Assignment, error) {
	a, err := svc.getAssignment(ctx, actor, id)
	if err != nil {
		return Assignment{}, err
	}
	if !isAuthor(actor, a) {
		return Assignment{}, core.ErrForbidden
	}

	if ua.Question != nil {
		a.Question = *ua.Question
	}
	if ua.Code != nil {
		a.Code = *ua.Code
	}
	if ua.Course != nil {
		a.Course = *ua.Course
	}
	if ua.Marks != nil {
		a.Marks = *ua.Marks
	}
	if ua.Due != nil {
		a.Due = utcPtr(ua.Due)
	}
	if ua.Status != nil {
		a.Status = *ua.Status
	}
	now := NowFunc().UTC()
	a.UpdatedAt = now

	a, err = svc.Repo.UpdateAssignment(ctx, a)
	if err != nil {
		return Assignment{}, questionErr(err, "updating assignment")
	}
	return withStatus(a, now), nil
}

func (svc *Service) DeleteAssignment(ctx context.Context, actor user.Actor, id string) error {
	a, err := svc.getAssignment(ctx, actor, id)
	if err != nil {
		return err
	}
	if !(isAuthor(actor, a) || actor.IsSuperuser()) {
		return core.ErrForbidden
	}
	return errors.Wrap(svc.Repo.DeleteAssignment(ctx, a.ID), "deleting assignment")
}

func questionErr(err error, msg string) error {
	if errors.Cause(err) == ErrQuestionExists {
		return core.NewValidationError(ErrQuestionExists, core.FieldError{Field: "question", Error: ErrQuestionExists.Error()})
	}
	return errors.Wrap(err, msg)
}
