package coursework

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/metrics"
	"github.com/sims-edu/sims/core/user"
)

const gradedTemplate = "submission_graded"

// submissionScope narrows a query to what actor may see.
func submissionScope(actor user.Actor) SubmissionFilter {
	switch p := actor.Profile.(type) {
	case user.Instructor:
		return SubmissionFilter{InstructorID: p.ID}
	case user.Student:
		return SubmissionFilter{StudentID: p.ID}
	}
	return SubmissionFilter{}
}

func submissionVisible(actor user.Actor, s Submission) bool {
	scope := submissionScope(actor)
	return (scope.InstructorID == "" || scope.InstructorID == s.InstructorID) &&
		(scope.StudentID == "" || scope.StudentID == s.StudentID)
}

func (svc *Service) QuerySubmissions(ctx context.Context, actor user.Actor, assignmentID string, orderings []core.DBOrdering) ([]Submission, error) {
	filter := submissionScope(actor)
	filter.Orderings = core.CleanOrderings(orderings, submissionOrderingFields...)
	if assignmentID != "" {
		if !validID(assignmentID) {
			return []Submission{}, nil
		}
		filter.AssignmentID = assignmentID
	}

	submissions, err := svc.Repo.QuerySubmissions(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	return submissions, nil
}

// getSubmission returns a submission in actor's scope together with its assignment.
func (svc *Service) getSubmission(ctx context.Context, actor user.Actor, id string) (Submission, Assignment, error) {
	if !validID(id) {
		return Submission{}, Assignment{}, ErrSubmissionNotFound
	}
	s, err := svc.Repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, Assignment{}, err
	}
	if !submissionVisible(actor, s) {
		return Submission{}, Assignment{}, ErrSubmissionNotFound
	}
	a, err := svc.Repo.GetAssignment(ctx, s.AssignmentID)
	if err != nil {
		if errors.Cause(err) == ErrAssignmentNotFound {
			return Submission{}, Assignment{}, ErrSubmissionNotFound
		}
		return Submission{}, Assignment{}, errors.Wrap(err, "finding assignment")
	}
	return s, a, nil
}

func (svc *Service) GetSubmission(ctx context.Context, actor user.Actor, id string) (Submission, error) {
	s, _, err := svc.getSubmission(ctx, actor, id)
	return s, err
}

// CreateSubmission hands in work for an assignment of the student's classroom, strictly before it is due.
// Instructor and classroom are copied from the assignment.
func (svc *Service) CreateSubmission(ctx context.Context, actor user.Actor, ns NewSubmission) (Submission, error) {
	st, ok := actor.Student()
	if !ok {
		return Submission{}, core.ErrForbidden
	}
	if !validID(ns.AssignmentID) {
		return Submission{}, ErrAssignmentNotFound
	}
	a, err := svc.Repo.GetAssignment(ctx, ns.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	if a.ClassroomID != st.ClassroomID {
		return Submission{}, ErrAssignmentNotFound
	}

	now := NowFunc().UTC()
	if err = checkOpen(a, now); err != nil {
		return Submission{}, err
	}
	if ns.AttachmentID != nil {
		if err = svc.checkAttachment(ctx, actor, *ns.AttachmentID); err != nil {
			return Submission{}, err
		}
	}

	s := Submission{
		ID:           uuid.NewString(),
		Title:        ns.Title,
		Content:      ns.Content,
		Status:       ns.Status,
		AssignmentID: a.ID,
		StudentID:    st.ID,
		InstructorID: a.InstructorID,
		ClassroomID:  a.ClassroomID,
		AttachmentID: ns.AttachmentID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = svc.checkDuplicate(ctx, s); err != nil {
		return Submission{}, err
	}
	s, err = svc.Repo.CreateSubmission(ctx, s)
	if err != nil {
		return Submission{}, duplicateErr(err, "creating submission")
	}
	return s, nil
}

// PatchSubmission lets the owning student edit a draft, or the grading instructor grade
// submitted work. Both only while the assignment is open.
func (svc *Service) PatchSubmission(ctx context.Context, actor user.Actor, id string, ps PatchSubmission) (Submission, error) {
	s, a, err := svc.getSubmission(ctx, actor, id)
	if err != nil {
		return Submission{}, err
	}

	switch p := actor.Profile.(type) {
	case user.Student:
		return svc.edit(ctx, actor, p, s, a, ps)
	case user.Instructor:
		return svc.grade(ctx, p, s, a, ps)
	}
	return Submission{}, core.ErrForbidden
}

func (svc *Service) edit(ctx context.Context, actor user.Actor, st user.Student, s Submission, a Assignment, ps PatchSubmission) (Submission, error) {
	if ps.hasGradeFields() || s.StudentID != st.ID {
		return Submission{}, core.ErrForbidden
	}
	if s.Status != StatusDraft {
		return Submission{}, core.NewValidationError(ErrSubmissionLocked, core.FieldError{Field: "status", Error: ErrSubmissionLocked.Error()})
	}
	now := NowFunc().UTC()
	if err := checkOpen(a, now); err != nil {
		return Submission{}, err
	}

	if ps.Title != nil {
		s.Title = *ps.Title
	}
	if ps.Content != nil {
		s.Content = *ps.Content
	}
	if ps.Status != nil {
		s.Status = *ps.Status
	}
	if ps.AttachmentID != nil {
		if *ps.AttachmentID == "" {
			s.AttachmentID = nil
		} else {
			if err := svc.checkAttachment(ctx, actor, *ps.AttachmentID); err != nil {
				return Submission{}, err
			}
			s.AttachmentID = ps.AttachmentID
		}
	}
	s.UpdatedAt = now

	if err := svc.checkDuplicate(ctx, s); err != nil {
		return Submission{}, err
	}
	s, err := svc.Repo.UpdateSubmission(ctx, s)
	if err != nil {
		return Submission{}, duplicateErr(err, "updating submission")
	}
	return s, nil
}

func (svc *Service) grade(ctx context.Context, in user.Instructor, s Submission, a Assignment, ps PatchSubmission) (Submission, error) {
	if ps.hasStudentFields() || s.InstructorID != in.ID {
		return Submission{}, core.ErrForbidden
	}
	if !ps.hasGradeFields() {
		return Submission{}, core.NewValidationError(ErrNothingToGrade, core.FieldError{Field: "score", Error: ErrNothingToGrade.Error()})
	}
	if s.Status != StatusSubmitted {
		return Submission{}, core.NewValidationError(ErrNotSubmitted, core.FieldError{Field: "status", Error: ErrNotSubmitted.Error()})
	}
	now := NowFunc().UTC()
	if !a.IsOpen(now) {
		return Submission{}, core.NewValidationError(ErrPastDue, core.FieldError{Field: "assignment_id", Error: ErrPastDue.Error()})
	}
	if ps.Score != nil && *ps.Score > float64(a.Marks) {
		return Submission{}, core.NewValidationError(ErrScoreAboveMarks, core.FieldError{Field: "score", Error: ErrScoreAboveMarks.Error()})
	}

	if ps.Score != nil {
		s.Score = *ps.Score
	}
	if ps.Remark != nil {
		if *ps.Remark == "" {
			s.Remark = nil
		} else {
			s.Remark = ps.Remark
		}
	}
	s.UpdatedAt = now

	s, err := svc.Repo.UpdateSubmission(ctx, s)
	if err != nil {
		return Submission{}, errors.Wrap(err, "grading submission")
	}
	metrics.SubmissionScores.WithLabelValues(a.Course).Observe(s.Score / float64(a.Marks))
	svc.notifyGraded(ctx, s, a)
	return s, nil
}

// DeleteSubmission lets the owning student withdraw a draft while the assignment is open.
func (svc *Service) DeleteSubmission(ctx context.Context, actor user.Actor, id string) error {
	s, a, err := svc.getSubmission(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.IsSuperuser() {
		st, ok := actor.Student()
		if !ok || st.ID != s.StudentID {
			return core.ErrForbidden
		}
		if s.Status != StatusDraft {
			return core.NewValidationError(ErrSubmissionLocked, core.FieldError{Field: "status", Error: ErrSubmissionLocked.Error()})
		}
		if !a.IsOpen(NowFunc().UTC()) {
			return core.NewValidationError(ErrPastDue, core.FieldError{Field: "assignment_id", Error: ErrPastDue.Error()})
		}
	}
	return errors.Wrap(svc.Repo.DeleteSubmission(ctx, s.ID), "deleting submission")
}

func checkOpen(a Assignment, now time.Time) error {
	switch a.Status {
	case StatusCancelled, StatusCompleted:
		return core.NewValidationError(ErrAssignmentClosed, core.FieldError{Field: "assignment_id", Error: ErrAssignmentClosed.Error()})
	}
	if !a.IsOpen(now) {
		return core.NewValidationError(ErrPastDue, core.FieldError{Field: "assignment_id", Error: ErrPastDue.Error()})
	}
	return nil
}

func (svc *Service) checkAttachment(ctx context.Context, actor user.Actor, id string) error {
	if _, err := svc.Attachments.GetAttachment(ctx, actor.User.ID, id); err != nil {
		if _, ok := errors.Cause(err).(*core.NotFoundError); ok {
			return core.NewValidationError(ErrAttachmentNotFound, core.FieldError{Field: "attachment_id", Error: ErrAttachmentNotFound.Error()})
		}
		return errors.Wrap(err, "finding attachment")
	}
	return nil
}

// checkDuplicate rejects a second SUBMITTED copy of the same content for the same assignment.
func (svc *Service) checkDuplicate(ctx context.Context, s Submission) error {
	if s.Status != StatusSubmitted {
		return nil
	}
	exists, err := svc.Repo.SubmittedContentExists(ctx, s.StudentID, s.AssignmentID, s.Content, s.ID)
	if err != nil {
		return errors.Wrap(err, "checking duplicate submission")
	}
	if exists {
		return core.NewValidationError(ErrDuplicateSubmission, core.FieldError{Field: "content", Error: ErrDuplicateSubmission.Error()})
	}
	return nil
}

func duplicateErr(err error, msg string) error {
	if errors.Cause(err) == ErrDuplicateSubmission {
		return core.NewValidationError(ErrDuplicateSubmission, core.FieldError{Field: "content", Error: ErrDuplicateSubmission.Error()})
	}
	return errors.Wrap(err, msg)
}

type gradedData struct {
	StudentName  string
	Title        string
	Course       string
	Score        float64
	Marks        int
	Remark       string
	SubmissionID string
}

func (svc *Service) notifyGraded(ctx context.Context, s Submission, a Assignment) {
	usr, err := svc.Students.GetStudentUser(ctx, s.StudentID)
	if err != nil {
		svc.Logger.Error(fmt.Sprintf("finding graded student: %v", err), err)
		return
	}
	data := gradedData{
		StudentName:  usr.FullName(),
		Title:        s.Title,
		Course:       a.Course,
		Score:        s.Score,
		Marks:        a.Marks,
		SubmissionID: s.ID,
	}
	if data.StudentName == "" {
		data.StudentName = usr.Email
	}
	if s.Remark != nil {
		data.Remark = *s.Remark
	}
	svc.MailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      "Your submission has been graded",
		TemplateName: gradedTemplate,
		TemplateData: data,
	})
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
