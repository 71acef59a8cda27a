package coursework

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/upload"
	"github.com/sims-edu/sims/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrAssignmentNotFound  = core.NewNotFoundError("assignment")
	ErrSubmissionNotFound  = core.NewNotFoundError("submission")
	ErrQuestionExists      = errors.New("This assignment already exists!")
	ErrDuplicateSubmission = errors.New("this work has already been submitted")
	ErrPastDue             = errors.New("the due date for this assignment has passed")
	ErrAssignmentClosed    = errors.New("this assignment no longer accepts submissions")
	ErrSubmissionLocked    = errors.New("submitted work can no longer be edited")
	ErrNotSubmitted        = errors.New("only submitted work can be graded")
	ErrScoreAboveMarks     = errors.New("score cannot exceed the assignment marks")
	ErrNothingToGrade      = errors.New("a score or remark is required")
	ErrClassroomNotFound   = errors.New("classroom not found")
	ErrAttachmentNotFound  = errors.New("attachment not found or not uploaded yet")

	assignmentOrderingFields = []string{"created_at", "updated_at", "due"}
	submissionOrderingFields = []string{"created_at", "updated_at"}
)

type (
	Repository interface {
		// CreateAssignment returns ErrQuestionExists when the question is taken.
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		// UpdateAssignment returns ErrQuestionExists when the question is taken.
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error
		QueryAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)

		// CreateSubmission returns ErrDuplicateSubmission when the same content was already submitted.
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		// UpdateSubmission returns ErrDuplicateSubmission when the same content was already submitted.
		UpdateSubmission(ctx context.Context, s Submission) (Submission, error)
		DeleteSubmission(ctx context.Context, id string) error
		QuerySubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error)
		SubmittedContentExists(ctx context.Context, studentID, assignmentID, content, excludedID string) (bool, error)
	}

	ClassroomChecker interface {
		ClassroomExists(ctx context.Context, id string) (bool, error)
	}

	AttachmentFinder interface {
		GetAttachment(ctx context.Context, userID, id string) (upload.Upload, error)
	}

	StudentFinder interface {
		GetStudentUser(ctx context.Context, studentID string) (user.User, error)
	}

	Deps struct {
		Repo        Repository
		Classrooms  ClassroomChecker
		Attachments AttachmentFinder
		Students    StudentFinder
		MailSvc     core.EmailService
		Logger      core.Logger
	}

	Service struct {
		Deps
	}
)

func NewService(deps Deps) *Service {
	return &Service{Deps: deps}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func withStatus(a Assignment, now time.Time) Assignment {
	a.Status = a.CurrentStatus(now)
	return a
}
