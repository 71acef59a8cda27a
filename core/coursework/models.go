package coursework

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sims-edu/sims/core"
)

type AssignmentStatus string

const (
	StatusPending   AssignmentStatus = "PENDING"
	StatusCompleted AssignmentStatus = "COMPLETED"
	StatusCancelled AssignmentStatus = "CANCELLED"
	StatusExpired   AssignmentStatus = "EXPIRED"
)

type Assignment struct {
	ID           string           `json:"id"`
	Question     string           `json:"question"`
	Code         string           `json:"code"`
	Course       string           `json:"course"`
	InstructorID string           `json:"instructor_id"`
	ClassroomID  string           `json:"classroom_id"`
	Marks        int              `json:"marks"`
	Due          *time.Time       `json:"due"` // UTC
	Status       AssignmentStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"` // UTC
	UpdatedAt    time.Time        `json:"updated_at"` // UTC
}

// IsOpen reports whether work may still be handed in or graded at now.
// The due timestamp itself is already too late.
func (a Assignment) IsOpen(now time.Time) bool {
	return a.Due == nil || now.Before(*a.Due)
}

// CurrentStatus derives the status at now. The stored status only records explicit changes.
func (a Assignment) CurrentStatus(now time.Time) AssignmentStatus {
	switch a.Status {
	case StatusCancelled, StatusCompleted:
		return a.Status
	}
	if !a.IsOpen(now) {
		return StatusExpired
	}
	return StatusPending
}

type NewAssignment struct {
	Question    string     `json:"question" validate:"required,notblank,max=300"`
	Code        string     `json:"code" validate:"max=15"`
	Course      string     `json:"course" validate:"required,notblank,max=50"`
	ClassroomID string     `json:"classroom_id" validate:"required"`
	Marks       int        `json:"marks" validate:"required,gt=0"`
	Due         *time.Time `json:"due"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Question = core.CleanString(na.Question)
	na.Code = core.CleanString(na.Code)
	na.Course = core.CleanString(na.Course)
	na.ClassroomID = core.CleanString(na.ClassroomID)
	return validate.Struct(na)
}

// UpdateAssignment defines what may be changed on an existing Assignment. Nil fields are kept.
type UpdateAssignment struct {
	Question *string           `json:"question" validate:"omitempty,notblank,max=300"`
	Code     *string           `json:"code" validate:"omitempty,max=15"`
	Course   *string           `json:"course" validate:"omitempty,notblank,max=50"`
	Marks    *int              `json:"marks" validate:"omitempty,gt=0"`
	Due      *time.Time        `json:"due"`
	Status   *AssignmentStatus `json:"status" validate:"omitempty,oneof=PENDING COMPLETED CANCELLED"`
}

func (ua *UpdateAssignment) Validate(validate *validator.Validate) error {
	cleanPtr(&ua.Question)
	cleanPtr(&ua.Code)
	cleanPtr(&ua.Course)
	if ua.Status != nil {
		st := AssignmentStatus(strings.ToUpper(core.CleanString(string(*ua.Status))))
		ua.Status = &st
	}
	return validate.Struct(ua)
}

type SubmissionStatus string

const (
	StatusDraft     SubmissionStatus = "DRAFT"
	StatusSubmitted SubmissionStatus = "SUBMITTED"
)

type Submission struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Content      string           `json:"content"`
	Status       SubmissionStatus `json:"status"`
	Score        float64          `json:"score"`
	Remark       *string          `json:"remark"`
	AssignmentID string           `json:"assignment_id"`
	StudentID    string           `json:"student_id"`
	InstructorID string           `json:"instructor_id"`
	ClassroomID  string           `json:"classroom_id"`
	AttachmentID *string          `json:"attachment_id"`
	CreatedAt    time.Time        `json:"created_at"` // UTC
	UpdatedAt    time.Time        `json:"updated_at"` // UTC
}

type NewSubmission struct {
	AssignmentID string           `json:"assignment_id" validate:"required"`
	Title        string           `json:"title" validate:"required,notblank,max=255"`
	Content      string           `json:"content"`
	Status       SubmissionStatus `json:"status" validate:"omitempty,oneof=DRAFT SUBMITTED"`
	AttachmentID *string          `json:"attachment_id" validate:"omitempty,notblank"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.AssignmentID = core.CleanString(ns.AssignmentID)
	ns.Title = core.CleanString(ns.Title)
	ns.Status = SubmissionStatus(strings.ToUpper(core.CleanString(string(ns.Status))))
	if ns.Status == "" {
		ns.Status = StatusSubmitted
	}
	cleanPtr(&ns.AttachmentID)
	return validate.Struct(ns)
}

// PatchSubmission carries both the student's edits and the instructor's grade.
// Which half applies depends on the actor.
type PatchSubmission struct {
	Title        *string           `json:"title" validate:"omitempty,notblank,max=255"`
	Content      *string           `json:"content"`
	Status       *SubmissionStatus `json:"status" validate:"omitempty,oneof=DRAFT SUBMITTED"`
	AttachmentID *string           `json:"attachment_id"`

	Score  *float64 `json:"score" validate:"omitempty,gte=0"`
	Remark *string  `json:"remark" validate:"omitempty,max=255"`
}

func (ps *PatchSubmission) Validate(validate *validator.Validate) error {
	cleanPtr(&ps.Title)
	cleanPtr(&ps.Remark)
	if ps.Status != nil {
		st := SubmissionStatus(strings.ToUpper(core.CleanString(string(*ps.Status))))
		ps.Status = &st
	}
	return validate.Struct(ps)
}

func (ps PatchSubmission) hasStudentFields() bool {
	return ps.Title != nil || ps.Content != nil || ps.Status != nil || ps.AttachmentID != nil
}

func (ps PatchSubmission) hasGradeFields() bool {
	return ps.Score != nil || ps.Remark != nil
}

type AssignmentFilter struct {
	InstructorID string
	ClassroomID  string
	Orderings    []core.DBOrdering
}

type SubmissionFilter struct {
	InstructorID string
	StudentID    string
	AssignmentID string
	Orderings    []core.DBOrdering
}

func cleanPtr(s **string) {
	if *s != nil {
		v := core.CleanString(**s)
		*s = &v
	}
}
