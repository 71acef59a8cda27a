package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/coursework"
)

const (
	assignmentColumns = `id, question, code, course, instructor_id, classroom_id, marks, due, status, created_at, updated_at`
	submissionColumns = `id, title, content, status, score, remark, assignment_id, student_id, instructor_id, classroom_id, attachment_id, created_at, updated_at`
)

type assignmentRow struct {
	ID           string      `db:"id"`
	Question     string      `db:"question"`
	Code         null.String `db:"code"`
	Course       string      `db:"course"`
	InstructorID string      `db:"instructor_id"`
	ClassroomID  string      `db:"classroom_id"`
	Marks        int         `db:"marks"`
	Due          null.Time   `db:"due"`
	Status       string      `db:"status"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func toAssignmentRow(a coursework.Assignment) assignmentRow {
	return assignmentRow{
		ID:           a.ID,
		Question:     a.Question,
		Code:         null.NewString(a.Code, a.Code != ""),
		Course:       a.Course,
		InstructorID: a.InstructorID,
		ClassroomID:  a.ClassroomID,
		Marks:        a.Marks,
		Due:          null.TimeFromPtr(a.Due),
		Status:       string(a.Status),
		CreatedAt:    a.CreatedAt.UTC(),
		UpdatedAt:    a.UpdatedAt.UTC(),
	}
}

func (r assignmentRow) toAssignment() coursework.Assignment {
	return coursework.Assignment{
		ID:           r.ID,
		Question:     r.Question,
		Code:         r.Code.String,
		Course:       r.Course,
		InstructorID: r.InstructorID,
		ClassroomID:  r.ClassroomID,
		Marks:        r.Marks,
		Due:          utcPtr(r.Due),
		Status:       coursework.AssignmentStatus(r.Status),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type submissionRow struct {
	ID           string      `db:"id"`
	Title        string      `db:"title"`
	Content      string      `db:"content"`
	Status       string      `db:"status"`
	Score        float64     `db:"score"`
	Remark       null.String `db:"remark"`
	AssignmentID string      `db:"assignment_id"`
	StudentID    string      `db:"student_id"`
	InstructorID string      `db:"instructor_id"`
	ClassroomID  string      `db:"classroom_id"`
	AttachmentID null.String `db:"attachment_id"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func toSubmissionRow(s coursework.Submission) submissionRow {
	return submissionRow{
		ID:           s.ID,
		Title:        s.Title,
		Content:      s.Content,
		Status:       string(s.Status),
		Score:        s.Score,
		Remark:       null.StringFromPtr(s.Remark),
		AssignmentID: s.AssignmentID,
		StudentID:    s.StudentID,
		InstructorID: s.InstructorID,
		ClassroomID:  s.ClassroomID,
		AttachmentID: null.StringFromPtr(s.AttachmentID),
		CreatedAt:    s.CreatedAt.UTC(),
		UpdatedAt:    s.UpdatedAt.UTC(),
	}
}

func (r submissionRow) toSubmission() coursework.Submission {
	return coursework.Submission{
		ID:           r.ID,
		Title:        r.Title,
		Content:      r.Content,
		Status:       coursework.SubmissionStatus(r.Status),
		Score:        r.Score,
		Remark:       r.Remark.Ptr(),
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		InstructorID: r.InstructorID,
		ClassroomID:  r.ClassroomID,
		AttachmentID: r.AttachmentID.Ptr(),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type courseworkRepository struct {
	db *sqlx.DB
}

var _ coursework.Repository = (*courseworkRepository)(nil) // interface compliance check

func NewCourseworkRepository(db *sqlx.DB) coursework.Repository {
	return &courseworkRepository{db: db}
}

func questionErr(err error, msg string) error {
	if c, ok := uniqueConstraint(err); ok && c == "assignments_question_key" {
		return coursework.ErrQuestionExists
	}
	return errors.Wrap(err, msg)
}

func submissionErr(err error, msg string) error {
	if c, ok := uniqueConstraint(err); ok && c == "submissions_submitted_content_key" {
		return coursework.ErrDuplicateSubmission
	}
	return errors.Wrap(err, msg)
}

func (repo *courseworkRepository) CreateAssignment(ctx context.Context, a coursework.Assignment) (coursework.Assignment, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO assignments (`+assignmentColumns+`)
		VALUES (:id, :question, :code, :course, :instructor_id, :classroom_id, :marks, :due, :status, :created_at, :updated_at)`,
		toAssignmentRow(a))
	if err != nil {
		return coursework.Assignment{}, questionErr(err, "inserting assignment")
	}
	return a, nil
}

func (repo *courseworkRepository) GetAssignment(ctx context.Context, id string) (coursework.Assignment, error) {
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id); err != nil {
		return coursework.Assignment{}, trapNoRowsErr(err, coursework.ErrAssignmentNotFound, "finding assignment")
	}
	return row.toAssignment(), nil
}

func (repo *courseworkRepository) UpdateAssignment(ctx context.Context, a coursework.Assignment) (coursework.Assignment, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE assignments SET question = :question, code = :code, course = :course, marks = :marks, due = :due,
			status = :status, updated_at = :updated_at
		WHERE id = :id`,
		toAssignmentRow(a))
	if err != nil {
		return coursework.Assignment{}, questionErr(err, "updating assignment")
	}
	if err = checkAffected(res, coursework.ErrAssignmentNotFound, "updating assignment"); err != nil {
		return coursework.Assignment{}, err
	}
	return a, nil
}

func (repo *courseworkRepository) DeleteAssignment(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return checkAffected(res, coursework.ErrAssignmentNotFound, "deleting assignment")
}

func (repo *courseworkRepository) QueryAssignments(ctx context.Context, filter coursework.AssignmentFilter) ([]coursework.Assignment, error) {
	var where conditions
	if filter.InstructorID != "" {
		where.add("instructor_id = ?", filter.InstructorID)
	}
	if filter.ClassroomID != "" {
		where.add("classroom_id = ?", filter.ClassroomID)
	}

	var rows []assignmentRow
	q := where.query(`SELECT `+assignmentColumns+` FROM assignments`, orderBy(filter.Orderings))
	if err := repo.db.SelectContext(ctx, &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	assignments := make([]coursework.Assignment, 0, len(rows))
	for _, r := range rows {
		assignments = append(assignments, r.toAssignment())
	}
	return assignments, nil
}

func (repo *courseworkRepository) CreateSubmission(ctx context.Context, s coursework.Submission) (coursework.Submission, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO submissions (`+submissionColumns+`)
		VALUES (:id, :title, :content, :status, :score, :remark, :assignment_id, :student_id, :instructor_id, :classroom_id,
			:attachment_id, :created_at, :updated_at)`,
		toSubmissionRow(s))
	if err != nil {
		return coursework.Submission{}, submissionErr(err, "inserting submission")
	}
	return s, nil
}

func (repo *courseworkRepository) GetSubmission(ctx context.Context, id string) (coursework.Submission, error) {
	var row submissionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id); err != nil {
		return coursework.Submission{}, trapNoRowsErr(err, coursework.ErrSubmissionNotFound, "finding submission")
	}
	return row.toSubmission(), nil
}

func (repo *courseworkRepository) UpdateSubmission(ctx context.Context, s coursework.Submission) (coursework.Submission, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE submissions SET title = :title, content = :content, status = :status, score = :score, remark = :remark,
			attachment_id = :attachment_id, updated_at = :updated_at
		WHERE id = :id`,
		toSubmissionRow(s))
	if err != nil {
		return coursework.Submission{}, submissionErr(err, "updating submission")
	}
	if err = checkAffected(res, coursework.ErrSubmissionNotFound, "updating submission"); err != nil {
		return coursework.Submission{}, err
	}
	return s, nil
}

func (repo *courseworkRepository) DeleteSubmission(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting submission")
	}
	return checkAffected(res, coursework.ErrSubmissionNotFound, "deleting submission")
}

func (repo *courseworkRepository) QuerySubmissions(ctx context.Context, filter coursework.SubmissionFilter) ([]coursework.Submission, error) {
	var where conditions
	if filter.InstructorID != "" {
		where.add("instructor_id = ?", filter.InstructorID)
	}
	if filter.StudentID != "" {
		where.add("student_id = ?", filter.StudentID)
	}
	if filter.AssignmentID != "" {
		where.add("assignment_id = ?", filter.AssignmentID)
	}

	var rows []submissionRow
	q := where.query(`SELECT `+submissionColumns+` FROM submissions`, orderBy(filter.Orderings))
	if err := repo.db.SelectContext(ctx, &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	submissions := make([]coursework.Submission, 0, len(rows))
	for _, r := range rows {
		submissions = append(submissions, r.toSubmission())
	}
	return submissions, nil
}

func (repo *courseworkRepository) SubmittedContentExists(ctx context.Context, studentID, assignmentID, content, excludedID string) (bool, error) {
	var where conditions
	where.add("student_id = ?", studentID)
	where.add("assignment_id = ?", assignmentID)
	where.add("md5(content) = md5(?)", content)
	where.addRaw("status = 'SUBMITTED'")
	if excludedID != "" {
		where.add("id <> ?", excludedID)
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, where.query(`SELECT EXISTS (SELECT 1 FROM submissions`, `)`), where.args...); err != nil {
		return false, errors.Wrap(err, "checking submitted content")
	}
	return exists, nil
}

// orderBy expects orderings already whitelisted by the services.
func orderBy(orderings []core.DBOrdering) string {
	if len(orderings) == 0 {
		orderings = core.DefaultOrdering
	}
	return " ORDER BY " + core.OrderingClause(orderings)
}
