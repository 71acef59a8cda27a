package dummydb

import (
	"context"
	"time"

	"github.com/sims-edu/sims/core/coursework"
)

type courseworkRepository struct {
	db *courseworkTable
}

var _ coursework.Repository = (*courseworkRepository)(nil) // interface compliance check

func NewCourseworkRepository(db *DB) coursework.Repository {
	return &courseworkRepository{db: db.coursework}
}

func (repo *courseworkRepository) questionTaken(a coursework.Assignment) bool {
	for _, other := range repo.db.assignments {
		if other.ID != a.ID && other.Question == a.Question {
			return true
		}
	}
	return false
}

func (repo *courseworkRepository) CreateAssignment(_ context.Context, a coursework.Assignment) (coursework.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.questionTaken(a) {
		return coursework.Assignment{}, coursework.ErrQuestionExists
	}
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *courseworkRepository) GetAssignment(_ context.Context, id string) (coursework.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return coursework.Assignment{}, coursework.ErrAssignmentNotFound
}

func (repo *courseworkRepository) UpdateAssignment(_ context.Context, a coursework.Assignment) (coursework.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[a.ID]; !ok {
		return coursework.Assignment{}, coursework.ErrAssignmentNotFound
	}
	if repo.questionTaken(a) {
		return coursework.Assignment{}, coursework.ErrQuestionExists
	}
	repo.db.assignments[a.ID] = &a
	return a, nil
}

// DeleteAssignment cascades to the assignment's submissions.
func (repo *courseworkRepository) DeleteAssignment(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[id]; !ok {
		return coursework.ErrAssignmentNotFound
	}
	delete(repo.db.assignments, id)
	for sid, s := range repo.db.submissions {
		if s.AssignmentID == id {
			delete(repo.db.submissions, sid)
		}
	}
	return nil
}

func (repo *courseworkRepository) QueryAssignments(_ context.Context, filter coursework.AssignmentFilter) ([]coursework.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	assignments := make([]coursework.Assignment, 0)
	for _, a := range repo.db.assignments {
		if filter.InstructorID != "" && a.InstructorID != filter.InstructorID {
			continue
		}
		if filter.ClassroomID != "" && a.ClassroomID != filter.ClassroomID {
			continue
		}
		assignments = append(assignments, *a)
	}
	sortRows(assignments, func(a coursework.Assignment) timestamps {
		var due time.Time
		if a.Due != nil {
			due = *a.Due
		}
		return timestamps{id: a.ID, createdAt: a.CreatedAt, updatedAt: a.UpdatedAt, extra: map[string]time.Time{"due": due}}
	}, filter.Orderings)
	return assignments, nil
}

func (repo *courseworkRepository) contentSubmitted(studentID, assignmentID, content, excludedID string) bool {
	for _, s := range repo.db.submissions {
		if s.ID != excludedID && s.Status == coursework.StatusSubmitted &&
			s.StudentID == studentID && s.AssignmentID == assignmentID && s.Content == content {
			return true
		}
	}
	return false
}

func (repo *courseworkRepository) CreateSubmission(_ context.Context, s coursework.Submission) (coursework.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if s.Status == coursework.StatusSubmitted && repo.contentSubmitted(s.StudentID, s.AssignmentID, s.Content, s.ID) {
		return coursework.Submission{}, coursework.ErrDuplicateSubmission
	}
	repo.db.submissions[s.ID] = &s
	return s, nil
}

func (repo *courseworkRepository) GetSubmission(_ context.Context, id string) (coursework.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.submissions[id]; ok {
		return *s, nil
	}
	return coursework.Submission{}, coursework.ErrSubmissionNotFound
}

func (repo *courseworkRepository) UpdateSubmission(_ context.Context, s coursework.Submission) (coursework.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.submissions[s.ID]; !ok {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	if s.Status == coursework.StatusSubmitted && repo.contentSubmitted(s.StudentID, s.AssignmentID, s.Content, s.ID) {
		return coursework.Submission{}, coursework.ErrDuplicateSubmission
	}
	repo.db.submissions[s.ID] = &s
	return s, nil
}

func (repo *courseworkRepository) DeleteSubmission(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.submissions[id]; !ok {
		return coursework.ErrSubmissionNotFound
	}
	delete(repo.db.submissions, id)
	return nil
}

func (repo *courseworkRepository) QuerySubmissions(_ context.Context, filter coursework.SubmissionFilter) ([]coursework.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	submissions := make([]coursework.Submission, 0)
	for _, s := range repo.db.submissions {
		if filter.InstructorID != "" && s.InstructorID != filter.InstructorID {
			continue
		}
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		if filter.AssignmentID != "" && s.AssignmentID != filter.AssignmentID {
			continue
		}
		submissions = append(submissions, *s)
	}
	sortRows(submissions, func(s coursework.Submission) timestamps {
		return timestamps{id: s.ID, createdAt: s.CreatedAt, updatedAt: s.UpdatedAt}
	}, filter.Orderings)
	return submissions, nil
}

func (repo *courseworkRepository) SubmittedContentExists(_ context.Context, studentID, assignmentID, content, excludedID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.contentSubmitted(studentID, assignmentID, content, excludedID), nil
}
