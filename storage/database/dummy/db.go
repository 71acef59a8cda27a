package dummydb

import (
	"sort"
	"sync"
	"time"

	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/classroom"
	"github.com/sims-edu/sims/core/coursework"
	"github.com/sims-edu/sims/core/upload"
	"github.com/sims-edu/sims/core/user"
)

// DB is an in-memory store for tests & local runs. Each table has its own lock.
type (
	DB struct {
		user       *userTable
		classroom  *classroomTable
		coursework *courseworkTable
		upload     *uploadTable
	}

	userTable struct {
		sync.RWMutex
		users       map[string]*user.User
		students    map[string]*user.Student
		instructors map[string]*user.Instructor
	}

	classroomTable struct {
		sync.RWMutex
		table map[string]*classroom.Classroom
	}

	courseworkTable struct {
		sync.RWMutex
		assignments map[string]*coursework.Assignment
		submissions map[string]*coursework.Submission
	}

	uploadTable struct {
		sync.RWMutex
		table map[string]*upload.Upload
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{
			users:       make(map[string]*user.User),
			students:    make(map[string]*user.Student),
			instructors: make(map[string]*user.Instructor),
		},
		classroom:  &classroomTable{table: make(map[string]*classroom.Classroom)},
		coursework: &courseworkTable{assignments: make(map[string]*coursework.Assignment), submissions: make(map[string]*coursework.Submission)},
		upload:     &uploadTable{table: make(map[string]*upload.Upload)},
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.users = make(map[string]*user.User)
	db.user.students = make(map[string]*user.Student)
	db.user.instructors = make(map[string]*user.Instructor)
	db.user.Unlock()

	db.classroom.Lock()
	db.classroom.table = make(map[string]*classroom.Classroom)
	db.classroom.Unlock()

	db.coursework.Lock()
	db.coursework.assignments = make(map[string]*coursework.Assignment)
	db.coursework.submissions = make(map[string]*coursework.Submission)
	db.coursework.Unlock()

	db.upload.Lock()
	db.upload.table = make(map[string]*upload.Upload)
	db.upload.Unlock()
}

type timestamps struct {
	id        string
	createdAt time.Time
	updatedAt time.Time
	extra     map[string]time.Time
}

// sortRows sorts rows in place following orderings.
// Only time columns and id are supported, which is all the services ask for.
func sortRows[T any](rows []T, stamps func(T) timestamps, orderings []core.DBOrdering) {
	if len(orderings) == 0 {
		orderings = core.DefaultOrdering
	}
	sort.SliceStable(rows, func(a, b int) bool {
		sa, sb := stamps(rows[a]), stamps(rows[b])
		for _, ord := range orderings {
			var cmp int
			switch ord.Field {
			case "id":
				cmp = compareStrings(sa.id, sb.id)
			case "created_at":
				cmp = compareTimes(sa.createdAt, sb.createdAt)
			case "updated_at":
				cmp = compareTimes(sa.updatedAt, sb.updatedAt)
			default:
				cmp = compareTimes(sa.extra[ord.Field], sb.extra[ord.Field])
			}
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
