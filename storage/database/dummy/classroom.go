package dummydb

import (
	"context"
	"sort"

	"github.com/sims-edu/sims/core/classroom"
)

type classroomRepository struct {
	db *classroomTable
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *DB) classroom.Repository {
	return &classroomRepository{db: db.classroom}
}

func (repo *classroomRepository) CreateClassroom(_ context.Context, cr classroom.Classroom) (classroom.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.db.table {
		if c.Name == cr.Name {
			return classroom.Classroom{}, classroom.ErrNameExists
		}
	}
	repo.db.table[cr.ID] = &cr
	return cr, nil
}

func (repo *classroomRepository) GetClassroomByID(_ context.Context, id string) (classroom.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cr, ok := repo.db.table[id]; ok {
		return *cr, nil
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) GetClassroomByName(_ context.Context, name string) (classroom.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, cr := range repo.db.table {
		if cr.Name == name {
			return *cr, nil
		}
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) QueryClassrooms(_ context.Context) ([]classroom.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classrooms := make([]classroom.Classroom, 0, len(repo.db.table))
	for _, cr := range repo.db.table {
		classrooms = append(classrooms, *cr)
	}
	sort.Slice(classrooms, func(i, j int) bool { return classrooms[i].Name < classrooms[j].Name })
	return classrooms, nil
}
