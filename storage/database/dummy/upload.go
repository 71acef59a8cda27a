package dummydb

import (
	"context"
	"time"

	"github.com/sims-edu/sims/core/upload"
)

type uploadRepository struct {
	db *uploadTable
}

var _ upload.Repository = (*uploadRepository)(nil) // interface compliance check

func NewUploadRepository(db *DB) upload.Repository {
	return &uploadRepository{db: db.upload}
}

func (repo *uploadRepository) fileNameTaken(fileName, excludedID string) bool {
	for _, u := range repo.db.table {
		if u.ID != excludedID && u.FileName == fileName {
			return true
		}
	}
	return false
}

func (repo *uploadRepository) CreateUpload(_ context.Context, u upload.Upload) (upload.Upload, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.fileNameTaken(u.FileName, u.ID) {
		return upload.Upload{}, upload.ErrFileNameExists
	}
	repo.db.table[u.ID] = &u
	return u, nil
}

func (repo *uploadRepository) GetUpload(_ context.Context, id string) (upload.Upload, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if u, ok := repo.db.table[id]; ok {
		return *u, nil
	}
	return upload.Upload{}, upload.ErrNotFound
}

func (repo *uploadRepository) UpdateUpload(_ context.Context, u upload.Upload) (upload.Upload, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[u.ID]; !ok {
		return upload.Upload{}, upload.ErrNotFound
	}
	if repo.fileNameTaken(u.FileName, u.ID) {
		return upload.Upload{}, upload.ErrFileNameExists
	}
	repo.db.table[u.ID] = &u
	return u, nil
}

func (repo *uploadRepository) FileNameTaken(_ context.Context, fileName, excludedID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.fileNameTaken(fileName, excludedID), nil
}

func (repo *uploadRepository) QueryUploads(_ context.Context, filter upload.Filter) ([]upload.Upload, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	uploads := make([]upload.Upload, 0)
	for _, u := range repo.db.table {
		if filter.Kind != "" && u.Kind != filter.Kind {
			continue
		}
		if filter.ClassroomID != "" && (u.ClassroomID == nil || *u.ClassroomID != filter.ClassroomID) {
			continue
		}
		if filter.UploadedBy != "" && u.UploadedBy != filter.UploadedBy {
			continue
		}
		if filter.ValidOnly && !u.IsValid() {
			continue
		}
		uploads = append(uploads, *u)
	}
	sortRows(uploads, func(u upload.Upload) timestamps {
		var finished time.Time
		if u.UploadFinishedAt != nil {
			finished = *u.UploadFinishedAt
		}
		return timestamps{id: u.ID, createdAt: u.CreatedAt, updatedAt: u.UpdatedAt, extra: map[string]time.Time{"upload_finished_at": finished}}
	}, filter.Orderings)
	return uploads, nil
}

// PutUpload stores u as is, bypassing every check. Tests use it to set up rows a client could not create.
func (db *DB) PutUpload(u upload.Upload) {
	db.upload.Lock()
	defer db.upload.Unlock()

	db.upload.table[u.ID] = &u
}
