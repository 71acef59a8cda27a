package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sims-edu/sims/core/upload"
)

const uploadColumns = `id, kind, original_file_name, file_name, file_type, uploaded_by, classroom_id, upload_finished_at, created_at, updated_at`

type uploadRow struct {
	ID               string      `db:"id"`
	Kind             string      `db:"kind"`
	OriginalFileName string      `db:"original_file_name"`
	FileName         string      `db:"file_name"`
	FileType         string      `db:"file_type"`
	UploadedBy       string      `db:"uploaded_by"`
	ClassroomID      null.String `db:"classroom_id"`
	UploadFinishedAt null.Time   `db:"upload_finished_at"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func toUploadRow(u upload.Upload) uploadRow {
	return uploadRow{
		ID:               u.ID,
		Kind:             string(u.Kind),
		OriginalFileName: u.OriginalFileName,
		FileName:         u.FileName,
		FileType:         u.FileType,
		UploadedBy:       u.UploadedBy,
		ClassroomID:      null.StringFromPtr(u.ClassroomID),
		UploadFinishedAt: null.TimeFromPtr(u.UploadFinishedAt),
		CreatedAt:        u.CreatedAt.UTC(),
		UpdatedAt:        u.UpdatedAt.UTC(),
	}
}

func (r uploadRow) toUpload() upload.Upload {
	return upload.Upload{
		ID:               r.ID,
		Kind:             upload.Kind(r.Kind),
		OriginalFileName: r.OriginalFileName,
		FileName:         r.FileName,
		FileType:         r.FileType,
		UploadedBy:       r.UploadedBy,
		ClassroomID:      r.ClassroomID.Ptr(),
		UploadFinishedAt: utcPtr(r.UploadFinishedAt),
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
}

type uploadRepository struct {
	db *sqlx.DB
}

var _ upload.Repository = (*uploadRepository)(nil) // interface compliance check

func NewUploadRepository(db *sqlx.DB) upload.Repository {
	return &uploadRepository{db: db}
}

func fileNameErr(err error, msg string) error {
	if c, ok := uniqueConstraint(err); ok && c == "uploads_file_name_key" {
		return upload.ErrFileNameExists
	}
	return errors.Wrap(err, msg)
}

func (repo *uploadRepository) CreateUpload(ctx context.Context, u upload.Upload) (upload.Upload, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO uploads (`+uploadColumns+`)
		VALUES (:id, :kind, :original_file_name, :file_name, :file_type, :uploaded_by, :classroom_id, :upload_finished_at,
			:created_at, :updated_at)`,
		toUploadRow(u))
	if err != nil {
		return upload.Upload{}, fileNameErr(err, "inserting upload")
	}
	return u, nil
}

func (repo *uploadRepository) GetUpload(ctx context.Context, id string) (upload.Upload, error) {
	var row uploadRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+uploadColumns+` FROM uploads WHERE id = $1`, id); err != nil {
		return upload.Upload{}, trapNoRowsErr(err, upload.ErrNotFound, "finding upload")
	}
	return row.toUpload(), nil
}

func (repo *uploadRepository) UpdateUpload(ctx context.Context, u upload.Upload) (upload.Upload, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE uploads SET original_file_name = :original_file_name, file_name = :file_name, file_type = :file_type,
			classroom_id = :classroom_id, upload_finished_at = :upload_finished_at, updated_at = :updated_at
		WHERE id = :id`,
		toUploadRow(u))
	if err != nil {
		return upload.Upload{}, fileNameErr(err, "updating upload")
	}
	if err = checkAffected(res, upload.ErrNotFound, "updating upload"); err != nil {
		return upload.Upload{}, err
	}
	return u, nil
}

func (repo *uploadRepository) FileNameTaken(ctx context.Context, fileName, excludedID string) (bool, error) {
	var where conditions
	where.add("file_name = ?", fileName)
	if excludedID != "" {
		where.add("id <> ?", excludedID)
	}

	var taken bool
	if err := repo.db.GetContext(ctx, &taken, where.query(`SELECT EXISTS (SELECT 1 FROM uploads`, `)`), where.args...); err != nil {
		return false, errors.Wrap(err, "checking file name")
	}
	return taken, nil
}

func (repo *uploadRepository) QueryUploads(ctx context.Context, filter upload.Filter) ([]upload.Upload, error) {
	var where conditions
	if filter.Kind != "" {
		where.add("kind = ?", string(filter.Kind))
	}
	if filter.ClassroomID != "" {
		where.add("classroom_id = ?", filter.ClassroomID)
	}
	if filter.UploadedBy != "" {
		where.add("uploaded_by = ?", filter.UploadedBy)
	}
	if filter.ValidOnly {
		where.addRaw("upload_finished_at IS NOT NULL")
	}

	var rows []uploadRow
	q := where.query(`SELECT `+uploadColumns+` FROM uploads`, orderBy(filter.Orderings))
	if err := repo.db.SelectContext(ctx, &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "querying uploads")
	}
	uploads := make([]upload.Upload, 0, len(rows))
	for _, r := range rows {
		uploads = append(uploads, r.toUpload())
	}
	return uploads, nil
}
