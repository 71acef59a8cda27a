package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core"
	"github.com/sims-edu/sims/core/metrics"
	"github.com/sims-edu/sims/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound          = core.NewNotFoundError("upload")
	ErrFileNameExists    = errors.New("an upload with this file name already exists")
	ErrFileNameTooLong   = fmt.Errorf("file name must not exceed %d characters", maxFileNameLen)
	ErrClassroomNotFound = errors.New("classroom not found")

	orderingFields = []string{"created_at", "updated_at", "upload_finished_at"}
)

type (
	Repository interface {
		CreateUpload(ctx context.Context, u Upload) (Upload, error)
		GetUpload(ctx context.Context, id string) (Upload, error)
		// UpdateUpload returns ErrFileNameExists when the file name is taken.
		UpdateUpload(ctx context.Context, u Upload) (Upload, error)
		FileNameTaken(ctx context.Context, fileName, excludedID string) (bool, error)
		QueryUploads(ctx context.Context, filter Filter) ([]Upload, error)
	}

	CredentialIssuer interface {
		Issue(ctx context.Context, key, contentType string) (Credential, error)
	}

	ClassroomChecker interface {
		ClassroomExists(ctx context.Context, id string) (bool, error)
	}

	Service struct {
		repo       Repository
		issuer     CredentialIssuer
		classrooms ClassroomChecker
	}
)

func NewService(repo Repository, issuer CredentialIssuer, classrooms ClassroomChecker) *Service {
	return &Service{repo: repo, issuer: issuer, classrooms: classrooms}
}

// Start records a pending upload and returns the credential the client needs to write it.
// The record is persisted before the credential is requested; if signing fails the pending
// record stays behind, invisible to every listing.
func (svc *Service) Start(ctx context.Context, actor user.Actor, nu NewUpload) (Started, error) {
	classroomID, err := svc.uploadClassroom(ctx, actor, nu)
	if err != nil {
		return Started{}, err
	}

	now := NowFunc().UTC()
	u, err := svc.repo.CreateUpload(ctx, Upload{
		ID:               uuid.NewString(),
		Kind:             nu.Kind,
		OriginalFileName: nu.FileName,
		FileName:         GenerateKey(nu.FileName),
		FileType:         nu.FileType,
		UploadedBy:       actor.User.ID,
		ClassroomID:      classroomID,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return Started{}, errors.Wrap(err, "creating upload")
	}
	metrics.UploadsStarted.WithLabelValues(string(u.Kind)).Inc()

	cred, err := svc.issuer.Issue(ctx, u.FileName, u.FileType)
	if err != nil {
		return Started{}, errors.Wrap(err, "issuing upload credential")
	}
	return Started{ID: u.ID, Credential: cred}, nil
}

// uploadClassroom applies the per-kind ownership rules and resolves the classroom scope.
func (svc *Service) uploadClassroom(ctx context.Context, actor user.Actor, nu NewUpload) (*string, error) {
	switch nu.Kind {
	case KindSubmissionAttachment:
		st, ok := actor.Student()
		if !ok {
			return nil, core.ErrForbidden
		}
		return &st.ClassroomID, nil

	case KindCourseMaterial:
		switch p := actor.Profile.(type) {
		case user.Student:
			if !p.ClassRepresentative {
				return nil, core.ErrForbidden
			}
			if nu.ClassroomID != nil && *nu.ClassroomID != p.ClassroomID {
				return nil, core.ErrForbidden
			}
			return &p.ClassroomID, nil
		case user.Instructor:
		default:
			if !actor.IsSuperuser() {
				return nil, core.ErrForbidden
			}
		}
		if nu.ClassroomID == nil {
			return nil, nil
		}
		ok, err := svc.classrooms.ClassroomExists(ctx, *nu.ClassroomID)
		if err != nil {
			return nil, errors.Wrap(err, "checking classroom")
		}
		if !ok {
			return nil, core.NewValidationError(ErrClassroomNotFound, core.FieldError{Field: "classroom_id", Error: ErrClassroomNotFound.Error()})
		}
		return nu.ClassroomID, nil
	}
	return nil, core.NewValidationError(nil, core.FieldError{Field: "kind", Error: "invalid upload kind"})
}

// Finish marks the upload as valid once the client has written the object.
// Finishing again only moves the timestamp.
func (svc *Service) Finish(ctx context.Context, actor user.Actor, id string) (Upload, error) {
	u, err := svc.get(ctx, id)
	if err != nil {
		return Upload{}, err
	}
	if u.UploadedBy != actor.User.ID {
		return Upload{}, core.ErrForbidden
	}

	now := NowFunc().UTC()
	u.UploadFinishedAt = &now
	u.UpdatedAt = now
	if err = svc.fullClean(ctx, u); err != nil {
		return Upload{}, err
	}

	u, err = svc.repo.UpdateUpload(ctx, u)
	if err != nil {
		if errors.Cause(err) == ErrFileNameExists {
			return Upload{}, core.NewIntegrityError(err, core.FieldError{Field: "file_name", Error: err.Error()})
		}
		return Upload{}, errors.Wrap(err, "updating upload")
	}
	metrics.UploadsFinished.WithLabelValues(string(u.Kind)).Inc()
	return u, nil
}

// fullClean checks the stored columns before a pending upload becomes valid.
func (svc *Service) fullClean(ctx context.Context, u Upload) error {
	var flds []core.FieldError
	if len(u.FileName) > maxFileNameLen {
		flds = append(flds, core.FieldError{Field: "file_name", Error: ErrFileNameTooLong.Error()})
	} else {
		taken, err := svc.repo.FileNameTaken(ctx, u.FileName, u.ID)
		if err != nil {
			return errors.Wrap(err, "checking file name uniqueness")
		}
		if taken {
			flds = append(flds, core.FieldError{Field: "file_name", Error: ErrFileNameExists.Error()})
		}
	}
	if len(u.OriginalFileName) > maxFileNameLen {
		flds = append(flds, core.FieldError{Field: "original_file_name", Error: ErrFileNameTooLong.Error()})
	}
	if len(flds) > 0 {
		return core.NewIntegrityError(errors.New("upload failed validation"), flds...)
	}
	return nil
}

func (svc *Service) get(ctx context.Context, id string) (Upload, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Upload{}, ErrNotFound
	}
	return svc.repo.GetUpload(ctx, id)
}

// Get returns an upload the actor may see: their own, or a valid course material
// they could list.
func (svc *Service) Get(ctx context.Context, actor user.Actor, id string) (Upload, error) {
	u, err := svc.get(ctx, id)
	if err != nil {
		return Upload{}, err
	}
	if u.UploadedBy == actor.User.ID || actor.Role() == user.RoleAdmin {
		return u, nil
	}
	if u.Kind != KindCourseMaterial || !u.IsValid() {
		return Upload{}, ErrNotFound
	}
	switch p := actor.Profile.(type) {
	case user.Student:
		if u.ClassroomID != nil && *u.ClassroomID == p.ClassroomID {
			return u, nil
		}
	case user.Instructor:
		return u, nil
	}
	return Upload{}, ErrNotFound
}

// GetAttachment returns a valid submission attachment uploaded by userID.
func (svc *Service) GetAttachment(ctx context.Context, userID, id string) (Upload, error) {
	u, err := svc.get(ctx, id)
	if err != nil {
		return Upload{}, err
	}
	if u.Kind != KindSubmissionAttachment || !u.IsValid() || u.UploadedBy != userID {
		return Upload{}, ErrNotFound
	}
	return u, nil
}

// QueryMaterials lists valid course materials visible to actor:
// students see their classroom, instructors see the requested classroom or what they uploaded,
// admins see everything (optionally filtered by classroom).
func (svc *Service) QueryMaterials(ctx context.Context, actor user.Actor, mf MaterialFilter, orderings []core.DBOrdering) ([]Upload, error) {
	filter := Filter{
		Kind:      KindCourseMaterial,
		ValidOnly: true,
		Orderings: core.CleanOrderings(orderings, orderingFields...),
	}
	switch p := actor.Profile.(type) {
	case user.Student:
		filter.ClassroomID = p.ClassroomID
	case user.Instructor:
		if mf.ClassroomID != "" {
			filter.ClassroomID = mf.ClassroomID
		} else {
			filter.UploadedBy = actor.User.ID
		}
	default:
		filter.ClassroomID = mf.ClassroomID
	}
	if filter.ClassroomID != "" {
		if _, err := uuid.Parse(filter.ClassroomID); err != nil {
			return []Upload{}, nil
		}
	}

	uploads, err := svc.repo.QueryUploads(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying uploads")
	}
	return uploads, nil
}
