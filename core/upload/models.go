package upload

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sims-edu/sims/core"
)

const maxFileNameLen = 255

type Kind string

const (
	KindCourseMaterial       Kind = "course_material"
	KindSubmissionAttachment Kind = "submission_attachment"
)

// Upload is a file written straight to the object store.
// It is pending until the client confirms the write, then valid forever.
type Upload struct {
	ID               string     `json:"id"`
	Kind             Kind       `json:"kind"`
	OriginalFileName string     `json:"original_file_name"`
	FileName         string     `json:"file_name"`
	FileType         string     `json:"file_type"`
	UploadedBy       string     `json:"uploaded_by"`
	ClassroomID      *string    `json:"classroom_id"`
	UploadFinishedAt *time.Time `json:"upload_finished_at"` // UTC
	CreatedAt        time.Time  `json:"created_at"`         // UTC
	UpdatedAt        time.Time  `json:"updated_at"`         // UTC
}

func (u Upload) IsValid() bool {
	return u.UploadFinishedAt != nil
}

type NewUpload struct {
	FileName    string  `json:"file_name" validate:"required,notblank,max=255"`
	FileType    string  `json:"file_type" validate:"required,notblank,max=255"`
	Kind        Kind    `json:"kind" validate:"required,oneof=course_material submission_attachment"`
	ClassroomID *string `json:"classroom_id" validate:"omitempty,notblank"`
}

func (nu *NewUpload) Validate(validate *validator.Validate) error {
	nu.FileName = core.CleanString(nu.FileName)
	nu.FileType = core.CleanString(nu.FileType, true /* lower */)
	if nu.Kind == "" {
		nu.Kind = KindCourseMaterial
	}
	nu.Kind = Kind(strings.ToLower(core.CleanString(string(nu.Kind))))
	if nu.ClassroomID != nil {
		id := core.CleanString(*nu.ClassroomID)
		if id == "" {
			nu.ClassroomID = nil
		} else {
			nu.ClassroomID = &id
		}
	}
	return validate.Struct(nu)
}

// Started is what a client needs to perform the upload.
type Started struct {
	ID string `json:"id"`
	Credential
}

type Filter struct {
	Kind        Kind
	ClassroomID string
	UploadedBy  string
	ValidOnly   bool
	Orderings   []core.DBOrdering
}

type MaterialFilter struct {
	ClassroomID string `query:"classroom"`
}

func (mf *MaterialFilter) Clean() {
	mf.ClassroomID = core.CleanString(mf.ClassroomID)
}
