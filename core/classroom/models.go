package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sims-edu/sims/core"
)

type Classroom struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewClassroom struct {
	Name string `json:"name" toml:"name" validate:"required,notblank,max=20"`
}

func (nc *NewClassroom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}
