package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrForbidden is returned when an actor fails an ownership check.
var ErrForbidden = errors.New("permission denied")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// IntegrityError means a record failed its full validation right before being persisted.
type IntegrityError struct {
	Err    error
	Fields []FieldError
}

func NewIntegrityError(err error, flds ...FieldError) error {
	return &IntegrityError{err, flds}
}

func (err IntegrityError) Error() string {
	if err.Err == nil {
		return "integrity error"
	}
	return err.Err.Error()
}

type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

func (err NotFoundError) Error() string {
	return err.Resource + " not found"
}

// UpstreamError wraps a failed call to an external provider. Clients may retry.
type UpstreamError struct {
	Message string
	Err     error
}

func NewUpstreamError(msg string, err error) error {
	return &UpstreamError{Message: msg, Err: err}
}

func (err UpstreamError) Error() string {
	if err.Err == nil {
		return err.Message
	}
	return err.Message + ": " + err.Err.Error()
}

func (err UpstreamError) Unwrap() error { return err.Err }

// ConfigError lists required settings that are absent.
type ConfigError struct {
	Section string
	Missing []string
}

func (err ConfigError) Error() string {
	return fmt.Sprintf("%s: missing required settings: %s", err.Section, strings.Join(err.Missing, ", "))
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
