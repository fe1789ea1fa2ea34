package namespace

import (
	"errors"

	"github.com/fruitsalade/memfs/pkg/entity"
)

// Error kinds, re-exported from the entity model for convenience.
var (
	ErrNotFound           = entity.ErrNotFound
	ErrAlreadyExists      = entity.ErrAlreadyExists
	ErrInvalidType        = entity.ErrInvalidType
	ErrNotAContainer      = entity.ErrNotAContainer
	ErrInvalidContainment = entity.ErrInvalidContainment
	ErrInvalidPath        = entity.ErrInvalidPath
)

// OpError records a failed manager operation and the path it was applied to.
type OpError struct {
	Op   Op
	Path string
	Err  error
}

func (e *OpError) Error() string {
	if e.Path == "" {
		return string(e.Op) + ": " + e.Err.Error()
	}
	return string(e.Op) + " " + e.Path + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error { return e.Err }

func opError(op Op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Path: path, Err: err}
}

// ErrorCode returns a stable snake_case name for the error kind wrapped in
// err, "ok" for nil and "internal" for anything outside the taxonomy.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInvalidType):
		return "invalid_type"
	case errors.Is(err, ErrNotAContainer):
		return "not_a_container"
	case errors.Is(err, ErrInvalidContainment):
		return "invalid_containment"
	case errors.Is(err, ErrInvalidPath):
		return "invalid_path"
	default:
		return "internal"
	}
}
