package entity

import "errors"

// Error kinds shared by the entity model and the namespace manager.
// Callers distinguish them with errors.Is.
var (
	// ErrNotFound indicates a drive or path segment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a name collision in the target scope.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidType indicates an unknown kind or an operation applied to the wrong variant.
	ErrInvalidType = errors.New("invalid type")

	// ErrNotAContainer indicates the entity cannot hold children.
	ErrNotAContainer = errors.New("not a container")

	// ErrInvalidContainment indicates the container refuses the child variant.
	ErrInvalidContainment = errors.New("invalid containment")

	// ErrInvalidPath indicates a malformed path or entity name.
	ErrInvalidPath = errors.New("invalid path")
)
