package store

import (
	"errors"
	"fmt"
)

// Errors collected by Save.
var (
	// ErrMissingInput is recorded when Save receives a nil entity slice.
	ErrMissingInput = errors.New("store: entities must not be nil")

	// ErrMissingRequiredField is recorded for an entity without a name or id.
	ErrMissingRequiredField = errors.New("store: entity cannot be saved due to undefined required properties")

	// ErrInvalidPath is recorded when the subfolder escapes the base directory.
	ErrInvalidPath = errors.New("store: invalid path")

	// ErrUnsafeTarget is recorded when the target directory is a filesystem root.
	ErrUnsafeTarget = errors.New("store: refusing to clear filesystem root")
)

// ItemError describes the failure to save a single entity.
type ItemError struct {
	// Index is the entity's position in the input slice.
	Index int
	ID    string
	Name  string
	// Path is the file that was attempted, if any.
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ItemError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("store: entity %d (id %q): write %s: %v", e.Index, e.ID, e.Path, e.Err)
	}
	return fmt.Sprintf("store: entity %d (id %q, name %q): %v", e.Index, e.ID, e.Name, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ItemError) Unwrap() error {
	return e.Err
}
