package domain

import "errors"

// Error kinds surfaced by every component. Callers match them with errors.Is;
// the wrapped message names the constraint that failed.
var (
	ErrValidation          = errors.New("validation failed")
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrReferentialConflict = errors.New("referenced by existing order")
	ErrLastAdmin           = errors.New("cannot remove the last admin")
	ErrAuthFailure         = errors.New("invalid credentials")
	ErrStore               = errors.New("store failure")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
)
