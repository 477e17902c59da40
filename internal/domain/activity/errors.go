package activity

import (
	"errors"
	"fmt"
)

// Validation codes carried to the client so it can present an actionable
// message.
const (
	CodeNotAllBlank  = "NOT_ALL_BLANK"
	CodeListRequired = "LIST_REQUIRED"
)

// ValidationError rejects a save because a structured sub-field is
// malformed. The whole save is aborted; no partial write survives.
type ValidationError struct {
	Field string
	Code  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Code)
}

// InvalidStateError signals a data-integrity violation: a dispatcher with no
// concrete activity installed, or an unknown activity type on a persisted
// row. It indicates a construction bug, never a caller mistake.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid activity state: %s", e.Reason)
}

// ErrNotPermitted is returned when a non-privileged actor attempts a
// supervisor-only lock transition.
var ErrNotPermitted = errors.New("operation not permitted")

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")
