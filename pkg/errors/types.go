package errors

import (
	"fmt"
)

// ErrNoRemotes is returned when a sync is requested for a project that doesn't
// have any remote targets.
var ErrNoRemotes = New("no remote targets configured")

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// InvalidRemoteError represents a remote target that isn't of the form
// `[user@]host:path`.
type InvalidRemoteError struct {
	Remote string
	Reason string
}

func (err InvalidRemoteError) Error() string {
	return fmt.Sprintf("invalid remote %q: %s", err.Remote, err.Reason)
}
