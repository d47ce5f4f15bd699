package errors

import (
	goErrors "errors"
	"fmt"

	pkgErrors "github.com/pkg/errors"
)

// New returns an error with the given message.
func New(msg string) error {
	return goErrors.New(msg)
}

// contextError annotates an error with a short description of what was being
// attempted when the error occurred.
type contextError struct {
	context string
	err     error
}

// WithContext wraps `err` with `context`. The message of the returned error is
// "<context>: <err>".
func WithContext(err error, context string) error {
	return contextError{context: context, err: err}
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

// Cause lets RootCause walk through the context chain.
func (err contextError) Cause() error {
	return err.err
}

func (err contextError) Unwrap() error {
	return err.err
}

// RootCause returns the innermost error that isn't wrapped with additional
// context.
func RootCause(err error) error {
	return pkgErrors.Cause(err)
}

// Friendly is implemented by errors whose message is meant to be shown to the
// user as is, without the context chain.
type Friendly interface {
	FriendlyMessage() string
}

// FriendlyError is an error with a message written for the user.
type FriendlyError struct {
	msg string
}

// NewFriendlyError creates a FriendlyError using the given format string.
func NewFriendlyError(format string, a ...interface{}) error {
	return FriendlyError{fmt.Sprintf(format, a...)}
}

func (err FriendlyError) Error() string {
	return err.msg
}

// FriendlyMessage returns the user-facing message.
func (err FriendlyError) FriendlyMessage() string {
	return err.msg
}

// GetPrintableMessage returns the message that should be shown to the user
// for `err`. If the root cause has a friendly message, only that message is
// returned.
func GetPrintableMessage(err error) string {
	if friendly, ok := RootCause(err).(Friendly); ok {
		return friendly.FriendlyMessage()
	}
	return fmt.Sprintf("Error: %s", err)
}
