package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no session exists for the given public id.
	ErrNotFound = errors.New("session not found")

	// ErrInactive means the session was explicitly ended by the lecturer.
	ErrInactive = errors.New("session is no longer active")

	// ErrExpired means the session's time window has elapsed.
	ErrExpired = errors.New("session has expired")

	// ErrDuplicatePublicID is the store's signal that the public id is
	// already taken. The registry maps it to a ValidationError.
	ErrDuplicatePublicID = errors.New("session id already in use")
)

// ValidationError reports a malformed or missing input field.
// The caller must fix the input; retrying as-is will fail again.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
