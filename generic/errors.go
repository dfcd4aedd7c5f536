/*
errors.go - Centralized error types for the state engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages (certs, auth, ui) wrap these errors with additional context.

ERROR CATEGORIES:
  1. Collection errors - identity and selection violations
  2. Persistence errors - snapshot load/save failures
  3. Remote errors - failures reported by the data source

STORE BOUNDARY:
  Remote failures never escape an EntityStore. They are normalized to a
  message with ErrorMessage() and exposed via State.Error.

SEE ALSO:
  - entity_store.go: Uses these errors
  - store.go: Persister contract
  - api/handlers.go: Maps these errors to HTTP statuses
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateID is returned when an entity with the same id is already
	// present in the collection. The collection is left untouched.
	ErrDuplicateID = errors.New("duplicate entity id")

	// ErrEntityNotFound is returned when a referenced entity doesn't exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrImmutableID is returned when an update tries to change an entity id.
	ErrImmutableID = errors.New("entity id is immutable")

	// ErrSnapshotNotFound is returned by a Persister when no value is stored
	// under the requested key.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrInvalidCredentials is returned when email or password don't match.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrSessionNotFound is returned when a session token cannot be resolved.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnknownRole is returned when a role string is not one of the closed set.
	ErrUnknownRole = errors.New("unknown role")

	// ErrInvalidInput is returned for malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DuplicateIDError names the colliding id.
type DuplicateIDError struct {
	Store string
	ID    string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("%s: duplicate entity id %q", e.Store, e.ID)
}

func (e *DuplicateIDError) Unwrap() error {
	return ErrDuplicateID
}

// RemoteError is an application-level failure reported by the data source,
// as opposed to a transport failure.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// ErrorMessage coerces err into a human-readable message, falling back to
// fallback when err carries no text.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var remote *RemoteError
	if errors.As(err, &remote) && remote.Message != "" {
		return remote.Message
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return fallback
	}
	return msg
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicateID) ||
		errors.Is(err, ErrImmutableID) ||
		errors.Is(err, ErrUnknownRole) ||
		errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrSnapshotNotFound) ||
		errors.Is(err, ErrSessionNotFound)
}
