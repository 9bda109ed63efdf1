package store

import (
	"errors"
	"fmt"
)

// AuthMessage is the user-facing text for ErrAuthRequired.
const AuthMessage = "Authentication required. Please log in again."

var (
	// ErrAuthRequired means the credential was missing or rejected. It is
	// never retried.
	ErrAuthRequired = errors.New("authentication required")
	ErrNotFound     = errors.New("transaction not found")
)

// RemoteError is any other failed store call: a non-2xx response or a
// transport failure (Status 0).
type RemoteError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// UserMessage returns the text to show for err.
func UserMessage(err error) string {
	if errors.Is(err, ErrAuthRequired) {
		return AuthMessage
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Message
	}
	if err == nil {
		return ""
	}
	return "An unexpected error occurred"
}
