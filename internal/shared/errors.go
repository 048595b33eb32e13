package shared

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable covers network failures and timeouts talking to the backend.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrForbidden indicates the backend refused the actor.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation marks client or server side validation failures.
	ErrValidation = errors.New("validation failed")
	// ErrUpstream is any other unexpected backend response.
	ErrUpstream = errors.New("backend error")
)

// RoleOwner is the account owner role, which gets dedicated copy on
// authorization failures.
const RoleOwner = "owner"

// UserSafeMessage converts err into copy suitable for a notification. It never
// leaks internal details except for validation messages, which are written
// for users.
func UserSafeMessage(err error, role string) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Error()
	case errors.Is(err, ErrForbidden):
		if strings.EqualFold(role, RoleOwner) {
			return "Your subscription does not include access to this data. Review the plan settings or contact support."
		}
		return "You do not have permission to view this data. Ask the account owner for access."
	case errors.Is(err, ErrNotFound):
		return "The requested record no longer exists."
	case errors.Is(err, ErrUnavailable):
		return "The server could not be reached. Check your connection and refresh to try again."
	case errors.Is(err, ErrValidation):
		return "Some fields are invalid. Review the highlighted fields and try again."
	default:
		return "Something went wrong while loading data. Refresh to try again."
	}
}

// ValidationError carries field level complaints from the backend, flattened
// into one readable message.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap ties the error to ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
