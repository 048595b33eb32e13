// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// StatusFor maps a domain error to an HTTP status. nil maps to 200.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, shared.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807. The detail
// is always the user-safe message for role.
func RespondError(w http.ResponseWriter, err error, role string) {
	status := StatusFor(err)
	problem := ProblemDetail{
		Title:  http.StatusText(status),
		Status: status,
		Detail: shared.UserSafeMessage(err, role),
	}
	var ve *shared.ValidationError
	if errors.As(err, &ve) && len(ve.Fields) > 0 {
		problem.Errors = make(map[string]string, len(ve.Fields))
		for field, msgs := range ve.Fields {
			if len(msgs) > 0 {
				problem.Errors[field] = msgs[0]
			}
		}
	}
	JSON(w, status, problem)
}
