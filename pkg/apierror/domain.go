package apierror

import (
	"errors"
	"net/http"

	"github.com/planforge/api/pkg/domain/shared"
)

// FromDomain maps a domain error to an API error. Sentinel wrapping decides
// the status; anything unrecognized becomes a 500 with the original error
// kept internally.
func FromDomain(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, shared.ErrNotFound):
		return NotFound("").WithError(err)
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrInvalidInput):
		return SafeBadRequest(err)
	case errors.Is(err, shared.ErrUnauthorized):
		return SafeUnauthorized(err)
	case errors.Is(err, shared.ErrForbidden):
		return SafeForbidden(err)
	case errors.Is(err, shared.ErrAlreadyExists), errors.Is(err, shared.ErrConflict):
		return SafeConflict(err)
	case errors.Is(err, shared.ErrLimitExceeded):
		return New(http.StatusForbidden, CodeLimitExceeded, "Plan limit reached").WithError(err)
	}

	return InternalError(err)
}
