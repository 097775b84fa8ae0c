package httpx

import (
	"errors"
	"net/http"

	"github.com/sitestack-erp/sitestack-erp/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Every rejected action names its reason category so the interface can
// render an actionable message instead of a generic failure.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrAuthentication), errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Authentication Required", "please log in again")
	case errors.Is(err, shared.ErrAuthorization):
		Problem(w, http.StatusForbidden, "Forbidden", "you do not have permission to perform this action")
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", "this request has already been processed")
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", "this was just decided by someone else; refresh")
	case errors.Is(err, shared.ErrBusy):
		Problem(w, http.StatusServiceUnavailable, "Busy", "the document is locked by another operation; retry")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
