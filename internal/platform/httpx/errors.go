package httpx

import (
	"errors"
	"net/http"

	"github.com/quotient-erp/quotient/internal/numbering"
	"github.com/quotient-erp/quotient/internal/shared"
)

// RespondError maps domain errors to RFC7807 responses. Unrecognized errors
// become opaque 500s so internals never leak.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidTransition):
		Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, shared.ErrDocumentImmutable):
		Problem(w, http.StatusConflict, "Document Closed", err.Error())
	case errors.Is(err, numbering.ErrContention):
		Problem(w, http.StatusServiceUnavailable, "Numbering Contention", err.Error())
	case errors.Is(err, numbering.ErrStorageUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Storage Unavailable", err.Error())
	case errors.Is(err, numbering.ErrTimeout):
		Problem(w, http.StatusGatewayTimeout, "Timed Out", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
