package transport

import (
	"errors"
	"net/http"

	"github.com/smorand/slides-content-api/internal/docstore"
	"github.com/smorand/slides-content-api/internal/planner"
	"github.com/smorand/slides-content-api/internal/service"
	"github.com/smorand/slides-content-api/internal/usecase"
)

// Error codes returned in the "error" field.
const (
	codeInvalidRequest       = "invalid_request"
	codeContentTooLong       = "content_too_long"
	codeIncompleteUseCase    = "incomplete_use_case"
	codeInsufficientCapacity = "insufficient_capacity"
	codeCellNotWritable      = "cell_not_writable"
	codeNotFound             = "document_not_found"
	codeAccessDenied         = "document_access_denied"
	codeUnavailable          = "document_store_unavailable"
	codePartialFailure       = "partial_failure"
	codeInternal             = "internal_error"
)

type mappedError struct {
	status int
	code   string
	extra  map[string]any
}

// errorResponse maps a service error to its HTTP status, code and extra
// body fields.
func errorResponse(err error) mappedError {
	var (
		tooLong  *usecase.ContentTooLongError
		capacity *planner.InsufficientCapacityError
		partial  *docstore.PartialFailureError
		cell     *planner.CellNotWritableError
	)

	switch {
	case errors.As(err, &tooLong):
		return mappedError{http.StatusBadRequest, codeContentTooLong, map[string]any{
			"field":  tooLong.Field,
			"limit":  tooLong.Limit,
			"actual": tooLong.Actual,
		}}
	case errors.Is(err, usecase.ErrIncompleteUseCase):
		return mappedError{http.StatusBadRequest, codeIncompleteUseCase, nil}
	case errors.As(err, &capacity):
		return mappedError{http.StatusBadRequest, codeInsufficientCapacity, map[string]any{
			"requested": capacity.Requested,
			"available": capacity.Available,
			"shortfall": capacity.Shortfall,
		}}
	case errors.As(err, &cell):
		return mappedError{http.StatusBadRequest, codeCellNotWritable, map[string]any{
			"object_id": cell.ObjectID,
		}}
	case errors.Is(err, service.ErrInvalidInput):
		return mappedError{http.StatusBadRequest, codeInvalidRequest, nil}
	case errors.As(err, &partial):
		return mappedError{http.StatusInternalServerError, codePartialFailure, map[string]any{
			"failed_object_ids": partial.FailedObjectIDs,
			"written":           partial.Written,
		}}
	case errors.Is(err, docstore.ErrDocumentNotFound):
		return mappedError{http.StatusNotFound, codeNotFound, nil}
	case errors.Is(err, docstore.ErrDocumentAccessDenied):
		return mappedError{http.StatusForbidden, codeAccessDenied, nil}
	case errors.Is(err, docstore.ErrDocumentStoreUnavailable):
		return mappedError{http.StatusInternalServerError, codeUnavailable, nil}
	default:
		return mappedError{http.StatusInternalServerError, codeInternal, nil}
	}
}

// writeError writes {"error": code, "detail": detail} plus extra fields.
func writeError(w http.ResponseWriter, status int, code, detail string, extra map[string]any) {
	body := make(map[string]any, len(extra)+2)
	for k, v := range extra {
		body[k] = v
	}
	body["error"] = code
	body["detail"] = detail
	writeJSON(w, status, body)
}
