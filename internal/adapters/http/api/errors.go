package api

import (
	"errors"
	"net/http"

	"github.com/okian/shotchart/internal/adapters/source"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest         = "bad_request"
	codeInvalidQuery       = "invalid_query"
	codeDatasetUnavailable = "dataset_unavailable"
	codeInternal           = "internal_error"
	codeMethodNotAllowed   = "method_not_allowed"
)

// classify maps a pipeline error to a status code and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, source.ErrInvalidQuery):
		return http.StatusBadRequest, codeInvalidQuery
	case errors.Is(err, source.ErrUnreachablePath):
		return http.StatusNotFound, codeDatasetUnavailable
	default:
		return http.StatusInternalServerError, codeInternal
	}
}
