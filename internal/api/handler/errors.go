package handler

import (
	"net/http"

	"github.com/EliasAN1/Stacktictoe/internal/api/apierr"
)

// Re-export for convenience within handlers
var (
	WriteError             = apierr.WriteError
	NewInvalidRequestError = apierr.NewInvalidRequestError
	NewInternalError       = apierr.NewInternalError
)

// NotFound handles unmatched routes with the JSON error envelope
func NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, apierr.NewNotFoundError())
}
