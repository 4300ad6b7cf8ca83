package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/heimassist/assistant-platform/internal/middleware"
	"github.com/heimassist/assistant-platform/internal/service"
	"github.com/heimassist/assistant-platform/internal/store"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response in the shared envelope shape.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]interface{}{
		"ok":     false,
		"detail": detail,
	})
}

// callerFrom builds the service caller identity from the request context.
func callerFrom(r *http.Request) service.Caller {
	return service.Caller{
		UserID: middleware.GetUserID(r.Context()),
		Admin:  middleware.IsAdmin(r.Context()),
	}
}

// writeServiceError maps service errors to HTTP responses. Forbidden reads
// look identical to missing conversations on purpose.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusNotFound, "conversation not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
