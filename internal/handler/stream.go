package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heimassist/assistant-platform/internal/middleware"
	"github.com/heimassist/assistant-platform/internal/service"
	"github.com/heimassist/assistant-platform/pkg/logger"
	"github.com/heimassist/assistant-platform/pkg/metrics"
)

// StreamHandler serves the SSE reply endpoint.
type StreamHandler struct {
	replies *service.ReplyService
	logger  *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(replies *service.ReplyService, log *logger.Logger) *StreamHandler {
	return &StreamHandler{replies: replies, logger: log}
}

// Reply handles POST /api/v1/conversations/{id}/reply. It streams the
// assistant reply as SSE. Precondition failures arrive as plain JSON errors
// before any event is written.
func (h *StreamHandler) Reply(w http.ResponseWriter, r *http.Request) {
	id, err := middleware.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sink := &sseSink{w: w, flusher: flusher}
	err = h.replies.Stream(r.Context(), callerFrom(r), id, sink)
	if err == nil {
		return
	}

	// The engine only returns errors before the first event.
	switch {
	case errors.Is(err, service.ErrNoPendingUserMessage),
		errors.Is(err, service.ErrEmptyContext),
		errors.Is(err, service.ErrInvalidTail):
		writeError(w, http.StatusBadRequest, "no pending user message to answer")
	case errors.Is(err, service.ErrDuplicateReply):
		writeError(w, http.StatusConflict, "a reply for this message already exists")
	default:
		h.logger.Errorw("reply stream rejected", "conversation_id", id, "error", err)
		writeServiceError(w, err)
	}
}

// sseSink writes stream events as SSE frames. Headers go out lazily with
// the first event so preconditions can still produce a JSON error response.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *sseSink) Send(event string, data any) error {
	if !s.started {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.w.Header().Set("X-Accel-Buffering", "no")
		s.started = true
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
