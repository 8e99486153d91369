package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/charliek/logan/internal/domain"
	"github.com/charliek/logan/internal/logger"
)

// FollowFile handles GET /api/v1/files/{id}/follow (SSE)
func (h *Handlers) FollowFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	log := logger.FromContext(r.Context(), zap.S())

	// Check if flusher is available
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "streaming not supported",
			Code:  domain.ErrCodeStreamingNotSupported,
		})
		return
	}

	ctx := r.Context()
	follower, err := h.manager.Follow(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer follower.Close()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Send initial comment to establish connection
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	// The follower ends when the client disconnects (ctx) or the manager
	// closes it on shutdown; both close the channel.
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-follower.Lines():
			if !ok {
				return
			}

			data, err := json.Marshal(FollowLineResponse{OwnerID: id, Line: line})
			if err != nil {
				continue
			}

			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				log.Debugw("SSE write error (client likely disconnected)", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}
