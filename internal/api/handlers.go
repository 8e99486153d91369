package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/charliek/logan/internal/domain"
	"github.com/charliek/logan/internal/logger"
	"github.com/charliek/logan/internal/logs"
)

// maxSearchBody bounds the JSON body accepted by POST /search
const maxSearchBody = 64 * 1024

// Handlers contains all HTTP handlers
type Handlers struct {
	manager    *logs.Manager
	configFile string
	started    time.Time
}

// NewHandlers creates new HTTP handlers
func NewHandlers(mgr *logs.Manager, configFile string) *Handlers {
	return &Handlers{
		manager:    mgr,
		configFile: configFile,
		started:    time.Now(),
	}
}

// GetStatus handles GET /api/v1/status
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	stats := h.manager.Stats()

	resp := StatusResponse{
		Status:        "running",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		ConfigFile:    h.configFile,
		APIVersion:    "v1",
		Files:         stats.Files,
		TotalBytes:    stats.TotalBytes,
		Roots:         stats.Roots,
		Followers:     stats.Followers,
	}
	if !stats.LastDiscovery.IsZero() {
		resp.LastDiscovery = stats.LastDiscovery.Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetFiles handles GET /api/v1/files
func (h *Handlers) GetFiles(w http.ResponseWriter, r *http.Request) {
	entries := h.manager.ListEntries()

	resp := FileListResponse{
		Files: make([]FileResponse, len(entries)),
		Count: len(entries),
	}
	for i, e := range entries {
		resp.Files[i] = ToFileResponse(e)
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetFile handles GET /api/v1/files/{id}
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	entry, err := h.manager.Lookup(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToFileResponse(entry))
}

// GetHead handles GET /api/v1/files/{id}/head
func (h *Handlers) GetHead(w http.ResponseWriter, r *http.Request) {
	h.readWindow(w, r, domain.WindowHead)
}

// GetTail handles GET /api/v1/files/{id}/tail
func (h *Handlers) GetTail(w http.ResponseWriter, r *http.Request) {
	h.readWindow(w, r, domain.WindowTail)
}

func (h *Handlers) readWindow(w http.ResponseWriter, r *http.Request, mode domain.WindowMode) {
	id := chi.URLParam(r, "id")

	// unknown owners are rejected before any parameter is looked at
	entry, err := h.manager.Lookup(id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	numLines, err := parseLines(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	lines, err := h.manager.ReadWindow(id, mode, numLines)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, WindowResponse{
		OwnerID: entry.OwnerID,
		Name:    entry.DisplayName,
		Path:    entry.Path,
		Mode:    mode.String(),
		Lines:   lines,
		Count:   len(lines),
	})
}

// Search handles GET and POST /api/v1/search
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	opts, err := h.parseSearchParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.manager.Search(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ToSearchResponse(result))
}

// Discover handles POST /api/v1/discover
func (h *Handlers) Discover(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	snap, err := h.manager.Rediscover(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DiscoverResponse{
		Files:      snap.Len(),
		DurationMS: time.Since(start).Milliseconds(),
	})
}

// parseLines reads the optional lines query parameter. Absent means the
// configured default.
func parseLines(r *http.Request) (int, error) {
	s := r.URL.Query().Get("lines")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: lines must be a positive integer, got %q", domain.ErrInvalidWindow, s)
	}
	return n, nil
}

// searchRequest is the JSON body accepted by POST /search
type searchRequest struct {
	Expression string `json:"expression"`
	Before     *int   `json:"before"`
	After      *int   `json:"after"`
}

// parseSearchParams extracts search options from the query string and, for
// POST requests with a JSON body, from the body. Body fields win.
func (h *Handlers) parseSearchParams(r *http.Request) (domain.SearchOptions, error) {
	cfg := h.manager.Config()
	q := r.URL.Query()

	opts := domain.SearchOptions{
		Expression: q.Get("expression"),
		Before:     cfg.DefaultBefore,
		After:      cfg.DefaultAfter,
	}

	var err error
	if opts.Before, err = contextParam(q.Get("before"), "before", opts.Before); err != nil {
		return opts, err
	}
	if opts.After, err = contextParam(q.Get("after"), "after", opts.After); err != nil {
		return opts, err
	}

	if r.Method == http.MethodPost && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body searchRequest
		dec := json.NewDecoder(io.LimitReader(r.Body, maxSearchBody))
		if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return opts, fmt.Errorf("%w: malformed request body: %v", domain.ErrInvalidExpression, err)
		}
		if body.Expression != "" {
			opts.Expression = body.Expression
		}
		if body.Before != nil {
			opts.Before = *body.Before
		}
		if body.After != nil {
			opts.After = *body.After
		}
	}

	return opts, nil
}

func contextParam(s, name string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrInvalidContext, name, s)
	}
	return n, nil
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("error encoding JSON response", "error", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := domain.ErrCodeInternal
	message := "an internal error occurred"

	switch {
	case errors.Is(err, domain.ErrUnknownOwner):
		status = http.StatusNotFound
		code = domain.ErrCodeUnknownOwner
		message = domain.ErrUnknownOwner.Error()
	case errors.Is(err, domain.ErrInvalidExpression):
		status = http.StatusBadRequest
		code = domain.ErrCodeInvalidExpression
		message = err.Error()
	case errors.Is(err, domain.ErrInvalidWindow):
		status = http.StatusBadRequest
		code = domain.ErrCodeInvalidWindow
		message = err.Error()
	case errors.Is(err, domain.ErrInvalidContext):
		status = http.StatusBadRequest
		code = domain.ErrCodeInvalidContext
		message = err.Error()
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
		code = domain.ErrCodeRateLimited
		message = err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		code = domain.ErrCodeTimeout
		message = "request timed out"
	case errors.Is(err, domain.ErrFileAccess):
		// the path stays in the server log
		code = domain.ErrCodeFileAccess
		message = "unable to read log file"
		logger.FromContext(r.Context(), zap.S()).Warnw("file access error", "error", err)
	default:
		// For unknown errors, log the actual error but return a sanitized message
		// to avoid leaking internal paths or sensitive information
		logger.FromContext(r.Context(), zap.S()).Errorw("internal error", "error", err)
	}

	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
