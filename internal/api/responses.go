package api

import (
	"github.com/charliek/logan/internal/domain"
)

// StatusResponse represents the response for GET /status
type StatusResponse struct {
	Status        string   `json:"status"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	ConfigFile    string   `json:"config_file,omitempty"`
	APIVersion    string   `json:"api_version"`
	Files         int      `json:"files"`
	TotalBytes    int64    `json:"total_bytes"`
	LastDiscovery string   `json:"last_discovery,omitempty"`
	Roots         []string `json:"roots"`
	Followers     int      `json:"followers"`
}

// FileListResponse represents the response for GET /files
type FileListResponse struct {
	Files []FileResponse `json:"files"`
	Count int            `json:"count"`
}

// FileResponse represents a single registered file
type FileResponse struct {
	OwnerID   string `json:"owner_id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

// WindowResponse represents the response for GET /files/{id}/head and /tail
type WindowResponse struct {
	OwnerID string   `json:"owner_id"`
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Mode    string   `json:"mode"`
	Lines   []string `json:"lines"`
	Count   int      `json:"count"`
}

// SearchResponse represents the response for /search
type SearchResponse struct {
	ID           string               `json:"id"`
	Expression   string               `json:"expression"`
	Before       int                  `json:"before"`
	After        int                  `json:"after"`
	TotalMatches int                  `json:"total_matches"`
	Files        []SearchFileResponse `json:"files"`
	FilePaths    []string             `json:"file_paths"`
}

// SearchFileResponse groups the matches of one file
type SearchFileResponse struct {
	OwnerID string          `json:"owner_id"`
	Name    string          `json:"name"`
	Path    string          `json:"path"`
	Matches []MatchResponse `json:"matches"`
}

// MatchResponse is one match with its context lines
type MatchResponse struct {
	LineNumber int                   `json:"line_number"`
	Context    []ContextLineResponse `json:"context"`
}

// ContextLineResponse is a numbered line around a match. Highlights are
// byte offsets of the expression matches within Text.
type ContextLineResponse struct {
	LineNumber int           `json:"line_number"`
	Text       string        `json:"text"`
	IsMatch    bool          `json:"is_match"`
	Highlights []domain.Span `json:"highlights,omitempty"`
}

// DiscoverResponse represents the response for POST /discover
type DiscoverResponse struct {
	Files      int   `json:"files"`
	DurationMS int64 `json:"duration_ms"`
}

// FollowLineResponse is the data of one follow SSE event
type FollowLineResponse struct {
	OwnerID string `json:"owner_id"`
	Line    string `json:"line"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToFileResponse converts domain.LogFileEntry to FileResponse
func ToFileResponse(e domain.LogFileEntry) FileResponse {
	return FileResponse{
		OwnerID:   e.OwnerID,
		Name:      e.DisplayName,
		Path:      e.Path,
		SizeBytes: e.SizeBytes,
	}
}

// ToSearchResponse converts domain.SearchResult to SearchResponse
func ToSearchResponse(result domain.SearchResult) SearchResponse {
	resp := SearchResponse{
		ID:           result.ID,
		Expression:   result.Expression,
		Before:       result.Before,
		After:        result.After,
		TotalMatches: result.TotalMatches(),
		Files:        make([]SearchFileResponse, len(result.Files)),
		FilePaths:    result.FilePaths,
	}
	if resp.FilePaths == nil {
		resp.FilePaths = []string{}
	}

	for i, f := range result.Files {
		file := SearchFileResponse{
			OwnerID: f.OwnerID,
			Name:    f.DisplayName,
			Path:    f.Path,
			Matches: make([]MatchResponse, len(f.Matches)),
		}
		for j, m := range f.Matches {
			match := MatchResponse{
				LineNumber: m.LineNumber,
				Context:    make([]ContextLineResponse, len(m.Context)),
			}
			for k, c := range m.Context {
				match.Context[k] = ContextLineResponse{
					LineNumber: c.Number,
					Text:       c.Text,
					IsMatch:    c.IsMatch,
					Highlights: c.Highlights,
				}
			}
			file.Matches[j] = match
		}
		resp.Files[i] = file
	}

	return resp
}
