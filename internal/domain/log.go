package domain

import (
	"fmt"
	"strings"
	"time"
)

// WindowMode selects which end of a file a window is read from
type WindowMode string

const (
	WindowHead WindowMode = "head"
	WindowTail WindowMode = "tail"
)

// String returns the string representation of WindowMode
func (m WindowMode) String() string {
	return string(m)
}

// ParseWindowMode converts a request value into a WindowMode
func ParseWindowMode(s string) (WindowMode, error) {
	switch WindowMode(strings.ToLower(strings.TrimSpace(s))) {
	case WindowHead:
		return WindowHead, nil
	case WindowTail:
		return WindowTail, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidWindow, s)
	}
}

// LogFileEntry is a registered log file. Entries are immutable once built.
type LogFileEntry struct {
	OwnerID     string `json:"owner_id"`
	Path        string `json:"path"`
	SizeBytes   int64  `json:"size_bytes"`
	DisplayName string `json:"name"`
}

// SanitizeDisplayName replaces path separators so the name is safe to use
// in generated identifiers and links.
func SanitizeDisplayName(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}

// Line is a single numbered line of a file. Numbers are 1-based.
type Line struct {
	Number int    `json:"line_number"`
	Text   string `json:"text"`
}

// Span is a half-open byte range [Start, End) within a line
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ContextLine is a line reported around a search match. Highlights holds the
// spans of the line matched by the search expression.
type ContextLine struct {
	Line
	IsMatch    bool   `json:"is_match"`
	Highlights []Span `json:"highlights,omitempty"`
}

// SearchMatch is one matching line with its surrounding context.
// Context runs from the before lines through the after lines, inclusive
// of the match line itself.
type SearchMatch struct {
	FilePath   string        `json:"file_path"`
	LineNumber int           `json:"line_number"`
	Context    []ContextLine `json:"context"`
}

// SearchFileResult groups the matches found in one file
type SearchFileResult struct {
	Path        string        `json:"path"`
	OwnerID     string        `json:"owner_id"`
	DisplayName string        `json:"name"`
	Matches     []SearchMatch `json:"matches"`
}

// SearchResult is the aggregate of a search across all registered files
type SearchResult struct {
	ID         string             `json:"id"`
	Expression string             `json:"expression"`
	Before     int                `json:"before"`
	After      int                `json:"after"`
	Files      []SearchFileResult `json:"files"`
	FilePaths  []string           `json:"file_paths"`
}

// TotalMatches returns the number of matches across all files
func (r SearchResult) TotalMatches() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Matches)
	}
	return n
}

// IsEmpty returns true if no file produced a match
func (r SearchResult) IsEmpty() bool {
	return len(r.Files) == 0
}

// SearchOptions holds the parameters of a search request
type SearchOptions struct {
	Expression string
	Before     int
	After      int
}

// RegistryStats summarizes the published registry
type RegistryStats struct {
	Files         int       `json:"files"`
	TotalBytes    int64     `json:"total_bytes"`
	LastDiscovery time.Time `json:"last_discovery"`
	Roots         []string  `json:"roots"`
	Followers     int       `json:"followers"`
}
