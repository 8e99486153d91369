// Package registry discovers container log files and keeps the published
// mapping of owner identifiers to registered files.
package registry

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/charliek/logan/internal/domain"
)

// Snapshot is an immutable owner ID -> LogFileEntry mapping produced by one
// discovery pass.
type Snapshot struct {
	entries map[string]domain.LogFileEntry
	paths   map[string]bool
	ordered []domain.LogFileEntry
	builtAt time.Time
}

// NewSnapshot builds a snapshot from entries. A later entry for the same
// owner ID overwrites an earlier one.
func NewSnapshot(entries []domain.LogFileEntry) *Snapshot {
	s := &Snapshot{
		entries: make(map[string]domain.LogFileEntry, len(entries)),
		paths:   make(map[string]bool, len(entries)),
		builtAt: time.Now(),
	}
	for _, e := range entries {
		s.entries[e.OwnerID] = e
	}

	s.ordered = make([]domain.LogFileEntry, 0, len(s.entries))
	for _, e := range s.entries {
		s.ordered = append(s.ordered, e)
		s.paths[e.Path] = true
	}
	sort.Slice(s.ordered, func(i, j int) bool {
		a, b := s.ordered[i], s.ordered[j]
		if a.DisplayName != b.DisplayName {
			return a.DisplayName < b.DisplayName
		}
		return a.OwnerID < b.OwnerID
	})

	return s
}

// Entries returns the entries ordered by display name, then owner ID
func (s *Snapshot) Entries() []domain.LogFileEntry {
	out := make([]domain.LogFileEntry, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Lookup returns the entry registered for ownerID
func (s *Snapshot) Lookup(ownerID string) (domain.LogFileEntry, bool) {
	e, ok := s.entries[ownerID]
	return e, ok
}

// HasPath reports whether a registered entry points at path
func (s *Snapshot) HasPath(path string) bool {
	return s.paths[path]
}

// Len returns the number of registered files
func (s *Snapshot) Len() int {
	return len(s.ordered)
}

// BuiltAt returns when the snapshot was built
func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}

// Registry holds the currently published snapshot. Readers always observe a
// complete snapshot: either the previous one or the newly published one.
type Registry struct {
	current atomic.Pointer[Snapshot]
}

// New creates a registry holding an empty snapshot
func New() *Registry {
	r := &Registry{}
	r.current.Store(NewSnapshot(nil))
	return r
}

// Snapshot returns the current snapshot
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Publish atomically replaces the current snapshot
func (r *Registry) Publish(s *Snapshot) {
	if s == nil {
		s = NewSnapshot(nil)
	}
	r.current.Store(s)
}
