package logs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charliek/logan/internal/constants"
	"github.com/charliek/logan/internal/domain"
	"github.com/charliek/logan/internal/logger"
	"github.com/charliek/logan/internal/metrics"
	"github.com/charliek/logan/internal/registry"
)

// ManagerConfig holds configuration for the log manager
type ManagerConfig struct {
	DefaultLines  int // used when a window request omits the count
	MaxLines      int // larger window requests are clamped
	DefaultBefore int
	DefaultAfter  int
	Search        SearchConfig
	Follow        FollowConfig
}

// DefaultManagerConfig returns the default configuration
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		DefaultLines:  constants.DefaultWindowLines,
		MaxLines:      constants.MaxWindowLines,
		DefaultBefore: constants.DefaultBeforeContext,
		DefaultAfter:  constants.DefaultAfterContext,
		Search:        DefaultSearchConfig(),
		Follow:        FollowConfig{BufferSize: constants.FollowBuffer},
	}
}

// Manager is the query surface over the registry: listing, windows,
// search and follow all read the snapshot published at call time.
type Manager struct {
	registry   *registry.Registry
	discoverer *registry.Discoverer
	followers  *FollowerSet
	config     ManagerConfig
	log        *zap.SugaredLogger
	metrics    *metrics.Metrics

	refreshMu sync.Mutex
}

// NewManager creates a new log manager
func NewManager(reg *registry.Registry, disc *registry.Discoverer, config ManagerConfig, log *zap.SugaredLogger, m *metrics.Metrics) *Manager {
	defaults := DefaultManagerConfig()
	if config.DefaultLines <= 0 {
		config.DefaultLines = defaults.DefaultLines
	}
	if config.MaxLines <= 0 {
		config.MaxLines = defaults.MaxLines
	}
	if config.DefaultLines > config.MaxLines {
		config.DefaultLines = config.MaxLines
	}
	if config.DefaultBefore < 0 {
		config.DefaultBefore = defaults.DefaultBefore
	}
	if config.DefaultAfter < 0 {
		config.DefaultAfter = defaults.DefaultAfter
	}
	if m == nil {
		m = metrics.Noop()
	}
	log = logger.OrNop(log)

	return &Manager{
		registry:   reg,
		discoverer: disc,
		followers:  NewFollowerSet(config.Follow, log),
		config:     config,
		log:        log,
		metrics:    m,
	}
}

// Config returns the effective configuration
func (m *Manager) Config() ManagerConfig {
	return m.config
}

// Rediscover runs a full discovery pass and publishes the result. Concurrent
// calls are serialized; readers keep using the previous snapshot until the
// new one is published.
func (m *Manager) Rediscover(ctx context.Context) (*registry.Snapshot, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	snap, err := m.discoverer.Discover(ctx)
	if err != nil {
		return nil, err
	}
	m.registry.Publish(snap)
	m.metrics.RegisteredFiles.Set(float64(snap.Len()))
	return snap, nil
}

// Refresh is Rediscover without the snapshot, for use as a watcher callback
func (m *Manager) Refresh(ctx context.Context) error {
	_, err := m.Rediscover(ctx)
	return err
}

// ListEntries returns the registered files in snapshot order
func (m *Manager) ListEntries() []domain.LogFileEntry {
	return m.registry.Snapshot().Entries()
}

// Lookup returns the entry registered for ownerID
func (m *Manager) Lookup(ownerID string) (domain.LogFileEntry, error) {
	entry, ok := m.registry.Snapshot().Lookup(ownerID)
	if !ok {
		return domain.LogFileEntry{}, fmt.Errorf("%w: %s", domain.ErrUnknownOwner, ownerID)
	}
	return entry, nil
}

// ReadWindow returns a head or tail window of the file owned by ownerID.
// A zero count selects the default; counts above the maximum are clamped.
func (m *Manager) ReadWindow(ownerID string, mode domain.WindowMode, numLines int) ([]string, error) {
	switch {
	case numLines == 0:
		numLines = m.config.DefaultLines
	case numLines > m.config.MaxLines:
		numLines = m.config.MaxLines
	}

	lines, err := ReadWindow(m.registry.Snapshot(), ownerID, mode, numLines)
	m.metrics.WindowReads.WithLabelValues(mode.String(), statusOf(err)).Inc()
	if err != nil {
		if errors.Is(err, domain.ErrFileAccess) {
			m.metrics.FileErrors.WithLabelValues("window").Inc()
			m.log.Warnw("window read failed", "owner_id", ownerID, "mode", mode, "error", err)
		}
		return nil, err
	}
	return lines, nil
}

// Search runs a search over every registered file
func (m *Manager) Search(ctx context.Context, opts domain.SearchOptions) (domain.SearchResult, error) {
	start := time.Now()

	s, err := NewSearcher(opts, m.config.Search, m.log, m.metrics)
	if err != nil {
		m.metrics.Searches.WithLabelValues("invalid").Inc()
		return domain.SearchResult{}, err
	}

	result, err := s.Search(ctx, m.registry.Snapshot().Entries())
	m.metrics.SearchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.metrics.Searches.WithLabelValues("error").Inc()
		return domain.SearchResult{}, err
	}

	total := result.TotalMatches()
	m.metrics.SearchMatches.Add(float64(total))
	if result.IsEmpty() {
		m.metrics.Searches.WithLabelValues("empty").Inc()
	} else {
		m.metrics.Searches.WithLabelValues("ok").Inc()
	}

	m.log.Debugw("search complete",
		"id", result.ID,
		"expression", result.Expression,
		"files", len(result.Files),
		"matches", total,
		"duration", time.Since(start),
	)
	return result, nil
}

// Follow streams lines appended to the file owned by ownerID until ctx is
// done or the follower is closed.
func (m *Manager) Follow(ctx context.Context, ownerID string) (*Follower, error) {
	entry, err := m.Lookup(ownerID)
	if err != nil {
		return nil, err
	}
	return m.followers.Follow(ctx, entry.Path)
}

// Stats returns statistics about the published registry
func (m *Manager) Stats() domain.RegistryStats {
	snap := m.registry.Snapshot()
	var total int64
	for _, e := range snap.Entries() {
		total += e.SizeBytes
	}

	var roots []string
	if m.discoverer != nil {
		roots = m.discoverer.Config().Roots
	}

	return domain.RegistryStats{
		Files:         snap.Len(),
		TotalBytes:    total,
		LastDiscovery: snap.BuiltAt(),
		Roots:         roots,
		Followers:     m.followers.Count(),
	}
}

// Close stops all followers
func (m *Manager) Close() {
	m.followers.Close()
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUnknownOwner):
		return "unknown_owner"
	case errors.Is(err, domain.ErrInvalidWindow):
		return "invalid"
	default:
		return "error"
	}
}
