package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/charliek/logan/internal/constants"
	"github.com/charliek/logan/internal/domain"
	"github.com/charliek/logan/internal/logger"
	"github.com/charliek/logan/internal/metrics"
)

// DiscoveryConfig holds the inputs of a discovery pass
type DiscoveryConfig struct {
	Roots      []string
	Extensions []string
	Suffix     string
	Workers    int
}

// Discoverer walks the configured roots and builds registry snapshots
type Discoverer struct {
	config   DiscoveryConfig
	resolver OwnerResolver
	log      *zap.SugaredLogger
	metrics  *metrics.Metrics
}

// NewDiscoverer creates a discoverer. Missing options fall back to defaults.
func NewDiscoverer(config DiscoveryConfig, resolver OwnerResolver, log *zap.SugaredLogger, m *metrics.Metrics) *Discoverer {
	if len(config.Extensions) == 0 {
		config.Extensions = []string{constants.DefaultExtension}
	}
	if config.Suffix == "" {
		config.Suffix = constants.DefaultOwnerSuffix
	}
	if config.Workers <= 0 {
		config.Workers = constants.DefaultWorkers
	}
	if m == nil {
		m = metrics.Noop()
	}
	return &Discoverer{
		config:   config,
		resolver: resolver,
		log:      logger.OrNop(log),
		metrics:  m,
	}
}

// Config returns the effective discovery configuration
func (d *Discoverer) Config() DiscoveryConfig {
	return d.config
}

// Discover scans every root for files with a configured extension and
// returns a fresh snapshot of the eligible ones. Files whose owner cannot be
// identified or resolved, and empty or unreadable files, are skipped. A
// failure on one file never stops the scan; only cancellation of ctx does.
func (d *Discoverer) Discover(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	candidates := d.Candidates()

	results := make([]*domain.LogFileEntry, len(candidates))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < d.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				results[i] = d.processPath(ctx, candidates[i])
			}
		}()
	}

feed:
	for i := range candidates {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := make([]domain.LogFileEntry, 0, len(results))
	for _, e := range results {
		if e != nil {
			entries = append(entries, *e)
		}
	}

	snap := NewSnapshot(entries)

	d.metrics.DiscoveryRuns.Inc()
	d.metrics.DiscoveryDuration.Observe(time.Since(start).Seconds())
	d.log.Infow("discovery complete",
		"roots", d.config.Roots,
		"candidates", len(candidates),
		"registered", snap.Len(),
		"duration", time.Since(start),
	)

	return snap, nil
}

// Candidates lists the files under the roots whose extension is configured,
// sorted and without duplicates. Unreadable directories are passed over.
func (d *Discoverer) Candidates() []string {
	seen := make(map[string]bool)
	var paths []string

	for _, root := range d.config.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			d.log.Warnw("resolving discovery root", "root", root, "error", err)
			continue
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			d.log.Warnw("discovery root is not a readable directory", "root", abs, "error", err)
			continue
		}

		fsys := os.DirFS(abs)
		for _, ext := range d.config.Extensions {
			pattern := "**/*." + strings.TrimPrefix(ext, ".")
			matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
			if err != nil {
				d.log.Warnw("expanding discovery pattern", "root", abs, "pattern", pattern, "error", err)
				continue
			}
			for _, m := range matches {
				p := filepath.Join(abs, filepath.FromSlash(m))
				if !seen[p] {
					seen[p] = true
					paths = append(paths, p)
				}
			}
		}
	}

	sort.Strings(paths)
	return paths
}

// MatchesExtension reports whether path has one of the configured extensions
func (d *Discoverer) MatchesExtension(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	for _, e := range d.config.Extensions {
		if strings.TrimPrefix(e, ".") == ext {
			return true
		}
	}
	return false
}

func (d *Discoverer) processPath(ctx context.Context, path string) *domain.LogFileEntry {
	ownerID, err := OwnerID(path, d.config.Suffix)
	if err != nil {
		d.metrics.SkippedFiles.WithLabelValues(metrics.SkipNoOwnerID).Inc()
		d.log.Debugw("skipping file", "path", path, "error", err)
		return nil
	}

	name := d.resolver.Resolve(ctx, ownerID)
	if name == "" {
		d.metrics.SkippedFiles.WithLabelValues(metrics.SkipUnresolved).Inc()
		d.log.Debugw("skipping file", "path", path, "owner_id", ownerID, "error", domain.ErrUnresolvableOwner)
		return nil
	}

	size, err := readableSize(path)
	if err != nil {
		d.metrics.SkippedFiles.WithLabelValues(metrics.SkipEmptyOrError).Inc()
		d.metrics.FileErrors.WithLabelValues("discover").Inc()
		d.log.Debugw("skipping file", "path", path, "owner_id", ownerID, "error", err)
		return nil
	}

	return &domain.LogFileEntry{
		OwnerID:     ownerID,
		Path:        path,
		SizeBytes:   size,
		DisplayName: domain.SanitizeDisplayName(name),
	}
}

// readableSize returns the size of a regular, non-empty file that can be
// opened for reading.
func readableSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrEmptyOrUnreadableFile, err)
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return 0, domain.ErrEmptyOrUnreadableFile
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrEmptyOrUnreadableFile, err)
	}
	f.Close()

	return info.Size(), nil
}
