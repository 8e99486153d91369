package logs

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charliek/logan/internal/constants"
	"github.com/charliek/logan/internal/domain"
	"github.com/charliek/logan/internal/logger"
	"github.com/charliek/logan/internal/metrics"
)

// cancelCheckInterval is how many lines are scanned between context checks
const cancelCheckInterval = 1024

// SearchConfig bounds the work a search may do
type SearchConfig struct {
	Workers          int           // files scanned concurrently
	FileTimeout      time.Duration // per-file deadline, 0 disables
	MaxContext       int           // upper bound for before and after
	MaxPatternLength int
}

// DefaultSearchConfig returns the default search limits
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Workers:          constants.DefaultWorkers,
		FileTimeout:      constants.DefaultFileScanTimeout,
		MaxContext:       constants.MaxContextLines,
		MaxPatternLength: constants.MaxPatternLength,
	}
}

// Searcher scans log files for lines matching a compiled expression and
// collects the context around every match.
type Searcher struct {
	opts    domain.SearchOptions
	re      *regexp.Regexp
	config  SearchConfig
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

// NewSearcher validates opts and compiles the expression
func NewSearcher(opts domain.SearchOptions, config SearchConfig, log *zap.SugaredLogger, m *metrics.Metrics) (*Searcher, error) {
	defaults := DefaultSearchConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.MaxContext <= 0 {
		config.MaxContext = defaults.MaxContext
	}
	if config.MaxPatternLength <= 0 {
		config.MaxPatternLength = defaults.MaxPatternLength
	}
	if m == nil {
		m = metrics.Noop()
	}

	opts.Expression = strings.TrimSpace(opts.Expression)
	if opts.Expression == "" {
		return nil, fmt.Errorf("%w: no search expression specified", domain.ErrInvalidExpression)
	}
	if len(opts.Expression) > config.MaxPatternLength {
		return nil, fmt.Errorf("%w: expression exceeds maximum length of %d characters", domain.ErrInvalidExpression, config.MaxPatternLength)
	}
	if opts.Before < 0 || opts.Before > config.MaxContext {
		return nil, fmt.Errorf("%w: before must be between 0 and %d, got %d", domain.ErrInvalidContext, config.MaxContext, opts.Before)
	}
	if opts.After < 0 || opts.After > config.MaxContext {
		return nil, fmt.Errorf("%w: after must be between 0 and %d, got %d", domain.ErrInvalidContext, config.MaxContext, opts.After)
	}

	re, err := regexp.Compile(opts.Expression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidExpression, err)
	}

	return &Searcher{
		opts:    opts,
		re:      re,
		config:  config,
		log:     logger.OrNop(log),
		metrics: m,
	}, nil
}

// Options returns the validated search options
func (s *Searcher) Options() domain.SearchOptions {
	return s.opts
}

// Regexp returns the compiled expression
func (s *Searcher) Regexp() *regexp.Regexp {
	return s.re
}

// Search scans every entry and returns the per-file groups in the order of
// entries. Files that cannot be read, or that exceed the per-file deadline,
// are skipped. Only cancellation of ctx fails the whole search.
func (s *Searcher) Search(ctx context.Context, entries []domain.LogFileEntry) (domain.SearchResult, error) {
	groups := make([][]domain.SearchMatch, len(entries))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < min(s.config.Workers, max(len(entries), 1)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				groups[i] = s.searchEntry(ctx, entries[i])
			}
		}()
	}

feed:
	for i := range entries {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return domain.SearchResult{}, err
	}

	result := domain.SearchResult{
		ID:         uuid.NewString(),
		Expression: s.opts.Expression,
		Before:     s.opts.Before,
		After:      s.opts.After,
		Files:      []domain.SearchFileResult{},
		FilePaths:  []string{},
	}
	for i, matches := range groups {
		if len(matches) == 0 {
			continue
		}
		e := entries[i]
		result.Files = append(result.Files, domain.SearchFileResult{
			Path:        e.Path,
			OwnerID:     e.OwnerID,
			DisplayName: e.DisplayName,
			Matches:     matches,
		})
		result.FilePaths = append(result.FilePaths, e.Path)
	}

	return result, nil
}

func (s *Searcher) searchEntry(ctx context.Context, entry domain.LogFileEntry) []domain.SearchMatch {
	fileCtx := ctx
	if s.config.FileTimeout > 0 {
		var cancel context.CancelFunc
		fileCtx, cancel = context.WithTimeout(ctx, s.config.FileTimeout)
		defer cancel()
	}

	matches, err := s.SearchFile(fileCtx, entry.Path)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.metrics.FileErrors.WithLabelValues("search").Inc()
		s.log.Warnw("skipping file during search", "path", entry.Path, "owner_id", entry.OwnerID, "error", err)
		return nil
	}
	return matches
}

// SearchFile scans a single file
func (s *Searcher) SearchFile(ctx context.Context, path string) ([]domain.SearchMatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFileAccess, err)
	}
	defer f.Close()

	return s.scan(ctx, f, path)
}

// pendingMatch is a match still collecting after-context lines
type pendingMatch struct {
	index     int
	remaining int
}

// scan reports every matching line of r with its own full context window.
// Overlapping windows are not merged.
func (s *Searcher) scan(ctx context.Context, r io.Reader, path string) ([]domain.SearchMatch, error) {
	scanner := newLineScanner(r)
	before := NewRingBuffer(s.opts.Before)

	var matches []domain.SearchMatch
	var pending []pendingMatch
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		if lineNo%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := domain.Line{Number: lineNo, Text: trimCR(scanner.Text())}
		matched := s.re.MatchString(line.Text)
		var spans []domain.Span
		if matched {
			spans = MatchSpans(line.Text, s.re)
		}

		kept := pending[:0]
		for _, p := range pending {
			m := &matches[p.index]
			m.Context = append(m.Context, domain.ContextLine{Line: line, Highlights: spans})
			if p.remaining--; p.remaining > 0 {
				kept = append(kept, p)
			}
		}
		pending = kept

		if matched {
			window := make([]domain.ContextLine, 0, s.opts.Before+1+s.opts.After)
			for _, b := range before.Read() {
				window = append(window, domain.ContextLine{Line: b, Highlights: MatchSpans(b.Text, s.re)})
			}
			window = append(window, domain.ContextLine{Line: line, IsMatch: true, Highlights: spans})

			matches = append(matches, domain.SearchMatch{
				FilePath:   path,
				LineNumber: lineNo,
				Context:    window,
			})
			if s.opts.After > 0 {
				pending = append(pending, pendingMatch{index: len(matches) - 1, remaining: s.opts.After})
			}
		}

		before.Write(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", domain.ErrFileAccess, path, err)
	}

	return matches, nil
}
