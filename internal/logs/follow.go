package logs

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/nxadm/tail"
	"go.uber.org/zap"

	"github.com/charliek/logan/internal/constants"
	"github.com/charliek/logan/internal/domain"
	"github.com/charliek/logan/internal/logger"
)

var followerIDCounter uint64

// FollowConfig controls how followed files are watched
type FollowConfig struct {
	Poll       bool // poll instead of inotify
	BufferSize int
}

// Follower streams lines appended to a file after it was opened.
// Rotation is not tracked; the stream ends when the follower is closed or
// its context is done.
type Follower struct {
	id     string
	path   string
	t      *tail.Tail
	ch     chan string
	done   chan struct{}
	closed atomic.Bool
	log    *zap.SugaredLogger
}

func newFollower(path string, config FollowConfig, log *zap.SugaredLogger) (*Follower, error) {
	if config.BufferSize <= 0 {
		config.BufferSize = constants.FollowBuffer
	}

	// Pin the start to the size seen now; the tail goroutine seeks later.
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFileAccess, err)
	}

	t, err := tail.TailFile(path, tail.Config{
		Location:  &tail.SeekInfo{Offset: info.Size(), Whence: io.SeekStart},
		Follow:    true,
		ReOpen:    false,
		MustExist: true,
		Poll:      config.Poll,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFileAccess, err)
	}

	f := &Follower{
		id:   "follow-" + strconv.FormatUint(atomic.AddUint64(&followerIDCounter, 1), 10),
		path: path,
		t:    t,
		ch:   make(chan string, config.BufferSize),
		done: make(chan struct{}),
		log:  logger.OrNop(log),
	}
	return f, nil
}

func (f *Follower) pump(ctx context.Context, onExit func(string)) {
	defer func() {
		close(f.ch)
		f.Close()
		if onExit != nil {
			onExit(f.id)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.done:
			return
		case line, ok := <-f.t.Lines:
			if !ok {
				return
			}
			if line.Err != nil {
				f.log.Debugw("follow read error", "path", f.path, "error", line.Err)
				continue
			}
			select {
			case f.ch <- trimCR(line.Text):
			case <-ctx.Done():
				return
			case <-f.done:
				return
			}
		}
	}
}

// ID returns the follower ID
func (f *Follower) ID() string {
	return f.id
}

// Path returns the followed file
func (f *Follower) Path() string {
	return f.path
}

// Lines returns the channel of appended lines. It is closed when the
// follower stops.
func (f *Follower) Lines() <-chan string {
	return f.ch
}

// Close stops following the file
func (f *Follower) Close() {
	if f.closed.CompareAndSwap(false, true) {
		close(f.done)
		_ = f.t.Stop()
		f.t.Cleanup()
	}
}

// FollowerSet tracks the active followers
type FollowerSet struct {
	mu        sync.RWMutex
	followers map[string]*Follower
	config    FollowConfig
	log       *zap.SugaredLogger
}

// NewFollowerSet creates an empty set
func NewFollowerSet(config FollowConfig, log *zap.SugaredLogger) *FollowerSet {
	return &FollowerSet{
		followers: make(map[string]*Follower),
		config:    config,
		log:       logger.OrNop(log),
	}
}

// Follow starts following path. The follower is removed from the set when
// it stops.
func (s *FollowerSet) Follow(ctx context.Context, path string) (*Follower, error) {
	f, err := newFollower(path, s.config, s.log)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.followers[f.id] = f
	s.mu.Unlock()

	go f.pump(ctx, s.remove)

	s.log.Debugw("follower started", "id", f.id, "path", path)
	return f, nil
}

func (s *FollowerSet) remove(id string) {
	s.mu.Lock()
	delete(s.followers, id)
	s.mu.Unlock()
}

// Count returns the number of active followers
func (s *FollowerSet) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.followers)
}

// Close stops every follower
func (s *FollowerSet) Close() {
	s.mu.Lock()
	followers := make([]*Follower, 0, len(s.followers))
	for _, f := range s.followers {
		followers = append(followers, f)
	}
	s.followers = make(map[string]*Follower)
	s.mu.Unlock()

	for _, f := range followers {
		f.Close()
	}
}
