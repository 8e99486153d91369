package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/logan/internal/domain"
)

func TestNewSnapshot_LastRegistrationWins(t *testing.T) {
	s := NewSnapshot([]domain.LogFileEntry{
		{OwnerID: "abc123", Path: "/old/abc123-json.log", SizeBytes: 10, DisplayName: "web_1"},
		{OwnerID: "def456", Path: "/logs/def456-json.log", SizeBytes: 5, DisplayName: "api_1"},
		{OwnerID: "abc123", Path: "/new/abc123-json.log", SizeBytes: 20, DisplayName: "web_1"},
	})

	assert.Equal(t, 2, s.Len())

	e, ok := s.Lookup("abc123")
	require.True(t, ok)
	assert.Equal(t, "/new/abc123-json.log", e.Path)
	assert.Equal(t, int64(20), e.SizeBytes)

	assert.True(t, s.HasPath("/new/abc123-json.log"))
	assert.False(t, s.HasPath("/old/abc123-json.log"))

	_, ok = s.Lookup("unknown-id")
	assert.False(t, ok)
}

func TestSnapshot_EntriesOrdered(t *testing.T) {
	s := NewSnapshot([]domain.LogFileEntry{
		{OwnerID: "c", DisplayName: "worker"},
		{OwnerID: "b", DisplayName: "api"},
		{OwnerID: "a", DisplayName: "worker"},
	})

	entries := s.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "b", entries[0].OwnerID)
	assert.Equal(t, "a", entries[1].OwnerID)
	assert.Equal(t, "c", entries[2].OwnerID)

	// Callers get a copy
	entries[0].OwnerID = "mutated"
	assert.Equal(t, "b", s.Entries()[0].OwnerID)
}

func TestRegistry_Publish(t *testing.T) {
	r := New()
	require.NotNil(t, r.Snapshot())
	assert.Equal(t, 0, r.Snapshot().Len())

	first := NewSnapshot([]domain.LogFileEntry{{OwnerID: "a", Path: "/a-json.log"}})
	r.Publish(first)
	assert.Same(t, first, r.Snapshot())

	r.Publish(nil)
	assert.Equal(t, 0, r.Snapshot().Len())
}

func TestRegistry_ConcurrentReadersSeeCompleteSnapshots(t *testing.T) {
	r := New()
	small := NewSnapshot([]domain.LogFileEntry{{OwnerID: "a"}})
	large := NewSnapshot([]domain.LogFileEntry{{OwnerID: "a"}, {OwnerID: "b"}, {OwnerID: "c"}})

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if i%2 == 0 {
				r.Publish(small)
			} else {
				r.Publish(large)
			}
		}
		close(stop)
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				n := r.Snapshot().Len()
				if n != 0 && n != 1 && n != 3 {
					t.Errorf("observed partial snapshot with %d entries", n)
					return
				}
			}
		}()
	}

	wg.Wait()
}
