package logs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/logan/internal/domain"
)

func appendTo(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case line, ok := <-ch:
		require.True(t, ok, "channel closed")
		return line
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for followed line")
		return ""
	}
}

func TestFollowerSet_StreamsAppendedLines(t *testing.T) {
	path := writeTemp(t, "old line\n")
	set := NewFollowerSet(FollowConfig{Poll: true}, nil)
	defer set.Close()

	f, err := set.Follow(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path())
	assert.Equal(t, 1, set.Count())

	// the start is fixed when Follow returns, so an immediate append is seen
	appendTo(t, path, "new one\nnew two\n")

	assert.Equal(t, "new one", receive(t, f.Lines()))
	assert.Equal(t, "new two", receive(t, f.Lines()))
}

func TestFollowerSet_ContextCancelStops(t *testing.T) {
	path := writeTemp(t, "x\n")
	set := NewFollowerSet(FollowConfig{Poll: true}, nil)
	defer set.Close()

	ctx, cancel := context.WithCancel(context.Background())
	f, err := set.Follow(ctx, path)
	require.NoError(t, err)

	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-f.Lines():
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool { return set.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestFollowerSet_UniqueIDs(t *testing.T) {
	path := writeTemp(t, "x\n")
	set := NewFollowerSet(FollowConfig{Poll: true}, nil)
	defer set.Close()

	a, err := set.Follow(context.Background(), path)
	require.NoError(t, err)
	b, err := set.Follow(context.Background(), path)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, set.Count())

	a.Close()
	a.Close() // idempotent
	assert.Eventually(t, func() bool { return set.Count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestFollowerSet_MissingFile(t *testing.T) {
	set := NewFollowerSet(FollowConfig{Poll: true}, nil)
	_, err := set.Follow(context.Background(), filepath.Join(t.TempDir(), "missing.log"))
	assert.ErrorIs(t, err, domain.ErrFileAccess)
}
