package logs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/logan/internal/domain"
	"github.com/charliek/logan/internal/registry"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app-json.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadFileWindow(t *testing.T) {
	path := writeTemp(t, numberedLines(10))

	tests := []struct {
		name string
		mode domain.WindowMode
		n    int
		want []string
	}{
		{"head", domain.WindowHead, 3, []string{"line 1", "line 2", "line 3"}},
		{"tail", domain.WindowTail, 3, []string{"line 8", "line 9", "line 10"}},
		{"head one", domain.WindowHead, 1, []string{"line 1"}},
		{"tail one", domain.WindowTail, 1, []string{"line 10"}},
		{"head larger than file", domain.WindowHead, 50, splitLines(numberedLines(10))},
		{"tail larger than file", domain.WindowTail, 50, splitLines(numberedLines(10))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadFileWindow(path, tt.mode, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func TestReadFileWindow_NoTrailingNewline(t *testing.T) {
	path := writeTemp(t, "first\r\nsecond\r\nlast")

	got, err := ReadFileWindow(path, domain.WindowTail, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "last"}, got)
}

func TestReadFileWindow_InvalidCount(t *testing.T) {
	path := writeTemp(t, "x\n")
	for _, n := range []int{0, -1} {
		_, err := ReadFileWindow(path, domain.WindowHead, n)
		assert.ErrorIs(t, err, domain.ErrInvalidWindow)
	}
}

func TestReadFileWindow_InvalidMode(t *testing.T) {
	path := writeTemp(t, "x\n")
	_, err := ReadFileWindow(path, domain.WindowMode("middle"), 1)
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}

func TestReadFileWindow_MissingFile(t *testing.T) {
	_, err := ReadFileWindow(filepath.Join(t.TempDir(), "missing.log"), domain.WindowTail, 5)
	assert.ErrorIs(t, err, domain.ErrFileAccess)
}

func TestReadWindow_UnknownOwner(t *testing.T) {
	snap := registry.NewSnapshot([]domain.LogFileEntry{
		{OwnerID: "abc123", Path: "/does/not/exist", SizeBytes: 1, DisplayName: "web"},
	})

	_, err := ReadWindow(snap, "nope", domain.WindowTail, 5)
	assert.ErrorIs(t, err, domain.ErrUnknownOwner)

	// registered owner whose file vanished is a file error, not unknown owner
	_, err = ReadWindow(snap, "abc123", domain.WindowTail, 5)
	assert.ErrorIs(t, err, domain.ErrFileAccess)
}

func TestReadWindow_HeadAndTailAgreeOnSmallFiles(t *testing.T) {
	path := writeTemp(t, "start\nERROR disk full\nend\n")
	snap := registry.NewSnapshot([]domain.LogFileEntry{
		{OwnerID: "abc123", Path: path, SizeBytes: 26, DisplayName: "web_1"},
	})

	head, err := ReadWindow(snap, "abc123", domain.WindowHead, 200)
	require.NoError(t, err)
	tail, err := ReadWindow(snap, "abc123", domain.WindowTail, 200)
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "ERROR disk full", "end"}, head)
	assert.Equal(t, head, tail)
}
