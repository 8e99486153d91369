package logs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charliek/logan/internal/constants"
	"github.com/charliek/logan/internal/domain"
	"github.com/charliek/logan/internal/registry"
)

// ReadWindow returns at most numLines lines from the head or tail of the file
// registered for ownerID, top to bottom in file order. An owner missing from
// the snapshot fails with ErrUnknownOwner before any file is touched.
func ReadWindow(snap *registry.Snapshot, ownerID string, mode domain.WindowMode, numLines int) ([]string, error) {
	entry, ok := snap.Lookup(ownerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownOwner, ownerID)
	}
	return ReadFileWindow(entry.Path, mode, numLines)
}

// ReadFileWindow returns at most numLines lines from the head or tail of path
func ReadFileWindow(path string, mode domain.WindowMode, numLines int) ([]string, error) {
	if numLines <= 0 {
		return nil, fmt.Errorf("%w: line count must be positive, got %d", domain.ErrInvalidWindow, numLines)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFileAccess, err)
	}
	defer f.Close()

	var lines []string
	switch mode {
	case domain.WindowHead:
		lines, err = head(f, numLines)
	case domain.WindowTail:
		lines, err = tailLines(f, numLines)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidWindow, mode)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", domain.ErrFileAccess, path, err)
	}
	return lines, nil
}

func head(r io.Reader, n int) ([]string, error) {
	scanner := newLineScanner(r)
	lines := make([]string, 0, min(n, 256))
	for len(lines) < n && scanner.Scan() {
		lines = append(lines, trimCR(scanner.Text()))
	}
	return lines, scanner.Err()
}

// tailLines scans forward keeping only the last n lines
func tailLines(r io.Reader, n int) ([]string, error) {
	scanner := newLineScanner(r)
	buf := NewRingBuffer(n)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		buf.Write(domain.Line{Number: lineNo, Text: trimCR(scanner.Text())})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	kept := buf.Read()
	lines := make([]string, len(kept))
	for i, l := range kept {
		lines[i] = l.Text
	}
	return lines, nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, constants.ScannerBufferSize), constants.ScannerMaxBufferSize)
	return scanner
}

func trimCR(s string) string {
	return strings.TrimSuffix(s, "\r")
}
