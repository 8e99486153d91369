package integration

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCLI_ListHeadTail(t *testing.T) {
	skipShort(t)
	_, binary := startTree(t)

	out, err := runLogan(t, binary, "list")
	requireNoError(t, err, "list failed: "+out)
	for _, want := range []string{"abc123", "web", "def456", "worker"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}

	out, err = runLogan(t, binary, "tail", "def456", "-n", "2")
	requireNoError(t, err, "tail failed: "+out)
	if out != "four\nfive\n" {
		t.Errorf("unexpected tail output: %q", out)
	}

	out, err = runLogan(t, binary, "head", "def456", "-n", "1")
	requireNoError(t, err, "head failed: "+out)
	if out != "one\n" {
		t.Errorf("unexpected head output: %q", out)
	}
}

func TestCLI_Search(t *testing.T) {
	skipShort(t)
	_, binary := startTree(t)

	out, err := runLogan(t, binary, "search", "logout", "-B", "0", "-A", "0")
	requireNoError(t, err, "search failed: "+out)
	if !strings.Contains(out, "4:user=abc123 logout") {
		t.Errorf("expected match line in output:\n%s", out)
	}
	if strings.Contains(out, "3-request ok") {
		t.Errorf("expected no context with -B 0:\n%s", out)
	}

	out, err = runLogan(t, binary, "search", "nothing-matches-this")
	requireNoError(t, err, "search failed: "+out)
	if !strings.Contains(out, "No results found for search expression") {
		t.Errorf("expected no results message, got:\n%s", out)
	}
}

func TestCLI_UnknownOwner(t *testing.T) {
	skipShort(t)
	_, binary := startTree(t)

	out, err := runLogan(t, binary, "tail", "fff000")
	if err == nil {
		t.Fatalf("expected tail of unknown owner to fail, got:\n%s", out)
	}
	if !strings.Contains(out, "refusing to process unknown file") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestCLI_Rescan(t *testing.T) {
	skipShort(t)
	_, binary := startTree(t)

	out, err := runLogan(t, binary, "rescan")
	requireNoError(t, err, "rescan failed: "+out)
	if !strings.Contains(out, "Registered 2 log files") {
		t.Errorf("unexpected rescan output: %s", out)
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	skipShort(t)

	tree := newLogTree(t, map[string]string{"abc123": "hello\n"}, map[string]string{"abc123": "web"})
	binary := buildBinary(t)
	cmd := startLogan(t, binary, "serve", "-c", tree.config)
	defer killLogan(cmd)

	waitForAPI(t, testAPIAddr, 10*time.Second)

	if err := stopLogan(cmd, 15*time.Second); err != nil {
		t.Fatalf("expected clean exit on SIGTERM, got %v", err)
	}
}

func TestServe_InvalidConfig(t *testing.T) {
	skipShort(t)

	binary := buildBinary(t)
	out, err := runLogan(t, binary, "serve", "-c", filepath.Join(projectRoot(t), "testdata", "configs", "invalid_no_roots.yaml"))
	if err == nil {
		t.Fatalf("expected serve to fail, got:\n%s", out)
	}
	if !strings.Contains(out, "discovery.roots") {
		t.Errorf("expected roots validation error, got:\n%s", out)
	}
}
