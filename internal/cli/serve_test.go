package cli

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charliek/logan/internal/config"
	"github.com/charliek/logan/internal/domain"
	"github.com/charliek/logan/internal/logger"
)

func newTestService(t *testing.T) (*service, string) {
	t.Helper()
	root := t.TempDir()
	for id, content := range map[string]string{
		"abc123": "boot\nERROR disk full\nrecovered\n",
		"def456": "one\ntwo\nthree\n",
		"zzz999": "owner not configured\n",
	} {
		path := filepath.Join(root, id, id+"-json.log")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg, err := config.Parse([]byte(`
discovery:
  roots: [`+root+`]
docker:
  enabled: false
owners:
  abc123: web
  def456: worker
search:
  before: 1
  after: 1
`), config.FormatYAML)
	if err != nil {
		t.Fatalf("parsing config: %v", err)
	}

	svc, err := newService(cfg, logger.OrNop(nil))
	if err != nil {
		t.Fatalf("creating service: %v", err)
	}
	return svc, root
}

// startService runs svc on a loopback listener and returns its base URL
// and a stop function that waits for run to return.
func startService(t *testing.T, svc *service) (string, func() error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.run(ctx, ln) }()

	baseURL := "http://" + ln.Addr().String()
	waitForFiles(t, NewClient(baseURL))

	stop := func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("service did not stop")
			return nil
		}
	}
	return baseURL, stop
}

func waitForFiles(t *testing.T, client *Client) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := client.GetFiles(); err == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("service did not become ready")
}

func TestService_ServesRegisteredFiles(t *testing.T) {
	svc, _ := newTestService(t)
	baseURL, stop := startService(t, svc)
	client := NewClient(baseURL)

	files, err := client.GetFiles()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files.Count != 2 {
		t.Fatalf("expected 2 registered files (unresolved owner skipped), got %d", files.Count)
	}
	if files.Files[0].Name != "web" || files.Files[1].Name != "worker" {
		t.Errorf("unexpected order: %+v", files.Files)
	}

	window, err := client.GetWindow("def456", domain.WindowTail, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(window.Lines, ",") != "two,three" {
		t.Errorf("unexpected tail: %v", window.Lines)
	}

	result, err := client.Search(SearchParams{Expression: "ERROR"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalMatches != 1 || result.Before != 1 || result.After != 1 {
		t.Fatalf("unexpected search result: %+v", result)
	}
	if got := len(result.Files[0].Matches[0].Context); got != 3 {
		t.Errorf("expected 3 context lines, got %d", got)
	}

	_, err = client.GetWindow("zzz999", domain.WindowHead, 0)
	if err == nil || !strings.Contains(err.Error(), domain.ErrCodeUnknownOwner) {
		t.Errorf("expected unknown owner error, got %v", err)
	}

	if err := stop(); err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}

func TestService_RescanPicksUpNewFiles(t *testing.T) {
	svc, root := newTestService(t)
	baseURL, stop := startService(t, svc)
	defer stop()
	client := NewClient(baseURL)

	// the file moves below a new directory; only a rescan registers the new path
	path := filepath.Join(root, "def456", "rotated", "def456-json.log")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(root, "def456", "def456-json.log")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("moved\n"), 0644); err != nil {
		t.Fatal(err)
	}

	resp, err := client.Discover()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Files != 2 {
		t.Errorf("expected 2 files after rescan, got %d", resp.Files)
	}

	window, err := client.GetWindow("def456", domain.WindowHead, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(window.Lines) != 1 || window.Lines[0] != "moved" {
		t.Errorf("expected the moved file to be served, got %v", window.Lines)
	}
}

func TestService_Metrics(t *testing.T) {
	svc, _ := newTestService(t)

	families, err := svc.registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	if !names["go_goroutines"] {
		t.Error("expected Go runtime collector to be registered")
	}
}

func TestService_WatcherEnabled(t *testing.T) {
	svc, _ := newTestService(t)
	if svc.watcher != nil {
		t.Error("expected no watcher without discovery.watch")
	}

	watched, _ := newTestServiceWithWatch(t)
	if watched.watcher == nil {
		t.Fatal("expected watcher when discovery.watch is set")
	}
	if len(watched.watcher.WatchList()) == 0 {
		t.Error("expected the discovery root to be watched")
	}

	// Run closes the fsnotify watcher once ctx is done
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	watched.watcher.Run(ctx)
}

func newTestServiceWithWatch(t *testing.T) (*service, string) {
	t.Helper()
	root := t.TempDir()
	cfg, err := config.Parse([]byte(`
discovery:
  roots: [`+root+`]
  watch: true
  watch_debounce: 50ms
docker:
  enabled: false
`), config.FormatYAML)
	if err != nil {
		t.Fatalf("parsing config: %v", err)
	}
	svc, err := newService(cfg, nil)
	if err != nil {
		t.Fatalf("creating service: %v", err)
	}
	return svc, root
}

func TestManagerConfigFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
discovery:
  roots: [/tmp]
window:
  default_lines: 50
  max_lines: 500
search:
  before: 0
  after: 4
  workers: 3
  file_timeout: 2s
`), config.FormatYAML)
	if err != nil {
		t.Fatal(err)
	}

	mc := managerConfig(cfg)
	if mc.DefaultLines != 50 || mc.MaxLines != 500 {
		t.Errorf("unexpected window limits: %+v", mc)
	}
	if mc.DefaultBefore != 0 || mc.DefaultAfter != 4 {
		t.Errorf("unexpected context defaults: before=%d after=%d", mc.DefaultBefore, mc.DefaultAfter)
	}
	if mc.Search.Workers != 3 || mc.Search.FileTimeout != 2*time.Second {
		t.Errorf("unexpected search config: %+v", mc.Search)
	}
}
