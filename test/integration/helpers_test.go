package integration

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

const (
	testAPIPort = 15580
	testAPIAddr = "http://127.0.0.1:15580"
)

// buildBinary builds the logan binary and returns its path
func buildBinary(t *testing.T) string {
	t.Helper()

	binary := filepath.Join(t.TempDir(), "logan")

	cmd := exec.Command("go", "build", "-o", binary, "./cmd/logan")
	cmd.Dir = projectRoot(t)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build binary: %v\n%s", err, output)
	}

	return binary
}

// projectRoot is two directories up from test/integration
func projectRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	return filepath.Join(wd, "..", "..")
}

// logTree holds a temporary discovery root and the config pointing at it
type logTree struct {
	root   string
	config string
}

// newLogTree writes container-style log files below a temp root and a
// config registering them under static owner names.
func newLogTree(t *testing.T, files map[string]string, owners map[string]string) *logTree {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "containers")

	for id, content := range files {
		writeLog(t, root, id, content)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "api:\n  host: 127.0.0.1\n  port: %d\n", testAPIPort)
	fmt.Fprintf(&b, "discovery:\n  roots: [%s]\n  watch: true\n  watch_debounce: 100ms\n", root)
	b.WriteString("docker:\n  enabled: false\n")
	b.WriteString("owners:\n")
	for id, name := range owners {
		fmt.Fprintf(&b, "  %s: %s\n", id, name)
	}
	b.WriteString("search:\n  before: 1\n  after: 1\n")

	config := filepath.Join(dir, "logan.yaml")
	if err := os.WriteFile(config, []byte(b.String()), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	return &logTree{root: root, config: config}
}

// writeLog writes <root>/<id>/<id>-json.log
func writeLog(t *testing.T, root, id, content string) string {
	t.Helper()
	path := filepath.Join(root, id, id+"-json.log")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create log dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write log: %v", err)
	}
	return path
}

// waitForAPI waits for the API to be ready
func waitForAPI(t *testing.T, addr string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(addr + "/api/v1/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("API did not become ready within %v", timeout)
}

// startLogan starts the logan binary with the given arguments
func startLogan(t *testing.T, binary string, args ...string) *exec.Cmd {
	t.Helper()

	cmd := exec.Command(binary, args...)
	cmd.Dir = projectRoot(t)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start logan: %v", err)
	}

	return cmd
}

// runLogan runs a client command to completion and returns its output
func runLogan(t *testing.T, binary string, args ...string) (string, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, append([]string{"--addr", testAPIAddr}, args...)...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// stopLogan sends SIGTERM and waits for the process to exit
func stopLogan(cmd *exec.Cmd, timeout time.Duration) error {
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		killLogan(cmd)
		return fmt.Errorf("logan did not exit within %v", timeout)
	}
}

// killLogan forcefully kills the logan process
func killLogan(cmd *exec.Cmd) {
	if cmd != nil && cmd.Process != nil && cmd.ProcessState == nil {
		cmd.Process.Kill()
		cmd.Wait()
	}
}

// requireNoError fails the test if err is not nil
func requireNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}

// skipShort skips the test if -short flag is provided
func skipShort(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}
