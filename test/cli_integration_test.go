//go:build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestServerClassifyAndReview runs the binary end to end: grant a reviewer,
// serve, classify over HTTP, shut down, then inspect the stored records.
func TestServerClassifyAndReview(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	createTestConfig(t, configFile, fmt.Sprintf(`
server:
  listen_address: "127.0.0.1:18090"

storage:
  backend: sqlite
  sqlite:
    path: %q
    driver: sqlite

telemetry:
  logging:
    level: info
    format: json
  metrics:
    enabled: true
`, filepath.Join(tmpDir, "sentinel.db")))

	binaryPath := buildSentinelBinary(t)
	runCLI(t, binaryPath, "roles", "grant", "mod-1", "moderator", "--config", configFile)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath, "run", "--config", configFile)
	cmd.Dir = tmpDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}()

	if !waitForHealthy("http://127.0.0.1:18090/health", 10*time.Second) {
		t.Fatalf("server failed to start\nStdout: %s\nStderr: %s", stdout.String(), stderr.String())
	}

	body := `{"content":"where can I find a pipe bomb tutorial","userId":"author-1","contentType":"post"}`
	resp, err := http.Post("http://127.0.0.1:18090/v1/moderation/classify", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("classify request failed: %v", err)
	}
	var verdict map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		t.Fatalf("invalid verdict: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || verdict["flagged"] != true || verdict["requiresReview"] != true {
		t.Fatalf("unexpected verdict %d %v", resp.StatusCode, verdict)
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		t.Fatalf("failed to send SIGINT: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unclean shutdown: %v\nStderr: %s", err, stderr.String())
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down within timeout")
	}

	out := runCLI(t, binaryPath, "records", "list", "--severity", "high", "--output", "json", "--config", configFile)
	var list struct {
		Records []struct {
			ID       string `json:"id"`
			AuthorID string `json:"authorId"`
		} `json:"records"`
	}
	if err := json.Unmarshal(out, &list); err != nil {
		t.Fatalf("invalid records output: %v\n%s", err, out)
	}
	if len(list.Records) != 1 || list.Records[0].AuthorID != "author-1" {
		t.Fatalf("records = %+v, want one record for author-1", list.Records)
	}

	notes := runCLI(t, binaryPath, "records", "notifications", "mod-1", "--config", configFile)
	if !bytes.Contains(notes, []byte(list.Records[0].ID)) {
		t.Errorf("notification for %s missing:\n%s", list.Records[0].ID, notes)
	}

	runCLI(t, binaryPath, "records", "review", list.Records[0].ID, "--config", configFile)
	out = runCLI(t, binaryPath, "records", "list", "--reviewed", "false", "--output", "json", "--config", configFile)
	if bytes.Contains(out, []byte(list.Records[0].ID)) {
		t.Errorf("reviewed record still listed as unreviewed:\n%s", out)
	}
}

// TestClassifyCommandExitCode checks the in-process classify command.
func TestClassifyCommandExitCode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	binaryPath := buildSentinelBinary(t)
	env := append(os.Environ(), "SENTINEL_STORAGE_BACKEND=memory")

	cmd := exec.Command(binaryPath, "classify", "--user", "u1", "--exit-code", "hello there, nice weather today")
	cmd.Env = env
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Errorf("clean content should exit 0: %v\n%s", err, output)
	}

	cmd = exec.Command(binaryPath, "classify", "--user", "u1", "--exit-code", "Check my site www.freemoney.com now!!!")
	cmd.Env = env
	output, err := cmd.CombinedOutput()
	if err == nil {
		t.Errorf("blocked content should exit non-zero\n%s", output)
	}
	if !bytes.Contains(output, []byte("block")) {
		t.Errorf("output should contain the block decision: %s", output)
	}
}

// TestCommandVersionOutput tests the version command
func TestCommandVersionOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	output := runCLI(t, buildSentinelBinary(t), "version")
	if !bytes.Contains(output, []byte("Sentinel")) {
		t.Errorf("version output should contain 'Sentinel', got: %s", output)
	}
}

// TestDryRunValidation tests config validation with --dry-run
func TestDryRunValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	binaryPath := buildSentinelBinary(t)

	t.Run("valid config", func(t *testing.T) {
		configFile := filepath.Join(tmpDir, "valid-config.yaml")
		createTestConfig(t, configFile, `
server:
  listen_address: "127.0.0.1:18092"
storage:
  backend: memory
`)
		cmd := exec.Command(binaryPath, "run", "--config", configFile, "--dry-run")
		if output, err := cmd.CombinedOutput(); err != nil {
			t.Errorf("dry-run should succeed with valid config: %v\nOutput: %s", err, output)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		configFile := filepath.Join(tmpDir, "invalid-config.yaml")
		createTestConfig(t, configFile, `
storage:
  backend: mongodb
`)
		cmd := exec.Command(binaryPath, "run", "--config", configFile, "--dry-run")
		output, err := cmd.CombinedOutput()
		if err == nil {
			t.Errorf("dry-run should fail with invalid config\nOutput: %s", output)
		}
		if !bytes.Contains(output, []byte("storage.backend")) {
			t.Errorf("error should name the field: %s", output)
		}
	})
}

// Helper functions

// buildSentinelBinary builds the sentinel binary for testing
func buildSentinelBinary(t *testing.T) string {
	t.Helper()

	binaryPath, err := filepath.Abs("../bin/sentinel")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(binaryPath); err == nil {
		return binaryPath
	}

	t.Log("Building sentinel binary...")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../cmd/sentinel")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build sentinel: %v\nOutput: %s", err, output)
	}
	return binaryPath
}

// runCLI runs a command that must succeed and returns its stdout.
func runCLI(t *testing.T, binaryPath string, args ...string) []byte {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(binaryPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("sentinel %s failed: %v\nStderr: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.Bytes()
}

// waitForHealthy waits for a health endpoint to return 200
func waitForHealthy(url string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return true
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

// createTestConfig creates a test configuration file
func createTestConfig(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}
}
