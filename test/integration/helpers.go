//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	Endpoint string
	ClientID string
	Secret   string
	IDMPath  string
	Verbose  bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		Endpoint: os.Getenv("IDM_ENDPOINT"),
		ClientID: os.Getenv("IDM_CLIENT_ID"),
		Secret:   os.Getenv("IDM_SECRET"),
		IDMPath:  getIDMPath(),
		Verbose:  os.Getenv("IDM_VERBOSE") == "true",
	}
}

// getIDMPath determines the path to the idm binary.
func getIDMPath() string {
	if path := os.Getenv("IDM_BINARY_PATH"); path != "" {
		return path
	}

	for _, candidate := range []string{"../../idm", "./idm", "../idm"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "idm"
}

// SkipIfMissingCredentials skips the test unless vendor credentials are set.
func (config *TestConfig) SkipIfMissingCredentials(t *testing.T) {
	t.Helper()

	if config.ClientID == "" || config.Secret == "" {
		t.Skip("IDM_CLIENT_ID or IDM_SECRET not set, skipping integration test")
	}
}

// SkipIfMissingBinary additionally skips CLI tests when idm is not built.
func (config *TestConfig) SkipIfMissingBinary(t *testing.T) {
	t.Helper()

	config.SkipIfMissingCredentials(t)

	if _, err := exec.LookPath(config.IDMPath); err != nil {
		t.Skipf("idm binary not found at %s, skipping integration test", config.IDMPath)
	}
}

// CommandRunner runs idm commands against the configured service. The
// credentials reach the binary through its environment.
type CommandRunner struct {
	config *TestConfig
	t      *testing.T
}

// NewCommandRunner creates a new command runner.
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	return &CommandRunner{config: config, t: t}
}

// Run executes an idm command and returns its output.
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	return runner.RunWithInput("", args...)
}

// RunWithInput executes an idm command with input on stdin.
func (runner *CommandRunner) RunWithInput(input string, args ...string) (stdout, stderr string, err error) {
	cmd := exec.Command(runner.config.IDMPath, args...) //nolint:gosec // test binary
	cmd.Env = append(os.Environ(),
		"HOME="+runner.t.TempDir(),
		"IDM_CLIENT_ID="+runner.config.ClientID,
		"IDM_SECRET="+runner.config.Secret,
		"IDM_ENDPOINT="+runner.config.Endpoint,
	)

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	cmd.Stdin = strings.NewReader(input)

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.IDMPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// RunJSON runs a command with JSON output and decodes it into v.
func (runner *CommandRunner) RunJSON(v interface{}, args ...string) error {
	stdout, stderr, err := runner.Run(append([]string{"--output", "json"}, args...)...)
	if err != nil {
		return fmt.Errorf("idm %s: %w: %s", strings.Join(args, " "), err, stderr)
	}

	return json.Unmarshal([]byte(stdout), v)
}

// CleanupResource deletes a test tenant or user, logging failures.
func (runner *CommandRunner) CleanupResource(resourceType, id string) {
	var args []string

	switch resourceType {
	case "tenant":
		args = []string{"tenants", "delete", id, "--force"}
	case "user":
		args = []string{"users", "delete", id, "--force"}
	default:
		runner.t.Logf("Unknown resource type for cleanup: %s", resourceType)

		return
	}

	stdout, stderr, err := runner.Run(args...)
	if err != nil && runner.config.Verbose {
		runner.t.Logf("Cleanup warning for %s %s: %s\nStderr: %s", resourceType, id, stdout, stderr)
	}
}

// GenerateTestName creates a unique test resource name.
func GenerateTestName(prefix string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().Unix(), uuid.NewString()[:8])
}

// GenerateTestEmail creates a unique address on a reserved domain.
func GenerateTestEmail(prefix string) string {
	return GenerateTestName(prefix) + "@example.com"
}
