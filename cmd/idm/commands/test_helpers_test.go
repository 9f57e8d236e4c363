package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/idm-client/internal/fakeidm"
)

// setupFake starts a fake identity service and points the CLI environment at
// it. Tests using it must not run in parallel: viper is global.
func setupFake(t *testing.T) *fakeidm.Service {
	t.Helper()

	isolateConfig(t)

	svc, server := fakeidm.NewServer()
	t.Cleanup(server.Close)

	t.Setenv("IDM_CLIENT_ID", fakeidm.DefaultClientID)
	t.Setenv("IDM_SECRET", fakeidm.DefaultSecret)
	t.Setenv("IDM_ENDPOINT", server.URL)

	return svc
}

// isolateConfig resets viper and gives the test its own home directory.
func isolateConfig(t *testing.T) string {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	home := t.TempDir()
	t.Setenv("HOME", home)

	for _, key := range []string{"IDM_CLIENT_ID", "IDM_SECRET", "IDM_ENDPOINT", "IDM_OUTPUT", "IDM_PAGE_SIZE", "IDM_LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	return home
}

// executeCommand runs the idm root command with args and input on stdin.
func executeCommand(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	viper.Reset()

	root := NewRootCommand("1.2.3", "abc123", "2024-05-01")

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(input))
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

// executeJSON runs a command with JSON output and decodes the result into T.
func executeJSON[T any](t *testing.T, args ...string) T {
	t.Helper()

	out, err := executeCommand(t, "", append([]string{"--output", "json"}, args...)...)
	require.NoError(t, err, out)

	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)

	return v
}

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}
