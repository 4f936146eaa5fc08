package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/omrscan/internal/config"
)

// isolate keeps the search paths away from any real configuration.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

// executeCommand runs the root command and captures stdout and stderr.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := GetRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := GetRootCommand()
	assert.Equal(t, "omrscan", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"scan", "layout", "config", "version"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "verbose", "log-level", "debug"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRootCommandHelp(t *testing.T) {
	out, _, err := executeCommand(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "bubble sheets")
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "Usage:")
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, errOut, err := executeCommand(t, "--invalid-flag")
	require.Error(t, err)
	assert.Contains(t, errOut, "unknown flag")
}

func TestRootCommandFreshTree(t *testing.T) {
	a := GetRootCommand()
	b := GetRootCommand()
	assert.NotSame(t, a, b)
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	out, _, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "omrscan "))
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level   string
		verbose bool
		want    string
	}{
		{"info", false, "INFO"},
		{"debug", false, "DEBUG"},
		{"warn", false, "WARN"},
		{"error", false, "ERROR"},
		{"bogus", false, "INFO"},
		{"error", true, "DEBUG"},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.LogLevel = tt.level
			cfg.Verbose = tt.verbose
			assert.Equal(t, tt.want, logLevel(&cfg).String())
		})
	}
}

func TestConfigInitAndShow(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "omrscan.yaml")

	out, _, err := executeCommand(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default configuration to "+path)
	require.FileExists(t, path)

	out, _, err = executeCommand(t, "config", "show", "--config", path, "--log-level", "warn")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration file used: "+path)
	assert.Contains(t, out, "log_level: warn")
	assert.Contains(t, out, "undersized_policy: keep")
	assert.NotContains(t, out, "Validation:")
}

func TestConfigShowEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("OMRSCAN_BATCH_MAX_PAGES", "7")

	out, _, err := executeCommand(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_pages: 7")
}

func TestConfigShowReportsInvalidValues(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("barcode:\n  format: aztec\n"), 0o600))

	out, _, err := executeCommand(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Validation: invalid barcode format")
}

func TestMissingConfigFile(t *testing.T) {
	isolate(t)
	_, _, err := executeCommand(t, "version", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file does not exist")
}

