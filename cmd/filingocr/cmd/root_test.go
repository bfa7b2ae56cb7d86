package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "filingocr", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.Same(t, rootCmd, GetRootCommand())
}

func TestRootCommandHelp(t *testing.T) {
	isolate(t)
	out, _, err := executeCommand(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "financial disclosure filings")
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	isolate(t)
	out, _, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "filingocr version dev")
}

func TestRootCommandSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, expected := range []string{"extract", "batch", "serve", "config", "preprocess", "score"} {
		assert.Contains(t, names, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	isolate(t)
	_, _, err := executeCommand(t, "--no-such-flag")
	assert.Error(t, err)
}

func TestRootCommandMissingConfigFile(t *testing.T) {
	isolate(t)
	_, _, err := executeCommand(t, "--config", "missing.yaml", "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestRootCommandLogLevelFlag(t *testing.T) {
	isolate(t)
	_, _, err := executeCommand(t, "--log-level", "debug", "config", "show")
	require.NoError(t, err)
	assert.Equal(t, "debug", GetConfig().LogLevel)

	_, _, err = executeCommand(t, "--log-level", "loud", "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestRootCommandEnvironmentOverride(t *testing.T) {
	isolate(t)
	t.Setenv("FILINGOCR_PIPELINE_THRESHOLDS_ACCEPT", "0.9")

	out, _, err := executeCommand(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "accept: 0.9")
}
