package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}

	cfg, shouldExit, err := Parse([]string{"wf.json"}, out)

	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, "wf.json", cfg.WorkflowPath)
	assert.Empty(t, cfg.ServerURL)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.Timeout)
	assert.False(t, cfg.ListNodes)
	assert.False(t, cfg.Validate)
}

func TestParse_AllFlags(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}

	cfg, shouldExit, err := Parse([]string{
		"--server", "http://example.com:8188",
		"--config", "profile.hcl",
		"--client-id", "session-1",
		"--set", "3.seed=42",
		"--set", "Prompt.text=a cat",
		"--output", "9",
		"--output", "12",
		"--out-dir", "/tmp/renders",
		"--timeout", "5m",
		"--list-nodes",
		"--validate",
		"--log-format", "json",
		"--log-level", "debug",
		"wf.json",
	}, out)

	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, "http://example.com:8188", cfg.ServerURL)
	assert.Equal(t, "profile.hcl", cfg.ProfilePath)
	assert.Equal(t, "session-1", cfg.ClientID)
	assert.Equal(t, []string{"3.seed=42", "Prompt.text=a cat"}, cfg.Sets)
	assert.Equal(t, []string{"9", "12"}, cfg.OutputNodes)
	assert.Equal(t, "/tmp/renders", cfg.OutDir)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
	assert.True(t, cfg.ListNodes)
	assert.True(t, cfg.Validate)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}

	cfg, shouldExit, err := Parse(nil, out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Help(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}

	cfg, shouldExit, err := Parse([]string{"-h"}, out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
}

func TestParse_Validation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{
			name:    "unknown flag",
			args:    []string{"--bogus", "wf.json"},
			wantMsg: "flag provided but not defined",
		},
		{
			name:    "bad log format",
			args:    []string{"--log-format", "xml", "wf.json"},
			wantMsg: "invalid log-format",
		},
		{
			name:    "bad log level",
			args:    []string{"--log-level", "loud", "wf.json"},
			wantMsg: "invalid log-level",
		},
		{
			name:    "malformed set",
			args:    []string{"--set", "no-equals", "wf.json"},
			wantMsg: "expected node.param=value",
		},
		{
			name:    "negative timeout",
			args:    []string{"--timeout", "-1s", "wf.json"},
			wantMsg: "invalid timeout",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := &bytes.Buffer{}

			cfg, _, err := Parse(tc.args, out)

			require.Error(t, err)
			assert.Nil(t, cfg)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}

func TestParse_LogOptionsAreCaseInsensitive(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}

	cfg, _, err := Parse([]string{"--log-format", "JSON", "--log-level", "WARN", "wf.json"}, out)

	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "warn", cfg.LogLevel)
}
