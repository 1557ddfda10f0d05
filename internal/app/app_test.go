package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/comfygridgo/internal/config"
	"github.com/vk/comfygridgo/internal/workflow"
)

const testDoc = `{
	"3": {"inputs": {"seed": 42, "steps": 20}, "class_type": "KSampler", "_meta": {"title": "Sampler"}},
	"6": {"inputs": {"text": "a cat"}, "class_type": "CLIPTextEncode", "_meta": {"title": "Prompt"}}
}`

func TestNewConfigRequiresWorkflowPath(t *testing.T) {
	_, err := NewConfig(Config{})
	require.Error(t, err)

	cfg, err := NewConfig(Config{WorkflowPath: "wf.json"})
	require.NoError(t, err)
	assert.Equal(t, "wf.json", cfg.WorkflowPath)
}

func TestApplyOverrides(t *testing.T) {
	parse := func(t *testing.T) *workflow.Workflow {
		wf, err := workflow.Parse([]byte(testDoc))
		require.NoError(t, err)
		return wf
	}

	t.Run("by node id", func(t *testing.T) {
		wf := parse(t)
		require.NoError(t, applyOverrides(wf, []string{"3.seed=7"}))
		v, err := wf.Param("3", "seed")
		require.NoError(t, err)
		assert.Equal(t, json.Number("7"), v)
	})

	t.Run("by node title", func(t *testing.T) {
		wf := parse(t)
		require.NoError(t, applyOverrides(wf, []string{"Prompt.text=a dog"}))
		v, err := wf.Param("6", "text")
		require.NoError(t, err)
		assert.Equal(t, "a dog", v)
	})

	t.Run("malformed override", func(t *testing.T) {
		wf := parse(t)
		assert.Error(t, applyOverrides(wf, []string{"no-equals-sign"}))
		assert.Error(t, applyOverrides(wf, []string{"noparam=1"}))
	})

	t.Run("unknown node", func(t *testing.T) {
		wf := parse(t)
		assert.ErrorIs(t, applyOverrides(wf, []string{"999.seed=1"}), workflow.ErrNodeNotFound)
	})
}

func TestResolveClientConfig(t *testing.T) {
	t.Run("flag beats profile", func(t *testing.T) {
		profile := &config.Profile{Server: &config.Server{URL: "http://profile:8188"}}
		cfg, err := resolveClientConfig(&Config{ServerURL: "http://flag:8188"}, profile)
		require.NoError(t, err)
		assert.Equal(t, "http://flag:8188", cfg.BaseURL)
	})

	t.Run("profile beats environment", func(t *testing.T) {
		t.Setenv("COMFYGRID_SERVER", "http://env:8188")
		profile := &config.Profile{Server: &config.Server{URL: "http://profile:8188"}}
		cfg, err := resolveClientConfig(&Config{}, profile)
		require.NoError(t, err)
		assert.Equal(t, "http://profile:8188", cfg.BaseURL)
	})

	t.Run("environment fills the gaps", func(t *testing.T) {
		t.Setenv("COMFYGRID_SERVER", "http://env:8188")
		t.Setenv("COMFYGRID_USER", "u")
		t.Setenv("COMFYGRID_PASSWORD", "p")
		cfg, err := resolveClientConfig(&Config{}, nil)
		require.NoError(t, err)
		assert.Equal(t, "http://env:8188", cfg.BaseURL)
		assert.Equal(t, "u", cfg.User)
		assert.Equal(t, "p", cfg.Password)
	})

	t.Run("retry block maps to listener config", func(t *testing.T) {
		profile := &config.Profile{Retry: &config.Retry{ReconnectInterval: "250ms", MaxRetries: 7}}
		cfg, err := resolveClientConfig(&Config{}, profile)
		require.NoError(t, err)
		assert.Equal(t, 250*time.Millisecond, cfg.Reconnect.ReconnectInterval)
		assert.Equal(t, uint64(7), cfg.Reconnect.MaxRetries)
	})
}

func TestRunListNodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wf.json")
	require.NoError(t, os.WriteFile(path, []byte(testDoc), 0o644))

	appConfig, err := NewConfig(Config{WorkflowPath: path, ListNodes: true, LogLevel: "error"})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	a, err := NewApp(out, appConfig)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "3\tSampler")
	assert.Contains(t, out.String(), "6\tPrompt")
}
