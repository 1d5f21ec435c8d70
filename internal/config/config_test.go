package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaultsForOmittedFields(t *testing.T) {
	path := writeConfig(t, "llm:\n  provider: openai\n  api_key: sk-test\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 20, cfg.Agent.MemoryWindow)
	require.Equal(t, 10, cfg.Agent.MaxIterations)
	require.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
}

func TestLoad_RejectsZeroMemoryWindow(t *testing.T) {
	path := writeConfig(t, "agent:\n  memory_window: 0\nllm:\n  provider: openai\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, "llm:\n  provider: not-a-provider\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
