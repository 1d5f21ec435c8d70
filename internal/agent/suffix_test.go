package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSuffixes_VisionAndCodex(t *testing.T) {
	got := ParseSuffixes("summarize this --vision --codex")
	require.Equal(t, "summarize this", got.Prompt)
	require.NotNil(t, got.ExternalCLI)
	require.Equal(t, "codex", got.ExternalCLI.Name)
	require.True(t, got.VisionEnabled)
}

func TestParseSuffixes_VisionCaseInsensitiveAnywhere(t *testing.T) {
	got := ParseSuffixes("do a --VISION task")
	require.True(t, got.VisionEnabled)
	require.Nil(t, got.ExternalCLI)
}

func TestParseSuffixes_VisionaryIsNotVision(t *testing.T) {
	got := ParseSuffixes("leave --visionary alone")
	require.False(t, got.VisionEnabled)
	require.Equal(t, "leave --visionary alone", got.Prompt)
}

func TestParseSuffixes_GeminiSuffix(t *testing.T) {
	got := ParseSuffixes("hello --gemini")
	require.NotNil(t, got.ExternalCLI)
	require.Equal(t, "gemini", got.ExternalCLI.Name)
	require.Equal(t, "hello", got.Prompt)
}

func TestParseSuffixes_NeverReproducesCodexInPrompt(t *testing.T) {
	got := ParseSuffixes("hello --codex")
	require.NotContains(t, got.Prompt, "--codex")
}

func TestParseSuffixes_NoSuffixesLeavesContentAlone(t *testing.T) {
	got := ParseSuffixes("just a plain message")
	require.Equal(t, "just a plain message", got.Prompt)
	require.Nil(t, got.ExternalCLI)
	require.False(t, got.VisionEnabled)
}
