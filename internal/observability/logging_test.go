package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogger_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Output: &buf, Format: "text", Level: "debug"})

	log.Infof("calling provider with api_key=sk-abcdefghijklmnopqrstuvwxyz")

	require.Contains(t, buf.String(), "[REDACTED]")
	require.NotContains(t, buf.String(), "sk-abcdefghijklmnopqrstuvwxyz")
}

func TestLogger_With_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Output: &buf, Format: "text"}).With("session", "cli:direct")

	log.Infof("turn started")

	require.Contains(t, buf.String(), "session=cli:direct")
}
