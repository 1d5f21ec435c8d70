package heartbeat

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHeartbeatEmpty_BlankAndCommentOnlyContent(t *testing.T) {
	require.True(t, heartbeatEmpty(""))
	require.True(t, heartbeatEmpty("   \n\n  "))
	require.True(t, heartbeatEmpty("# Notes\n\n<!-- nothing here -->\n- [ ]\n* [x]\n"))
}

func TestHeartbeatEmpty_ActionableLineIsNotEmpty(t *testing.T) {
	require.False(t, heartbeatEmpty("# Notes\n\nRemember to check the backups.\n"))
}

func TestService_TickFiresOnNonEmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "HEARTBEAT.md"), []byte("Check backups\n"), 0o644))

	calls := 0
	svc := New(dir, func(string) string { calls++; return "HEARTBEAT_OK" }, time.Hour, true, nil)
	svc.tick()
	require.Equal(t, 1, calls)
}

func TestService_TickSkipsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "HEARTBEAT.md"), []byte("# just a heading\n"), 0o644))

	calls := 0
	svc := New(dir, func(string) string { calls++; return "" }, time.Hour, true, nil)
	svc.tick()
	require.Equal(t, 0, calls)
}

func TestService_DisabledWithoutCallback(t *testing.T) {
	svc := New(t.TempDir(), nil, time.Hour, true, nil)
	svc.Start()
	svc.Stop()
	require.Equal(t, "", svc.TriggerNow())
}
