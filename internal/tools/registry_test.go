package tools

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_NotFound(t *testing.T) {
	r := NewRegistry()
	out := r.Execute(context.Background(), "nope", map[string]any{})
	require.Equal(t, "Error: Tool 'nope' not found", out)
}

func TestRegistry_InvalidParams(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(ReadFileTool{}))

	out := r.Execute(context.Background(), "read_file", map[string]any{})
	require.Contains(t, out, "Error: Invalid parameters for tool 'read_file':")
}

func TestRegistry_ExecuteListDir(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry()
	require.NoError(t, r.Register(ListDirTool{}))

	require.NoError(t, writeTempFile(dir, "x"))
	out := r.Execute(context.Background(), "list_dir", map[string]any{"path": dir})
	require.Contains(t, out, "[FILE] x")
}

func TestRegistry_DefinitionsReflectRegistrations(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(ReadFileTool{}))
	require.NoError(t, r.Register(WriteFileTool{}))

	defs := r.Definitions()
	require.Len(t, defs, 2)
	r.Unregister("write_file")
	require.Len(t, r.Definitions(), 1)
}

func writeTempFile(dir, name string) error {
	return os.WriteFile(dir+"/"+name, []byte("hello"), 0o644)
}
