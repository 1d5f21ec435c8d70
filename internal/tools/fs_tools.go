package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func strArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// ReadFileTool reads a file's contents, optionally restricted to a
// workspace root.
type ReadFileTool struct{ AllowedDir *string }

func (ReadFileTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "read_file",
		Description: "Read the contents of a text file.",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"path": map[string]any{"type": "string"}},
			"required":   []any{"path"},
		},
	}
}

func (t ReadFileTool) Execute(_ context.Context, args map[string]any) (string, error) {
	path, err := resolvePath(t.AllowedDir, strArg(args, "path"))
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteFileTool writes (overwriting) a file's contents.
type WriteFileTool struct{ AllowedDir *string }

func (WriteFileTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "write_file",
		Description: "Write text content to a file, creating or overwriting it.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":    map[string]any{"type": "string"},
				"content": map[string]any{"type": "string"},
			},
			"required": []any{"path", "content"},
		},
	}
}

func (t WriteFileTool) Execute(_ context.Context, args map[string]any) (string, error) {
	path, err := resolvePath(t.AllowedDir, strArg(args, "path"))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(strArg(args, "content")), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(strArg(args, "content")), path), nil
}

// EditFileTool replaces the first occurrence of a substring in a file.
type EditFileTool struct{ AllowedDir *string }

func (EditFileTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "edit_file",
		Description: "Replace the first occurrence of old_text with new_text in a file.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":     map[string]any{"type": "string"},
				"old_text": map[string]any{"type": "string"},
				"new_text": map[string]any{"type": "string"},
			},
			"required": []any{"path", "old_text", "new_text"},
		},
	}
}

func (t EditFileTool) Execute(_ context.Context, args map[string]any) (string, error) {
	path, err := resolvePath(t.AllowedDir, strArg(args, "path"))
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	old := strArg(args, "old_text")
	if !strings.Contains(string(b), old) {
		return "", fmt.Errorf("old_text not found in %s", path)
	}
	updated := strings.Replace(string(b), old, strArg(args, "new_text"), 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("Edited %s", path), nil
}

// ListDirTool lists a directory's entries, prefixing each with [FILE] or
// [DIR] (matching the shape testable-scenario 1 asserts against).
type ListDirTool struct{ AllowedDir *string }

func (ListDirTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "list_dir",
		Description: "List the contents of a directory.",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"path": map[string]any{"type": "string"}},
			"required":   []any{"path"},
		},
	}
}

func (t ListDirTool) Execute(_ context.Context, args map[string]any) (string, error) {
	path, err := resolvePath(t.AllowedDir, strArg(args, "path"))
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			fmt.Fprintf(&out, "[DIR] %s\n", e.Name())
		} else {
			fmt.Fprintf(&out, "[FILE] %s\n", e.Name())
		}
	}
	return out.String(), nil
}
