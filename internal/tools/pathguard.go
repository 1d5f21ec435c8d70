package tools

import (
	"fmt"
	"path/filepath"
	"strings"
)

// resolvePath makes rel absolute (a relative rel is resolved against the
// process working directory, not against allowedDir), then rejects the
// result if allowedDir is set and the resolved path escapes it — grounded
// on tools.hpp's resolve_path containment helper.
func resolvePath(allowedDir *string, rel string) (string, error) {
	abs, err := filepath.Abs(rel)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	if allowedDir == nil {
		return abs, nil
	}

	root, err := filepath.Abs(*allowedDir)
	if err != nil {
		return "", err
	}
	root = filepath.Clean(root)

	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes allowed workspace %q", rel, root)
	}
	return abs, nil
}
