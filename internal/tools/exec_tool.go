package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// deniedCommandPrefixes blocks the most obviously destructive shell
// invocations, mirroring tools.hpp's ExecTool guard_command denylist. This
// is a floor, not a sandbox.
var deniedCommandPrefixes = []string{
	"rm -rf /", "mkfs", ":(){ :|:& };:", "dd if=/dev/zero",
}

// ExecTool runs a shell command with a timeout, optionally restricted to a
// working directory.
type ExecTool struct {
	TimeoutSeconds     int
	Workspace          string
	RestrictToWorkspace bool
}

func (ExecTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "exec",
		Description: "Execute a shell command and return its combined output.",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"command": map[string]any{"type": "string"}},
			"required":   []any{"command"},
		},
	}
}

func guardCommand(cmd string) error {
	lower := strings.ToLower(strings.TrimSpace(cmd))
	for _, denied := range deniedCommandPrefixes {
		if strings.Contains(lower, denied) {
			return fmt.Errorf("command matches a denied pattern")
		}
	}
	return nil
}

func (t ExecTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	command := strArg(args, "command")
	if err := guardCommand(command); err != nil {
		return "", err
	}

	timeout := t.TimeoutSeconds
	if timeout <= 0 {
		timeout = 60
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if t.RestrictToWorkspace && t.Workspace != "" {
		cmd.Dir = t.Workspace
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w\n%s", err, out.String())
	}
	return out.String(), nil
}
