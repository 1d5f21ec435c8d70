package tools

import (
	"context"
	"fmt"
)

// Spawner is the subagent-manager capability the spawn tool needs (spec.md
// §4.8). Passing this interface, not the manager or the bus, is how the
// spawn→subagent-manager→bus→agent-worker cycle noted in spec.md §9 is
// broken.
type Spawner interface {
	Spawn(task, label, originChannel, originChatID string) string
}

// SpawnTool starts a detached background subagent turn.
type SpawnTool struct {
	Manager Spawner
}

func (SpawnTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "spawn",
		Description: "Start a background subagent to work on a task independently and report back when done.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task":  map[string]any{"type": "string"},
				"label": map[string]any{"type": "string"},
			},
			"required": []any{"task"},
		},
	}
}

func (t SpawnTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	origin, ok := OriginFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("no active turn origin bound to this call")
	}
	return t.Manager.Spawn(strArg(args, "task"), strArg(args, "label"), origin.Channel, origin.ChatID), nil
}
