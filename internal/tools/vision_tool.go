package tools

import (
	"context"
	"fmt"
	"sync/atomic"
)

// ScreenCaptureTool toggles per-turn on a shared atomic flag that the agent
// loop flips according to the --vision suffix (spec.md §4.7 step 7). Actual
// screen-capture/OCR is an out-of-scope external collaborator (spec.md
// §1); this tool only implements the registry-facing capability toggle (the
// headless guard runs in the agent loop before a turn starts), grounded on
// tools.hpp's ScreenCaptureTool.
type ScreenCaptureTool struct {
	enabled atomic.Bool
}

// SetEnabled flips the capability for the current/next turn.
func (t *ScreenCaptureTool) SetEnabled(v bool) { t.enabled.Store(v) }

func (t *ScreenCaptureTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "screen_capture",
		Description: "Capture the current screen for visual inspection. Requires --vision on this turn.",
		Schema:      map[string]any{"type": "object", "properties": map[string]any{}},
	}
}

func (t *ScreenCaptureTool) Execute(_ context.Context, _ map[string]any) (string, error) {
	if !t.enabled.Load() {
		return "", fmt.Errorf("screen capture is not enabled for this turn (append --vision to request it)")
	}
	return "", fmt.Errorf("screen capture is not available in this build")
}
