package tools

import (
	"context"
	"fmt"

	"github.com/attoclaw/gateway/internal/envelope"
)

// Publisher is the bus capability the message tool needs — passing this
// narrow interface rather than the whole bus/agent avoids the cycle
// spec.md §9 calls out (tools referencing back into the agent).
type Publisher interface {
	PublishOutbound(envelope.Outbound)
}

// MessageTool lets the agent proactively send a message on the active
// turn's origin channel/chat, e.g. a progress update before a long tool
// call completes.
type MessageTool struct {
	Bus Publisher
}

func (MessageTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "message",
		Description: "Send a message to the user on the current channel before the turn finishes.",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"content": map[string]any{"type": "string"}},
			"required":   []any{"content"},
		},
	}
}

func (t MessageTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	origin, ok := OriginFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("no active turn origin bound to this call")
	}
	t.Bus.PublishOutbound(envelope.Outbound{
		Channel: origin.Channel,
		ChatID:  origin.ChatID,
		Content: strArg(args, "content"),
	})
	return "Message sent.", nil
}
