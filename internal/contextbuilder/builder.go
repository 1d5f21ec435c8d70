// Package contextbuilder assembles the system+history+user message array
// handed to the LLM provider each iteration, grounded on context.hpp.
package contextbuilder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/attoclaw/gateway/internal/session"
)

// identity is the fixed identity block every system prompt opens with,
// grounded on context.hpp's identity().
const identity = `You are a personal AI assistant gateway. You run continuously, routing ` +
	`messages between chat channels and a reasoning loop backed by tool use. ` +
	`Be direct, concise, and use tools when they let you give a better answer ` +
	`than reasoning alone.`

// bootstrapFiles lists the workspace files whose content is spliced into
// the system prompt, in this order, if present (SPEC_FULL.md §C).
var bootstrapFiles = []string{"AGENTS.md", "SOUL.md", "USER.md", "TOOLS.md", "IDENTITY.md"}

// MemoryProvider supplies the long-term memory block.
type MemoryProvider interface {
	MemoryContext() string
}

// SkillsProvider supplies the active-skills and skills-catalog blocks.
type SkillsProvider interface {
	ActiveSkillBodies() string
	Catalog() string
}

// Builder assembles system prompts and message arrays for a workspace.
type Builder struct {
	Workspace string
	Memory    MemoryProvider
	Skills    SkillsProvider
}

// BuildSystemPrompt composes identity + bootstrap files + memory + skills +
// a "current session" suffix naming channel and chatID.
func (b *Builder) BuildSystemPrompt(channel, chatID string) string {
	var parts []string
	parts = append(parts, identity)

	if bootstrap := b.readBootstrapFiles(); bootstrap != "" {
		parts = append(parts, bootstrap)
	}
	if b.Memory != nil {
		if mem := b.Memory.MemoryContext(); mem != "" {
			parts = append(parts, mem)
		}
	}
	if b.Skills != nil {
		if active := b.Skills.ActiveSkillBodies(); active != "" {
			parts = append(parts, active)
		}
		if catalog := b.Skills.Catalog(); catalog != "" {
			parts = append(parts, catalog)
		}
	}

	parts = append(parts, fmt.Sprintf("# Current session\n\nchannel=%s chat_id=%s", channel, chatID))
	return strings.Join(parts, "\n\n")
}

func (b *Builder) readBootstrapFiles() string {
	if b.Workspace == "" {
		return ""
	}
	var blocks []string
	for _, name := range bootstrapFiles {
		content, err := os.ReadFile(filepath.Join(b.Workspace, name))
		if err != nil {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("# %s\n\n%s", name, string(content)))
	}
	return strings.Join(blocks, "\n\n")
}

// Message is the provider-facing shape of one LLM conversation entry.
type Message struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Reasoning  string `json:"reasoning_content,omitempty"`
}

// ToolCall is the assistant-message shape of one requested tool call.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// BuildMessages returns [system_prompt, ...history, user_message].
func (b *Builder) BuildMessages(history []session.Message, currentUserContent, channel, chatID string) []Message {
	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: "system", Content: b.BuildSystemPrompt(channel, chatID)})
	for _, h := range history {
		msgs = append(msgs, Message{Role: h.Role, Content: h.Content})
	}
	msgs = append(msgs, Message{Role: "user", Content: currentUserContent})
	return msgs
}

// AddAssistantMessage appends a correctly-shaped assistant entry (with
// optional tool calls and reasoning) for the next LLM round.
func AddAssistantMessage(msgs []Message, content string, toolCalls []ToolCall, reasoning string) []Message {
	return append(msgs, Message{Role: "assistant", Content: content, ToolCalls: toolCalls, Reasoning: reasoning})
}

// AddToolResult appends a tool-result entry for tool call id/name.
func AddToolResult(msgs []Message, id, name, content string) []Message {
	return append(msgs, Message{Role: "tool", ToolCallID: id, Name: name, Content: content})
}
