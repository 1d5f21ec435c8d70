// Package llm defines the LLM provider contract the agent turn loop calls
// into, grounded on provider.hpp. The concrete wire formats are external
// collaborators per spec.md §1; this package's own job is the interface
// plus one concrete adapter per wire family the retrieval pack supplies an
// SDK for.
package llm

import (
	"context"

	"github.com/attoclaw/gateway/internal/contextbuilder"
	"github.com/attoclaw/gateway/internal/tools"
)

// ToolCallRequest is one tool call an LLMResponse asked the registry to
// run.
type ToolCallRequest struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Response is the result of one chat/chat_stream call.
type Response struct {
	Content          string
	ToolCalls        []ToolCallRequest
	FinishReason     string
	Usage            map[string]any
	ReasoningContent string
}

// HasToolCalls reports whether the response asked for any tool calls.
func (r Response) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// OnDelta receives streamed content pieces.
type OnDelta func(piece string)

// Provider is the opaque LLM capability: given messages/tools/model/
// sampling params, produce a Response. Errors surface as a Response with
// FinishReason "error" and a human-readable Content, never a Go error —
// this mirrors the original's never-throws provider contract so the turn
// loop has one success path to reason about.
type Provider interface {
	Chat(ctx context.Context, messages []contextbuilder.Message, toolDefs []tools.FunctionDefinition, model string, maxTokens int, temperature, topP float64) Response

	// ChatStream streams content pieces via onDelta as they arrive. A
	// Provider without native streaming support may fall back to calling
	// Chat and emitting its full content once.
	ChatStream(ctx context.Context, messages []contextbuilder.Message, toolDefs []tools.FunctionDefinition, model string, maxTokens int, temperature, topP float64, onDelta OnDelta) Response

	DefaultModel() string
}

// errorResponse builds the canonical error-shaped Response (spec.md §7,
// error kind 3).
func errorResponse(message string) Response {
	return Response{Content: message, FinishReason: "error"}
}
