package llm

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/attoclaw/gateway/internal/contextbuilder"
	"github.com/attoclaw/gateway/internal/idgen"
	"github.com/attoclaw/gateway/internal/tools"
)

// AnthropicProvider implements Provider against the Anthropic Messages API.
// It demonstrates a second concrete wire family behind the one Provider
// contract the turn loop depends on (SPEC_FULL.md §B).
type AnthropicProvider struct {
	client       anthropic.Client
	defaultModel string
}

func NewAnthropicProvider(apiKey, defaultModel string) *AnthropicProvider {
	return &AnthropicProvider{
		client:       anthropic.NewClient(option.WithAPIKey(apiKey)),
		defaultModel: defaultModel,
	}
}

func (p *AnthropicProvider) DefaultModel() string { return p.defaultModel }

// toAnthropicParams splits the system message out (Anthropic takes it as a
// top-level field, not a message-array entry) and converts the remainder.
func toAnthropicParams(messages []contextbuilder.Message, toolDefs []tools.FunctionDefinition, model string, maxTokens int, temperature, topP float64) (system string, msgs []anthropic.MessageParam, toolParams []anthropic.ToolUnionParam) {
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "user":
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case "assistant":
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case "tool":
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		}
	}
	for _, d := range toolDefs {
		toolParams = append(toolParams, anthropic.ToolUnionParamOfTool(
			anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: d.Function.Parameters["properties"],
			},
			d.Function.Name,
		))
	}
	return system, msgs, toolParams
}

func (p *AnthropicProvider) Chat(ctx context.Context, messages []contextbuilder.Message, toolDefs []tools.FunctionDefinition, model string, maxTokens int, temperature, topP float64) Response {
	if model == "" {
		model = p.defaultModel
	}
	system, msgs, toolParams := toAnthropicParams(messages, toolDefs, model, maxTokens, temperature, topP)

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Tools:     toolParams,
	})
	if err != nil {
		return errorResponse("Error calling LLM: " + err.Error())
	}

	var content string
	var toolCalls []ToolCallRequest
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += variant.Text
		case anthropic.ToolUseBlock:
			id := variant.ID
			if id == "" {
				id = idgen.Random(10)
			}
			var args map[string]any
			if err := json.Unmarshal(variant.Input, &args); err != nil {
				args = map[string]any{"raw": string(variant.Input)}
			}
			toolCalls = append(toolCalls, ToolCallRequest{ID: id, Name: variant.Name, Arguments: args})
		}
	}

	return Response{
		Content:      content,
		ToolCalls:    toolCalls,
		FinishReason: string(resp.StopReason),
		Usage: map[string]any{
			"input_tokens":  resp.Usage.InputTokens,
			"output_tokens": resp.Usage.OutputTokens,
		},
	}
}

// ChatStream falls back to Chat and emits the full content once, matching
// provider.hpp's default chat_stream() implementation for providers that
// don't need a bespoke streaming path wired yet.
func (p *AnthropicProvider) ChatStream(ctx context.Context, messages []contextbuilder.Message, toolDefs []tools.FunctionDefinition, model string, maxTokens int, temperature, topP float64, onDelta OnDelta) Response {
	resp := p.Chat(ctx, messages, toolDefs, model, maxTokens, temperature, topP)
	if onDelta != nil && resp.Content != "" {
		onDelta(resp.Content)
	}
	return resp
}
