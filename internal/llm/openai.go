package llm

import (
	"context"
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"github.com/attoclaw/gateway/internal/contextbuilder"
	"github.com/attoclaw/gateway/internal/idgen"
	"github.com/attoclaw/gateway/internal/tools"
)

// OpenAIProvider implements Provider against any OpenAI-compatible chat
// completions endpoint via github.com/sashabaranov/go-openai.
type OpenAIProvider struct {
	client       *openai.Client
	defaultModel string
}

// NewOpenAIProvider builds a provider. baseURL may be empty to use the
// default OpenAI endpoint, or set to point at a compatible gateway.
func NewOpenAIProvider(apiKey, baseURL, defaultModel string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), defaultModel: defaultModel}
}

func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

func toOpenAIMessages(messages []contextbuilder.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		om := openai.ChatCompletionMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID, Name: m.Name}
		for _, tc := range m.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, openai.ToolCall{
				ID:       tc.ID,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		out = append(out, om)
	}
	return out
}

func toOpenAITools(defs []tools.FunctionDefinition) []openai.Tool {
	out := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Function.Name,
				Description: d.Function.Description,
				Parameters:  d.Function.Parameters,
			},
		})
	}
	return out
}

func parseToolCalls(calls []openai.ToolCall) []ToolCallRequest {
	out := make([]ToolCallRequest, 0, len(calls))
	for _, tc := range calls {
		id := tc.ID
		if id == "" {
			id = idgen.Random(10)
		}
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			args = map[string]any{"raw": tc.Function.Arguments}
		}
		if tc.Function.Name == "" {
			continue
		}
		out = append(out, ToolCallRequest{ID: id, Name: tc.Function.Name, Arguments: args})
	}
	return out
}

func (p *OpenAIProvider) Chat(ctx context.Context, messages []contextbuilder.Message, toolDefs []tools.FunctionDefinition, model string, maxTokens int, temperature, topP float64) Response {
	if model == "" {
		model = p.defaultModel
	}
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(messages),
		MaxTokens:   maxTokens,
		Temperature: float32(temperature),
		TopP:        float32(topP),
	}
	if len(toolDefs) > 0 {
		req.Tools = toOpenAITools(toolDefs)
		req.ToolChoice = "auto"
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return errorResponse("Error calling LLM: " + err.Error())
	}
	if len(resp.Choices) == 0 {
		return errorResponse("Error: malformed LLM response")
	}

	choice := resp.Choices[0]
	usage := map[string]any{
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"total_tokens":      resp.Usage.TotalTokens,
	}
	return Response{
		Content:      choice.Message.Content,
		ToolCalls:    parseToolCalls(choice.Message.ToolCalls),
		FinishReason: string(choice.FinishReason),
		Usage:        usage,
	}
}

func (p *OpenAIProvider) ChatStream(ctx context.Context, messages []contextbuilder.Message, toolDefs []tools.FunctionDefinition, model string, maxTokens int, temperature, topP float64, onDelta OnDelta) Response {
	if model == "" {
		model = p.defaultModel
	}
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(messages),
		MaxTokens:   maxTokens,
		Temperature: float32(temperature),
		TopP:        float32(topP),
		Stream:      true,
	}
	if len(toolDefs) > 0 {
		req.Tools = toOpenAITools(toolDefs)
		req.ToolChoice = "auto"
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return errorResponse("Error calling LLM (stream): " + err.Error())
	}
	defer stream.Close()

	var content string
	finishReason := ""
	// Tool-call argument fragments arrive indexed by position and must be
	// reassembled before final parse (spec.md §4.4).
	type accum struct {
		id, name, args string
	}
	byIndex := map[int]*accum{}
	var order []int

	for {
		chunk, err := stream.Recv()
		if err != nil {
			break // EOF or transport error both end the stream; partial content still surfaces
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if fr := chunk.Choices[0].FinishReason; fr != "" {
			finishReason = string(fr)
		}
		if delta.Content != "" {
			content += delta.Content
			if onDelta != nil {
				onDelta(delta.Content)
			}
		}
		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			a, ok := byIndex[idx]
			if !ok {
				a = &accum{}
				byIndex[idx] = a
				order = append(order, idx)
			}
			if tc.ID != "" && a.id == "" {
				a.id = tc.ID
			}
			if tc.Function.Name != "" && a.name == "" {
				a.name = tc.Function.Name
			}
			a.args += tc.Function.Arguments
		}
	}

	var toolCalls []ToolCallRequest
	for _, idx := range order {
		a := byIndex[idx]
		if a.name == "" {
			continue
		}
		id := a.id
		if id == "" {
			id = idgen.Random(10)
		}
		args := a.args
		if args == "" {
			args = "{}"
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(args), &parsed); err != nil {
			parsed = map[string]any{"raw": args}
		}
		toolCalls = append(toolCalls, ToolCallRequest{ID: id, Name: a.name, Arguments: parsed})
	}

	if finishReason == "" {
		finishReason = "stop"
	}
	return Response{Content: content, ToolCalls: toolCalls, FinishReason: finishReason}
}
