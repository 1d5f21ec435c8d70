package llm

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/attoclaw/gateway/internal/contextbuilder"
	"github.com/attoclaw/gateway/internal/idgen"
	"github.com/attoclaw/gateway/internal/tools"
)

// BedrockProvider implements Provider against AWS Bedrock's runtime
// InvokeModel API using the Anthropic Messages-compatible request body
// Bedrock's Claude models accept — a third wire family behind the Provider
// contract (SPEC_FULL.md §B).
type BedrockProvider struct {
	client       *bedrockruntime.Client
	defaultModel string
}

// NewBedrockProvider loads the AWS SDK's default credential chain/region
// resolution (profile, env vars, IMDS) the same way the teacher's
// providers/bedrock.go does.
func NewBedrockProvider(ctx context.Context, region, defaultModel string) (*BedrockProvider, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &BedrockProvider{client: bedrockruntime.NewFromConfig(cfg), defaultModel: defaultModel}, nil
}

func (p *BedrockProvider) DefaultModel() string { return p.defaultModel }

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Temperature      float64          `json:"temperature"`
	TopP             float64          `json:"top_p"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Tools            []map[string]any `json:"tools,omitempty"`
}

type bedrockToolUse struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	bedrockToolUse
}

type bedrockResponse struct {
	Content    []bedrockContentBlock `json:"content"`
	StopReason string                `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *BedrockProvider) Chat(ctx context.Context, messages []contextbuilder.Message, toolDefs []tools.FunctionDefinition, model string, maxTokens int, temperature, topP float64) Response {
	if model == "" {
		model = p.defaultModel
	}

	var system string
	var bmsgs []bedrockMessage
	for _, m := range messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		bmsgs = append(bmsgs, bedrockMessage{Role: m.Role, Content: m.Content})
	}

	var btools []map[string]any
	for _, d := range toolDefs {
		btools = append(btools, map[string]any{
			"name":         d.Function.Name,
			"description":  d.Function.Description,
			"input_schema": d.Function.Parameters,
		})
	}

	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		Temperature:      temperature,
		TopP:             topP,
		System:           system,
		Messages:         bmsgs,
		Tools:            btools,
	})
	if err != nil {
		return errorResponse("Error building LLM request: " + err.Error())
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return errorResponse("Error calling LLM: " + err.Error())
	}

	var parsed bedrockResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return errorResponse("Error parsing LLM response: " + err.Error())
	}

	var content string
	var toolCalls []ToolCallRequest
	for _, block := range parsed.Content {
		switch block.Type {
		case "text":
			content += block.Text
		case "tool_use":
			id := block.ID
			if id == "" {
				id = idgen.Random(10)
			}
			var args map[string]any
			if err := json.Unmarshal(block.Input, &args); err != nil {
				args = map[string]any{"raw": string(block.Input)}
			}
			toolCalls = append(toolCalls, ToolCallRequest{ID: id, Name: block.Name, Arguments: args})
		}
	}

	return Response{
		Content:      content,
		ToolCalls:    toolCalls,
		FinishReason: parsed.StopReason,
		Usage: map[string]any{
			"input_tokens":  parsed.Usage.InputTokens,
			"output_tokens": parsed.Usage.OutputTokens,
		},
	}
}

func (p *BedrockProvider) ChatStream(ctx context.Context, messages []contextbuilder.Message, toolDefs []tools.FunctionDefinition, model string, maxTokens int, temperature, topP float64, onDelta OnDelta) Response {
	resp := p.Chat(ctx, messages, toolDefs, model, maxTokens, temperature, topP)
	if onDelta != nil && resp.Content != "" {
		onDelta(resp.Content)
	}
	return resp
}
