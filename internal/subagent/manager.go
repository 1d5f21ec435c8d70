// Package subagent implements detached background turns spawned by the
// "spawn" tool, grounded on subagent.hpp.
package subagent

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/attoclaw/gateway/internal/bus"
	"github.com/attoclaw/gateway/internal/contextbuilder"
	"github.com/attoclaw/gateway/internal/envelope"
	"github.com/attoclaw/gateway/internal/idgen"
	"github.com/attoclaw/gateway/internal/llm"
	"github.com/attoclaw/gateway/internal/observability"
	"github.com/attoclaw/gateway/internal/tools"
)

// maxIterations bounds a subagent's own LLM-call + tool-execute rounds,
// independent of, and larger than, the primary turn loop's default of 10.
const maxIterations = 15

const labelSummaryMax = 30

// Config carries a subagent worker's fixed parameters.
type Config struct {
	Workspace           string
	Model               string
	Temperature         float64
	TopP                float64
	MaxTokens           int
	ExecTimeoutSeconds  int
	RestrictToWorkspace bool
}

// Manager implements tools.Spawner: every Spawn call launches a detached
// goroutine running its own short-lived tool registry and message loop,
// reporting only through an atomic running count and a completion
// announcement on the bus.
type Manager struct {
	cfg      Config
	provider llm.Provider
	bus      *bus.Bus
	log      *observability.Logger
	metrics  *observability.Metrics

	running atomic.Int64
}

// New builds a Manager. provider or bus being nil makes every Spawn call
// report unavailability rather than panicking, mirroring subagent.hpp's
// own nil checks.
func New(cfg Config, provider llm.Provider, b *bus.Bus, log *observability.Logger, metrics *observability.Metrics) *Manager {
	return &Manager{cfg: cfg, provider: provider, bus: b, log: log, metrics: metrics}
}

// RunningCount reports how many subagent workers are currently in flight.
func (m *Manager) RunningCount() int64 { return m.running.Load() }

// Spawn launches a detached subagent for task and returns immediately with
// an acknowledgement string for the caller's tool result.
func (m *Manager) Spawn(task, label, originChannel, originChatID string) string {
	if m.provider == nil || m.bus == nil {
		return "Error: Subagent runtime is unavailable"
	}

	taskID := idgen.Random(8)
	displayLabel := strings.TrimSpace(label)
	if displayLabel == "" {
		displayLabel = summarizeLabel(task)
	}

	m.running.Add(1)
	m.metrics.SubagentsRunning.Set(float64(m.running.Load()))

	go func() {
		defer func() {
			m.running.Add(-1)
			m.metrics.SubagentsRunning.Set(float64(m.running.Load()))
		}()
		m.runSubagent(taskID, task, displayLabel, originChannel, originChatID)
	}()

	return fmt.Sprintf("Subagent [%s] started (id: %s). I'll notify you when it completes.", displayLabel, taskID)
}

func summarizeLabel(task string) string {
	if len(task) <= labelSummaryMax {
		return task
	}
	return task[:labelSummaryMax] + "..."
}

func stripVisionFlag(text string) (string, bool) {
	const token = "--vision"
	lower := strings.ToLower(text)
	found := false
	var out strings.Builder
	i := 0
	for {
		idx := strings.Index(lower[i:], token)
		if idx < 0 {
			out.WriteString(text[i:])
			break
		}
		start := i + idx
		end := start + len(token)
		leftOK := start == 0 || isSpaceByte(text[start-1])
		rightOK := end >= len(text) || isSpaceByte(text[end])
		if leftOK && rightOK {
			out.WriteString(strings.TrimRight(text[i:start], " \t\n\r"))
			found = true
			i = end
		} else {
			out.WriteString(text[i : start+1])
			i = start + 1
		}
	}
	result := out.String()
	if found {
		result = strings.TrimSpace(result)
	}
	return result, found
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func (m *Manager) subagentPrompt() string {
	var b strings.Builder
	b.WriteString("# Subagent\n\n")
	fmt.Fprintf(&b, "Current time: %s\n\n", time.Now().UTC().Format(time.RFC3339))
	b.WriteString("You are a background subagent. Complete only the requested task.\n")
	b.WriteString("Rules:\n")
	b.WriteString("1. Stay focused on the assigned task.\n")
	b.WriteString("2. Use tools when needed.\n")
	b.WriteString("3. Return a concise final result.\n")
	b.WriteString("4. Do not start side tasks.\n")
	fmt.Fprintf(&b, "Workspace: %s\n", m.cfg.Workspace)
	return b.String()
}

func (m *Manager) buildRegistry(visionEnabled bool) *tools.Registry {
	registry := tools.NewRegistry()
	var allowedDir *string
	if m.cfg.RestrictToWorkspace {
		ws := m.cfg.Workspace
		allowedDir = &ws
	}

	visionTool := &tools.ScreenCaptureTool{}
	visionTool.SetEnabled(visionEnabled)

	_ = registry.Register(&tools.ReadFileTool{AllowedDir: allowedDir})
	_ = registry.Register(&tools.WriteFileTool{AllowedDir: allowedDir})
	_ = registry.Register(&tools.EditFileTool{AllowedDir: allowedDir})
	_ = registry.Register(&tools.ListDirTool{AllowedDir: allowedDir})
	_ = registry.Register(&tools.ExecTool{TimeoutSeconds: m.cfg.ExecTimeoutSeconds, Workspace: m.cfg.Workspace, RestrictToWorkspace: m.cfg.RestrictToWorkspace})
	_ = registry.Register(&tools.WebFetchTool{})
	_ = registry.Register(visionTool)
	return registry
}

func (m *Manager) runSubagent(taskID, task, label, originChannel, originChatID string) {
	status := "ok"
	taskText, visionEnabled := stripVisionFlag(task)
	registry := m.buildRegistry(visionEnabled)

	finalResult := m.iterate(registry, taskText)
	if strings.TrimSpace(finalResult) == "" {
		finalResult = "Task completed but no final response was generated."
	}
	if strings.HasPrefix(finalResult, "internal-error:") {
		status = "error"
		finalResult = strings.TrimPrefix(finalResult, "internal-error:")
	}

	statusText := "completed successfully"
	if status != "ok" {
		statusText = "failed"
	}
	announceContent := fmt.Sprintf(
		"[Subagent %q %s]\n\nTask: %s\n\nResult:\n%s\n\n"+
			"Summarize this naturally for the user. Keep it brief (1-2 sentences). "+
			"Do not mention technical details like subagent internals or task IDs.",
		label, statusText, task, finalResult)

	m.bus.PublishInbound(envelope.Inbound{
		Channel:   envelope.SystemChannel,
		SenderID:  "subagent",
		ChatID:    originChannel + ":" + originChatID,
		Content:   announceContent,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	m.log.Infof("subagent [%s] finished with status: %s", taskID, status)
}

func (m *Manager) iterate(registry *tools.Registry, taskText string) string {
	msgs := []contextbuilder.Message{
		{Role: "system", Content: m.subagentPrompt()},
		{Role: "user", Content: taskText},
	}
	toolDefs := registry.Definitions()
	ctx := context.Background()

	for i := 0; i < maxIterations; i++ {
		resp := m.provider.Chat(ctx, msgs, toolDefs, m.cfg.Model, m.cfg.MaxTokens, m.cfg.Temperature, m.cfg.TopP)
		if !resp.HasToolCalls() {
			return resp.Content
		}

		var toolCallDefs []contextbuilder.ToolCall
		for _, tc := range resp.ToolCalls {
			argsJSON, err := jsonMarshalCompact(tc.Arguments)
			if err != nil {
				argsJSON = "{}"
			}
			toolCallDefs = append(toolCallDefs, contextbuilder.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: argsJSON})
		}
		msgs = contextbuilder.AddAssistantMessage(msgs, resp.Content, toolCallDefs, resp.ReasoningContent)

		for _, tc := range resp.ToolCalls {
			result := registry.Execute(ctx, tc.Name, tc.Arguments)
			msgs = contextbuilder.AddToolResult(msgs, tc.ID, tc.Name, result)
		}
	}
	return ""
}
