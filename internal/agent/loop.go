// Package agent implements the turn loop: the single hot path that
// consumes inbound envelopes and drives LLM-call + tool-execute iterations,
// grounded on agent.hpp.
package agent

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/attoclaw/gateway/internal/bus"
	"github.com/attoclaw/gateway/internal/contextbuilder"
	"github.com/attoclaw/gateway/internal/envelope"
	"github.com/attoclaw/gateway/internal/llm"
	"github.com/attoclaw/gateway/internal/memory"
	"github.com/attoclaw/gateway/internal/observability"
	"github.com/attoclaw/gateway/internal/session"
	"github.com/attoclaw/gateway/internal/tools"
)

const (
	// DefaultMaxIterations bounds the turn's LLM-call + tool-execute
	// rounds (spec.md §4.7 step 8).
	DefaultMaxIterations = 10

	stopPollLLMBudget  = 8  // envelopes drained per stop-poll checkpoint
	systemDrainBudget  = 32 // envelopes drained after a turn completes

	reflectNudge     = "Reflect on the results and decide next steps."
	stoppedContent   = "Stopped."
	fallbackContent  = "Task completed but no final response was generated."
	helpText         = "Commands: /new (clear session), /help (this text), /stop (cancel the active task)."
)

// ExternalCLIRunner is the out-of-scope external trampoline (codex/gemini)
// spec.md §1 names as an external collaborator; only its interface
// contract lives here.
type ExternalCLIRunner interface {
	Run(ctx context.Context, cliName, prompt, workspace string, vision bool) (string, error)
}

// nopExternalCLI reports unavailability rather than doing nothing silently.
type nopExternalCLI struct{}

func (nopExternalCLI) Run(context.Context, string, string, string, bool) (string, error) {
	return "", fmt.Errorf("external CLI trampolines are not available in this build")
}

// Config carries the turn loop's tunables.
type Config struct {
	MaxIterations int
	MemoryWindow  int
	Model         string
	Temperature   float64
	TopP          float64
	MaxTokens     int
	Workspace     string
}

// DeltaFunc fans a streamed token out to an external observer (the
// control-plane /ws/stream feed), keyed by the turn's channel/chat-id so a
// subscriber can tell turns apart. Loop never imports the control-plane
// package directly — the caller supplies the sink, same seam tools use to
// reach the bus without importing the agent.
type DeltaFunc func(channel, chatID, piece string)

// Loop is the agent turn loop: one long-lived worker per gateway instance.
type Loop struct {
	cfg Config

	bus       *bus.Bus
	sessions  *session.Store
	registry  *tools.Registry
	provider  llm.Provider
	builder   *contextbuilder.Builder
	longTerm  *memory.Store
	visionTool *tools.ScreenCaptureTool
	external  ExternalCLIRunner
	onDelta   DeltaFunc

	log     *observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer

	cancelRequested atomic.Bool
	taskInProgress  atomic.Bool
	deferred        deferredQueue
	activeSession   string
}

// New builds a Loop. external may be nil, in which case a nop trampoline
// reporting unavailability is used.
func New(cfg Config, b *bus.Bus, sessions *session.Store, registry *tools.Registry, provider llm.Provider, builder *contextbuilder.Builder, longTerm *memory.Store, visionTool *tools.ScreenCaptureTool, external ExternalCLIRunner, log *observability.Logger, metrics *observability.Metrics, tracer *observability.Tracer) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if external == nil {
		external = nopExternalCLI{}
	}
	return &Loop{
		cfg: cfg, bus: b, sessions: sessions, registry: registry, provider: provider,
		builder: builder, longTerm: longTerm, visionTool: visionTool, external: external,
		log: log, metrics: metrics, tracer: tracer,
	}
}

// SetDeltaSink wires a streaming observer. Nil is valid and means no one's
// listening — runTurn always checks before calling it.
func (l *Loop) SetDeltaSink(fn DeltaFunc) {
	l.onDelta = fn
}

// Run consumes inbound envelopes forever until the "system"/"stop" sentinel
// arrives.
func (l *Loop) Run(ctx context.Context) {
	for {
		m := l.bus.ConsumeInbound()
		if m.IsStop() {
			l.log.Infof("agent worker received stop sentinel, shutting down")
			return
		}
		if m.IsAnnouncement() {
			l.safeProcessSystemMessage(ctx, m)
			continue
		}
		l.safeProcessMessage(ctx, m)
	}
}

// safeProcessMessage recovers from a panic anywhere in a turn so one
// failing turn never brings down the agent worker (spec.md §7 error kind
// 5; agent.hpp's process_message try{...}catch{publish "Sorry, I
// encountered an error: "+e.what()}). The apology goes to the envelope's
// own originating session.
func (l *Loop) safeProcessMessage(ctx context.Context, m envelope.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Errorf("turn panicked for session %q: %v", m.SessionKey(), r)
			l.publishReply(m, fmt.Sprintf("Sorry, I encountered an error: %v", r))
		}
	}()
	l.processMessage(ctx, m)
}

// safeProcessSystemMessage is safeProcessMessage's counterpart for
// system-channel announcements; the apology goes to the announcement's
// resolved target session, if one could be resolved.
func (l *Loop) safeProcessSystemMessage(ctx context.Context, m envelope.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Errorf("system turn panicked: %v", r)
			if channel, chatID, ok := splitSessionKey(targetSessionFromAnnouncement(m)); ok {
				l.bus.PublishOutbound(envelope.Outbound{Channel: channel, ChatID: chatID, Content: fmt.Sprintf("Sorry, I encountered an error: %v", r)})
			}
		}
	}()
	l.processSystemMessage(ctx, m)
}

func (l *Loop) processMessage(ctx context.Context, m envelope.Inbound) {
	key := m.SessionKey()
	sess := l.sessions.GetOrCreate(key)

	// 1. Command interception.
	if reply, handled := l.interceptCommand(sess, m); handled {
		l.publishReply(m, reply)
		return
	}

	// 2. Memory pressure.
	if session.NeedsConsolidation(sess, l.cfg.MemoryWindow) {
		if err := session.Consolidate(sess, l.longTerm, l.cfg.MemoryWindow); err != nil {
			l.log.Errorf("session %q: consolidation failed: %v", key, err)
		}
	}

	// 3. Suffix parsing.
	parsed := ParseSuffixes(m.Content)

	// 4. Media handling (transcription is an out-of-scope domain-logic
	// concern per spec.md §1; media paths are still noted in the prompt).
	userContent := parsed.Prompt
	if len(m.Media) > 0 {
		userContent += "\n\n[Media attachments]\n" + strings.Join(m.Media, "\n")
	}

	// 5. Headless guard.
	if parsed.VisionEnabled && isHeadless() {
		l.publishReply(m, "Vision capability requires a display; this instance is running headless.")
		return
	}

	// 6. External CLI branch.
	if parsed.ExternalCLI != nil {
		l.processExternalCLI(ctx, sess, m, parsed, userContent)
		return
	}

	// 7. Run scope.
	l.activeSession = key
	scope := l.enterRunScope(parsed.VisionEnabled)
	defer scope.Close()

	l.metrics.TurnsStarted.Inc()
	final, toolsUsed := l.runTurn(ctx, sess, m, userContent)
	l.metrics.TurnsCompleted.Inc()

	// 10. Session append.
	sess.AppendUser(userContent)
	sess.AppendAssistant(final, toolsUsed)
	l.sessions.Save(sess)

	// 11. System-drain.
	final = l.drainSystemAnnouncements(ctx, key, final)

	l.publishReply(m, final)
}

func (l *Loop) processExternalCLI(ctx context.Context, sess *session.Session, m envelope.Inbound, parsed ParsedRequest, userContent string) {
	out, err := l.external.Run(ctx, parsed.ExternalCLI.Name, userContent, l.cfg.Workspace, parsed.VisionEnabled)
	if err != nil {
		out = "Error: " + err.Error()
	}
	sess.AppendUser(userContent)
	sess.AppendAssistant(out, nil)
	l.sessions.Save(sess)
	l.publishReply(m, out)
}

// runTurn executes the bounded iteration loop (spec.md §4.7 step 8) and
// returns the final content plus the ordered list of tool names invoked.
func (l *Loop) runTurn(ctx context.Context, sess *session.Session, m envelope.Inbound, userContent string) (string, []string) {
	turnCtx := tools.WithOrigin(ctx, tools.Origin{Channel: m.Channel, ChatID: m.ChatID})

	msgs := l.builder.BuildMessages(sess.Tail(l.cfg.MemoryWindow), userContent, m.Channel, m.ChatID)
	toolDefs := l.registry.Definitions()

	var final string
	var lastNonEmpty string
	var toolsUsed []string

	for i := 0; i < l.cfg.MaxIterations; i++ {
		if cancelled, msg := l.pollForStop(m.Channel, m.ChatID); cancelled {
			return msg, toolsUsed
		}

		var streamed strings.Builder
		resp := l.provider.ChatStream(turnCtx, msgs, toolDefs, l.cfg.Model, l.cfg.MaxTokens, l.cfg.Temperature, l.cfg.TopP, func(piece string) {
			// Streamed text is only user-visible in the final reply once
			// the response's tool-calls-or-not shape is known, but an
			// external observer watching /ws/stream wants every piece as
			// it arrives regardless (spec.md §4.4's streaming fan-out).
			streamed.WriteString(piece)
			if l.onDelta != nil {
				l.onDelta(m.Channel, m.ChatID, piece)
			}
		})

		if resp.HasToolCalls() {
			if strings.TrimSpace(resp.Content) != "" {
				lastNonEmpty = resp.Content
			}
			var toolCallDefs []contextbuilder.ToolCall
			for _, tc := range resp.ToolCalls {
				argsJSON := marshalArgs(tc.Arguments)
				toolCallDefs = append(toolCallDefs, contextbuilder.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: argsJSON})
			}
			msgs = contextbuilder.AddAssistantMessage(msgs, resp.Content, toolCallDefs, resp.ReasoningContent)

			for _, tc := range resp.ToolCalls {
				if cancelled, msg := l.pollForStop(m.Channel, m.ChatID); cancelled {
					return msg, toolsUsed
				}
				toolsUsed = append(toolsUsed, tc.Name)
				l.metrics.ToolExecutions.WithLabelValues(tc.Name, "invoked").Inc()
				result := l.registry.Execute(turnCtx, tc.Name, tc.Arguments)
				msgs = contextbuilder.AddToolResult(msgs, tc.ID, tc.Name, result)
			}
			msgs = append(msgs, contextbuilder.Message{Role: "user", Content: reflectNudge})
			continue
		}

		if resp.FinishReason == "error" {
			final = resp.Content
			break
		}
		final = resp.Content
		if strings.TrimSpace(final) != "" {
			lastNonEmpty = final
		}
		break
	}

	// 9. Fallback.
	if strings.TrimSpace(final) == "" {
		if strings.TrimSpace(lastNonEmpty) != "" {
			final = lastNonEmpty
		} else {
			final = fallbackContent
		}
	}
	return final, toolsUsed
}

func marshalArgs(args map[string]any) string {
	b, err := jsonMarshalCompact(args)
	if err != nil {
		return "{}"
	}
	return b
}

func isHeadless() bool {
	if runtime.GOOS == "windows" {
		return false
	}
	return os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == ""
}

func (l *Loop) publishReply(m envelope.Inbound, content string) {
	l.bus.PublishOutbound(envelope.Outbound{Channel: m.Channel, ChatID: m.ChatID, Content: content})
}
