package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/attoclaw/gateway/internal/bus"
	"github.com/attoclaw/gateway/internal/contextbuilder"
	"github.com/attoclaw/gateway/internal/envelope"
	"github.com/attoclaw/gateway/internal/llm"
	"github.com/attoclaw/gateway/internal/memory"
	"github.com/attoclaw/gateway/internal/observability"
	"github.com/attoclaw/gateway/internal/session"
	"github.com/attoclaw/gateway/internal/tools"
)

// stubProvider returns one fixed response and never streams tool calls,
// letting a turn resolve in a single iteration.
type stubProvider struct {
	content string
}

func (p *stubProvider) Chat(context.Context, []contextbuilder.Message, []tools.FunctionDefinition, string, int, float64, float64) llm.Response {
	return llm.Response{Content: p.content}
}

func (p *stubProvider) ChatStream(ctx context.Context, msgs []contextbuilder.Message, toolDefs []tools.FunctionDefinition, model string, maxTokens int, temperature, topP float64, onDelta llm.OnDelta) llm.Response {
	onDelta(p.content)
	return llm.Response{Content: p.content}
}

func (p *stubProvider) DefaultModel() string { return "stub-model" }

// panicProvider simulates an unhandled exception inside a turn (spec.md
// §7 error kind 5).
type panicProvider struct{}

func (panicProvider) Chat(context.Context, []contextbuilder.Message, []tools.FunctionDefinition, string, int, float64, float64) llm.Response {
	panic("boom")
}

func (panicProvider) ChatStream(context.Context, []contextbuilder.Message, []tools.FunctionDefinition, string, int, float64, float64, llm.OnDelta) llm.Response {
	panic("boom")
}

func (panicProvider) DefaultModel() string { return "panic-model" }

func newTestLoop(t *testing.T, provider llm.Provider) *Loop {
	t.Helper()
	log := observability.NewNop()
	b := bus.New(log)
	sessStore, err := session.NewStore(t.TempDir(), log)
	require.NoError(t, err)
	memStore, err := memory.NewStore(t.TempDir())
	require.NoError(t, err)
	registry := tools.NewRegistry()
	builder := &contextbuilder.Builder{Workspace: t.TempDir()}
	vision := &tools.ScreenCaptureTool{}

	return New(Config{MemoryWindow: 20, Model: "stub-model", MaxTokens: 512}, b, sessStore, registry, provider, builder, memStore, vision, nil, log, observability.NewMetrics(), nil)
}

func TestLoop_ProcessMessage_SimpleReply(t *testing.T) {
	l := newTestLoop(t, &stubProvider{content: "hello back"})
	l.bus.StartDispatcher()
	defer l.bus.StopDispatcher()

	var got envelope.Outbound
	done := make(chan struct{})
	l.bus.SubscribeOutbound("cli", func(o envelope.Outbound) {
		got = o
		close(done)
	})

	l.processMessage(context.Background(), envelope.NewInbound("cli", "user1", "chat1", "hi there"))
	<-done

	require.Equal(t, "hello back", got.Content)
	sess := l.sessions.GetOrCreate("cli:chat1")
	require.Len(t, sess.Messages, 2)
	require.Equal(t, session.RoleUser, sess.Messages[0].Role)
	require.Equal(t, session.RoleAssistant, sess.Messages[1].Role)
}

func TestLoop_InterceptCommand_Help(t *testing.T) {
	l := newTestLoop(t, &stubProvider{content: "unused"})
	l.bus.StartDispatcher()
	defer l.bus.StopDispatcher()

	var got envelope.Outbound
	done := make(chan struct{})
	l.bus.SubscribeOutbound("cli", func(o envelope.Outbound) {
		got = o
		close(done)
	})

	l.processMessage(context.Background(), envelope.NewInbound("cli", "user1", "chat1", "/help"))
	<-done
	require.Equal(t, helpText, got.Content)
}

func TestLoop_InterceptCommand_New(t *testing.T) {
	l := newTestLoop(t, &stubProvider{content: "unused"})
	sess := l.sessions.GetOrCreate("cli:chat1")
	sess.AppendUser("old message")

	l.bus.StartDispatcher()
	defer l.bus.StopDispatcher()
	done := make(chan struct{})
	l.bus.SubscribeOutbound("cli", func(envelope.Outbound) { close(done) })

	l.processMessage(context.Background(), envelope.NewInbound("cli", "user1", "chat1", "/new"))
	<-done

	require.Empty(t, l.sessions.GetOrCreate("cli:chat1").Messages)
}

func TestLoop_SetDeltaSink_ReceivesStreamedPieces(t *testing.T) {
	l := newTestLoop(t, &stubProvider{content: "streamed reply"})
	l.bus.StartDispatcher()
	defer l.bus.StopDispatcher()

	var pieces []string
	l.SetDeltaSink(func(channel, chatID, piece string) {
		pieces = append(pieces, piece)
		require.Equal(t, "cli", channel)
		require.Equal(t, "chat1", chatID)
	})

	done := make(chan struct{})
	l.bus.SubscribeOutbound("cli", func(envelope.Outbound) { close(done) })

	l.processMessage(context.Background(), envelope.NewInbound("cli", "user1", "chat1", "hi there"))
	<-done

	require.Equal(t, []string{"streamed reply"}, pieces)
}

func TestLoop_ProcessSystemMessage_RunsFullTurnAndRepliesWithLLMContent(t *testing.T) {
	l := newTestLoop(t, &stubProvider{content: "Here's a brief summary for you."})
	l.bus.StartDispatcher()
	defer l.bus.StopDispatcher()

	var got envelope.Outbound
	done := make(chan struct{})
	l.bus.SubscribeOutbound("cli", func(o envelope.Outbound) {
		got = o
		close(done)
	})

	announcement := envelope.Inbound{
		Channel:  envelope.SystemChannel,
		SenderID: "subagent",
		ChatID:   "cli:chat1",
		Content:  "Subagent task complete. Raw result: ... Summarize this naturally for the user.",
	}
	l.processSystemMessage(context.Background(), announcement)
	<-done

	require.Equal(t, "Here's a brief summary for you.", got.Content)
	require.Equal(t, "cli", got.Channel)
	require.Equal(t, "chat1", got.ChatID)

	sess := l.sessions.GetOrCreate("cli:chat1")
	require.Len(t, sess.Messages, 2)
	require.Equal(t, "[System] "+announcement.Content, sess.Messages[0].Content)
	require.Equal(t, "Here's a brief summary for you.", sess.Messages[1].Content)
}

func TestLoop_DrainSystemAnnouncements_RunsFullTurnForMatchingSession(t *testing.T) {
	l := newTestLoop(t, &stubProvider{content: "folded-in summary"})
	l.bus.StartDispatcher()
	defer l.bus.StopDispatcher()

	l.bus.PublishInbound(envelope.Inbound{
		Channel:  envelope.SystemChannel,
		SenderID: "subagent",
		ChatID:   "cli:chat1",
		Content:  "background task finished",
	})

	final := l.drainSystemAnnouncements(context.Background(), "cli:chat1", "original reply")
	require.Equal(t, "original reply\n\nfolded-in summary", final)
}

func TestLoop_SafeProcessMessage_RecoversFromPanicAndRepliesWithApology(t *testing.T) {
	l := newTestLoop(t, panicProvider{})
	l.bus.StartDispatcher()
	defer l.bus.StopDispatcher()

	var got envelope.Outbound
	done := make(chan struct{})
	l.bus.SubscribeOutbound("cli", func(o envelope.Outbound) {
		got = o
		close(done)
	})

	l.safeProcessMessage(context.Background(), envelope.NewInbound("cli", "user1", "chat1", "hi there"))
	<-done

	require.Contains(t, got.Content, "Sorry, I encountered an error")
	require.Contains(t, got.Content, "boom")
	require.False(t, l.taskInProgress.Load())
}

func TestLoop_SafeProcessSystemMessage_RecoversFromPanic(t *testing.T) {
	l := newTestLoop(t, panicProvider{})
	l.bus.StartDispatcher()
	defer l.bus.StopDispatcher()

	var got envelope.Outbound
	done := make(chan struct{})
	l.bus.SubscribeOutbound("cli", func(o envelope.Outbound) {
		got = o
		close(done)
	})

	l.safeProcessSystemMessage(context.Background(), envelope.Inbound{
		Channel:  envelope.SystemChannel,
		SenderID: "subagent",
		ChatID:   "cli:chat1",
		Content:  "background task finished",
	})
	<-done

	require.Contains(t, got.Content, "Sorry, I encountered an error")
	require.False(t, l.taskInProgress.Load())
}

func TestLoop_Stop_WithNoActiveTask_ReportsNothingToStop(t *testing.T) {
	l := newTestLoop(t, &stubProvider{content: "unused"})
	l.bus.StartDispatcher()
	defer l.bus.StopDispatcher()

	var got envelope.Outbound
	done := make(chan struct{})
	l.bus.SubscribeOutbound("cli", func(o envelope.Outbound) {
		got = o
		close(done)
	})

	l.processMessage(context.Background(), envelope.NewInbound("cli", "user1", "chat1", "/stop"))
	<-done
	require.Equal(t, "No active task to stop.", got.Content)
}
