package subagent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/attoclaw/gateway/internal/bus"
	"github.com/attoclaw/gateway/internal/contextbuilder"
	"github.com/attoclaw/gateway/internal/envelope"
	"github.com/attoclaw/gateway/internal/llm"
	"github.com/attoclaw/gateway/internal/observability"
	"github.com/attoclaw/gateway/internal/tools"
)

type oneShotProvider struct{ content string }

func (p *oneShotProvider) Chat(context.Context, []contextbuilder.Message, []tools.FunctionDefinition, string, int, float64, float64) llm.Response {
	return llm.Response{Content: p.content}
}
func (p *oneShotProvider) ChatStream(ctx context.Context, msgs []contextbuilder.Message, toolDefs []tools.FunctionDefinition, model string, maxTokens int, temperature, topP float64, onDelta llm.OnDelta) llm.Response {
	onDelta(p.content)
	return llm.Response{Content: p.content}
}
func (p *oneShotProvider) DefaultModel() string { return "stub" }

func TestManager_Spawn_PublishesCompletionAnnouncement(t *testing.T) {
	log := observability.NewNop()
	b := bus.New(log)
	m := New(Config{Workspace: t.TempDir(), Model: "stub", MaxTokens: 128}, &oneShotProvider{content: "done"}, b, log, observability.NewMetrics())

	ack := m.Spawn("summarize the readme", "", "cli", "chat1")
	require.Contains(t, ack, "Subagent [")

	got := b.ConsumeInbound()
	require.Equal(t, envelope.SystemChannel, got.Channel)
	require.Equal(t, "cli:chat1", got.ChatID)
	require.Contains(t, got.Content, "completed successfully")
	require.Contains(t, got.Content, "summarize the readme")

	require.Eventually(t, func() bool { return m.RunningCount() == 0 }, time.Second, time.Millisecond)
}

func TestManager_Spawn_UnavailableWithoutProviderOrBus(t *testing.T) {
	log := observability.NewNop()
	m := New(Config{}, nil, nil, log, observability.NewMetrics())
	require.Contains(t, m.Spawn("task", "label", "cli", "chat1"), "unavailable")
}

func TestStripVisionFlag(t *testing.T) {
	stripped, found := stripVisionFlag("do a --vision task")
	require.True(t, found)
	require.Equal(t, "do a task", stripped)

	_, found = stripVisionFlag("no flag here")
	require.False(t, found)
}

func TestSummarizeLabel_TruncatesLongTasks(t *testing.T) {
	long := "this is a very long task description that exceeds the summary cutoff length"
	require.LessOrEqual(t, len(summarizeLabel(long)), labelSummaryMax+3)
	require.Equal(t, "short task", summarizeLabel("short task"))
}
