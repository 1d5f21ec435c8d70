package agent

import (
	"context"
	"strings"

	"github.com/attoclaw/gateway/internal/envelope"
)

// pollForStop drains up to stopPollLLMBudget pending inbound envelopes
// without blocking, between LLM/tool rounds (spec.md §4.7.2). A "/stop"
// addressed at the active session sets cancelRequested and announces
// immediately; everything else is pushed to the deferred queue for
// replay once the turn's run scope closes. It returns (true, stoppedContent)
// once cancellation has been requested, on this call or any earlier one.
func (l *Loop) pollForStop(activeChannel, activeChatID string) (bool, string) {
	activeKey := activeChannel + ":" + activeChatID
	for i := 0; i < stopPollLLMBudget; i++ {
		m, ok := l.bus.TryConsumeInbound()
		if !ok {
			break
		}
		if m.IsStop() {
			// Shutdown sentinel arriving mid-turn: defer it so Run() sees
			// it after this turn finishes.
			l.deferred.push(m)
			continue
		}
		if strings.ToLower(strings.TrimSpace(m.Content)) == "/stop" && m.SessionKey() == activeKey {
			l.cancelRequested.Store(true)
			l.publishReply(m, "Stopping current task...")
			continue
		}
		l.deferred.push(m)
	}
	if l.cancelRequested.Load() {
		return true, stoppedContent
	}
	return false, ""
}

// processSystemMessage handles an asynchronous system-channel announcement
// (subagent, cron, or heartbeat completion) that arrived while no turn was
// running. Per spec.md §4.7.1 it runs a full turn with the announcement as
// the user-role message prefixed with "[System] " and yields an outbound
// envelope addressed to the announced session (agent.hpp:525's
// process_system_message → run_agent_loop(...) producing final_content).
func (l *Loop) processSystemMessage(ctx context.Context, m envelope.Inbound) {
	target := targetSessionFromAnnouncement(m)
	if target == "" {
		l.log.Warnf("system announcement with no resolvable target session: %q", m.Content)
		return
	}
	channel, chatID, ok := splitSessionKey(target)
	if !ok {
		l.log.Warnf("system announcement with malformed target session %q", target)
		return
	}

	l.activeSession = target
	scope := l.enterRunScope(false)
	defer scope.Close()

	final := l.runSystemTurn(ctx, target, channel, chatID, m)
	l.bus.PublishOutbound(envelope.Outbound{Channel: channel, ChatID: chatID, Content: final})
}

// runSystemTurn drives a full turn for a system-channel announcement and
// appends it to the target session, returning the turn's final content.
// Callers are responsible for the run scope: processSystemMessage opens
// its own (no turn is active yet), drainSystemAnnouncements reuses the
// scope the in-flight turn already holds.
func (l *Loop) runSystemTurn(ctx context.Context, target, channel, chatID string, m envelope.Inbound) string {
	sess := l.sessions.GetOrCreate(target)
	userContent := "[System] " + m.Content
	synthetic := envelope.Inbound{Channel: channel, ChatID: chatID, SenderID: m.SenderID, Content: m.Content, Timestamp: m.Timestamp}

	l.metrics.TurnsStarted.Inc()
	final, toolsUsed := l.runTurn(ctx, sess, synthetic, userContent)
	l.metrics.TurnsCompleted.Inc()

	sess.AppendUser(userContent)
	sess.AppendAssistant(final, toolsUsed)
	l.sessions.Save(sess)
	return final
}

// targetSessionFromAnnouncement recovers the "channel:chat_id" key an
// announcement should be folded into. Subagent completions (see the
// subagent package) and heartbeat ticks (cmd/gateway/app.go) stash it in
// ChatID directly.
func targetSessionFromAnnouncement(m envelope.Inbound) string {
	if m.ChatID == "" {
		return ""
	}
	return m.ChatID
}

// splitSessionKey parses a "channel:chat_id" session key back into its
// two parts.
func splitSessionKey(key string) (channel, chatID string, ok bool) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// drainSystemAnnouncements runs immediately after a turn completes
// (spec.md §4.7 step 11): up to systemDrainBudget inbound envelopes are
// popped non-blockingly. Ones addressed at this session run a full turn
// (§4.7.1) whose response is folded into the reply inline; everything else
// is republished for the next Run() iteration to pick up.
func (l *Loop) drainSystemAnnouncements(ctx context.Context, sessionKey, final string) string {
	channel, chatID, ok := splitSessionKey(sessionKey)
	for i := 0; i < systemDrainBudget; i++ {
		m, mok := l.bus.TryConsumeInbound()
		if !mok {
			break
		}
		if ok && m.IsAnnouncement() && targetSessionFromAnnouncement(m) == sessionKey {
			result := l.runSystemTurn(ctx, sessionKey, channel, chatID, m)
			final = final + "\n\n" + result
			continue
		}
		l.bus.PublishInbound(m)
	}
	return final
}
