package agent

import (
	"strings"

	"github.com/attoclaw/gateway/internal/envelope"
	"github.com/attoclaw/gateway/internal/session"
)

// interceptCommand handles the fixed /new, /help, /stop commands before any
// LLM call happens (spec.md §4.7 step 1). handled is false for anything
// else, including a bare "/" prefix that isn't one of these three.
func (l *Loop) interceptCommand(sess *session.Session, m envelope.Inbound) (reply string, handled bool) {
	switch strings.ToLower(strings.TrimSpace(m.Content)) {
	case "/new":
		fresh := session.NewSession(sess.Key)
		*sess = *fresh
		l.sessions.Save(sess)
		return "Started a new session.", true
	case "/help":
		return helpText, true
	case "/stop":
		if l.taskInProgress.Load() && l.activeSession == m.SessionKey() {
			l.cancelRequested.Store(true)
			return "Stopping current task...", true
		}
		return "No active task to stop.", true
	default:
		return "", false
	}
}
