// Package session implements the per-conversation history store: an
// in-memory cache over per-key JSON-Lines files, each rewritten whole on
// save, grounded on session.hpp.
package session

import "time"

// Role values a Message may carry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSystem    = "system"
)

// Message is one turn of conversation history.
type Message struct {
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp"`
	ToolsUsed []string `json:"tools_used,omitempty"`
}

// Session is the full exchange history for one (channel, chat_id) pair.
// Invariant: LastConsolidated <= len(Messages).
type Session struct {
	Key              string    `json:"key"`
	Messages         []Message `json:"-"`
	CreatedAt        int64     `json:"created_at"`
	UpdatedAt        int64     `json:"updated_at"`
	LastConsolidated int       `json:"last_consolidated"`
}

func nowMs() int64 { return time.Now().UnixMilli() }

// NewSession creates an empty session for key, timestamped now.
func NewSession(key string) *Session {
	now := nowMs()
	return &Session{Key: key, CreatedAt: now, UpdatedAt: now}
}

// AppendUser appends a user message and bumps UpdatedAt.
func (s *Session) AppendUser(content string) {
	s.append(Message{Role: RoleUser, Content: content, Timestamp: time.Now().UTC().Format(time.RFC3339)})
}

// AppendAssistant appends an assistant message, recording which tools (if
// any) were invoked during the turn that produced it.
func (s *Session) AppendAssistant(content string, toolsUsed []string) {
	s.append(Message{Role: RoleAssistant, Content: content, Timestamp: time.Now().UTC().Format(time.RFC3339), ToolsUsed: toolsUsed})
}

func (s *Session) append(m Message) {
	s.Messages = append(s.Messages, m)
	s.UpdatedAt = nowMs()
}

// Tail returns at most the last n messages, matching the configured memory
// window's context-truncation rule (spec.md §4.6).
func (s *Session) Tail(n int) []Message {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}
