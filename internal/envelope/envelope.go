// Package envelope defines the message shapes that cross the bus between
// channel adapters, the agent worker, subagents, and the cron scheduler.
package envelope

import "time"

// SystemChannel is the reserved channel name for synthetic announcements
// (subagent/cron completions) and the shutdown sentinel.
const SystemChannel = "system"

// StopContent is the sentinel inbound content that unblocks the agent
// worker during shutdown.
const StopContent = "stop"

// Inbound is a message arriving from a channel adapter, a subagent
// completion, or a cron trigger.
type Inbound struct {
	Channel  string         `json:"channel"`
	SenderID string         `json:"sender_id"`
	ChatID   string         `json:"chat_id"`
	Content  string         `json:"content"`
	Timestamp string        `json:"timestamp"`
	Media    []string       `json:"media,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SessionKey returns the key identifying the conversation this envelope
// belongs to.
func (m Inbound) SessionKey() string { return m.Channel + ":" + m.ChatID }

// IsStop reports whether this is the shutdown sentinel.
func (m Inbound) IsStop() bool {
	return m.Channel == SystemChannel && m.Content == StopContent
}

// IsAnnouncement reports whether this is an asynchronous system-channel
// announcement (subagent or cron completion) rather than the stop sentinel.
func (m Inbound) IsAnnouncement() bool {
	return m.Channel == SystemChannel && m.Content != StopContent
}

// NewInbound stamps the current time in ISO8601 form, matching the
// original's now_iso8601() default member initializer.
func NewInbound(channel, senderID, chatID, content string) Inbound {
	return Inbound{
		Channel:   channel,
		SenderID:  senderID,
		ChatID:    chatID,
		Content:   content,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Metadata:  map[string]any{},
	}
}

// Outbound is a message destined for a channel adapter via the dispatcher.
type Outbound struct {
	Channel  string         `json:"channel"`
	ChatID   string         `json:"chat_id"`
	Content  string         `json:"content"`
	ReplyTo  string         `json:"reply_to,omitempty"`
	Media    []string       `json:"media,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IsEmpty reports whether this is the empty sentinel used to wake the
// dispatcher on shutdown (spec.md §9 open question: the spec deliberately
// permits a real empty envelope to be indistinguishable from the sentinel).
func (m Outbound) IsEmpty() bool {
	return m.Channel == "" && m.ChatID == "" && m.Content == "" && len(m.Media) == 0
}
