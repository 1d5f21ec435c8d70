// Package channels defines the adapter contract between the bus and the
// outside world. Individual wire protocols (Telegram/Slack/Discord/Email/
// WhatsApp) are out of scope per spec.md §1; only the interface and a CLI
// adapter — needed for one-shot invocations against the same core — live
// here.
package channels

import "github.com/attoclaw/gateway/internal/envelope"

// Channel is one adapter between the bus and an external transport.
type Channel interface {
	Name() string
	Start(publish func(envelope.Inbound)) error
	Stop() error
	Send(envelope.Outbound) error
}

// Registry tracks the active set of channel adapters by name.
type Registry struct {
	channels map[string]Channel
}

// NewRegistry builds an empty channel registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Register adds ch, keyed by its Name().
func (r *Registry) Register(ch Channel) {
	r.channels[ch.Name()] = ch
}

// Get looks up a channel adapter by name.
func (r *Registry) Get(name string) (Channel, bool) {
	ch, ok := r.channels[name]
	return ch, ok
}

// StartAll starts every registered channel, wiring each one's inbound
// production to publish.
func (r *Registry) StartAll(publish func(envelope.Inbound)) error {
	for _, ch := range r.channels {
		if err := ch.Start(publish); err != nil {
			return err
		}
	}
	return nil
}

// StopAll stops every registered channel, collecting the first error.
func (r *Registry) StopAll() error {
	var firstErr error
	for _, ch := range r.channels {
		if err := ch.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Dispatch routes an outbound envelope to its named channel.
func (r *Registry) Dispatch(m envelope.Outbound) {
	if ch, ok := r.channels[m.Channel]; ok {
		_ = ch.Send(m)
	}
}
