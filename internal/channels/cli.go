package channels

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/attoclaw/gateway/internal/envelope"
)

// CLIChannelName is the fixed channel name for stdin/stdout invocations.
const CLIChannelName = "cli"

// CLIChannel adapts stdin/stdout to the bus, matching spec.md §1's
// requirement that one-shot CLI invocations run against the same core as
// long-running channel adapters.
type CLIChannel struct {
	In     io.Reader
	Out    io.Writer
	ChatID string

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

func (c *CLIChannel) Name() string { return CLIChannelName }

// Start reads newline-delimited input and publishes one Inbound envelope
// per line until EOF or Stop.
func (c *CLIChannel) Start(publish func(envelope.Inbound)) error {
	c.mu.Lock()
	c.done = make(chan struct{})
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		scanner := bufio.NewScanner(c.In)
		for scanner.Scan() {
			c.mu.Lock()
			stopped := c.stopped
			c.mu.Unlock()
			if stopped {
				return
			}
			line := scanner.Text()
			if line == "" {
				continue
			}
			publish(envelope.NewInbound(CLIChannelName, "cli-user", c.chatID(), line))
		}
	}()
	return nil
}

func (c *CLIChannel) chatID() string {
	if c.ChatID == "" {
		return "direct"
	}
	return c.ChatID
}

// Stop marks the channel stopped; the read goroutine exits on its next
// scan or at EOF.
func (c *CLIChannel) Stop() error {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	return nil
}

// Send writes an outbound reply to Out.
func (c *CLIChannel) Send(m envelope.Outbound) error {
	_, err := fmt.Fprintln(c.Out, m.Content)
	return err
}
