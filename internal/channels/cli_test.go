package channels

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/attoclaw/gateway/internal/envelope"
)

func TestCLIChannel_StartPublishesOneEnvelopePerLine(t *testing.T) {
	in := strings.NewReader("hello\nworld\n")
	var out bytes.Buffer
	ch := &CLIChannel{In: in, Out: &out}

	got := make(chan envelope.Inbound, 2)
	require.NoError(t, ch.Start(func(m envelope.Inbound) { got <- m }))

	first := <-got
	require.Equal(t, "hello", first.Content)
	require.Equal(t, CLIChannelName, first.Channel)
	require.Equal(t, "direct", first.ChatID)

	second := <-got
	require.Equal(t, "world", second.Content)
}

func TestCLIChannel_SendWritesToOut(t *testing.T) {
	var out bytes.Buffer
	ch := &CLIChannel{Out: &out}
	require.NoError(t, ch.Send(envelope.Outbound{Content: "reply"}))
	require.Equal(t, "reply\n", out.String())
}

func TestRegistry_DispatchRoutesToNamedChannel(t *testing.T) {
	var out bytes.Buffer
	ch := &CLIChannel{Out: &out}
	reg := NewRegistry()
	reg.Register(ch)

	reg.Dispatch(envelope.Outbound{Channel: CLIChannelName, Content: "routed"})
	require.Eventually(t, func() bool { return out.String() == "routed\n" }, time.Second, time.Millisecond)
}
