package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/attoclaw/gateway/internal/config"
	"github.com/attoclaw/gateway/internal/envelope"
)

const chatChannel = "cli"

func newChatCmd() *cobra.Command {
	var chatID string
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Run one turn against the gateway core and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			reply := make(chan string, 1)
			a.bus.StartDispatcher()
			a.bus.SubscribeOutbound(chatChannel, func(o envelope.Outbound) { reply <- o.Content })

			agentDone := make(chan struct{})
			go func() {
				defer close(agentDone)
				a.loop.Run(ctx)
			}()

			a.bus.PublishInbound(envelope.NewInbound(chatChannel, "cli-user", chatID, strings.Join(args, " ")))

			select {
			case content := <-reply:
				fmt.Println(content)
			case <-ctx.Done():
			}

			a.bus.PublishInbound(envelope.Inbound{Channel: envelope.SystemChannel, Content: envelope.StopContent})
			<-agentDone
			a.bus.StopDispatcher()
			return nil
		},
	}
	cmd.Flags().StringVar(&chatID, "chat-id", "direct", "session chat id to use for this invocation")
	return cmd
}
