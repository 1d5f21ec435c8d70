package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/attoclaw/gateway/internal/channels"
	"github.com/attoclaw/gateway/internal/config"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the gateway until a stop signal, serving channel adapters and the control plane",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			a.channels.Register(&channels.CLIChannel{In: os.Stdin, Out: os.Stdout})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.log.Infof("gateway starting, instance_id=%s", a.instanceID)
			a.start(ctx)
			<-ctx.Done()
			a.log.Infof("gateway shutting down")
			a.shutdown(context.Background())
			return nil
		},
	}
}
