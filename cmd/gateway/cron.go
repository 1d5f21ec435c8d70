package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attoclaw/gateway/internal/config"
)

func newCronCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cron",
		Short: "Manage scheduled cron jobs",
	}
	root.AddCommand(newCronAddCmd())
	root.AddCommand(newCronListCmd())
	root.AddCommand(newCronRemoveCmd())
	root.AddCommand(newCronRunNowCmd())
	return root
}

func newCronAddCmd() *cobra.Command {
	var name, cronExpr, message, channel, chatID string
	var everySeconds, atUnixMs int64
	var deliver bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Schedule a new job",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			msg, err := a.cronSvc.AddJob(name, everySeconds, cronExpr, atUnixMs, message, deliver, channel, chatID)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "job", "job name")
	cmd.Flags().Int64Var(&everySeconds, "every-seconds", 0, "recurring interval in seconds")
	cmd.Flags().StringVar(&cronExpr, "cron-expr", "", "5-field cron expression")
	cmd.Flags().Int64Var(&atUnixMs, "at-unix-ms", 0, "one-shot fire time, unix milliseconds")
	cmd.Flags().StringVar(&message, "message", "", "prompt to run as an agent turn when the job fires")
	cmd.Flags().BoolVar(&deliver, "deliver", false, "stored on the job as payload.deliver; a fired job is published to channel/chat-id whether or not this is set")
	cmd.Flags().StringVar(&channel, "channel", "", "delivery channel")
	cmd.Flags().StringVar(&chatID, "chat-id", "", "delivery chat id")
	return cmd
}

func newCronListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			fmt.Println(a.cronSvc.ListJobsSummary())
			return nil
		},
	}
}

func newCronRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [id]",
		Short: "Remove a scheduled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			return a.cronSvc.RemoveJob(args[0])
		},
	}
}

func newCronRunNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-now [id]",
		Short: "Run a scheduled job immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			return a.cronSvc.RunJobNow(args[0])
		},
	}
}
