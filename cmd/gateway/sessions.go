package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attoclaw/gateway/internal/config"
)

func newSessionsCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage persisted conversation sessions",
	}
	root.AddCommand(newSessionsListCmd())
	root.AddCommand(newSessionsClearCmd())
	return root
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every session with history on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			keys, err := a.sessions.ListKeys()
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Println("No sessions on disk.")
				return nil
			}
			for _, key := range keys {
				sess := a.sessions.GetOrCreate(key)
				fmt.Printf("%s\t%d messages\tupdated_at=%d\n", key, len(sess.Messages), sess.UpdatedAt)
			}
			return nil
		},
	}
}

func newSessionsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [key]",
		Short: "Delete a session's persisted history",
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
			if err := a.sessions.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Cleared session %q.\n", args[0])
			return nil
		},
	}
}
