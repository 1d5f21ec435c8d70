// Command gateway runs the personal AI-assistant gateway core: the
// message bus, agent turn loop, tool registry, cron scheduler, and
// subagent manager described by internal/agent, internal/cron, and
// internal/subagent.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gateway",
		Short: "Personal AI-assistant gateway core",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the gateway config file")

	root.AddCommand(newRunCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(newCronCmd())
	root.AddCommand(newSessionsCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
