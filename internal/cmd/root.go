package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for sentinel
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sentinel",
		Short: "Orchestration core for autonomous security testing",
		Long: `Sentinel analyzes a task description, picks an execution engine for
its complexity, plans the work, and drives the plan through the tool
layer with reflection, retries and resource-leak tracking.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewEnginesCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
