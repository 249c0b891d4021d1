package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/o0x1024/sentinel-core/internal/config"
	"github.com/o0x1024/sentinel-core/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent execution history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromDir(".")
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled in configuration")
			}

			store, err := history.NewStore(cfg.History.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No executions recorded.")
				return nil
			}

			for _, rec := range records {
				status := "ok"
				if !rec.Success {
					status = "FAILED"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-8s %-12s %-8s %8s  %s\n",
					rec.CreatedAt.Format(time.DateTime), status, rec.Engine,
					rec.Complexity, rec.Duration.Round(time.Millisecond), rec.TaskDescription)
				if rec.LeakedResources > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%19s  %d resource(s) leaked\n", "", rec.LeakedResources)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of records to show")

	return cmd
}
