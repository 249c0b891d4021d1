package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/o0x1024/sentinel-core/internal/complexity"
	"github.com/o0x1024/sentinel-core/internal/config"
	"github.com/o0x1024/sentinel-core/internal/engine"
	"github.com/o0x1024/sentinel-core/internal/executor"
	"github.com/o0x1024/sentinel-core/internal/models"
	"github.com/o0x1024/sentinel-core/internal/planner"
	"github.com/o0x1024/sentinel-core/internal/reflection"
	"github.com/o0x1024/sentinel-core/internal/resource"
	"github.com/o0x1024/sentinel-core/internal/tools"
)

// NewEnginesCommand creates the engines command
func NewEnginesCommand() *cobra.Command {
	var classify string

	cmd := &cobra.Command{
		Use:   "engines",
		Short: "List the available execution engines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			registry := tools.DefaultRegistry()
			stepExec := executor.NewStepExecutor(registry, cfg, nil, nil, resource.NewTracker(nil))
			reflector := reflection.NewReflector(cfg.Reflection, nil)
			engines := engine.DefaultEngines(planner.NewHeuristic(registry), stepExec, reflector, cfg, nil)

			names := make([]string, 0, len(engines))
			for name := range engines {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				info := engines[name].Info()
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s", info.Name, info.Description)
				if len(info.BestFor) > 0 {
					best := make([]string, len(info.BestFor))
					for i, c := range info.BestFor {
						best[i] = string(c)
					}
					fmt.Fprintf(cmd.OutOrStdout(), " (best for: %s)", strings.Join(best, ", "))
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}

			if classify != "" {
				analyzer := complexity.NewAnalyzer(cfg.Complexity, nil)
				verdict := analyzer.Analyze(cmd.Context(), classify, nil)
				task := models.NewTask(classify)
				fmt.Fprintf(cmd.OutOrStdout(), "\n%q classifies as %s; supporting engines:", classify, verdict)
				for _, name := range names {
					if engines[name].SupportsTask(task, verdict) {
						fmt.Fprintf(cmd.OutOrStdout(), " %s", name)
					}
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&classify, "classify", "", "also classify a task description and show which engines support it")

	return cmd
}
