package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/o0x1024/sentinel-core/internal/complexity"
	"github.com/o0x1024/sentinel-core/internal/config"
	"github.com/o0x1024/sentinel-core/internal/engine"
	"github.com/o0x1024/sentinel-core/internal/executor"
	"github.com/o0x1024/sentinel-core/internal/history"
	"github.com/o0x1024/sentinel-core/internal/logger"
	"github.com/o0x1024/sentinel-core/internal/models"
	"github.com/o0x1024/sentinel-core/internal/planner"
	"github.com/o0x1024/sentinel-core/internal/reflection"
	"github.com/o0x1024/sentinel-core/internal/report"
	"github.com/o0x1024/sentinel-core/internal/resource"
	"github.com/o0x1024/sentinel-core/internal/tools"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	var (
		engineName string
		target     string
		logLevel   string
		htmlPath   string
	)

	cmd := &cobra.Command{
		Use:   "run <task description>",
		Short: "Run a task through the orchestration core",
		Long: `Analyze the task's complexity, dispatch it to an execution engine,
plan it against the registered tools and execute the plan.

Configuration is loaded from .sentinel/config.yaml if present.

Examples:
  sentinel run "scan port 80 on example.com"
  sentinel run --engine compiler "scan the host and then note the results"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd.Context(), args[0], engineName, target, logLevel, htmlPath)
		},
	}

	cmd.Flags().StringVar(&engineName, "engine", "", "force a specific engine (plan-execute, compiler, rewoo, ooda)")
	cmd.Flags().StringVar(&target, "target", "", "target host or URL")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	cmd.Flags().StringVar(&htmlPath, "html-report", "", "write the run report as HTML to this file")

	return cmd
}

func runTask(ctx context.Context, description, engineName, target, logLevel, htmlPath string) error {
	cfg, err := config.LoadFromDir(".")
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	log := logger.NewConsoleLogger(os.Stdout, logLevel)

	registry := tools.DefaultRegistry()
	tracker := resource.NewTracker(log)
	stepExec := executor.NewStepExecutor(registry, cfg, log, nil, tracker)
	reflector := reflection.NewReflector(cfg.Reflection, log)
	heuristic := planner.NewHeuristic(registry)
	engines := engine.DefaultEngines(heuristic, stepExec, reflector, cfg, log)
	analyzer := complexity.NewAnalyzer(cfg.Complexity, log)
	dispatcher := engine.NewDispatcher(analyzer, engines, log)
	manager := engine.NewExecutionManager(log)

	task := models.NewTask(description)
	if target != "" {
		task = task.WithTarget(target)
	}
	if engineName != "" {
		task = task.WithParameter("engine", engineName)
	}

	eng, verdict, err := dispatcher.Dispatch(ctx, task)
	if err != nil {
		return err
	}

	plan, err := eng.CreatePlan(ctx, task)
	if err != nil {
		return err
	}
	log.Infof("plan %s: %d step(s)", plan.ID, len(plan.Steps))

	execCtx := models.NewExecutionContext(uuid.New().String(), task.Description)
	manager.Register(execCtx, eng)
	defer manager.Stop(execCtx.ExecutionID)

	result, err := manager.ExecutePlan(ctx, execCtx.ExecutionID, plan)
	if err != nil {
		return err
	}

	// Release what the run left behind before reporting.
	tracker.Cleanup(ctx, registry)
	cleanup := tracker.Report()
	if cleanup.HasLeaks() {
		log.Warnf("%d resource(s) leaked", len(cleanup.Leaked))
	}

	log.LogRunSummary(*result)

	runReport := report.RunReport{
		ExecutionID:     execCtx.ExecutionID,
		TaskDescription: task.Description,
		Engine:          eng.Info().Name,
		Complexity:      verdict,
		Result:          result,
		StepResults:     execCtx.Results(),
		Cleanup:         cleanup,
		GeneratedAt:     time.Now(),
	}
	if htmlPath != "" {
		html, err := report.NewBuilder().HTML(runReport)
		if err != nil {
			return err
		}
		if err := os.WriteFile(htmlPath, []byte(html), 0644); err != nil {
			return fmt.Errorf("write html report: %w", err)
		}
		log.Infof("html report written to %s", htmlPath)
	}

	if cfg.History.Enabled {
		if err := recordHistory(ctx, cfg, task, eng.Info().Name, verdict, execCtx, result, cleanup); err != nil {
			// History is best-effort; the run outcome stands.
			log.Warnf("recording history: %v", err)
		}
	}

	if !result.Success {
		return fmt.Errorf("execution failed: %s", result.Error)
	}
	return nil
}

func recordHistory(ctx context.Context, cfg *config.Config, task models.Task, engineName string, verdict models.TaskComplexity, execCtx *models.ExecutionContext, result *models.ExecutionResult, cleanup resource.Report) error {
	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	summary := ""
	if s, ok := result.Data.(string); ok {
		summary = s
	}
	rec := history.Record{
		ExecutionID:     execCtx.ExecutionID,
		TaskDescription: task.Description,
		Engine:          engineName,
		Complexity:      verdict,
		Success:         result.Success,
		ErrorMessage:    result.Error,
		Duration:        result.ExecutionTime,
		StepsTotal:      int(result.ResourcesUsed["steps_total"]),
		StepsFailed:     int(result.ResourcesUsed["steps_failed"]),
		LeakedResources: len(cleanup.Leaked),
		Summary:         summary,
	}
	if err := store.Record(ctx, rec); err != nil {
		return err
	}
	_, err = store.Prune(ctx, cfg.History.KeepDays, cfg.History.MaxRecords)
	return err
}
