package engine

import (
	"context"
	"sync"

	"github.com/o0x1024/sentinel-core/internal/config"
	"github.com/o0x1024/sentinel-core/internal/executor"
	"github.com/o0x1024/sentinel-core/internal/models"
	"github.com/o0x1024/sentinel-core/internal/reflection"
)

// CompilerEngine compiles the plan's dependency graph into waves and
// executes each wave with bounded parallelism. Waves run sequentially;
// steps within a wave run concurrently up to the configured limit.
type CompilerEngine struct {
	base
}

// NewCompilerEngine creates the wave-compiling engine.
func NewCompilerEngine(planner Planner, steps *executor.StepExecutor, reflector *reflection.Reflector, cfg *config.Config, logger Logger) *CompilerEngine {
	return &CompilerEngine{base: base{
		info: EngineInfo{
			Name:        NameCompiler,
			Description: "Dependency-graph compilation into parallel execution waves",
			BestFor:     []models.TaskComplexity{models.ComplexityMedium},
		},
		planner:   planner,
		steps:     steps,
		reflector: reflector,
		cfg:       cfg,
		logger:    logger,
	}}
}

// SupportsTask accepts tasks whose plans can benefit from parallelism;
// single-step simple tasks gain nothing here.
func (e *CompilerEngine) SupportsTask(task models.Task, complexity models.TaskComplexity) bool {
	return complexity != models.ComplexitySimple
}

// ExecutePlan compiles the plan into waves and runs them.
func (e *CompilerEngine) ExecutePlan(ctx context.Context, plan *models.ExecutionPlan, execCtx *models.ExecutionContext) (*models.ExecutionResult, error) {
	waves, err := calculateWaves(plan.Steps)
	if err != nil {
		return nil, models.WrapError(models.ErrPlanningFailed, err, "compiling plan %s", plan.ID)
	}

	for i, wave := range waves {
		if execCtx.Cancelled() || ctx.Err() != nil {
			if e.logger != nil {
				e.logger.Infof("execution %s cancelled before wave %d", execCtx.ExecutionID, i+1)
			}
			break
		}
		if e.logger != nil {
			e.logger.Debugf("wave %d/%d: %d step(s)", i+1, len(waves), len(wave))
		}
		e.executeWave(ctx, wave, execCtx)
	}

	return buildResult(execCtx, e.reflector.Reflect(execCtx)), nil
}

// executeWave runs one wave's steps concurrently behind a semaphore.
// Steps whose dependencies failed in earlier waves are failed without
// invoking their tool.
func (e *CompilerEngine) executeWave(ctx context.Context, wave []models.ExecutionStep, execCtx *models.ExecutionContext) {
	maxConcurrency := e.cfg.MaxConcurrency
	if maxConcurrency <= 0 || maxConcurrency > len(wave) {
		maxConcurrency = len(wave)
	}
	if maxConcurrency == 0 {
		maxConcurrency = 1
	}

	semaphore := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

launch:
	for _, step := range wave {
		if !execCtx.DependenciesSatisfied(step.DependsOn) {
			execCtx.AddResult(models.StepFailure(step.ID, "Dependencies not satisfied", 0))
			continue
		}

		select {
		case <-ctx.Done():
			// Stop launching, but in-flight steps must finish and
			// record their results before the wave returns.
			break launch
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(step models.ExecutionStep) {
			defer wg.Done()
			defer func() { <-semaphore }()
			e.steps.Execute(ctx, step, execCtx)
		}(step)
	}

	wg.Wait()
}
