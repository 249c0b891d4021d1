package engine

import (
	"context"

	"github.com/o0x1024/sentinel-core/internal/config"
	"github.com/o0x1024/sentinel-core/internal/executor"
	"github.com/o0x1024/sentinel-core/internal/models"
	"github.com/o0x1024/sentinel-core/internal/reflection"
)

// ReWOOEngine is plan-then-solve: the full plan executes in one pass
// with no intermediate reflection, and a single synthesis step at the
// end produces the answer. Cheap on LLM round-trips, blind to failures
// until the end.
type ReWOOEngine struct {
	base
}

// NewReWOOEngine creates the one-shot plan-then-solve engine.
func NewReWOOEngine(planner Planner, steps *executor.StepExecutor, reflector *reflection.Reflector, cfg *config.Config, logger Logger) *ReWOOEngine {
	return &ReWOOEngine{base: base{
		info: EngineInfo{
			Name:        NameReWOO,
			Description: "One-shot plan-then-solve without intermediate reflection",
			BestFor:     []models.TaskComplexity{models.ComplexityMedium},
		},
		planner:   planner,
		steps:     steps,
		reflector: reflector,
		cfg:       cfg,
		logger:    logger,
	}}
}

// SupportsTask rejects complex tasks: with no mid-run reflection this
// engine cannot adapt to surprises.
func (e *ReWOOEngine) SupportsTask(task models.Task, complexity models.TaskComplexity) bool {
	return complexity != models.ComplexityComplex
}

// ExecutePlan runs every step once, in plan order, then synthesizes.
func (e *ReWOOEngine) ExecutePlan(ctx context.Context, plan *models.ExecutionPlan, execCtx *models.ExecutionContext) (*models.ExecutionResult, error) {
	e.steps.ExecuteSteps(ctx, plan.Steps, execCtx)
	return buildResult(execCtx, e.reflector.Reflect(execCtx)), nil
}
