package engine

import (
	"context"

	"github.com/o0x1024/sentinel-core/internal/config"
	"github.com/o0x1024/sentinel-core/internal/executor"
	"github.com/o0x1024/sentinel-core/internal/models"
	"github.com/o0x1024/sentinel-core/internal/reflection"
)

// PlanExecuteEngine runs a linear plan with a reflection loop: execute
// the pending steps, reflect, and either finish, continue, or replan.
// The loop is bounded by the configured iteration limit.
type PlanExecuteEngine struct {
	base
}

// NewPlanExecuteEngine creates the linear plan-execute engine.
func NewPlanExecuteEngine(planner Planner, steps *executor.StepExecutor, reflector *reflection.Reflector, cfg *config.Config, logger Logger) *PlanExecuteEngine {
	return &PlanExecuteEngine{base: base{
		info: EngineInfo{
			Name:        NamePlanExecute,
			Description: "Linear plan execution with reflective replanning",
			BestFor:     []models.TaskComplexity{models.ComplexitySimple},
		},
		planner:   planner,
		steps:     steps,
		reflector: reflector,
		cfg:       cfg,
		logger:    logger,
	}}
}

// SupportsTask accepts any task; this engine is the safe default.
func (e *PlanExecuteEngine) SupportsTask(task models.Task, complexity models.TaskComplexity) bool {
	return true
}

// ExecutePlan drives the plan to a terminal decision.
func (e *PlanExecuteEngine) ExecutePlan(ctx context.Context, plan *models.ExecutionPlan, execCtx *models.ExecutionContext) (*models.ExecutionResult, error) {
	current := plan

	for execCtx.Iteration() < e.cfg.MaxIterations {
		pending := pendingSteps(current, execCtx)
		if len(pending) > 0 {
			e.steps.ExecuteSteps(ctx, pending, execCtx)
		}

		// Reflection is scoped to the active plan: failures from a
		// superseded plan must not trigger another replan.
		ref := e.reflector.ReflectResults(scopedResults(current, execCtx))
		switch ref.Decision.Type {
		case models.DecisionComplete:
			return buildResult(execCtx, ref), nil

		case models.DecisionReplan:
			next, err := e.replan(ctx, current, ref, execCtx)
			if err != nil {
				return nil, err
			}
			current = next

		default:
			// Continue: everything executed but not all succeeded and
			// the failure rate stayed under the replan threshold.
			if len(pendingSteps(current, execCtx)) == 0 {
				return buildResult(execCtx, ref), nil
			}
		}

		if execCtx.Cancelled() || ctx.Err() != nil {
			return buildResult(execCtx, models.ContinueDecision("execution cancelled")), nil
		}
		execCtx.NextIteration()
	}

	return maxIterationsResult(execCtx, e.cfg.MaxIterations), nil
}
