package engine

import (
	"context"

	"github.com/o0x1024/sentinel-core/internal/config"
	"github.com/o0x1024/sentinel-core/internal/executor"
	"github.com/o0x1024/sentinel-core/internal/models"
	"github.com/o0x1024/sentinel-core/internal/reflection"
)

// OODAEngine runs an observe-orient-decide-act loop: each cycle
// observes which steps are ready, acts on that batch, then reflects on
// the accumulated evidence to decide whether to continue, replan, or
// conclude. The most adaptive engine and the most expensive one.
type OODAEngine struct {
	base
}

// NewOODAEngine creates the observe-orient-decide-act engine.
func NewOODAEngine(planner Planner, steps *executor.StepExecutor, reflector *reflection.Reflector, cfg *config.Config, logger Logger) *OODAEngine {
	return &OODAEngine{base: base{
		info: EngineInfo{
			Name:        NameOODA,
			Description: "Observe-orient-decide-act loop with per-cycle reflection",
			BestFor:     []models.TaskComplexity{models.ComplexityComplex},
		},
		planner:   planner,
		steps:     steps,
		reflector: reflector,
		cfg:       cfg,
		logger:    logger,
	}}
}

// SupportsTask reserves this engine for medium and complex work.
func (e *OODAEngine) SupportsTask(task models.Task, complexity models.TaskComplexity) bool {
	return complexity != models.ComplexitySimple
}

// ExecutePlan drives the OODA loop until a terminal decision or the
// iteration limit.
func (e *OODAEngine) ExecutePlan(ctx context.Context, plan *models.ExecutionPlan, execCtx *models.ExecutionContext) (*models.ExecutionResult, error) {
	current := plan

	for execCtx.Iteration() < e.cfg.MaxIterations {
		if execCtx.Cancelled() || ctx.Err() != nil {
			return buildResult(execCtx, models.ContinueDecision("execution cancelled")), nil
		}

		// Observe: which steps are pending, and which of those are ready.
		pending := pendingSteps(current, execCtx)
		if len(pending) == 0 {
			return buildResult(execCtx, e.reflector.ReflectResults(scopedResults(current, execCtx))), nil
		}
		ready := readySteps(pending, execCtx)

		// Steps blocked on failed dependencies can never become ready;
		// fail them so the run terminates with an honest verdict.
		if len(ready) == 0 {
			for _, step := range pending {
				execCtx.AddResult(models.StepFailure(step.ID, "Dependencies not satisfied", 0))
			}
			return buildResult(execCtx, e.reflector.ReflectResults(scopedResults(current, execCtx))), nil
		}

		// Act.
		e.steps.ExecuteSteps(ctx, ready, execCtx)

		// Orient and decide.
		if e.reflector.ShouldReflect(execCtx) {
			ref := e.reflector.ReflectResults(scopedResults(current, execCtx))
			switch ref.Decision.Type {
			case models.DecisionComplete:
				// A clean batch mid-plan is not terminal; steps are
				// still pending, so keep cycling.
				if len(pendingSteps(current, execCtx)) == 0 {
					return buildResult(execCtx, ref), nil
				}
			case models.DecisionReplan:
				next, err := e.replan(ctx, current, ref, execCtx)
				if err != nil {
					return nil, err
				}
				current = next
			}
		}

		execCtx.NextIteration()
	}

	return maxIterationsResult(execCtx, e.cfg.MaxIterations), nil
}

// readySteps filters pending steps to those whose dependencies have all
// succeeded.
func readySteps(pending []models.ExecutionStep, execCtx *models.ExecutionContext) []models.ExecutionStep {
	var ready []models.ExecutionStep
	for _, step := range pending {
		if execCtx.DependenciesSatisfied(step.DependsOn) {
			ready = append(ready, step)
		}
	}
	return ready
}
