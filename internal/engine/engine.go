// Package engine contains the execution engines that turn tasks into
// plans and drive them to completion, the manager that tracks running
// executions, and the dispatcher that picks an engine per task.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/o0x1024/sentinel-core/internal/config"
	"github.com/o0x1024/sentinel-core/internal/executor"
	"github.com/o0x1024/sentinel-core/internal/models"
	"github.com/o0x1024/sentinel-core/internal/reflection"
)

// Engine names as exposed to the dispatcher and CLI.
const (
	NamePlanExecute = "plan-execute"
	NameCompiler    = "compiler"
	NameReWOO       = "rewoo"
	NameOODA        = "ooda"
)

// Planner produces and revises execution plans. Implemented by the
// planning layer (LLM-backed in production, scripted in tests).
type Planner interface {
	CreatePlan(ctx context.Context, task models.Task) (*models.ExecutionPlan, error)
	Replan(ctx context.Context, prev *models.ExecutionPlan, reflection models.Reflection, execCtx *models.ExecutionContext) (*models.ExecutionPlan, error)
}

// Logger is the logging subset the engines use.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// EngineInfo describes an engine for operator-facing listings.
type EngineInfo struct {
	Name        string
	Description string
	BestFor     []models.TaskComplexity
}

// ExecutionEngine is the contract every engine variant satisfies.
// ExecutePlan returns an error only for orchestration failures; tool
// failures surface as failed steps inside the result.
type ExecutionEngine interface {
	Info() EngineInfo
	SupportsTask(task models.Task, complexity models.TaskComplexity) bool
	CreatePlan(ctx context.Context, task models.Task) (*models.ExecutionPlan, error)
	ExecutePlan(ctx context.Context, plan *models.ExecutionPlan, execCtx *models.ExecutionContext) (*models.ExecutionResult, error)
	Progress(plan *models.ExecutionPlan, execCtx *models.ExecutionContext) models.ExecutionProgress
	Cancel(execCtx *models.ExecutionContext) error
}

// base carries the collaborators every engine shares and default
// implementations of the contract's bookkeeping methods.
type base struct {
	info      EngineInfo
	planner   Planner
	steps     *executor.StepExecutor
	reflector *reflection.Reflector
	cfg       *config.Config
	logger    Logger
}

func (b *base) Info() EngineInfo {
	return b.info
}

// CreatePlan delegates to the planner and validates the result before
// handing it to execution.
func (b *base) CreatePlan(ctx context.Context, task models.Task) (*models.ExecutionPlan, error) {
	plan, err := b.planner.CreatePlan(ctx, task)
	if err != nil {
		return nil, models.WrapError(models.ErrPlanningFailed, err, "planning task %s", task.ID)
	}
	if err := plan.Validate(); err != nil {
		return nil, models.WrapError(models.ErrPlanningFailed, err, "planner produced invalid plan")
	}
	return plan, nil
}

// Progress counts recorded results against the plan's step set.
func (b *base) Progress(plan *models.ExecutionPlan, execCtx *models.ExecutionContext) models.ExecutionProgress {
	total := len(plan.Steps)
	completed := 0
	for _, step := range plan.Steps {
		if _, ok := execCtx.Result(step.ID); ok {
			completed++
		}
	}
	progress := models.ExecutionProgress{
		TotalSteps:     total,
		CompletedSteps: completed,
	}
	if total > 0 {
		progress.Percentage = float64(completed) / float64(total) * 100
	}
	return progress
}

// Cancel requests cooperative cancellation. In-flight tool calls finish
// or time out on their own schedule.
func (b *base) Cancel(execCtx *models.ExecutionContext) error {
	if b.logger != nil {
		b.logger.Warnf("cancelling execution %s", execCtx.ExecutionID)
	}
	execCtx.Cancel()
	return nil
}

// replan asks the planner for a revised plan and validates it.
func (b *base) replan(ctx context.Context, prev *models.ExecutionPlan, ref models.Reflection, execCtx *models.ExecutionContext) (*models.ExecutionPlan, error) {
	if b.logger != nil {
		b.logger.Infof("replanning execution %s: %s", execCtx.ExecutionID, ref.Decision.Reason)
	}
	plan, err := b.planner.Replan(ctx, prev, ref, execCtx)
	if err != nil {
		return nil, models.WrapError(models.ErrReplanningFailed, err, "replanning execution %s", execCtx.ExecutionID)
	}
	if err := plan.Validate(); err != nil {
		return nil, models.WrapError(models.ErrReplanningFailed, err, "planner produced invalid plan")
	}
	return plan, nil
}

// pendingSteps returns the plan steps with no recorded result, in plan
// order.
func pendingSteps(plan *models.ExecutionPlan, execCtx *models.ExecutionContext) []models.ExecutionStep {
	var pending []models.ExecutionStep
	for _, step := range plan.Steps {
		if _, ok := execCtx.Result(step.ID); !ok {
			pending = append(pending, step)
		}
	}
	return pending
}

// scopedResults returns the recorded results belonging to the given
// plan's steps. Replanning engines reflect over this scope so a
// superseded plan's failures stop driving decisions.
func scopedResults(plan *models.ExecutionPlan, execCtx *models.ExecutionContext) map[string]models.StepResult {
	scoped := make(map[string]models.StepResult, len(plan.Steps))
	for _, step := range plan.Steps {
		if r, ok := execCtx.Result(step.ID); ok {
			scoped[step.ID] = r
		}
	}
	return scoped
}

// buildResult assembles the aggregate outcome from the context's step
// results and a final reflection.
func buildResult(execCtx *models.ExecutionContext, ref models.Reflection) *models.ExecutionResult {
	results := execCtx.Results()
	succeeded, failed := 0, 0
	ids := make([]string, 0, len(results))
	for id, r := range results {
		ids = append(ids, id)
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	sort.Strings(ids)

	result := &models.ExecutionResult{
		ID:            execCtx.ExecutionID,
		Success:       ref.Decision.Type == models.DecisionComplete,
		ExecutionTime: execCtx.Elapsed(),
		ResourcesUsed: map[string]float64{
			"steps_total":     float64(len(results)),
			"steps_succeeded": float64(succeeded),
			"steps_failed":    float64(failed),
		},
	}
	if result.Success {
		result.Data = ref.Decision.Answer
	} else {
		result.Error = resultError(ref)
	}
	return result
}

func resultError(ref models.Reflection) string {
	switch ref.Decision.Type {
	case models.DecisionError:
		return ref.Decision.Message
	case models.DecisionReplan:
		return ref.Decision.Reason
	default:
		if ref.Reasoning != "" {
			return ref.Reasoning
		}
		return "execution did not complete"
	}
}

// maxIterationsResult is the failure outcome when a control loop runs
// out of iterations.
func maxIterationsResult(execCtx *models.ExecutionContext, limit int) *models.ExecutionResult {
	result := buildResult(execCtx, models.Reflection{})
	result.Success = false
	result.Error = fmt.Sprintf("max iterations (%d) reached without completion", limit)
	result.ExecutionTime = time.Since(execCtx.StartedAt)
	return result
}
