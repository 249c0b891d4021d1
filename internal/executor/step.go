// Package executor runs individual plan steps against the tool layer,
// handling retries, timeouts, events and resource tracking.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/o0x1024/sentinel-core/internal/config"
	"github.com/o0x1024/sentinel-core/internal/models"
	"github.com/o0x1024/sentinel-core/internal/resource"
)

// ToolExecutor is the tool invocation surface the step executor needs.
// Implemented by the tool registry.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]interface{}) (interface{}, error)
	ListTools() []string
	IsAvailable(name string) bool
}

// Emitter receives execution events for UIs and logs. Implementations
// must be safe for concurrent use.
type Emitter interface {
	EmitToolCall(executionID, stepID, tool string, args map[string]interface{})
	EmitToolResult(executionID, stepID, tool string, output interface{}, err error)
	EmitProgress(executionID string, progress models.ExecutionProgress)
}

// NoOpEmitter discards all events.
type NoOpEmitter struct{}

func (NoOpEmitter) EmitToolCall(executionID, stepID, tool string, args map[string]interface{}) {}
func (NoOpEmitter) EmitToolResult(executionID, stepID, tool string, output interface{}, err error) {
}
func (NoOpEmitter) EmitProgress(executionID string, progress models.ExecutionProgress) {
}

// Logger is the logging subset the step executor uses.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	LogStepResult(result models.StepResult)
	LogProgress(index, total int, description string)
}

// StepExecutor executes plan steps one at a time. Engines share a
// single StepExecutor per run.
type StepExecutor struct {
	tools   ToolExecutor
	emitter Emitter
	cfg     *config.Config
	logger  Logger
	tracker *resource.Tracker
}

// NewStepExecutor creates a StepExecutor. The emitter and tracker may
// be nil; a nil emitter discards events and a nil tracker disables
// resource tracking.
func NewStepExecutor(tools ToolExecutor, cfg *config.Config, logger Logger, emitter Emitter, tracker *resource.Tracker) *StepExecutor {
	if emitter == nil {
		emitter = NoOpEmitter{}
	}
	return &StepExecutor{
		tools:   tools,
		emitter: emitter,
		cfg:     cfg,
		logger:  logger,
		tracker: tracker,
	}
}

// Tracker returns the resource tracker shared with the engines.
func (e *StepExecutor) Tracker() *resource.Tracker {
	return e.tracker
}

// Execute runs a single step and records its result in the execution
// context. Steps without a tool invocation complete immediately.
func (e *StepExecutor) Execute(ctx context.Context, step models.ExecutionStep, execCtx *models.ExecutionContext) models.StepResult {
	start := time.Now()
	result := e.execute(ctx, step, execCtx, start)
	execCtx.AddResult(result)
	if e.logger != nil {
		e.logger.LogStepResult(result)
	}
	return result
}

func (e *StepExecutor) execute(ctx context.Context, step models.ExecutionStep, execCtx *models.ExecutionContext, start time.Time) models.StepResult {
	if step.Tool == nil {
		return models.StepNoOp(step.ID)
	}

	toolName := step.Tool.Name
	if !e.cfg.IsToolEnabled(toolName) {
		return models.StepFailure(step.ID, fmt.Sprintf("Tool %s is disabled", toolName), time.Since(start))
	}

	ctx, span := startStepSpan(ctx, step)
	defer span.End()

	e.emitter.EmitToolCall(execCtx.ExecutionID, step.ID, toolName, step.Tool.Args)

	output, err := e.invokeWithRetry(ctx, step)
	e.emitter.EmitToolResult(execCtx.ExecutionID, step.ID, toolName, output, err)
	if err != nil {
		recordSpanError(span, err)
		return models.StepFailure(step.ID, err.Error(), time.Since(start))
	}

	if e.tracker != nil {
		e.tracker.RegisterByTool(toolName, step.ID, step.Tool.Args)
		e.tracker.MarkReleasedByTool(toolName)
	}

	return models.StepSuccess(step.ID, output, time.Since(start))
}

// invokeWithRetry runs the tool, retrying transient failures per the
// step's retry policy. Timeouts come from the tool config, not the
// step.
func (e *StepExecutor) invokeWithRetry(ctx context.Context, step models.ExecutionStep) (interface{}, error) {
	toolName := step.Tool.Name
	policy := step.Retry

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := policy.Delay(attempt)
			if e.logger != nil {
				e.logger.Debugf("retrying tool %s (attempt %d/%d) after %s: %v",
					toolName, attempt, policy.MaxRetries, delay, lastErr)
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		output, err := e.invoke(ctx, step)
		if err == nil {
			return output, nil
		}
		lastErr = err

		// Context cancellation is final, not transient.
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (e *StepExecutor) invoke(ctx context.Context, step models.ExecutionStep) (interface{}, error) {
	toolName := step.Tool.Name
	timeout := e.cfg.ToolTimeout()

	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, err := e.tools.Execute(toolCtx, toolName, step.Tool.Args)
	if err != nil {
		if toolCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, &models.OrchestratorError{
				Kind:      models.ErrExecutionFailed,
				Message:   fmt.Sprintf("Tool %s timed out after %s", toolName, timeout),
				Retryable: true,
			}
		}
		return nil, err
	}
	return output, nil
}

// ExecuteSteps runs an ordered slice of steps sequentially. Before each
// step it checks for cancellation and verifies the step's dependencies
// completed successfully; unsatisfied dependencies fail the step
// without invoking its tool.
func (e *StepExecutor) ExecuteSteps(ctx context.Context, steps []models.ExecutionStep, execCtx *models.ExecutionContext) []models.StepResult {
	results := make([]models.StepResult, 0, len(steps))
	for i, step := range steps {
		if execCtx.Cancelled() || ctx.Err() != nil {
			if e.logger != nil {
				e.logger.Infof("execution %s cancelled, skipping remaining %d step(s)",
					execCtx.ExecutionID, len(steps)-i)
			}
			break
		}

		if e.logger != nil {
			e.logger.LogProgress(i+1, len(steps), step.Description)
		}
		e.emitter.EmitProgress(execCtx.ExecutionID, models.ExecutionProgress{
			TotalSteps:     len(steps),
			CompletedSteps: i,
			CurrentStep:    step.ID,
			Percentage:     float64(i) / float64(len(steps)) * 100,
		})

		if !execCtx.DependenciesSatisfied(step.DependsOn) {
			result := models.StepFailure(step.ID, "Dependencies not satisfied", 0)
			execCtx.AddResult(result)
			if e.logger != nil {
				e.logger.LogStepResult(result)
			}
			results = append(results, result)
			continue
		}

		results = append(results, e.Execute(ctx, step, execCtx))
	}
	return results
}
