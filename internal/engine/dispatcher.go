package engine

import (
	"context"

	"github.com/o0x1024/sentinel-core/internal/complexity"
	"github.com/o0x1024/sentinel-core/internal/config"
	"github.com/o0x1024/sentinel-core/internal/executor"
	"github.com/o0x1024/sentinel-core/internal/models"
	"github.com/o0x1024/sentinel-core/internal/reflection"
)

// Dispatcher picks an execution engine for a task from its complexity
// verdict. Callers can force a specific engine through the task's
// "engine" parameter.
type Dispatcher struct {
	analyzer *complexity.Analyzer
	engines  map[string]ExecutionEngine
	logger   Logger
}

// NewDispatcher creates a Dispatcher over the given engines, keyed by
// engine name.
func NewDispatcher(analyzer *complexity.Analyzer, engines map[string]ExecutionEngine, logger Logger) *Dispatcher {
	return &Dispatcher{analyzer: analyzer, engines: engines, logger: logger}
}

// Engines returns the registered engines keyed by name.
func (d *Dispatcher) Engines() map[string]ExecutionEngine {
	return d.engines
}

// Dispatch analyzes the task and returns the engine to run it, plus the
// complexity verdict that drove the choice.
func (d *Dispatcher) Dispatch(ctx context.Context, task models.Task) (ExecutionEngine, models.TaskComplexity, error) {
	verdict := d.analyzer.Analyze(ctx, task.Description, task.Parameters)

	if override, ok := task.Parameters["engine"].(string); ok && override != "" {
		eng, exists := d.engines[override]
		if !exists {
			return nil, verdict, models.NewError(models.ErrConfig, "unknown engine %q", override)
		}
		if d.logger != nil {
			d.logger.Infof("engine %s forced by task parameter", override)
		}
		return eng, verdict, nil
	}

	name := engineForComplexity(verdict)
	eng, exists := d.engines[name]
	if !exists {
		return nil, verdict, models.NewError(models.ErrConfig, "engine %q not registered", name)
	}
	if d.logger != nil {
		d.logger.Infof("dispatching %s task to engine %s", verdict, name)
	}
	return eng, verdict, nil
}

// engineForComplexity is the default complexity-to-engine mapping.
func engineForComplexity(verdict models.TaskComplexity) string {
	switch verdict {
	case models.ComplexityComplex:
		return NameOODA
	case models.ComplexityMedium:
		return NameReWOO
	default:
		return NamePlanExecute
	}
}

// DefaultEngines builds the standard four-engine set sharing one step
// executor and one reflector.
func DefaultEngines(planner Planner, steps *executor.StepExecutor, reflector *reflection.Reflector, cfg *config.Config, logger Logger) map[string]ExecutionEngine {
	return map[string]ExecutionEngine{
		NamePlanExecute: NewPlanExecuteEngine(planner, steps, reflector, cfg, logger),
		NameCompiler:    NewCompilerEngine(planner, steps, reflector, cfg, logger),
		NameReWOO:       NewReWOOEngine(planner, steps, reflector, cfg, logger),
		NameOODA:        NewOODAEngine(planner, steps, reflector, cfg, logger),
	}
}
