package models

import (
	"fmt"
	"math"
	"time"
)

// StepKind identifies what a plan step does.
type StepKind string

const (
	StepToolCall           StepKind = "tool_call"
	StepReasoning          StepKind = "reasoning"
	StepDataProcessing     StepKind = "data_processing"
	StepConditional        StepKind = "conditional"
	StepParallel           StepKind = "parallel"
	StepWait               StepKind = "wait"
	StepManualConfirmation StepKind = "manual_confirmation"
)

// BackoffStrategy controls how retry delays grow.
type BackoffStrategy string

const (
	BackoffFixed       BackoffStrategy = "fixed"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryPolicy configures per-step retry behavior. The zero value
// disables retries.
type RetryPolicy struct {
	MaxRetries int             // Retries after the first attempt
	Interval   time.Duration   // Base delay between attempts
	Backoff    BackoffStrategy // How the delay grows per retry
	Multiplier float64         // Growth factor for exponential backoff
	MaxDelay   time.Duration   // Upper bound on any single delay (0 = none)
}

// DefaultRetryPolicy returns the retry policy steps get when the plan
// does not override it.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Interval:   time.Second,
		Backoff:    BackoffExponential,
		Multiplier: 2.0,
		MaxDelay:   30 * time.Second,
	}
}

// Delay returns the wait before retry n (n starts at 1 for the first
// retry). Exponential growth is clamped at MaxDelay.
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	switch p.Backoff {
	case BackoffLinear:
		return p.Interval * time.Duration(n)
	case BackoffExponential:
		mult := p.Multiplier
		if mult <= 0 {
			mult = 2.0
		}
		d := time.Duration(float64(p.Interval) * math.Pow(mult, float64(n)))
		if p.MaxDelay > 0 && d > p.MaxDelay {
			return p.MaxDelay
		}
		return d
	default:
		return p.Interval
	}
}

// ToolInvocation names the tool a step calls and its arguments.
type ToolInvocation struct {
	Name string                 // Registered tool name
	Args map[string]interface{} // Tool arguments
}

// ExecutionStep is one unit of plan execution, optionally backed by a
// tool call.
type ExecutionStep struct {
	ID          string          // Unique within the owning plan
	Name        string          // Short human-readable name
	Description string          // What the step accomplishes
	Kind        StepKind        // Step category
	Tool        *ToolInvocation // Tool to invoke (nil for no-op steps)
	DependsOn   []string        // Step ids that must succeed first
	Retry       RetryPolicy     // Per-step retry override
}

// ResourceRequirements holds scheduling hints for a plan.
type ResourceRequirements struct {
	CPUCores           int // Suggested CPU cores
	MemoryMB           int // Suggested memory in MB
	NetworkConcurrency int // Max parallel network operations
	DiskSpaceMB        int // Scratch space in MB
}

// ExecutionPlan is the ordered set of steps one engine produced for one
// task. Immutable during an execution round; a replan produces a new plan.
//
// Steps are expected to be pre-sorted by the engine that created the
// plan: a step referencing a later step in DependsOn fails its
// dependency check at execution time rather than being reordered.
type ExecutionPlan struct {
	ID                string                 // Unique plan identifier
	TaskID            string                 // Owning task
	Name              string                 // Plan title
	Steps             []ExecutionStep        // Ordered execution steps
	EstimatedDuration time.Duration          // Engine's duration estimate
	Resources         ResourceRequirements   // Scheduling hints
	Metadata          map[string]interface{} // Engine-specific extras
}

// Validate checks step id uniqueness and that every dependency
// references a step that exists in the plan.
func (p *ExecutionPlan) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("plan id is required")
	}
	seen := make(map[string]bool, len(p.Steps))
	for _, step := range p.Steps {
		if step.ID == "" {
			return fmt.Errorf("plan %s: step has empty id", p.ID)
		}
		if seen[step.ID] {
			return fmt.Errorf("plan %s: duplicate step id %s", p.ID, step.ID)
		}
		seen[step.ID] = true
	}
	for _, step := range p.Steps {
		for _, dep := range step.DependsOn {
			if !seen[dep] {
				return fmt.Errorf("plan %s: step %s depends on unknown step %s", p.ID, step.ID, dep)
			}
		}
	}
	return nil
}

// Step returns the step with the given id, or nil.
func (p *ExecutionPlan) Step(id string) *ExecutionStep {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}
