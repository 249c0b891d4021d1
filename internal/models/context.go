package models

import (
	"sync"
	"time"
)

// ExecutionContext is the mutable per-run state: accumulated step
// results, the iteration counter, and the cooperative cancellation
// flag. It is distinct from the immutable plan.
//
// The step batch of one execution runs sequentially, but cancellation
// and progress reads can arrive from other goroutines, so all access
// goes through the lock.
type ExecutionContext struct {
	ExecutionID string // Matches the registered execution id
	TaskText    string // Task description this run works on
	StartedAt   time.Time

	mu        sync.RWMutex
	iteration int
	results   map[string]StepResult
	cancelled bool
}

// NewExecutionContext creates the state for a fresh execution.
func NewExecutionContext(executionID, taskText string) *ExecutionContext {
	return &ExecutionContext{
		ExecutionID: executionID,
		TaskText:    taskText,
		StartedAt:   time.Now(),
		results:     make(map[string]StepResult),
	}
}

// AddResult records a step result, overwriting any prior result for
// the same step id.
func (c *ExecutionContext) AddResult(result StepResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[result.StepID] = result
}

// Result returns the recorded result for a step id.
func (c *ExecutionContext) Result(stepID string) (StepResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[stepID]
	return r, ok
}

// Results returns a copy of the recorded results keyed by step id.
func (c *ExecutionContext) Results() map[string]StepResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]StepResult, len(c.results))
	for id, r := range c.results {
		out[id] = r
	}
	return out
}

// ResultCount returns how many step results have been recorded.
func (c *ExecutionContext) ResultCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

// DependenciesSatisfied reports whether every listed step id has a
// recorded successful result.
func (c *ExecutionContext) DependenciesSatisfied(dependsOn []string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, dep := range dependsOn {
		r, ok := c.results[dep]
		if !ok || !r.Success {
			return false
		}
	}
	return true
}

// Iteration returns the current control-loop iteration.
func (c *ExecutionContext) Iteration() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.iteration
}

// NextIteration increments and returns the iteration counter.
func (c *ExecutionContext) NextIteration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.iteration++
	return c.iteration
}

// Cancel sets the cooperative cancellation flag. A step batch stops
// before its next step; an in-flight tool call still completes or
// times out on its own schedule.
func (c *ExecutionContext) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
}

// Cancelled reports whether cancellation has been requested.
func (c *ExecutionContext) Cancelled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cancelled
}

// Elapsed returns time since the context was created.
func (c *ExecutionContext) Elapsed() time.Duration {
	return time.Since(c.StartedAt)
}
