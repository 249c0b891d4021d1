package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Task priority levels, ordered from least to most urgent.
const (
	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// TaskComplexity classifies how much planning a task needs.
// Derived once per task by the complexity analyzer; may be recomputed
// when an engine replans.
type TaskComplexity string

const (
	ComplexitySimple  TaskComplexity = "simple"
	ComplexityMedium  TaskComplexity = "medium"
	ComplexityComplex TaskComplexity = "complex"
)

// Task is one unit of work submitted by the caller.
// Immutable once dispatched to an engine.
type Task struct {
	ID          string                 // Unique task identifier
	Description string                 // Natural-language task description
	Target      string                 // Target host/URL/scope (optional)
	Parameters  map[string]interface{} // Free-form structured parameters
	Priority    string                 // One of the Priority* constants
	Timeout     time.Duration          // Overall task timeout (0 = none)
}

// NewTask creates a Task with a generated id and normal priority.
func NewTask(description string) Task {
	return Task{
		ID:          uuid.New().String(),
		Description: description,
		Parameters:  map[string]interface{}{},
		Priority:    PriorityNormal,
	}
}

// WithTarget sets the task target.
func (t Task) WithTarget(target string) Task {
	t.Target = target
	return t
}

// WithPriority sets the task priority.
func (t Task) WithPriority(priority string) Task {
	t.Priority = priority
	return t
}

// WithParameter adds a structured parameter.
func (t Task) WithParameter(key string, value interface{}) Task {
	if t.Parameters == nil {
		t.Parameters = map[string]interface{}{}
	}
	t.Parameters[key] = value
	return t
}

// Validate checks that the task has the fields every engine requires.
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	if t.Description == "" {
		return errors.New("task description is required")
	}
	return nil
}
