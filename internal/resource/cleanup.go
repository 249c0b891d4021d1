package resource

import (
	"context"
	"time"
)

// ToolRunner executes a single named tool. Implemented by the tool
// execution layer.
type ToolRunner interface {
	Execute(ctx context.Context, name string, args map[string]interface{}) (interface{}, error)
}

// CleanupResult records the outcome of one cleanup attempt.
type CleanupResult struct {
	ResourceID string
	Tool       string
	Err        error
	Duration   time.Duration
}

// Cleanup attempts to release every active resource that has a known
// cleanup tool. Each resource is flipped to released or release-failed
// according to the tool outcome. Resources with no cleanup tool are
// left active and show up in the final Report as leaks.
func (t *Tracker) Cleanup(ctx context.Context, runner ToolRunner) []CleanupResult {
	tasks := t.CleanupTasks()
	if len(tasks) == 0 {
		return nil
	}

	results := make([]CleanupResult, 0, len(tasks))
	for _, task := range tasks {
		start := time.Now()
		_, err := runner.Execute(ctx, task.Tool, task.Args)
		if err != nil {
			t.MarkReleaseFailed(task.ResourceID)
			if t.logger != nil {
				t.logger.Warnf("cleanup tool %s failed for resource %s: %v", task.Tool, task.ResourceID, err)
			}
		} else {
			t.MarkReleased(task.ResourceID)
			if t.logger != nil {
				t.logger.Debugf("cleanup tool %s released resource %s", task.Tool, task.ResourceID)
			}
		}
		results = append(results, CleanupResult{
			ResourceID: task.ResourceID,
			Tool:       task.Tool,
			Err:        err,
			Duration:   time.Since(start),
		})
	}
	return results
}
