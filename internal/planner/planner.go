// Package planner provides the built-in heuristic planner. It splits a
// task description into clauses and maps each clause to a registered
// tool by name match. Production deployments plug an LLM-backed planner
// into the same interface.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/o0x1024/sentinel-core/internal/models"
)

// ToolLister is the registry view the planner needs.
type ToolLister interface {
	ListTools() []string
}

// clauseSeparators split a multi-operation description.
var clauseSeparators = []string{" and then ", " then ", " and ", "然后", "接着", "并且"}

// Heuristic builds plans without an LLM: one step per clause, tool
// chosen by substring match against the registry.
type Heuristic struct {
	tools ToolLister
}

// NewHeuristic creates the heuristic planner over a tool registry.
func NewHeuristic(tools ToolLister) *Heuristic {
	return &Heuristic{tools: tools}
}

// CreatePlan splits the description into clauses and emits one step per
// clause, chaining each step on its predecessor. Clauses that name no
// registered tool become reasoning steps.
func (p *Heuristic) CreatePlan(ctx context.Context, task models.Task) (*models.ExecutionPlan, error) {
	clauses := splitClauses(task.Description)
	if len(clauses) == 0 {
		return nil, fmt.Errorf("empty task description")
	}

	available := p.tools.ListTools()
	plan := &models.ExecutionPlan{
		ID:     uuid.New().String(),
		TaskID: task.ID,
		Name:   task.Description,
	}

	var prev string
	for i, clause := range clauses {
		step := models.ExecutionStep{
			ID:          fmt.Sprintf("step-%d", i+1),
			Name:        clause,
			Description: clause,
			Kind:        models.StepReasoning,
			Retry:       models.DefaultRetryPolicy(),
		}
		if tool := matchTool(clause, available); tool != "" {
			step.Kind = models.StepToolCall
			step.Tool = &models.ToolInvocation{
				Name: tool,
				Args: toolArgs(task, clause),
			}
		}
		if prev != "" {
			step.DependsOn = []string{prev}
		}
		plan.Steps = append(plan.Steps, step)
		prev = step.ID
	}

	return plan, nil
}

// Replan retries the failed steps of the previous plan under fresh ids.
// Without an LLM there is nothing smarter to do than try again.
func (p *Heuristic) Replan(ctx context.Context, prev *models.ExecutionPlan, ref models.Reflection, execCtx *models.ExecutionContext) (*models.ExecutionPlan, error) {
	replan := &models.ExecutionPlan{
		ID:     uuid.New().String(),
		TaskID: prev.TaskID,
		Name:   prev.Name + " (replan)",
	}

	n := 0
	for _, step := range prev.Steps {
		result, ok := execCtx.Result(step.ID)
		if ok && result.Success {
			continue
		}
		n++
		retry := step
		retry.ID = fmt.Sprintf("retry-%d-%s", execCtx.Iteration(), step.ID)
		retry.DependsOn = nil
		replan.Steps = append(replan.Steps, retry)
	}

	if n == 0 {
		return nil, fmt.Errorf("nothing to replan: all steps of plan %s succeeded", prev.ID)
	}
	return replan, nil
}

// splitClauses breaks a description at connector words.
func splitClauses(description string) []string {
	parts := []string{description}
	for _, sep := range clauseSeparators {
		var next []string
		for _, part := range parts {
			for _, piece := range strings.Split(part, sep) {
				piece = strings.TrimSpace(piece)
				if piece != "" {
					next = append(next, piece)
				}
			}
		}
		parts = next
	}
	return parts
}

// matchTool returns the first registered tool whose name appears in the
// clause, in either snake_case or space-separated form.
func matchTool(clause string, available []string) string {
	lower := strings.ToLower(clause)
	for _, tool := range available {
		if strings.Contains(lower, tool) ||
			strings.Contains(lower, strings.ReplaceAll(tool, "_", " ")) {
			return tool
		}
	}
	return ""
}

func toolArgs(task models.Task, clause string) map[string]interface{} {
	args := map[string]interface{}{"text": clause}
	if task.Target != "" {
		args["target"] = task.Target
	}
	return args
}
