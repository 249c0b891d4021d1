package planner

import (
	"context"
	"testing"
	"time"

	"github.com/o0x1024/sentinel-core/internal/models"
)

type staticTools []string

func (s staticTools) ListTools() []string { return s }

func TestCreatePlanSplitsClauses(t *testing.T) {
	p := NewHeuristic(staticTools{"port_scan", "note"})
	task := models.NewTask("port scan the host and then note the results").WithTarget("example.com")

	plan, err := p.CreatePlan(context.Background(), task)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if err := plan.Validate(); err != nil {
		t.Fatalf("invalid plan: %v", err)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(plan.Steps))
	}

	first := plan.Steps[0]
	if first.Tool == nil || first.Tool.Name != "port_scan" {
		t.Errorf("first clause should map to port_scan, got %+v", first.Tool)
	}
	if first.Tool.Args["target"] != "example.com" {
		t.Error("tool args should carry the task target")
	}

	second := plan.Steps[1]
	if second.Tool == nil || second.Tool.Name != "note" {
		t.Errorf("second clause should map to note, got %+v", second.Tool)
	}
	if len(second.DependsOn) != 1 || second.DependsOn[0] != first.ID {
		t.Errorf("steps should chain, got deps %v", second.DependsOn)
	}
}

func TestCreatePlanUnknownClauseIsReasoning(t *testing.T) {
	p := NewHeuristic(staticTools{})
	plan, err := p.CreatePlan(context.Background(), models.NewTask("ponder the findings"))
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if plan.Steps[0].Kind != models.StepReasoning || plan.Steps[0].Tool != nil {
		t.Errorf("unmatched clause should be a reasoning step, got %+v", plan.Steps[0])
	}
}

func TestReplanRetriesFailures(t *testing.T) {
	p := NewHeuristic(staticTools{"port_scan"})
	prev := &models.ExecutionPlan{
		ID:     "p1",
		TaskID: "t1",
		Name:   "plan",
		Steps: []models.ExecutionStep{
			{ID: "a", Kind: models.StepToolCall, Tool: &models.ToolInvocation{Name: "port_scan"}},
			{ID: "b", Kind: models.StepToolCall, Tool: &models.ToolInvocation{Name: "port_scan"}, DependsOn: []string{"a"}},
		},
	}
	execCtx := models.NewExecutionContext("exec-1", "task")
	execCtx.AddResult(models.StepSuccess("a", "ok", time.Second))
	execCtx.AddResult(models.StepFailure("b", "boom", time.Second))

	replan, err := p.Replan(context.Background(), prev, models.Reflection{}, execCtx)
	if err != nil {
		t.Fatalf("Replan: %v", err)
	}
	if len(replan.Steps) != 1 {
		t.Fatalf("expected 1 retried step, got %d", len(replan.Steps))
	}
	if replan.Steps[0].ID == "b" {
		t.Error("retried step needs a fresh id")
	}
	if len(replan.Steps[0].DependsOn) != 0 {
		t.Error("retried step should not depend on steps outside the new plan")
	}

	execCtx.AddResult(models.StepSuccess("b", "ok", time.Second))
	if _, err := p.Replan(context.Background(), prev, models.Reflection{}, execCtx); err == nil {
		t.Error("replan with nothing failed should error")
	}
}
