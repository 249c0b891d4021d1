package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/o0x1024/sentinel-core/internal/config"
	"github.com/o0x1024/sentinel-core/internal/models"
	"github.com/o0x1024/sentinel-core/internal/resource"
)

// spyTools records every invocation and can be scripted to fail.
type spyTools struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]int // remaining failures per tool
	err      error
	output   interface{}
}

func newSpyTools() *spyTools {
	return &spyTools{failures: make(map[string]int), output: "done", err: errors.New("boom")}
}

func (s *spyTools) Execute(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	if s.failures[name] > 0 {
		s.failures[name]--
		return nil, s.err
	}
	return s.output, nil
}

func (s *spyTools) ListTools() []string       { return []string{"port_scan"} }
func (s *spyTools) IsAvailable(n string) bool { return true }

func (s *spyTools) callCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == name {
			n++
		}
	}
	return n
}

func toolStep(id, tool string) models.ExecutionStep {
	return models.ExecutionStep{
		ID:          id,
		Name:        id,
		Description: id,
		Kind:        models.StepToolCall,
		Tool:        &models.ToolInvocation{Name: tool},
		Retry:       models.RetryPolicy{MaxRetries: 0, Interval: time.Millisecond},
	}
}

func newTestExecutor(tools ToolExecutor, cfg *config.Config) *StepExecutor {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return NewStepExecutor(tools, cfg, nil, nil, resource.NewTracker(nil))
}

func TestExecuteReasoningStepNoOp(t *testing.T) {
	tools := newSpyTools()
	e := newTestExecutor(tools, nil)
	execCtx := models.NewExecutionContext("exec-1", "task")

	step := models.ExecutionStep{ID: "think", Kind: models.StepReasoning}
	result := e.Execute(context.Background(), step, execCtx)

	if !result.Success {
		t.Fatalf("no-op step failed: %s", result.Error)
	}
	out, ok := result.Output.(map[string]interface{})
	if !ok || out["message"] != "No tool execution required" {
		t.Errorf("unexpected no-op output: %v", result.Output)
	}
	if len(tools.calls) != 0 {
		t.Errorf("no-op step invoked tools: %v", tools.calls)
	}
}

func TestExecuteDisabledToolNeverInvoked(t *testing.T) {
	tools := newSpyTools()
	cfg := config.DefaultConfig()
	cfg.Tools.Disabled = []string{"exploit_runner"}
	e := newTestExecutor(tools, cfg)
	execCtx := models.NewExecutionContext("exec-1", "task")

	result := e.Execute(context.Background(), toolStep("s1", "exploit_runner"), execCtx)

	if result.Success {
		t.Fatal("disabled tool step should fail")
	}
	if result.Error != "Tool exploit_runner is disabled" {
		t.Errorf("unexpected error message: %q", result.Error)
	}
	if tools.callCount("exploit_runner") != 0 {
		t.Error("disabled tool was invoked")
	}
}

func TestExecuteRetriesThenSucceeds(t *testing.T) {
	tools := newSpyTools()
	tools.failures["port_scan"] = 2
	e := newTestExecutor(tools, nil)
	execCtx := models.NewExecutionContext("exec-1", "task")

	step := toolStep("s1", "port_scan")
	step.Retry = models.RetryPolicy{MaxRetries: 3, Interval: time.Millisecond, Backoff: models.BackoffFixed}

	result := e.Execute(context.Background(), step, execCtx)
	if !result.Success {
		t.Fatalf("step should succeed after retries: %s", result.Error)
	}
	if got := tools.callCount("port_scan"); got != 3 {
		t.Errorf("expected 3 invocations (2 failures + success), got %d", got)
	}
}

func TestExecuteRetriesExhausted(t *testing.T) {
	tools := newSpyTools()
	tools.failures["port_scan"] = 10
	e := newTestExecutor(tools, nil)
	execCtx := models.NewExecutionContext("exec-1", "task")

	step := toolStep("s1", "port_scan")
	step.Retry = models.RetryPolicy{MaxRetries: 1, Interval: time.Millisecond, Backoff: models.BackoffFixed}

	result := e.Execute(context.Background(), step, execCtx)
	if result.Success {
		t.Fatal("step should fail once retries run out")
	}
	if got := tools.callCount("port_scan"); got != 2 {
		t.Errorf("expected 2 invocations, got %d", got)
	}
}

// slowTools never returns before its context deadline.
type slowTools struct {
	mu    sync.Mutex
	calls int
}

func (s *slowTools) Execute(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	select {
	case <-time.After(time.Minute):
		return "late", nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *slowTools) ListTools() []string       { return nil }
func (s *slowTools) IsAvailable(n string) bool { return true }

func (s *slowTools) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestExecuteToolTimeout(t *testing.T) {
	tools := &slowTools{}
	cfg := config.DefaultConfig()
	cfg.Tools.Timeout = 10 * time.Millisecond
	e := newTestExecutor(tools, cfg)
	execCtx := models.NewExecutionContext("exec-1", "task")

	step := toolStep("s1", "slow_probe")
	step.Retry = models.RetryPolicy{MaxRetries: 1, Interval: time.Millisecond, Backoff: models.BackoffFixed}

	result := e.Execute(context.Background(), step, execCtx)
	if result.Success {
		t.Fatal("step should fail when the tool exceeds its timeout")
	}
	if !strings.Contains(result.Error, "Tool slow_probe timed out") {
		t.Errorf("unexpected error message: %q", result.Error)
	}
	// Timeouts are transient, so the retry budget applies.
	if got := tools.callCount(); got != 2 {
		t.Errorf("expected 2 invocations (timeout + retry), got %d", got)
	}
}

func TestExecuteStepsDependencyGate(t *testing.T) {
	tools := newSpyTools()
	tools.failures["port_scan"] = 10
	e := newTestExecutor(tools, nil)
	execCtx := models.NewExecutionContext("exec-1", "task")

	steps := []models.ExecutionStep{
		toolStep("scan", "port_scan"),
		func() models.ExecutionStep {
			s := toolStep("report", "write_report")
			s.DependsOn = []string{"scan"}
			return s
		}(),
	}

	results := e.ExecuteSteps(context.Background(), steps, execCtx)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].Success {
		t.Error("dependent step should fail when its dependency failed")
	}
	if results[1].Error != "Dependencies not satisfied" {
		t.Errorf("unexpected error: %q", results[1].Error)
	}
	if results[1].Duration != 0 {
		t.Errorf("gated step should report zero duration, got %s", results[1].Duration)
	}
	if tools.callCount("write_report") != 0 {
		t.Error("gated step invoked its tool")
	}
}

func TestExecuteStepsCancellation(t *testing.T) {
	tools := newSpyTools()
	e := newTestExecutor(tools, nil)
	execCtx := models.NewExecutionContext("exec-1", "task")
	execCtx.Cancel()

	results := e.ExecuteSteps(context.Background(), []models.ExecutionStep{toolStep("s1", "port_scan")}, execCtx)
	if len(results) != 0 {
		t.Errorf("cancelled execution ran %d step(s)", len(results))
	}
	if len(tools.calls) != 0 {
		t.Errorf("cancelled execution invoked tools: %v", tools.calls)
	}
}

func TestExecuteTracksResources(t *testing.T) {
	tools := newSpyTools()
	e := newTestExecutor(tools, nil)
	execCtx := models.NewExecutionContext("exec-1", "task")

	e.Execute(context.Background(), toolStep("open", "playwright_navigate"), execCtx)
	if !e.Tracker().HasLeak() {
		t.Fatal("browser should be tracked as active")
	}
	active := e.Tracker().ActiveResources()
	if len(active) != 1 || active[0].OwningStep != "open" {
		t.Errorf("tracked resource should carry the acquiring step id, got %+v", active)
	}

	e.Execute(context.Background(), toolStep("close", "playwright_close"), execCtx)
	if e.Tracker().HasLeak() {
		t.Error("browser should be released after playwright_close")
	}
}
