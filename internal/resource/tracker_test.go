package resource

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterByTool(t *testing.T) {
	tr := NewTracker(nil)

	id, ok := tr.RegisterByTool("playwright_navigate", "open-browser", map[string]interface{}{"url": "https://example.com"})
	if !ok || id == "" {
		t.Fatal("playwright_navigate should register a browser resource")
	}
	if _, ok := tr.RegisterByTool("port_scan", "recon", nil); ok {
		t.Error("port_scan should not register a resource")
	}

	active := tr.ActiveResources()
	if len(active) != 1 {
		t.Fatalf("expected 1 active resource, got %d", len(active))
	}
	if active[0].Type != TypeBrowser {
		t.Errorf("expected browser type, got %s", active[0].Type)
	}
	if active[0].OwningStep != "open-browser" {
		t.Errorf("expected owning step open-browser, got %q", active[0].OwningStep)
	}
	if !tr.HasLeak() {
		t.Error("active resource should count as a leak")
	}
}

func TestMarkReleasedByTool(t *testing.T) {
	tr := NewTracker(nil)
	tr.RegisterByTool("playwright_navigate", "s1", nil)
	tr.RegisterByTool("playwright_goto", "s2", nil)
	proxyID, _ := tr.RegisterByTool("start_passive_scan", "s3", nil)

	released := tr.MarkReleasedByTool("playwright_close")
	if len(released) != 2 {
		t.Fatalf("playwright_close should release both browsers, got %d", len(released))
	}
	for _, id := range released {
		if id == proxyID {
			t.Error("playwright_close released the proxy")
		}
	}
	if !tr.HasLeak() {
		t.Error("proxy should still be active")
	}

	if got := tr.MarkReleasedByTool("playwright_close"); len(got) != 0 {
		t.Errorf("second close released %d resources", len(got))
	}

	tr.MarkReleasedByTool("stop_passive_scan")
	if tr.HasLeak() {
		t.Error("all resources released, no leak expected")
	}
}

func TestCleanupTasks(t *testing.T) {
	tr := NewTracker(nil)
	tr.Register(TypeBrowser, "playwright_navigate", "open-browser", map[string]interface{}{"url": "x"})
	tr.Register(TypeProcess, "spawn_shell", "shell", nil) // no cleanup tool

	tasks := tr.CleanupTasks()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 cleanup task, got %d", len(tasks))
	}
	if tasks[0].Tool != "playwright_close" {
		t.Errorf("expected playwright_close, got %s", tasks[0].Tool)
	}
}

type fakeRunner struct {
	failTool string
	calls    []string
}

func (r *fakeRunner) Execute(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	r.calls = append(r.calls, name)
	if name == r.failTool {
		return nil, errors.New("tool crashed")
	}
	return "ok", nil
}

func TestCleanup(t *testing.T) {
	tr := NewTracker(nil)
	tr.RegisterByTool("playwright_navigate", "s1", nil)
	tr.RegisterByTool("start_passive_scan", "s3", nil)

	runner := &fakeRunner{failTool: "stop_passive_scan"}
	results := tr.Cleanup(context.Background(), runner)
	if len(results) != 2 {
		t.Fatalf("expected 2 cleanup results, got %d", len(results))
	}

	report := tr.Report()
	if report.Released != 1 || report.ReleaseFailed != 1 {
		t.Errorf("expected 1 released and 1 failed, got %d/%d", report.Released, report.ReleaseFailed)
	}
	if !report.HasLeaks() {
		t.Error("failed release should count as a leak")
	}
}

func TestReport(t *testing.T) {
	tr := NewTracker(nil)
	browserID, _ := tr.RegisterByTool("playwright_navigate", "s1", nil)
	tr.RegisterByTool("start_passive_scan", "s3", nil)
	tr.MarkReleased(browserID)

	report := tr.Report()
	if report.Total != 2 || report.Active != 1 || report.Released != 1 {
		t.Errorf("unexpected report counts: %+v", report)
	}
	if report.ByType[TypeBrowser] != 1 || report.ByType[TypeProxy] != 1 {
		t.Errorf("unexpected by-type counts: %v", report.ByType)
	}
	if len(report.Leaked) != 1 || report.Leaked[0].Type != TypeProxy {
		t.Errorf("expected the proxy in the leak list, got %+v", report.Leaked)
	}

	tr.Clear()
	if tr.Report().Total != 0 {
		t.Error("Clear should drop all resources")
	}
}
