// Package resource tracks external resources opened during a run
// (browsers, proxies, files) so leaks can be detected and cleaned up.
package resource

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type categorizes a tracked resource.
type Type string

const (
	TypeBrowser  Type = "browser"
	TypeProxy    Type = "proxy"
	TypeDatabase Type = "database"
	TypeFile     Type = "file"
	TypeProcess  Type = "process"
	TypeNetwork  Type = "network"
	TypeTempFile Type = "temp_file"
	TypeCustom   Type = "custom"
)

// State is the lifecycle state of a tracked resource.
type State string

const (
	StateActive        State = "active"
	StateReleased      State = "released"
	StateReleaseFailed State = "release_failed"
)

// Resource is one tracked external resource.
type Resource struct {
	ID          string                 // unique identifier
	Type        Type                   // resource category
	Description string                 // human-readable origin, usually the tool name
	OwningStep  string                 // id of the plan step that acquired the resource
	Metadata    map[string]interface{} // tool arguments at acquisition time
	State       State                  // current lifecycle state
	AcquiredAt  time.Time              // when the resource was registered
	ReleasedAt  time.Time              // when the resource was released, zero while active
}

// acquireTools maps tool names to the resource type they open.
var acquireTools = map[string]Type{
	"playwright_navigate": TypeBrowser,
	"playwright_goto":     TypeBrowser,
	"start_passive_scan":  TypeProxy,
}

// releaseTools maps tool names to the resource type they close.
var releaseTools = map[string]Type{
	"playwright_close":  TypeBrowser,
	"stop_passive_scan": TypeProxy,
}

// cleanupTools maps resource types to the tool that can close them.
// Types absent here cannot be cleaned up automatically.
var cleanupTools = map[Type]string{
	TypeBrowser: "playwright_close",
	TypeProxy:   "stop_passive_scan",
}

// Tracker records resource acquisition and release over the lifetime of
// a run. Safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	resources map[string]*Resource
	logger    Logger
}

// Logger is the logging subset the tracker uses.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// NewTracker creates an empty Tracker. The logger may be nil.
func NewTracker(logger Logger) *Tracker {
	return &Tracker{
		resources: make(map[string]*Resource),
		logger:    logger,
	}
}

// Register records a new active resource and returns its id. The
// owning step may be empty when the resource was opened outside a plan.
func (t *Tracker) Register(resType Type, description, owningStep string, metadata map[string]interface{}) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := uuid.New().String()
	t.resources[id] = &Resource{
		ID:          id,
		Type:        resType,
		Description: description,
		OwningStep:  owningStep,
		Metadata:    metadata,
		State:       StateActive,
		AcquiredAt:  time.Now(),
	}
	if t.logger != nil {
		t.logger.Debugf("registered %s resource %s (%s)", resType, id, description)
	}
	return id
}

// RegisterByTool registers a resource when the given tool is known to
// acquire one. Returns the resource id and true, or "" and false for
// tools that acquire nothing.
func (t *Tracker) RegisterByTool(toolName, owningStep string, args map[string]interface{}) (string, bool) {
	resType, ok := acquireTools[toolName]
	if !ok {
		return "", false
	}
	return t.Register(resType, toolName, owningStep, args), true
}

// MarkReleased flips a single resource to released. Unknown ids are
// ignored.
func (t *Tracker) MarkReleased(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.markLocked(id, StateReleased)
}

// MarkReleaseFailed flips a single resource to release-failed.
func (t *Tracker) MarkReleaseFailed(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.markLocked(id, StateReleaseFailed)
}

func (t *Tracker) markLocked(id string, state State) {
	r, ok := t.resources[id]
	if !ok {
		return
	}
	r.State = state
	r.ReleasedAt = time.Now()
}

// MarkReleasedByTool releases every active resource of the type the
// given tool closes, and returns the ids it released. Tools that close
// nothing release nothing.
func (t *Tracker) MarkReleasedByTool(toolName string) []string {
	resType, ok := releaseTools[toolName]
	if !ok {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var released []string
	for id, r := range t.resources {
		if r.Type == resType && r.State == StateActive {
			r.State = StateReleased
			r.ReleasedAt = time.Now()
			released = append(released, id)
		}
	}
	if t.logger != nil && len(released) > 0 {
		t.logger.Debugf("%s released %d %s resource(s)", toolName, len(released), resType)
	}
	return released
}

// ActiveResources returns a snapshot of all resources still active.
func (t *Tracker) ActiveResources() []Resource {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var active []Resource
	for _, r := range t.resources {
		if r.State == StateActive {
			active = append(active, *r)
		}
	}
	return active
}

// HasLeak reports whether any resource is still active.
func (t *Tracker) HasLeak() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, r := range t.resources {
		if r.State == StateActive {
			return true
		}
	}
	return false
}

// CleanupTask pairs a leaked resource with the tool that can close it.
type CleanupTask struct {
	ResourceID string
	Tool       string
	Args       map[string]interface{}
}

// CleanupTasks builds one cleanup task per active resource that has a
// known cleanup tool. Active resources with no cleanup tool get a
// warning and stay in the leak report.
func (t *Tracker) CleanupTasks() []CleanupTask {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var tasks []CleanupTask
	for id, r := range t.resources {
		if r.State != StateActive {
			continue
		}
		tool, ok := cleanupTools[r.Type]
		if !ok {
			if t.logger != nil {
				t.logger.Warnf("no cleanup tool for %s resource %s (%s)", r.Type, id, r.Description)
			}
			continue
		}
		tasks = append(tasks, CleanupTask{ResourceID: id, Tool: tool, Args: r.Metadata})
	}
	return tasks
}

// Report summarizes tracker state at the end of a run.
type Report struct {
	Total         int
	Active        int
	Released      int
	ReleaseFailed int
	ByType        map[Type]int
	Leaked        []Resource
}

// HasLeaks reports whether the run left resources behind, counting
// failed releases as leaks.
func (r Report) HasLeaks() bool {
	return r.Active > 0 || r.ReleaseFailed > 0
}

// Report builds a summary of every tracked resource.
func (t *Tracker) Report() Report {
	t.mu.RLock()
	defer t.mu.RUnlock()

	report := Report{ByType: make(map[Type]int)}
	for _, r := range t.resources {
		report.Total++
		report.ByType[r.Type]++
		switch r.State {
		case StateActive:
			report.Active++
			report.Leaked = append(report.Leaked, *r)
		case StateReleased:
			report.Released++
		case StateReleaseFailed:
			report.ReleaseFailed++
			report.Leaked = append(report.Leaked, *r)
		}
	}
	return report
}

// Clear drops all tracked resources. Used between runs.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resources = make(map[string]*Resource)
}
