// Package tools provides the in-process tool registry the CLI wires
// into the orchestration core. Production deployments replace it with
// a registry backed by real security tooling.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/o0x1024/sentinel-core/internal/models"
)

// Tool is one invocable capability.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// Registry holds registered tools and implements the executor's
// ToolExecutor contract.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names are an error.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Execute runs a registered tool by name.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	r.mu.RLock()
	tool, exists := r.tools[name]
	r.mu.RUnlock()
	if !exists {
		return nil, models.NewError(models.ErrToolNotFound, "tool %q not registered", name)
	}
	return tool.Run(ctx, args)
}

// ListTools returns the registered tool names, sorted.
func (r *Registry) ListTools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsAvailable reports whether a tool is registered.
func (r *Registry) IsAvailable(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tools[name]
	return exists
}

// FuncTool adapts a function to the Tool interface.
type FuncTool struct {
	ToolName string
	Desc     string
	Fn       func(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

func (t FuncTool) Name() string        { return t.ToolName }
func (t FuncTool) Description() string { return t.Desc }

func (t FuncTool) Run(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return t.Fn(ctx, args)
}

// mustRegister panics on registration errors. Only for wiring
// compile-time tool sets, where a duplicate name is a programming bug.
func mustRegister(r *Registry, tool Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// DefaultRegistry returns a registry with the built-in demo tools: an
// echo tool and a no-op reporter. Useful for dry runs and tests of the
// full pipeline without real tooling.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	mustRegister(r, FuncTool{
		ToolName: "echo",
		Desc:     "Returns its arguments unchanged",
		Fn: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return args, nil
		},
	})
	mustRegister(r, FuncTool{
		ToolName: "note",
		Desc:     "Records a note in the run output",
		Fn: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			if text, ok := args["text"].(string); ok {
				return map[string]interface{}{"note": text}, nil
			}
			return map[string]interface{}{"note": ""}, nil
		},
	})
	return r
}
