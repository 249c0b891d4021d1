package engine

import (
	"context"
	"sync"
	"time"

	"github.com/o0x1024/sentinel-core/internal/models"
)

// ExecutionManager is the registry of live executions. It owns the
// execution-id to context and execution-id to engine associations and
// is the only component external callers talk to about a running
// execution.
type ExecutionManager struct {
	ctxMu    sync.RWMutex
	contexts map[string]*models.ExecutionContext

	engMu   sync.RWMutex
	engines map[string]ExecutionEngine

	planMu sync.RWMutex
	plans  map[string]*models.ExecutionPlan

	logger Logger
}

// NewExecutionManager creates an empty manager. The logger may be nil.
func NewExecutionManager(logger Logger) *ExecutionManager {
	return &ExecutionManager{
		contexts: make(map[string]*models.ExecutionContext),
		engines:  make(map[string]ExecutionEngine),
		plans:    make(map[string]*models.ExecutionPlan),
		logger:   logger,
	}
}

// Register associates a fresh execution context with the engine that
// will drive it. The execution id comes from the context.
func (m *ExecutionManager) Register(execCtx *models.ExecutionContext, eng ExecutionEngine) {
	m.ctxMu.Lock()
	m.contexts[execCtx.ExecutionID] = execCtx
	m.ctxMu.Unlock()

	m.engMu.Lock()
	m.engines[execCtx.ExecutionID] = eng
	m.engMu.Unlock()

	if m.logger != nil {
		m.logger.Debugf("registered execution %s with engine %s", execCtx.ExecutionID, eng.Info().Name)
	}
}

// ExecutePlan runs the plan for a registered execution through its
// engine. The plan is retained for progress queries.
func (m *ExecutionManager) ExecutePlan(ctx context.Context, executionID string, plan *models.ExecutionPlan) (*models.ExecutionResult, error) {
	execCtx, err := m.Context(executionID)
	if err != nil {
		return nil, err
	}
	eng, err := m.engine(executionID)
	if err != nil {
		return nil, err
	}

	m.planMu.Lock()
	m.plans[executionID] = plan
	m.planMu.Unlock()

	return eng.ExecutePlan(ctx, plan, execCtx)
}

// Context returns the execution context for an id.
func (m *ExecutionManager) Context(executionID string) (*models.ExecutionContext, error) {
	m.ctxMu.RLock()
	defer m.ctxMu.RUnlock()
	execCtx, ok := m.contexts[executionID]
	if !ok {
		return nil, models.NewError(models.ErrSessionNotFound, "context not found: %s", executionID)
	}
	return execCtx, nil
}

func (m *ExecutionManager) engine(executionID string) (ExecutionEngine, error) {
	m.engMu.RLock()
	defer m.engMu.RUnlock()
	eng, ok := m.engines[executionID]
	if !ok {
		return nil, models.NewError(models.ErrSessionNotFound, "engine not found: %s", executionID)
	}
	return eng, nil
}

// Progress reports how far a registered execution has advanced.
func (m *ExecutionManager) Progress(executionID string) (models.ExecutionProgress, error) {
	execCtx, err := m.Context(executionID)
	if err != nil {
		return models.ExecutionProgress{}, err
	}
	eng, err := m.engine(executionID)
	if err != nil {
		return models.ExecutionProgress{}, err
	}

	m.planMu.RLock()
	plan := m.plans[executionID]
	m.planMu.RUnlock()
	if plan == nil {
		// Registered but not yet executing.
		return models.ExecutionProgress{}, nil
	}
	return eng.Progress(plan, execCtx), nil
}

// Stop cancels an execution and removes it from the registry. The
// registry entries are removed even when the engine's cancel fails, so
// a misbehaving engine cannot pin a dead execution in memory.
func (m *ExecutionManager) Stop(executionID string) error {
	execCtx, ctxErr := m.Context(executionID)
	eng, engErr := m.engine(executionID)

	var cancelErr error
	if ctxErr == nil && engErr == nil {
		cancelErr = eng.Cancel(execCtx)
	}

	m.remove(executionID)

	if ctxErr != nil {
		return ctxErr
	}
	if engErr != nil {
		return engErr
	}
	return cancelErr
}

func (m *ExecutionManager) remove(executionID string) {
	m.ctxMu.Lock()
	delete(m.contexts, executionID)
	m.ctxMu.Unlock()

	m.engMu.Lock()
	delete(m.engines, executionID)
	m.engMu.Unlock()

	m.planMu.Lock()
	delete(m.plans, executionID)
	m.planMu.Unlock()
}

// ActiveExecutions returns the ids of all registered executions.
func (m *ExecutionManager) ActiveExecutions() []string {
	m.ctxMu.RLock()
	defer m.ctxMu.RUnlock()
	ids := make([]string, 0, len(m.contexts))
	for id := range m.contexts {
		ids = append(ids, id)
	}
	return ids
}

// CleanupExpired removes executions older than the expiry, cancelling
// each before removal, and returns how many were swept.
func (m *ExecutionManager) CleanupExpired(expiry time.Duration) int {
	m.ctxMu.RLock()
	var expired []string
	for id, execCtx := range m.contexts {
		if execCtx.Elapsed() > expiry {
			expired = append(expired, id)
		}
	}
	m.ctxMu.RUnlock()

	for _, id := range expired {
		if m.logger != nil {
			m.logger.Warnf("sweeping expired execution %s", id)
		}
		// Stop removes the entry even if cancellation fails.
		_ = m.Stop(id)
	}
	return len(expired)
}
