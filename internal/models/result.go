package models

import "time"

// StepResult records the outcome of executing one plan step. Results
// are keyed by step id within one execution context; re-executing a
// step overwrites its previous result.
type StepResult struct {
	StepID   string        // Step this result belongs to
	Success  bool          // Whether the step succeeded
	Output   interface{}   // Tool output (JSON-like value), nil on failure
	Error    string        // Error text when Success is false
	Duration time.Duration // Wall-clock execution time
}

// StepSuccess builds a successful StepResult.
func StepSuccess(stepID string, output interface{}, duration time.Duration) StepResult {
	return StepResult{
		StepID:   stepID,
		Success:  true,
		Output:   output,
		Duration: duration,
	}
}

// StepFailure builds a failed StepResult.
func StepFailure(stepID, errMsg string, duration time.Duration) StepResult {
	return StepResult{
		StepID:   stepID,
		Success:  false,
		Error:    errMsg,
		Duration: duration,
	}
}

// StepNoOp builds the synthetic success recorded for steps without a
// tool call.
func StepNoOp(stepID string) StepResult {
	return StepResult{
		StepID:  stepID,
		Success: true,
		Output:  map[string]interface{}{"message": "No tool execution required"},
	}
}

// ArtifactType categorizes work products an execution can emit.
type ArtifactType string

const (
	ArtifactScanReport        ArtifactType = "scan_report"
	ArtifactVulnerabilityList ArtifactType = "vulnerability_list"
	ArtifactAnalysisResult    ArtifactType = "analysis_result"
	ArtifactLogFile           ArtifactType = "log_file"
)

// Artifact is one work product produced during an execution.
type Artifact struct {
	Type      ArtifactType // Artifact category
	Name      string       // Human-readable name
	Data      interface{}  // Artifact payload
	CreatedAt time.Time    // Creation timestamp
}

// ExecutionResult is the aggregate outcome an engine reports for one
// plan execution.
type ExecutionResult struct {
	ID            string             // Result identifier
	Success       bool               // Overall success
	Data          interface{}        // Final answer or collected output
	Error         string             // Error text when Success is false
	ExecutionTime time.Duration      // Total wall-clock time
	ResourcesUsed map[string]float64 // Resource usage metrics
	Artifacts     []Artifact         // Emitted work products
}

// ExecutionProgress is a point-in-time view of how far an execution
// has advanced.
type ExecutionProgress struct {
	TotalSteps         int           // Steps in the current plan
	CompletedSteps     int           // Steps with a recorded result
	CurrentStep        string        // Step currently executing (empty if idle)
	Percentage         float64       // CompletedSteps/TotalSteps * 100
	EstimatedRemaining time.Duration // Rough remaining time (0 = unknown)
}
