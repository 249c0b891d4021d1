package models

// DecisionType is the control-loop verdict computed after a batch of
// steps.
type DecisionType string

const (
	DecisionContinue DecisionType = "continue"
	DecisionReplan   DecisionType = "replan"
	DecisionComplete DecisionType = "complete"
	DecisionError    DecisionType = "error"
)

// Decision carries the verdict plus its variant payload.
type Decision struct {
	Type      DecisionType // Which verdict was reached
	Answer    string       // Final answer (Complete only)
	Reason    string       // Why a replan is needed (Replan only)
	ErrorKind ErrorKind    // Failure classification (Error only)
	Message   string       // Error message (Error only)
	Retryable bool         // Whether the error may resolve on retry
}

// Reflection is produced fresh each reflection cycle and not persisted
// beyond the cycle that consumes it.
type Reflection struct {
	Decision     Decision // Continue / Replan / Complete / Error
	Reasoning    string   // Human-readable rationale
	Improvements []string // Per-step improvement suggestions
}

// ContinueDecision builds a Continue reflection with the given rationale.
func ContinueDecision(reasoning string) Reflection {
	return Reflection{
		Decision:  Decision{Type: DecisionContinue},
		Reasoning: reasoning,
	}
}

// CompleteDecision builds a Complete reflection carrying the final answer.
func CompleteDecision(answer, reasoning string) Reflection {
	return Reflection{
		Decision:  Decision{Type: DecisionComplete, Answer: answer},
		Reasoning: reasoning,
	}
}

// ReplanDecision builds a Replan reflection with the replan reason.
func ReplanDecision(reason, reasoning string, improvements []string) Reflection {
	return Reflection{
		Decision:     Decision{Type: DecisionReplan, Reason: reason},
		Reasoning:    reasoning,
		Improvements: improvements,
	}
}
