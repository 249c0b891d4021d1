// Package reflection decides, after each batch of steps, whether a run
// should continue, replan, or complete.
package reflection

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/o0x1024/sentinel-core/internal/config"
	"github.com/o0x1024/sentinel-core/internal/models"
)

// Logger is the logging subset the reflector uses.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Reflector evaluates accumulated step results against the reflection
// policy and produces control decisions.
type Reflector struct {
	cfg    config.ReflectionConfig
	logger Logger
}

// NewReflector creates a Reflector with the given policy. The logger
// may be nil.
func NewReflector(cfg config.ReflectionConfig, logger Logger) *Reflector {
	return &Reflector{cfg: cfg, logger: logger}
}

// Reflect inspects the execution context and returns a decision:
// continue when nothing has run yet or progress is normal, replan when
// the failure rate crosses the threshold, complete when every step
// succeeded.
func (r *Reflector) Reflect(execCtx *models.ExecutionContext) models.Reflection {
	return r.ReflectResults(execCtx.Results())
}

// ReflectResults is Reflect over an explicit result set. Engines that
// replan pass only the active plan's results so failures from a
// superseded plan cannot retrigger a replan.
func (r *Reflector) ReflectResults(results map[string]models.StepResult) models.Reflection {
	if len(results) == 0 {
		return models.ContinueDecision("No steps executed yet")
	}

	var succeeded, failed int
	var failedIDs []string
	for _, res := range results {
		if res.Success {
			succeeded++
		} else {
			failed++
			failedIDs = append(failedIDs, res.StepID)
		}
	}

	sort.Strings(failedIDs)
	total := len(results)
	failureRate := float64(failed) / float64(total)
	reasoning := fmt.Sprintf("Analyzed %d steps: %d successful, %d failed", total, succeeded, failed)

	if r.logger != nil {
		r.logger.Debugf("reflection: %s (failure rate %.0f%%)", reasoning, failureRate*100)
	}

	if failureRate >= r.cfg.ReplanThreshold && r.cfg.ReflectOnError {
		reason := fmt.Sprintf("High failure rate (%.0f%%). Failed steps: %s",
			failureRate*100, strings.Join(failedIDs, ", "))
		return models.ReplanDecision(reason, reasoning, r.improvements(results))
	}

	if failed == 0 {
		return models.CompleteDecision(summarize(results), reasoning)
	}

	progress := fmt.Sprintf("Progress: %d/%d steps completed. Continuing execution.", succeeded, total)
	return models.ContinueDecision(progress)
}

// improvements derives per-failure suggestions from error text.
func (r *Reflector) improvements(results map[string]models.StepResult) []string {
	var suggestions []string
	for _, res := range results {
		if res.Success {
			continue
		}
		errText := strings.ToLower(res.Error)
		switch {
		case strings.Contains(errText, "timeout") || strings.Contains(errText, "timed out"):
			suggestions = append(suggestions, "Consider increasing timeout or optimizing operation")
		case strings.Contains(errText, "not found") || strings.Contains(errText, "not available"):
			suggestions = append(suggestions, "Check tool availability or try alternative approach")
		default:
			suggestions = append(suggestions, "Review error and adjust parameters")
		}
	}
	return suggestions
}

// summarize renders a markdown report of all step outcomes, used as the
// final answer when every step succeeded.
func summarize(results map[string]models.StepResult) string {
	ids := make([]string, 0, len(results))
	var succeeded int
	var total time.Duration
	for id, res := range results {
		ids = append(ids, id)
		if res.Success {
			succeeded++
		}
		total += res.Duration
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("## Execution Summary\n\n")
	fmt.Fprintf(&b, "**Total Steps:** %d\n", len(results))
	fmt.Fprintf(&b, "**Successful:** %d\n", succeeded)
	fmt.Fprintf(&b, "**Total Duration:** %s\n\n", total)
	for _, id := range ids {
		res := results[id]
		mark := "✓"
		if !res.Success {
			mark = "✗"
		}
		fmt.Fprintf(&b, "- %s %s (%s)\n", mark, id, res.Duration)
	}
	return b.String()
}

// llmReflection is the JSON shape an LLM reflection response carries.
// Replan decisions come either as a boolean "replan" field or as
// "type": "replan".
type llmReflection struct {
	Type         string   `json:"type"`
	Replan       bool     `json:"replan"`
	Answer       string   `json:"answer"`
	Reason       string   `json:"reason"`
	Reasoning    string   `json:"reasoning"`
	Improvements []string `json:"improvements"`
}

// ReflectWithLLMResponse parses a free-text LLM reflection into a
// decision. The JSON object is extracted between the first '{' and the
// last '}' so surrounding prose is tolerated. Unparseable responses
// fall back to rule-based reflection.
func (r *Reflector) ReflectWithLLMResponse(execCtx *models.ExecutionContext, llmText string) models.Reflection {
	start := strings.Index(llmText, "{")
	end := strings.LastIndex(llmText, "}")
	if start < 0 || end <= start {
		if r.logger != nil {
			r.logger.Warnf("no JSON object in llm reflection, using rule-based decision")
		}
		return r.Reflect(execCtx)
	}

	var parsed llmReflection
	if err := json.Unmarshal([]byte(llmText[start:end+1]), &parsed); err != nil {
		if r.logger != nil {
			r.logger.Warnf("malformed llm reflection (%v), using rule-based decision", err)
		}
		return r.Reflect(execCtx)
	}

	if parsed.Replan {
		return models.ReplanDecision(parsed.Reason, parsed.Reasoning, parsed.Improvements)
	}

	switch parsed.Type {
	case "final_answer":
		return models.CompleteDecision(parsed.Answer, parsed.Reasoning)
	case "replan":
		return models.ReplanDecision(parsed.Reason, parsed.Reasoning, parsed.Improvements)
	default:
		if r.logger != nil {
			r.logger.Warnf("unknown llm reflection type %q, using rule-based decision", parsed.Type)
		}
		return r.Reflect(execCtx)
	}
}

// ShouldReflect reports whether reflection is due at the current
// iteration: on the configured cadence, or immediately when any
// recorded result has failed and error reflection is on.
func (r *Reflector) ShouldReflect(execCtx *models.ExecutionContext) bool {
	if r.cfg.ReflectOnError {
		for _, res := range execCtx.Results() {
			if !res.Success {
				return true
			}
		}
	}
	cadence := r.cfg.MinIterationsBetweenReflections + 1
	return execCtx.Iteration()%cadence == 0
}
