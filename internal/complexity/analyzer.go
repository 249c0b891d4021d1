// Package complexity classifies task descriptions into simple, medium,
// and complex so the dispatcher can pick an execution engine.
package complexity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/o0x1024/sentinel-core/internal/config"
	"github.com/o0x1024/sentinel-core/internal/models"
)

// ChatClient is the single free-text LLM call the analyzer needs.
// Implemented by the surrounding LLM subsystem.
type ChatClient interface {
	Send(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Logger is the logging subset the analyzer uses.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

const classifySystemPrompt = "You are a task complexity analyst for security testing tasks. " +
	"Classify the given task as simple, medium, or complex. Answer with a single word."

// connectors join multiple operations into one sentence; their presence
// rules out the "single operation" shape.
var connectors = []string{"and ", "then ", "并且", "然后", "接着"}

// Analyzer classifies task descriptions. The rule pass decides most
// tasks; an optional LLM pass handles the undecided rest, and a length
// heuristic backs both. Analyze never fails.
type Analyzer struct {
	keywords config.ComplexityConfig
	client   ChatClient
	logger   Logger
}

// NewAnalyzer creates an Analyzer with the given keyword tables.
// The logger is optional and can be nil.
func NewAnalyzer(keywords config.ComplexityConfig, logger Logger) *Analyzer {
	return &Analyzer{keywords: keywords, logger: logger}
}

// WithClient attaches an LLM collaborator for the fallback pass.
func (a *Analyzer) WithClient(client ChatClient) *Analyzer {
	a.client = client
	return a
}

// Analyze classifies a task description, optionally consulting the
// structured parameters. It always returns a verdict: rules first,
// then the LLM if configured, then the length heuristic.
func (a *Analyzer) Analyze(ctx context.Context, description string, parameters map[string]interface{}) models.TaskComplexity {
	if verdict, ok := a.ruleBased(description, parameters); ok {
		a.logf("complexity verdict %s for %q (rule pass)", verdict, description)
		return verdict
	}

	if a.client != nil {
		if verdict, err := a.llmBased(ctx, description, parameters); err == nil {
			a.logf("complexity verdict %s for %q (llm pass)", verdict, description)
			return verdict
		} else if a.logger != nil {
			a.logger.Warnf("llm complexity analysis failed, falling back to length heuristic: %v", err)
		}
	}

	verdict := lengthHeuristic(description)
	a.logf("complexity verdict %s for %q (length heuristic)", verdict, description)
	return verdict
}

func (a *Analyzer) logf(format string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Infof(format, args...)
	}
}

// ruleBased is the fast keyword/shape pass. The boolean is false when
// the rules cannot decide.
func (a *Analyzer) ruleBased(description string, parameters map[string]interface{}) (models.TaskComplexity, bool) {
	desc := strings.ToLower(description)

	// Simple keywords only count for single-operation sentences.
	for _, kw := range a.keywords.SimpleKeywords {
		if strings.Contains(desc, strings.ToLower(kw)) && isSingleOperation(desc) {
			return models.ComplexitySimple, true
		}
	}

	for _, kw := range a.keywords.ComplexKeywords {
		if strings.Contains(desc, strings.ToLower(kw)) {
			return models.ComplexityComplex, true
		}
	}

	for _, kw := range a.keywords.MediumKeywords {
		if strings.Contains(desc, strings.ToLower(kw)) {
			return models.ComplexityMedium, true
		}
	}

	if verdict, ok := parameterShape(parameters); ok {
		return verdict, true
	}

	wordCount := len(strings.Fields(desc))
	multipleActions := strings.Count(desc, "and") > 1 ||
		strings.Contains(desc, "then") ||
		strings.Count(desc, "并且") > 1 ||
		strings.Contains(desc, "然后")
	if wordCount > 30 || multipleActions {
		return models.ComplexityComplex, true
	}

	return "", false
}

// isSingleOperation reports whether the description reads as one
// operation: no connector words.
func isSingleOperation(desc string) bool {
	for _, c := range connectors {
		if strings.Contains(desc, c) {
			return false
		}
	}
	return true
}

// parameterShape inspects structured parameters: many targets or test
// types imply broader work regardless of the description wording.
func parameterShape(parameters map[string]interface{}) (models.TaskComplexity, bool) {
	if parameters == nil {
		return "", false
	}
	if targets, ok := listParam(parameters, "targets"); ok {
		if len(targets) > 5 {
			return models.ComplexityComplex, true
		}
		if len(targets) > 1 {
			return models.ComplexityMedium, true
		}
	}
	if testTypes, ok := listParam(parameters, "test_types"); ok && len(testTypes) > 3 {
		return models.ComplexityComplex, true
	}
	return "", false
}

func listParam(parameters map[string]interface{}, key string) ([]interface{}, bool) {
	v, ok := parameters[key]
	if !ok {
		return nil, false
	}
	list, ok := v.([]interface{})
	return list, ok
}

// llmBased asks the chat collaborator for a one-word classification.
func (a *Analyzer) llmBased(ctx context.Context, description string, parameters map[string]interface{}) (models.TaskComplexity, error) {
	response, err := a.client.Send(ctx, classifySystemPrompt, buildClassifyPrompt(description, parameters))
	if err != nil {
		return "", fmt.Errorf("llm call: %w", err)
	}
	return parseVerdict(response)
}

func buildClassifyPrompt(description string, parameters map[string]interface{}) string {
	params := "{}"
	if len(parameters) > 0 {
		if data, err := json.MarshalIndent(parameters, "", "  "); err == nil {
			params = string(data)
		}
	}

	return fmt.Sprintf(`Classify the complexity of the following task as simple, medium or complex. Answer with a single word.

**Task**: %s

**Parameters**: %s

**Classification guide**:
1. simple: one tool invocation, direct operation (e.g. "scan port 80")
2. medium: several tools in sequence, moderate analysis (e.g. "scan the site and identify technologies")
3. complex: multi-step reasoning, attack chain construction, planning required (e.g. "perform a penetration test")

**Response format**:
Answer with exactly one word: "simple", "medium" or "complex".

Your classification:`, description, params)
}

// parseVerdict extracts the classification token from a free-text LLM
// response. Prefix matches win over substring matches; a response with
// no token is a parse failure, not a crash.
func parseVerdict(response string) (models.TaskComplexity, error) {
	r := strings.ToLower(strings.TrimSpace(response))

	switch {
	case strings.HasPrefix(r, "simple"):
		return models.ComplexitySimple, nil
	case strings.HasPrefix(r, "complex"):
		return models.ComplexityComplex, nil
	case strings.HasPrefix(r, "medium"):
		return models.ComplexityMedium, nil
	case strings.Contains(r, "simple"):
		return models.ComplexitySimple, nil
	case strings.Contains(r, "complex"):
		return models.ComplexityComplex, nil
	case strings.Contains(r, "medium"):
		return models.ComplexityMedium, nil
	}
	return "", fmt.Errorf("no complexity token in llm response %q", response)
}

// lengthHeuristic is the last-resort classification by description
// length.
func lengthHeuristic(description string) models.TaskComplexity {
	switch {
	case len(description) > 100:
		return models.ComplexityComplex
	case len(description) > 30:
		return models.ComplexityMedium
	default:
		return models.ComplexitySimple
	}
}
