package reflection

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/o0x1024/sentinel-core/internal/config"
	"github.com/o0x1024/sentinel-core/internal/models"
)

func testConfig() config.ReflectionConfig {
	return config.ReflectionConfig{
		ReplanThreshold:                 0.5,
		ReflectOnError:                  true,
		MinIterationsBetweenReflections: 2,
	}
}

func TestReflectNoSteps(t *testing.T) {
	r := NewReflector(testConfig(), nil)
	execCtx := models.NewExecutionContext("exec-1", "task")

	ref := r.Reflect(execCtx)
	assert.Equal(t, models.DecisionContinue, ref.Decision.Type)
	assert.Equal(t, "No steps executed yet", ref.Reasoning)
}

func TestReflectHighFailureRateReplans(t *testing.T) {
	r := NewReflector(testConfig(), nil)
	execCtx := models.NewExecutionContext("exec-1", "task")
	execCtx.AddResult(models.StepSuccess("s1", "ok", time.Second))
	execCtx.AddResult(models.StepFailure("s2", "connection timed out", time.Second))
	execCtx.AddResult(models.StepFailure("s3", "tool not found", time.Second))

	ref := r.Reflect(execCtx)
	require.Equal(t, models.DecisionReplan, ref.Decision.Type)
	assert.Equal(t, "High failure rate (67%). Failed steps: s2, s3", ref.Decision.Reason)
	assert.Equal(t, "Analyzed 3 steps: 1 successful, 2 failed", ref.Reasoning)
	assert.Contains(t, ref.Improvements, "Consider increasing timeout or optimizing operation")
	assert.Contains(t, ref.Improvements, "Check tool availability or try alternative approach")
}

func TestReflectAllSuccessCompletes(t *testing.T) {
	r := NewReflector(testConfig(), nil)
	execCtx := models.NewExecutionContext("exec-1", "task")
	execCtx.AddResult(models.StepSuccess("s1", "ok", time.Second))
	execCtx.AddResult(models.StepSuccess("s2", "ok", 2*time.Second))

	ref := r.Reflect(execCtx)
	require.Equal(t, models.DecisionComplete, ref.Decision.Type)
	assert.True(t, strings.HasPrefix(ref.Decision.Answer, "## Execution Summary"))
	assert.Contains(t, ref.Decision.Answer, "**Total Steps:** 2")
	assert.Contains(t, ref.Decision.Answer, "**Successful:** 2")
	assert.Contains(t, ref.Decision.Answer, "**Total Duration:** 3s")
	assert.Contains(t, ref.Decision.Answer, "✓ s1")
}

func TestReflectPartialFailureContinues(t *testing.T) {
	r := NewReflector(testConfig(), nil)
	execCtx := models.NewExecutionContext("exec-1", "task")
	execCtx.AddResult(models.StepSuccess("s1", "ok", time.Second))
	execCtx.AddResult(models.StepSuccess("s2", "ok", time.Second))
	execCtx.AddResult(models.StepFailure("s3", "minor glitch", time.Second))

	ref := r.Reflect(execCtx)
	require.Equal(t, models.DecisionContinue, ref.Decision.Type)
	assert.Equal(t, "Progress: 2/3 steps completed. Continuing execution.", ref.Reasoning)
}

func TestReflectThresholdDisabledByConfig(t *testing.T) {
	cfg := testConfig()
	cfg.ReflectOnError = false
	r := NewReflector(cfg, nil)
	execCtx := models.NewExecutionContext("exec-1", "task")
	execCtx.AddResult(models.StepFailure("s1", "boom", time.Second))

	ref := r.Reflect(execCtx)
	assert.NotEqual(t, models.DecisionReplan, ref.Decision.Type)
}

func TestReflectWithLLMResponse(t *testing.T) {
	r := NewReflector(testConfig(), nil)
	execCtx := models.NewExecutionContext("exec-1", "task")
	execCtx.AddResult(models.StepSuccess("s1", "ok", time.Second))

	t.Run("final answer with prose around the JSON", func(t *testing.T) {
		text := "Here is my assessment:\n{\"type\": \"final_answer\", \"answer\": \"All clear\", \"reasoning\": \"done\"}\nThanks."
		ref := r.ReflectWithLLMResponse(execCtx, text)
		require.Equal(t, models.DecisionComplete, ref.Decision.Type)
		assert.Equal(t, "All clear", ref.Decision.Answer)
	})

	t.Run("replan boolean field", func(t *testing.T) {
		text := `{"replan": true, "reason": "wrong tool", "reasoning": "scanner unsuited", "improvements": ["use nuclei"]}`
		ref := r.ReflectWithLLMResponse(execCtx, text)
		require.Equal(t, models.DecisionReplan, ref.Decision.Type)
		assert.Equal(t, "wrong tool", ref.Decision.Reason)
		assert.Equal(t, []string{"use nuclei"}, ref.Improvements)
	})

	t.Run("replan as type", func(t *testing.T) {
		text := `{"type": "replan", "reason": "wrong tool"}`
		ref := r.ReflectWithLLMResponse(execCtx, text)
		require.Equal(t, models.DecisionReplan, ref.Decision.Type)
	})

	t.Run("garbage falls back to rules", func(t *testing.T) {
		ref := r.ReflectWithLLMResponse(execCtx, "I cannot decide")
		assert.Equal(t, models.DecisionComplete, ref.Decision.Type)
	})
}

func TestShouldReflect(t *testing.T) {
	r := NewReflector(testConfig(), nil)
	execCtx := models.NewExecutionContext("exec-1", "task")
	execCtx.AddResult(models.StepSuccess("s1", "ok", time.Second))

	// iteration 0, cadence 3: due
	assert.True(t, r.ShouldReflect(execCtx))

	execCtx.NextIteration() // 1
	assert.False(t, r.ShouldReflect(execCtx))

	execCtx.AddResult(models.StepFailure("s2", "boom", time.Second))
	assert.True(t, r.ShouldReflect(execCtx), "recorded failure forces reflection")

	// Cadence check with a clean context, since any recorded failure
	// makes reflection due regardless of iteration.
	clean := models.NewExecutionContext("exec-2", "task")
	clean.NextIteration() // 1
	clean.NextIteration() // 2
	assert.False(t, r.ShouldReflect(clean))
	clean.NextIteration() // 3
	assert.True(t, r.ShouldReflect(clean), "cadence due at iteration 3")
}
