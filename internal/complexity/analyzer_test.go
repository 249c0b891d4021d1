package complexity

import (
	"context"
	"errors"
	"testing"

	"github.com/o0x1024/sentinel-core/internal/config"
	"github.com/o0x1024/sentinel-core/internal/models"
)

type stubClient struct {
	response string
	err      error
	calls    int
}

func (c *stubClient) Send(ctx context.Context, system, user string) (string, error) {
	c.calls++
	return c.response, c.err
}

func defaultKeywords() config.ComplexityConfig {
	return config.DefaultConfig().Complexity
}

func TestAnalyzeSimpleKeyword(t *testing.T) {
	a := NewAnalyzer(defaultKeywords(), nil)

	got := a.Analyze(context.Background(), "scan port 80 on example.com", nil)
	if got != models.ComplexitySimple {
		t.Errorf("expected simple, got %s", got)
	}
}

func TestAnalyzeSimpleKeywordMultiStep(t *testing.T) {
	// a simple keyword in a multi-operation sentence must not short-circuit
	a := NewAnalyzer(defaultKeywords(), nil)

	got := a.Analyze(context.Background(), "scan the host and then exploit any findings", nil)
	if got == models.ComplexitySimple {
		t.Error("connector sentence classified as simple")
	}
}

func TestAnalyzeComplexKeywordSkipsLLM(t *testing.T) {
	client := &stubClient{response: "simple"}
	a := NewAnalyzer(defaultKeywords(), nil).WithClient(client)

	got := a.Analyze(context.Background(), "perform penetration test on example.com", nil)
	if got != models.ComplexityComplex {
		t.Errorf("expected complex, got %s", got)
	}
	if client.calls != 0 {
		t.Errorf("rule pass decided but llm was called %d times", client.calls)
	}
}

func TestAnalyzeChineseKeywords(t *testing.T) {
	a := NewAnalyzer(defaultKeywords(), nil)

	if got := a.Analyze(context.Background(), "对目标进行渗透并构建攻击链", nil); got != models.ComplexityComplex {
		t.Errorf("expected complex, got %s", got)
	}
}

func TestAnalyzeTargetParameters(t *testing.T) {
	a := NewAnalyzer(config.ComplexityConfig{}, nil)

	many := map[string]interface{}{
		"targets": []interface{}{"a", "b", "c", "d", "e", "f"},
	}
	if got := a.Analyze(context.Background(), "run", many); got != models.ComplexityComplex {
		t.Errorf("6 targets: expected complex, got %s", got)
	}

	few := map[string]interface{}{
		"targets": []interface{}{"a", "b"},
	}
	if got := a.Analyze(context.Background(), "run", few); got != models.ComplexityMedium {
		t.Errorf("2 targets: expected medium, got %s", got)
	}
}

func TestAnalyzeLLMFallback(t *testing.T) {
	client := &stubClient{response: "Verdict: medium difficulty overall."}
	a := NewAnalyzer(config.ComplexityConfig{}, nil).WithClient(client)

	got := a.Analyze(context.Background(), "do the thing", nil)
	if got != models.ComplexityMedium {
		t.Errorf("expected medium from llm, got %s", got)
	}
	if client.calls != 1 {
		t.Errorf("expected 1 llm call, got %d", client.calls)
	}
}

func TestAnalyzeLLMErrorFallsBackToLength(t *testing.T) {
	client := &stubClient{err: errors.New("backend down")}
	a := NewAnalyzer(config.ComplexityConfig{}, nil).WithClient(client)

	if got := a.Analyze(context.Background(), "do the thing", nil); got != models.ComplexitySimple {
		t.Errorf("short description: expected simple, got %s", got)
	}

	long := "this description is deliberately padded out to well over one hundred characters so the length heuristic has to call it complex in the end"
	if got := a.Analyze(context.Background(), long, nil); got != models.ComplexityComplex {
		t.Errorf("long description: expected complex, got %s", got)
	}
}

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		response string
		want     models.TaskComplexity
		wantErr  bool
	}{
		{"simple", models.ComplexitySimple, false},
		{"  Complex\n", models.ComplexityComplex, false},
		{"medium, because several tools are needed", models.ComplexityMedium, false},
		{"I would call this one complex overall", models.ComplexityComplex, false},
		{"no idea", "", true},
	}
	for _, tc := range cases {
		got, err := parseVerdict(tc.response)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseVerdict(%q): expected error", tc.response)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseVerdict(%q): %v", tc.response, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseVerdict(%q) = %s, want %s", tc.response, got, tc.want)
		}
	}
}
