package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/o0x1024/sentinel-core/internal/models"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "warn")

	cl.Debugf("hidden %d", 1)
	cl.Infof("also hidden")
	cl.Warnf("visible warning")
	cl.Errorf("visible error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below warn leaked through: %q", out)
	}
	if !strings.Contains(out, "visible warning") || !strings.Contains(out, "visible error") {
		t.Errorf("warn/error messages missing: %q", out)
	}
}

func TestInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "shouting")

	cl.Debugf("debug line")
	cl.Infof("info line")

	out := buf.String()
	if strings.Contains(out, "debug line") {
		t.Error("debug should be filtered at default info level")
	}
	if !strings.Contains(out, "info line") {
		t.Error("info should pass at default info level")
	}
}

func TestNilWriterIsSilent(t *testing.T) {
	cl := NewConsoleLogger(nil, "trace")
	// Must not panic.
	cl.Infof("nowhere")
	cl.LogStepResult(models.StepSuccess("s1", nil, time.Second))
	cl.LogProgress(1, 3, "scan")
}

func TestLogStepResult(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "debug")

	cl.LogStepResult(models.StepSuccess("s1", "out", 1500*time.Millisecond))
	cl.LogStepResult(models.StepFailure("s2", "boom", time.Second))

	out := buf.String()
	if !strings.Contains(out, "Step s1: OK") {
		t.Errorf("missing success line: %q", out)
	}
	if !strings.Contains(out, "Step s2: FAIL") {
		t.Errorf("missing failure line: %q", out)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.in); got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
