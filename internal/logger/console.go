// Package logger provides logging implementations for orchestrator
// execution.
//
// The logger package offers structured logging of execution progress at
// the step and run level. Implementations are thread-safe and support
// various output destinations (console, file, etc.).
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/o0x1024/sentinel-core/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs execution progress to a writer with timestamps and
// thread safety. All output is prefixed with [HH:MM:SS] timestamps.
// Color output is automatically enabled for terminal output.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided
// io.Writer. If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive);
// empty or invalid levels default to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if color.NoColor {
		// Respects NO_COLOR and similar conventions.
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel lower-cases a level name and falls back to "info"
// for anything unknown.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// Tracef logs a trace-level message (most verbose).
func (cl *ConsoleLogger) Tracef(format string, args ...interface{}) {
	cl.logWithLevel("TRACE", fmt.Sprintf(format, args...))
}

// Debugf logs a debug-level message.
func (cl *ConsoleLogger) Debugf(format string, args ...interface{}) {
	cl.logWithLevel("DEBUG", fmt.Sprintf(format, args...))
}

// Infof logs an info-level message.
func (cl *ConsoleLogger) Infof(format string, args ...interface{}) {
	cl.logWithLevel("INFO", fmt.Sprintf(format, args...))
}

// Warnf logs a warning-level message.
func (cl *ConsoleLogger) Warnf(format string, args ...interface{}) {
	cl.logWithLevel("WARN", fmt.Sprintf(format, args...))
}

// Errorf logs an error-level message.
func (cl *ConsoleLogger) Errorf(format string, args ...interface{}) {
	cl.logWithLevel("ERROR", fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) logWithLevel(level, message string) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	levelText := level
	if cl.colorOutput {
		switch level {
		case "TRACE":
			levelText = color.New(color.FgHiBlack).Sprint(level)
		case "DEBUG":
			levelText = color.New(color.FgCyan).Sprint(level)
		case "INFO":
			levelText = color.New(color.FgBlue).Sprint(level)
		case "WARN":
			levelText = color.New(color.FgYellow).Sprint(level)
		case "ERROR":
			levelText = color.New(color.FgRed).Sprint(level)
		}
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, levelText, message)
}

// LogStepResult logs the outcome of one plan step at DEBUG level.
// Format: "[HH:MM:SS] Step <id>: OK|FAIL (<duration>)"
func (cl *ConsoleLogger) LogStepResult(result models.StepResult) {
	if cl.writer == nil || !cl.shouldLog("debug") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	status := "OK"
	if !result.Success {
		status = "FAIL"
	}
	if cl.colorOutput {
		if result.Success {
			status = color.New(color.FgGreen).Sprint(status)
		} else {
			status = color.New(color.FgRed).Sprint(status)
		}
	}
	fmt.Fprintf(cl.writer, "[%s] Step %s: %s (%s)\n", timestamp(), result.StepID, status, formatDuration(result.Duration))
}

// LogProgress logs batch progress at INFO level.
// Format: "[HH:MM:SS] [3/7] <description>"
func (cl *ConsoleLogger) LogProgress(index, total int, description string) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	msg := fmt.Sprintf("[%d/%d] %s", index, total, description)
	if cl.colorOutput {
		msg = color.New(color.FgCyan).Sprint(msg)
	}
	fmt.Fprintf(cl.writer, "[%s] %s\n", timestamp(), msg)
}

// LogRunSummary logs the aggregate result of an execution at INFO level.
func (cl *ConsoleLogger) LogRunSummary(result models.ExecutionResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	status := "completed"
	if !result.Success {
		status = "failed"
	}
	if cl.colorOutput {
		if result.Success {
			status = color.New(color.FgGreen).Sprint(status)
		} else {
			status = color.New(color.FgRed).Sprint(status)
		}
	}
	fmt.Fprintf(cl.writer, "[%s] Execution %s %s (%s)\n", timestamp(), result.ID, status, formatDuration(result.ExecutionTime))
	if result.Error != "" {
		fmt.Fprintf(cl.writer, "[%s]   error: %s\n", timestamp(), result.Error)
	}
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		minutes := remainder / time.Minute
		seconds := (remainder % time.Minute) / time.Second
		if minutes == 0 && seconds == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		if seconds == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// NoOpLogger discards all log messages. Useful for tests or when
// logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

// Tracef is a no-op implementation.
func (n *NoOpLogger) Tracef(format string, args ...interface{}) {}

// Debugf is a no-op implementation.
func (n *NoOpLogger) Debugf(format string, args ...interface{}) {}

// Infof is a no-op implementation.
func (n *NoOpLogger) Infof(format string, args ...interface{}) {}

// Warnf is a no-op implementation.
func (n *NoOpLogger) Warnf(format string, args ...interface{}) {}

// Errorf is a no-op implementation.
func (n *NoOpLogger) Errorf(format string, args ...interface{}) {}

// LogStepResult is a no-op implementation.
func (n *NoOpLogger) LogStepResult(result models.StepResult) {}

// LogProgress is a no-op implementation.
func (n *NoOpLogger) LogProgress(index, total int, description string) {}

// LogRunSummary is a no-op implementation.
func (n *NoOpLogger) LogRunSummary(result models.ExecutionResult) {}
