// Package report assembles operator-facing run reports: a Markdown
// summary of the execution plus the resource cleanup report, with
// optional HTML rendering.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/o0x1024/sentinel-core/internal/models"
	"github.com/o0x1024/sentinel-core/internal/resource"
)

// RunReport is everything a finished execution produced, ready to
// render.
type RunReport struct {
	ExecutionID     string
	TaskDescription string
	Engine          string
	Complexity      models.TaskComplexity
	Result          *models.ExecutionResult
	StepResults     map[string]models.StepResult
	Cleanup         resource.Report
	GeneratedAt     time.Time
}

// Builder renders run reports. The zero value is not usable; use
// NewBuilder.
type Builder struct {
	markdown goldmark.Markdown
}

// NewBuilder creates a report Builder. GFM is enabled so the step
// table renders as a table.
func NewBuilder() *Builder {
	return &Builder{markdown: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Markdown renders the full run report as Markdown.
func (b *Builder) Markdown(report RunReport) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Run Report: %s\n\n", report.ExecutionID)
	fmt.Fprintf(&sb, "**Task:** %s\n\n", report.TaskDescription)
	fmt.Fprintf(&sb, "**Engine:** %s (%s complexity)\n\n", report.Engine, report.Complexity)
	if !report.GeneratedAt.IsZero() {
		fmt.Fprintf(&sb, "**Generated:** %s\n\n", report.GeneratedAt.Format(time.RFC3339))
	}

	b.writeOutcome(&sb, report.Result)
	b.writeSteps(&sb, report.StepResults)
	b.writeCleanup(&sb, report.Cleanup)

	return sb.String()
}

// HTML renders the full run report as an HTML document body.
func (b *Builder) HTML(report RunReport) (string, error) {
	var buf bytes.Buffer
	if err := b.markdown.Convert([]byte(b.Markdown(report)), &buf); err != nil {
		return "", fmt.Errorf("render report for %s: %w", report.ExecutionID, err)
	}
	return buf.String(), nil
}

func (b *Builder) writeOutcome(sb *strings.Builder, result *models.ExecutionResult) {
	sb.WriteString("## Outcome\n\n")
	if result == nil {
		sb.WriteString("No result recorded.\n\n")
		return
	}
	if result.Success {
		sb.WriteString("**Status:** SUCCESS\n\n")
	} else {
		sb.WriteString("**Status:** FAILED\n\n")
		if result.Error != "" {
			fmt.Fprintf(sb, "**Error:** %s\n\n", result.Error)
		}
	}
	fmt.Fprintf(sb, "**Duration:** %s\n\n", result.ExecutionTime.Round(time.Millisecond))
	if answer, ok := result.Data.(string); ok && answer != "" {
		sb.WriteString(answer)
		if !strings.HasSuffix(answer, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
}

func (b *Builder) writeSteps(sb *strings.Builder, results map[string]models.StepResult) {
	if len(results) == 0 {
		return
	}

	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sb.WriteString("## Steps\n\n")
	sb.WriteString("| Step | Status | Duration | Error |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, id := range ids {
		res := results[id]
		status := "ok"
		if !res.Success {
			status = "failed"
		}
		fmt.Fprintf(sb, "| %s | %s | %s | %s |\n",
			id, status, res.Duration.Round(time.Millisecond), res.Error)
	}
	sb.WriteString("\n")
}

func (b *Builder) writeCleanup(sb *strings.Builder, cleanup resource.Report) {
	sb.WriteString("## Resource Cleanup\n\n")
	if cleanup.Total == 0 {
		sb.WriteString("No external resources were acquired.\n")
		return
	}

	fmt.Fprintf(sb, "**Tracked:** %d, **Released:** %d, **Failed:** %d, **Still active:** %d\n\n",
		cleanup.Total, cleanup.Released, cleanup.ReleaseFailed, cleanup.Active)

	types := make([]resource.Type, 0, len(cleanup.ByType))
	for t := range cleanup.ByType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		fmt.Fprintf(sb, "- %s: %d\n", t, cleanup.ByType[t])
	}
	sb.WriteString("\n")

	if cleanup.HasLeaks() {
		sb.WriteString("### Leaked Resources\n\n")
		for _, leaked := range cleanup.Leaked {
			fmt.Fprintf(sb, "- %s (%s, acquired %s, state %s)\n",
				leaked.ID, leaked.Type, leaked.AcquiredAt.Format(time.RFC3339), leaked.State)
		}
		sb.WriteString("\n")
	}
}
