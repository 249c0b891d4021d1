package executor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/o0x1024/sentinel-core/internal/models"
)

const tracerName = "github.com/o0x1024/sentinel-core/internal/executor"

// startStepSpan opens a span for one step execution. With no tracer
// provider configured this is a no-op span.
func startStepSpan(ctx context.Context, step models.ExecutionStep) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("step.id", step.ID),
		attribute.String("step.kind", string(step.Kind)),
	}
	if step.Tool != nil {
		attrs = append(attrs, attribute.String("step.tool", step.Tool.Name))
	}
	return otel.Tracer(tracerName).Start(ctx, "step.execute", trace.WithAttributes(attrs...))
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
