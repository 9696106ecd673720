package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrOperation         = attribute.Key("taskkit.operation")
	AttrTaskID            = attribute.Key("taskkit.task.id")
	AttrTopic             = attribute.Key("taskkit.task.topic")
	AttrProcessInstanceID = attribute.Key("taskkit.process_instance.id")
	AttrWorkerID          = attribute.Key("taskkit.worker.id")
	AttrTaskCount         = attribute.Key("taskkit.tasks")
	AttrErrorKind         = attribute.Key("taskkit.error.kind")
	AttrHTTPStatus        = attribute.Key("http.response.status_code")
)

// StartEngineSpan starts a client span for one engine operation.
func StartEngineSpan(ctx context.Context, tracer trace.Tracer, operation, taskID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{AttrOperation.String(operation)}
	if taskID != "" {
		attrs = append(attrs, AttrTaskID.String(taskID))
	}
	return tracer.Start(ctx, "taskkit.engine."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// StartHandlerSpan starts the span covering one handler invocation.
func StartHandlerSpan(
	ctx context.Context, tracer trace.Tracer, topic, taskID, processInstanceID string,
) (context.Context, trace.Span) {
	return tracer.Start(ctx, "taskkit.task.handle",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			AttrTopic.String(topic),
			AttrTaskID.String(taskID),
			AttrProcessInstanceID.String(processInstanceID),
		),
	)
}

// EndSpan records err (if any) and ends span. A zero status is not recorded.
func EndSpan(span trace.Span, status int, errKind string, err error) {
	if status != 0 {
		span.SetAttributes(AttrHTTPStatus.Int(status))
	}
	if err != nil {
		if errKind != "" {
			span.SetAttributes(AttrErrorKind.String(errKind))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
