package logger

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields.
// Values stored under these keys are added to every record logged with the
// context.
const (
	// ContextKeyTaskID identifies the external task being handled.
	ContextKeyTaskID contextKey = "task_id"

	// ContextKeyTopic identifies the topic the task was fetched for.
	ContextKeyTopic contextKey = "topic"

	// ContextKeyWorkerID identifies the worker holding the task lock.
	ContextKeyWorkerID contextKey = "worker_id"

	// ContextKeyProcessInstanceID identifies the process instance owning the task.
	ContextKeyProcessInstanceID contextKey = "process_instance_id"

	// ContextKeyBusinessKey is the business key of the process instance.
	ContextKeyBusinessKey contextKey = "business_key"

	// ContextKeyOperation names the engine operation in progress (e.g. "complete").
	ContextKeyOperation contextKey = "operation"

	// ContextKeyRequestID identifies the individual engine request.
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyEnvironment identifies the deployment environment.
	ContextKeyEnvironment contextKey = "environment"
)

// allContextKeys lists all context keys extracted by the handlers.
var allContextKeys = []contextKey{
	ContextKeyTaskID,
	ContextKeyTopic,
	ContextKeyWorkerID,
	ContextKeyProcessInstanceID,
	ContextKeyBusinessKey,
	ContextKeyOperation,
	ContextKeyRequestID,
	ContextKeyEnvironment,
}

// WithTaskID returns a new context with the task ID set.
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, ContextKeyTaskID, taskID)
}

// WithTopic returns a new context with the topic name set.
func WithTopic(ctx context.Context, topic string) context.Context {
	return context.WithValue(ctx, ContextKeyTopic, topic)
}

// WithWorkerID returns a new context with the worker ID set.
func WithWorkerID(ctx context.Context, workerID string) context.Context {
	return context.WithValue(ctx, ContextKeyWorkerID, workerID)
}

// WithProcessInstanceID returns a new context with the process instance ID set.
func WithProcessInstanceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyProcessInstanceID, id)
}

// WithBusinessKey returns a new context with the business key set.
func WithBusinessKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ContextKeyBusinessKey, key)
}

// WithOperation returns a new context with the engine operation set.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, ContextKeyOperation, operation)
}

// WithRequestID returns a new context with the request ID set.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// WithEnvironment returns a new context with the environment set.
func WithEnvironment(ctx context.Context, environment string) context.Context {
	return context.WithValue(ctx, ContextKeyEnvironment, environment)
}

// LoggingFields holds all standard logging context fields.
type LoggingFields struct {
	TaskID            string
	Topic             string
	WorkerID          string
	ProcessInstanceID string
	BusinessKey       string
	Operation         string
	RequestID         string
	Environment       string
}

// WithLoggingContext returns a new context with multiple logging fields set
// at once. Only non-empty values are set.
func WithLoggingContext(ctx context.Context, fields *LoggingFields) context.Context {
	if fields == nil {
		return ctx
	}
	for _, kv := range fields.pairs() {
		if kv.value != "" {
			ctx = context.WithValue(ctx, kv.key, kv.value)
		}
	}
	return ctx
}

// ExtractLoggingFields extracts all logging fields from a context.
func ExtractLoggingFields(ctx context.Context) LoggingFields {
	var fields LoggingFields
	for _, kv := range fields.pairs() {
		if v, ok := ctx.Value(kv.key).(string); ok {
			*kv.dest = v
		}
	}
	return fields
}

type fieldPair struct {
	key   contextKey
	value string
	dest  *string
}

func (f *LoggingFields) pairs() []fieldPair {
	return []fieldPair{
		{ContextKeyTaskID, f.TaskID, &f.TaskID},
		{ContextKeyTopic, f.Topic, &f.Topic},
		{ContextKeyWorkerID, f.WorkerID, &f.WorkerID},
		{ContextKeyProcessInstanceID, f.ProcessInstanceID, &f.ProcessInstanceID},
		{ContextKeyBusinessKey, f.BusinessKey, &f.BusinessKey},
		{ContextKeyOperation, f.Operation, &f.Operation},
		{ContextKeyRequestID, f.RequestID, &f.RequestID},
		{ContextKeyEnvironment, f.Environment, &f.Environment},
	}
}
