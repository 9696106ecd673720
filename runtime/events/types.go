package events

import (
	"time"
)

// EventType identifies the type of event emitted by the worker.
type EventType string

const (
	// EventTasksFetched marks a successful fetch-and-lock round.
	EventTasksFetched EventType = "tasks.fetched"
	// EventFetchFailed marks a fetch-and-lock round the engine did not answer.
	EventFetchFailed EventType = "tasks.fetch_failed"

	// EventTaskStarted marks a handler starting on a locked task.
	EventTaskStarted EventType = "task.started"
	// EventTaskHandled marks a handler returning, or panicking.
	EventTaskHandled EventType = "task.handled"
	// EventTaskSkipped marks a re-delivered task that was already resolved.
	EventTaskSkipped EventType = "task.skipped"

	// EventEngineRequestCompleted marks an engine call that succeeded.
	EventEngineRequestCompleted EventType = "engine.request.completed"
	// EventEngineRequestFailed marks an engine call translated into an error.
	EventEngineRequestFailed EventType = "engine.request.failed"

	// EventBackoff marks the worker pausing before the next fetch.
	EventBackoff EventType = "worker.backoff"
)

// EventData is a marker interface for event payloads.
type EventData interface {
	eventData()
}

// Event represents a worker event delivered to listeners.
type Event struct {
	Type      EventType
	Timestamp time.Time
	WorkerID  string
	Data      EventData
}

// baseEventData provides the shared marker implementation for all payloads.
type baseEventData struct{}

func (baseEventData) eventData() {}

// TasksFetchedData describes one fetch-and-lock round.
type TasksFetchedData struct {
	baseEventData
	Topics   []string
	Tasks    int
	Duration time.Duration
}

// FetchFailedData describes a failed fetch-and-lock round.
type FetchFailedData struct {
	baseEventData
	Topics   []string
	Error    error
	Duration time.Duration
}

// TaskEventData describes a single task passing through the worker.
type TaskEventData struct {
	baseEventData
	TaskID            string
	Topic             string
	ProcessInstanceID string
	// Duration and Panicked are set on EventTaskHandled.
	Duration time.Duration
	Panicked bool
}

// EngineRequestData describes one engine REST call.
type EngineRequestData struct {
	baseEventData
	Operation string
	TaskID    string
	Status    int
	// Kind is the semantic error kind on EventEngineRequestFailed, e.g. "not_found".
	Kind     string
	Error    error
	Duration time.Duration
}

// BackoffData describes a pause before the next fetch.
type BackoffData struct {
	baseEventData
	Delay time.Duration
	// Reason is "idle" when no tasks were returned or "error" after a failure.
	Reason string
}
