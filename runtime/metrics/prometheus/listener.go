package prometheus

import (
	"github.com/AltairaLabs/TaskKit/runtime/events"
)

// Status constants for metric labels.
const (
	statusSuccess = "success"
	statusError   = "error"
	statusPanic   = "panic"
	statusSkipped = "skipped"
)

// MetricsListener records worker events as Prometheus metrics.
// It implements the events.Listener signature and should be registered
// with an EventBus using SubscribeAll.
type MetricsListener struct{}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

// Handle processes an event and records relevant metrics.
// This method is designed to be used with EventBus.SubscribeAll.
func (l *MetricsListener) Handle(event *events.Event) {
	//exhaustive:ignore
	switch event.Type {
	case events.EventTasksFetched:
		if data, ok := event.Data.(events.TasksFetchedData); ok {
			RecordFetch(statusSuccess, data.Tasks, data.Duration.Seconds())
		}
	case events.EventFetchFailed:
		if data, ok := event.Data.(events.FetchFailedData); ok {
			RecordFetch(statusError, 0, data.Duration.Seconds())
		}
	case events.EventTaskStarted:
		RecordHandlerStart()
	case events.EventTaskHandled:
		l.handleTaskHandled(event)
	case events.EventTaskSkipped:
		if data, ok := event.Data.(events.TaskEventData); ok {
			RecordTaskSkipped(data.Topic)
		}
	case events.EventEngineRequestCompleted:
		if data, ok := event.Data.(events.EngineRequestData); ok {
			RecordEngineRequest(data.Operation, statusSuccess, data.Duration.Seconds())
		}
	case events.EventEngineRequestFailed:
		if data, ok := event.Data.(events.EngineRequestData); ok {
			outcome := data.Kind
			if outcome == "" {
				outcome = statusError
			}
			RecordEngineRequest(data.Operation, outcome, data.Duration.Seconds())
		}
	case events.EventBackoff:
		if data, ok := event.Data.(events.BackoffData); ok {
			RecordBackoff(data.Reason, data.Delay.Seconds())
		}
	default:
		// Ignore events that don't have metrics
	}
}

func (l *MetricsListener) handleTaskHandled(event *events.Event) {
	data, ok := event.Data.(events.TaskEventData)
	if !ok {
		return
	}
	status := statusSuccess
	if data.Panicked {
		status = statusPanic
	}
	RecordHandlerEnd(data.Topic, status, data.Duration.Seconds())
}

// Listener returns an events.Listener function that can be registered with an EventBus.
func (l *MetricsListener) Listener() events.Listener {
	return l.Handle
}
