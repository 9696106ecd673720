package events

import "time"

// Emitter provides helpers for publishing worker events with shared metadata.
// A nil Emitter, or one without a bus, drops every event.
type Emitter struct {
	bus      *EventBus
	workerID string
}

// NewEmitter creates a new event emitter.
func NewEmitter(bus *EventBus, workerID string) *Emitter {
	return &Emitter{bus: bus, workerID: workerID}
}

// Bus returns the underlying bus.
func (e *Emitter) Bus() *EventBus {
	if e == nil {
		return nil
	}
	return e.bus
}

func (e *Emitter) emit(eventType EventType, data EventData) {
	if e == nil || e.bus == nil {
		return
	}
	e.bus.Publish(&Event{
		Type:      eventType,
		Timestamp: time.Now(),
		WorkerID:  e.workerID,
		Data:      data,
	})
}

// TasksFetched emits the tasks.fetched event.
func (e *Emitter) TasksFetched(topics []string, tasks int, duration time.Duration) {
	e.emit(EventTasksFetched, TasksFetchedData{Topics: topics, Tasks: tasks, Duration: duration})
}

// FetchFailed emits the tasks.fetch_failed event.
func (e *Emitter) FetchFailed(topics []string, err error, duration time.Duration) {
	e.emit(EventFetchFailed, FetchFailedData{Topics: topics, Error: err, Duration: duration})
}

// TaskStarted emits the task.started event.
func (e *Emitter) TaskStarted(taskID, topic, processInstanceID string) {
	e.emit(EventTaskStarted, TaskEventData{TaskID: taskID, Topic: topic, ProcessInstanceID: processInstanceID})
}

// TaskHandled emits the task.handled event.
func (e *Emitter) TaskHandled(taskID, topic string, duration time.Duration, panicked bool) {
	e.emit(EventTaskHandled, TaskEventData{TaskID: taskID, Topic: topic, Duration: duration, Panicked: panicked})
}

// TaskSkipped emits the task.skipped event.
func (e *Emitter) TaskSkipped(taskID, topic string) {
	e.emit(EventTaskSkipped, TaskEventData{TaskID: taskID, Topic: topic})
}

// EngineRequestCompleted emits the engine.request.completed event.
func (e *Emitter) EngineRequestCompleted(operation, taskID string, status int, duration time.Duration) {
	e.emit(EventEngineRequestCompleted, EngineRequestData{
		Operation: operation,
		TaskID:    taskID,
		Status:    status,
		Duration:  duration,
	})
}

// EngineRequestFailed emits the engine.request.failed event.
func (e *Emitter) EngineRequestFailed(operation, taskID string, status int, kind string, err error, duration time.Duration) {
	e.emit(EventEngineRequestFailed, EngineRequestData{
		Operation: operation,
		TaskID:    taskID,
		Status:    status,
		Kind:      kind,
		Error:     err,
		Duration:  duration,
	})
}

// Backoff emits the worker.backoff event.
func (e *Emitter) Backoff(delay time.Duration, reason string) {
	e.emit(EventBackoff, BackoffData{Delay: delay, Reason: reason})
}
