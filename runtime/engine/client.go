package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/AltairaLabs/TaskKit/pkg/httputil"
	"github.com/AltairaLabs/TaskKit/runtime/events"
	"github.com/AltairaLabs/TaskKit/runtime/logger"
	"github.com/AltairaLabs/TaskKit/runtime/telemetry"
)

const externalTaskPath = "/external-task"

// Client calls the engine's external task REST API. Every method returns nil
// or an *Error produced by Translate.
type Client struct {
	transport Transport
	workerID  string
	tracer    trace.Tracer
	emitter   *events.Emitter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTransport replaces the transport built from the base URL.
func WithTransport(t Transport) ClientOption {
	return func(c *Client) { c.transport = t }
}

// WithWorkerID sets the worker id sent with every locked-task operation.
func WithWorkerID(id string) ClientOption {
	return func(c *Client) { c.workerID = id }
}

// WithTracerProvider sets the provider used for engine call spans.
func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(c *Client) { c.tracer = telemetry.Tracer(tp) }
}

// WithEmitter publishes engine request events through e.
func WithEmitter(e *events.Emitter) ClientOption {
	return func(c *Client) { c.emitter = e }
}

// NewClient creates a client for the engine REST root at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(baseURL)
	}
	if c.tracer == nil {
		c.tracer = telemetry.Tracer(nil)
	}
	return c
}

// WorkerID returns the configured worker id.
func (c *Client) WorkerID() string { return c.workerID }

// FetchAndLock fetches and locks up to req.MaxTasks tasks. An empty
// req.WorkerID is filled with the client's worker id. With long polling
// enabled the request deadline is extended past the poll timeout.
func (c *Client) FetchAndLock(ctx context.Context, req FetchAndLockRequest) ([]LockedTask, error) {
	if req.WorkerID == "" {
		req.WorkerID = c.workerID
	}
	async := time.Duration(req.AsyncResponseTimeout) * time.Millisecond

	var tasks []LockedTask
	if err := c.call(ctx, OpFetchAndLock, "", externalTaskPath+"/fetchAndLock", req, async, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Unlock releases the lock on a task so it can be fetched again.
func (c *Client) Unlock(ctx context.Context, taskID string) error {
	return c.call(ctx, OpUnlock, taskID, taskPath(taskID, "unlock"), nil, 0, nil)
}

// Complete completes a task, optionally setting process and local variables.
func (c *Client) Complete(ctx context.Context, taskID string, req CompleteRequest) error {
	if req.WorkerID == "" {
		req.WorkerID = c.workerID
	}
	return c.call(ctx, OpComplete, taskID, taskPath(taskID, "complete"), req, 0, nil)
}

// HandleFailure reports a technical failure. When req.Retries reaches zero
// the engine raises an incident.
func (c *Client) HandleFailure(ctx context.Context, taskID string, req FailureRequest) error {
	if req.WorkerID == "" {
		req.WorkerID = c.workerID
	}
	return c.call(ctx, OpHandleFailure, taskID, taskPath(taskID, "failure"), req, 0, nil)
}

// HandleBpmnError raises a business error to be caught by the process model.
func (c *Client) HandleBpmnError(ctx context.Context, taskID string, req BpmnErrorRequest) error {
	if req.WorkerID == "" {
		req.WorkerID = c.workerID
	}
	return c.call(ctx, OpHandleBpmnError, taskID, taskPath(taskID, "bpmnError"), req, 0, nil)
}

// ExtendLock sets the task's lock to expire newDuration from now.
func (c *Client) ExtendLock(ctx context.Context, taskID string, newDuration time.Duration) error {
	req := ExtendLockRequest{WorkerID: c.workerID, NewDuration: newDuration.Milliseconds()}
	return c.call(ctx, OpExtendLock, taskID, taskPath(taskID, "extendLock"), req, 0, nil)
}

func taskPath(taskID, action string) string {
	return externalTaskPath + "/" + url.PathEscape(taskID) + "/" + action
}

// call runs one operation end to end: encode, send, translate. It owns the
// span, the request event and the operation log context.
func (c *Client) call(
	ctx context.Context, op Operation, taskID, path string, body any, async time.Duration, result any,
) error {
	ctx = logger.WithOperation(ctx, string(op))
	if taskID != "" {
		ctx = logger.WithTaskID(ctx, taskID)
	}
	ctx, span := telemetry.StartEngineSpan(ctx, c.tracer, string(op), taskID)

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			err = fmt.Errorf("engine: %s: encode request: %w", op, err)
			telemetry.EndSpan(span, 0, "", err)
			return err
		}
		payload = data
	}

	reqCtx, cancel := context.WithTimeout(ctx, httputil.RequestTimeout(async))
	defer cancel()

	start := time.Now()
	resp, sendErr := c.transport.Send(reqCtx, http.MethodPost, path, payload)
	err := Translate(op, resp, sendErr, result)
	elapsed := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.Status
	}
	if err != nil {
		kind, _ := KindOf(err)
		telemetry.EndSpan(span, status, kind.String(), err)
		c.emitter.EngineRequestFailed(string(op), taskID, status, kind.String(), err, elapsed)
		return err
	}
	telemetry.EndSpan(span, status, "", nil)
	c.emitter.EngineRequestCompleted(string(op), taskID, status, elapsed)
	return nil
}
