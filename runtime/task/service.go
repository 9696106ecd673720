package task

import (
	"context"
	"fmt"
	"time"

	"github.com/AltairaLabs/TaskKit/runtime/engine"
	"github.com/AltairaLabs/TaskKit/runtime/logger"
	"github.com/AltairaLabs/TaskKit/runtime/statestore"
	"github.com/AltairaLabs/TaskKit/runtime/variables"
)

// Service reports task outcomes to the engine. Variables passed to it are
// encoded with the service's registry: native Go values are resolved by
// kind, variables.TypedValue values keep their declared kind.
//
// Every method returns nil or an error satisfying errors.As with
// *engine.Error (see engine.IsResolved and engine.IsLockLost), except for
// variable encoding failures, which are reported before anything is sent.
type Service struct {
	client   *engine.Client
	registry *variables.Registry
	ledger   statestore.Ledger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLedger records every task the service resolves in l.
func WithLedger(l statestore.Ledger) ServiceOption {
	return func(s *Service) { s.ledger = l }
}

// NewService creates a service sending through client.
func NewService(client *engine.Client, registry *variables.Registry, opts ...ServiceOption) *Service {
	s := &Service{client: client, registry: registry}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry used to encode variables.
func (s *Service) Registry() *variables.Registry { return s.registry }

// Unlock releases the task so it can be fetched again, by this or another
// worker.
func (s *Service) Unlock(ctx context.Context, t *ExternalTask) error {
	ctx = taskContext(ctx, t)
	err := s.client.Unlock(ctx, t.ID())
	logger.TaskOutcome(ctx, string(engine.OpUnlock), t.ID(), err)
	if err == nil && s.ledger != nil {
		if fErr := s.ledger.Forget(ctx, t.ID()); fErr != nil {
			logger.WarnContext(ctx, "ledger forget failed", "error", fErr)
		}
	}
	return err
}

// Complete completes the task. vars are set on the process instance,
// localVars on the task's execution; either may be nil.
func (s *Service) Complete(ctx context.Context, t *ExternalTask, vars, localVars map[string]any) error {
	fields, err := s.registry.EncodeAll(vars)
	if err != nil {
		return fmt.Errorf("task: complete %s: %w", t.ID(), err)
	}
	localFields, err := s.registry.EncodeAll(localVars)
	if err != nil {
		return fmt.Errorf("task: complete %s: %w", t.ID(), err)
	}

	ctx = taskContext(ctx, t)
	err = s.client.Complete(ctx, t.ID(), engine.CompleteRequest{
		Variables:      fields,
		LocalVariables: localFields,
	})
	return s.resolved(ctx, t, engine.OpComplete, err)
}

// HandleFailure reports a technical failure. retries is the number of
// retries left; at zero the engine raises an incident. retryTimeout delays
// the next delivery.
func (s *Service) HandleFailure(
	ctx context.Context, t *ExternalTask, errorMessage, errorDetails string, retries int, retryTimeout time.Duration,
) error {
	ctx = taskContext(ctx, t)
	err := s.client.HandleFailure(ctx, t.ID(), engine.FailureRequest{
		ErrorMessage: errorMessage,
		ErrorDetails: errorDetails,
		Retries:      retries,
		RetryTimeout: retryTimeout.Milliseconds(),
	})
	return s.resolved(ctx, t, engine.OpHandleFailure, err)
}

// HandleBpmnError raises a business error with errorCode, optionally setting
// variables visible to the catching boundary event.
func (s *Service) HandleBpmnError(
	ctx context.Context, t *ExternalTask, errorCode, errorMessage string, vars map[string]any,
) error {
	fields, err := s.registry.EncodeAll(vars)
	if err != nil {
		return fmt.Errorf("task: bpmn error %s: %w", t.ID(), err)
	}

	ctx = taskContext(ctx, t)
	err = s.client.HandleBpmnError(ctx, t.ID(), engine.BpmnErrorRequest{
		ErrorCode:    errorCode,
		ErrorMessage: errorMessage,
		Variables:    fields,
	})
	return s.resolved(ctx, t, engine.OpHandleBpmnError, err)
}

// ExtendLock moves the lock expiry to newDuration from now.
func (s *Service) ExtendLock(ctx context.Context, t *ExternalTask, newDuration time.Duration) error {
	ctx = taskContext(ctx, t)
	err := s.client.ExtendLock(ctx, t.ID(), newDuration)
	logger.TaskOutcome(ctx, string(engine.OpExtendLock), t.ID(), err, "new_duration", newDuration)
	return err
}

// resolved logs the outcome and, on success, records it in the ledger. A
// ledger failure is logged only: the engine already accepted the outcome.
func (s *Service) resolved(ctx context.Context, t *ExternalTask, op engine.Operation, err error) error {
	logger.TaskOutcome(ctx, string(op), t.ID(), err)
	if err != nil || s.ledger == nil {
		return err
	}
	rec := statestore.Resolution{
		TaskID:    t.ID(),
		Topic:     t.TopicName(),
		Operation: string(op),
		WorkerID:  s.client.WorkerID(),
	}
	if lErr := s.ledger.Record(ctx, rec); lErr != nil {
		logger.WarnContext(ctx, "ledger record failed", "error", lErr)
	}
	return nil
}

func taskContext(ctx context.Context, t *ExternalTask) context.Context {
	ctx = logger.WithTaskID(ctx, t.ID())
	ctx = logger.WithTopic(ctx, t.TopicName())
	if pi := t.ProcessInstanceID(); pi != "" {
		ctx = logger.WithProcessInstanceID(ctx, pi)
	}
	if bk := t.BusinessKey(); bk != "" {
		ctx = logger.WithBusinessKey(ctx, bk)
	}
	return ctx
}
