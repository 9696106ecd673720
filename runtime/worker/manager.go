// Package worker polls the engine for tasks on subscribed topics and
// dispatches them to handlers.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/AltairaLabs/TaskKit/runtime/engine"
	"github.com/AltairaLabs/TaskKit/runtime/events"
	"github.com/AltairaLabs/TaskKit/runtime/logger"
	"github.com/AltairaLabs/TaskKit/runtime/statestore"
	"github.com/AltairaLabs/TaskKit/runtime/task"
	"github.com/AltairaLabs/TaskKit/runtime/telemetry"
)

// Manager runs the fetch-and-lock loop for a set of subscriptions.
//
// Subscriptions are added before Start and frozen by it. Each iteration
// waits for the rate limiter, acquires handler capacity, fetches at most
// that many tasks across all topics and dispatches each task to its topic's
// handler in its own goroutine. Empty or failed fetches back off
// exponentially; a fetch returning tasks resets the backoff.
type Manager struct {
	client  *engine.Client
	service *task.Service
	config  *Config

	ledger  statestore.Ledger
	emitter *events.Emitter
	tracer  trace.Tracer
	limiter *rate.Limiter
	sem     *semaphore.Weighted

	mu            sync.Mutex
	subscriptions []Subscription
	byTopic       map[string]Subscription
	started       bool
	cancelLoop    context.CancelFunc
	cancelHandler context.CancelFunc
	group         *errgroup.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithLedger skips tasks the ledger reports as already resolved.
func WithLedger(l statestore.Ledger) Option {
	return func(m *Manager) { m.ledger = l }
}

// WithEmitter publishes fetch, task and backoff events through e.
func WithEmitter(e *events.Emitter) Option {
	return func(m *Manager) { m.emitter = e }
}

// WithTracerProvider sets the provider used for handler spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(m *Manager) { m.tracer = telemetry.Tracer(tp) }
}

// NewManager creates a manager fetching through client and reporting
// outcomes through service. A nil config selects DefaultConfig.
func NewManager(client *engine.Client, service *task.Service, config *Config, opts ...Option) (*Manager, error) {
	cfg, err := config.withDefaults()
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if cfg.FetchRateLimit > 0 {
		limit = rate.Limit(cfg.FetchRateLimit)
	}

	m := &Manager{
		client:  client,
		service: service,
		config:  cfg,
		tracer:  telemetry.Tracer(nil),
		limiter: rate.NewLimiter(limit, 1),
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrentHandlers)),
		byTopic: make(map[string]Subscription),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config returns the effective configuration.
func (m *Manager) Config() Config { return *m.config }

// Subscribe adds a subscription. It fails once the manager has started.
func (m *Manager) Subscribe(sub Subscription) error {
	if err := sub.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrAlreadyStarted
	}
	if _, dup := m.byTopic[sub.Topic]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateTopic, sub.Topic)
	}
	m.subscriptions = append(m.subscriptions, sub)
	m.byTopic[sub.Topic] = sub
	return nil
}

// Subscriptions returns the subscriptions in the order they were added.
func (m *Manager) Subscriptions() []Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Subscription, len(m.subscriptions))
	copy(out, m.subscriptions)
	return out
}

// Running reports whether the loop has been started and not stopped.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Start launches the polling loop. It returns immediately; the loop runs
// until ctx is cancelled or Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrAlreadyStarted
	}
	if len(m.subscriptions) == 0 {
		return ErrNoSubscriptions
	}

	loopCtx, cancelLoop := context.WithCancel(ctx)
	handlerCtx, cancelHandler := context.WithCancel(context.WithoutCancel(ctx))
	m.cancelLoop = cancelLoop
	m.cancelHandler = cancelHandler
	m.group = &errgroup.Group{}
	m.started = true

	topics := m.topics()
	req := m.fetchRequest()
	m.group.Go(func() error {
		m.run(loopCtx, handlerCtx, topics, req)
		return nil
	})

	logger.InfoContext(ctx, "worker started",
		"worker_id", m.client.WorkerID(), "topics", topics, "max_tasks", m.config.MaxTasks)
	return nil
}

// Stop ends the polling loop and waits for running handlers. Handlers still
// running after the shutdown timeout, or once ctx is done, have their
// context cancelled and Stop returns ErrShutdownTimedOut.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return ErrNotStarted
	}
	m.started = false
	cancelLoop, cancelHandler, group := m.cancelLoop, m.cancelHandler, m.group
	m.mu.Unlock()

	cancelLoop()

	done := make(chan struct{})
	go func() {
		_ = group.Wait()
		close(done)
	}()

	shutdownCtx, cancel := context.WithTimeout(ctx, m.config.ShutdownTimeout)
	defer cancel()

	select {
	case <-done:
		cancelHandler()
		logger.InfoContext(ctx, "worker stopped", "worker_id", m.client.WorkerID())
		return nil
	case <-shutdownCtx.Done():
		cancelHandler()
		<-done
		return fmt.Errorf("%w after %v", ErrShutdownTimedOut, m.config.ShutdownTimeout)
	}
}

func (m *Manager) topics() []string {
	topics := make([]string, len(m.subscriptions))
	for i, s := range m.subscriptions {
		topics[i] = s.Topic
	}
	return topics
}

func (m *Manager) fetchRequest() engine.FetchAndLockRequest {
	req := engine.FetchAndLockRequest{
		UsePriority:          m.config.UsePriority,
		AsyncResponseTimeout: m.config.AsyncResponseTimeout.Milliseconds(),
		Topics:               make([]engine.TopicRequest, len(m.subscriptions)),
	}
	for i, s := range m.subscriptions {
		req.Topics[i] = s.topicRequest(m.config.LockDuration)
	}
	return req
}

func (m *Manager) run(ctx, handlerCtx context.Context, topics []string, req engine.FetchAndLockRequest) {
	bo := m.config.Backoff.newBackOff()
	ctx = logger.WithWorkerID(ctx, m.client.WorkerID())

	for ctx.Err() == nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return
		}
		slots := m.acquire(ctx)
		if slots == 0 {
			return
		}

		req.MaxTasks = slots
		start := time.Now()
		tasks, err := m.client.FetchAndLock(ctx, req)
		elapsed := time.Since(start)

		if err != nil {
			m.sem.Release(int64(slots))
			if ctx.Err() != nil {
				return
			}
			logger.WarnContext(ctx, "fetch and lock failed", "error", err, "topics", topics)
			m.emitter.FetchFailed(topics, err, elapsed)
			m.wait(ctx, bo, "fetch failed")
			continue
		}

		m.emitter.TasksFetched(topics, len(tasks), elapsed)
		if unused := slots - len(tasks); unused > 0 {
			m.sem.Release(int64(unused))
		}
		if len(tasks) == 0 {
			m.wait(ctx, bo, "no tasks")
			continue
		}
		bo.Reset()

		for _, lt := range tasks {
			m.dispatch(handlerCtx, lt)
		}
	}
}

// acquire blocks for one handler slot, then takes whatever further capacity
// is free, up to MaxTasks. It returns 0 when ctx is done.
func (m *Manager) acquire(ctx context.Context) int {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return 0
	}
	n := 1
	for n < m.config.MaxTasks && m.sem.TryAcquire(1) {
		n++
	}
	return n
}

func (m *Manager) wait(ctx context.Context, bo backoff.BackOff, reason string) {
	delay := bo.NextBackOff()
	m.emitter.Backoff(delay, reason)
	logger.DebugContext(ctx, "worker backing off", "delay", delay, "reason", reason)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// dispatch runs lt's handler in the manager's group. The slot acquired for
// lt is released when the handler returns.
func (m *Manager) dispatch(ctx context.Context, lt engine.LockedTask) {
	sub, ok := m.byTopic[lt.TopicName]
	if !ok {
		m.sem.Release(1)
		logger.WarnContext(ctx, "task for unknown topic", "task_id", lt.ID, "topic", lt.TopicName)
		return
	}

	m.group.Go(func() error {
		defer m.sem.Release(1)
		m.handle(ctx, sub, lt)
		return nil
	})
}

func (m *Manager) handle(ctx context.Context, sub Subscription, lt engine.LockedTask) {
	ctx = logger.WithWorkerID(ctx, m.client.WorkerID())
	ctx = logger.WithTaskID(ctx, lt.ID)
	ctx = logger.WithTopic(ctx, lt.TopicName)
	if lt.ProcessInstanceID != "" {
		ctx = logger.WithProcessInstanceID(ctx, lt.ProcessInstanceID)
	}

	if m.ledger != nil {
		resolved, err := statestore.IsResolved(ctx, m.ledger, lt.ID)
		if err != nil {
			logger.WarnContext(ctx, "ledger lookup failed", "error", err)
		}
		if resolved {
			logger.InfoContext(ctx, "skipping task already resolved by this worker")
			m.emitter.TaskSkipped(lt.ID, lt.TopicName)
			return
		}
	}

	ctx, span := telemetry.StartHandlerSpan(ctx, m.tracer, lt.TopicName, lt.ID, lt.ProcessInstanceID)

	t := task.NewExternalTask(lt, m.service.Registry())
	logger.TaskReceived(ctx, lt.TopicName, lt.ID, len(lt.Variables))
	for name, err := range t.VariableErrors() {
		logger.WarnContext(ctx, "variable could not be decoded", "variable", name, "error", err)
	}

	m.emitter.TaskStarted(lt.ID, lt.TopicName, lt.ProcessInstanceID)
	start := time.Now()
	panicErr := invoke(ctx, sub.Handler, t, m.service)
	m.emitter.TaskHandled(lt.ID, lt.TopicName, time.Since(start), panicErr != nil)

	telemetry.EndSpan(span, 0, "", panicErr)
}

// invoke runs h, converting a panic into an error.
func invoke(ctx context.Context, h Handler, t *task.ExternalTask, s *task.Service) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker: handler panicked: %v", r)
			logger.ErrorContext(ctx, "handler panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	h(ctx, t, s)
	return nil
}
