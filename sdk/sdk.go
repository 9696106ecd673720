package sdk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/AltairaLabs/TaskKit/runtime/dataformat"
	"github.com/AltairaLabs/TaskKit/runtime/engine"
	"github.com/AltairaLabs/TaskKit/runtime/events"
	"github.com/AltairaLabs/TaskKit/runtime/logger"
	metrics "github.com/AltairaLabs/TaskKit/runtime/metrics/prometheus"
	"github.com/AltairaLabs/TaskKit/runtime/statestore"
	"github.com/AltairaLabs/TaskKit/runtime/task"
	"github.com/AltairaLabs/TaskKit/runtime/telemetry"
	"github.com/AltairaLabs/TaskKit/runtime/variables"
	"github.com/AltairaLabs/TaskKit/runtime/version"
	"github.com/AltairaLabs/TaskKit/runtime/worker"
)

// Handler runs the business logic for one task. See worker.Handler.
type Handler = worker.Handler

// Client fetches external tasks from the engine and runs the subscribed
// handlers. Create one with New, add subscriptions, then Start it.
type Client struct {
	engine   *engine.Client
	service  *task.Service
	registry *variables.Registry
	manager  *worker.Manager
	ledger   statestore.Ledger
	bus      *events.EventBus

	exporter *metrics.Exporter

	// resources owned by the client, released by Stop
	ownsBus      bool
	redis        *redis.Client
	tracer       interface{ Shutdown(context.Context) error }
	unsubscribes []func()

	mu           sync.Mutex
	stopped      bool
	stopExporter context.CancelFunc
	exporterDone chan error
	release      sync.Once
}

// New creates a client from options. WithBaseURL is required.
//
//	client, err := sdk.New(
//	    sdk.WithBaseURL("http://localhost:8080/engine-rest"),
//	    sdk.WithMaxTasks(5),
//	    sdk.WithBasicAuth("demo", "demo"),
//	)
func New(opts ...Option) (*Client, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	if cfg.baseURL == "" {
		return nil, ErrNoBaseURL
	}
	if cfg.logging != nil {
		if err := logger.Configure(cfg.logging); err != nil {
			return nil, fmt.Errorf("failed to configure logging: %w", err)
		}
	}
	if cfg.workerID == "" {
		cfg.workerID = defaultWorkerID()
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{registry: registry}

	c.bus = cfg.eventBus
	if c.bus == nil {
		c.bus = events.NewEventBus()
		c.ownsBus = true
	}
	emitter := events.NewEmitter(c.bus, cfg.workerID)

	if cfg.metrics {
		listener := metrics.NewMetricsListener()
		c.unsubscribes = append(c.unsubscribes, c.bus.SubscribeAll(listener.Listener()))
		if cfg.metricsAddr != "" {
			c.exporter = metrics.NewExporter(cfg.metricsAddr)
		}
	}

	tp, err := c.tracerProvider(cfg)
	if err != nil {
		c.releaseResources()
		return nil, err
	}

	c.ledger = c.buildLedger(cfg)

	c.engine = engine.NewClient(cfg.baseURL,
		engine.WithTransport(engine.NewHTTPTransport(cfg.baseURL, transportOptions(cfg)...)),
		engine.WithWorkerID(cfg.workerID),
		engine.WithTracerProvider(tp),
		engine.WithEmitter(emitter),
	)
	c.service = task.NewService(c.engine, registry, task.WithLedger(c.ledger))

	c.manager, err = worker.NewManager(c.engine, c.service, &cfg.worker,
		worker.WithLedger(c.ledger),
		worker.WithEmitter(emitter),
		worker.WithTracerProvider(tp),
	)
	if err != nil {
		c.releaseResources()
		return nil, err
	}

	logger.Debug("client created", "worker_id", cfg.workerID, "base_url", cfg.baseURL,
		"default_format", cfg.defaultFormat, "metrics", cfg.metrics)
	return c, nil
}

func applyOptions(opts []Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return cfg, nil
}

// defaultWorkerID joins the host name and a random UUID.
func defaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "taskkit"
	}
	return host + uuid.New().String()
}

// buildRegistry registers the built-in converters followed by custom ones,
// and checks that the default format has an object converter.
func buildRegistry(cfg *config) (*variables.Registry, error) {
	formats, err := dataformat.All(cfg.types)
	if err != nil {
		return nil, err
	}
	registry := variables.NewDefaultRegistry(cfg.defaultFormat, cfg.dateFormat, formats...)
	for _, conv := range cfg.converters {
		registry = registry.Register(conv)
	}

	for _, conv := range registry.Converters() {
		if conv.Type() == variables.TypeObject && conv.SerializationFormat() == cfg.defaultFormat {
			return registry.OnAmbiguous(warnAmbiguousOnce(cfg.defaultFormat)), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, cfg.defaultFormat)
}

// warnAmbiguousOnce logs the first value whose converter was chosen by
// registration order because no candidate used the default format.
func warnAmbiguousOnce(defaultFormat string) variables.AmbiguityHandler {
	var once sync.Once
	return func(v variables.TypedValue, chosen variables.Converter) {
		once.Do(func() {
			logger.Warn("ambiguous variable encoding, using first registered converter",
				"default_format", defaultFormat,
				"chosen_format", chosen.SerializationFormat(),
				"value_type", fmt.Sprintf("%T", v.Value()))
		})
	}
}

func transportOptions(cfg *config) []engine.TransportOption {
	opts := []engine.TransportOption{engine.WithInterceptors(cfg.interceptors...)}
	if cfg.httpClient != nil {
		opts = append(opts, engine.WithHTTPClient(cfg.httpClient))
	}
	if cfg.userAgent != "" {
		opts = append(opts, engine.WithUserAgent(cfg.userAgent+" "+version.UserAgent()))
	}
	return opts
}

func (c *Client) tracerProvider(cfg *config) (trace.TracerProvider, error) {
	if cfg.tracerProvider != nil || cfg.otlpEndpoint == "" {
		return cfg.tracerProvider, nil
	}
	tp, err := telemetry.NewTracerProvider(context.Background(), cfg.otlpEndpoint, cfg.serviceName)
	if err != nil {
		return nil, err
	}
	telemetry.SetupPropagation()
	c.tracer = tp
	return tp, nil
}

func (c *Client) buildLedger(cfg *config) statestore.Ledger {
	if cfg.ledger != nil {
		return cfg.ledger
	}
	if cfg.redisOptions != nil {
		c.redis = redis.NewClient(cfg.redisOptions)
		var opts []statestore.RedisOption
		if cfg.redisPrefix != "" {
			opts = append(opts, statestore.WithPrefix(cfg.redisPrefix))
		}
		if cfg.ledgerTTL > 0 {
			opts = append(opts, statestore.WithTTL(cfg.ledgerTTL))
		}
		return statestore.NewRedisLedger(c.redis, opts...)
	}
	var opts []statestore.MemoryOption
	if cfg.ledgerTTL > 0 {
		opts = append(opts, statestore.WithMemoryTTL(cfg.ledgerTTL))
	}
	return statestore.NewMemoryLedger(opts...)
}

// Subscribe registers handler for topic. It fails once the client has started.
//
//	client.Subscribe("invoice", func(ctx context.Context, t *task.ExternalTask, s *task.Service) {
//	    _ = s.Complete(ctx, t, map[string]any{"approved": true}, nil)
//	}, sdk.WithVariables("amount"), sdk.WithTopicLockDuration(time.Minute))
func (c *Client) Subscribe(topic string, handler Handler, opts ...SubscriptionOption) error {
	sub := worker.Subscription{Topic: topic, Handler: handler}
	for _, opt := range opts {
		opt(&sub)
	}
	if err := c.manager.Subscribe(sub); err != nil {
		if errors.Is(err, worker.ErrAlreadyStarted) {
			return ErrClientStarted
		}
		return err
	}
	return nil
}

// Start checks the ledger connection, launches the polling loop, and serves
// metrics if an address is configured. It returns immediately.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return ErrClientStopped
	}

	if p, ok := c.ledger.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("sdk: ledger unavailable: %w", err)
		}
	}

	if err := c.manager.Start(ctx); err != nil {
		return err
	}
	c.startExporter()
	return nil
}

// Stop ends polling, waits for running handlers, and releases the metrics
// endpoint, tracer provider, ledger connection and event bus. A stopped client
// cannot be started again.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()

	err := c.manager.Stop(ctx)
	c.stopExporterAndWait()
	c.releaseResources()
	if errors.Is(err, worker.ErrNotStarted) {
		return nil
	}
	return err
}

func (c *Client) startExporter() {
	if c.exporter == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	c.mu.Lock()
	c.stopExporter, c.exporterDone = cancel, done
	c.mu.Unlock()
	go func() {
		done <- c.exporter.Run(ctx)
	}()
}

func (c *Client) stopExporterAndWait() {
	c.mu.Lock()
	cancel, done := c.stopExporter, c.exporterDone
	c.stopExporter, c.exporterDone = nil, nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if err := <-done; err != nil {
		logger.Warn("metrics endpoint stopped with error", "addr", c.exporter.Addr(), "error", err)
	}
}

func (c *Client) releaseResources() {
	c.release.Do(func() {
		for _, unsubscribe := range c.unsubscribes {
			unsubscribe()
		}
		if c.tracer != nil {
			if err := c.tracer.Shutdown(context.Background()); err != nil {
				logger.Warn("tracer provider shutdown failed", "error", err)
			}
		}
		if c.redis != nil {
			if err := c.redis.Close(); err != nil {
				logger.Warn("redis ledger close failed", "error", err)
			}
		}
		if c.ownsBus {
			c.bus.Close()
		}
	})
}

// Running reports whether the polling loop is active.
func (c *Client) Running() bool { return c.manager.Running() }

// WorkerID returns the id the engine records as lock owner.
func (c *Client) WorkerID() string { return c.engine.WorkerID() }

// Registry returns the variable converter registry.
func (c *Client) Registry() *variables.Registry { return c.registry }

// Service returns the service handlers use to report task outcomes.
func (c *Client) Service() *task.Service { return c.service }

// Engine returns the low-level engine REST client.
func (c *Client) Engine() *engine.Client { return c.engine }

// Ledger returns the ledger of resolved tasks.
func (c *Client) Ledger() statestore.Ledger { return c.ledger }

// EventBus returns the bus worker events are published on.
func (c *Client) EventBus() *events.EventBus { return c.bus }

// MetricsExporter returns the Prometheus exporter, or nil when metrics are
// not served.
func (c *Client) MetricsExporter() *metrics.Exporter { return c.exporter }
