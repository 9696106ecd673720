package sdk

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/AltairaLabs/TaskKit/runtime/dataformat"
	"github.com/AltairaLabs/TaskKit/runtime/engine"
	"github.com/AltairaLabs/TaskKit/runtime/events"
	"github.com/AltairaLabs/TaskKit/runtime/logger"
	"github.com/AltairaLabs/TaskKit/runtime/statestore"
	"github.com/AltairaLabs/TaskKit/runtime/variables"
	"github.com/AltairaLabs/TaskKit/runtime/worker"
)

// config holds the configuration for a Client.
// It is populated by Option functions passed to New.
type config struct {
	// Engine connection
	baseURL      string
	workerID     string
	httpClient   *http.Client
	interceptors []engine.RequestInterceptor
	userAgent    string

	// Polling and dispatch
	worker worker.Config

	// Variable serialization
	defaultFormat string
	dateFormat    string
	converters    []variables.Converter
	types         *dataformat.Types

	// Duplicate suppression
	ledger       statestore.Ledger
	redisOptions *redis.Options
	redisPrefix  string
	ledgerTTL    time.Duration

	// Observability
	tracerProvider trace.TracerProvider
	eventBus       *events.EventBus
	otlpEndpoint   string
	serviceName    string
	metrics        bool
	metricsAddr    string
	logging        *logger.LoggingConfigSpec
}

func defaultConfig() *config {
	cfg := &config{
		worker:        *worker.DefaultConfig(),
		defaultFormat: dataformat.FormatJSON,
		dateFormat:    variables.DefaultDateLayout,
		types:         dataformat.NewTypes(),
	}
	cfg.worker.UsePriority = true
	return cfg
}

// Option configures a Client.
type Option func(*config) error

// WithBaseURL sets the engine REST root, e.g. "http://localhost:8080/engine-rest".
func WithBaseURL(url string) Option {
	return func(c *config) error {
		c.baseURL = url
		return nil
	}
}

// WithWorkerID sets the id the engine records as the lock owner.
// The default is the host name followed by a random UUID.
func WithWorkerID(id string) Option {
	return func(c *config) error {
		if id == "" {
			return fmt.Errorf("worker id cannot be empty")
		}
		c.workerID = id
		return nil
	}
}

// WithMaxTasks sets the maximum number of tasks locked per fetch.
func WithMaxTasks(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("max tasks must be positive, got %d", n)
		}
		c.worker.MaxTasks = n
		return nil
	}
}

// WithUsePriority controls whether higher-priority tasks are fetched first.
// Enabled by default.
func WithUsePriority(enabled bool) Option {
	return func(c *config) error {
		c.worker.UsePriority = enabled
		return nil
	}
}

// WithAsyncResponseTimeout enables long polling for up to d per fetch.
func WithAsyncResponseTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return fmt.Errorf("async response timeout cannot be negative")
		}
		c.worker.AsyncResponseTimeout = d
		return nil
	}
}

// WithLockDuration sets the default lock taken on fetched tasks.
func WithLockDuration(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return fmt.Errorf("lock duration must be positive, got %s", d)
		}
		c.worker.LockDuration = d
		return nil
	}
}

// WithMaxConcurrentHandlers bounds the number of handlers running at once.
// It defaults to the max tasks setting.
func WithMaxConcurrentHandlers(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("max concurrent handlers must be positive, got %d", n)
		}
		c.worker.MaxConcurrentHandlers = n
		return nil
	}
}

// WithShutdownTimeout bounds how long Stop waits for running handlers.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *config) error {
		c.worker.ShutdownTimeout = d
		return nil
	}
}

// WithDefaultSerializationFormat selects the format used for object variables
// that more than one format could encode.
//
//	client, _ := sdk.New(
//	    sdk.WithBaseURL(url),
//	    sdk.WithDefaultSerializationFormat(dataformat.FormatYAML),
//	)
func WithDefaultSerializationFormat(format string) Option {
	return func(c *config) error {
		c.defaultFormat = format
		return nil
	}
}

// WithDateFormat sets the Go time layout used for Date variables.
func WithDateFormat(layout string) Option {
	return func(c *config) error {
		if layout == "" {
			return fmt.Errorf("date format cannot be empty")
		}
		c.dateFormat = layout
		return nil
	}
}

// WithConverter registers an additional variable converter. Custom
// converters resolve after the built-in ones.
func WithConverter(conv variables.Converter) Option {
	return func(c *config) error {
		if conv == nil {
			return fmt.Errorf("converter cannot be nil")
		}
		c.converters = append(c.converters, conv)
		return nil
	}
}

// WithObjectType registers a Go type under the object type name the engine
// records, so object variables of that name decode into it.
//
//	sdk.WithObjectType("com.acme.Invoice", Invoice{})
func WithObjectType(name string, prototype any) Option {
	return func(c *config) error {
		return c.types.Register(name, prototype)
	}
}

// WithInterceptor adds a request interceptor. Interceptors run in the order
// they are added.
func WithInterceptor(i engine.RequestInterceptor) Option {
	return func(c *config) error {
		if i == nil {
			return fmt.Errorf("interceptor cannot be nil")
		}
		c.interceptors = append(c.interceptors, i)
		return nil
	}
}

// WithHeaders sets fixed headers on every engine request.
func WithHeaders(headers map[string]string) Option {
	return WithInterceptor(engine.StaticHeaders(headers))
}

// WithBasicAuth authenticates engine requests with HTTP basic credentials.
func WithBasicAuth(username, password string) Option {
	return WithInterceptor(engine.BasicAuth(username, password))
}

// WithOAuth2 authenticates engine requests with a bearer token from the
// OAuth2 client credentials grant.
func WithOAuth2(tokenURL, clientID, clientSecret string, scopes ...string) Option {
	return func(c *config) error {
		if tokenURL == "" || clientID == "" {
			return fmt.Errorf("oauth2 requires a token URL and client id")
		}
		c.interceptors = append(c.interceptors, engine.OAuth2ClientCredentials(&clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			Scopes:       scopes,
		}))
		return nil
	}
}

// WithHTTPClient replaces the instrumented HTTP client used for engine requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) error {
		c.httpClient = hc
		return nil
	}
}

// WithApplication identifies the calling application in the User-Agent
// header. version must be a semantic version.
func WithApplication(name, version string) Option {
	return func(c *config) error {
		if name == "" {
			return fmt.Errorf("application name cannot be empty")
		}
		if err := validateSemanticVersion(version); err != nil {
			return err
		}
		c.userAgent = name + "/" + version
		return nil
	}
}

// WithBackoff configures the exponential backoff applied after empty or
// failed fetches.
func WithBackoff(initial, maxInterval time.Duration, multiplier float64) Option {
	return func(c *config) error {
		if initial <= 0 || maxInterval < initial {
			return fmt.Errorf("invalid backoff intervals: initial %s, max %s", initial, maxInterval)
		}
		if multiplier < 1 {
			return fmt.Errorf("backoff multiplier must be at least 1, got %v", multiplier)
		}
		c.worker.Backoff = worker.BackoffConfig{
			InitialInterval: initial,
			MaxInterval:     maxInterval,
			Multiplier:      multiplier,
		}
		return nil
	}
}

// WithFetchRateLimit caps fetch requests per second. Zero removes the cap.
func WithFetchRateLimit(perSecond float64) Option {
	return func(c *config) error {
		if perSecond < 0 {
			return fmt.Errorf("fetch rate limit cannot be negative")
		}
		c.worker.FetchRateLimit = perSecond
		return nil
	}
}

// WithLedger sets the store that remembers resolved tasks so duplicates are
// skipped. The default is an in-memory ledger.
func WithLedger(l statestore.Ledger) Option {
	return func(c *config) error {
		c.ledger = l
		return nil
	}
}

// WithTracerProvider sets the provider for engine request and handler spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) error {
		c.tracerProvider = tp
		return nil
	}
}

// WithEventBus publishes worker events to bus. Without it the client
// creates its own bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(c *config) error {
		c.eventBus = bus
		return nil
	}
}

// WithMetrics records Prometheus metrics for fetches, handlers and engine
// requests. A non-empty addr also serves them over HTTP while the client runs.
func WithMetrics(addr string) Option {
	return func(c *config) error {
		c.metrics = true
		c.metricsAddr = addr
		return nil
	}
}

// WithRedisLedger remembers resolved tasks in Redis so that several workers,
// or a restarted one, skip the same duplicates. The client owns the
// connection and closes it on Stop.
func WithRedisLedger(opts *redis.Options, prefix string, ttl time.Duration) Option {
	return func(c *config) error {
		if opts == nil || opts.Addr == "" {
			return fmt.Errorf("redis ledger requires an address")
		}
		c.redisOptions = opts
		c.redisPrefix = prefix
		c.ledgerTTL = ttl
		return nil
	}
}

// WithOTLPTracing exports spans over OTLP/HTTP to endpoint. The client owns
// the tracer provider and flushes it on Stop. It is ignored when
// WithTracerProvider is also given.
func WithOTLPTracing(endpoint, serviceName string) Option {
	return func(c *config) error {
		if endpoint == "" {
			return fmt.Errorf("otlp endpoint cannot be empty")
		}
		c.otlpEndpoint = endpoint
		c.serviceName = serviceName
		return nil
	}
}

// WithLogging reconfigures the process-wide logger when the client is created.
func WithLogging(spec *logger.LoggingConfigSpec) Option {
	return func(c *config) error {
		c.logging = spec
		return nil
	}
}
