package config

import (
	"net/url"
	"strconv"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// KindExternalTaskClient is the manifest kind describing one worker process.
const KindExternalTaskClient = "ExternalTaskClient"

// Ledger backends.
const (
	LedgerTypeMemory = "memory"
	LedgerTypeRedis  = "redis"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultMaxTasks               = 10
	DefaultLockDuration           = 20 * time.Second
	DefaultShutdownTimeout        = 10 * time.Second
	DefaultSerializationFormat    = "application/json"
	DefaultDateFormat             = "2006-01-02T15:04:05.000-0700"
	DefaultBackoffInitialInterval = 500 * time.Millisecond
	DefaultBackoffMaxInterval     = 60 * time.Second
	DefaultBackoffMultiplier      = 2.0
	DefaultLedgerTTL              = 24 * time.Hour
	DefaultRedisPrefix            = "taskkit"
	DefaultMetricsAddress         = ":9090"
	DefaultTracingServiceName     = "taskworker"
)

// The engine caps long polling at 30 minutes.
const maxAsyncResponseTimeout = 30 * time.Minute

// ClientConfig is the K8s-style manifest for an external task client.
type ClientConfig struct {
	APIVersion string            `yaml:"apiVersion"`
	Kind       string            `yaml:"kind"`
	Metadata   metav1.ObjectMeta `yaml:"metadata,omitempty"`
	Spec       ClientSpec        `yaml:"spec"`
}

// ClientSpec holds the connection, polling, and subscription settings.
type ClientSpec struct {
	BaseURL  string `yaml:"baseUrl"`
	WorkerID string `yaml:"workerId,omitempty"`

	MaxTasks              int           `yaml:"maxTasks,omitempty"`
	UsePriority           *bool         `yaml:"usePriority,omitempty"`
	AsyncResponseTimeout  time.Duration `yaml:"asyncResponseTimeout,omitempty"`
	LockDuration          time.Duration `yaml:"lockDuration,omitempty"`
	MaxConcurrentHandlers int           `yaml:"maxConcurrentHandlers,omitempty"`
	ShutdownTimeout       time.Duration `yaml:"shutdownTimeout,omitempty"`

	// DefaultSerializationFormat names the data format used for object
	// variables written without an explicit format.
	DefaultSerializationFormat string `yaml:"defaultSerializationFormat,omitempty"`
	// DateFormat is a Go time layout for Date variables.
	DateFormat string `yaml:"dateFormat,omitempty"`

	Backoff *BackoffSpec `yaml:"backoff,omitempty"`
	// FetchRateLimit caps fetch requests per second; 0 means unlimited.
	FetchRateLimit float64 `yaml:"fetchRateLimit,omitempty"`

	Headers map[string]string  `yaml:"headers,omitempty"`
	Auth    *AuthSpec          `yaml:"auth,omitempty"`
	Ledger  *LedgerSpec        `yaml:"ledger,omitempty"`
	Logging *LoggingConfigSpec `yaml:"logging,omitempty"`
	Metrics *MetricsSpec       `yaml:"metrics,omitempty"`
	Tracing *TracingSpec       `yaml:"tracing,omitempty"`

	Subscriptions []SubscriptionSpec `yaml:"subscriptions,omitempty"`
}

// BackoffSpec configures the exponential backoff after empty or failed fetches.
type BackoffSpec struct {
	InitialInterval time.Duration `yaml:"initialInterval,omitempty"`
	MaxInterval     time.Duration `yaml:"maxInterval,omitempty"`
	Multiplier      float64       `yaml:"multiplier,omitempty"`
}

// AuthSpec selects how requests to the engine are authenticated.
type AuthSpec struct {
	Basic  *BasicAuthSpec `yaml:"basic,omitempty"`
	OAuth2 *OAuth2Spec    `yaml:"oauth2,omitempty"`
}

// BasicAuthSpec holds HTTP basic credentials.
type BasicAuthSpec struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// OAuth2Spec configures the client credentials grant.
type OAuth2Spec struct {
	TokenURL     string   `yaml:"tokenUrl"`
	ClientID     string   `yaml:"clientId"`
	ClientSecret string   `yaml:"clientSecret"`
	Scopes       []string `yaml:"scopes,omitempty"`
}

// LedgerSpec selects where resolved tasks are remembered.
type LedgerSpec struct {
	Type  string        `yaml:"type,omitempty"`
	TTL   time.Duration `yaml:"ttl,omitempty"`
	Redis *RedisSpec    `yaml:"redis,omitempty"`
}

// RedisSpec configures the Redis ledger.
type RedisSpec struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password,omitempty"`
	DB       int           `yaml:"db,omitempty"`
	Prefix   string        `yaml:"prefix,omitempty"`
	TTL      time.Duration `yaml:"ttl,omitempty"`
}

// MetricsSpec enables the Prometheus exporter.
type MetricsSpec struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address,omitempty"`
}

// TracingSpec enables OTLP trace export.
type TracingSpec struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	ServiceName string `yaml:"serviceName,omitempty"`
}

// SubscriptionSpec describes one topic subscription and its fetch filters.
type SubscriptionSpec struct {
	Topic                       string         `yaml:"topic"`
	LockDuration                time.Duration  `yaml:"lockDuration,omitempty"`
	Variables                   []string       `yaml:"variables,omitempty"`
	LocalVariables              bool           `yaml:"localVariables,omitempty"`
	BusinessKey                 string         `yaml:"businessKey,omitempty"`
	ProcessDefinitionID         string         `yaml:"processDefinitionId,omitempty"`
	ProcessDefinitionIDIn       []string       `yaml:"processDefinitionIdIn,omitempty"`
	ProcessDefinitionKey        string         `yaml:"processDefinitionKey,omitempty"`
	ProcessDefinitionKeyIn      []string       `yaml:"processDefinitionKeyIn,omitempty"`
	ProcessDefinitionVersionTag string         `yaml:"processDefinitionVersionTag,omitempty"`
	ProcessVariables            map[string]any `yaml:"processVariables,omitempty"`
	WithoutTenantID             bool           `yaml:"withoutTenantId,omitempty"`
	TenantIDs                   []string       `yaml:"tenantIds,omitempty"`
	IncludeExtensionProperties  bool           `yaml:"includeExtensionProperties,omitempty"`
}

// ApplyDefaults fills unset fields with their default values.
func (c *ClientConfig) ApplyDefaults() {
	if c.APIVersion == "" {
		c.APIVersion = APIVersion
	}
	if c.Kind == "" {
		c.Kind = KindExternalTaskClient
	}
	c.Spec.ApplyDefaults()
}

// ApplyDefaults fills unset fields with their default values.
func (s *ClientSpec) ApplyDefaults() {
	if s.MaxTasks == 0 {
		s.MaxTasks = DefaultMaxTasks
	}
	if s.UsePriority == nil {
		usePriority := true
		s.UsePriority = &usePriority
	}
	if s.LockDuration == 0 {
		s.LockDuration = DefaultLockDuration
	}
	if s.MaxConcurrentHandlers == 0 {
		s.MaxConcurrentHandlers = s.MaxTasks
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.DefaultSerializationFormat == "" {
		s.DefaultSerializationFormat = DefaultSerializationFormat
	}
	if s.DateFormat == "" {
		s.DateFormat = DefaultDateFormat
	}

	if s.Backoff == nil {
		s.Backoff = &BackoffSpec{}
	}
	if s.Backoff.InitialInterval == 0 {
		s.Backoff.InitialInterval = DefaultBackoffInitialInterval
	}
	if s.Backoff.MaxInterval == 0 {
		s.Backoff.MaxInterval = DefaultBackoffMaxInterval
	}
	if s.Backoff.Multiplier == 0 {
		s.Backoff.Multiplier = DefaultBackoffMultiplier
	}

	if s.Ledger == nil {
		s.Ledger = &LedgerSpec{}
	}
	if s.Ledger.Type == "" {
		s.Ledger.Type = LedgerTypeMemory
	}
	if s.Ledger.TTL == 0 {
		s.Ledger.TTL = DefaultLedgerTTL
	}
	if s.Ledger.Redis != nil {
		if s.Ledger.Redis.Prefix == "" {
			s.Ledger.Redis.Prefix = DefaultRedisPrefix
		}
		if s.Ledger.Redis.TTL == 0 {
			s.Ledger.Redis.TTL = s.Ledger.TTL
		}
	}

	if s.Logging == nil {
		logging := DefaultLoggingConfig()
		s.Logging = &logging
	}
	if s.Metrics != nil && s.Metrics.Enabled && s.Metrics.Address == "" {
		s.Metrics.Address = DefaultMetricsAddress
	}
	if s.Tracing != nil && s.Tracing.Enabled && s.Tracing.ServiceName == "" {
		s.Tracing.ServiceName = DefaultTracingServiceName
	}
}

// Validate runs the semantic checks the schema cannot express.
func (c *ClientConfig) Validate() error {
	if c.APIVersion != APIVersion {
		return &ValidationError{Field: "apiVersion", Message: "unsupported API version", Value: c.APIVersion}
	}
	if c.Kind != KindExternalTaskClient {
		return &ValidationError{Field: "kind", Message: "must be " + KindExternalTaskClient, Value: c.Kind}
	}
	return c.Spec.Validate()
}

// Validate runs the semantic checks the schema cannot express.
func (s *ClientSpec) Validate() error {
	if err := validateURL("baseUrl", s.BaseURL); err != nil {
		return err
	}
	if s.MaxTasks < 0 {
		return &ValidationError{Field: "maxTasks", Message: "must not be negative", Value: strconv.Itoa(s.MaxTasks)}
	}
	if s.MaxConcurrentHandlers < 0 {
		return &ValidationError{
			Field:   "maxConcurrentHandlers",
			Message: "must not be negative",
			Value:   strconv.Itoa(s.MaxConcurrentHandlers),
		}
	}
	if s.AsyncResponseTimeout < 0 || s.AsyncResponseTimeout > maxAsyncResponseTimeout {
		return &ValidationError{
			Field:   "asyncResponseTimeout",
			Message: "must be between 0s and 30m",
			Value:   s.AsyncResponseTimeout.String(),
		}
	}
	if s.LockDuration < 0 {
		return &ValidationError{Field: "lockDuration", Message: "must not be negative", Value: s.LockDuration.String()}
	}
	if s.FetchRateLimit < 0 {
		return &ValidationError{
			Field:   "fetchRateLimit",
			Message: "must not be negative",
			Value:   strconv.FormatFloat(s.FetchRateLimit, 'f', -1, 64),
		}
	}
	if s.Backoff != nil {
		if err := s.Backoff.validate(); err != nil {
			return err
		}
	}
	if s.Auth != nil {
		if err := s.Auth.validate(); err != nil {
			return err
		}
	}
	if s.Ledger != nil {
		if err := s.Ledger.validate(); err != nil {
			return err
		}
	}
	if s.Logging != nil {
		if err := s.Logging.Validate(); err != nil {
			return err
		}
	}
	if s.Tracing != nil && s.Tracing.Enabled && s.Tracing.Endpoint != "" {
		if err := validateURL("tracing.endpoint", s.Tracing.Endpoint); err != nil {
			return err
		}
	}
	return validateSubscriptions(s.Subscriptions)
}

func (b *BackoffSpec) validate() error {
	if b.InitialInterval < 0 || b.MaxInterval < 0 {
		return &ValidationError{Field: "backoff", Message: "intervals must not be negative"}
	}
	if b.MaxInterval > 0 && b.InitialInterval > b.MaxInterval {
		return &ValidationError{
			Field:   "backoff.initialInterval",
			Message: "must not exceed maxInterval",
			Value:   b.InitialInterval.String(),
		}
	}
	if b.Multiplier != 0 && b.Multiplier < 1 {
		return &ValidationError{
			Field:   "backoff.multiplier",
			Message: "must be at least 1",
			Value:   strconv.FormatFloat(b.Multiplier, 'f', -1, 64),
		}
	}
	return nil
}

func (a *AuthSpec) validate() error {
	if a.Basic != nil && a.OAuth2 != nil {
		return &ValidationError{Field: "auth", Message: "basic and oauth2 are mutually exclusive"}
	}
	if a.Basic != nil && a.Basic.Username == "" {
		return &ValidationError{Field: "auth.basic.username", Message: "username is required"}
	}
	if a.OAuth2 != nil {
		if err := validateURL("auth.oauth2.tokenUrl", a.OAuth2.TokenURL); err != nil {
			return err
		}
		if a.OAuth2.ClientID == "" {
			return &ValidationError{Field: "auth.oauth2.clientId", Message: "client id is required"}
		}
	}
	return nil
}

func (l *LedgerSpec) validate() error {
	switch l.Type {
	case "", LedgerTypeMemory:
		return nil
	case LedgerTypeRedis:
		if l.Redis == nil || l.Redis.Address == "" {
			return &ValidationError{Field: "ledger.redis.address", Message: "address is required for the redis ledger"}
		}
		if l.Redis.DB < 0 {
			return &ValidationError{Field: "ledger.redis.db", Message: "must not be negative", Value: strconv.Itoa(l.Redis.DB)}
		}
		return nil
	default:
		return &ValidationError{Field: "ledger.type", Message: "must be one of: memory, redis", Value: l.Type}
	}
}

func validateSubscriptions(subs []SubscriptionSpec) error {
	seen := make(map[string]struct{}, len(subs))
	for i, sub := range subs {
		field := "subscriptions[" + strconv.Itoa(i) + "]"
		if sub.Topic == "" {
			return &ValidationError{Field: field + ".topic", Message: "topic is required"}
		}
		if _, dup := seen[sub.Topic]; dup {
			return &ValidationError{Field: field + ".topic", Message: "topic is subscribed more than once", Value: sub.Topic}
		}
		seen[sub.Topic] = struct{}{}
		if sub.LockDuration < 0 {
			return &ValidationError{Field: field + ".lockDuration", Message: "must not be negative", Value: sub.LockDuration.String()}
		}
	}
	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{Field: field, Message: "must be an absolute URL", Value: raw}
	}
	return nil
}
