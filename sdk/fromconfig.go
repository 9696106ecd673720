package sdk

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/AltairaLabs/TaskKit/pkg/config"
	"github.com/AltairaLabs/TaskKit/runtime/logger"
)

// FromConfig turns a loaded manifest into client options. Subscriptions are
// not included; bind them with SubscribeConfig once the client exists.
//
//	cfg, _ := config.LoadClientConfig("worker.yaml")
//	opts, _ := sdk.FromConfig(cfg)
//	client, _ := sdk.New(opts...)
//	_ = client.SubscribeConfig(cfg.Spec.Subscriptions, handlers, nil)
func FromConfig(cfg *config.ClientConfig) ([]Option, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sdk: nil client config")
	}
	spec := cfg.Spec
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	opts := []Option{
		WithBaseURL(spec.BaseURL),
		WithMaxTasks(spec.MaxTasks),
		WithUsePriority(*spec.UsePriority),
		WithAsyncResponseTimeout(spec.AsyncResponseTimeout),
		WithLockDuration(spec.LockDuration),
		WithMaxConcurrentHandlers(spec.MaxConcurrentHandlers),
		WithShutdownTimeout(spec.ShutdownTimeout),
		WithDefaultSerializationFormat(spec.DefaultSerializationFormat),
		WithDateFormat(spec.DateFormat),
		WithBackoff(spec.Backoff.InitialInterval, spec.Backoff.MaxInterval, spec.Backoff.Multiplier),
		WithFetchRateLimit(spec.FetchRateLimit),
		WithLogging(loggingSpec(spec.Logging)),
	}
	if spec.WorkerID != "" {
		opts = append(opts, WithWorkerID(spec.WorkerID))
	}
	if len(spec.Headers) > 0 {
		opts = append(opts, WithHeaders(spec.Headers))
	}
	if auth := spec.Auth; auth != nil {
		switch {
		case auth.Basic != nil:
			opts = append(opts, WithBasicAuth(auth.Basic.Username, auth.Basic.Password))
		case auth.OAuth2 != nil:
			o := auth.OAuth2
			opts = append(opts, WithOAuth2(o.TokenURL, o.ClientID, o.ClientSecret, o.Scopes...))
		}
	}
	if spec.Ledger.Type == config.LedgerTypeRedis {
		r := spec.Ledger.Redis
		opts = append(opts, WithRedisLedger(&redis.Options{
			Addr:     r.Address,
			Password: r.Password,
			DB:       r.DB,
		}, r.Prefix, r.TTL))
	}
	if m := spec.Metrics; m != nil && m.Enabled {
		opts = append(opts, WithMetrics(m.Address))
	}
	if t := spec.Tracing; t != nil && t.Enabled && t.Endpoint != "" {
		opts = append(opts, WithOTLPTracing(t.Endpoint, t.ServiceName))
	}
	return opts, nil
}

// SubscribeConfig subscribes every configured topic. The handler for a topic
// comes from handlers, or fallback when the topic has none.
func (c *Client) SubscribeConfig(specs []config.SubscriptionSpec, handlers map[string]Handler, fallback Handler) error {
	for _, spec := range specs {
		h := handlers[spec.Topic]
		if h == nil {
			h = fallback
		}
		if h == nil {
			return fmt.Errorf("%w: %s", ErrNoTopicHandler, spec.Topic)
		}
		if err := c.Subscribe(spec.Topic, h, subscriptionOptions(spec)...); err != nil {
			return fmt.Errorf("subscribe %s: %w", spec.Topic, err)
		}
	}
	return nil
}

func subscriptionOptions(spec config.SubscriptionSpec) []SubscriptionOption {
	var opts []SubscriptionOption
	if spec.LockDuration > 0 {
		opts = append(opts, WithTopicLockDuration(spec.LockDuration))
	}
	if spec.Variables != nil {
		opts = append(opts, WithVariables(spec.Variables...))
	}
	if spec.LocalVariables {
		opts = append(opts, WithLocalVariables())
	}
	if spec.BusinessKey != "" {
		opts = append(opts, WithBusinessKey(spec.BusinessKey))
	}
	if spec.ProcessDefinitionID != "" {
		opts = append(opts, WithProcessDefinitionID(spec.ProcessDefinitionID))
	}
	if len(spec.ProcessDefinitionIDIn) > 0 {
		opts = append(opts, WithProcessDefinitionID(spec.ProcessDefinitionIDIn...))
	}
	if spec.ProcessDefinitionKey != "" {
		opts = append(opts, WithProcessDefinitionKey(spec.ProcessDefinitionKey))
	}
	if len(spec.ProcessDefinitionKeyIn) > 0 {
		opts = append(opts, WithProcessDefinitionKey(spec.ProcessDefinitionKeyIn...))
	}
	if spec.ProcessDefinitionVersionTag != "" {
		opts = append(opts, WithProcessDefinitionVersionTag(spec.ProcessDefinitionVersionTag))
	}
	if len(spec.ProcessVariables) > 0 {
		opts = append(opts, WithProcessVariables(spec.ProcessVariables))
	}
	if spec.WithoutTenantID {
		opts = append(opts, WithoutTenantID())
	}
	if len(spec.TenantIDs) > 0 {
		opts = append(opts, WithTenantIDs(spec.TenantIDs...))
	}
	if spec.IncludeExtensionProperties {
		opts = append(opts, WithExtensionProperties())
	}
	return opts
}

func loggingSpec(spec *config.LoggingConfigSpec) *logger.LoggingConfigSpec {
	if spec == nil {
		return nil
	}
	out := &logger.LoggingConfigSpec{
		DefaultLevel: spec.DefaultLevel,
		Format:       spec.Format,
		CommonFields: spec.CommonFields,
	}
	for _, m := range spec.Modules {
		out.Modules = append(out.Modules, logger.ModuleLoggingSpec{Name: m.Name, Level: m.Level})
	}
	if f := spec.File; f != nil {
		out.File = &logger.FileOutputSpec{
			Path:       f.Path,
			MaxSizeMB:  f.MaxSizeMB,
			MaxBackups: f.MaxBackups,
			MaxAgeDays: f.MaxAgeDays,
			Compress:   f.Compress,
		}
	}
	return out
}
