package sdk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/TaskKit/pkg/config"
	"github.com/AltairaLabs/TaskKit/runtime/task"
	"github.com/AltairaLabs/TaskKit/runtime/worker"
)

const manifest = `apiVersion: taskkit.altairalabs.ai/v1alpha1
kind: ExternalTaskClient
metadata:
  name: billing
spec:
  baseUrl: http://engine.local/engine-rest
  workerId: billing-1
  maxTasks: 4
  usePriority: false
  lockDuration: 45s
  defaultSerializationFormat: application/x-yaml
  headers:
    X-Tenant: acme
  auth:
    basic: {username: demo, password: demo}
  logging:
    defaultLevel: warn
    format: json
  subscriptions:
    - topic: invoice
      lockDuration: 2m
      variables: [amount]
      processDefinitionKeyIn: [billing, refunds]
      tenantIds: [acme]
    - topic: archive
      localVariables: true
`

func TestFromConfig(t *testing.T) {
	cfg, err := config.ParseClientConfig([]byte(manifest))
	require.NoError(t, err)

	opts, err := FromConfig(cfg)
	require.NoError(t, err)

	applied, err := applyOptions(opts)
	require.NoError(t, err)
	assert.Equal(t, "http://engine.local/engine-rest", applied.baseURL)
	assert.Equal(t, "billing-1", applied.workerID)
	assert.Equal(t, 4, applied.worker.MaxTasks)
	assert.Equal(t, 4, applied.worker.MaxConcurrentHandlers)
	assert.False(t, applied.worker.UsePriority)
	assert.Equal(t, 45*time.Second, applied.worker.LockDuration)
	assert.Equal(t, "application/x-yaml", applied.defaultFormat)
	assert.Len(t, applied.interceptors, 2)
	require.NotNil(t, applied.logging)
	assert.Equal(t, "warn", applied.logging.DefaultLevel)
	assert.Nil(t, applied.redisOptions)
	assert.False(t, applied.metrics)

	c, err := New(opts...)
	require.NoError(t, err)
	require.NoError(t, c.SubscribeConfig(cfg.Spec.Subscriptions, nil,
		func(context.Context, *task.ExternalTask, *task.Service) {}))
	assert.Equal(t, "application/x-yaml", c.Registry().DefaultFormat())
	require.NoError(t, c.Stop(context.Background()))
}

func TestFromConfig_RedisMetricsTracing(t *testing.T) {
	cfg := &config.ClientConfig{Spec: config.ClientSpec{
		BaseURL: "http://engine.local",
		Ledger: &config.LedgerSpec{
			Type:  config.LedgerTypeRedis,
			Redis: &config.RedisSpec{Address: "localhost:6379", DB: 3, Prefix: "w"},
		},
		Metrics: &config.MetricsSpec{Enabled: true},
		Tracing: &config.TracingSpec{Enabled: true, Endpoint: "http://otel:4318"},
		Auth: &config.AuthSpec{OAuth2: &config.OAuth2Spec{
			TokenURL: "http://auth.local/token", ClientID: "worker", Scopes: []string{"engine"},
		}},
	}}

	opts, err := FromConfig(cfg)
	require.NoError(t, err)
	applied, err := applyOptions(opts)
	require.NoError(t, err)

	require.NotNil(t, applied.redisOptions)
	assert.Equal(t, "localhost:6379", applied.redisOptions.Addr)
	assert.Equal(t, 3, applied.redisOptions.DB)
	assert.Equal(t, "w", applied.redisPrefix)
	assert.Equal(t, config.DefaultLedgerTTL, applied.ledgerTTL)
	assert.True(t, applied.metrics)
	assert.Equal(t, config.DefaultMetricsAddress, applied.metricsAddr)
	assert.Equal(t, "http://otel:4318", applied.otlpEndpoint)
	assert.Equal(t, config.DefaultTracingServiceName, applied.serviceName)
	assert.Len(t, applied.interceptors, 1)
}

func TestFromConfig_Invalid(t *testing.T) {
	_, err := FromConfig(nil)
	assert.Error(t, err)

	_, err = FromConfig(&config.ClientConfig{Spec: config.ClientSpec{BaseURL: "not a url"}})
	var ve *config.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestSubscriptionOptions(t *testing.T) {
	spec := config.SubscriptionSpec{
		Topic:                       "invoice",
		LockDuration:                time.Minute,
		Variables:                   []string{"amount", "customer"},
		LocalVariables:              true,
		BusinessKey:                 "order-1",
		ProcessDefinitionID:         "billing:3:abc",
		ProcessDefinitionKeyIn:      []string{"billing", "refunds"},
		ProcessDefinitionVersionTag: "v3",
		ProcessVariables:            map[string]any{"region": "eu"},
		TenantIDs:                   []string{"acme"},
		IncludeExtensionProperties:  true,
	}

	var sub worker.Subscription
	for _, opt := range subscriptionOptions(spec) {
		opt(&sub)
	}

	assert.Equal(t, time.Minute, sub.LockDuration)
	assert.Equal(t, []string{"amount", "customer"}, sub.Variables)
	assert.True(t, sub.LocalVariables)
	assert.Equal(t, "order-1", sub.BusinessKey)
	assert.Equal(t, "billing:3:abc", sub.ProcessDefinitionID)
	assert.Empty(t, sub.ProcessDefinitionKey)
	assert.Equal(t, []string{"billing", "refunds"}, sub.ProcessDefinitionKeyIn)
	assert.Equal(t, "v3", sub.ProcessDefinitionVersionTag)
	assert.Equal(t, map[string]any{"region": "eu"}, sub.ProcessVariables)
	assert.Equal(t, []string{"acme"}, sub.TenantIDIn)
	assert.False(t, sub.WithoutTenantID)
	assert.True(t, sub.IncludeExtensionProperties)
}

func TestSubscribeConfig_Handlers(t *testing.T) {
	c, err := New(WithBaseURL("http://engine.local"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	specs := []config.SubscriptionSpec{{Topic: "invoice"}, {Topic: "archive"}}
	handlers := map[string]Handler{
		"invoice": func(context.Context, *task.ExternalTask, *task.Service) {},
	}
	err = c.SubscribeConfig(specs, handlers, nil)
	assert.ErrorIs(t, err, ErrNoTopicHandler)
	assert.Contains(t, err.Error(), "archive")
}

func TestLoggingSpec(t *testing.T) {
	assert.Nil(t, loggingSpec(nil))

	out := loggingSpec(&config.LoggingConfigSpec{
		DefaultLevel: "debug",
		Format:       "json",
		CommonFields: map[string]string{"env": "test"},
		Modules:      []config.ModuleLoggingConfig{{Name: "runtime.worker", Level: "warn"}},
		File:         &config.FileOutputConfig{Path: "/tmp/w.log", MaxSizeMB: 5, Compress: true},
	})
	require.NotNil(t, out)
	assert.Equal(t, "debug", out.DefaultLevel)
	assert.Equal(t, map[string]string{"env": "test"}, out.CommonFields)
	require.Len(t, out.Modules, 1)
	assert.Equal(t, "runtime.worker", out.Modules[0].Name)
	require.NotNil(t, out.File)
	assert.Equal(t, 5, out.File.MaxSizeMB)
	assert.True(t, out.File.Compress)
}
