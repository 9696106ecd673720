package sdk

import (
	"bytes"
	"log/slog"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/TaskKit/runtime/dataformat"
	"github.com/AltairaLabs/TaskKit/runtime/logger"
	"github.com/AltairaLabs/TaskKit/runtime/variables"
)

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, ErrNoBaseURL)
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"empty worker id", WithWorkerID("")},
		{"zero max tasks", WithMaxTasks(0)},
		{"negative async timeout", WithAsyncResponseTimeout(-time.Second)},
		{"zero lock duration", WithLockDuration(0)},
		{"zero handlers", WithMaxConcurrentHandlers(0)},
		{"empty date format", WithDateFormat("")},
		{"nil converter", WithConverter(nil)},
		{"nil interceptor", WithInterceptor(nil)},
		{"empty object type", WithObjectType("", struct{}{})},
		{"oauth2 without token url", WithOAuth2("", "client", "secret")},
		{"backoff max below initial", WithBackoff(time.Second, time.Millisecond, 2)},
		{"backoff multiplier below one", WithBackoff(time.Millisecond, time.Second, 0.5)},
		{"negative rate limit", WithFetchRateLimit(-1)},
		{"redis without address", WithRedisLedger(nil, "", 0)},
		{"empty otlp endpoint", WithOTLPTracing("", "svc")},
		{"application without name", WithApplication("", "1.0.0")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(WithBaseURL("http://engine.local"), tt.opt)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to apply option")
		})
	}
}

func TestWithApplication_Version(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{"1.0.0", false},
		{"v2.3.4", false},
		{"1.0.0-rc.1+build.7", false},
		{"1.0", true},
		{"latest", true},
		{"01.0.0", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			cfg := defaultConfig()
			err := WithApplication("billing", tt.version)(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "billing/"+tt.version, cfg.userAgent)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	assert.True(t, cfg.worker.UsePriority)
	assert.Equal(t, 10, cfg.worker.MaxTasks)
	assert.Equal(t, 20*time.Second, cfg.worker.LockDuration)
	assert.Equal(t, dataformat.FormatJSON, cfg.defaultFormat)
	assert.Equal(t, variables.DefaultDateLayout, cfg.dateFormat)
}

func TestDefaultWorkerID(t *testing.T) {
	id := defaultWorkerID()
	host, err := os.Hostname()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, host))
	assert.Len(t, id, len(host)+36)
	assert.NotEqual(t, id, defaultWorkerID())
}

func TestNew_UnknownDefaultFormat(t *testing.T) {
	_, err := New(WithBaseURL("http://engine.local"), WithDefaultSerializationFormat("application/xml"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestNew_DefaultFormatFromCustomConverter(t *testing.T) {
	c, err := New(
		WithBaseURL("http://engine.local"),
		WithDefaultSerializationFormat("application/x-custom"),
		WithConverter(variables.NewObjectConverter(customFormat{})),
	)
	require.NoError(t, err)

	convs := c.Registry().Converters()
	assert.Equal(t, "application/x-custom", convs[len(convs)-1].SerializationFormat())
	assert.Equal(t, "application/x-custom", c.Registry().DefaultFormat())
}

func TestWithObjectType_DecodesIntoRegisteredType(t *testing.T) {
	c, err := New(WithBaseURL("http://engine.local"), WithObjectType("invoice", invoice{}))
	require.NoError(t, err)

	v, err := c.Registry().Decode(variables.Field{
		Type:  "Object",
		Value: `{"number":"INV-7","total":99.5}`,
		ValueInfo: map[string]string{
			variables.ValueInfoSerializationFormat: dataformat.FormatJSON,
			variables.ValueInfoObjectTypeName:      "invoice",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, invoice{Number: "INV-7", Total: 99.5}, v.Value())
}

type invoice struct {
	Number string  `json:"number"`
	Total  float64 `json:"total"`
}

// customFormat stores strings as they are.
type customFormat struct{}

func (customFormat) Name() string { return "application/x-custom" }

func (customFormat) CanMap(v any) bool {
	_, ok := v.(string)
	return ok
}

func (customFormat) TypeName(any) string { return "string" }

func (customFormat) Serialize(v any) (string, error) { return v.(string), nil }

func (customFormat) Deserialize(s, _ string) (any, error) { return s, nil }

func TestNew_WarnsOnceOnAmbiguousEncoding(t *testing.T) {
	var buf bytes.Buffer
	logger.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { logger.SetLogger(nil) })

	c, err := New(WithBaseURL("http://localhost:8080/engine-rest"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Stop(t.Context()) })

	// JSON cannot encode NaN, leaving CBOR and YAML without a default match.
	value := variables.Untyped(map[string]any{"ratio": math.NaN()})
	for range 2 {
		f, err := c.Registry().Encode(value)
		require.NoError(t, err)
		assert.Equal(t, dataformat.FormatCBOR, f.SerializationFormat())
	}

	assert.Equal(t, 1, strings.Count(buf.String(), "ambiguous variable encoding"))
	assert.Contains(t, buf.String(), "chosen_format=application/cbor")
}
