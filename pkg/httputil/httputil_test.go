package httputil_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/TaskKit/pkg/httputil"
)

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		timeout time.Duration
	}{
		{"request timeout", httputil.DefaultRequestTimeout},
		{"custom timeout", 5 * time.Second},
		{"zero timeout", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := httputil.NewHTTPClient(tt.timeout)
			require.NotNil(t, client)
			assert.Equal(t, tt.timeout, client.Timeout)
		})
	}
}

func TestNewInstrumentedClient(t *testing.T) {
	t.Parallel()

	client := httputil.NewInstrumentedClient(nil)
	require.NotNil(t, client)
	assert.Zero(t, client.Timeout)
	assert.NotNil(t, client.Transport)
	assert.NotEqual(t, http.DefaultTransport, client.Transport)
}

func TestRequestTimeout(t *testing.T) {
	t.Parallel()

	assert.Equal(t, httputil.DefaultRequestTimeout, httputil.RequestTimeout(0))
	assert.Equal(t, httputil.DefaultRequestTimeout, httputil.RequestTimeout(-time.Second))
	assert.Equal(t, 40*time.Second, httputil.RequestTimeout(30*time.Second))
}
