package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/AltairaLabs/TaskKit/pkg/httputil"
	"github.com/AltairaLabs/TaskKit/runtime/logger"
	"github.com/AltairaLabs/TaskKit/runtime/version"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 32 << 20

// Transport sends one request to the engine. A non-nil error means no
// response was received; any response, whatever its status, is returned
// with a nil error.
type Transport interface {
	Send(ctx context.Context, method, path string, body []byte) (*Response, error)
}

// TransportOption configures an [HTTPTransport].
type TransportOption func(*HTTPTransport)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) TransportOption {
	return func(t *HTTPTransport) { t.httpClient = hc }
}

// WithInterceptors appends request interceptors, run in order before each
// request is sent.
func WithInterceptors(interceptors ...RequestInterceptor) TransportOption {
	return func(t *HTTPTransport) { t.interceptors = append(t.interceptors, interceptors...) }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) TransportOption {
	return func(t *HTTPTransport) { t.userAgent = ua }
}

// HTTPTransport is a Transport over the engine's REST API.
type HTTPTransport struct {
	baseURL      string
	httpClient   *http.Client
	interceptors []RequestInterceptor
	userAgent    string
}

// NewHTTPTransport creates a transport targeting baseURL, e.g.
// "http://localhost:8080/engine-rest". The default HTTP client is
// instrumented with OpenTelemetry and has no overall timeout.
func NewHTTPTransport(baseURL string, opts ...TransportOption) *HTTPTransport {
	t := &HTTPTransport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httputil.NewInstrumentedClient(nil),
		userAgent:  version.UserAgent(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// BaseURL returns the engine REST root.
func (t *HTTPTransport) BaseURL() string { return t.baseURL }

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, method, path string, body []byte) (*Response, error) {
	url := t.baseURL + path

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("engine: %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	for _, intercept := range t.interceptors {
		if err := intercept(req); err != nil {
			return nil, fmt.Errorf("engine: %s %s: interceptor: %w", method, path, err)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	logger.EngineRequest(ctx, method, url, flattenHeaders(req.Header), body)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		logger.EngineResponse(ctx, method, url, 0, nil, err)
		return nil, fmt.Errorf("engine: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		logger.EngineResponse(ctx, method, url, resp.StatusCode, nil, err)
		return nil, fmt.Errorf("engine: %s %s: read body: %w", method, path, err)
	}
	logger.EngineResponse(ctx, method, url, resp.StatusCode, data, nil)

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}
