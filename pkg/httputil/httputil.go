// Package httputil provides shared HTTP client construction utilities for
// talking to the engine. It centralizes timeout defaults and client creation
// so the worker, the SDK and the CLI use consistent configuration.
package httputil

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Standard timeout defaults used across the project.
const (
	// DefaultRequestTimeout bounds a single engine REST call such as
	// complete or unlock.
	DefaultRequestTimeout = 30 * time.Second

	// LongPollGrace is added on top of a fetch-and-lock request's async
	// response timeout, since the engine holds the request open for up to
	// that long before answering.
	LongPollGrace = 10 * time.Second
)

// NewHTTPClient returns an *http.Client configured with the given timeout.
// Pass DefaultRequestTimeout, a custom duration, or 0 for no client timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// NewInstrumentedClient returns a client whose transport records an
// OpenTelemetry client span per request. A nil base uses
// http.DefaultTransport. The client has no overall timeout; callers bound
// each request with a context deadline (see RequestTimeout) so long-polling
// fetches are not cut short.
func NewInstrumentedClient(base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{Transport: otelhttp.NewTransport(base)}
}

// RequestTimeout returns the deadline to apply to a request the engine may
// hold open for asyncResponseTimeout.
func RequestTimeout(asyncResponseTimeout time.Duration) time.Duration {
	if asyncResponseTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return asyncResponseTimeout + LongPollGrace
}
