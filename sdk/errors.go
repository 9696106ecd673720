package sdk

import "errors"

// Sentinel errors for common failure cases.
var (
	// ErrNoBaseURL is returned by New when no engine REST root is configured.
	ErrNoBaseURL = errors.New("sdk: base URL is required")

	// ErrUnknownFormat is returned by New when the default serialization
	// format has no converter.
	ErrUnknownFormat = errors.New("sdk: unknown serialization format")

	// ErrNoTopicHandler is returned by FromConfig when a configured
	// subscription has no handler.
	ErrNoTopicHandler = errors.New("sdk: no handler for configured topic")

	// ErrClientStarted is returned by Subscribe after Start.
	ErrClientStarted = errors.New("sdk: client already started")

	// ErrClientStopped is returned by Start once the client has been stopped.
	ErrClientStopped = errors.New("sdk: client stopped")
)
