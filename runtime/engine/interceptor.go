package engine

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// RequestInterceptor adjusts an outbound request, typically to add
// authentication. Returning an error aborts the request, which then counts
// as a lost connection.
type RequestInterceptor func(req *http.Request) error

// BasicAuth returns an interceptor adding HTTP basic authentication.
func BasicAuth(username, password string) RequestInterceptor {
	return func(req *http.Request) error {
		req.SetBasicAuth(username, password)
		return nil
	}
}

// StaticHeaders returns an interceptor setting fixed headers.
func StaticHeaders(headers map[string]string) RequestInterceptor {
	copied := make(map[string]string, len(headers))
	for k, v := range headers {
		copied[k] = v
	}
	return func(req *http.Request) error {
		for k, v := range copied {
			req.Header.Set(k, v)
		}
		return nil
	}
}

// OAuth2ClientCredentials returns an interceptor adding a bearer token
// obtained with the client credentials grant. Tokens are cached and
// refreshed shortly before they expire.
func OAuth2ClientCredentials(cfg *clientcredentials.Config) RequestInterceptor {
	return TokenSource(cfg.TokenSource(context.Background()))
}

// TokenSource returns an interceptor adding a token from ts.
func TokenSource(ts oauth2.TokenSource) RequestInterceptor {
	ts = oauth2.ReuseTokenSource(nil, ts)
	return func(req *http.Request) error {
		tok, err := ts.Token()
		if err != nil {
			return fmt.Errorf("oauth2 token: %w", err)
		}
		tok.SetAuthHeader(req)
		return nil
	}
}
