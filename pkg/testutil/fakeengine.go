package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// RecordedRequest is one request received by a FakeEngine.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// DecodeJSON unmarshals the request body into v.
func (r RecordedRequest) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Route answers one request. The request body has already been recorded.
type Route func(w http.ResponseWriter, r *http.Request, body []byte)

// FakeEngine is an httptest server standing in for the engine REST API.
// Unrouted requests get 404 with an engine-style error body.
type FakeEngine struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]Route
	requests []RecordedRequest
}

// NewFakeEngine starts a fake engine that is closed when the test ends.
func NewFakeEngine(t *testing.T) *FakeEngine {
	t.Helper()
	f := &FakeEngine{routes: make(map[string]Route)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// Handle installs a route for method and path, replacing any existing one.
func (f *FakeEngine) Handle(method, path string, route Route) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = route
}

// Respond installs a route answering with a fixed status and body. A
// non-nil body is JSON encoded unless it is a string or []byte.
func (f *FakeEngine) Respond(method, path string, status int, body any) {
	var payload []byte
	switch b := body.(type) {
	case nil:
	case []byte:
		payload = b
	case string:
		payload = []byte(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			panic("testutil: fake engine body: " + err.Error())
		}
		payload = data
	}
	f.Handle(method, path, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		WriteJSON(w, status, payload)
	})
}

// Requests returns the requests received for path, or all requests when
// path is empty.
func (f *FakeEngine) Requests(path string) []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []RecordedRequest
	for _, r := range f.requests {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (f *FakeEngine) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	route, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound,
			[]byte(`{"type":"RestException","message":"no route for `+r.Method+` `+r.URL.Path+`"}`))
		return
	}
	route(w, r, body)
}

// WriteJSON writes status and, when payload is non-empty, a JSON body.
func WriteJSON(w http.ResponseWriter, status int, payload []byte) {
	if len(payload) > 0 {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	if len(payload) > 0 {
		_, _ = w.Write(payload)
	}
}
