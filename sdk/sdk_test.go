package sdk

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/TaskKit/pkg/testutil"
	"github.com/AltairaLabs/TaskKit/runtime/dataformat"
	"github.com/AltairaLabs/TaskKit/runtime/engine"
	"github.com/AltairaLabs/TaskKit/runtime/events"
	"github.com/AltairaLabs/TaskKit/runtime/statestore"
	"github.com/AltairaLabs/TaskKit/runtime/task"
	"github.com/AltairaLabs/TaskKit/runtime/variables"
)

const fetchPath = "/external-task/fetchAndLock"

// serveOnce answers the first fetch with tasks and every later one with [].
func serveOnce(fake *testutil.FakeEngine, tasks ...engine.LockedTask) {
	var once sync.Once
	fake.Handle(http.MethodPost, fetchPath, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		batch := []engine.LockedTask{}
		once.Do(func() { batch = tasks })
		data, _ := json.Marshal(batch)
		testutil.WriteJSON(w, http.StatusOK, data)
	})
}

func invoiceTask(id string) engine.LockedTask {
	return engine.LockedTask{
		ID:                id,
		TopicName:         "invoice",
		ProcessInstanceID: "pi-" + id,
		Variables: map[string]variables.Field{
			"invoice": {
				Type:  "Object",
				Value: `{"number":"INV-1","total":12.5}`,
				ValueInfo: map[string]string{
					variables.ValueInfoSerializationFormat: dataformat.FormatJSON,
					variables.ValueInfoObjectTypeName:      "invoice",
				},
			},
		},
	}
}

func fastOptions(baseURL string) []Option {
	return []Option{
		WithBaseURL(baseURL),
		WithWorkerID("sdk-worker"),
		WithBackoff(2*time.Millisecond, 10*time.Millisecond, 2),
		WithShutdownTimeout(time.Second),
	}
}

func TestClient_HandlesAndCompletesTask(t *testing.T) {
	fake := testutil.NewFakeEngine(t)
	serveOnce(fake, invoiceTask("t1"))
	fake.Respond(http.MethodPost, "/external-task/t1/complete", http.StatusNoContent, nil)

	bus := events.NewEventBus()
	handled := make(chan *events.Event, 1)
	bus.Subscribe(events.EventTaskHandled, func(e *events.Event) { handled <- e })

	c, err := New(append(fastOptions(fake.URL),
		WithObjectType("invoice", invoice{}),
		WithEventBus(bus),
		WithApplication("billing", "1.4.0"),
	)...)
	require.NoError(t, err)

	got := make(chan any, 1)
	require.NoError(t, c.Subscribe("invoice", func(ctx context.Context, tk *task.ExternalTask, s *task.Service) {
		v, err := tk.Variable("invoice")
		if err != nil {
			got <- err
			return
		}
		got <- v
		_ = s.Complete(ctx, tk, map[string]any{"paid": true}, nil)
	}, WithVariables("invoice")))

	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.Running())

	select {
	case v := <-got:
		assert.Equal(t, invoice{Number: "INV-1", Total: 12.5}, v)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("task handled event not published")
	}
	require.NoError(t, c.Stop(context.Background()))
	assert.False(t, c.Running())

	completes := fake.Requests("/external-task/t1/complete")
	require.Len(t, completes, 1)
	var body map[string]any
	require.NoError(t, completes[0].DecodeJSON(&body))
	assert.Equal(t, "sdk-worker", body["workerId"])
	assert.Contains(t, body["variables"], "paid")
	assert.Contains(t, completes[0].Header.Get("User-Agent"), "billing/1.4.0 TaskKit/")

	fetches := fake.Requests(fetchPath)
	require.NotEmpty(t, fetches)
	var fetch engine.FetchAndLockRequest
	require.NoError(t, fetches[0].DecodeJSON(&fetch))
	assert.True(t, fetch.UsePriority)
	require.Len(t, fetch.Topics, 1)
	assert.Equal(t, []string{"invoice"}, fetch.Topics[0].Variables)

	resolved, err := statestore.IsResolved(context.Background(), c.Ledger(), "t1")
	require.NoError(t, err)
	assert.True(t, resolved)
}

func TestClient_BasicAuthHeader(t *testing.T) {
	fake := testutil.NewFakeEngine(t)
	serveOnce(fake)

	c, err := New(append(fastOptions(fake.URL), WithBasicAuth("demo", "secret"))...)
	require.NoError(t, err)
	require.NoError(t, c.Subscribe("invoice", func(context.Context, *task.ExternalTask, *task.Service) {}))
	require.NoError(t, c.Start(context.Background()))

	require.Eventually(t, func() bool { return len(fake.Requests(fetchPath)) > 0 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	user, pass, ok := (&http.Request{Header: fake.Requests(fetchPath)[0].Header}).BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "demo", user)
	assert.Equal(t, "secret", pass)
}

func TestClient_Lifecycle(t *testing.T) {
	fake := testutil.NewFakeEngine(t)
	serveOnce(fake)

	c, err := New(fastOptions(fake.URL)...)
	require.NoError(t, err)
	assert.Equal(t, "sdk-worker", c.WorkerID())
	assert.NotNil(t, c.Service())
	assert.NotNil(t, c.Engine())
	assert.NotNil(t, c.EventBus())
	assert.Nil(t, c.MetricsExporter())
	assert.IsType(t, &statestore.MemoryLedger{}, c.Ledger())

	handler := func(context.Context, *task.ExternalTask, *task.Service) {}
	require.NoError(t, c.Subscribe("invoice", handler))
	require.NoError(t, c.Start(context.Background()))

	assert.ErrorIs(t, c.Subscribe("archive", handler), ErrClientStarted)
	require.NoError(t, c.Stop(context.Background()))
	require.NoError(t, c.Stop(context.Background()))
	assert.ErrorIs(t, c.Start(context.Background()), ErrClientStopped)
}

func TestClient_StartWithoutSubscriptions(t *testing.T) {
	c, err := New(WithBaseURL("http://engine.local"))
	require.NoError(t, err)
	assert.Error(t, c.Start(context.Background()))
	require.NoError(t, c.Stop(context.Background()))
}

func TestClient_RedisLedger(t *testing.T) {
	mr := miniredis.RunT(t)
	fake := testutil.NewFakeEngine(t)
	serveOnce(fake, invoiceTask("t9"))
	fake.Respond(http.MethodPost, "/external-task/t9/complete", http.StatusNoContent, nil)

	c, err := New(append(fastOptions(fake.URL),
		WithRedisLedger(&redis.Options{Addr: mr.Addr()}, "billing", time.Hour))...)
	require.NoError(t, err)

	done := make(chan struct{})
	require.NoError(t, c.Subscribe("invoice", func(ctx context.Context, tk *task.ExternalTask, s *task.Service) {
		_ = s.Complete(ctx, tk, nil, nil)
		close(done)
	}))
	require.NoError(t, c.Start(context.Background()))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
	require.NoError(t, c.Stop(context.Background()))

	assert.True(t, mr.Exists("billing:task:t9"))
	assert.Equal(t, time.Hour, mr.TTL("billing:task:t9"))
}

func TestClient_StartFailsWhenRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	c, err := New(WithBaseURL("http://engine.local"), WithRedisLedger(&redis.Options{Addr: addr}, "", 0))
	require.NoError(t, err)
	require.NoError(t, c.Subscribe("invoice", func(context.Context, *task.ExternalTask, *task.Service) {}))

	err = c.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger unavailable")
	assert.False(t, c.Running())
	require.NoError(t, c.Stop(context.Background()))
}

func TestClient_ServesMetrics(t *testing.T) {
	fake := testutil.NewFakeEngine(t)
	serveOnce(fake)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	c, err := New(append(fastOptions(fake.URL), WithMetrics(addr))...)
	require.NoError(t, err)
	require.NotNil(t, c.MetricsExporter())
	require.NoError(t, c.Subscribe("invoice", func(context.Context, *task.ExternalTask, *task.Service) {}))
	require.NoError(t, c.Start(context.Background()))

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		body = string(data)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, body, "taskkit_")

	require.NoError(t, c.Stop(context.Background()))
	_, err = http.Get("http://" + addr + "/metrics")
	assert.Error(t, err)
}
