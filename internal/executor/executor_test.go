package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchboard/internal/gateway"
	"switchboard/internal/invoker"
	"switchboard/internal/pool"
	"switchboard/internal/registry"
	"switchboard/internal/selector"
	"switchboard/internal/stream"
)

// fakeRemote records the last remote call and answers with canned values.
type fakeRemote struct {
	mu       sync.Mutex
	lastNode string
	lastCall gateway.Call
	result   any
	err      error
	streamFn func(ctx context.Context, node string, call gateway.Call, sink gateway.Sink) error
}

func (f *fakeRemote) CallRemote(ctx context.Context, node string, call gateway.Call) (any, error) {
	f.mu.Lock()
	f.lastNode = node
	f.lastCall = call
	f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeRemote) CallRemoteStream(ctx context.Context, node string, call gateway.Call, sink gateway.Sink) error {
	if f.streamFn != nil {
		return f.streamFn(ctx, node, call, sink)
	}
	return nil
}

// recorder collects pushed responses and signals each arrival.
type recorder struct {
	mu        sync.Mutex
	responses []*gateway.Response
	arrived   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{arrived: make(chan struct{}, 64)}
}

func (r *recorder) Deliver(resp *gateway.Response) {
	r.mu.Lock()
	r.responses = append(r.responses, resp)
	r.mu.Unlock()
	r.arrived <- struct{}{}
}

func (r *recorder) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.arrived:
		case <-time.After(2 * time.Second):
			t.Fatalf("response %d never arrived", i+1)
		}
	}
}

func (r *recorder) all() []*gateway.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*gateway.Response(nil), r.responses...)
}

type harnessConfig struct {
	verbose      bool
	asyncSize    int
	asyncQueue   int
	streamSize   int
	streamQueue  int
	startTimeout time.Duration
}

func defaultHarnessConfig() harnessConfig {
	return harnessConfig{asyncSize: 2, asyncQueue: 2, streamSize: 2, streamQueue: 2}
}

type harness struct {
	registry *registry.Registry
	local    *invoker.Local
	remote   *fakeRemote
	streams  *stream.Manager
	exec     *Executor
}

func newHarness(t *testing.T, hc harnessConfig) *harness {
	t.Helper()

	reg := registry.New()
	local := invoker.NewLocal()
	remote := &fakeRemote{}
	streams := stream.NewManager(hc.verbose)

	asyncPool := pool.New("async", hc.asyncSize, hc.asyncQueue)
	streamPool := pool.New("stream", hc.streamSize, hc.streamQueue)
	asyncPool.Start()
	streamPool.Start()
	t.Cleanup(asyncPool.Stop)
	t.Cleanup(streamPool.Stop)
	// Runs before the pool stops (LIFO), freeing workers blocked in
	// still-active sessions.
	t.Cleanup(streams.StopAll)

	exec := New(Config{
		Registry:           reg,
		Selector:           selector.New(local),
		Local:              local,
		Remote:             remote,
		AsyncPool:          asyncPool,
		StreamPool:         streamPool,
		Streams:            streams,
		VerboseErrors:      hc.verbose,
		StreamStartTimeout: hc.startTimeout,
	})

	return &harness{registry: reg, local: local, remote: remote, streams: streams, exec: exec}
}

func localSpec(service, requestType string, mode gateway.ResponseMode) *gateway.FunctionSpec {
	return &gateway.FunctionSpec{
		Service:      service,
		RequestType:  requestType,
		Nodes:        []string{gateway.LocalNodes},
		ResponseMode: mode,
		Target:       gateway.Target{Module: service, Function: requestType},
	}
}

func remoteSpec(service, requestType string, mode gateway.ResponseMode, nodes ...string) *gateway.FunctionSpec {
	return &gateway.FunctionSpec{
		Service:      service,
		RequestType:  requestType,
		Nodes:        nodes,
		ResponseMode: mode,
		Target:       gateway.Target{Module: service, Function: requestType},
	}
}

func TestExecuteUnknownFunction(t *testing.T) {
	h := newHarness(t, defaultHarnessConfig())

	resp := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID:   "r1",
		Service:     "billing",
		RequestType: "charge",
	}, nil)

	require.NotNil(t, resp)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "not found")
	assert.False(t, resp.CanRetry)
}

func TestExecuteSyncLocal(t *testing.T) {
	h := newHarness(t, defaultHarnessConfig())

	spec := localSpec("math", "add", gateway.ModeSync)
	spec.Target.FixedArgs = []any{"base"}
	spec.ArgTypes = map[string]string{"a": "number", "b": "number"}
	spec.ArgOrder = []string{"a", "b"}
	require.NoError(t, h.registry.Add(spec))

	var got []any
	h.local.Register("math", "add", func(ctx context.Context, callArgs []any) (any, error) {
		got = append([]any(nil), callArgs...)
		return callArgs[1].(float64) + callArgs[2].(float64), nil
	})

	resp := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID:   "r2",
		Service:     "math",
		RequestType: "add",
		Args:        map[string]any{"a": float64(2), "b": float64(3)},
	}, nil)

	require.True(t, resp.Success, "error: %s", resp.Error)
	assert.Equal(t, float64(5), resp.Result)
	assert.Equal(t, []any{"base", float64(2), float64(3)}, got)
	assert.False(t, resp.Async)
	assert.False(t, resp.HasMore)
}

func TestExecuteSyncRemote(t *testing.T) {
	h := newHarness(t, defaultHarnessConfig())
	h.remote.result = map[string]any{"charged": true}

	require.NoError(t, h.registry.Add(remoteSpec("billing", "charge", gateway.ModeSync, "10.0.0.5:7070")))

	resp := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID:   "r3",
		Service:     "billing",
		RequestType: "charge",
	}, nil)

	require.True(t, resp.Success, "error: %s", resp.Error)
	assert.Equal(t, map[string]any{"charged": true}, resp.Result)

	h.remote.mu.Lock()
	defer h.remote.mu.Unlock()
	assert.Equal(t, "10.0.0.5:7070", h.remote.lastNode)
	assert.Equal(t, "billing", h.remote.lastCall.Service)
}

func TestExecutePermissionDenied(t *testing.T) {
	h := newHarness(t, defaultHarnessConfig())

	spec := localSpec("account", "read", gateway.ModeSync)
	spec.Permission = "match-arg:user_id"
	spec.ArgTypes = map[string]string{"user_id": "string"}
	require.NoError(t, h.registry.Add(spec))

	h.local.Register("account", "read", func(ctx context.Context, callArgs []any) (any, error) {
		return "secret", nil
	})

	resp := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID:   "r4",
		Service:     "account",
		RequestType: "read",
		UserID:      "alice",
		Args:        map[string]any{"user_id": "bob"},
	}, nil)

	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "permission denied")
}

func TestExecuteArgumentMismatch(t *testing.T) {
	h := newHarness(t, defaultHarnessConfig())

	spec := localSpec("math", "add", gateway.ModeSync)
	spec.ArgTypes = map[string]string{"a": "number", "b": "number"}
	spec.ArgOrder = []string{"a", "b"}
	require.NoError(t, h.registry.Add(spec))

	resp := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID:   "r5",
		Service:     "math",
		RequestType: "add",
		Args:        map[string]any{"a": float64(1)},
	}, nil)

	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "argument")
	assert.False(t, resp.CanRetry)
}

func TestExecuteSyncInternalErrorSuppressed(t *testing.T) {
	h := newHarness(t, defaultHarnessConfig())
	h.remote.err = gateway.NewInternalCallError(errors.New("connection refused"))

	require.NoError(t, h.registry.Add(remoteSpec("billing", "charge", gateway.ModeSync, "10.0.0.5:7070")))

	resp := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID:   "r6",
		Service:     "billing",
		RequestType: "charge",
	}, nil)

	require.False(t, resp.Success)
	assert.Equal(t, "internal error", resp.Error)
}

func TestExecuteSyncInternalErrorVerbose(t *testing.T) {
	hc := defaultHarnessConfig()
	hc.verbose = true
	h := newHarness(t, hc)
	h.remote.err = gateway.NewInternalCallError(errors.New("connection refused"))

	require.NoError(t, h.registry.Add(remoteSpec("billing", "charge", gateway.ModeSync, "10.0.0.5:7070")))

	resp := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID:   "r7",
		Service:     "billing",
		RequestType: "charge",
	}, nil)

	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "connection refused")
}

func TestExecuteSyncBadRequestKeepsDetail(t *testing.T) {
	h := newHarness(t, defaultHarnessConfig())
	h.remote.err = gateway.NewBadRequestCallError(errors.New("no such account"))

	require.NoError(t, h.registry.Add(remoteSpec("billing", "charge", gateway.ModeSync, "10.0.0.5:7070")))

	resp := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID:   "r8",
		Service:     "billing",
		RequestType: "charge",
	}, nil)

	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "no such account")
}

func TestExecuteNodeSelectionFailure(t *testing.T) {
	h := newHarness(t, defaultHarnessConfig())

	spec := &gateway.FunctionSpec{
		Service:     "search",
		RequestType: "query",
		NodesFrom:   &gateway.Accessor{Module: "cluster", Function: "nodes"},
		Target:      gateway.Target{Module: "search", Function: "query"},
	}
	require.NoError(t, h.registry.Add(spec))

	h.local.Register("cluster", "nodes", func(ctx context.Context, callArgs []any) (any, error) {
		return nil, errors.New("resolver broken")
	})

	resp := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID:   "r9",
		Service:     "search",
		RequestType: "query",
	}, nil)

	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "node selection")
}

func TestExecuteAsyncAckThenDelivery(t *testing.T) {
	h := newHarness(t, defaultHarnessConfig())

	require.NoError(t, h.registry.Add(localSpec("mail", "send", gateway.ModeAsync)))
	h.local.Register("mail", "send", func(ctx context.Context, callArgs []any) (any, error) {
		return "queued-123", nil
	})

	rec := newRecorder()
	resp := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID:   "r10",
		Service:     "mail",
		RequestType: "send",
	}, rec)

	require.True(t, resp.Success)
	assert.True(t, resp.Async)
	assert.Nil(t, resp.Result)

	rec.wait(t, 1)
	delivered := rec.all()[0]
	assert.Equal(t, "r10", delivered.RequestID)
	assert.True(t, delivered.Success)
	assert.Equal(t, "queued-123", delivered.Result)
}

func TestExecuteAsyncDeliversErrors(t *testing.T) {
	h := newHarness(t, defaultHarnessConfig())

	require.NoError(t, h.registry.Add(localSpec("mail", "send", gateway.ModeAsync)))
	h.local.Register("mail", "send", func(ctx context.Context, callArgs []any) (any, error) {
		return nil, errors.New("smtp down")
	})

	rec := newRecorder()
	resp := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID:   "r11",
		Service:     "mail",
		RequestType: "send",
	}, rec)
	require.True(t, resp.Success, "submission itself must be acknowledged")

	rec.wait(t, 1)
	delivered := rec.all()[0]
	assert.False(t, delivered.Success)
	assert.Equal(t, "internal error", delivered.Error)
}

func TestExecuteAsyncQueueFull(t *testing.T) {
	hc := defaultHarnessConfig()
	hc.asyncSize = 1
	hc.asyncQueue = 0
	h := newHarness(t, hc)

	require.NoError(t, h.registry.Add(localSpec("mail", "send", gateway.ModeAsync)))
	gate := make(chan struct{})
	defer close(gate)
	running := make(chan struct{}, 1)
	h.local.Register("mail", "send", func(ctx context.Context, callArgs []any) (any, error) {
		running <- struct{}{}
		<-gate
		return nil, nil
	})

	rec := newRecorder()
	first := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID: "r12", Service: "mail", RequestType: "send",
	}, rec)
	require.True(t, first.Success)
	<-running

	second := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID: "r13", Service: "mail", RequestType: "send",
	}, rec)
	require.False(t, second.Success)
	assert.True(t, second.CanRetry, "backpressure must be marked retryable")
}

func TestExecuteNoneIsSilent(t *testing.T) {
	h := newHarness(t, defaultHarnessConfig())

	require.NoError(t, h.registry.Add(localSpec("audit", "log", gateway.ModeNone)))
	ran := make(chan struct{}, 1)
	h.local.Register("audit", "log", func(ctx context.Context, callArgs []any) (any, error) {
		ran <- struct{}{}
		return "ignored", nil
	})

	rec := newRecorder()
	resp := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID:   "r14",
		Service:     "audit",
		RequestType: "log",
	}, rec)

	require.True(t, resp.Success)
	assert.True(t, resp.Silent)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("none-mode call never executed")
	}

	// The result is dropped, nothing reaches the receiver.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.all())
}

func TestExecuteStreamLocalLifecycle(t *testing.T) {
	h := newHarness(t, defaultHarnessConfig())

	spec := localSpec("media", "tail", gateway.ModeStream)
	spec.RequestInfo = true
	require.NoError(t, h.registry.Add(spec))

	h.local.Register("media", "tail", func(ctx context.Context, callArgs []any) (any, error) {
		info := callArgs[len(callArgs)-1].(gateway.CallInfo)
		for i := 1; i <= 3; i++ {
			if err := info.Session.Push(i); err != nil {
				return nil, err
			}
		}
		return nil, info.Session.Final("eof")
	})

	rec := newRecorder()
	resp := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID:   "r15",
		Service:     "media",
		RequestType: "tail",
	}, rec)

	require.True(t, resp.Success, "error: %s", resp.Error)
	assert.True(t, resp.Async)
	assert.True(t, resp.HasMore)
	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, result["session_id"])

	rec.wait(t, 4)
	responses := rec.all()
	require.Len(t, responses, 4)
	for i, r := range responses[:3] {
		assert.True(t, r.HasMore, "push %d", i)
		assert.Equal(t, i+1, r.Result)
	}
	assert.False(t, responses[3].HasMore)
	assert.Equal(t, "eof", responses[3].Result)

	assert.Eventually(t, func() bool { return h.streams.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestExecuteStreamRemote(t *testing.T) {
	h := newHarness(t, defaultHarnessConfig())
	h.remote.streamFn = func(ctx context.Context, node string, call gateway.Call, sink gateway.Sink) error {
		if err := sink.Push("frame"); err != nil {
			return err
		}
		return sink.Complete()
	}

	require.NoError(t, h.registry.Add(remoteSpec("media", "watch", gateway.ModeStream, "10.0.0.9:7070")))

	rec := newRecorder()
	resp := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID:   "r16",
		Service:     "media",
		RequestType: "watch",
	}, rec)
	require.True(t, resp.Success, "error: %s", resp.Error)

	rec.wait(t, 2)
	responses := rec.all()
	assert.Equal(t, "frame", responses[0].Result)
	assert.True(t, responses[0].HasMore)
	assert.False(t, responses[1].HasMore)
}

func TestExecuteStreamPoolFull(t *testing.T) {
	hc := defaultHarnessConfig()
	hc.streamSize = 1
	hc.streamQueue = 0
	h := newHarness(t, hc)

	spec := localSpec("media", "tail", gateway.ModeStream)
	spec.RequestInfo = true
	require.NoError(t, h.registry.Add(spec))

	occupying := make(chan struct{}, 1)
	h.local.Register("media", "tail", func(ctx context.Context, callArgs []any) (any, error) {
		occupying <- struct{}{}
		// Keep the session alive so its worker stays busy.
		<-ctx.Done()
		return nil, nil
	})

	rec := newRecorder()
	first := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID: "r17", Service: "media", RequestType: "tail",
	}, rec)
	require.True(t, first.Success)
	<-occupying

	second := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID: "r18", Service: "media", RequestType: "tail",
	}, rec)
	require.False(t, second.Success)
	assert.True(t, second.CanRetry)

	// The rejected dispatch must not leak a session.
	assert.Equal(t, 1, h.streams.Count())
}

func TestExecuteStreamStartTimeout(t *testing.T) {
	hc := defaultHarnessConfig()
	hc.streamSize = 1
	hc.streamQueue = 1
	hc.startTimeout = 50 * time.Millisecond
	h := newHarness(t, hc)

	spec := localSpec("media", "tail", gateway.ModeStream)
	spec.RequestInfo = true
	require.NoError(t, h.registry.Add(spec))

	occupying := make(chan struct{}, 1)
	h.local.Register("media", "tail", func(ctx context.Context, callArgs []any) (any, error) {
		occupying <- struct{}{}
		<-ctx.Done()
		return nil, nil
	})

	rec := newRecorder()
	first := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID: "r19", Service: "media", RequestType: "tail",
	}, rec)
	require.True(t, first.Success)
	<-occupying

	// Queued but never started within the wait window.
	second := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID: "r20", Service: "media", RequestType: "tail",
	}, rec)
	require.False(t, second.Success)
	assert.True(t, second.CanRetry)
	assert.Equal(t, 1, h.streams.Count())
}

func TestExecuteAppendsCallInfo(t *testing.T) {
	h := newHarness(t, defaultHarnessConfig())

	spec := localSpec("account", "whoami", gateway.ModeSync)
	spec.RequestInfo = true
	require.NoError(t, h.registry.Add(spec))

	var info gateway.CallInfo
	h.local.Register("account", "whoami", func(ctx context.Context, callArgs []any) (any, error) {
		info = callArgs[len(callArgs)-1].(gateway.CallInfo)
		return info.UserID, nil
	})

	resp := h.exec.Execute(context.Background(), &gateway.Request{
		RequestID:   "r21",
		Service:     "account",
		RequestType: "whoami",
		UserID:      "alice",
		DeviceID:    "phone-1",
	}, nil)

	require.True(t, resp.Success)
	assert.Equal(t, "r21", info.RequestID)
	assert.Equal(t, "alice", info.UserID)
	assert.Equal(t, "phone-1", info.DeviceID)
	assert.Empty(t, info.SessionID, "sync calls carry no session")
	assert.Nil(t, info.Session)
}

func TestExecuteWithSpecSkipsLookup(t *testing.T) {
	h := newHarness(t, defaultHarnessConfig())

	spec := localSpec("adhoc", "run", gateway.ModeSync)
	require.NoError(t, spec.Validate())
	h.local.Register("adhoc", "run", func(ctx context.Context, callArgs []any) (any, error) {
		return 42, nil
	})

	resp := h.exec.ExecuteWithSpec(context.Background(), &gateway.Request{
		RequestID:   "r22",
		Service:     "adhoc",
		RequestType: "run",
	}, spec, nil)

	require.True(t, resp.Success)
	assert.Equal(t, 42, resp.Result)
}

func TestExecuteCoversEveryResponseMode(t *testing.T) {
	for _, mode := range gateway.AllResponseModes() {
		mode := mode
		t.Run(string(mode), func(t *testing.T) {
			h := newHarness(t, defaultHarnessConfig())

			spec := localSpec("probe", "run", mode)
			spec.RequestInfo = true
			require.NoError(t, h.registry.Add(spec))

			h.local.Register("probe", "run", func(ctx context.Context, callArgs []any) (any, error) {
				info := callArgs[len(callArgs)-1].(gateway.CallInfo)
				if info.Session != nil {
					return nil, info.Session.Final("ok")
				}
				return "ok", nil
			})

			rec := newRecorder()
			resp := h.exec.Execute(context.Background(), &gateway.Request{
				RequestID:   "r-" + string(mode),
				Service:     "probe",
				RequestType: "run",
			}, rec)

			require.NotNil(t, resp)
			require.True(t, resp.Success, "error: %s", resp.Error)

			switch mode {
			case gateway.ModeSync:
				assert.Equal(t, "ok", resp.Result)
			case gateway.ModeAsync:
				assert.True(t, resp.Async)
				rec.wait(t, 1)
				assert.Equal(t, "ok", rec.all()[0].Result)
			case gateway.ModeStream:
				assert.True(t, resp.Async)
				assert.True(t, resp.HasMore)
				rec.wait(t, 1)
				assert.Equal(t, "ok", rec.all()[0].Result)
			case gateway.ModeNone:
				assert.True(t, resp.Silent)
			}
		})
	}
}
