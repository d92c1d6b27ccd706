package selector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchboard/internal/gateway"
)

type fakeCaller struct {
	calls  atomic.Int32
	gate   chan struct{}
	result any
	err    error
}

func (f *fakeCaller) CallLocal(ctx context.Context, call gateway.Call) (any, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.result, f.err
}

func staticSpec(mode string, nodes ...string) *gateway.FunctionSpec {
	return &gateway.FunctionSpec{
		Service:     "demo",
		RequestType: "work",
		Nodes:       nodes,
		SelectMode:  mode,
		Target:      gateway.Target{Module: "demo", Function: "work"},
	}
}

func request(id string) *gateway.Request {
	return &gateway.Request{RequestID: id, RequestType: "work", Service: "demo", Args: map[string]any{}}
}

func TestPickRandomCoversAllNodes(t *testing.T) {
	sel := New(nil)
	spec := staticSpec(gateway.SelectRandom, "a", "b", "c")

	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		node, err := sel.Pick(context.Background(), spec, request("r"))
		require.NoError(t, err)
		seen[node] = true
	}

	assert.Len(t, seen, 3, "1000 random draws over 3 nodes should visit all of them")
}

func TestPickHashIsDeterministic(t *testing.T) {
	sel := New(nil)
	spec := staticSpec(gateway.SelectHash, "a", "b", "c")

	first, err := sel.Pick(context.Background(), spec, request("r42"))
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		node, err := sel.Pick(context.Background(), spec, request("r42"))
		require.NoError(t, err)
		assert.Equal(t, first, node)
	}
}

func TestPickHashKeyFromArgs(t *testing.T) {
	sel := New(nil)
	spec := staticSpec("hash:city", "a", "b", "c")

	req := request("r1")
	req.Args["city"] = "vienna"

	first, err := sel.Pick(context.Background(), spec, req)
	require.NoError(t, err)

	// Same key value, different request id: same node.
	other := request("r2")
	other.Args["city"] = "vienna"
	node, err := sel.Pick(context.Background(), spec, other)
	require.NoError(t, err)
	assert.Equal(t, first, node)
}

func TestPickHashKeyFallsBackToRequestField(t *testing.T) {
	sel := New(nil)
	spec := staticSpec("hash:user_id", "a", "b", "c")

	req := request("r1")
	req.UserID = "u7"

	first, err := sel.Pick(context.Background(), spec, req)
	require.NoError(t, err)

	req2 := request("r2")
	req2.UserID = "u7"
	node, err := sel.Pick(context.Background(), spec, req2)
	require.NoError(t, err)
	assert.Equal(t, first, node, "per-entity stickiness comes from the field value")
}

func TestPickHashKeyMissing(t *testing.T) {
	sel := New(nil)
	spec := staticSpec("hash:city", "a", "b", "c")

	_, err := sel.Pick(context.Background(), spec, request("r1"))
	require.Error(t, err)
	assert.True(t, gateway.IsNodeSelectionError(err))
}

func TestPickRoundRobinWithinOneContext(t *testing.T) {
	sel := New(nil)
	spec := staticSpec(gateway.SelectRoundRobin, "a", "b", "c")

	ctx := WithCursor(context.Background())

	var got []string
	for i := 0; i < 4; i++ {
		node, err := sel.Pick(ctx, spec, request("r"))
		require.NoError(t, err)
		got = append(got, node)
	}

	assert.Equal(t, []string{"a", "b", "c", "a"}, got)
}

func TestPickRoundRobinIndependentContexts(t *testing.T) {
	sel := New(nil)
	spec := staticSpec(gateway.SelectRoundRobin, "a", "b", "c")

	// Each fresh context starts its own cycle.
	for i := 0; i < 3; i++ {
		node, err := sel.Pick(WithCursor(context.Background()), spec, request("r"))
		require.NoError(t, err)
		assert.Equal(t, "a", node)
	}

	// Without cursor state the cycle never advances.
	node, err := sel.Pick(context.Background(), spec, request("r"))
	require.NoError(t, err)
	assert.Equal(t, "a", node)
}

func TestPickEmptyNodeList(t *testing.T) {
	sel := New(nil)
	spec := staticSpec(gateway.SelectRandom)

	_, err := sel.Pick(context.Background(), spec, request("r"))
	require.Error(t, err)
	assert.True(t, gateway.IsNodeSelectionError(err))
}

func TestPickDynamicResolver(t *testing.T) {
	caller := &fakeCaller{result: []any{"x:1", "y:1"}}
	sel := New(caller)

	spec := staticSpec(gateway.SelectHash)
	spec.Nodes = nil
	spec.NodesFrom = &gateway.Accessor{Module: "cluster", Function: "nodes"}

	node, err := sel.Pick(context.Background(), spec, request("r1"))
	require.NoError(t, err)
	assert.Contains(t, []string{"x:1", "y:1"}, node)
}

func TestPickDynamicResolverFailures(t *testing.T) {
	tests := []struct {
		name   string
		caller *fakeCaller
	}{
		{"resolver error", &fakeCaller{err: errors.New("unreachable")}},
		{"empty list", &fakeCaller{result: []any{}}},
		{"non-list result", &fakeCaller{result: "not-a-list"}},
		{"non-string entry", &fakeCaller{result: []any{"ok", 42}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := New(tt.caller)
			spec := staticSpec(gateway.SelectRandom)
			spec.Nodes = nil
			spec.NodesFrom = &gateway.Accessor{Module: "cluster", Function: "nodes"}

			_, err := sel.Pick(context.Background(), spec, request("r"))
			require.Error(t, err)
			assert.True(t, gateway.IsNodeSelectionError(err))
		})
	}
}

func TestPickDynamicResolverDeduplicatesConcurrentFetches(t *testing.T) {
	caller := &fakeCaller{result: []string{"x:1"}, gate: make(chan struct{})}
	sel := New(caller)

	spec := staticSpec(gateway.SelectRandom)
	spec.Nodes = nil
	spec.NodesFrom = &gateway.Accessor{Module: "cluster", Function: "nodes"}

	var wg sync.WaitGroup
	results := make([]string, 5)
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n], errs[n] = sel.Pick(context.Background(), spec, request("r"))
		}(i)
	}

	// Wait for the first fetch to be in flight, give the remaining picks a
	// moment to join it, then release.
	require.Eventually(t, func() bool { return caller.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(caller.gate)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), caller.calls.Load(), "concurrent resolutions should share one fetch")
	for _, node := range results {
		assert.Equal(t, "x:1", node)
	}
}
