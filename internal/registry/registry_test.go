package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchboard/internal/gateway"
)

func testSpec(service, requestType string) *gateway.FunctionSpec {
	return &gateway.FunctionSpec{
		Service:     service,
		RequestType: requestType,
		Nodes:       []string{"10.0.0.1:7070"},
		Target:      gateway.Target{Module: service, Function: requestType},
	}
}

func TestRegistryAddGet(t *testing.T) {
	reg := New()

	require.NoError(t, reg.Add(testSpec("billing", "charge")))

	spec, err := reg.Get("billing", "charge")
	require.NoError(t, err)
	assert.Equal(t, "billing", spec.Service)
	assert.Equal(t, "charge", spec.RequestType)

	// Validation defaults were applied on the stored copy.
	assert.Equal(t, gateway.ModeSync, spec.ResponseMode)
	assert.Equal(t, gateway.SelectRandom, spec.SelectMode)
}

func TestRegistryGetNotFound(t *testing.T) {
	reg := New()

	_, err := reg.Get("billing", "refund")
	require.Error(t, err)
	assert.True(t, gateway.IsNotFound(err))
}

func TestRegistryRejectsInvalidSpec(t *testing.T) {
	reg := New()

	bad := testSpec("billing", "charge")
	bad.Nodes = nil

	assert.Error(t, reg.Add(bad))

	_, err := reg.Get("billing", "charge")
	assert.True(t, gateway.IsNotFound(err), "invalid spec must not be stored")
}

func TestRegistryUpdateReplaces(t *testing.T) {
	reg := New()

	first := testSpec("billing", "charge")
	first.Timeout = 5
	require.NoError(t, reg.Add(first))

	second := testSpec("billing", "charge")
	second.Timeout = 9
	require.NoError(t, reg.Update(second))

	spec, err := reg.Get("billing", "charge")
	require.NoError(t, err)
	assert.Equal(t, 9, spec.Timeout)
}

func TestRegistryCallerCannotMutateStoredSpec(t *testing.T) {
	reg := New()
	original := testSpec("billing", "charge")
	require.NoError(t, reg.Add(original))

	// Mutating what the caller passed in has no effect on the store.
	original.Nodes[0] = "mutated"

	spec, err := reg.Get("billing", "charge")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:7070", spec.Nodes[0])

	// Mutating what Get returned has no effect either.
	spec.Nodes[0] = "mutated"
	again, err := reg.Get("billing", "charge")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:7070", again.Nodes[0])
}

func TestRegistryDelete(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Add(testSpec("billing", "charge")))

	reg.Delete("billing", "charge")

	_, err := reg.Get("billing", "charge")
	assert.True(t, gateway.IsNotFound(err))

	// Deleting again is a no-op.
	reg.Delete("billing", "charge")
}

func TestRegistryListAllSorted(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Add(testSpec("billing", "refund")))
	require.NoError(t, reg.Add(testSpec("billing", "charge")))
	require.NoError(t, reg.Add(testSpec("media", "transcode")))

	all := reg.ListAll()

	assert.Equal(t, map[string][]string{
		"billing": {"charge", "refund"},
		"media":   {"transcode"},
	}, all)
}

func TestRegistryUpdateChannelCoalesces(t *testing.T) {
	reg := New()

	require.NoError(t, reg.Add(testSpec("billing", "charge")))
	require.NoError(t, reg.Add(testSpec("billing", "refund")))
	reg.Delete("billing", "refund")

	// Three changes, at most one pending signal.
	select {
	case <-reg.UpdateChannel():
	default:
		t.Fatal("expected a pending update notification")
	}

	select {
	case <-reg.UpdateChannel():
		t.Fatal("expected notifications to coalesce into one signal")
	default:
	}
}

func TestRegistryConcurrentReadsAndWrites(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Add(testSpec("billing", "charge")))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				spec := testSpec("billing", "charge")
				spec.Timeout = n + 1
				_ = reg.Update(spec)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				spec, err := reg.Get("billing", "charge")
				if err == nil {
					// A reader sees a complete spec, old or new.
					assert.Equal(t, "billing", spec.Service)
					assert.NotZero(t, spec.CallTimeout())
				}
			}
		}()
	}
	wg.Wait()

	all := reg.ListAll()
	assert.Equal(t, []string{"charge"}, all["billing"])
}
