package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() *FunctionSpec {
	return &FunctionSpec{
		Service:     "billing",
		RequestType: "charge",
		Nodes:       []string{"10.0.0.1:7070", "10.0.0.2:7070"},
		Target:      Target{Module: "billing", Function: "charge"},
		ArgTypes:    map[string]string{"amount": "number", "account": "string"},
		ArgOrder:    []string{"account", "amount"},
	}
}

func TestFunctionSpecValidateDefaults(t *testing.T) {
	spec := validSpec()

	require.NoError(t, spec.Validate())

	assert.Equal(t, SelectRandom, spec.SelectMode)
	assert.Equal(t, ModeSync, spec.ResponseMode)
	assert.Equal(t, PermissionNone, spec.Permission)
	assert.Equal(t, DefaultCallTimeout, spec.CallTimeout())
}

func TestFunctionSpecValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*FunctionSpec)
	}{
		{
			name:   "missing service",
			mutate: func(s *FunctionSpec) { s.Service = "" },
		},
		{
			name:   "missing request type",
			mutate: func(s *FunctionSpec) { s.RequestType = "" },
		},
		{
			name:   "missing target function",
			mutate: func(s *FunctionSpec) { s.Target.Function = "" },
		},
		{
			name:   "no node source",
			mutate: func(s *FunctionSpec) { s.Nodes = nil },
		},
		{
			name:   "unknown select mode",
			mutate: func(s *FunctionSpec) { s.SelectMode = "sticky" },
		},
		{
			name:   "unknown response mode",
			mutate: func(s *FunctionSpec) { s.ResponseMode = "batch" },
		},
		{
			name:   "unknown permission",
			mutate: func(s *FunctionSpec) { s.Permission = "admin-only" },
		},
		{
			name:   "arg order shorter than schema",
			mutate: func(s *FunctionSpec) { s.ArgOrder = []string{"amount"} },
		},
		{
			name:   "arg order repeats a name",
			mutate: func(s *FunctionSpec) { s.ArgOrder = []string{"amount", "amount"} },
		},
		{
			name:   "arg order names unknown argument",
			mutate: func(s *FunctionSpec) { s.ArgOrder = []string{"amount", "currency"} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(spec)
			assert.Error(t, spec.Validate())
		})
	}
}

func TestFunctionSpecArgOrderIgnoredForSmallSchemas(t *testing.T) {
	spec := validSpec()
	spec.ArgTypes = map[string]string{"account": "string"}
	spec.ArgOrder = nil

	assert.NoError(t, spec.Validate())

	spec = validSpec()
	spec.ArgTypes = nil
	spec.ArgOrder = []string{"whatever"}

	assert.NoError(t, spec.Validate())
}

func TestFunctionSpecHashModes(t *testing.T) {
	spec := validSpec()
	spec.SelectMode = "hash:user_id"
	assert.NoError(t, spec.Validate())

	spec = validSpec()
	spec.SelectMode = "hash:"
	assert.Error(t, spec.Validate(), "empty hash key should be rejected")
}

func TestFunctionSpecIsLocal(t *testing.T) {
	spec := validSpec()
	assert.False(t, spec.IsLocal())

	spec.Nodes = []string{LocalNodes}
	assert.True(t, spec.IsLocal())

	spec.NodesFrom = &Accessor{Module: "cluster", Function: "nodes"}
	assert.False(t, spec.IsLocal(), "dynamic resolver wins over a local marker")
}

func TestFunctionSpecCallTimeout(t *testing.T) {
	spec := validSpec()
	spec.Timeout = 7
	assert.Equal(t, 7*time.Second, spec.CallTimeout())

	spec.Timeout = 0
	assert.Equal(t, DefaultCallTimeout, spec.CallTimeout())
}

func TestFunctionSpecCloneIsDeep(t *testing.T) {
	spec := validSpec()
	spec.Target.FixedArgs = []any{"tenant-a"}
	spec.NodesFrom = &Accessor{Module: "cluster", Function: "nodes", Args: []any{"billing"}}

	clone := spec.Clone()
	require.Equal(t, spec, clone)

	clone.Nodes[0] = "changed"
	clone.ArgTypes["amount"] = "string"
	clone.ArgOrder[0] = "changed"
	clone.Target.FixedArgs[0] = "changed"
	clone.NodesFrom.Args[0] = "changed"

	assert.Equal(t, "10.0.0.1:7070", spec.Nodes[0])
	assert.Equal(t, "number", spec.ArgTypes["amount"])
	assert.Equal(t, "account", spec.ArgOrder[0])
	assert.Equal(t, "tenant-a", spec.Target.FixedArgs[0])
	assert.Equal(t, "billing", spec.NodesFrom.Args[0])
}

func TestResponseModeClosedSet(t *testing.T) {
	for _, mode := range AllResponseModes() {
		assert.True(t, mode.Valid(), "mode %q should be valid", mode)
	}
	assert.False(t, ResponseMode("batch").Valid())
	assert.False(t, ResponseMode("").Valid())
}
