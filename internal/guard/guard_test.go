package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"switchboard/internal/gateway"
)

func specWithRule(rule string) *gateway.FunctionSpec {
	return &gateway.FunctionSpec{
		Service:     "demo",
		RequestType: "work",
		Nodes:       []string{gateway.LocalNodes},
		Target:      gateway.Target{Module: "demo", Function: "work"},
		Permission:  rule,
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		rule   string
		userID string
		args   map[string]any
		allow  bool
	}{
		{
			name:  "rule none always allows",
			rule:  gateway.PermissionNone,
			args:  map[string]any{},
			allow: true,
		},
		{
			name:   "rule none ignores identity entirely",
			rule:   gateway.PermissionNone,
			userID: "",
			args:   map[string]any{"user_id": "someone-else"},
			allow:  true,
		},
		{
			name:  "empty rule behaves like none",
			rule:  "",
			args:  map[string]any{},
			allow: true,
		},
		{
			name:   "match-arg allows on equality",
			rule:   "match-arg:user_id",
			userID: "u1",
			args:   map[string]any{"user_id": "u1"},
			allow:  true,
		},
		{
			name:   "match-arg denies on mismatch",
			rule:   "match-arg:user_id",
			userID: "u1",
			args:   map[string]any{"user_id": "u2"},
			allow:  false,
		},
		{
			name:   "match-arg denies when argument absent",
			rule:   "match-arg:user_id",
			userID: "u1",
			args:   map[string]any{},
			allow:  false,
		},
		{
			name:   "match-arg denies non-string argument",
			rule:   "match-arg:user_id",
			userID: "42",
			args:   map[string]any{"user_id": 42},
			allow:  false,
		},
		{
			name:   "match-arg on another argument name",
			rule:   "match-arg:owner",
			userID: "u1",
			args:   map[string]any{"owner": "u1"},
			allow:  true,
		},
		{
			name:   "unknown rule denies",
			rule:   "allow-all",
			userID: "u1",
			args:   map[string]any{"user_id": "u1"},
			allow:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &gateway.Request{
				RequestID: "r1",
				UserID:    tt.userID,
				Args:      tt.args,
			}

			err := Check(req, specWithRule(tt.rule))

			if tt.allow {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.True(t, gateway.IsPermissionDenied(err))
			}
		})
	}
}
