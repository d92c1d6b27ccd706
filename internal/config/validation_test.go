package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchboard/internal/gateway"
)

func TestValidateDefaultsPass(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Port = 0
	cfg.Server.Transport = "telepathy"
	cfg.Gateway.AsyncPool.Size = 0
	cfg.Gateway.StreamPool.MaxQueue = -1
	cfg.Sync.Interval = 0

	err := cfg.Validate()
	require.Error(t, err)

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 5)
}

func TestValidateTransports(t *testing.T) {
	for _, transport := range []string{TransportStreamableHTTP, TransportSSE, TransportStdio} {
		cfg := GetDefaultConfig()
		cfg.Server.Transport = transport
		assert.NoError(t, cfg.Validate(), "transport %s should be accepted", transport)
	}
}

func TestValidateServiceRegistrations(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Sync.Services = []gateway.ServiceRegistration{
		{
			Service: "billing",
			Nodes:   []string{"10.0.0.5:9000"},
			Accessor: gateway.Accessor{
				Module:   "billing",
				Function: "list_functions",
			},
		},
	}
	require.NoError(t, cfg.Validate())

	cfg.Sync.Services = append(cfg.Sync.Services, gateway.ServiceRegistration{
		Service: "",
		Nodes:   nil,
	})
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync.services[1].service")
	assert.Contains(t, err.Error(), "sync.services[1].nodes")
	assert.Contains(t, err.Error(), "sync.services[1].accessor.function")
}

func TestValidationErrorFormatting(t *testing.T) {
	var errs ValidationErrors
	assert.False(t, errs.HasErrors())

	errs.Add("server.port", "must be between 1 and 65535, got 0", 0)
	assert.True(t, errs.HasErrors())
	assert.Contains(t, errs.Error(), "server.port")

	errs.Add("sync.interval", "must be at least 1 second, got 0", 0)
	assert.Contains(t, errs.Error(), "validation failed:")
}
