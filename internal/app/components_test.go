package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"switchboard/internal/config"
	"switchboard/internal/gateway"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Gateway.FunctionsDir = filepath.Join(t.TempDir(), "functions")
	return cfg
}

func writeSpecFile(dir, name, content string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0644)
}

func TestBuildComponents(t *testing.T) {
	cfg := testConfig(t)

	c, err := buildComponents(cfg)
	if err != nil {
		t.Fatalf("buildComponents: %v", err)
	}

	if c.Registry == nil || c.Local == nil || c.Remote == nil || c.Selector == nil {
		t.Error("routing components missing")
	}
	if c.AsyncPool == nil || c.StreamPool == nil || c.Streams == nil {
		t.Error("execution components missing")
	}
	if c.Executor == nil || c.Syncer == nil || c.Files == nil || c.Server == nil {
		t.Error("surface components missing")
	}
	if c.Config.Server.Port != cfg.Server.Port {
		t.Errorf("Config.Server.Port = %d, want %d", c.Config.Server.Port, cfg.Server.Port)
	}
}

func TestBuildComponents_RegistersConfiguredServices(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sync.Services = []gateway.ServiceRegistration{
		{
			Service:  "billing",
			Nodes:    []string{"10.0.0.1:9000"},
			Accessor: gateway.Accessor{Module: "registry", Function: "list_functions"},
		},
	}

	c, err := buildComponents(cfg)
	if err != nil {
		t.Fatalf("buildComponents: %v", err)
	}

	regs := c.Syncer.Registrations()
	if len(regs) != 1 || regs[0].Service != "billing" {
		t.Errorf("Registrations = %+v, want billing", regs)
	}
}

func TestBuildComponents_RejectsBadRegistration(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sync.Services = []gateway.ServiceRegistration{
		{Service: "billing"}, // no nodes, no accessor
	}

	if _, err := buildComponents(cfg); err == nil {
		t.Fatal("expected error for invalid registration")
	}
}

func TestComponentsRun_StopsOnContextCancel(t *testing.T) {
	cfg := testConfig(t)
	// Stdio keeps the test off the network.
	cfg.Server.Transport = config.TransportStdio

	c, err := buildComponents(cfg)
	if err != nil {
		t.Fatalf("buildComponents: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx)
	}()

	// Give the start sequence a moment, then cancel.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestComponentsRun_LoadsFunctionDefinitions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Transport = config.TransportStdio

	if err := writeSpecFile(cfg.Gateway.FunctionsDir, "billing.yaml", `
service: billing
requestType: charge
nodes: [local]
target:
  module: billing
  function: charge
`); err != nil {
		t.Fatalf("writing spec file: %v", err)
	}

	c, err := buildComponents(cfg)
	if err != nil {
		t.Fatalf("buildComponents: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx)
	}()

	deadline := time.After(5 * time.Second)
	for {
		if _, err := c.Registry.Get("billing", "charge"); err == nil {
			break
		}
		select {
		case <-deadline:
			cancel()
			<-done
			t.Fatal("billing/charge never appeared in the registry")
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned error: %v", err)
	}
}
