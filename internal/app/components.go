package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"switchboard/internal/config"
	"switchboard/internal/executor"
	"switchboard/internal/filesource"
	"switchboard/internal/invoker"
	"switchboard/internal/pool"
	"switchboard/internal/registry"
	"switchboard/internal/selector"
	"switchboard/internal/server"
	"switchboard/internal/stream"
	"switchboard/internal/syncer"
	"switchboard/pkg/logging"
)

// shutdownTimeout bounds the whole stop sequence. In-flight calls can hold
// a worker for up to their call timeout; past this point the process exits
// without them.
const shutdownTimeout = 30 * time.Second

// Components holds every wired part of the gateway. Fields are exported so
// embedders and tests can reach individual components; mutating them after
// Run has started is not supported.
type Components struct {
	Config config.Config

	Registry   *registry.Registry
	Local      *invoker.Local
	Remote     *invoker.Remote
	Selector   *selector.Selector
	AsyncPool  *pool.Pool
	StreamPool *pool.Pool
	Streams    *stream.Manager
	Executor   *executor.Executor
	Syncer     *syncer.Syncer
	Files      *filesource.Source
	Server     *server.GatewayServer
}

// buildComponents constructs the gateway in dependency order. Nothing is
// started; components that run goroutines stay idle until Run.
func buildComponents(cfg config.Config) (*Components, error) {
	reg := registry.New()

	local := invoker.NewLocal()
	remote := invoker.NewRemote()
	sel := selector.New(local)

	asyncPool := pool.New("async", cfg.Gateway.AsyncPool.Size, cfg.Gateway.AsyncPool.MaxQueue)
	streamPool := pool.New("stream", cfg.Gateway.StreamPool.Size, cfg.Gateway.StreamPool.MaxQueue)

	streams := stream.NewManager(cfg.Gateway.VerboseErrors)

	exec := executor.New(executor.Config{
		Registry:      reg,
		Selector:      sel,
		Local:         local,
		Remote:        remote,
		AsyncPool:     asyncPool,
		StreamPool:    streamPool,
		Streams:       streams,
		VerboseErrors: cfg.Gateway.VerboseErrors,
	})

	sync := syncer.New(
		reg,
		remote,
		time.Duration(cfg.Sync.Interval)*time.Second,
		time.Duration(cfg.Sync.PullTimeout)*time.Second,
	)
	if len(cfg.Sync.Services) > 0 {
		// Registrations from the file are validated here so a typo fails
		// the bootstrap instead of a sync pass at runtime.
		if err := sync.Register(cfg.Sync.Services...); err != nil {
			return nil, fmt.Errorf("invalid service registration in configuration: %w", err)
		}
	}

	files := filesource.New(cfg.Gateway.FunctionsDir, reg, 0)

	srv := server.New(
		server.Config{
			Host:      cfg.Server.Host,
			Port:      cfg.Server.Port,
			Transport: cfg.Server.Transport,
		},
		server.Dependencies{
			Executor:   exec,
			Registry:   reg,
			Syncer:     sync,
			Streams:    streams,
			AsyncPool:  asyncPool,
			StreamPool: streamPool,
		},
	)

	return &Components{
		Config:     cfg,
		Registry:   reg,
		Local:      local,
		Remote:     remote,
		Selector:   sel,
		AsyncPool:  asyncPool,
		StreamPool: streamPool,
		Streams:    streams,
		Executor:   exec,
		Syncer:     sync,
		Files:      files,
		Server:     srv,
	}, nil
}

// Run starts the long-running components in order (pools, syncer, file
// source, server), blocks until the context is cancelled or SIGINT/SIGTERM
// arrives, and then stops everything in reverse order.
func (c *Components) Run(ctx context.Context) error {
	c.AsyncPool.Start()
	c.StreamPool.Start()
	c.Syncer.Start()

	if err := c.Files.Load(); err != nil {
		logging.Error("App", err, "Failed to load function definitions")
		c.stopEarly()
		return err
	}
	if err := c.Files.Start(ctx); err != nil {
		logging.Error("App", err, "Failed to watch function definitions")
		c.stopEarly()
		return err
	}

	if err := c.Server.Start(ctx); err != nil {
		logging.Error("App", err, "Failed to start MCP server")
		c.Files.Stop()
		c.stopEarly()
		return err
	}

	logging.Info("App", "Gateway ready on %s", c.Server.GetEndpoint())
	logging.Info("App", "Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logging.Info("App", "Received %s, shutting down", sig)
	case <-ctx.Done():
		logging.Info("App", "Context cancelled, shutting down")
	}

	return c.shutdown()
}

// shutdown runs the reverse-order stop sequence, bounded by
// shutdownTimeout so a wedged component cannot keep the process alive.
func (c *Components) shutdown() error {
	done := make(chan struct{})
	go func() {
		defer close(done)

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := c.Server.Stop(stopCtx); err != nil {
			logging.Error("App", err, "Error stopping MCP server")
		}
		c.Files.Stop()
		c.Syncer.Stop()
		c.Streams.StopAll()
		c.StreamPool.Stop()
		c.AsyncPool.Stop()
		c.Remote.Close()
	}()

	select {
	case <-done:
		logging.Info("App", "Shutdown complete")
		return nil
	case <-time.After(shutdownTimeout):
		logging.Warn("App", "Shutdown timed out after %s, exiting anyway", shutdownTimeout)
		return nil
	}
}

// stopEarly unwinds the components already started when Run fails partway
// through its start sequence.
func (c *Components) stopEarly() {
	c.Syncer.Stop()
	c.StreamPool.Stop()
	c.AsyncPool.Stop()
	c.Remote.Close()
}
