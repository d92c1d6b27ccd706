// Package server exposes the gateway over the Model Context Protocol.
// One MCP server carries both the execution entry point (gateway_execute)
// and the operator tools for inspecting and mutating runtime state:
// function registration, service sync, stream control, and pool status.
//
// Follow-up Responses for async and stream calls are pushed to connected
// clients as notifications/switchboard/response notifications; changes to
// the function catalog are announced as
// notifications/switchboard/functions_changed.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"switchboard/internal/config"
	"switchboard/internal/gateway"
	"switchboard/internal/pool"
	"switchboard/internal/registry"
	"switchboard/internal/stream"
	"switchboard/internal/syncer"
	"switchboard/pkg/logging"
)

const (
	// methodResponse carries async and stream Responses to clients.
	methodResponse = "notifications/switchboard/response"

	// methodFunctionsChanged signals that the function catalog changed and
	// clients should re-pull function_list.
	methodFunctionsChanged = "notifications/switchboard/functions_changed"
)

// Config carries the transport settings for the MCP endpoint.
type Config struct {
	Host      string
	Port      int
	Transport string
}

// RequestExecutor runs decoded requests through the execution pipeline.
type RequestExecutor interface {
	Execute(ctx context.Context, req *gateway.Request, receiver gateway.Receiver) *gateway.Response
}

// Dependencies are the gateway components the operator surface drives.
type Dependencies struct {
	Executor   RequestExecutor
	Registry   *registry.Registry
	Syncer     *syncer.Syncer
	Streams    *stream.Manager
	AsyncPool  *pool.Pool
	StreamPool *pool.Pool
}

// GatewayServer is the MCP server fronting the gateway.
type GatewayServer struct {
	config Config

	executor   RequestExecutor
	registry   *registry.Registry
	syncer     *syncer.Syncer
	streams    *stream.Manager
	asyncPool  *pool.Pool
	streamPool *pool.Pool

	receiver gateway.Receiver

	server *mcpserver.MCPServer

	// Transport-specific servers
	sseServer            *mcpserver.SSEServer
	streamableHTTPServer *mcpserver.StreamableHTTPServer
	stdioServer          *mcpserver.StdioServer

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex
}

// New creates a gateway server. Start must be called before it serves.
func New(cfg Config, deps Dependencies) *GatewayServer {
	g := &GatewayServer{
		config:     cfg,
		executor:   deps.Executor,
		registry:   deps.Registry,
		syncer:     deps.Syncer,
		streams:    deps.Streams,
		asyncPool:  deps.AsyncPool,
		streamPool: deps.StreamPool,
	}
	g.receiver = &notificationReceiver{srv: g}
	return g
}

// Start starts the MCP server on the configured transport.
func (g *GatewayServer) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.server != nil {
		g.mu.Unlock()
		return fmt.Errorf("gateway server already started")
	}

	g.ctx, g.cancelFunc = context.WithCancel(ctx)

	srv := mcpserver.NewMCPServer(
		"switchboard",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)
	g.server = srv

	g.registerTools(srv)

	// Announce catalog changes to connected clients.
	g.wg.Add(1)
	go g.monitorRegistryUpdates()

	g.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", g.config.Host, g.config.Port)

	switch g.config.Transport {
	case config.TransportSSE:
		logging.Info("Server", "Starting MCP server with SSE transport on %s", addr)
		baseURL := fmt.Sprintf("http://%s:%d", g.config.Host, g.config.Port)
		g.sseServer = mcpserver.NewSSEServer(
			srv,
			mcpserver.WithBaseURL(baseURL),
			mcpserver.WithSSEEndpoint("/sse"),
			mcpserver.WithMessageEndpoint("/message"),
			mcpserver.WithKeepAlive(true),
			mcpserver.WithKeepAliveInterval(30*time.Second),
		)
		sseServer := g.sseServer
		go func() {
			if err := sseServer.Start(addr); err != nil && err != http.ErrServerClosed {
				logging.Error("Server", err, "SSE server error")
			}
		}()

	case config.TransportStdio:
		logging.Info("Server", "Starting MCP server with stdio transport")
		g.stdioServer = mcpserver.NewStdioServer(srv)
		stdioServer := g.stdioServer
		go func() {
			if err := stdioServer.Listen(g.ctx, os.Stdin, os.Stdout); err != nil {
				logging.Error("Server", err, "Stdio server error")
			}
		}()

	case config.TransportStreamableHTTP:
		fallthrough
	default:
		logging.Info("Server", "Starting MCP server with streamable-http transport on %s", addr)
		g.streamableHTTPServer = mcpserver.NewStreamableHTTPServer(srv)
		streamableServer := g.streamableHTTPServer
		go func() {
			if err := streamableServer.Start(addr); err != nil && err != http.ErrServerClosed {
				logging.Error("Server", err, "Streamable HTTP server error")
			}
		}()
	}

	return nil
}

// Stop stops the MCP server and its transport.
func (g *GatewayServer) Stop(ctx context.Context) error {
	g.mu.Lock()
	if g.server == nil {
		g.mu.Unlock()
		return fmt.Errorf("gateway server not started")
	}

	logging.Info("Server", "Stopping MCP server")

	cancelFunc := g.cancelFunc
	sseServer := g.sseServer
	streamableServer := g.streamableHTTPServer
	g.mu.Unlock()

	if cancelFunc != nil {
		cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if sseServer != nil {
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("Server", err, "Error shutting down SSE server")
		}
	}

	if streamableServer != nil {
		if err := streamableServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("Server", err, "Error shutting down streamable HTTP server")
		}
	}

	// Stdio server stops on context cancellation, no explicit shutdown needed.

	g.wg.Wait()

	g.mu.Lock()
	g.server = nil
	g.sseServer = nil
	g.streamableHTTPServer = nil
	g.stdioServer = nil
	g.mu.Unlock()

	return nil
}

// Receiver returns the receiver that relays follow-up Responses to
// connected clients. Transports other than MCP would supply their own.
func (g *GatewayServer) Receiver() gateway.Receiver {
	return g.receiver
}

// GetEndpoint returns the server's endpoint URL based on transport.
func (g *GatewayServer) GetEndpoint() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	switch g.config.Transport {
	case config.TransportSSE:
		return fmt.Sprintf("http://%s:%d/sse", g.config.Host, g.config.Port)
	case config.TransportStdio:
		return "stdio"
	default:
		return fmt.Sprintf("http://%s:%d/mcp", g.config.Host, g.config.Port)
	}
}

// monitorRegistryUpdates watches the registry's change channel and
// announces catalog changes.
func (g *GatewayServer) monitorRegistryUpdates() {
	defer g.wg.Done()

	updateChan := g.registry.UpdateChannel()

	for {
		select {
		case <-g.ctx.Done():
			return
		case <-updateChan:
			g.notifyFunctionsChanged()
		}
	}
}

// notifyFunctionsChanged pushes the catalog-change notification.
func (g *GatewayServer) notifyFunctionsChanged() {
	g.mu.RLock()
	srv := g.server
	g.mu.RUnlock()
	if srv == nil {
		return
	}

	srv.SendNotificationToAllClients(methodFunctionsChanged, nil)
	logging.Debug("Server", "Announced function catalog change")
}
