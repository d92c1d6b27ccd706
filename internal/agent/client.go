package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// TransportType defines the transport type for MCP connections
type TransportType string

const (
	TransportSSE            TransportType = "sse"
	TransportStreamableHTTP TransportType = "streamable-http"
)

// Notification methods pushed by the gateway.
const (
	methodResponse         = "notifications/switchboard/response"
	methodFunctionsChanged = "notifications/switchboard/functions_changed"
	methodToolsChanged     = "notifications/tools/list_changed"
)

// Client is an MCP client connected to a switchboard gateway. It keeps a
// cached copy of the gateway's tool surface and function catalog, and
// routes push notifications into NotificationChan.
type Client struct {
	endpoint      string
	transport     TransportType
	logger        *Logger
	client        client.MCPClient
	toolCache     []mcp.Tool
	functionCache map[string][]string
	notifyOutput  bool
	mu            sync.RWMutex
	timeout       time.Duration
	formatters    *Formatters

	NotificationChan chan mcp.JSONRPCNotification
}

// NewClient creates a new agent client with the specified transport
func NewClient(endpoint string, logger *Logger, transport TransportType) *Client {
	useColor := logger != nil && logger.useColor
	return &Client{
		endpoint:         endpoint,
		transport:        transport,
		logger:           logger,
		toolCache:        []mcp.Tool{},
		functionCache:    map[string][]string{},
		notifyOutput:     true,
		timeout:          30 * time.Second,
		formatters:       NewFormatters(useColor),
		NotificationChan: make(chan mcp.JSONRPCNotification, 10),
	}
}

// createAndConnectClient creates and starts an MCP client for the
// configured transport, routing notifications into NotificationChan.
func (c *Client) createAndConnectClient(ctx context.Context) (client.MCPClient, error) {
	onNotification := func(notification mcp.JSONRPCNotification) {
		select {
		case c.NotificationChan <- notification:
		case <-ctx.Done():
		}
	}

	switch c.transport {
	case TransportSSE:
		sseClient, err := client.NewSSEMCPClient(c.endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create SSE client: %w", err)
		}
		if err := sseClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start SSE client: %w", err)
		}
		sseClient.OnNotification(onNotification)
		return sseClient, nil

	case TransportStreamableHTTP:
		httpClient, err := client.NewStreamableHttpClient(c.endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create streamable-http client: %w", err)
		}
		if err := httpClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start streamable-http client: %w", err)
		}
		httpClient.OnNotification(onNotification)
		return httpClient, nil

	default:
		return nil, fmt.Errorf("unsupported transport type: %s", c.transport)
	}
}

// Connect establishes the connection to the gateway
func (c *Client) Connect(ctx context.Context) error {
	mcpClient, err := c.createAndConnectClient(ctx)
	if err != nil {
		return err
	}

	c.client = mcpClient
	return nil
}

// InitializeAndLoadData performs the MCP handshake and loads the initial
// tool list and function catalog.
func (c *Client) InitializeAndLoadData(ctx context.Context) error {
	if err := c.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	if err := c.listTools(ctx, true); err != nil {
		return fmt.Errorf("initial tool listing failed: %w", err)
	}

	if err := c.listFunctions(ctx, true); err != nil {
		return fmt.Errorf("initial function listing failed: %w", err)
	}

	return nil
}

// initialize performs the MCP protocol handshake
func (c *Client) initialize(ctx context.Context) error {
	req := mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: "2024-11-05",
			ClientInfo: mcp.Implementation{
				Name:    "switchboard-agent",
				Version: "1.0.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	}

	c.logger.Request("initialize", req.Params)

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.client.Initialize(timeoutCtx, req)
	if err != nil {
		c.logger.Error("Initialize failed: %v", err)
		return err
	}

	c.logger.Response("initialize", result)
	return nil
}

// listTools fetches the gateway's tool list and refreshes the cache. For
// non-initial refreshes the difference against the previous cache is
// displayed.
func (c *Client) listTools(ctx context.Context, initial bool) error {
	req := mcp.ListToolsRequest{}
	c.logger.Request("tools/list", req.Params)

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.client.ListTools(timeoutCtx, req)
	if err != nil {
		c.logger.Error("ListTools failed: %v", err)
		return err
	}

	c.logger.Response("tools/list", result)

	c.mu.Lock()
	oldTools := c.toolCache
	c.toolCache = result.Tools
	c.mu.Unlock()

	if !initial {
		c.showToolDiff(oldTools, result.Tools)
	}
	return nil
}

// listFunctions fetches the function catalog via the function_list tool
// and refreshes the cache. For non-initial refreshes the difference
// against the previous catalog is displayed.
func (c *Client) listFunctions(ctx context.Context, initial bool) error {
	raw, err := c.CallToolSimple(ctx, "function_list", map[string]interface{}{})
	if err != nil {
		c.logger.Error("function_list failed: %v", err)
		return err
	}

	var functions map[string][]string
	if err := json.Unmarshal([]byte(raw), &functions); err != nil {
		return fmt.Errorf("unexpected function_list payload: %w", err)
	}

	c.mu.Lock()
	oldFunctions := c.functionCache
	c.functionCache = functions
	c.mu.Unlock()

	if initial {
		count := 0
		for _, requestTypes := range functions {
			count += len(requestTypes)
		}
		c.logger.Success("Found %d functions across %d services", count, len(functions))
	} else {
		c.showFunctionDiff(oldFunctions, functions)
	}
	return nil
}

// RefreshToolCache re-fetches the tool list without printing a diff
func (c *Client) RefreshToolCache(ctx context.Context) error {
	return c.listTools(ctx, true)
}

// RefreshFunctionCache re-fetches the function catalog without printing a diff
func (c *Client) RefreshFunctionCache(ctx context.Context) error {
	return c.listFunctions(ctx, true)
}

// CallTool executes a tool and returns the result
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not connected")
	}

	req := mcp.CallToolRequest{
		Params: struct {
			Name      string    `json:"name"`
			Arguments any       `json:"arguments,omitempty"`
			Meta      *mcp.Meta `json:"_meta,omitempty"`
		}{
			Name:      name,
			Arguments: args,
		},
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.client.CallTool(timeoutCtx, req)
	if err != nil {
		return nil, fmt.Errorf("tool call failed: %w", err)
	}

	return result, nil
}

// CallToolSimple executes a tool and returns the first text content as a string
func (c *Client) CallToolSimple(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	result, err := c.CallTool(ctx, name, args)
	if err != nil {
		return "", err
	}

	var output []string
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			output = append(output, textContent.Text)
		}
	}

	if result.IsError {
		return "", fmt.Errorf("tool error: %v", output)
	}

	if len(output) == 0 {
		return "", nil
	}
	return output[0], nil
}

// CallToolJSON executes a tool and returns the result as parsed JSON.
// Non-JSON text results are returned as-is.
func (c *Client) CallToolJSON(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	textResult, err := c.CallToolSimple(ctx, name, args)
	if err != nil {
		return nil, err
	}

	var jsonResult interface{}
	if err := json.Unmarshal([]byte(textResult), &jsonResult); err != nil {
		return textResult, nil
	}
	return jsonResult, nil
}

// ProcessNotifications handles incoming notifications until the context is
// canceled. This is the main loop of the non-REPL agent mode.
func (c *Client) ProcessNotifications(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Shutting down...")
			return nil
		case notification := <-c.NotificationChan:
			if err := c.handleNotification(ctx, notification); err != nil {
				c.logger.Error("Failed to handle notification: %v", err)
			}
		}
	}
}

// Close closes the connection
func (c *Client) Close() error {
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	return nil
}

// PrettyJSON pretty-prints a value for display
func PrettyJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// Command interface implementations for Client

// GetToolCache returns the cached tool list
func (c *Client) GetToolCache() []mcp.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.toolCache
}

// GetFunctionCache returns the cached function catalog, keyed by service
func (c *Client) GetFunctionCache() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.functionCache
}

// GetFormatters returns the formatters for commands
func (c *Client) GetFormatters() interface{} {
	return c.formatters
}

// SetNotificationsEnabled toggles notification display. Cache refreshes
// still happen while display is off so completion stays current.
func (c *Client) SetNotificationsEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifyOutput = enabled
}

// notificationsEnabled reports whether notification output is on
func (c *Client) notificationsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notifyOutput
}

// SupportsNotifications returns whether the transport supports notifications
func (c *Client) SupportsNotifications() bool {
	return c.transport == TransportSSE || c.transport == TransportStreamableHTTP
}
