package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"switchboard/internal/gateway"
	"switchboard/internal/pool"
	"switchboard/internal/syncer"
	"switchboard/pkg/logging"
)

// registerTools defines the operator tool surface on the MCP server.
func (g *GatewayServer) registerTools(srv *mcpserver.MCPServer) {
	executeTool := mcp.NewTool("gateway_execute",
		mcp.WithDescription("Execute a request against a registered function. Sync results return directly; async and stream results arrive as notifications/switchboard/response notifications correlated by request_id."),
		mcp.WithString("service",
			mcp.Required(),
			mcp.Description("Service the function belongs to"),
		),
		mcp.WithString("request_type",
			mcp.Required(),
			mcp.Description("Request type registered for the service"),
		),
		mcp.WithString("request_id",
			mcp.Description("Correlation ID for responses, generated when omitted"),
		),
		mcp.WithString("user_id",
			mcp.Description("Caller user identity"),
		),
		mcp.WithString("device_id",
			mcp.Description("Caller device identity"),
		),
		mcp.WithObject("args",
			mcp.Description("Named request arguments"),
		),
	)
	srv.AddTool(executeTool, g.handleGatewayExecute)

	functionListTool := mcp.NewTool("function_list",
		mcp.WithDescription("List registered request types grouped by service"),
	)
	srv.AddTool(functionListTool, g.handleFunctionList)

	functionGetTool := mcp.NewTool("function_get",
		mcp.WithDescription("Get the full configuration of one registered function"),
		mcp.WithString("service",
			mcp.Required(),
			mcp.Description("Service the function belongs to"),
		),
		mcp.WithString("request_type",
			mcp.Required(),
			mcp.Description("Request type of the function"),
		),
	)
	srv.AddTool(functionGetTool, g.handleFunctionGet)

	functionAddTool := mcp.NewTool("function_add",
		mcp.WithDescription("Register a function configuration"),
		mcp.WithObject("spec",
			mcp.Required(),
			mcp.Description("Function configuration (service, requestType, nodes, target, argTypes, responseMode, ...)"),
		),
	)
	srv.AddTool(functionAddTool, g.handleFunctionAdd)

	functionUpdateTool := mcp.NewTool("function_update",
		mcp.WithDescription("Update a registered function configuration"),
		mcp.WithObject("spec",
			mcp.Required(),
			mcp.Description("Function configuration replacing the registered one"),
		),
	)
	srv.AddTool(functionUpdateTool, g.handleFunctionUpdate)

	functionDeleteTool := mcp.NewTool("function_delete",
		mcp.WithDescription("Remove a registered function"),
		mcp.WithString("service",
			mcp.Required(),
			mcp.Description("Service the function belongs to"),
		),
		mcp.WithString("request_type",
			mcp.Required(),
			mcp.Description("Request type of the function"),
		),
	)
	srv.AddTool(functionDeleteTool, g.handleFunctionDelete)

	serviceRegisterTool := mcp.NewTool("service_register",
		mcp.WithDescription("Register a service with the registry syncer so its function list is pulled periodically"),
		mcp.WithObject("registration",
			mcp.Required(),
			mcp.Description("Service registration (service, nodes, accessor)"),
		),
	)
	srv.AddTool(serviceRegisterTool, g.handleServiceRegister)

	serviceUnregisterTool := mcp.NewTool("service_unregister",
		mcp.WithDescription("Remove a service from the registry syncer. Already registered functions stay until replaced or deleted."),
		mcp.WithString("service",
			mcp.Required(),
			mcp.Description("Service to stop syncing"),
		),
	)
	srv.AddTool(serviceUnregisterTool, g.handleServiceUnregister)

	serviceRegistrationsTool := mcp.NewTool("service_registrations",
		mcp.WithDescription("List registered services with their last sync status"),
	)
	srv.AddTool(serviceRegistrationsTool, g.handleServiceRegistrations)

	syncNowTool := mcp.NewTool("sync_now",
		mcp.WithDescription("Run a registry sync pass immediately and report the result"),
	)
	srv.AddTool(syncNowTool, g.handleSyncNow)

	streamStopTool := mcp.NewTool("stream_stop",
		mcp.WithDescription("Stop a live stream session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session handle from the stream's acknowledgment"),
		),
	)
	srv.AddTool(streamStopTool, g.handleStreamStop)

	poolStatusTool := mcp.NewTool("pool_status",
		mcp.WithDescription("Report worker pool occupancy"),
	)
	srv.AddTool(poolStatusTool, g.handlePoolStatus)
}

// handleGatewayExecute decodes the tool arguments into a Request and runs
// it through the pipeline. The initial Response envelope is the tool
// result; follow-ups go out as notifications.
func (g *GatewayServer) handleGatewayExecute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := gateway.DecodeRequest(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	resp := g.executor.Execute(ctx, req, g.receiver)
	return responseResult(resp), nil
}

func (g *GatewayServer) handleFunctionList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(g.registry.ListAll()), nil
}

func (g *GatewayServer) handleFunctionGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	service, requestType, err := functionKeyArgs(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	spec, err := g.registry.Get(service, requestType)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(spec), nil
}

func (g *GatewayServer) handleFunctionAdd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	spec, err := specFromArgs(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := g.registry.Add(spec); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	logging.Info("Server", "Operator registered function %s/%s", spec.Service, spec.RequestType)
	return mcp.NewToolResultText(fmt.Sprintf("Registered function %s/%s", spec.Service, spec.RequestType)), nil
}

func (g *GatewayServer) handleFunctionUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	spec, err := specFromArgs(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := g.registry.Update(spec); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	logging.Info("Server", "Operator updated function %s/%s", spec.Service, spec.RequestType)
	return mcp.NewToolResultText(fmt.Sprintf("Updated function %s/%s", spec.Service, spec.RequestType)), nil
}

func (g *GatewayServer) handleFunctionDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	service, requestType, err := functionKeyArgs(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	g.registry.Delete(service, requestType)
	logging.Info("Server", "Operator removed function %s/%s", service, requestType)
	return mcp.NewToolResultText(fmt.Sprintf("Removed function %s/%s", service, requestType)), nil
}

func (g *GatewayServer) handleServiceRegister(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := request.GetArguments()["registration"].(map[string]any)
	if !ok {
		return mcp.NewToolResultError("registration must be an object"), nil
	}

	var reg gateway.ServiceRegistration
	if err := decodeInto(raw, &reg); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid registration: %v", err)), nil
	}
	if err := g.syncer.Register(reg); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Registered service %s with %d nodes", reg.Service, len(reg.Nodes))), nil
}

func (g *GatewayServer) handleServiceUnregister(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	service, ok := request.GetArguments()["service"].(string)
	if !ok || service == "" {
		return mcp.NewToolResultError("service must be a non-empty string"), nil
	}

	g.syncer.Unregister(service)
	return mcp.NewToolResultText(fmt.Sprintf("Unregistered service %s", service)), nil
}

// registrationStatus is one service_registrations entry: the registration
// plus its most recent pull outcome.
type registrationStatus struct {
	gateway.ServiceRegistration
	Status syncer.FetchStatus `json:"status"`
}

func (g *GatewayServer) handleServiceRegistrations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(g.registrationReport()), nil
}

func (g *GatewayServer) handleSyncNow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g.syncer.ForceSync(ctx)
	return jsonResult(g.registrationReport()), nil
}

func (g *GatewayServer) registrationReport() []registrationStatus {
	regs := g.syncer.Registrations()
	report := make([]registrationStatus, 0, len(regs))
	for _, reg := range regs {
		status, _ := g.syncer.Status(reg.Service)
		report = append(report, registrationStatus{ServiceRegistration: reg, Status: status})
	}
	return report
}

func (g *GatewayServer) handleStreamStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, ok := request.GetArguments()["session_id"].(string)
	if !ok || sessionID == "" {
		return mcp.NewToolResultError("session_id must be a non-empty string"), nil
	}

	if err := g.streams.Stop(sessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Stopped stream session %s", sessionID)), nil
}

func (g *GatewayServer) handlePoolStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]pool.Status{
		"async":  g.asyncPool.Status(),
		"stream": g.streamPool.Status(),
	}), nil
}

// functionKeyArgs extracts the service/request_type pair shared by the
// single-function tools.
func functionKeyArgs(request mcp.CallToolRequest) (string, string, error) {
	args := request.GetArguments()
	service, ok := args["service"].(string)
	if !ok || service == "" {
		return "", "", fmt.Errorf("service must be a non-empty string")
	}
	requestType, ok := args["request_type"].(string)
	if !ok || requestType == "" {
		return "", "", fmt.Errorf("request_type must be a non-empty string")
	}
	return service, requestType, nil
}

// specFromArgs decodes the spec tool argument into a FunctionSpec.
func specFromArgs(args map[string]any) (*gateway.FunctionSpec, error) {
	raw, ok := args["spec"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("spec must be an object")
	}

	var spec gateway.FunctionSpec
	if err := decodeInto(raw, &spec); err != nil {
		return nil, fmt.Errorf("invalid spec: %w", err)
	}
	return &spec, nil
}

// decodeInto converts a decoded JSON object into a typed struct.
func decodeInto(raw map[string]any, out any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// jsonResult marshals v into a text tool result.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// responseResult converts a Response envelope into a tool result. Failed
// envelopes keep their content but flag the result as an error.
func responseResult(resp *gateway.Response) *mcp.CallToolResult {
	result := jsonResult(resp)
	result.IsError = !resp.Success
	return result
}
