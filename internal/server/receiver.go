package server

import (
	"encoding/json"

	"switchboard/internal/gateway"
)

// notificationReceiver relays follow-up Responses to every connected MCP
// client as notifications. Delivery is broadcast; the request_id in each
// payload lets consumers pick out their responses.
type notificationReceiver struct {
	srv *GatewayServer
}

func (r *notificationReceiver) Deliver(resp *gateway.Response) {
	if resp == nil || resp.Silent {
		return
	}

	r.srv.mu.RLock()
	mcpSrv := r.srv.server
	r.srv.mu.RUnlock()
	if mcpSrv == nil {
		// Late delivery after shutdown; nowhere to send it.
		return
	}

	mcpSrv.SendNotificationToAllClients(methodResponse, responseParams(resp))
}

// responseParams flattens a Response into notification params. Zero-value
// envelope fields are omitted by the Response's own JSON tags.
func responseParams(resp *gateway.Response) map[string]any {
	data, err := json.Marshal(resp)
	if err != nil {
		return map[string]any{"request_id": resp.RequestID, "success": false, "error": "internal error"}
	}

	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return map[string]any{"request_id": resp.RequestID, "success": false, "error": "internal error"}
	}
	return params
}
