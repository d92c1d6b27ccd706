package agent

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
)

// handleNotification processes one incoming gateway notification: response
// payloads are rendered, catalog changes trigger a cache refresh with a
// diff display.
func (c *Client) handleNotification(ctx context.Context, notification mcp.JSONRPCNotification) error {
	display := c.notificationsEnabled()
	if display {
		c.logger.Notification(notification.Method, notification.Params)
	}

	switch notification.Method {
	case methodResponse:
		if display && !c.logger.jsonRPCMode {
			c.printResponse(notification.Params.AdditionalFields)
		}
		return nil

	case methodFunctionsChanged:
		if display {
			return c.listFunctions(ctx, false)
		}
		return c.RefreshFunctionCache(ctx)

	case methodToolsChanged:
		if display {
			return c.listTools(ctx, false)
		}
		return c.RefreshToolCache(ctx)
	}

	return nil
}

// printResponse renders an async or stream follow-up Response envelope.
func (c *Client) printResponse(fields map[string]any) {
	if len(fields) == 0 {
		return
	}
	c.logger.Output("%s", c.formatters.FormatResponseNotification(fields))
}

// showToolDiff displays the difference between old and new tool lists
// after a tool change notification.
func (c *Client) showToolDiff(oldTools, newTools []mcp.Tool) {
	oldNames := make([]string, len(oldTools))
	for i, tool := range oldTools {
		oldNames[i] = tool.Name
	}
	newNames := make([]string, len(newTools))
	for i, tool := range newTools {
		newNames[i] = tool.Name
	}

	added, removed := diffNames(oldNames, newNames)
	if len(added) == 0 && len(removed) == 0 {
		c.logger.Info("No tool changes detected")
		return
	}

	c.logger.Info("Tool changes detected:")
	for _, name := range added {
		c.logger.Success("  + Added: %s", name)
	}
	for _, name := range removed {
		c.logger.Error("  - Removed: %s", name)
	}
}

// showFunctionDiff displays the difference between old and new function
// catalogs after a functions_changed notification. Entries are compared
// as service/request_type pairs.
func (c *Client) showFunctionDiff(oldFunctions, newFunctions map[string][]string) {
	added, removed := diffNames(flattenCatalog(oldFunctions), flattenCatalog(newFunctions))
	if len(added) == 0 && len(removed) == 0 {
		c.logger.Info("No function changes detected")
		return
	}

	c.logger.Info("Function changes detected:")
	for _, name := range added {
		c.logger.Success("  + Added: %s", name)
	}
	for _, name := range removed {
		c.logger.Error("  - Removed: %s", name)
	}
}

// flattenCatalog turns a service catalog into sorted service/request_type keys.
func flattenCatalog(functions map[string][]string) []string {
	var keys []string
	for service, requestTypes := range functions {
		for _, requestType := range requestTypes {
			keys = append(keys, service+"/"+requestType)
		}
	}
	sort.Strings(keys)
	return keys
}

// diffNames compares two name lists and returns sorted added and removed
// entries.
func diffNames(oldNames, newNames []string) (added, removed []string) {
	oldSet := make(map[string]struct{}, len(oldNames))
	for _, name := range oldNames {
		oldSet[name] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(newNames))
	for _, name := range newNames {
		newSet[name] = struct{}{}
	}

	for name := range newSet {
		if _, exists := oldSet[name]; !exists {
			added = append(added, name)
		}
	}
	for name := range oldSet {
		if _, exists := newSet[name]; !exists {
			removed = append(removed, name)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
