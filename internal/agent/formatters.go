package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mark3labs/mcp-go/mcp"
)

// Formatters renders gateway data for console output. Tables use rounded
// borders; colors follow the agent's --no-color flag.
type Formatters struct {
	useColor bool
}

// NewFormatters creates a new formatters instance
func NewFormatters(useColor bool) *Formatters {
	return &Formatters{useColor: useColor}
}

// paint applies a go-pretty color when colors are enabled
func (f *Formatters) paint(color text.Color, s string) string {
	if !f.useColor {
		return s
	}
	return color.Sprint(s)
}

// newTable creates a table writer with the standard agent styling
func (f *Formatters) newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

// FormatToolsList formats the gateway's tool surface as a table
func (f *Formatters) FormatToolsList(tools []mcp.Tool) string {
	if len(tools) == 0 {
		return "No tools available."
	}

	t := f.newTable()
	t.AppendHeader(table.Row{
		f.paint(text.FgHiCyan, "TOOL"),
		f.paint(text.FgHiCyan, "DESCRIPTION"),
	})
	for _, tool := range tools {
		t.AppendRow(table.Row{tool.Name, truncateText(tool.Description, 80)})
	}

	return fmt.Sprintf("Available tools (%d):\n%s", len(tools), t.Render())
}

// FormatToolDetail formats detailed tool information
func (f *Formatters) FormatToolDetail(tool mcp.Tool) string {
	var output []string
	output = append(output, fmt.Sprintf("Tool: %s", f.paint(text.FgHiWhite, tool.Name)))
	output = append(output, fmt.Sprintf("Description: %s", tool.Description))
	output = append(output, "Input Schema:")
	output = append(output, PrettyJSON(tool.InputSchema))
	return strings.Join(output, "\n")
}

// FormatFunctionsList formats the function catalog as a table with one row
// per registered service/request_type pair.
func (f *Formatters) FormatFunctionsList(functions map[string][]string) string {
	if len(functions) == 0 {
		return "No functions registered."
	}

	services := make([]string, 0, len(functions))
	for service := range functions {
		services = append(services, service)
	}
	sort.Strings(services)

	t := f.newTable()
	t.AppendHeader(table.Row{
		f.paint(text.FgHiCyan, "SERVICE"),
		f.paint(text.FgHiCyan, "REQUEST TYPE"),
	})

	total := 0
	for _, service := range services {
		requestTypes := append([]string(nil), functions[service]...)
		sort.Strings(requestTypes)
		for _, requestType := range requestTypes {
			t.AppendRow(table.Row{service, requestType})
			total++
		}
	}

	return fmt.Sprintf("Registered functions (%d):\n%s", total, t.Render())
}

// FormatRegistrations formats the service_registrations report as a table.
// The input is the parsed JSON payload of that tool.
func (f *Formatters) FormatRegistrations(report []interface{}) string {
	if len(report) == 0 {
		return "No services registered with the syncer."
	}

	t := f.newTable()
	t.AppendHeader(table.Row{
		f.paint(text.FgHiCyan, "SERVICE"),
		f.paint(text.FgHiCyan, "NODES"),
		f.paint(text.FgHiCyan, "ACCESSOR"),
		f.paint(text.FgHiCyan, "LAST SYNC"),
		f.paint(text.FgHiCyan, "STATUS"),
	})

	for _, entry := range report {
		reg, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}

		t.AppendRow(table.Row{
			stringField(reg, "service"),
			joinAnyList(reg["nodes"]),
			accessorField(reg["accessor"]),
			syncedAtField(reg["status"]),
			f.syncStatusField(reg["status"]),
		})
	}

	return fmt.Sprintf("Service registrations (%d):\n%s", len(report), t.Render())
}

// FormatPoolStatus formats the pool_status report as a table. The input is
// the parsed JSON payload of that tool: pool name to occupancy counters.
func (f *Formatters) FormatPoolStatus(pools map[string]interface{}) string {
	if len(pools) == 0 {
		return "No worker pools reported."
	}

	names := make([]string, 0, len(pools))
	for name := range pools {
		names = append(names, name)
	}
	sort.Strings(names)

	t := f.newTable()
	t.AppendHeader(table.Row{
		f.paint(text.FgHiCyan, "POOL"),
		f.paint(text.FgHiCyan, "IDLE"),
		f.paint(text.FgHiCyan, "BUSY"),
		f.paint(text.FgHiCyan, "QUEUED"),
	})

	for _, name := range names {
		status, ok := pools[name].(map[string]interface{})
		if !ok {
			continue
		}
		t.AppendRow(table.Row{
			name,
			numberField(status, "idle"),
			numberField(status, "busy"),
			numberField(status, "queued"),
		})
	}

	return fmt.Sprintf("Worker pools:\n%s", t.Render())
}

// FormatResponseNotification renders an async or stream follow-up Response
// envelope pushed by the gateway.
func (f *Formatters) FormatResponseNotification(fields map[string]any) string {
	var b strings.Builder

	requestID, _ := fields["request_id"].(string)
	success, _ := fields["success"].(bool)

	header := fmt.Sprintf("← Response for request %s", requestID)
	if hasMore, _ := fields["has_more"].(bool); hasMore {
		header += " (stream continues)"
	} else if async, _ := fields["async"].(bool); async {
		header += " (more to follow)"
	}

	if success {
		b.WriteString(f.paint(text.FgGreen, header))
	} else {
		b.WriteString(f.paint(text.FgRed, header+" FAILED"))
	}
	b.WriteString("\n")

	if errMsg, ok := fields["error"].(string); ok && errMsg != "" {
		b.WriteString(f.paint(text.FgRed, "  error: "+errMsg))
		b.WriteString("\n")
		if canRetry, _ := fields["can_retry"].(bool); canRetry {
			b.WriteString("  transient failure, safe to retry\n")
		}
	}

	if result, ok := fields["result"]; ok && result != nil {
		b.WriteString(PrettyJSON(result))
		b.WriteString("\n")
	}

	return b.String()
}

// FindTool looks up a tool by name
func (f *Formatters) FindTool(tools []mcp.Tool, name string) *mcp.Tool {
	for i := range tools {
		if tools[i].Name == name {
			return &tools[i]
		}
	}
	return nil
}

// syncStatusField renders a registration's last fetch outcome
func (f *Formatters) syncStatusField(v interface{}) string {
	status, ok := v.(map[string]interface{})
	if !ok {
		return "-"
	}
	if errMsg, ok := status["error"].(string); ok && errMsg != "" {
		return f.paint(text.FgRed, truncateText(errMsg, 40))
	}
	if syncedAt, ok := status["syncedAt"].(string); ok && !strings.HasPrefix(syncedAt, "0001-") {
		return f.paint(text.FgGreen, "ok")
	}
	return "pending"
}

// Helpers

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return "-"
}

func numberField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(float64); ok {
		return fmt.Sprintf("%d", int(v))
	}
	return "-"
}

func joinAnyList(v interface{}) string {
	list, ok := v.([]interface{})
	if !ok || len(list) == 0 {
		return "-"
	}
	parts := make([]string, len(list))
	for i, item := range list {
		parts[i] = fmt.Sprintf("%v", item)
	}
	return strings.Join(parts, ", ")
}

func accessorField(v interface{}) string {
	accessor, ok := v.(map[string]interface{})
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%s.%s", stringField(accessor, "module"), stringField(accessor, "function"))
}

func syncedAtField(v interface{}) string {
	status, ok := v.(map[string]interface{})
	if !ok {
		return "-"
	}
	syncedAt, ok := status["syncedAt"].(string)
	if !ok || strings.HasPrefix(syncedAt, "0001-") {
		return "never"
	}
	return syncedAt
}
