package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/mark3labs/mcp-go/mcp"
)

// NoSpaceDynamicCompleter is a custom completer that doesn't add trailing
// spaces for completions ending with special characters like "=".
// readline's built-in PcItemDynamic always adds a trailing space, which
// breaks key=value argument completion.
type NoSpaceDynamicCompleter struct {
	Callback func(string) []string
	Children []readline.PrefixCompleterInterface
}

// GetName returns an empty name since this is a dynamic completer
func (n *NoSpaceDynamicCompleter) GetName() []rune {
	return nil
}

// GetChildren returns the child completers
func (n *NoSpaceDynamicCompleter) GetChildren() []readline.PrefixCompleterInterface {
	return n.Children
}

// SetChildren sets the child completers
func (n *NoSpaceDynamicCompleter) SetChildren(children []readline.PrefixCompleterInterface) {
	n.Children = children
}

// IsDynamic returns true since this is a dynamic completer
func (n *NoSpaceDynamicCompleter) IsDynamic() bool {
	return true
}

// GetDynamicNames returns completions without trailing spaces for items
// ending with "=" so the user can type the value immediately.
func (n *NoSpaceDynamicCompleter) GetDynamicNames(line []rune) [][]rune {
	var names [][]rune
	for _, name := range n.Callback(string(line)) {
		if strings.HasSuffix(name, "=") {
			names = append(names, []rune(name))
		} else {
			names = append(names, []rune(name+" "))
		}
	}
	return names
}

// Print implements the PrefixCompleterInterface
func (n *NoSpaceDynamicCompleter) Print(prefix string, level int, buf *bytes.Buffer) {
	// Dynamic completers don't print static names
}

// Do implements the AutoCompleter interface
func (n *NoSpaceDynamicCompleter) Do(line []rune, pos int) ([][]rune, int) {
	return doNoSpaceInternal(n, line, pos, line)
}

// doNoSpaceInternal handles the completion logic
func doNoSpaceInternal(p readline.PrefixCompleterInterface, line []rune, pos int, origLine []rune) ([][]rune, int) {
	// Trim leading spaces
	trimmed := line[:pos]
	for len(trimmed) > 0 && trimmed[0] == ' ' {
		trimmed = trimmed[1:]
	}

	var newLine [][]rune
	var offset int
	var lineCompleter readline.PrefixCompleterInterface
	goNext := false

	for _, child := range p.GetChildren() {
		var childNames [][]rune

		if dynChild, ok := child.(interface {
			IsDynamic() bool
			GetDynamicNames([]rune) [][]rune
		}); ok && dynChild.IsDynamic() {
			childNames = dynChild.GetDynamicNames(origLine)
		} else {
			childNames = [][]rune{child.GetName()}
		}

		for _, childName := range childNames {
			if len(trimmed) >= len(childName) {
				if hasPrefix(trimmed, childName) {
					if len(trimmed) == len(childName) {
						newLine = append(newLine, []rune{' '})
					} else {
						newLine = append(newLine, childName)
					}
					offset = len(childName)
					lineCompleter = child
					goNext = true
				}
			} else {
				if hasPrefix(childName, trimmed) {
					newLine = append(newLine, childName[len(trimmed):])
					offset = len(trimmed)
					lineCompleter = child
				}
			}
		}
	}

	if len(newLine) != 1 {
		return newLine, offset
	}

	tmpLine := make([]rune, 0, len(trimmed))
	for i := offset; i < len(trimmed); i++ {
		if trimmed[i] == ' ' {
			continue
		}
		tmpLine = append(tmpLine, trimmed[i:]...)
		return doNoSpaceInternal(lineCompleter, tmpLine, len(tmpLine), origLine)
	}

	if goNext {
		return doNoSpaceInternal(lineCompleter, nil, 0, origLine)
	}
	return newLine, offset
}

// hasPrefix checks if s starts with prefix
func hasPrefix(s, prefix []rune) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i, r := range prefix {
		if s[i] != r {
			return false
		}
	}
	return true
}

// createCompleter builds the tab completion tree from the command registry
// and the cached tool surface and function catalog.
func (r *REPL) createCompleter() *readline.PrefixCompleter {
	r.client.mu.RLock()
	toolCache := make([]mcp.Tool, len(r.client.toolCache))
	copy(toolCache, r.client.toolCache)
	functionCache := make(map[string][]string, len(r.client.functionCache))
	for service, requestTypes := range r.client.functionCache {
		functionCache[service] = append([]string(nil), requestTypes...)
	}
	r.client.mu.RUnlock()

	toolCompleter := make([]readline.PrefixCompleterInterface, len(toolCache))
	for i := range toolCache {
		toolCompleter[i] = readline.PcItem(toolCache[i].Name)
	}

	services := make([]string, 0, len(functionCache))
	for service := range functionCache {
		services = append(services, service)
	}
	sort.Strings(services)

	// exec completes service, then request type, then argument names
	// looked up from the function's configuration.
	execCompleter := make([]readline.PrefixCompleterInterface, len(services))
	functionCompleter := make([]readline.PrefixCompleterInterface, len(services))
	for i, service := range services {
		requestTypes := append([]string(nil), functionCache[service]...)
		sort.Strings(requestTypes)

		execChildren := make([]readline.PrefixCompleterInterface, len(requestTypes))
		plainChildren := make([]readline.PrefixCompleterInterface, len(requestTypes))
		for j, requestType := range requestTypes {
			execChildren[j] = readline.PcItem(requestType,
				&NoSpaceDynamicCompleter{Callback: r.createExecArgCompleter(service, requestType)})
			plainChildren[j] = readline.PcItem(requestType)
		}
		execCompleter[i] = readline.PcItem(service, execChildren...)
		functionCompleter[i] = readline.PcItem(service, plainChildren...)
	}

	commandNames := r.commandRegistry.AllCompletions()
	helpCompleters := make([]readline.PrefixCompleterInterface, len(commandNames))
	for i, name := range commandNames {
		helpCompleters[i] = readline.PcItem(name)
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("help", helpCompleters...),
		readline.PcItem("?"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
		readline.PcItem("list",
			readline.PcItem("tools"),
			readline.PcItem("functions"),
			readline.PcItem("services"),
			readline.PcItem("pools"),
		),
		readline.PcItem("describe",
			readline.PcItem("tool", toolCompleter...),
			readline.PcItem("function", functionCompleter...),
		),
		readline.PcItem("exec", execCompleter...),
		readline.PcItem("x", execCompleter...),
		readline.PcItem("call", toolCompleter...),
		readline.PcItem("stop"),
		readline.PcItem("sync"),
		readline.PcItem("notifications",
			readline.PcItem("on"),
			readline.PcItem("off"),
		),
	)
}

// createExecArgCompleter returns a completion function for a function's
// argument names, fetched live from its registered configuration.
func (r *REPL) createExecArgCompleter(service, requestType string) readline.DynamicCompleteFunc {
	return func(line string) []string {
		// Short timeout; completion must not stall the prompt.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		raw, err := r.client.CallToolSimple(ctx, "function_get", map[string]interface{}{
			"service":      service,
			"request_type": requestType,
		})
		if err != nil {
			return []string{}
		}

		var spec struct {
			ArgTypes map[string]string `json:"argTypes"`
		}
		if err := json.Unmarshal([]byte(raw), &spec); err != nil || len(spec.ArgTypes) == 0 {
			return []string{}
		}

		names := make([]string, 0, len(spec.ArgTypes))
		for name := range spec.ArgTypes {
			names = append(names, name)
		}
		sort.Strings(names)

		// Skip arguments already present on the line
		var completions []string
		for _, name := range names {
			if !strings.Contains(line, name+"=") {
				completions = append(completions, name+"=")
			}
		}
		return completions
	}
}

// filterInput filters input characters for readline
func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}
