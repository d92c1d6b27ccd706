package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"switchboard/internal/agent/commands"

	"github.com/chzyer/readline"
	"github.com/mark3labs/mcp-go/mcp"
)

// promptUnicode is the REPL prompt on terminals with unicode support.
const promptUnicode = "sb » "

// promptASCII is the fallback prompt.
const promptASCII = "sb> "

// commandExecutionTimeout bounds individual REPL command execution. Five
// minutes leaves room for slow sync calls while still catching hung
// operations.
const commandExecutionTimeout = 5 * time.Minute

// REPL is the interactive mode of the agent: a readline loop with tab
// completion over the gateway's tool surface and function catalog,
// persistent history, and live notification display.
//
// Commands come from the commands subpackage and are dispatched through a
// registry with alias support. A background listener drains the client's
// notification channel so async and stream responses appear between
// prompts without corrupting the current input line.
type REPL struct {
	client           *Client
	logger           *Logger
	rl               *readline.Instance
	notificationChan chan mcp.JSONRPCNotification
	stopChan         chan struct{}
	wg               sync.WaitGroup
	commandRegistry  *commands.Registry
}

// NewREPL creates a new REPL backed by the given client. All commands are
// registered with their aliases and completion handlers.
func NewREPL(client *Client, logger *Logger) *REPL {
	repl := &REPL{
		client:           client,
		logger:           logger,
		notificationChan: make(chan mcp.JSONRPCNotification, 10),
		stopChan:         make(chan struct{}),
		commandRegistry:  commands.NewRegistry(),
	}

	repl.registerCommands()
	return repl
}

// registerCommands wires the full command set into the registry.
func (r *REPL) registerCommands() {
	transport := &transportAdapter{client: r.client}

	r.commandRegistry.Register("help", commands.NewHelpCommand(r.client, r.logger, transport, r.commandRegistry))
	r.commandRegistry.Register("list", commands.NewListCommand(r.client, r.logger, transport))
	r.commandRegistry.Register("describe", commands.NewDescribeCommand(r.client, r.logger, transport))
	r.commandRegistry.Register("exec", commands.NewExecCommand(r.client, r.logger, transport))
	r.commandRegistry.Register("call", commands.NewCallCommand(r.client, r.logger, transport))
	r.commandRegistry.Register("stop", commands.NewStopCommand(r.client, r.logger, transport))
	r.commandRegistry.Register("sync", commands.NewSyncCommand(r.client, r.logger, transport))
	r.commandRegistry.Register("notifications", commands.NewNotificationsCommand(r.client, r.logger, transport))
	r.commandRegistry.Register("exit", commands.NewExitCommand(r.client, r.logger, transport))
}

// transportAdapter exposes the client's transport capabilities to the
// command system without handing commands the whole client.
type transportAdapter struct {
	client *Client
}

// SupportsNotifications returns whether the underlying transport delivers
// notifications.
func (t *transportAdapter) SupportsNotifications() bool {
	return t.client.SupportsNotifications()
}

// prompt returns the REPL prompt, falling back to ASCII on dumb terminals.
func prompt() string {
	if supportsUnicode() {
		return promptUnicode
	}
	return promptASCII
}

// supportsUnicode checks whether the terminal likely renders unicode.
func supportsUnicode() bool {
	term := os.Getenv("TERM")
	if term == "" || term == "dumb" {
		return false
	}

	for _, v := range []string{os.Getenv("LC_ALL"), os.Getenv("LANG")} {
		v = strings.ToLower(v)
		if strings.Contains(v, "utf-8") || strings.Contains(v, "utf8") {
			return true
		}
	}

	// Most modern terminals handle unicode even without a UTF-8 locale.
	return true
}

// executeCommand parses one input line and dispatches it through the
// registry. Each command runs under its own timeout so a slow call cannot
// wedge the loop forever.
func (r *REPL) executeCommand(input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	commandName := strings.ToLower(parts[0])
	args := parts[1:]

	if commandName == "?" {
		commandName = "help"
	}

	command, exists := r.commandRegistry.Get(commandName)
	if !exists {
		return fmt.Errorf("unknown command: %s. Type 'help' for available commands", parts[0])
	}

	commandCtx, commandCancel := context.WithTimeout(context.Background(), commandExecutionTimeout)
	defer commandCancel()

	return command.Execute(commandCtx, args)
}

// Run starts the REPL and processes commands until the context is
// canceled, EOF (Ctrl+D), or an explicit exit command.
func (r *REPL) Run(ctx context.Context) error {
	// Route the client's notifications into the REPL's own channel so the
	// listener can repaint the prompt around them.
	if r.client.SupportsNotifications() && r.client.NotificationChan != nil {
		go func() {
			for notification := range r.client.NotificationChan {
				select {
				case r.notificationChan <- notification:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	completer := r.createCompleter()
	historyFile := filepath.Join(os.TempDir(), ".switchboard_agent_history")

	config := &readline.Config{
		Prompt:          prompt(),
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()
	r.rl = rl

	if r.client.SupportsNotifications() {
		r.wg.Add(1)
		go r.notificationListener(ctx)
		r.logger.Info("Switchboard REPL started with notification support. Type 'help' for available commands. Use TAB for completion.")
	} else {
		r.logger.Info("Switchboard REPL started. Type 'help' for available commands. Use TAB for completion.")
		r.logger.Info("Note: Real-time notifications are not supported with %s transport.", r.client.transport)
	}
	fmt.Println()

	for {
		select {
		case <-ctx.Done():
			r.stopListener()
			r.logger.Info("REPL shutting down...")
			return nil
		default:
		}

		line, err := r.rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				continue // Empty line on Ctrl+C, keep going
			}
		} else if err == io.EOF {
			r.stopListener()
			r.logger.Info("Goodbye!")
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if err := r.executeCommand(input); err != nil {
			if err.Error() == "exit" {
				r.stopListener()
				r.logger.Info("Goodbye!")
				return nil
			}
			r.logger.Error("Error: %v", err)
		}

		fmt.Println() // Spacing between commands
	}
}

// stopListener shuts down the notification listener if one is running.
func (r *REPL) stopListener() {
	if r.client.SupportsNotifications() {
		close(r.stopChan)
		r.wg.Wait()
	}
}

// notificationListener displays notifications between prompts: it clears
// the current line, lets the client handle the notification (which prints
// the payload and refreshes caches), updates tab completion when the
// catalog changed, and repaints the prompt.
func (r *REPL) notificationListener(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case notification := <-r.notificationChan:
			if r.rl != nil {
				r.rl.Stdout().Write([]byte("\r\033[K"))
			}

			if err := r.client.handleNotification(ctx, notification); err != nil {
				r.logger.Error("Failed to handle notification: %v", err)
			}

			switch notification.Method {
			case methodFunctionsChanged, methodToolsChanged:
				if r.rl != nil {
					r.rl.Config.AutoComplete = r.createCompleter()
				}
			}

			if r.rl != nil {
				r.rl.Refresh()
			}
		}
	}
}
