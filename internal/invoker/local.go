// Package invoker executes resolved calls against their targets: the Local
// invoker runs functions registered in-process, the Remote invoker dials
// cluster nodes over gRPC. Both classify failures as client-caused or
// internal so the executor can decide how much detail the caller sees.
package invoker

import (
	"context"
	"fmt"
	"sync"

	"switchboard/internal/gateway"
	"switchboard/internal/selector"
	"switchboard/pkg/logging"
)

// Func is an in-process target function. It receives the final positional
// call arguments; when the spec sets requestInfo the last argument is a
// gateway.CallInfo carrying caller identity and, for streams, the live
// session sink.
type Func func(ctx context.Context, args []any) (any, error)

// Local dispatches calls to functions registered in this process. Specs
// whose node source is the reserved entry "local" are routed here, as are
// the accessors behind dynamic node resolution and locally registered
// service registrations.
type Local struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewLocal creates an empty function table.
func NewLocal() *Local {
	return &Local{funcs: make(map[string]Func)}
}

// Register installs fn under module/function, replacing any previous entry.
func (l *Local) Register(module, function string, fn Func) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.funcs[localKey(module, function)] = fn
	logging.Debug("Invoker", "Registered local function %s.%s", module, function)
}

// CallLocal runs the registered function for call, bounded by the call's
// timeout. The function runs on its own goroutine; on timeout the result is
// abandoned but the function is not interrupted.
func (l *Local) CallLocal(ctx context.Context, call gateway.Call) (any, error) {
	l.mu.RLock()
	fn, ok := l.funcs[localKey(call.Module, call.Function)]
	l.mu.RUnlock()
	if !ok {
		return nil, gateway.NewBadRequestCallError(
			fmt.Errorf("unknown local function %s.%s", call.Module, call.Function))
	}

	timeout := call.Timeout
	if timeout <= 0 {
		timeout = gateway.DefaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: gateway.NewInternalCallError(
					fmt.Errorf("local function %s.%s panicked: %v", call.Module, call.Function, r))}
			}
		}()
		result, err := fn(callCtx, call.Args)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, classifyTargetError(out.err)
		}
		return out.result, nil
	case <-callCtx.Done():
		logging.Warn("Invoker", "Local call %s.%s timed out after %s", call.Module, call.Function, timeout)
		return nil, gateway.NewInternalCallError(
			fmt.Errorf("local call %s.%s timed out after %s", call.Module, call.Function, timeout))
	}
}

func localKey(module, function string) string {
	return module + "." + function
}

// classifyTargetError decides which failure class an error raised by a
// target function belongs to. Errors already classified pass through;
// argument-shaped failures count against the caller, everything else is an
// internal fault.
func classifyTargetError(err error) error {
	if _, ok := gateway.AsCallError(err); ok {
		return err
	}
	if gateway.IsArgumentError(err) {
		return gateway.NewBadRequestCallError(err)
	}
	return gateway.NewInternalCallError(err)
}

// Compile-time interface check.
var _ selector.Caller = (*Local)(nil)
