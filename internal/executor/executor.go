// Package executor runs the request pipeline: spec lookup, permission
// check, argument conversion, node selection and dispatch. Every outcome,
// success or failure, leaves as a normalized gateway.Response; internal
// faults never escape in any other shape.
package executor

import (
	"context"
	"fmt"
	"time"

	"switchboard/internal/args"
	"switchboard/internal/gateway"
	"switchboard/internal/guard"
	"switchboard/internal/pool"
	"switchboard/internal/stream"
	"switchboard/pkg/logging"
)

// DefaultStreamStartTimeout bounds how long a caller waits for a stream
// session's task to reach a worker before the dispatch is abandoned.
const DefaultStreamStartTimeout = 5 * time.Second

// SpecSource resolves service/request-type pairs to function specs.
type SpecSource interface {
	Get(service, requestType string) (*gateway.FunctionSpec, error)
}

// NodePicker chooses the target node for a remote spec.
type NodePicker interface {
	Pick(ctx context.Context, spec *gateway.FunctionSpec, req *gateway.Request) (string, error)
}

// LocalCaller runs in-process targets.
type LocalCaller interface {
	CallLocal(ctx context.Context, call gateway.Call) (any, error)
}

// RemoteCaller runs targets on cluster nodes.
type RemoteCaller interface {
	CallRemote(ctx context.Context, node string, call gateway.Call) (any, error)
	CallRemoteStream(ctx context.Context, node string, call gateway.Call, sink gateway.Sink) error
}

// TaskPool accepts background work, rejecting with gateway.ErrQueueFull on
// backpressure.
type TaskPool interface {
	Submit(task pool.Task) error
}

// Config carries the executor's collaborators.
type Config struct {
	Registry   SpecSource
	Selector   NodePicker
	Local      LocalCaller
	Remote     RemoteCaller
	AsyncPool  TaskPool
	StreamPool TaskPool
	Streams    *stream.Manager

	// VerboseErrors exposes internal failure detail in error Responses.
	VerboseErrors bool

	// StreamStartTimeout defaults to DefaultStreamStartTimeout.
	StreamStartTimeout time.Duration
}

// Executor coordinates the pipeline. It is stateless per request and safe
// for concurrent use.
type Executor struct {
	registry   SpecSource
	selector   NodePicker
	local      LocalCaller
	remote     RemoteCaller
	asyncPool  TaskPool
	streamPool TaskPool
	streams    *stream.Manager

	verbose      bool
	startTimeout time.Duration
}

// New creates an Executor from cfg.
func New(cfg Config) *Executor {
	startTimeout := cfg.StreamStartTimeout
	if startTimeout <= 0 {
		startTimeout = DefaultStreamStartTimeout
	}
	return &Executor{
		registry:     cfg.Registry,
		selector:     cfg.Selector,
		local:        cfg.Local,
		remote:       cfg.Remote,
		asyncPool:    cfg.AsyncPool,
		streamPool:   cfg.StreamPool,
		streams:      cfg.Streams,
		verbose:      cfg.VerboseErrors,
		startTimeout: startTimeout,
	}
}

// Execute resolves the request's spec and runs the pipeline. The receiver
// is where follow-up Responses for async and stream calls are pushed; the
// returned Response is the immediate answer (result, acknowledgment,
// stream-init, silent marker, or error).
func (e *Executor) Execute(ctx context.Context, req *gateway.Request, receiver gateway.Receiver) *gateway.Response {
	spec, err := e.registry.Get(req.Service, req.RequestType)
	if err != nil {
		logging.Debug("Executor", "Lookup failed for %s/%s: %v", req.Service, req.RequestType, err)
		return gateway.ResponseForError(req.RequestID, err, e.verbose)
	}
	return e.ExecuteWithSpec(ctx, req, spec, receiver)
}

// ExecuteWithSpec runs the pipeline against an already resolved spec. The
// spec must have passed Validate; registry entries always have.
func (e *Executor) ExecuteWithSpec(ctx context.Context, req *gateway.Request, spec *gateway.FunctionSpec, receiver gateway.Receiver) *gateway.Response {
	if err := guard.Check(req, spec); err != nil {
		logging.Info("Executor", "Denied %s/%s for user %q: %v", req.Service, req.RequestType, req.UserID, err)
		return gateway.ResponseForError(req.RequestID, err, e.verbose)
	}

	converted, err := args.Convert(spec, req)
	if err != nil {
		return gateway.ResponseForError(req.RequestID, err, e.verbose)
	}

	// The response mode set is closed; this switch enumerates it fully and
	// treats anything else as a configuration error.
	switch spec.ResponseMode {
	case gateway.ModeSync:
		return e.callSync(ctx, req, spec, converted)
	case gateway.ModeAsync:
		return e.dispatchAsync(ctx, req, spec, converted, receiver, false)
	case gateway.ModeNone:
		return e.dispatchAsync(ctx, req, spec, converted, receiver, true)
	case gateway.ModeStream:
		return e.dispatchStream(ctx, req, spec, converted, receiver)
	default:
		logging.Error("Executor", nil, "Spec %s/%s carries unhandled response mode %q", spec.Service, spec.RequestType, spec.ResponseMode)
		return gateway.ResponseForError(req.RequestID,
			gateway.NewInternalCallError(fmt.Errorf("unhandled response mode %q", spec.ResponseMode)), e.verbose)
	}
}

// callSync invokes the target in the caller's goroutine and maps the
// outcome to a Response.
func (e *Executor) callSync(ctx context.Context, req *gateway.Request, spec *gateway.FunctionSpec, converted []any) *gateway.Response {
	result, err := e.invoke(ctx, req, spec, converted, nil)
	if err != nil {
		return gateway.ResponseForError(req.RequestID, err, e.verbose)
	}
	return gateway.NewResultResponse(req.RequestID, result)
}

// dispatchAsync queues the call on the async pool. For async mode the
// caller gets an immediate acknowledgment and the real result reaches the
// receiver later; for none mode (silent) the caller gets the silent marker
// and failures are only logged.
func (e *Executor) dispatchAsync(ctx context.Context, req *gateway.Request, spec *gateway.FunctionSpec, converted []any, receiver gateway.Receiver, silent bool) *gateway.Response {
	// The task outlives the transport handler; it keeps the request's
	// context values (selection cursor) but not its cancellation.
	taskCtx := context.WithoutCancel(ctx)
	task := func() {
		resp := e.callSync(taskCtx, req, spec, converted)
		if silent {
			if !resp.Success {
				logging.Warn("Executor", "Dropped failed none-mode call %s/%s: %s", req.Service, req.RequestType, resp.Error)
			}
			return
		}
		receiver.Deliver(resp)
	}

	if err := e.asyncPool.Submit(task); err != nil {
		return gateway.ResponseForError(req.RequestID, err, e.verbose)
	}
	if silent {
		return gateway.NewSilentResponse(req.RequestID)
	}
	return gateway.NewAckResponse(req.RequestID)
}

// dispatchStream opens a session, hands its life to a stream worker and
// waits briefly for the worker to pick it up before acknowledging.
func (e *Executor) dispatchStream(ctx context.Context, req *gateway.Request, spec *gateway.FunctionSpec, converted []any, receiver gateway.Receiver) *gateway.Response {
	session := e.streams.Open(req, receiver)

	taskCtx := context.WithoutCancel(ctx)
	started := make(chan struct{})
	task := func() {
		close(started)
		session.Run(taskCtx, func(runCtx context.Context, sink gateway.Sink) error {
			return e.invokeStream(runCtx, req, spec, converted, sink)
		})
	}

	if err := e.streamPool.Submit(task); err != nil {
		e.streams.Abort(session)
		return gateway.ResponseForError(req.RequestID, err, e.verbose)
	}

	select {
	case <-started:
	case <-time.After(e.startTimeout):
		e.streams.Abort(session)
		logging.Warn("Executor", "Stream session %s for %s/%s not started within %s", session.ID(), req.Service, req.RequestType, e.startTimeout)
		return gateway.ResponseForError(req.RequestID, gateway.ErrQueueFull, e.verbose)
	case <-ctx.Done():
		e.streams.Abort(session)
		return gateway.ResponseForError(req.RequestID, gateway.NewInternalCallError(ctx.Err()), e.verbose)
	}

	return &gateway.Response{
		RequestID: req.RequestID,
		Success:   true,
		Async:     true,
		HasMore:   true,
		Result:    map[string]any{"session_id": session.ID()},
	}
}

// invoke runs one resolved call to completion: locally for "local" specs,
// otherwise on the selected node.
func (e *Executor) invoke(ctx context.Context, req *gateway.Request, spec *gateway.FunctionSpec, converted []any, sink gateway.Sink) (any, error) {
	call := buildCall(req, spec, converted, sink)
	if spec.IsLocal() {
		return e.local.CallLocal(ctx, call)
	}
	node, err := e.selector.Pick(ctx, spec, req)
	if err != nil {
		return nil, err
	}
	return e.remote.CallRemote(ctx, node, call)
}

// invokeStream runs the producer side of a stream. Local producers push
// through the sink in their CallInfo; remote producers stream frames that
// the remote caller pumps into the sink.
func (e *Executor) invokeStream(ctx context.Context, req *gateway.Request, spec *gateway.FunctionSpec, converted []any, sink gateway.Sink) error {
	call := buildCall(req, spec, converted, sink)
	if spec.IsLocal() {
		_, err := e.local.CallLocal(ctx, call)
		return err
	}
	node, err := e.selector.Pick(ctx, spec, req)
	if err != nil {
		return err
	}
	return e.remote.CallRemoteStream(ctx, node, call, sink)
}

// buildCall assembles the final positional arguments: fixed args first,
// converted request args next, and the CallInfo last when the spec asks
// for it. Stream dispatches carry the session in the CallInfo.
func buildCall(req *gateway.Request, spec *gateway.FunctionSpec, converted []any, sink gateway.Sink) gateway.Call {
	callArgs := make([]any, 0, len(spec.Target.FixedArgs)+len(converted)+1)
	callArgs = append(callArgs, spec.Target.FixedArgs...)
	callArgs = append(callArgs, converted...)
	if spec.RequestInfo {
		info := gateway.CallInfo{
			RequestID: req.RequestID,
			UserID:    req.UserID,
			DeviceID:  req.DeviceID,
		}
		if sink != nil {
			info.SessionID = sink.ID()
			info.Session = sink
		}
		callArgs = append(callArgs, info)
	}
	return gateway.Call{
		Service:  spec.Service,
		Module:   spec.Target.Module,
		Function: spec.Target.Function,
		Args:     callArgs,
		Timeout:  spec.CallTimeout(),
	}
}
