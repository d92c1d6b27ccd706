package gateway

import (
	"errors"
	"fmt"
)

// NotFoundError reports that a requested resource does not exist.
// It carries the resource type and name so callers can report precisely
// what was missing, and supports a custom message when the default format
// is insufficient.
type NotFoundError struct {
	// ResourceType categorizes what was not found
	// (e.g. "function", "service registration", "stream session").
	ResourceType string

	// ResourceName is the identifier that was looked up.
	ResourceName string

	// Message overrides the default format when set.
	Message string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// IsNotFound checks if an error is a NotFoundError using error unwrapping.
//
// Example:
//
//	spec, err := reg.Get(service, requestType)
//	if gateway.IsNotFound(err) {
//	    // unknown request type
//	}
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// NewNotFoundError creates a NotFoundError for the given resource type and
// name.
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}

// Specific NotFoundError constructors for each resource type.
var (
	// NewFunctionNotFoundError reports an unknown service/request-type pair.
	NewFunctionNotFoundError = func(service, requestType string) *NotFoundError {
		return NewNotFoundError("function", service+"/"+requestType)
	}

	// NewRegistrationNotFoundError reports an unknown service registration.
	NewRegistrationNotFoundError = func(service string) *NotFoundError {
		return NewNotFoundError("service registration", service)
	}

	// NewSessionNotFoundError reports an unknown stream session handle.
	NewSessionNotFoundError = func(id string) *NotFoundError {
		return NewNotFoundError("stream session", id)
	}
)

// ArgumentError reports a request argument that failed validation or
// conversion: wrong type, over size limit, null, nested containers, or a
// key-set mismatch against the spec's schema.
type ArgumentError struct {
	// Arg is the offending argument name; empty when the error concerns
	// the argument set as a whole.
	Arg string

	// Reason describes the violation.
	Reason string
}

// Error implements the error interface for ArgumentError.
func (e *ArgumentError) Error() string {
	if e.Arg == "" {
		return fmt.Sprintf("invalid arguments: %s", e.Reason)
	}
	return fmt.Sprintf("invalid argument %q: %s", e.Arg, e.Reason)
}

// NewArgumentError creates an ArgumentError for one argument.
func NewArgumentError(arg, reasonFmt string, args ...any) *ArgumentError {
	return &ArgumentError{Arg: arg, Reason: fmt.Sprintf(reasonFmt, args...)}
}

// NewArgumentSetError creates an ArgumentError about the argument set as a
// whole (extra, missing, or miscounted arguments).
func NewArgumentSetError(reasonFmt string, args ...any) *ArgumentError {
	return &ArgumentError{Reason: fmt.Sprintf(reasonFmt, args...)}
}

// IsArgumentError checks if an error is an ArgumentError using error
// unwrapping.
func IsArgumentError(err error) bool {
	var argErr *ArgumentError
	return errors.As(err, &argErr)
}

// PermissionError reports a request denied by a spec's permission rule.
// The guard fails closed, so an absent argument and a mismatched one both
// produce this error.
type PermissionError struct {
	// Rule is the spec's permission rule that denied the request.
	Rule string
}

// Error implements the error interface for PermissionError.
func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied by rule %q", e.Rule)
}

// IsPermissionDenied checks if an error is a PermissionError using error
// unwrapping.
func IsPermissionDenied(err error) bool {
	var permErr *PermissionError
	return errors.As(err, &permErr)
}

// NodeSelectionError reports that no target node could be chosen: empty or
// invalid node list, resolver failure, or a missing hash key.
type NodeSelectionError struct {
	// Mode is the selection mode that failed.
	Mode string

	// Reason describes the failure.
	Reason string
}

// Error implements the error interface for NodeSelectionError.
func (e *NodeSelectionError) Error() string {
	return fmt.Sprintf("node selection (%s) failed: %s", e.Mode, e.Reason)
}

// NewNodeSelectionError creates a NodeSelectionError for the given mode.
func NewNodeSelectionError(mode, reasonFmt string, args ...any) *NodeSelectionError {
	return &NodeSelectionError{Mode: mode, Reason: fmt.Sprintf(reasonFmt, args...)}
}

// IsNodeSelectionError checks if an error is a NodeSelectionError using
// error unwrapping.
func IsNodeSelectionError(err error) bool {
	var selErr *NodeSelectionError
	return errors.As(err, &selErr)
}

// CallErrorKind classifies a failed target invocation.
type CallErrorKind int

const (
	// CallInternal covers timeouts, crashes, unreachable nodes and every
	// other failure the client did not cause. Its detail is suppressed in
	// Responses unless verbose-error mode is on.
	CallInternal CallErrorKind = iota

	// CallBadRequest covers failures the client caused: arguments the
	// target rejected, wrong arity, or a call target that does not exist.
	// Its detail is always shown.
	CallBadRequest
)

// CallError wraps a failure raised by dispatching or executing the target
// function, classified so the executor can decide how much detail the
// client sees.
type CallError struct {
	Kind CallErrorKind
	Err  error
}

// Error implements the error interface for CallError.
func (e *CallError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the underlying failure to errors.Is/As.
func (e *CallError) Unwrap() error {
	return e.Err
}

// NewInternalCallError wraps a failure the client did not cause.
func NewInternalCallError(err error) *CallError {
	return &CallError{Kind: CallInternal, Err: err}
}

// NewBadRequestCallError wraps a failure the client caused.
func NewBadRequestCallError(err error) *CallError {
	return &CallError{Kind: CallBadRequest, Err: err}
}

// AsCallError extracts a CallError via error unwrapping.
func AsCallError(err error) (*CallError, bool) {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr, true
	}
	return nil, false
}

// Sentinel errors shared across the execution pipeline.
var (
	// ErrQueueFull signals worker-pool backpressure. It maps to a
	// retryable error Response, never to an internal fault.
	ErrQueueFull = errors.New("worker pool queue full")

	// ErrSessionClosed is returned by every Sink method once the stream
	// session has reached a terminal phase.
	ErrSessionClosed = errors.New("stream session closed")
)

// Client-facing message used in place of internal failure detail when
// verbose-error mode is off.
const internalErrorMessage = "internal error"

// ResponseForError converts any error escaping the execution pipeline into
// the client-facing Response envelope. The mapping implements the error
// propagation policy in one place:
//
//   - NotFound, PermissionDenied, ArgumentError, NodeSelectionError:
//     non-retryable error Response carrying the error text.
//   - Backpressure (ErrQueueFull): retryable error Response (can_retry).
//   - CallError: bad-request failures keep their detail; internal failures
//     are reported as a generic message unless verbose is true.
//   - Anything else is treated as an internal call failure.
func ResponseForError(requestID string, err error, verbose bool) *Response {
	resp := &Response{RequestID: requestID, Success: false}

	switch {
	case IsNotFound(err), IsPermissionDenied(err), IsArgumentError(err), IsNodeSelectionError(err):
		resp.Error = err.Error()

	case errors.Is(err, ErrQueueFull):
		resp.Error = err.Error()
		resp.CanRetry = true

	default:
		callErr, ok := AsCallError(err)
		if ok && callErr.Kind == CallBadRequest {
			resp.Error = fmt.Sprintf("bad request: %v", callErr.Err)
			break
		}
		if verbose {
			resp.Error = fmt.Sprintf("%s: %v", internalErrorMessage, err)
		} else {
			resp.Error = internalErrorMessage
		}
	}
	return resp
}
