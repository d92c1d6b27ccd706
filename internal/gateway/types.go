package gateway

import (
	"time"
)

// Request is the decoded inbound call descriptor handed to the core by the
// transport layer. It is immutable after decoding; nothing in the pipeline
// writes to it.
type Request struct {
	// RequestID is client-assigned and opaque; it correlates every Response
	// pushed for this request.
	RequestID string `json:"request_id"`

	// RequestType and Service select the FunctionSpec.
	RequestType string `json:"request_type"`
	Service     string `json:"service"`

	// UserID and DeviceID describe the claimed caller identity.
	UserID   string `json:"user_id,omitempty"`
	DeviceID string `json:"device_id,omitempty"`

	// Args carries the named call arguments. Values are scalars or
	// one-level lists/maps of scalars; never nil after decoding.
	Args map[string]any `json:"args,omitempty"`
}

// DecodeRequest builds a Request from a decoded transport payload.
// String fields must be strings when present; args must be a string-keyed
// map when present and defaults to an empty map when absent.
func DecodeRequest(payload map[string]any) (*Request, error) {
	req := &Request{Args: map[string]any{}}

	str := func(key string) (string, error) {
		v, ok := payload[key]
		if !ok || v == nil {
			return "", nil
		}
		s, ok := v.(string)
		if !ok {
			return "", NewArgumentError(key, "must be a string")
		}
		return s, nil
	}

	var err error
	if req.RequestID, err = str("request_id"); err != nil {
		return nil, err
	}
	if req.RequestType, err = str("request_type"); err != nil {
		return nil, err
	}
	if req.Service, err = str("service"); err != nil {
		return nil, err
	}
	if req.UserID, err = str("user_id"); err != nil {
		return nil, err
	}
	if req.DeviceID, err = str("device_id"); err != nil {
		return nil, err
	}

	if v, ok := payload["args"]; ok && v != nil {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, NewArgumentError("args", "must be a map of argument names to values")
		}
		req.Args = m
	}
	return req, nil
}

// Response is the normalized result envelope. Every outcome the core
// produces, success or failure, is one of these; internal faults never
// reach the transport layer in any other shape.
type Response struct {
	RequestID string `json:"request_id"`
	Result    any    `json:"result,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`

	// Async is true when more Responses may follow this one.
	Async bool `json:"async,omitempty"`

	// HasMore is true while a stream continues; the final Response of a
	// stream carries HasMore=false.
	HasMore bool `json:"has_more,omitempty"`

	// CanRetry marks transient failures (backpressure) the caller may
	// safely retry.
	CanRetry bool `json:"can_retry,omitempty"`

	// Silent marks the no-response marker produced for mode "none".
	// The transport layer sends nothing for a silent Response.
	Silent bool `json:"-"`
}

// NewResultResponse wraps a successful call result.
func NewResultResponse(requestID string, result any) *Response {
	return &Response{RequestID: requestID, Result: result, Success: true}
}

// NewAckResponse is the immediate acknowledgment for an accepted async
// call; the real result follows via the receiver.
func NewAckResponse(requestID string) *Response {
	return &Response{RequestID: requestID, Success: true, Async: true}
}

// NewSilentResponse is the marker returned for mode "none".
func NewSilentResponse(requestID string) *Response {
	return &Response{RequestID: requestID, Success: true, Silent: true}
}

// Receiver is the transport-side address the core pushes follow-up
// Responses to for async and stream calls. Implementations relay each
// Response to the client verbatim and must not block indefinitely.
type Receiver interface {
	Deliver(resp *Response)
}

// ReceiverFunc adapts a function to the Receiver interface.
type ReceiverFunc func(resp *Response)

func (f ReceiverFunc) Deliver(resp *Response) { f(resp) }

// Sink is the handle a streaming producer pushes results through. All
// methods return ErrSessionClosed once the session has reached a terminal
// phase; producers use that to detect downstream disinterest.
type Sink interface {
	// ID returns the session handle used by stop_stream.
	ID() string

	// Push forwards one intermediate result (has_more stays true).
	Push(result any) error

	// Final forwards the terminal result and completes the session.
	Final(result any) error

	// Fail terminates the session with an error.
	Fail(err error) error

	// Complete terminates the session without a payload.
	Complete() error
}

// CallInfo is the context object appended as the final call argument when
// a spec sets requestInfo. For stream calls the Session field carries the
// live sink; it is process-local and never serialized, remote producers
// see only the SessionID.
type CallInfo struct {
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Session   Sink   `json:"-"`
}

// Call is the fully resolved invocation handed to an invoker: target
// identity plus final positional arguments (fixed args, converted request
// args, optional CallInfo) and the per-call deadline.
type Call struct {
	Service  string
	Module   string
	Function string
	Args     []any
	Timeout  time.Duration
}
