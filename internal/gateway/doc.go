// Package gateway defines the domain types shared by every part of the
// dispatch core: the Request/Response envelope, FunctionSpec (the
// registered configuration of one callable endpoint), the resolved Call
// handed to invokers, the Receiver and Sink interfaces that connect the
// core to the transport layer, and the error taxonomy with its single
// error-to-Response mapping.
//
// The package holds no behavior beyond validation, cloning and error
// classification; registries, selectors, pools and executors build on it
// without it knowing them.
//
// # Error Taxonomy
//
// Execution failures fall into six classes: NotFoundError (unknown
// function/registration/session), PermissionError, ArgumentError,
// NodeSelectionError, CallError (classified client-caused vs internal) and
// the ErrQueueFull backpressure sentinel. ResponseForError is the one
// place errors become client-facing Responses; internal call failure
// detail is suppressed there unless verbose-error mode is configured.
package gateway
