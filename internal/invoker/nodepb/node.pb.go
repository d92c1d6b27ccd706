// Package nodepb contains the message types for the node gRPC service the
// gateway dispatches remote calls through.
//
// These types are hand-written Go structs with JSON serialization instead
// of protobuf-generated code. This avoids requiring protoc for building
// while maintaining wire compatibility via gRPC's JSON codec.
//
// To regenerate proper protobuf code from node.proto:
//
//	protoc --go_out=. --go-grpc_out=. node.proto
package nodepb

// ExecuteRequest is the request for the Execute and ExecuteStream RPCs.
// Args carries the final positional call arguments as a JSON-encoded array.
type ExecuteRequest struct {
	Service  string `json:"service"`
	Module   string `json:"module"`
	Function string `json:"function"`
	Args     []byte `json:"args,omitempty"`
}

// ExecuteReply is the response from the Execute RPC. BadRequest marks
// failures the caller caused (rejected arguments, wrong arity, unknown
// target) as opposed to faults inside the node.
type ExecuteReply struct {
	Result     []byte `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	BadRequest bool   `json:"bad_request,omitempty"`
}

// FetchFunctionsRequest is the request for the FetchFunctions RPC. It names
// the accessor the node runs to produce its current function list.
type FetchFunctionsRequest struct {
	Module   string `json:"module"`
	Function string `json:"function"`
	Args     []byte `json:"args,omitempty"`
}

// FetchFunctionsReply is the response from the FetchFunctions RPC. Specs is
// a JSON-encoded array of function spec objects.
type FetchFunctionsReply struct {
	Specs []byte `json:"specs,omitempty"`
	Error string `json:"error,omitempty"`
}

// Frame kinds carried by StreamFrame.
const (
	FramePush     = "push"
	FrameFinal    = "final"
	FrameError    = "error"
	FrameComplete = "complete"
)

// StreamFrame is one message on an ExecuteStream. Kind is one of the frame
// kind constants; the stream ends at the first final, error or complete
// frame.
type StreamFrame struct {
	Kind   string `json:"kind"`
	Result []byte `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
