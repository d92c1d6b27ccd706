// Hand-written gRPC service definitions for the node service.
// Uses a JSON codec for wire format since we don't have protoc-generated code.

package nodepb

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

func init() {
	// NOTE: This globally registers a JSON codec for all gRPC connections in
	// the process. Individual calls select it via grpc.CallContentSubtype("json"),
	// so protobuf-based services are unaffected unless they also explicitly
	// request the "json" content subtype. This registration is required for
	// CallContentSubtype("json") to find a matching codec.
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec implements grpc encoding.Codec using JSON.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "json" }

// NodeServiceClient is the client API for NodeService.
type NodeServiceClient interface {
	Execute(ctx context.Context, in *ExecuteRequest, opts ...grpc.CallOption) (*ExecuteReply, error)
	FetchFunctions(ctx context.Context, in *FetchFunctionsRequest, opts ...grpc.CallOption) (*FetchFunctionsReply, error)
	ExecuteStream(ctx context.Context, in *ExecuteRequest, opts ...grpc.CallOption) (NodeService_ExecuteStreamClient, error)
}

type nodeServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewNodeServiceClient creates a new NodeServiceClient.
func NewNodeServiceClient(cc grpc.ClientConnInterface) NodeServiceClient {
	return &nodeServiceClient{cc}
}

func (c *nodeServiceClient) Execute(ctx context.Context, in *ExecuteRequest, opts ...grpc.CallOption) (*ExecuteReply, error) {
	out := new(ExecuteReply)
	opts = append(opts, grpc.CallContentSubtype("json"))
	err := c.cc.Invoke(ctx, "/switchboard.node.v1.NodeService/Execute", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeServiceClient) FetchFunctions(ctx context.Context, in *FetchFunctionsRequest, opts ...grpc.CallOption) (*FetchFunctionsReply, error) {
	out := new(FetchFunctionsReply)
	opts = append(opts, grpc.CallContentSubtype("json"))
	err := c.cc.Invoke(ctx, "/switchboard.node.v1.NodeService/FetchFunctions", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeServiceClient) ExecuteStream(ctx context.Context, in *ExecuteRequest, opts ...grpc.CallOption) (NodeService_ExecuteStreamClient, error) {
	opts = append(opts, grpc.CallContentSubtype("json"))
	stream, err := c.cc.NewStream(ctx, &NodeService_ServiceDesc.Streams[0], "/switchboard.node.v1.NodeService/ExecuteStream", opts...)
	if err != nil {
		return nil, err
	}
	x := &nodeServiceExecuteStreamClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// NodeService_ExecuteStreamClient is the client side of the ExecuteStream
// RPC. Recv returns io.EOF once the server closes the stream.
type NodeService_ExecuteStreamClient interface {
	Recv() (*StreamFrame, error)
	grpc.ClientStream
}

type nodeServiceExecuteStreamClient struct {
	grpc.ClientStream
}

func (x *nodeServiceExecuteStreamClient) Recv() (*StreamFrame, error) {
	m := new(StreamFrame)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// NodeServiceServer is the server API for NodeService.
type NodeServiceServer interface {
	Execute(context.Context, *ExecuteRequest) (*ExecuteReply, error)
	FetchFunctions(context.Context, *FetchFunctionsRequest) (*FetchFunctionsReply, error)
	ExecuteStream(*ExecuteRequest, NodeService_ExecuteStreamServer) error
	mustEmbedUnimplementedNodeServiceServer()
}

// UnimplementedNodeServiceServer provides default implementations.
type UnimplementedNodeServiceServer struct{}

func (UnimplementedNodeServiceServer) Execute(context.Context, *ExecuteRequest) (*ExecuteReply, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Execute not implemented")
}
func (UnimplementedNodeServiceServer) FetchFunctions(context.Context, *FetchFunctionsRequest) (*FetchFunctionsReply, error) {
	return nil, status.Errorf(codes.Unimplemented, "method FetchFunctions not implemented")
}
func (UnimplementedNodeServiceServer) ExecuteStream(*ExecuteRequest, NodeService_ExecuteStreamServer) error {
	return status.Errorf(codes.Unimplemented, "method ExecuteStream not implemented")
}
func (UnimplementedNodeServiceServer) mustEmbedUnimplementedNodeServiceServer() {}

// UnsafeNodeServiceServer may be embedded to opt out of forward compatibility.
type UnsafeNodeServiceServer interface {
	mustEmbedUnimplementedNodeServiceServer()
}

// RegisterNodeServiceServer registers the NodeService with a gRPC server.
func RegisterNodeServiceServer(s grpc.ServiceRegistrar, srv NodeServiceServer) {
	s.RegisterService(&NodeService_ServiceDesc, srv)
}

func _NodeService_Execute_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ExecuteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeServiceServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/switchboard.node.v1.NodeService/Execute"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeServiceServer).Execute(ctx, req.(*ExecuteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NodeService_FetchFunctions_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(FetchFunctionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeServiceServer).FetchFunctions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/switchboard.node.v1.NodeService/FetchFunctions"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeServiceServer).FetchFunctions(ctx, req.(*FetchFunctionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NodeService_ExecuteStream_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(ExecuteRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(NodeServiceServer).ExecuteStream(m, &nodeServiceExecuteStreamServer{stream})
}

// NodeService_ExecuteStreamServer is the server side of the ExecuteStream
// RPC.
type NodeService_ExecuteStreamServer interface {
	Send(*StreamFrame) error
	grpc.ServerStream
}

type nodeServiceExecuteStreamServer struct {
	grpc.ServerStream
}

func (x *nodeServiceExecuteStreamServer) Send(m *StreamFrame) error {
	return x.ServerStream.SendMsg(m)
}

// NodeService_ServiceDesc is the grpc.ServiceDesc for NodeService.
var NodeService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "switchboard.node.v1.NodeService",
	HandlerType: (*NodeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Execute", Handler: _NodeService_Execute_Handler},
		{MethodName: "FetchFunctions", Handler: _NodeService_FetchFunctions_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "ExecuteStream", Handler: _NodeService_ExecuteStream_Handler, ServerStreams: true},
	},
	Metadata: "node.proto",
}
