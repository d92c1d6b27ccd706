package invoker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"switchboard/internal/gateway"
	"switchboard/internal/invoker/nodepb"
	"switchboard/pkg/logging"
)

// Circuit breaker settings per node.
const (
	breakerMaxFailures uint32 = 5
	breakerTimeout            = 30 * time.Second
	breakerInterval           = 60 * time.Second
)

// Remote invokes functions on cluster nodes via gRPC. Connections are
// cached per address and reused across invocations; each address also gets
// a circuit breaker so a dead node fails fast instead of eating a dial
// timeout on every call.
type Remote struct {
	mu       sync.Mutex
	conns    map[string]*grpc.ClientConn
	breakers map[string]*gobreaker.CircuitBreaker[*nodepb.ExecuteReply]
}

// NewRemote creates a Remote with empty connection and breaker caches.
func NewRemote() *Remote {
	return &Remote{
		conns:    make(map[string]*grpc.ClientConn),
		breakers: make(map[string]*gobreaker.CircuitBreaker[*nodepb.ExecuteReply]),
	}
}

// getConn returns a cached connection or creates a new one.
func (r *Remote) getConn(address string) (*grpc.ClientConn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[address]; ok {
		return conn, nil
	}

	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype("json")),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc connect %s: %w", address, err)
	}
	r.conns[address] = conn
	return conn, nil
}

// evict drops a cached connection after an RPC failure so the next call
// redials instead of reusing a possibly broken channel.
func (r *Remote) evict(address string, conn *grpc.ClientConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[address] == conn {
		delete(r.conns, address)
		_ = conn.Close()
	}
}

// breakerFor returns the circuit breaker guarding one node address,
// creating it on first use.
func (r *Remote) breakerFor(address string) *gobreaker.CircuitBreaker[*nodepb.ExecuteReply] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[address]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[*nodepb.ExecuteReply](gobreaker.Settings{
		Name:        "node:" + address,
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn("Invoker", "Circuit breaker %s changed state from %s to %s", name, from.String(), to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})
	r.breakers[address] = cb
	return cb
}

// CallRemote runs one unary Execute against the node at address, bounded by
// the call's timeout. Only transport-level failures trip the breaker and
// evict the cached connection; errors the target itself reports do not.
func (r *Remote) CallRemote(ctx context.Context, address string, call gateway.Call) (any, error) {
	argsJSON, err := json.Marshal(call.Args)
	if err != nil {
		return nil, gateway.NewInternalCallError(fmt.Errorf("encode call args: %w", err))
	}

	conn, err := r.getConn(address)
	if err != nil {
		return nil, gateway.NewInternalCallError(err)
	}

	timeout := call.Timeout
	if timeout <= 0 {
		timeout = gateway.DefaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := nodepb.NewNodeServiceClient(conn)
	reply, err := r.breakerFor(address).Execute(func() (*nodepb.ExecuteReply, error) {
		out, rpcErr := client.Execute(callCtx, &nodepb.ExecuteRequest{
			Service:  call.Service,
			Module:   call.Module,
			Function: call.Function,
			Args:     argsJSON,
		})
		if rpcErr != nil {
			r.evict(address, conn)
			return nil, rpcErr
		}
		return out, nil
	})
	if err != nil {
		return nil, classifyRPCError(address, err)
	}

	if reply.Error != "" {
		nodeErr := fmt.Errorf("node %s: %s", address, reply.Error)
		if reply.BadRequest {
			return nil, gateway.NewBadRequestCallError(nodeErr)
		}
		return nil, gateway.NewInternalCallError(nodeErr)
	}

	logging.Debug("Invoker", "Remote call %s.%s on %s complete", call.Module, call.Function, address)
	return decodeResult(reply.Result)
}

// CallRemoteStream opens an ExecuteStream against the node at address and
// pumps every received frame into sink until a terminal frame, stream end,
// or downstream disinterest. The breaker protects stream initiation only;
// frame errors after the stream is up do not trip it.
func (r *Remote) CallRemoteStream(ctx context.Context, address string, call gateway.Call, sink gateway.Sink) error {
	argsJSON, err := json.Marshal(call.Args)
	if err != nil {
		return gateway.NewInternalCallError(fmt.Errorf("encode call args: %w", err))
	}

	conn, err := r.getConn(address)
	if err != nil {
		return gateway.NewInternalCallError(err)
	}

	// Cancel tears the RPC down when the pump returns for any reason.
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := nodepb.NewNodeServiceClient(conn)
	var sc nodepb.NodeService_ExecuteStreamClient
	_, err = r.breakerFor(address).Execute(func() (*nodepb.ExecuteReply, error) {
		var openErr error
		sc, openErr = client.ExecuteStream(streamCtx, &nodepb.ExecuteRequest{
			Service:  call.Service,
			Module:   call.Module,
			Function: call.Function,
			Args:     argsJSON,
		})
		if openErr != nil {
			r.evict(address, conn)
		}
		return nil, openErr
	})
	if err != nil {
		return classifyRPCError(address, err)
	}

	for {
		frame, err := sc.Recv()
		if err == io.EOF {
			// Stream ended without a terminal frame.
			_ = sink.Complete()
			return nil
		}
		if err != nil {
			r.evict(address, conn)
			return gateway.NewInternalCallError(fmt.Errorf("stream from node %s failed: %w", address, err))
		}

		switch frame.Kind {
		case nodepb.FramePush:
			result, err := decodeResult(frame.Result)
			if err != nil {
				return err
			}
			if sink.Push(result) != nil {
				// Downstream closed; stop pumping, the producer side is
				// torn down by the deferred cancel.
				return nil
			}
		case nodepb.FrameFinal:
			result, err := decodeResult(frame.Result)
			if err != nil {
				return err
			}
			_ = sink.Final(result)
			return nil
		case nodepb.FrameError:
			_ = sink.Fail(gateway.NewInternalCallError(fmt.Errorf("node %s: %s", address, frame.Error)))
			return nil
		case nodepb.FrameComplete:
			_ = sink.Complete()
			return nil
		default:
			logging.Warn("Invoker", "Node %s sent unknown stream frame kind %q", address, frame.Kind)
		}
	}
}

// FetchFunctions asks the node at address for the current function list of
// one service by running the registration's accessor there.
func (r *Remote) FetchFunctions(ctx context.Context, address string, accessor gateway.Accessor, timeout time.Duration) ([]*gateway.FunctionSpec, error) {
	argsJSON, err := json.Marshal(accessor.Args)
	if err != nil {
		return nil, fmt.Errorf("encode accessor args: %w", err)
	}

	conn, err := r.getConn(address)
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = gateway.DefaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := nodepb.NewNodeServiceClient(conn)
	var reply *nodepb.FetchFunctionsReply
	_, err = r.breakerFor(address).Execute(func() (*nodepb.ExecuteReply, error) {
		var rpcErr error
		reply, rpcErr = client.FetchFunctions(callCtx, &nodepb.FetchFunctionsRequest{
			Module:   accessor.Module,
			Function: accessor.Function,
			Args:     argsJSON,
		})
		if rpcErr != nil {
			r.evict(address, conn)
		}
		return nil, rpcErr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch functions from %s: %w", address, err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("node %s: %s", address, reply.Error)
	}

	var specs []*gateway.FunctionSpec
	if len(reply.Specs) > 0 {
		if err := json.Unmarshal(reply.Specs, &specs); err != nil {
			return nil, fmt.Errorf("decode function specs from %s: %w", address, err)
		}
	}
	return specs, nil
}

// Close closes all cached connections.
func (r *Remote) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for addr, conn := range r.conns {
		_ = conn.Close()
		delete(r.conns, addr)
	}
}

// decodeResult turns the JSON result bytes of a reply or frame back into a
// Go value. Empty bytes mean a nil result.
func decodeResult(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, gateway.NewInternalCallError(fmt.Errorf("decode call result: %w", err))
	}
	return result, nil
}

// classifyRPCError maps a failed RPC to the call failure taxonomy. Status
// codes the caller caused keep their detail; breaker rejections and every
// transport fault are internal.
func classifyRPCError(address string, err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return gateway.NewInternalCallError(fmt.Errorf("node %s circuit open: %w", address, err))
	}
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.Unimplemented:
		return gateway.NewBadRequestCallError(fmt.Errorf("node %s rejected call: %v", address, err))
	default:
		return gateway.NewInternalCallError(fmt.Errorf("call to node %s failed: %w", address, err))
	}
}
