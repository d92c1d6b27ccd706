// Package selector picks the target cluster node for one function call.
//
// A spec's node source is either a static address list or a dynamic
// resolver accessor evaluated at selection time; both are normalized into a
// candidate list here, then one of four strategies chooses the node:
// random, hash (stable over request_id), hash:<key> (stable over a named
// argument or request field), or round_robin.
//
// Round-robin position is carried in the calling context (see WithCursor),
// so rotation fairness holds only across sequential calls from the same
// context. Independent concurrent callers each rotate their own cursor.
package selector

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"switchboard/internal/gateway"
	"switchboard/pkg/logging"
)

// Caller invokes a dynamic node-resolver accessor in-process and returns
// its raw result. The local invoker satisfies this.
type Caller interface {
	CallLocal(ctx context.Context, call gateway.Call) (any, error)
}

// Selector resolves a spec's node source and applies its selection mode.
type Selector struct {
	caller Caller

	// group collapses concurrent resolutions of the same dynamic source
	// into a single accessor call.
	group singleflight.Group
}

// New creates a Selector. caller may be nil when no spec uses dynamic node
// resolution.
func New(caller Caller) *Selector {
	return &Selector{caller: caller}
}

// Pick chooses the target node for req according to spec. Every failure
// (empty list, resolver misbehavior, missing hash key) is returned as a
// NodeSelectionError and is fatal for the call; nothing is retried here.
func (s *Selector) Pick(ctx context.Context, spec *gateway.FunctionSpec, req *gateway.Request) (string, error) {
	nodes, err := s.candidates(ctx, spec)
	if err != nil {
		return "", err
	}

	mode := spec.SelectMode
	switch {
	case mode == gateway.SelectRandom, mode == "":
		return nodes[rand.IntN(len(nodes))], nil

	case mode == gateway.SelectHash:
		return nodes[hashIndex(req.RequestID, len(nodes))], nil

	case strings.HasPrefix(mode, gateway.SelectHashPrefix):
		key := mode[len(gateway.SelectHashPrefix):]
		value, ok := hashValue(req, key)
		if !ok {
			return "", gateway.NewNodeSelectionError(mode, "hash key %q not present in args or request fields", key)
		}
		return nodes[hashIndex(value, len(nodes))], nil

	case mode == gateway.SelectRoundRobin:
		return nodes[s.advanceCursor(ctx, spec, len(nodes))], nil

	default:
		return "", gateway.NewNodeSelectionError(mode, "unknown selection mode")
	}
}

// candidates normalizes the spec's node source into a non-empty list.
func (s *Selector) candidates(ctx context.Context, spec *gateway.FunctionSpec) ([]string, error) {
	if spec.NodesFrom != nil {
		return s.resolve(ctx, spec)
	}
	if len(spec.Nodes) == 0 {
		return nil, gateway.NewNodeSelectionError(spec.SelectMode, "empty node list")
	}
	return spec.Nodes, nil
}

// resolve evaluates the dynamic node accessor, deduplicating concurrent
// calls per function identity.
func (s *Selector) resolve(ctx context.Context, spec *gateway.FunctionSpec) ([]string, error) {
	if s.caller == nil {
		return nil, gateway.NewNodeSelectionError(spec.SelectMode, "no resolver caller configured")
	}

	key := spec.Service + "/" + spec.RequestType
	result, err, shared := s.group.Do(key, func() (any, error) {
		return s.caller.CallLocal(ctx, gateway.Call{
			Service:  spec.Service,
			Module:   spec.NodesFrom.Module,
			Function: spec.NodesFrom.Function,
			Args:     spec.NodesFrom.Args,
			Timeout:  spec.CallTimeout(),
		})
	})
	if err != nil {
		return nil, gateway.NewNodeSelectionError(spec.SelectMode, "node resolver failed: %v", err)
	}
	if shared {
		logging.Debug("Selector", "Node resolution for %s shared a concurrent fetch", key)
	}

	nodes, err := coerceNodeList(result)
	if err != nil {
		return nil, gateway.NewNodeSelectionError(spec.SelectMode, "%v", err)
	}
	return nodes, nil
}

// coerceNodeList accepts the resolver result shapes ([]string, or []any of
// strings) and requires a non-empty list.
func coerceNodeList(result any) ([]string, error) {
	switch v := result.(type) {
	case []string:
		if len(v) == 0 {
			return nil, fmt.Errorf("node resolver returned an empty list")
		}
		return v, nil
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("node resolver returned an empty list")
		}
		nodes := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("node resolver returned a non-string entry (%T)", item)
			}
			nodes[i] = s
		}
		return nodes, nil
	default:
		return nil, fmt.Errorf("node resolver returned %T, want a node list", result)
	}
}

// hashIndex maps a key to a list index with a stable FNV-1a hash, so the
// same key always lands on the same node for a given list.
func hashIndex(key string, size int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(size))
}

// hashValue finds the value hashed for hash:<key> mode: the named request
// argument, or the matching Request field when the argument is absent.
func hashValue(req *gateway.Request, key string) (string, bool) {
	if v, ok := req.Args[key]; ok && v != nil {
		return fmt.Sprint(v), true
	}
	switch key {
	case "user_id":
		return req.UserID, req.UserID != ""
	case "device_id":
		return req.DeviceID, req.DeviceID != ""
	case "request_id":
		return req.RequestID, req.RequestID != ""
	case "request_type":
		return req.RequestType, req.RequestType != ""
	case "service":
		return req.Service, req.Service != ""
	default:
		return "", false
	}
}

// cursorState holds the round-robin cursors of one calling context, keyed
// by function identity.
type cursorState struct {
	mu      sync.Mutex
	cursors map[string]int
}

type cursorKey struct{}

// WithCursor returns a context carrying fresh round-robin state. Callers
// that want rotation across their sequential calls install this once and
// reuse the returned context; without it every selection starts the cycle
// at the first node.
func WithCursor(ctx context.Context) context.Context {
	return context.WithValue(ctx, cursorKey{}, &cursorState{cursors: map[string]int{}})
}

// advanceCursor returns the next round-robin index for the spec within the
// calling context.
func (s *Selector) advanceCursor(ctx context.Context, spec *gateway.FunctionSpec, size int) int {
	state, ok := ctx.Value(cursorKey{}).(*cursorState)
	if !ok {
		return 0
	}

	key := spec.Service + "/" + spec.RequestType
	state.mu.Lock()
	defer state.mu.Unlock()
	idx := state.cursors[key] % size
	state.cursors[key] = idx + 1
	return idx
}
