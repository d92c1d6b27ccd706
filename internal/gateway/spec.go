package gateway

import (
	"fmt"
	"time"
)

// ResponseMode selects how the results of a call travel back to the caller.
//
// The set is closed. Every place that branches on a ResponseMode must
// enumerate all four values and treat anything else as a configuration
// error; the executor's dispatch does exactly that, so adding a mode
// without handling it everywhere fails loudly instead of silently.
type ResponseMode string

const (
	// ModeSync executes the call in the caller's goroutine and returns the
	// result in the initial Response.
	ModeSync ResponseMode = "sync"

	// ModeAsync acknowledges immediately and pushes the real result to the
	// receiver once the call completes on the async worker pool.
	ModeAsync ResponseMode = "async"

	// ModeStream acknowledges once the stream session has started and then
	// pushes zero or more results until the session terminates.
	ModeStream ResponseMode = "stream"

	// ModeNone executes like async but produces no response at all, not
	// even an acknowledgment.
	ModeNone ResponseMode = "none"
)

// AllResponseModes returns every member of the closed ResponseMode set.
// Exhaustiveness tests iterate this list against dispatch sites.
func AllResponseModes() []ResponseMode {
	return []ResponseMode{ModeSync, ModeAsync, ModeStream, ModeNone}
}

// Valid reports whether m is a member of the closed set.
func (m ResponseMode) Valid() bool {
	switch m {
	case ModeSync, ModeAsync, ModeStream, ModeNone:
		return true
	default:
		return false
	}
}

// Node selection modes. hash:<key> variants are recognized by prefix.
const (
	SelectRandom     = "random"
	SelectHash       = "hash"
	SelectRoundRobin = "round_robin"

	// SelectHashPrefix introduces the keyed variant, e.g. "hash:user_id".
	SelectHashPrefix = "hash:"
)

// Permission rules. match-arg:<name> variants are recognized by prefix.
const (
	PermissionNone = "none"

	// PermissionMatchArgPrefix introduces the argument-matching rule,
	// e.g. "match-arg:user_id".
	PermissionMatchArgPrefix = "match-arg:"
)

// LocalNodes is the reserved node-source value marking a function that
// executes in-process instead of on a remote cluster node.
const LocalNodes = "local"

// DefaultCallTimeout bounds a dispatched call when the spec does not
// declare its own timeout.
const DefaultCallTimeout = 30 * time.Second

// Target identifies the module/function a spec invokes, together with the
// fixed arguments prepended to every call. Fixed args are treated as
// immutable once registered.
type Target struct {
	Module    string `json:"module" yaml:"module"`
	Function  string `json:"function" yaml:"function"`
	FixedArgs []any  `json:"fixedArgs,omitempty" yaml:"fixedArgs,omitempty"`
}

// Accessor names a callable used to obtain data from the cluster itself:
// a service's current function list (RegistrySyncer) or a dynamic node
// list (node resolver).
type Accessor struct {
	Module   string `json:"module" yaml:"module"`
	Function string `json:"function" yaml:"function"`
	Args     []any  `json:"args,omitempty" yaml:"args,omitempty"`
}

// ServiceRegistration tells the RegistrySyncer how to pull one service's
// current FunctionSpec list: which nodes to ask and which accessor to
// invoke there. Registrations live in memory only.
type ServiceRegistration struct {
	Service  string   `json:"service" yaml:"service"`
	Nodes    []string `json:"nodes" yaml:"nodes"`
	Accessor Accessor `json:"accessor" yaml:"accessor"`
}

// FunctionSpec is the registered configuration of one callable endpoint:
// how requests of one request type within one service are routed,
// validated, gated, and executed.
//
// Node source is exactly one of: a static Nodes list, the single reserved
// entry "local", or a dynamic NodesFrom accessor evaluated at selection
// time (NodesFrom takes precedence when both are set).
type FunctionSpec struct {
	// Service groups functions offered by the same logical backend.
	Service string `json:"service" yaml:"service"`

	// RequestType is unique within a service and is what requests carry.
	RequestType string `json:"requestType" yaml:"requestType"`

	// Nodes lists static candidate node addresses, or contains the single
	// entry "local" for in-process execution.
	Nodes []string `json:"nodes,omitempty" yaml:"nodes,omitempty"`

	// NodesFrom resolves the candidate list dynamically at selection time.
	NodesFrom *Accessor `json:"nodesFrom,omitempty" yaml:"nodesFrom,omitempty"`

	// SelectMode is one of random, hash, hash:<key>, round_robin.
	// Empty defaults to random.
	SelectMode string `json:"selectMode,omitempty" yaml:"selectMode,omitempty"`

	// Timeout bounds one dispatched call, in seconds. Zero means the
	// default (30s).
	Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Target is the module/function invoked for this request type.
	Target Target `json:"target" yaml:"target"`

	// ArgTypes maps argument names to type descriptors (string, number,
	// boolean, list, list_string, list_num, map, optionally suffixed with
	// :<limit>). May be empty for functions taking no request arguments.
	ArgTypes map[string]string `json:"argTypes,omitempty" yaml:"argTypes,omitempty"`

	// ArgOrder fixes the positional order of converted arguments. Required
	// when ArgTypes has two or more entries, where it must be a permutation
	// of the ArgTypes keys; ignored otherwise.
	ArgOrder []string `json:"argOrder,omitempty" yaml:"argOrder,omitempty"`

	// ResponseMode is one of the closed set sync, async, stream, none.
	// Empty defaults to sync.
	ResponseMode ResponseMode `json:"responseMode,omitempty" yaml:"responseMode,omitempty"`

	// Permission is "none" or "match-arg:<name>". Empty defaults to none.
	Permission string `json:"permission,omitempty" yaml:"permission,omitempty"`

	// RequestInfo appends a CallInfo value as the final call argument, so
	// targets can see caller identity and, in stream mode, the session.
	RequestInfo bool `json:"requestInfo,omitempty" yaml:"requestInfo,omitempty"`
}

// IsLocal reports whether the spec executes in-process.
func (s *FunctionSpec) IsLocal() bool {
	return s.NodesFrom == nil && len(s.Nodes) == 1 && s.Nodes[0] == LocalNodes
}

// CallTimeout returns the per-call deadline as a duration.
func (s *FunctionSpec) CallTimeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultCallTimeout
	}
	return time.Duration(s.Timeout) * time.Second
}

// Validate normalizes defaulted fields and checks the spec's invariants.
// It is called on every path that inserts a spec into the registry, so
// entries already in the registry are always well-formed.
func (s *FunctionSpec) Validate() error {
	if s.Service == "" {
		return fmt.Errorf("function spec missing service")
	}
	if s.RequestType == "" {
		return fmt.Errorf("function spec %s missing requestType", s.Service)
	}
	if s.Target.Function == "" {
		return fmt.Errorf("function spec %s/%s missing target function", s.Service, s.RequestType)
	}
	if len(s.Nodes) == 0 && s.NodesFrom == nil {
		return fmt.Errorf("function spec %s/%s has no node source", s.Service, s.RequestType)
	}

	if s.SelectMode == "" {
		s.SelectMode = SelectRandom
	}
	if !validSelectMode(s.SelectMode) {
		return fmt.Errorf("function spec %s/%s has unknown selectMode %q", s.Service, s.RequestType, s.SelectMode)
	}

	if s.ResponseMode == "" {
		s.ResponseMode = ModeSync
	}
	if !s.ResponseMode.Valid() {
		return fmt.Errorf("function spec %s/%s has unknown responseMode %q", s.Service, s.RequestType, s.ResponseMode)
	}

	if s.Permission == "" {
		s.Permission = PermissionNone
	}
	if !validPermission(s.Permission) {
		return fmt.Errorf("function spec %s/%s has unknown permission %q", s.Service, s.RequestType, s.Permission)
	}

	if len(s.ArgTypes) >= 2 {
		if err := checkArgOrder(s.ArgTypes, s.ArgOrder); err != nil {
			return fmt.Errorf("function spec %s/%s: %w", s.Service, s.RequestType, err)
		}
	}
	return nil
}

// checkArgOrder verifies argOrder is a permutation of the argTypes keys.
func checkArgOrder(argTypes map[string]string, argOrder []string) error {
	if len(argOrder) != len(argTypes) {
		return fmt.Errorf("argOrder has %d entries, argTypes has %d", len(argOrder), len(argTypes))
	}
	seen := make(map[string]bool, len(argOrder))
	for _, name := range argOrder {
		if seen[name] {
			return fmt.Errorf("argOrder repeats %q", name)
		}
		if _, ok := argTypes[name]; !ok {
			return fmt.Errorf("argOrder names %q which is not in argTypes", name)
		}
		seen[name] = true
	}
	return nil
}

func validSelectMode(mode string) bool {
	switch {
	case mode == SelectRandom, mode == SelectHash, mode == SelectRoundRobin:
		return true
	case len(mode) > len(SelectHashPrefix) && mode[:len(SelectHashPrefix)] == SelectHashPrefix:
		return true
	default:
		return false
	}
}

func validPermission(rule string) bool {
	switch {
	case rule == PermissionNone:
		return true
	case len(rule) > len(PermissionMatchArgPrefix) && rule[:len(PermissionMatchArgPrefix)] == PermissionMatchArgPrefix:
		return true
	default:
		return false
	}
}

// Clone returns a deep copy. The registry hands out clones so callers can
// never mutate registered entries in place.
func (s *FunctionSpec) Clone() *FunctionSpec {
	if s == nil {
		return nil
	}
	out := *s
	if s.Nodes != nil {
		out.Nodes = append([]string(nil), s.Nodes...)
	}
	if s.ArgOrder != nil {
		out.ArgOrder = append([]string(nil), s.ArgOrder...)
	}
	if s.ArgTypes != nil {
		out.ArgTypes = make(map[string]string, len(s.ArgTypes))
		for k, v := range s.ArgTypes {
			out.ArgTypes[k] = v
		}
	}
	if s.Target.FixedArgs != nil {
		out.Target.FixedArgs = append([]any(nil), s.Target.FixedArgs...)
	}
	if s.NodesFrom != nil {
		acc := *s.NodesFrom
		if s.NodesFrom.Args != nil {
			acc.Args = append([]any(nil), s.NodesFrom.Args...)
		}
		out.NodesFrom = &acc
	}
	return &out
}
