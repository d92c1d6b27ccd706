// Package args validates a request's argument map against a FunctionSpec's
// declared schema and converts it into the ordered positional list handed
// to the target function.
//
// Validation is strict: the request must carry exactly the schema's
// argument names, every value must match its declared type and size bound,
// null values are rejected outright, and containers never nest (lists and
// maps hold scalars only). Values that pass keep their native
// representation; the codec never coerces across types.
package args

import (
	"fmt"
	"strconv"
	"strings"

	"switchboard/internal/gateway"
)

// Default size bounds applied when a descriptor carries no explicit limit.
const (
	DefaultStringMax = 3000 // bytes
	DefaultListMax   = 1000 // elements
	DefaultMapMax    = 1000 // entries
)

// descriptor is one parsed argument type: a kind plus its size bound.
type descriptor struct {
	kind  string
	limit int
}

// parseDescriptor splits a schema entry like "string", "list:50" or
// "map:2000" into kind and limit. A missing limit selects the kind's
// default.
func parseDescriptor(raw string) (descriptor, error) {
	kind, limitPart, hasLimit := strings.Cut(raw, ":")

	var limit int
	switch kind {
	case "string":
		limit = DefaultStringMax
	case "list", "list_string", "list_num":
		limit = DefaultListMax
	case "map":
		limit = DefaultMapMax
	case "number", "boolean":
		if hasLimit {
			return descriptor{}, fmt.Errorf("type %q does not take a size limit", kind)
		}
	default:
		return descriptor{}, fmt.Errorf("unknown type descriptor %q", raw)
	}

	if hasLimit {
		n, err := strconv.Atoi(limitPart)
		if err != nil || n <= 0 {
			return descriptor{}, fmt.Errorf("invalid size limit in descriptor %q", raw)
		}
		limit = n
	}
	return descriptor{kind: kind, limit: limit}, nil
}

// Convert validates req.Args against spec.ArgTypes and returns the
// positional argument list in spec.ArgOrder. An empty schema yields an
// empty list without inspecting the request at all; a single-entry schema
// ignores ArgOrder. Every violation is reported as an ArgumentError and
// nothing is ever partially converted.
func Convert(spec *gateway.FunctionSpec, req *gateway.Request) ([]any, error) {
	schema := spec.ArgTypes
	if len(schema) == 0 {
		return []any{}, nil
	}

	if len(req.Args) != len(schema) {
		return nil, gateway.NewArgumentSetError("request has %d arguments, schema expects %d", len(req.Args), len(schema))
	}
	for name := range req.Args {
		if _, ok := schema[name]; !ok {
			return nil, gateway.NewArgumentError(name, "not declared in the argument schema")
		}
	}

	converted := make(map[string]any, len(schema))
	for name, rawType := range schema {
		value, ok := req.Args[name]
		if !ok {
			return nil, gateway.NewArgumentError(name, "required argument missing")
		}
		desc, err := parseDescriptor(rawType)
		if err != nil {
			return nil, gateway.NewArgumentError(name, "%v", err)
		}
		if err := validateValue(name, desc, value); err != nil {
			return nil, err
		}
		converted[name] = value
	}

	if len(schema) == 1 {
		for _, v := range converted {
			return []any{v}, nil
		}
	}

	ordered := make([]any, 0, len(spec.ArgOrder))
	for _, name := range spec.ArgOrder {
		v, ok := converted[name]
		if !ok {
			return nil, gateway.NewArgumentError(name, "named in argOrder but not among converted arguments")
		}
		ordered = append(ordered, v)
	}
	return ordered, nil
}

// validateValue checks one argument against its descriptor.
func validateValue(name string, desc descriptor, value any) error {
	if value == nil {
		return gateway.NewArgumentError(name, "null values are not allowed")
	}

	switch desc.kind {
	case "string":
		s, ok := value.(string)
		if !ok {
			return gateway.NewArgumentError(name, "must be a string, got %T", value)
		}
		if len(s) > desc.limit {
			return gateway.NewArgumentError(name, "string exceeds %d bytes", desc.limit)
		}

	case "number":
		if !isNumber(value) {
			return gateway.NewArgumentError(name, "must be a number, got %T", value)
		}

	case "boolean":
		if _, ok := value.(bool); !ok {
			return gateway.NewArgumentError(name, "must be a boolean, got %T", value)
		}

	case "list", "list_string", "list_num":
		elems, ok := listElements(value)
		if !ok {
			return gateway.NewArgumentError(name, "must be a list, got %T", value)
		}
		if len(elems) > desc.limit {
			return gateway.NewArgumentError(name, "list exceeds %d elements", desc.limit)
		}
		for i, elem := range elems {
			if err := validateElement(name, desc.kind, i, elem); err != nil {
				return err
			}
		}

	case "map":
		m, ok := value.(map[string]any)
		if !ok {
			return gateway.NewArgumentError(name, "must be a map, got %T", value)
		}
		if len(m) > desc.limit {
			return gateway.NewArgumentError(name, "map exceeds %d entries", desc.limit)
		}
		for k, v := range m {
			if v == nil {
				return gateway.NewArgumentError(name, "map value %q is null", k)
			}
			if !isScalar(v) {
				return gateway.NewArgumentError(name, "map value %q is a nested container; only scalar values are supported", k)
			}
		}
	}
	return nil
}

// validateElement checks one list element: scalars only, and for the typed
// list variants the element type as well.
func validateElement(name, kind string, index int, elem any) error {
	if elem == nil {
		return gateway.NewArgumentError(name, "list element %d is null", index)
	}
	if !isScalar(elem) {
		return gateway.NewArgumentError(name, "list element %d is a nested container; only scalar elements are supported", index)
	}

	switch kind {
	case "list_string":
		if _, ok := elem.(string); !ok {
			return gateway.NewArgumentError(name, "list element %d must be a string, got %T", index, elem)
		}
	case "list_num":
		if !isNumber(elem) {
			return gateway.NewArgumentError(name, "list element %d must be a number, got %T", index, elem)
		}
	}
	return nil
}

// listElements exposes the supported list representations as []any.
// JSON-decoded requests always carry []any; in-process callers may pass
// the common typed slices.
func listElements(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	default:
		return nil, false
	}
}

func isNumber(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

func isScalar(value any) bool {
	switch value.(type) {
	case string, bool:
		return true
	default:
		return isNumber(value)
	}
}
