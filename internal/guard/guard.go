// Package guard evaluates a FunctionSpec's permission rule against a
// request before any argument conversion or dispatch happens.
//
// The guard fails closed: only an explicitly satisfied rule allows the
// call. Unknown rules, absent arguments and mismatched values all deny.
package guard

import (
	"strings"

	"switchboard/internal/gateway"
)

// Check returns nil when the request may invoke the spec, or a
// PermissionError when the spec's rule denies it. A denial is a normal
// outcome, never a fault; callers convert it into an error Response.
func Check(req *gateway.Request, spec *gateway.FunctionSpec) error {
	rule := spec.Permission

	switch {
	case rule == "" || rule == gateway.PermissionNone:
		return nil

	case strings.HasPrefix(rule, gateway.PermissionMatchArgPrefix):
		name := rule[len(gateway.PermissionMatchArgPrefix):]
		value, ok := req.Args[name]
		if !ok {
			return &gateway.PermissionError{Rule: rule}
		}
		s, ok := value.(string)
		if !ok || s != req.UserID {
			return &gateway.PermissionError{Rule: rule}
		}
		return nil

	default:
		// Fail closed on rules this version does not understand.
		return &gateway.PermissionError{Rule: rule}
	}
}
