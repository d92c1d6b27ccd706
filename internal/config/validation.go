package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks field ranges after defaults and file values merge.
// Every problem is reported, not just the first.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs.Add("server.port", fmt.Sprintf("must be between 1 and 65535, got %d", c.Server.Port), c.Server.Port)
	}
	switch c.Server.Transport {
	case TransportStreamableHTTP, TransportSSE, TransportStdio:
	default:
		errs.Add("server.transport",
			fmt.Sprintf("must be one of: %s, %s, %s", TransportStreamableHTTP, TransportSSE, TransportStdio),
			c.Server.Transport)
	}

	validatePool(&errs, "gateway.asyncPool", c.Gateway.AsyncPool)
	validatePool(&errs, "gateway.streamPool", c.Gateway.StreamPool)

	if c.Sync.Interval < 1 {
		errs.Add("sync.interval", fmt.Sprintf("must be at least 1 second, got %d", c.Sync.Interval), c.Sync.Interval)
	}
	if c.Sync.PullTimeout < 1 {
		errs.Add("sync.pullTimeout", fmt.Sprintf("must be at least 1 second, got %d", c.Sync.PullTimeout), c.Sync.PullTimeout)
	}

	for i, reg := range c.Sync.Services {
		field := fmt.Sprintf("sync.services[%d]", i)
		if strings.TrimSpace(reg.Service) == "" {
			errs.Add(field+".service", "is required", reg.Service)
		}
		if len(reg.Nodes) == 0 {
			errs.Add(field+".nodes", "must name at least one node")
		}
		if strings.TrimSpace(reg.Accessor.Function) == "" {
			errs.Add(field+".accessor.function", "is required", reg.Accessor.Function)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validatePool(errs *ValidationErrors, field string, pool PoolConfig) {
	if pool.Size < 1 {
		errs.Add(field+".size", fmt.Sprintf("must be at least 1, got %d", pool.Size), pool.Size)
	}
	if pool.MaxQueue < 0 {
		errs.Add(field+".maxQueue", fmt.Sprintf("must not be negative, got %d", pool.MaxQueue), pool.MaxQueue)
	}
}
