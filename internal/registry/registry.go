// Package registry implements the in-memory function-configuration store:
// a concurrent map from (service, request type) to FunctionSpec with
// lock-free reads, serialized writes, and change notification for
// interested subscribers. The registry is the single owner of registered
// specs; callers always receive copies.
package registry

import (
	"sort"
	"sync"

	"switchboard/internal/gateway"
	"switchboard/pkg/logging"
)

// key identifies one registered function within the store.
type key struct {
	service     string
	requestType string
}

// Registry is the concurrent FunctionSpec store. Reads never block on
// writers; a read concurrent with a write observes either the previous or
// the new spec, never a partial one.
type Registry struct {
	entries sync.Map // key -> *gateway.FunctionSpec

	// updateChan signals content changes to at most one pending consumer.
	// Notifications are fire-and-forget: if a signal is already pending,
	// further changes fold into it.
	updateChan chan struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		updateChan: make(chan struct{}, 1),
	}
}

// Add registers a spec, replacing any existing entry for the same
// service/request type. The spec is validated and defaulted first; the
// registry stores its own copy.
func (r *Registry) Add(spec *gateway.FunctionSpec) error {
	return r.Update(spec)
}

// Update upserts a spec. Add and Update share upsert semantics; both names
// exist because the operator surface exposes both verbs.
func (r *Registry) Update(spec *gateway.FunctionSpec) error {
	stored := spec.Clone()
	if err := stored.Validate(); err != nil {
		return err
	}

	r.entries.Store(key{stored.Service, stored.RequestType}, stored)
	logging.Debug("Registry", "Registered function %s/%s (mode=%s)", stored.Service, stored.RequestType, stored.ResponseMode)
	r.notifyUpdate()
	return nil
}

// Delete removes a spec. Deleting an absent entry is a no-op.
func (r *Registry) Delete(service, requestType string) {
	if _, loaded := r.entries.LoadAndDelete(key{service, requestType}); loaded {
		logging.Debug("Registry", "Removed function %s/%s", service, requestType)
		r.notifyUpdate()
	}
}

// Get returns a copy of the registered spec, or a NotFoundError.
func (r *Registry) Get(service, requestType string) (*gateway.FunctionSpec, error) {
	v, ok := r.entries.Load(key{service, requestType})
	if !ok {
		return nil, gateway.NewFunctionNotFoundError(service, requestType)
	}
	return v.(*gateway.FunctionSpec).Clone(), nil
}

// ListAll returns every registered request type grouped by service, each
// service's list sorted for stable output.
func (r *Registry) ListAll() map[string][]string {
	out := make(map[string][]string)
	r.entries.Range(func(k, _ any) bool {
		entry := k.(key)
		out[entry.service] = append(out[entry.service], entry.requestType)
		return true
	})
	for _, types := range out {
		sort.Strings(types)
	}
	return out
}

// UpdateChannel returns the channel signaled whenever registry content
// changes. The channel has capacity one; consumers should treat a receive
// as "something changed" and re-read current state.
func (r *Registry) UpdateChannel() <-chan struct{} {
	return r.updateChan
}

// notifyUpdate signals the update channel without blocking. If a
// notification is already pending the change folds into it.
func (r *Registry) notifyUpdate() {
	select {
	case r.updateChan <- struct{}{}:
	default:
	}
}
