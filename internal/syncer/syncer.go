// Package syncer keeps the function registry aligned with what registered
// backend services actually offer. Each registered service names the nodes
// to ask and the accessor to run there; the syncer pulls every service's
// current function list periodically and on demand, and upserts the result
// into the registry.
package syncer

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"switchboard/internal/gateway"
	"switchboard/pkg/logging"
)

// Defaults for the sync schedule.
const (
	DefaultInterval    = 30 * time.Second
	DefaultPullTimeout = 5 * time.Second
)

// SpecStore is the registry surface the syncer writes to.
type SpecStore interface {
	Update(spec *gateway.FunctionSpec) error
}

// Fetcher pulls one service's function list from a node.
type Fetcher interface {
	FetchFunctions(ctx context.Context, node string, accessor gateway.Accessor, timeout time.Duration) ([]*gateway.FunctionSpec, error)
}

// FetchStatus records the outcome of the most recent pull for one service.
type FetchStatus struct {
	// RequestTypes lists the request types fetched last time, sorted.
	RequestTypes []string `json:"requestTypes,omitempty"`

	// SyncedAt is when the last pull attempt finished.
	SyncedAt time.Time `json:"syncedAt"`

	// Error carries the last pull's failure, empty on success.
	Error string `json:"error,omitempty"`
}

// Syncer runs the registry synchronization loop. Services are synced
// sequentially within one pass; one failing service never blocks the
// others, and the next pass is scheduled only after the current one
// finished, so a slow cluster cannot pile up passes.
type Syncer struct {
	store       SpecStore
	fetcher     Fetcher
	interval    time.Duration
	pullTimeout time.Duration

	mu            sync.RWMutex
	registrations map[string]gateway.ServiceRegistration
	status        map[string]FetchStatus

	// passMu serializes sync passes between the loop and ForceSync.
	passMu sync.Mutex

	kick    chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a stopped Syncer. interval and pullTimeout fall back to the
// defaults when non-positive.
func New(store SpecStore, fetcher Fetcher, interval, pullTimeout time.Duration) *Syncer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if pullTimeout <= 0 {
		pullTimeout = DefaultPullTimeout
	}
	return &Syncer{
		store:         store,
		fetcher:       fetcher,
		interval:      interval,
		pullTimeout:   pullTimeout,
		registrations: make(map[string]gateway.ServiceRegistration),
		status:        make(map[string]FetchStatus),
		kick:          make(chan struct{}, 1),
	}
}

// Register stores or replaces service registrations and nudges the loop so
// new services are pulled promptly. Registrations live in memory only.
func (s *Syncer) Register(regs ...gateway.ServiceRegistration) error {
	for _, reg := range regs {
		if err := validateRegistration(reg); err != nil {
			return err
		}
	}

	s.mu.Lock()
	for _, reg := range regs {
		reg.Nodes = append([]string(nil), reg.Nodes...)
		s.registrations[reg.Service] = reg
		logging.Info("Syncer", "Registered service %s with %d nodes", reg.Service, len(reg.Nodes))
	}
	s.mu.Unlock()

	s.nudge()
	return nil
}

// Unregister removes service registrations. Function specs already synced
// stay in the registry; only the pull stops. Unknown services are ignored.
func (s *Syncer) Unregister(services ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, service := range services {
		if _, ok := s.registrations[service]; ok {
			delete(s.registrations, service)
			delete(s.status, service)
			logging.Info("Syncer", "Unregistered service %s", service)
		}
	}
}

// Registrations returns all current registrations sorted by service name.
func (s *Syncer) Registrations() []gateway.ServiceRegistration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	regs := make([]gateway.ServiceRegistration, 0, len(s.registrations))
	for _, reg := range s.registrations {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Service < regs[j].Service })
	return regs
}

// Status reports the most recent pull outcome for one registered service.
func (s *Syncer) Status(service string) (FetchStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.registrations[service]; !ok {
		return FetchStatus{}, gateway.NewRegistrationNotFoundError(service)
	}
	return s.status[service], nil
}

// ForceSync runs one full pass right now, in the caller. It is safe to
// call repeatedly and concurrently with the background loop.
func (s *Syncer) ForceSync(ctx context.Context) {
	s.syncOnce(ctx)
}

// Start launches the background loop. Starting a running syncer is a
// no-op.
func (s *Syncer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(ctx)
	logging.Info("Syncer", "Registry sync loop started, interval %s", s.interval)
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	logging.Info("Syncer", "Registry sync loop stopped")
}

func (s *Syncer) loop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-s.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		s.syncOnce(ctx)

		// Reschedule only after the pass finished, so passes never stack.
		timer.Reset(s.interval)
	}
}

// nudge wakes the loop for an early pass; signals coalesce.
func (s *Syncer) nudge() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// syncOnce pulls every registered service once, sequentially.
func (s *Syncer) syncOnce(ctx context.Context) {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	for _, reg := range s.Registrations() {
		if ctx.Err() != nil {
			return
		}
		s.syncService(ctx, reg)
	}
}

// syncService pulls one service's function list from a randomly chosen
// registered node and upserts each spec. Failures are recorded and logged;
// they never propagate to other services.
func (s *Syncer) syncService(ctx context.Context, reg gateway.ServiceRegistration) {
	node := reg.Nodes[rand.IntN(len(reg.Nodes))]

	specs, err := s.fetcher.FetchFunctions(ctx, node, reg.Accessor, s.pullTimeout)
	syncedAt := time.Now()
	if err != nil {
		logging.Warn("Syncer", "Sync of service %s from %s failed: %v", reg.Service, node, err)
		s.record(reg.Service, FetchStatus{SyncedAt: syncedAt, Error: err.Error()})
		return
	}

	kept := make([]string, 0, len(specs))
	for _, spec := range specs {
		if spec == nil {
			continue
		}
		if spec.Service == "" {
			spec.Service = reg.Service
		}
		if spec.Service != reg.Service {
			logging.Warn("Syncer", "Service %s returned spec for foreign service %s/%s, skipping",
				reg.Service, spec.Service, spec.RequestType)
			continue
		}
		if err := s.store.Update(spec); err != nil {
			logging.Warn("Syncer", "Service %s returned invalid spec %q: %v", reg.Service, spec.RequestType, err)
			continue
		}
		kept = append(kept, spec.RequestType)
	}
	sort.Strings(kept)

	s.record(reg.Service, FetchStatus{RequestTypes: kept, SyncedAt: syncedAt})
	logging.Debug("Syncer", "Synced %d functions for service %s from %s", len(kept), reg.Service, node)
}

// record stores a pull outcome unless the service was unregistered while
// the pull ran.
func (s *Syncer) record(service string, status FetchStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registrations[service]; ok {
		s.status[service] = status
	}
}

func validateRegistration(reg gateway.ServiceRegistration) error {
	if reg.Service == "" {
		return gateway.NewArgumentError("service", "must not be empty")
	}
	if len(reg.Nodes) == 0 {
		return gateway.NewArgumentError("nodes", "must list at least one node")
	}
	if reg.Accessor.Function == "" {
		return gateway.NewArgumentError("accessor", "must name a function")
	}
	return nil
}
