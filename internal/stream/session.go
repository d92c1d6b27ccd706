// Package stream implements streaming call sessions: one actor per stream
// that serializes producer signals and forwards them to the receiver in
// arrival order, plus the manager that tracks live sessions by handle.
package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"switchboard/internal/gateway"
	"switchboard/pkg/logging"
)

// Phase is a session's lifecycle position. Sessions move init -> active ->
// one of the terminal phases and never back.
type Phase int32

const (
	PhaseInit Phase = iota
	PhaseActive
	PhaseCompleted
	PhaseErrored
	PhaseStopped
)

// String makes Phase satisfy fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseActive:
		return "active"
	case PhaseCompleted:
		return "completed"
	case PhaseErrored:
		return "errored"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type signalKind int

const (
	signalPush signalKind = iota
	signalFinal
	signalFail
	signalComplete
)

type signal struct {
	kind   signalKind
	result any
	err    error
}

// signalBuffer bounds how many producer signals may be in flight before
// Push blocks. A blocked producer is released with ErrSessionClosed the
// moment the session terminates.
const signalBuffer = 16

// InitFunc is the target function's first invocation, run with the
// session's sink so the producer can push results. A non-nil return
// terminates the session with an error Response.
type InitFunc func(ctx context.Context, sink gateway.Sink) error

// Session is one streaming call. It owns the only goroutine that touches
// the receiver, so responses leave in exactly the order signals arrived.
//
// The producer talks to the session exclusively through the gateway.Sink
// methods. An external stop terminates the session and answers the client,
// but never notifies the producer; producers discover a dead session by
// the ErrSessionClosed their next sink call returns.
type Session struct {
	id        string
	requestID string
	receiver  gateway.Receiver
	verbose   bool

	phase    atomic.Int32
	signals  chan signal
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	termOnce sync.Once

	onTerminal func(id string)
}

func newSession(id, requestID string, receiver gateway.Receiver, verbose bool, onTerminal func(id string)) *Session {
	return &Session{
		id:         id,
		requestID:  requestID,
		receiver:   receiver,
		verbose:    verbose,
		signals:    make(chan signal, signalBuffer),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
		onTerminal: onTerminal,
	}
}

// ID returns the session handle.
func (s *Session) ID() string { return s.id }

// Phase returns the session's current lifecycle position.
func (s *Session) Phase() Phase { return Phase(s.phase.Load()) }

// Push forwards one intermediate result to the receiver.
func (s *Session) Push(result any) error {
	return s.send(signal{kind: signalPush, result: result})
}

// Final forwards the terminal result and completes the session.
func (s *Session) Final(result any) error {
	return s.send(signal{kind: signalFinal, result: result})
}

// Fail terminates the session with an error.
func (s *Session) Fail(err error) error {
	return s.send(signal{kind: signalFail, err: err})
}

// Complete terminates the session without a payload.
func (s *Session) Complete() error {
	return s.send(signal{kind: signalComplete})
}

func (s *Session) send(sig signal) error {
	select {
	case <-s.done:
		return gateway.ErrSessionClosed
	default:
	}
	select {
	case s.signals <- sig:
		return nil
	case <-s.done:
		return gateway.ErrSessionClosed
	}
}

// Stop requests external termination. The session answers the client with
// one completion Response and ignores every later signal; the producer is
// not told.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Run starts the producer's first invocation and then serializes signals
// until the session terminates. It blocks for the session's whole life, so
// a stream worker is occupied per live session.
func (s *Session) Run(ctx context.Context, invoke InitFunc) {
	select {
	case <-s.done:
		return
	case <-s.stopCh:
		// Stopped before a worker picked the session up.
		s.terminate(PhaseStopped, s.completionResponse())
		return
	default:
	}

	if !s.phase.CompareAndSwap(int32(PhaseInit), int32(PhaseActive)) {
		return
	}
	logging.Debug("Stream", "Session %s active for request %s", s.id, s.requestID)

	go func() {
		if err := invoke(ctx, s); err != nil {
			_ = s.Fail(err)
		}
	}()

	s.loop(ctx)
}

// abort terminates a session that never delivered anything, without
// answering the client. Used when the stream pool rejects or loses the
// session's task.
func (s *Session) abort() {
	s.terminate(PhaseStopped, nil)
}

func (s *Session) loop(ctx context.Context) {
	for {
		// A pending stop wins over queued signals.
		select {
		case <-s.stopCh:
			s.terminate(PhaseStopped, s.completionResponse())
			return
		case <-s.done:
			return
		default:
		}

		select {
		case <-s.stopCh:
			s.terminate(PhaseStopped, s.completionResponse())
			return
		case <-s.done:
			return
		case <-ctx.Done():
			s.terminate(PhaseStopped, s.completionResponse())
			return
		case sig := <-s.signals:
			if s.handle(sig) {
				return
			}
		}
	}
}

// handle forwards one signal. It reports whether the signal was terminal.
func (s *Session) handle(sig signal) bool {
	switch sig.kind {
	case signalPush:
		s.receiver.Deliver(&gateway.Response{
			RequestID: s.requestID,
			Result:    sig.result,
			Success:   true,
			HasMore:   true,
		})
		return false

	case signalFinal:
		s.terminate(PhaseCompleted, &gateway.Response{
			RequestID: s.requestID,
			Result:    sig.result,
			Success:   true,
		})
		return true

	case signalFail:
		s.terminate(PhaseErrored, gateway.ResponseForError(s.requestID, sig.err, s.verbose))
		return true

	default: // signalComplete
		s.terminate(PhaseCompleted, s.completionResponse())
		return true
	}
}

func (s *Session) completionResponse() *gateway.Response {
	return &gateway.Response{RequestID: s.requestID, Success: true}
}

// terminate moves the session to a terminal phase exactly once, unblocks
// producers, delivers the closing Response if there is one, and drops the
// session from its manager.
func (s *Session) terminate(phase Phase, resp *gateway.Response) {
	s.termOnce.Do(func() {
		s.phase.Store(int32(phase))
		close(s.done)
		if resp != nil {
			s.receiver.Deliver(resp)
		}
		if s.onTerminal != nil {
			s.onTerminal(s.id)
		}
		logging.Debug("Stream", "Session %s terminated: %s", s.id, phase)
	})
}
