package stream

import (
	"sync"

	"github.com/google/uuid"

	"switchboard/internal/gateway"
	"switchboard/pkg/logging"
)

// Manager tracks live stream sessions by handle. Terminated sessions
// remove themselves, so the map only ever holds sessions a stop can still
// reach.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	verbose  bool
}

// NewManager creates an empty session table. verbose controls how much
// failure detail stream error Responses carry, matching the sync path.
func NewManager(verbose bool) *Manager {
	return &Manager{sessions: make(map[string]*Session), verbose: verbose}
}

// Open creates and registers a session for one streaming request. The
// returned session has not started; the caller hands its Run to a stream
// worker.
func (m *Manager) Open(req *gateway.Request, receiver gateway.Receiver) *Session {
	id := uuid.New().String()
	session := newSession(id, req.RequestID, receiver, m.verbose, m.remove)

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	logging.Debug("Stream", "Session %s opened for %s/%s", id, req.Service, req.RequestType)
	return session
}

// Stop terminates the session with the given handle. Unknown handles,
// including handles of sessions that already finished, report not-found.
func (m *Manager) Stop(id string) error {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return gateway.NewSessionNotFoundError(id)
	}
	logging.Info("Stream", "Session %s stopped externally", id)
	session.Stop()
	return nil
}

// Abort drops a session that never started, without answering the client.
func (m *Manager) Abort(session *Session) {
	session.abort()
}

// StopAll terminates every live session. Shutdown calls this before
// stopping the stream pool, so workers blocked in session runs come free.
func (m *Manager) StopAll() {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.mu.RUnlock()

	for _, session := range sessions {
		session.Stop()
	}
	if len(sessions) > 0 {
		logging.Info("Stream", "Stopped %d live sessions", len(sessions))
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
