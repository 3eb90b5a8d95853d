package stream

import (
	"sync"
	"time"
)

// Phase is the lifecycle state of one streaming session.
type Phase string

const (
	// PhaseIdle: session exists, frames are not accepted.
	PhaseIdle Phase = "idle"
	// PhaseStreaming: frames are accepted, throttled per connection.
	PhaseStreaming Phase = "streaming"
	// PhaseTerminated: connection closed or reaped; terminal.
	PhaseTerminated Phase = "terminated"
)

// Conn is the liveness view the sweep needs of the underlying transport.
type Conn interface {
	Alive() bool
}

// Session is the per-connection streaming state. All mutation goes through
// methods holding the session's own mutex, so one connection's transitions
// never block another's.
//
// The generation counter increments on every stop or termination. Frame work
// captures the generation when the frame is accepted and re-checks it before
// emitting, so results of in-flight frames are suppressed once a stop has
// been acknowledged — the frame is allowed to finish, its output is not.
type Session struct {
	ID   string
	conn Conn

	mu              sync.Mutex
	phase           Phase
	generation      uint64
	lastProcessedAt time.Time
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Start transitions Idle -> Streaming. Starting an already-streaming session
// is an idempotent no-op, not an error. Returns false only for a terminated
// session.
func (s *Session) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseTerminated {
		return false
	}
	s.phase = PhaseStreaming
	return true
}

// Stop transitions Streaming -> Idle and invalidates in-flight frame work.
// Stopping an idle session is a no-op. Returns false for a terminated session.
func (s *Session) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseTerminated {
		return false
	}
	s.phase = PhaseIdle
	s.generation++
	return true
}

// terminate moves the session to its terminal phase. Idempotent.
func (s *Session) terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseTerminated
	s.generation++
}

// Accept decides whether a frame arriving now may be processed: the session
// must be streaming and the throttle interval must have elapsed since the
// last accepted frame. lastProcessedAt moves only on acceptance, so dropped
// frames do not push the window. Returns the generation to check at emit time.
func (s *Session) Accept(now time.Time, minInterval time.Duration) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseStreaming {
		return 0, false
	}
	if !s.lastProcessedAt.IsZero() && now.Sub(s.lastProcessedAt) < minInterval {
		return 0, false
	}
	s.lastProcessedAt = now
	return s.generation, true
}

// Emittable reports whether output produced under the given generation may
// still be delivered. False once the session stopped, restarted, or
// terminated after the frame was accepted.
func (s *Session) Emittable(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == PhaseStreaming && s.generation == generation
}

// Registry tracks every live session. The map is guarded by its own mutex;
// per-session state is guarded by each session's mutex, so registry lookups
// stay cheap and sessions do not contend with each other.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create registers a session in Idle for the connection. An existing session
// for the same id is returned unchanged.
func (r *Registry) Create(connID string, conn Conn) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[connID]; ok {
		return existing
	}
	s := &Session{ID: connID, conn: conn, phase: PhaseIdle}
	r.sessions[connID] = s
	return s
}

// Get returns the session for the connection, or nil.
func (r *Registry) Get(connID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[connID]
}

// Remove terminates and deletes the session. Removing an unknown or
// already-removed id is a no-op; a removed session can never be resurrected
// because its terminal phase survives in the session object itself.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	s, ok := r.sessions[connID]
	if ok {
		delete(r.sessions, connID)
	}
	r.mu.Unlock()

	if ok {
		s.terminate()
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// all returns a point-in-time slice of live sessions for the sweep.
func (r *Registry) all() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
