package stream

import (
	"context"
	"log"
	"time"
)

// Lifecycle creates and destroys sessions as connections come and go, and
// periodically reaps sessions whose transport died without a clean close.
type Lifecycle struct {
	registry      *Registry
	sweepInterval time.Duration
	onRemove      func(connID string)
}

// NewLifecycle creates a lifecycle manager over the registry.
func NewLifecycle(registry *Registry, sweepInterval time.Duration) *Lifecycle {
	return &Lifecycle{registry: registry, sweepInterval: sweepInterval}
}

// OnRemove registers a hook that runs after a session is removed, on both
// the disconnect and sweep paths. The connection layer uses it to release
// its per-connection resources so they cannot outlive the session.
func (l *Lifecycle) OnRemove(fn func(connID string)) {
	l.onRemove = fn
}

// Connect registers a session in Idle for a new connection.
func (l *Lifecycle) Connect(connID string, conn Conn) *Session {
	log.Printf("stream: connection %s registered", connID)
	return l.registry.Create(connID, conn)
}

// Disconnect terminates and removes the session. Idempotent.
func (l *Lifecycle) Disconnect(connID string) {
	log.Printf("stream: connection %s closed", connID)
	l.remove(connID)
}

func (l *Lifecycle) remove(connID string) {
	l.registry.Remove(connID)
	if l.onRemove != nil {
		l.onRemove(connID)
	}
}

// Run sweeps the registry at the configured interval until the context is
// cancelled. Any session whose connection no longer reports alive is reaped
// regardless of phase.
func (l *Lifecycle) Run(ctx context.Context) {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep removes sessions with dead connections.
func (l *Lifecycle) sweep() {
	reaped := 0
	for _, s := range l.registry.all() {
		if s.conn != nil && !s.conn.Alive() {
			l.remove(s.ID)
			reaped++
		}
	}
	if reaped > 0 {
		log.Printf("stream: sweep reaped %d stale session(s), %d remaining", reaped, l.registry.Len())
	}
}
