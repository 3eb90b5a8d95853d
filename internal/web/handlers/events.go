package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/facekit/livematch/internal/stream"
)

// eventChannelBuffer bounds the per-connection event queue. A slow SSE
// consumer loses events rather than blocking the dispatcher.
const eventChannelBuffer = 32

// Event is one SSE payload: a stream status change, a frame's match
// results, or a frame error.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub routes events from the frame pipeline to the SSE listener of each
// connection. It implements stream.Emitter; sends to connections without a
// listener (or with a full buffer) are dropped, never blocked on.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*hubConn
}

type hubConn struct {
	ch         chan Event
	attached   bool
	graceUntil time.Time
}

// NewHub creates an empty event hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]*hubConn)}
}

// Register announces a new connection. Until a listener attaches, the
// connection counts as alive for the grace period so the sweep does not reap
// it between connect and the first SSE request.
func (h *Hub) Register(connID string, grace time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[connID]; ok {
		return
	}
	h.conns[connID] = &hubConn{
		ch:         make(chan Event, eventChannelBuffer),
		graceUntil: time.Now().Add(grace),
	}
}

// Attach claims the connection's event channel for an SSE request. Only one
// listener per connection; a second concurrent attach is refused.
func (h *Hub) Attach(connID string) (<-chan Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if !ok || c.attached {
		return nil, false
	}
	c.attached = true
	return c.ch, true
}

// Remove drops the connection and its event channel.
func (h *Hub) Remove(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, connID)
}

// Known reports whether the connection is registered at all.
func (h *Hub) Known(connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[connID]
	return ok
}

// Alive reports whether the connection still has a listener, or is still
// within its post-connect grace period.
func (h *Hub) Alive(connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[connID]
	if !ok {
		return false
	}
	return c.attached || time.Now().Before(c.graceUntil)
}

// Conn returns a liveness probe for the connection, suitable for the
// session registry.
func (h *Hub) Conn(connID string) stream.Conn {
	return hubLiveness{hub: h, connID: connID}
}

type hubLiveness struct {
	hub    *Hub
	connID string
}

func (l hubLiveness) Alive() bool {
	return l.hub.Alive(l.connID)
}

func (h *Hub) send(connID string, ev Event) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case c.ch <- ev:
	default:
		// Listener buffer full, skip.
	}
}

// StreamStatus implements stream.Emitter.
func (h *Hub) StreamStatus(connID string, status stream.Status) {
	h.send(connID, Event{Type: "stream-status", Data: map[string]string{"status": string(status)}})
}

// MatchResults implements stream.Emitter.
func (h *Hub) MatchResults(connID string, results stream.FrameResults) {
	h.send(connID, Event{Type: "match-results", Data: results})
}

// StreamError implements stream.Emitter.
func (h *Hub) StreamError(connID string, frameErr stream.FrameError) {
	h.send(connID, Event{Type: "stream-error", Data: frameErr})
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}
