package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/facekit/livematch/internal/stream"
)

// connectGrace is how long a freshly created connection counts as alive
// before its SSE listener attaches.
const connectGrace = 30 * time.Second

// StreamHandler exposes the frame pipeline over HTTP: connect, an SSE event
// channel, start/stop signals and frame submission.
type StreamHandler struct {
	lifecycle  *stream.Lifecycle
	dispatcher *stream.Dispatcher
	hub        *Hub
}

// NewStreamHandler creates a stream handler. Hub entries share the session's
// lifetime: whatever removes the session (clean disconnect or the stale
// sweep) also releases the hub entry.
func NewStreamHandler(lifecycle *stream.Lifecycle, dispatcher *stream.Dispatcher, hub *Hub) *StreamHandler {
	lifecycle.OnRemove(hub.Remove)
	return &StreamHandler{lifecycle: lifecycle, dispatcher: dispatcher, hub: hub}
}

// Connect creates a new connection and its idle session.
func (h *StreamHandler) Connect(w http.ResponseWriter, r *http.Request) {
	connID := uuid.NewString()
	h.hub.Register(connID, connectGrace)
	h.lifecycle.Connect(connID, h.hub.Conn(connID))
	respondJSON(w, http.StatusCreated, map[string]string{"connection_id": connID})
}

// Events streams the connection's events over SSE until the client goes
// away. Closing the event stream closes the whole connection.
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	connID := chi.URLParam(r, "connID")
	if connID == "" {
		respondError(w, http.StatusBadRequest, "missing connection ID")
		return
	}

	eventCh, ok := h.hub.Attach(connID)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown connection or listener already attached")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	defer h.lifecycle.Disconnect(connID)

	sendSSEEvent(w, flusher, "connected", map[string]string{"connection_id": connID})

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, event.Type, event.Data)
		}
	}
}

// Start handles the begin-stream signal.
func (h *StreamHandler) Start(w http.ResponseWriter, r *http.Request) {
	connID := chi.URLParam(r, "connID")
	if !h.sessionExists(connID) {
		respondError(w, http.StatusNotFound, "unknown connection")
		return
	}
	h.dispatcher.Begin(connID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Stop handles the end-stream signal.
func (h *StreamHandler) Stop(w http.ResponseWriter, r *http.Request) {
	connID := chi.URLParam(r, "connID")
	if !h.sessionExists(connID) {
		respondError(w, http.StatusNotFound, "unknown connection")
		return
	}
	h.dispatcher.End(connID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type frameRequest struct {
	Payload string `json:"payload"`
	Token   string `json:"token"`
}

// Frames accepts one frame for asynchronous processing. The HTTP response
// only acknowledges receipt; the outcome arrives on the SSE channel, tagged
// with the frame token.
func (h *StreamHandler) Frames(w http.ResponseWriter, r *http.Request) {
	connID := chi.URLParam(r, "connID")
	if !h.sessionExists(connID) {
		respondError(w, http.StatusNotFound, "unknown connection")
		return
	}

	var req frameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Token == "" {
		// Results and errors are correlated by token, so every frame
		// gets one even when the client does not bother.
		req.Token = uuid.NewString()
	}

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("stream: frame %s panic: %v", sanitizeForLog(req.Token), rec)
			}
		}()
		h.dispatcher.HandleFrame(context.Background(), connID, req.Payload, req.Token)
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{"token": req.Token})
}

func (h *StreamHandler) sessionExists(connID string) bool {
	return connID != "" && h.hub.Known(connID)
}
