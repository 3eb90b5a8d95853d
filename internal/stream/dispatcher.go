package stream

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/facekit/livematch/internal/catalogue"
	"github.com/facekit/livematch/internal/match"
	"github.com/facekit/livematch/internal/recognizer"
)

// Options are the dispatcher tunables. All of them come from configuration;
// nothing here is hard-coded.
type Options struct {
	Threshold        float64       // minimum similarity for a positive match
	ThrottleInterval time.Duration // minimum gap between processed frames per connection
	EncoderTimeout   time.Duration // deadline for one encoder round-trip
	MaxFrameBytes    int           // reject decoded frames larger than this (0 disables)
}

// Dispatcher drives one frame through throttle, decode, encode and match,
// and emits the outcome. It is safe for concurrent use; frames from the
// same connection may be in flight simultaneously and complete out of order.
type Dispatcher struct {
	registry *Registry
	store    catalogue.Store
	matcher  *match.Matcher
	encoder  recognizer.Encoder
	emitter  Emitter
	opts     Options
}

// NewDispatcher wires the frame pipeline together.
func NewDispatcher(registry *Registry, store catalogue.Store, matcher *match.Matcher, encoder recognizer.Encoder, emitter Emitter, opts Options) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		store:    store,
		matcher:  matcher,
		encoder:  encoder,
		emitter:  emitter,
		opts:     opts,
	}
}

// Begin handles the begin-stream signal: Idle -> Streaming, acknowledged
// with a stream-status event. Unknown or terminated connections are ignored.
func (d *Dispatcher) Begin(connID string) {
	s := d.registry.Get(connID)
	if s == nil || !s.Start() {
		log.Printf("stream: begin ignored for connection %s", connID)
		return
	}
	d.emitter.StreamStatus(connID, StatusStarted)
}

// End handles the end-stream signal: Streaming -> Idle. Results of frames
// still in flight at this point are suppressed.
func (d *Dispatcher) End(connID string) {
	s := d.registry.Get(connID)
	if s == nil || !s.Stop() {
		log.Printf("stream: end ignored for connection %s", connID)
		return
	}
	d.emitter.StreamStatus(connID, StatusStopped)
}

// HandleFrame processes one submitted frame. Frames for sessions that are
// not streaming, and frames arriving faster than the throttle interval, are
// dropped silently — both are expected races, not faults. Every other
// failure degrades to a single stream-error emission; nothing in here may
// take down the connection's worker or any other connection.
func (d *Dispatcher) HandleFrame(ctx context.Context, connID, payload, frameToken string) {
	s := d.registry.Get(connID)
	if s == nil {
		log.Printf("stream: frame %s for unknown connection %s dropped", frameToken, connID)
		return
	}

	generation, ok := s.Accept(time.Now(), d.opts.ThrottleInterval)
	if !ok {
		// Not streaming (stop race) or throttled. Silent by contract.
		log.Printf("stream: frame %s on connection %s dropped (phase %s)", frameToken, connID, s.Phase())
		return
	}

	image, err := decodeFramePayload(payload)
	if err != nil {
		d.emitError(s, FrameError{FrameToken: frameToken, Kind: KindValidation, Message: err.Error()}, generation)
		return
	}
	if d.opts.MaxFrameBytes > 0 && len(image) > d.opts.MaxFrameBytes {
		d.emitError(s, FrameError{FrameToken: frameToken, Kind: KindValidation,
			Message: fmt.Sprintf("frame of %d bytes exceeds limit of %d", len(image), d.opts.MaxFrameBytes)}, generation)
		return
	}

	encCtx, cancel := context.WithTimeout(ctx, d.opts.EncoderTimeout)
	defer cancel()

	detections, err := d.encoder.Detect(encCtx, image)
	if err != nil {
		d.emitError(s, FrameError{FrameToken: frameToken, Kind: classifyEncoderError(err), Message: err.Error()}, generation)
		return
	}

	// One snapshot per frame: every face in this frame is compared against
	// the same catalogue state.
	snapshot, err := d.store.ListActive(ctx)
	if err != nil {
		d.emitError(s, FrameError{FrameToken: frameToken, Kind: KindProcessing,
			Message: fmt.Sprintf("catalogue snapshot: %v", err)}, generation)
		return
	}

	results := make([]FaceMatch, 0, len(detections))
	for _, det := range detections {
		res := d.matcher.Match(det.Descriptor, snapshot, d.opts.Threshold)
		results = append(results, FaceMatch{Result: res, Box: det.Box})
	}

	if !s.Emittable(generation) {
		log.Printf("stream: results for frame %s on connection %s suppressed after stop", frameToken, connID)
		return
	}
	d.emitter.MatchResults(connID, FrameResults{
		FrameToken: frameToken,
		Results:    results,
		Timestamp:  time.Now(),
	})
}

// emitError reports a frame failure unless the session stopped or terminated
// since the frame was accepted.
func (d *Dispatcher) emitError(s *Session, frameErr FrameError, generation uint64) {
	if !s.Emittable(generation) {
		log.Printf("stream: error for frame %s on connection %s suppressed after stop", frameErr.FrameToken, s.ID)
		return
	}
	d.emitter.StreamError(s.ID, frameErr)
}

// decodeFramePayload turns the transport encoding (a base64 string, with or
// without a data-URL prefix) into raw image bytes.
func decodeFramePayload(payload string) ([]byte, error) {
	if payload == "" {
		return nil, errors.New("missing frame payload")
	}
	if i := strings.IndexByte(payload, ','); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid frame payload: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty frame payload")
	}
	return data, nil
}

// classifyEncoderError maps encoder client failures onto the stream error
// taxonomy. Timeout stays distinguishable from unavailability even though
// clients treat both as retryable.
func classifyEncoderError(err error) ErrorKind {
	switch {
	case errors.Is(err, recognizer.ErrTimeout):
		return KindTimeout
	case errors.Is(err, recognizer.ErrUnavailable):
		return KindUnavailable
	default:
		return KindProcessing
	}
}
