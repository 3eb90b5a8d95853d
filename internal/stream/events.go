package stream

import (
	"time"

	"github.com/facekit/livematch/internal/match"
	"github.com/facekit/livematch/internal/recognizer"
)

// Status reports a streaming state change back to the client.
type Status string

const (
	StatusStarted Status = "started"
	StatusStopped Status = "stopped"
)

// FaceMatch is one matched (or unknown) face in a frame, with its geometry
// passed through from the detection untouched.
type FaceMatch struct {
	match.Result
	Box recognizer.Box `json:"box"`
}

// FrameResults is the complete outcome for one frame: one entry per detected
// face, in detection order. The frame token lets the client correlate
// results with submissions — results for concurrent frames may arrive out of
// send order, so consumers must key on the token, not the sequence.
type FrameResults struct {
	FrameToken string      `json:"frame_token"`
	Results    []FaceMatch `json:"results"`
	Timestamp  time.Time   `json:"timestamp"`
}

// FrameError reports a failed frame. No partial results accompany it: a
// frame either yields a full FrameResults or a single FrameError.
type FrameError struct {
	FrameToken string    `json:"frame_token,omitempty"`
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
}

// Emitter is the outbound half of the connection layer. Implementations must
// be safe for concurrent use; the dispatcher fans frames out per connection.
type Emitter interface {
	StreamStatus(connID string, status Status)
	MatchResults(connID string, results FrameResults)
	StreamError(connID string, frameErr FrameError)
}
