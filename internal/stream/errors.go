package stream

// ErrorKind classifies a frame-processing failure for the client. Unavailable
// and Timeout behave the same for reporting but stay distinguishable so the
// client can decide whether a retry is worth it.
type ErrorKind string

const (
	// KindValidation is bad input shape (missing or undecodable frame payload).
	// Never retried by the core.
	KindValidation ErrorKind = "validation"
	// KindUnavailable means the encoder sidecar could not be reached.
	KindUnavailable ErrorKind = "upstream_unavailable"
	// KindTimeout means the encoder exceeded its deadline.
	KindTimeout ErrorKind = "timeout"
	// KindProcessing means the frame reached the encoder but could not be processed.
	KindProcessing ErrorKind = "processing_failed"
)
