// Package catalogue holds the enrolled identity records used as the search
// space for live matching. The catalogue is append/soft-delete only:
// descriptors are never mutated in place, so a snapshot handed to a running
// search stays internally consistent no matter what writers do.
package catalogue

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateLabel is returned when an active record already holds the label.
	ErrDuplicateLabel = errors.New("an active identity with this label already exists")
	// ErrInvalidDescriptor is returned when a descriptor does not match the fixed dimensionality.
	ErrInvalidDescriptor = errors.New("descriptor dimensionality mismatch")
	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("identity record not found")
)

// IdentityRecord is one enrolled identity. Immutable once created except for
// the Active flag, which only ever flips from true to false.
type IdentityRecord struct {
	ID         string
	Label      string
	Descriptor []float32
	Confidence float64 // detection confidence reported by the encoder at enrollment
	Quality    string  // image quality grade reported by the encoder at enrollment
	Active     bool
	EnrolledAt time.Time
}

// Metadata carries enrollment-time measurements. Informational only; never
// consulted during matching.
type Metadata struct {
	Confidence float64
	Quality    string
}

// Store is the catalogue contract the matching core depends on.
//
// ListActive must return a point-in-time snapshot ordered most-recently-
// enrolled first. Implementations must guarantee a reader never observes a
// half-written record, and that deactivated records never reappear.
type Store interface {
	Enroll(ctx context.Context, label string, descriptor []float32, meta Metadata) (IdentityRecord, error)
	Deactivate(ctx context.Context, id string) error
	ListActive(ctx context.Context) ([]IdentityRecord, error)
}
