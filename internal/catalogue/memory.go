package catalogue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-process catalogue implementation. Records live in an
// append-only slice; deactivation flips the Active flag and never removes the
// entry, so indexes held by concurrent readers stay valid.
type MemoryStore struct {
	dim int

	mu      sync.RWMutex
	records []IdentityRecord
	byID    map[string]int // record id -> index in records
}

// NewMemoryStore creates an empty catalogue for descriptors of the given dimensionality.
func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{
		dim:  dim,
		byID: make(map[string]int),
	}
}

// Enroll appends a new active record. Fails with ErrDuplicateLabel if an
// active record normalizes to the same label, or ErrInvalidDescriptor on a
// dimensionality mismatch.
func (s *MemoryStore) Enroll(ctx context.Context, label string, descriptor []float32, meta Metadata) (IdentityRecord, error) {
	if len(descriptor) != s.dim {
		return IdentityRecord{}, ErrInvalidDescriptor
	}

	key := NormalizeLabel(label)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].Active && NormalizeLabel(s.records[i].Label) == key {
			return IdentityRecord{}, ErrDuplicateLabel
		}
	}

	// Copy the descriptor so the caller cannot mutate the stored vector.
	vec := make([]float32, len(descriptor))
	copy(vec, descriptor)

	rec := IdentityRecord{
		ID:         uuid.NewString(),
		Label:      label,
		Descriptor: vec,
		Confidence: meta.Confidence,
		Quality:    meta.Quality,
		Active:     true,
		EnrolledAt: time.Now(),
	}

	s.records = append(s.records, rec)
	s.byID[rec.ID] = len(s.records) - 1

	return rec, nil
}

// Deactivate soft-deletes a record. Deactivating an already-inactive record
// is a no-op; an unknown id is ErrNotFound.
func (s *MemoryStore) Deactivate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.records[i].Active = false
	return nil
}

// ListActive returns a point-in-time snapshot of active records, most
// recently enrolled first. The returned slice and its descriptors are safe
// to hold across subsequent writes.
func (s *MemoryStore) ListActive(ctx context.Context) ([]IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]IdentityRecord, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].Active {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

// Len returns the total number of records, active or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
