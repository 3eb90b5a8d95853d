// Package mock provides a catalogue.Store test double with failure injection.
package mock

import (
	"context"

	"github.com/facekit/livematch/internal/catalogue"
)

// Store wraps a MemoryStore and lets tests force errors on any operation.
type Store struct {
	*catalogue.MemoryStore

	EnrollErr     error
	DeactivateErr error
	ListErr       error
}

// NewStore creates a mock catalogue for descriptors of the given dimensionality.
func NewStore(dim int) *Store {
	return &Store{MemoryStore: catalogue.NewMemoryStore(dim)}
}

func (s *Store) Enroll(ctx context.Context, label string, descriptor []float32, meta catalogue.Metadata) (catalogue.IdentityRecord, error) {
	if s.EnrollErr != nil {
		return catalogue.IdentityRecord{}, s.EnrollErr
	}
	return s.MemoryStore.Enroll(ctx, label, descriptor, meta)
}

func (s *Store) Deactivate(ctx context.Context, id string) error {
	if s.DeactivateErr != nil {
		return s.DeactivateErr
	}
	return s.MemoryStore.Deactivate(ctx, id)
}

func (s *Store) ListActive(ctx context.Context) ([]catalogue.IdentityRecord, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	return s.MemoryStore.ListActive(ctx)
}
