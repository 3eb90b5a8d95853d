package catalogue

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func testDescriptor(dim int, hot int) []float32 {
	d := make([]float32, dim)
	d[hot] = 1
	return d
}

func TestMemoryStore_Enroll(t *testing.T) {
	store := NewMemoryStore(4)
	ctx := context.Background()

	rec, err := store.Enroll(ctx, "Jan Novák", testDescriptor(4, 0), Metadata{Confidence: 0.97, Quality: "good"})
	if err != nil {
		t.Fatalf("enroll failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected a generated record id")
	}
	if !rec.Active {
		t.Error("new record should be active")
	}
	if rec.Confidence != 0.97 || rec.Quality != "good" {
		t.Errorf("metadata not stored: %+v", rec)
	}
}

func TestMemoryStore_Enroll_DuplicateLabel(t *testing.T) {
	store := NewMemoryStore(4)
	ctx := context.Background()

	if _, err := store.Enroll(ctx, "Jan Novák", testDescriptor(4, 0), Metadata{}); err != nil {
		t.Fatalf("first enroll failed: %v", err)
	}

	// Same label up to case and diacritics.
	_, err := store.Enroll(ctx, "jan novak", testDescriptor(4, 1), Metadata{})
	if !errors.Is(err, ErrDuplicateLabel) {
		t.Errorf("expected ErrDuplicateLabel, got %v", err)
	}
}

func TestMemoryStore_Enroll_DimMismatch(t *testing.T) {
	store := NewMemoryStore(4)

	_, err := store.Enroll(context.Background(), "x", testDescriptor(3, 0), Metadata{})
	if !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("expected ErrInvalidDescriptor, got %v", err)
	}
}

func TestMemoryStore_Deactivate(t *testing.T) {
	store := NewMemoryStore(4)
	ctx := context.Background()

	rec, err := store.Enroll(ctx, "a", testDescriptor(4, 0), Metadata{})
	if err != nil {
		t.Fatalf("enroll failed: %v", err)
	}

	if err := store.Deactivate(ctx, rec.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	// Deactivating twice is not an error.
	if err := store.Deactivate(ctx, rec.ID); err != nil {
		t.Errorf("second deactivate should be a no-op, got %v", err)
	}

	if err := store.Deactivate(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}

	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, r := range active {
		if r.ID == rec.ID {
			t.Error("deactivated record still listed as active")
		}
	}

	// Label becomes reusable after deactivation.
	if _, err := store.Enroll(ctx, "a", testDescriptor(4, 1), Metadata{}); err != nil {
		t.Errorf("label of a deactivated record should be reusable, got %v", err)
	}
}

func TestMemoryStore_ListActive_NewestFirst(t *testing.T) {
	store := NewMemoryStore(4)
	ctx := context.Background()

	for _, label := range []string{"first", "second", "third"} {
		if _, err := store.Enroll(ctx, label, testDescriptor(4, 0), Metadata{Confidence: 1}); err != nil {
			// Different labels share a descriptor on purpose; only labels must be unique.
			t.Fatalf("enroll %s failed: %v", label, err)
		}
	}

	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("expected 3 active records, got %d", len(active))
	}
	if active[0].Label != "third" || active[2].Label != "first" {
		t.Errorf("expected newest-first ordering, got %s..%s", active[0].Label, active[2].Label)
	}
}

func TestMemoryStore_SnapshotUnaffectedByLaterWrites(t *testing.T) {
	store := NewMemoryStore(4)
	ctx := context.Background()

	rec, _ := store.Enroll(ctx, "a", testDescriptor(4, 0), Metadata{})
	snapshot, _ := store.ListActive(ctx)

	if err := store.Deactivate(ctx, rec.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	if len(snapshot) != 1 || !snapshot[0].Active {
		t.Error("snapshot taken before deactivation must still show the record active")
	}
}

func TestMemoryStore_ConcurrentReadersAndWriters(t *testing.T) {
	store := NewMemoryStore(4)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			label := string(rune('a' + n))
			_, _ = store.Enroll(ctx, label, testDescriptor(4, n%4), Metadata{})
		}(i)
		go func() {
			defer wg.Done()
			if _, err := store.ListActive(ctx); err != nil {
				t.Errorf("list failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if store.Len() != 8 {
		t.Errorf("expected 8 records, got %d", store.Len())
	}
}
