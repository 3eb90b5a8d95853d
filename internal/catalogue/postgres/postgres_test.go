//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/facekit/livematch/internal/catalogue"
	"github.com/facekit/livematch/internal/config"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func descriptor128(hot int) []float32 {
	d := make([]float32, 128)
	d[hot] = 1
	return d
}

func TestIdentityRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewIdentityRepository(pool, 128)

	t.Run("enroll and list", func(t *testing.T) {
		rec, err := repo.Enroll(ctx, "Jan Novák", descriptor128(0), catalogue.Metadata{Confidence: 0.95, Quality: "good"})
		if err != nil {
			t.Fatalf("enroll failed: %v", err)
		}

		active, err := repo.ListActive(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(active) != 1 {
			t.Fatalf("expected 1 active record, got %d", len(active))
		}
		if active[0].ID != rec.ID || active[0].Label != "Jan Novák" {
			t.Errorf("unexpected record: %+v", active[0])
		}
		if len(active[0].Descriptor) != 128 {
			t.Errorf("expected 128-dim descriptor back, got %d", len(active[0].Descriptor))
		}
	})

	t.Run("duplicate label rejected", func(t *testing.T) {
		_, err := repo.Enroll(ctx, "jan novak", descriptor128(1), catalogue.Metadata{})
		if !errors.Is(err, catalogue.ErrDuplicateLabel) {
			t.Errorf("expected ErrDuplicateLabel, got %v", err)
		}
	})

	t.Run("dimensionality enforced", func(t *testing.T) {
		_, err := repo.Enroll(ctx, "short", make([]float32, 64), catalogue.Metadata{})
		if !errors.Is(err, catalogue.ErrInvalidDescriptor) {
			t.Errorf("expected ErrInvalidDescriptor, got %v", err)
		}
	})

	t.Run("deactivate frees the label", func(t *testing.T) {
		active, err := repo.ListActive(ctx)
		if err != nil || len(active) == 0 {
			t.Fatalf("listing before deactivation failed: %v", err)
		}

		if err := repo.Deactivate(ctx, active[0].ID); err != nil {
			t.Fatalf("deactivate failed: %v", err)
		}
		if err := repo.Deactivate(ctx, active[0].ID); err != nil {
			t.Errorf("second deactivate should be a no-op, got %v", err)
		}
		if err := repo.Deactivate(ctx, "missing"); !errors.Is(err, catalogue.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		if _, err := repo.Enroll(ctx, "Jan Novák", descriptor128(2), catalogue.Metadata{}); err != nil {
			t.Errorf("label should be reusable after deactivation, got %v", err)
		}

		// Soft delete: the record drops out of the active view but is
		// still kept in the table.
		total, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}
		listed, err := repo.ListActive(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if total <= len(listed) {
			t.Errorf("deactivated records must survive in the table: total %d, active %d", total, len(listed))
		}
	})

	t.Run("ordering newest first", func(t *testing.T) {
		if _, err := repo.Enroll(ctx, "latest", descriptor128(3), catalogue.Metadata{}); err != nil {
			t.Fatalf("enroll failed: %v", err)
		}
		active, err := repo.ListActive(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if active[0].Label != "latest" {
			t.Errorf("expected newest-first ordering, got %s first", active[0].Label)
		}
	})
}
