package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/facekit/livematch/internal/catalogue"
)

// IdentityRepository implements catalogue.Store on PostgreSQL.
type IdentityRepository struct {
	pool *Pool
	dim  int
}

// NewIdentityRepository creates a new identity repository for descriptors of
// the given dimensionality. Must match the vector column width in the schema.
func NewIdentityRepository(pool *Pool, dim int) *IdentityRepository {
	return &IdentityRepository{pool: pool, dim: dim}
}

// Enroll inserts a new active identity. The partial unique index on
// (label_key) WHERE active enforces the duplicate-label rule atomically, so
// concurrent enrollments of the same label cannot both succeed.
func (r *IdentityRepository) Enroll(ctx context.Context, label string, descriptor []float32, meta catalogue.Metadata) (catalogue.IdentityRecord, error) {
	if len(descriptor) != r.dim {
		return catalogue.IdentityRecord{}, catalogue.ErrInvalidDescriptor
	}

	rec := catalogue.IdentityRecord{
		ID:         uuid.NewString(),
		Label:      label,
		Descriptor: descriptor,
		Confidence: meta.Confidence,
		Quality:    meta.Quality,
		Active:     true,
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO identities (id, label, label_key, descriptor, confidence, quality, active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING enrolled_at
	`, rec.ID, label, catalogue.NormalizeLabel(label), pgvector.NewVector(descriptor),
		meta.Confidence, meta.Quality).Scan(&rec.EnrolledAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return catalogue.IdentityRecord{}, catalogue.ErrDuplicateLabel
		}
		return catalogue.IdentityRecord{}, fmt.Errorf("enroll identity: %w", err)
	}

	return rec, nil
}

// Deactivate clears the active flag. Unknown ids are catalogue.ErrNotFound;
// clearing an already-inactive record is a no-op.
func (r *IdentityRepository) Deactivate(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, "UPDATE identities SET active = FALSE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deactivate identity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate identity: %w", err)
	}
	if n == 0 {
		return catalogue.ErrNotFound
	}
	return nil
}

// ListActive returns all active identities, most recently enrolled first.
// A single SELECT gives MVCC snapshot consistency for free.
func (r *IdentityRepository) ListActive(ctx context.Context) ([]catalogue.IdentityRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, label, descriptor, confidence, quality, enrolled_at
		FROM identities
		WHERE active
		ORDER BY seq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list active identities: %w", err)
	}
	defer rows.Close()

	var records []catalogue.IdentityRecord
	for rows.Next() {
		var rec catalogue.IdentityRecord
		var vec pgvector.Vector
		var enrolledAt time.Time
		if err := rows.Scan(&rec.ID, &rec.Label, &vec, &rec.Confidence, &rec.Quality, &enrolledAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		rec.Descriptor = vec.Slice()
		rec.Active = true
		rec.EnrolledAt = enrolledAt
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the total number of records, active or not.
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}
