package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blockedby/listings-os/internal/models"
)

// ScansRepository handles scrape_scans table operations.
// One row per pagination pass; full scans drive inactivation.
type ScansRepository struct {
	pool *pgxpool.Pool
}

// NewScansRepository creates a new scans repository
func NewScansRepository(pool *pgxpool.Pool) *ScansRepository {
	return &ScansRepository{pool: pool}
}

// Start records the beginning of a scan. The returned row's StartedAt
// is the inactivation cutoff if the scan completes as a full pass.
func (r *ScansRepository) Start(ctx context.Context, sourceID uuid.UUID, full bool) (*models.ScrapeScan, error) {
	scan := &models.ScrapeScan{SourceID: sourceID, Full: full}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO scrape_scans (source_id, "full", started_at)
		VALUES ($1, $2, NOW())
		RETURNING id, started_at
	`, sourceID, full).Scan(&scan.ID, &scan.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("start scan: %w", err)
	}
	return scan, nil
}

// Finish closes a scan with its final counters
func (r *ScansRepository) Finish(ctx context.Context, scan *models.ScrapeScan) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE scrape_scans
		SET finished_at = NOW(), found = $2, upserted = $3, skipped = $4, errors = $5
		WHERE id = $1
	`, scan.ID, scan.Found, scan.Upserted, scan.Skipped, scan.Errors)
	if err != nil {
		return fmt.Errorf("finish scan: %w", err)
	}
	return nil
}

// LastFinished returns the most recent finished scan for a source,
// or ErrNotFound when the source has never completed one.
func (r *ScansRepository) LastFinished(ctx context.Context, sourceID uuid.UUID) (*models.ScrapeScan, error) {
	var s models.ScrapeScan
	err := r.pool.QueryRow(ctx, `
		SELECT id, source_id, "full", started_at, finished_at,
		       found, upserted, skipped, errors
		FROM scrape_scans
		WHERE source_id = $1 AND finished_at IS NOT NULL
		ORDER BY finished_at DESC
		LIMIT 1
	`, sourceID).Scan(
		&s.ID, &s.SourceID, &s.Full, &s.StartedAt, &s.FinishedAt,
		&s.Found, &s.Upserted, &s.Skipped, &s.Errors,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("last scan for %s: %w", sourceID, ErrNotFound)
		}
		return nil, fmt.Errorf("get last scan: %w", err)
	}
	return &s, nil
}
