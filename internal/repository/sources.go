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

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// SourcesRepository handles sources table operations
type SourcesRepository struct {
	pool *pgxpool.Pool
}

// NewSourcesRepository creates a new sources repository
func NewSourcesRepository(pool *pgxpool.Pool) *SourcesRepository {
	return &SourcesRepository{pool: pool}
}

// GetByCode returns the source registered under the given code.
// Returns ErrNotFound when no such source exists.
func (r *SourcesRepository) GetByCode(ctx context.Context, code string) (*models.Source, error) {
	var s models.Source
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, name, base_url, is_active, created_at, updated_at
		FROM sources
		WHERE code = $1
	`, code).Scan(
		&s.ID, &s.Code, &s.Name, &s.BaseURL, &s.IsActive,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("source %q: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("get source by code: %w", err)
	}
	return &s, nil
}

// GetByID returns a source by ID, or ErrNotFound.
func (r *SourcesRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Source, error) {
	var s models.Source
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, name, base_url, is_active, created_at, updated_at
		FROM sources
		WHERE id = $1
	`, id).Scan(
		&s.ID, &s.Code, &s.Name, &s.BaseURL, &s.IsActive,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("source %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get source by id: %w", err)
	}
	return &s, nil
}

// Create registers a new source
func (r *SourcesRepository) Create(ctx context.Context, s *models.Source) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO sources (code, name, base_url, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, s.Code, s.Name, s.BaseURL, s.IsActive,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	return nil
}

// ListActive returns all active sources
func (r *SourcesRepository) ListActive(ctx context.Context) ([]models.Source, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, name, base_url, is_active, created_at, updated_at
		FROM sources
		WHERE is_active = TRUE
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []models.Source
	for rows.Next() {
		var s models.Source
		if err := rows.Scan(
			&s.ID, &s.Code, &s.Name, &s.BaseURL, &s.IsActive,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, nil
}
