package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"github.com/blockedby/listings-os/internal/models"
)

// ListingsRepository handles listings table operations. Writes go
// through pgx; reads for the HTTP API go through gorm (see ListRecent).
type ListingsRepository struct {
	pool *pgxpool.Pool
	orm  *gorm.DB
}

// NewListingsRepository creates a new listings repository
func NewListingsRepository(pool *pgxpool.Pool, orm *gorm.DB) *ListingsRepository {
	return &ListingsRepository{pool: pool, orm: orm}
}

// Upsert inserts the listing or, when a row already exists for
// (source_id, external_id), overwrites its mutable fields. On update
// last_seen_at advances and first_seen_at stays untouched; the listing
// is reactivated if it had been marked inactive. The whole operation is
// a single atomic statement, so concurrent upserts for the same key
// serialize on the unique index and exactly one write wins.
// Returns whether the write was an insert.
func (r *ListingsRepository) Upsert(ctx context.Context, l *models.Listing) (bool, error) {
	photos, err := json.Marshal(l.Photos)
	if err != nil {
		return false, fmt.Errorf("marshal photos: %w", err)
	}

	var inserted bool
	err = r.pool.QueryRow(ctx, `
		INSERT INTO listings (
			source_id, external_id, url, title, description,
			property_type, offer_type, price, price_note,
			location_text, region, district, municipality,
			area_built_up, area_land, rooms, construction_type, condition,
			photos, is_active, first_seen_at, last_seen_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, TRUE, NOW(), NOW())
		ON CONFLICT (source_id, external_id) DO UPDATE SET
			url               = EXCLUDED.url,
			title             = EXCLUDED.title,
			description       = EXCLUDED.description,
			property_type     = EXCLUDED.property_type,
			offer_type        = EXCLUDED.offer_type,
			price             = EXCLUDED.price,
			price_note        = EXCLUDED.price_note,
			location_text     = EXCLUDED.location_text,
			region            = EXCLUDED.region,
			district          = EXCLUDED.district,
			municipality      = EXCLUDED.municipality,
			area_built_up     = EXCLUDED.area_built_up,
			area_land         = EXCLUDED.area_land,
			rooms             = EXCLUDED.rooms,
			construction_type = EXCLUDED.construction_type,
			condition         = EXCLUDED.condition,
			photos            = EXCLUDED.photos,
			is_active         = TRUE,
			last_seen_at      = NOW()
		RETURNING id, first_seen_at, last_seen_at, (xmax = 0) AS inserted
	`, l.SourceID, l.ExternalID, l.URL, l.Title, l.Description,
		l.PropertyType, l.OfferType, l.Price, l.PriceNote,
		l.LocationText, l.Region, l.District, l.Municipality,
		l.AreaBuiltUp, l.AreaLand, l.Rooms, l.ConstructionType, l.Condition,
		photos,
	).Scan(&l.ID, &l.FirstSeenAt, &l.LastSeenAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert listing: %w", err)
	}

	return inserted, nil
}

// MarkInactiveBefore deactivates every active listing of the source
// whose last_seen_at predates cutoff. Called after a completed full
// rescan: anything the pass did not re-observe is gone upstream.
// Rows are kept, never deleted.
func (r *ListingsRepository) MarkInactiveBefore(ctx context.Context, sourceID uuid.UUID, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE listings
		SET is_active = FALSE
		WHERE source_id = $1 AND is_active = TRUE AND last_seen_at < $2
	`, sourceID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("mark listings inactive: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountBySource returns total and active listing counts for a source
func (r *ListingsRepository) CountBySource(ctx context.Context, sourceID uuid.UUID) (total, active int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active)
		FROM listings
		WHERE source_id = $1
	`, sourceID).Scan(&total, &active)
	if err != nil {
		return 0, 0, fmt.Errorf("count listings: %w", err)
	}
	return total, active, nil
}

// ListRecent returns up to limit listings of a source ordered by most
// recently seen. Serves the read side of the HTTP API.
func (r *ListingsRepository) ListRecent(ctx context.Context, sourceID uuid.UUID, limit int) ([]models.Listing, error) {
	if limit <= 0 {
		limit = 50
	}
	var listings []models.Listing
	err := r.orm.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Order("last_seen_at DESC").
		Limit(limit).
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("list recent listings: %w", err)
	}
	return listings, nil
}
