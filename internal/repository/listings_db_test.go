package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/listings-os/internal/database"
	"github.com/blockedby/listings-os/internal/models"
)

// Set INTEGRATION_TEST=1 DATABASE_URL=postgres://... to run these
// against a migrated database.

func integrationDB(t *testing.T) *database.DB {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("Skipping integration test; set INTEGRATION_TEST=1 to run")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := database.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("failed to connect to db: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func createTestSource(t *testing.T, db *database.DB) *models.Source {
	t.Helper()
	ctx := context.Background()

	src := &models.Source{
		Code:    "test-" + uuid.NewString()[:8],
		Name:    "Test Source",
		BaseURL: "https://reality.example.cz",
	}
	repo := NewSourcesRepository(db.Pool)
	if err := repo.Create(ctx, src); err != nil {
		t.Fatalf("failed to create source: %v", err)
	}
	t.Cleanup(func() {
		db.Pool.Exec(ctx, "DELETE FROM listings WHERE source_id = $1", src.ID)
		db.Pool.Exec(ctx, "DELETE FROM scrape_scans WHERE source_id = $1", src.ID)
		db.Pool.Exec(ctx, "DELETE FROM sources WHERE id = $1", src.ID)
	})
	return src
}

func testListing(sourceID uuid.UUID, externalID string) *models.Listing {
	price := 3500000.0
	return &models.Listing{
		SourceID:     sourceID,
		ExternalID:   externalID,
		URL:          "https://reality.example.cz/detail/" + externalID,
		Title:        "Prodej domu 4+1, Kladno",
		PropertyType: models.PropertyHouse,
		OfferType:    models.OfferSale,
		Price:        &price,
		Photos:       []string{"https://imgs.example-reality.cz/1.jpg"},
	}
}

func TestListingsRepository_Upsert(t *testing.T) {
	db := integrationDB(t)
	ctx := context.Background()
	src := createTestSource(t, db)
	repo := NewListingsRepository(db.Pool, db.GORM)

	l := testListing(src.ID, "100001")
	inserted, err := repo.Upsert(ctx, l)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !inserted {
		t.Error("first upsert should report an insert")
	}
	if l.ID == uuid.Nil {
		t.Error("id not populated")
	}
	firstSeen := l.FirstSeenAt

	time.Sleep(10 * time.Millisecond)

	// same key again with a changed price
	again := testListing(src.ID, "100001")
	newPrice := 3400000.0
	again.Price = &newPrice

	inserted, err = repo.Upsert(ctx, again)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if inserted {
		t.Error("re-observation should report an update, not an insert")
	}
	if again.ID != l.ID {
		t.Errorf("id changed across upserts: %v -> %v", l.ID, again.ID)
	}
	if !again.FirstSeenAt.Equal(firstSeen) {
		t.Errorf("first_seen_at changed: %v -> %v", firstSeen, again.FirstSeenAt)
	}
	if !again.LastSeenAt.After(firstSeen) {
		t.Errorf("last_seen_at not advanced: %v", again.LastSeenAt)
	}

	total, active, err := repo.CountBySource(ctx, src.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 1 || active != 1 {
		t.Errorf("total/active = %d/%d, want 1/1", total, active)
	}
}

func TestListingsRepository_MarkInactiveBefore(t *testing.T) {
	db := integrationDB(t)
	ctx := context.Background()
	src := createTestSource(t, db)
	repo := NewListingsRepository(db.Pool, db.GORM)

	stale := testListing(src.ID, "200001")
	if _, err := repo.Upsert(ctx, stale); err != nil {
		t.Fatalf("upsert stale: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	cutoff := time.Now()
	time.Sleep(10 * time.Millisecond)

	fresh := testListing(src.ID, "200002")
	if _, err := repo.Upsert(ctx, fresh); err != nil {
		t.Fatalf("upsert fresh: %v", err)
	}

	n, err := repo.MarkInactiveBefore(ctx, src.ID, cutoff)
	if err != nil {
		t.Fatalf("mark inactive: %v", err)
	}
	if n != 1 {
		t.Errorf("deactivated %d rows, want 1", n)
	}

	total, active, err := repo.CountBySource(ctx, src.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 2 || active != 1 {
		t.Errorf("total/active = %d/%d, want 2/1", total, active)
	}

	// a re-observation reactivates the row
	if _, err := repo.Upsert(ctx, testListing(src.ID, "200001")); err != nil {
		t.Fatalf("reactivating upsert: %v", err)
	}
	_, active, err = repo.CountBySource(ctx, src.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if active != 2 {
		t.Errorf("active = %d after reactivation, want 2", active)
	}
}

func TestListingsRepository_ListRecent(t *testing.T) {
	db := integrationDB(t)
	ctx := context.Background()
	src := createTestSource(t, db)
	repo := NewListingsRepository(db.Pool, db.GORM)

	for _, id := range []string{"300001", "300002", "300003"} {
		if _, err := repo.Upsert(ctx, testListing(src.ID, id)); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	rows, err := repo.ListRecent(ctx, src.ID, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].ExternalID != "300003" {
		t.Errorf("rows[0] = %s, want most recently seen first", rows[0].ExternalID)
	}
	if len(rows[0].Photos) != 1 {
		t.Errorf("photos not round-tripped: %v", rows[0].Photos)
	}
}

func TestScansRepository_Lifecycle(t *testing.T) {
	db := integrationDB(t)
	ctx := context.Background()
	src := createTestSource(t, db)
	repo := NewScansRepository(db.Pool)

	scan, err := repo.Start(ctx, src.ID, true)
	if err != nil {
		t.Fatalf("start scan: %v", err)
	}
	if scan.ID == uuid.Nil || scan.StartedAt.IsZero() {
		t.Error("scan not initialized by insert")
	}

	scan.Found = 10
	scan.Upserted = 9
	scan.Errors = 1
	if err := repo.Finish(ctx, scan); err != nil {
		t.Fatalf("finish scan: %v", err)
	}

	last, err := repo.LastFinished(ctx, src.ID)
	if err != nil {
		t.Fatalf("last finished: %v", err)
	}
	if last.ID != scan.ID {
		t.Errorf("last finished = %v, want %v", last.ID, scan.ID)
	}
	if last.Found != 10 || last.Errors != 1 {
		t.Errorf("counters not persisted: %+v", last)
	}
	if !last.Full {
		t.Error("full flag not persisted")
	}
}
