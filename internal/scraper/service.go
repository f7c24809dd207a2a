// Package scraper implements the listing ingestion pipeline: profile
// resolution, list pagination, detail extraction and upsert, plus the
// job manager and HTTP trigger surface around it.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/listings-os/internal/fetcher"
	"github.com/blockedby/listings-os/internal/logger"
	"github.com/blockedby/listings-os/internal/models"
)

// SourceStore resolves source codes to registered sources.
type SourceStore interface {
	GetByCode(ctx context.Context, code string) (*models.Source, error)
}

// ListingStore persists normalized listings under dedup semantics.
type ListingStore interface {
	Upsert(ctx context.Context, l *models.Listing) (inserted bool, err error)
	MarkInactiveBefore(ctx context.Context, sourceID uuid.UUID, cutoff time.Time) (int64, error)
}

// ScanStore records pagination passes.
type ScanStore interface {
	Start(ctx context.Context, sourceID uuid.UUID, full bool) (*models.ScrapeScan, error)
	Finish(ctx context.Context, scan *models.ScrapeScan) error
}

// EventPublisher publishes pipeline events for downstream consumers.
type EventPublisher interface {
	PublishListingUpserted(ctx context.Context, event ListingUpsertedEvent) error
	PublishScrapeCompleted(ctx context.Context, event ScrapeCompletedEvent) error
}

// ListingUpsertedEvent is emitted after every successful upsert.
type ListingUpsertedEvent struct {
	ListingID  uuid.UUID `json:"listing_id"`
	SourceID   uuid.UUID `json:"source_id"`
	ExternalID string    `json:"external_id"`
	URL        string    `json:"url"`
	Inserted   bool      `json:"inserted"`
	SeenAt     time.Time `json:"seen_at"`
}

// ScrapeCompletedEvent is emitted once per finished source pass.
type ScrapeCompletedEvent struct {
	SourceCode  string    `json:"source_code"`
	Found       int       `json:"found"`
	Upserted    int       `json:"upserted"`
	Skipped     int       `json:"skipped"`
	Errors      int       `json:"errors"`
	Deactivated int64     `json:"deactivated"`
	FinishedAt  time.Time `json:"finished_at"`
}

// ServiceConfig tunes the orchestrator.
type ServiceConfig struct {
	// Workers bounds concurrent in-flight detail fetches per job,
	// independent of how many items a page yields.
	Workers int

	// MaxPages caps pagination when the profile does not set its own.
	MaxPages int

	FetchRetry   fetcher.RetryPolicy
	StorageRetry fetcher.RetryPolicy
}

// DefaultServiceConfig returns the settings used in production.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Workers:    4,
		MaxPages:   50,
		FetchRetry: fetcher.DefaultRetryPolicy(),
		StorageRetry: fetcher.RetryPolicy{
			MaxAttempts:     3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Retryable:       func(error) bool { return true },
		},
	}
}

// Service orchestrates the ingestion pipeline end to end.
type Service struct {
	fetch     fetcher.Fetcher
	sources   SourceStore
	listings  ListingStore
	scans     ScanStore
	publisher EventPublisher
	log       *logger.Logger
	cfg       ServiceConfig
}

// NewService creates a new scraper service. publisher may be nil when
// event publishing is disabled.
func NewService(
	fetch fetcher.Fetcher,
	sources SourceStore,
	listings ListingStore,
	scans ScanStore,
	publisher EventPublisher,
	log *logger.Logger,
	cfg ServiceConfig,
) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Service{
		fetch:     fetch,
		sources:   sources,
		listings:  listings,
		scans:     scans,
		publisher: publisher,
		log:       log,
		cfg:       cfg,
	}
}

// ScrapeOptions describes one triggered job.
type ScrapeOptions struct {
	SourceCodes []string
	FullRescan  bool
	Profile     models.SearchProfile
}

// ScrapeResult accumulates per-item outcomes across the job. Isolated
// item failures land in Errors/Skipped without aborting the job.
type ScrapeResult struct {
	Found       int
	Upserted    int
	Inserted    int
	Updated     int
	Skipped     int
	Errors      int
	Deactivated int64
}

// Scrape runs the job: resolve profile, paginate list pages, fan detail
// work across the worker pool, upsert, and reconcile activity flags on
// full rescans. A non-nil error means the job failed fatally; partial
// progress up to that point stays persisted.
func (s *Service) Scrape(ctx context.Context, opts ScrapeOptions) (*ScrapeResult, error) {
	result := &ScrapeResult{}

	for _, code := range opts.SourceCodes {
		source, err := s.sources.GetByCode(ctx, code)
		if err != nil {
			return result, fmt.Errorf("resolve source: %w", err)
		}

		if err := s.scrapeSource(ctx, source, opts, result); err != nil {
			return result, err
		}

		if ctx.Err() != nil {
			s.log.Info().Msg("scrape cancelled")
			return result, nil
		}
	}

	if result.Found > 0 && result.Errors == result.Found {
		return result, errors.New("every item failed")
	}

	return result, nil
}

func (s *Service) scrapeSource(ctx context.Context, source *models.Source, opts ScrapeOptions, result *ScrapeResult) error {
	queryURL, err := ResolveProfileURL(source.BaseURL, opts.Profile)
	if err != nil {
		return fmt.Errorf("resolve profile: %w", err)
	}

	s.log.Info().
		Str("source", source.Code).
		Str("url", queryURL).
		Bool("full_rescan", opts.FullRescan).
		Msg("starting scrape")

	scan, err := s.scans.Start(ctx, source.ID, opts.FullRescan)
	if err != nil {
		return fmt.Errorf("start scan: %w", err)
	}

	src := &sourceRun{
		service: s,
		source:  source,
		offer:   opts.Profile.OfferType,
		result:  &ScrapeResult{},
	}

	fatal := src.run(ctx, queryURL, s.maxPages(opts.Profile))

	scan.Found = src.result.Found
	scan.Upserted = src.result.Upserted
	scan.Skipped = src.result.Skipped
	scan.Errors = src.result.Errors

	// a completed full pass deactivates what it did not re-observe;
	// truncated or cancelled passes must not, they saw only a slice
	if fatal == nil && opts.FullRescan && !src.truncated && ctx.Err() == nil {
		n, err := s.listings.MarkInactiveBefore(ctx, source.ID, scan.StartedAt)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to deactivate unseen listings")
		} else {
			src.result.Deactivated = n
		}
	}

	if err := s.scans.Finish(ctx, scan); err != nil {
		s.log.Warn().Err(err).Msg("failed to finish scan record")
	}

	result.add(src.result)

	if fatal != nil {
		return fatal
	}

	if s.publisher != nil {
		event := ScrapeCompletedEvent{
			SourceCode:  source.Code,
			Found:       src.result.Found,
			Upserted:    src.result.Upserted,
			Skipped:     src.result.Skipped,
			Errors:      src.result.Errors,
			Deactivated: src.result.Deactivated,
			FinishedAt:  time.Now(),
		}
		if err := s.publisher.PublishScrapeCompleted(ctx, event); err != nil {
			s.log.Warn().Err(err).Msg("failed to publish scrape event")
		}
	}

	s.log.Info().
		Str("source", source.Code).
		Int("found", src.result.Found).
		Int("upserted", src.result.Upserted).
		Int("skipped", src.result.Skipped).
		Int("errors", src.result.Errors).
		Int64("deactivated", src.result.Deactivated).
		Msg("scrape completed")

	return nil
}

func (s *Service) maxPages(p models.SearchProfile) int {
	if p.MaxPages > 0 {
		return p.MaxPages
	}
	return s.cfg.MaxPages
}

func (r *ScrapeResult) add(other *ScrapeResult) {
	r.Found += other.Found
	r.Upserted += other.Upserted
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Errors += other.Errors
	r.Deactivated += other.Deactivated
}

// sourceRun is the per-source job context: it owns the worker pool and
// outcome aggregation for one pagination pass. No scraping state lives
// outside it.
type sourceRun struct {
	service   *Service
	source    *models.Source
	offer     models.OfferType
	result    *ScrapeResult
	truncated bool
}

type itemOutcome int

const (
	outcomeUpsertedNew itemOutcome = iota
	outcomeUpsertedExisting
	outcomeSkipped
	outcomeError
)

// run paginates list pages sequentially and fans detail work across a
// bounded pool. Returns a non-nil error only for fatal conditions: the
// very first list page failing after retries.
func (sr *sourceRun) run(ctx context.Context, queryURL string, maxPages int) error {
	s := sr.service

	items := make(chan models.ListItemSummary)
	outcomes := make(chan itemOutcome)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range items {
				outcomes <- sr.processItem(ctx, item)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	aggregated := make(chan struct{})
	go func() {
		defer close(aggregated)
		for o := range outcomes {
			switch o {
			case outcomeUpsertedNew:
				sr.result.Upserted++
				sr.result.Inserted++
			case outcomeUpsertedExisting:
				sr.result.Upserted++
				sr.result.Updated++
			case outcomeSkipped:
				sr.result.Skipped++
			case outcomeError:
				sr.result.Errors++
			}
		}
	}()

	var fatal error

	// list-level counters stay local until the pool drains; the
	// aggregator goroutine owns sr.result while workers are running
	var found, listSkipped int

pagination:
	for page := 1; page <= maxPages; page++ {
		if ctx.Err() != nil {
			sr.truncated = true
			break
		}

		pageURL := PageURL(queryURL, page)

		var html string
		err := s.cfg.FetchRetry.Do(ctx, func() error {
			var ferr error
			html, ferr = s.fetch.Fetch(ctx, pageURL)
			return ferr
		})
		if err != nil {
			if page == 1 {
				// nothing could ever be obtained: the job fails
				fatal = fmt.Errorf("fetch first list page: %w", err)
				break pagination
			}
			// later pages truncate pagination, the job survives
			s.log.Warn().Err(err).Int("page", page).Msg("list page failed, truncating pagination")
			sr.truncated = true
			break pagination
		}

		listPage, err := ExtractList(html, pageURL)
		if err != nil {
			s.log.Warn().Err(err).Int("page", page).Msg("list page unparseable, truncating pagination")
			sr.truncated = true
			break pagination
		}

		listSkipped += listPage.Skipped

		// an empty page is the natural end of pagination
		if len(listPage.Items) == 0 {
			break pagination
		}

		found += len(listPage.Items)

		for _, item := range listPage.Items {
			select {
			case items <- item:
			case <-ctx.Done():
				sr.truncated = true
				break pagination
			}
		}
	}

	close(items)
	<-aggregated

	sr.result.Found += found
	sr.result.Skipped += listSkipped

	return fatal
}

// processItem fetches, extracts and upserts one listing. Failures are
// isolated: the outcome feeds the counters and the job moves on.
func (sr *sourceRun) processItem(ctx context.Context, item models.ListItemSummary) itemOutcome {
	s := sr.service

	var html string
	err := s.cfg.FetchRetry.Do(ctx, func() error {
		var ferr error
		html, ferr = s.fetch.Fetch(ctx, item.URL)
		return ferr
	})
	if err != nil {
		s.log.Warn().Err(err).Str("url", item.URL).Msg("detail fetch failed")
		return outcomeError
	}

	listing, err := ExtractDetail(html, sr.source.ID, item, sr.offer)
	if err != nil {
		if errors.Is(err, ErrParse) {
			s.log.Debug().Err(err).Str("url", item.URL).Msg("detail page skipped")
			return outcomeSkipped
		}
		s.log.Warn().Err(err).Str("url", item.URL).Msg("detail extraction failed")
		return outcomeError
	}

	var inserted bool
	err = s.cfg.StorageRetry.Do(ctx, func() error {
		var uerr error
		inserted, uerr = s.listings.Upsert(ctx, listing)
		return uerr
	})
	if err != nil {
		s.log.Error().Err(err).Str("external_id", listing.ExternalID).Msg("upsert failed")
		return outcomeError
	}

	if s.publisher != nil {
		event := ListingUpsertedEvent{
			ListingID:  listing.ID,
			SourceID:   listing.SourceID,
			ExternalID: listing.ExternalID,
			URL:        listing.URL,
			Inserted:   inserted,
			SeenAt:     listing.LastSeenAt,
		}
		if err := s.publisher.PublishListingUpserted(ctx, event); err != nil {
			s.log.Warn().Err(err).Msg("failed to publish listing event")
		}
	}

	if inserted {
		return outcomeUpsertedNew
	}
	return outcomeUpsertedExisting
}
