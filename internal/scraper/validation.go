package scraper

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/listings-os/internal/models"
)

// validation errors
var (
	ErrSourcesRequired = errors.New("at least one source code is required")
	ErrProfileRequired = errors.New("profile needs a direct_url, region_id or query")
	ErrInvalidBounds   = errors.New("price_min must not exceed price_max")
	ErrInvalidPages    = errors.New("max_pages must be non-negative")
)

// ScrapeRequest represents a request to trigger an ingestion job.
type ScrapeRequest struct {
	// SourceCodes - codes of registered sources to scrape.
	SourceCodes []string `json:"source_codes"`

	// FullRescan - when true, listings not re-observed by this pass
	// are marked inactive after it completes.
	FullRescan bool `json:"full_rescan,omitempty"`

	// ProfileName - name of a profile from the curated profiles file.
	// When set, Profile is ignored.
	ProfileName string `json:"profile_name,omitempty"`

	// Profile - an inline search profile to resolve into a query URL.
	Profile models.SearchProfile `json:"profile"`
}

// Validate performs basic validation of the request.
// Does not check that the source codes exist (that requires the DB).
func (r *ScrapeRequest) Validate() error {
	// drop empty codes that sloppy clients send
	codes := r.SourceCodes[:0]
	for _, c := range r.SourceCodes {
		c = strings.TrimSpace(c)
		if c != "" {
			codes = append(codes, c)
		}
	}
	r.SourceCodes = codes

	if len(r.SourceCodes) == 0 {
		return ErrSourcesRequired
	}

	// a named profile is resolved by the handler against the curated
	// file; only inline profiles are checked here
	p := r.Profile
	if r.ProfileName == "" && p.DirectURL == "" && p.RegionID == nil && strings.TrimSpace(p.Query) == "" {
		return ErrProfileRequired
	}

	if p.PriceMin != nil && p.PriceMax != nil && *p.PriceMin > *p.PriceMax {
		return ErrInvalidBounds
	}

	if p.MaxPages < 0 {
		return ErrInvalidPages
	}

	return nil
}

// ScrapeResponse represents the response to a trigger request.
type ScrapeResponse struct {
	ScrapeID  uuid.UUID `json:"scrape_id"`
	Status    JobStatus `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Sources   []string  `json:"sources"`
}

// StatusResponse reports a job's state and per-item outcome counts.
// A succeeded job with errors still surfaces its error count.
type StatusResponse struct {
	ScrapeID uuid.UUID `json:"scrape_id"`
	Status   JobStatus `json:"status"`
	Message  string    `json:"message,omitempty"`
	Counts   *Counts   `json:"counts,omitempty"`
}

// Counts is the per-item outcome summary exposed to callers.
type Counts struct {
	Found       int   `json:"found"`
	Upserted    int   `json:"upserted"`
	Skipped     int   `json:"skipped"`
	Errored     int   `json:"errored"`
	Deactivated int64 `json:"deactivated"`
}

func countsOf(r *ScrapeResult) *Counts {
	if r == nil {
		return nil
	}
	return &Counts{
		Found:       r.Found,
		Upserted:    r.Upserted,
		Skipped:     r.Skipped,
		Errored:     r.Errors,
		Deactivated: r.Deactivated,
	}
}
