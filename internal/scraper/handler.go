package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/listings-os/internal/models"
	"github.com/blockedby/listings-os/internal/repository"
)

// SourcesDirectory is the slice of the sources repository the handler needs.
type SourcesDirectory interface {
	GetByCode(ctx context.Context, code string) (*models.Source, error)
	ListActive(ctx context.Context) ([]models.Source, error)
	Create(ctx context.Context, s *models.Source) error
}

// ListingsReader serves the read side of the API.
type ListingsReader interface {
	ListRecent(ctx context.Context, sourceID uuid.UUID, limit int) ([]models.Listing, error)
}

// Handler handles HTTP requests for the scraper service
type Handler struct {
	manager  *ScrapeManager
	sources  SourcesDirectory
	listings ListingsReader
	profiles map[string]models.SearchProfile
}

// NewHandler creates a new handler. profiles holds the curated search
// profiles by name and may be nil when no profiles file is configured.
func NewHandler(manager *ScrapeManager, sources SourcesDirectory, listings ListingsReader, profiles map[string]models.SearchProfile) *Handler {
	return &Handler{
		manager:  manager,
		sources:  sources,
		listings: listings,
		profiles: profiles,
	}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// StartScrape handles POST /api/v1/scrape
func (h *Handler) StartScrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile := req.Profile
	if req.ProfileName != "" {
		named, ok := h.profiles[req.ProfileName]
		if !ok {
			respondError(w, http.StatusBadRequest, "unknown profile: "+req.ProfileName)
			return
		}
		profile = named
	}

	job, err := h.manager.Start(r.Context(), ScrapeOptions{
		SourceCodes: req.SourceCodes,
		FullRescan:  req.FullRescan,
		Profile:     profile,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status, _, _ := job.Status()
	respondJSON(w, http.StatusAccepted, ScrapeResponse{
		ScrapeID:  job.ID,
		Status:    status,
		StartedAt: job.StartedAt,
		Sources:   req.SourceCodes,
	})
}

// StopScrape handles DELETE /api/v1/scrape/current
func (h *Handler) StopScrape(w http.ResponseWriter, r *http.Request) {
	h.manager.Stop()
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "scrape job stopped",
	})
}

// Status handles GET /api/v1/scrape/status.
// Reports the running job, or the last finished one with its counts.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	job := h.manager.Current()
	if job == nil {
		job = h.manager.Last()
	}
	if job == nil {
		respondJSON(w, http.StatusOK, map[string]string{
			"status": "idle",
		})
		return
	}

	status, message, result := job.Status()
	respondJSON(w, http.StatusOK, StatusResponse{
		ScrapeID: job.ID,
		Status:   status,
		Message:  message,
		Counts:   countsOf(result),
	})
}

// ListSources handles GET /api/v1/sources
func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.sources.ListActive(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sources)
}

// CreateSourceRequest represents the body for registering a source
type CreateSourceRequest struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
}

// CreateSource handles POST /api/v1/sources
func (h *Handler) CreateSource(w http.ResponseWriter, r *http.Request) {
	var req CreateSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if req.Code == "" || req.BaseURL == "" {
		respondError(w, http.StatusBadRequest, "code and base_url are required")
		return
	}
	if req.Name == "" {
		req.Name = req.Code
	}

	source := &models.Source{
		Code:     req.Code,
		Name:     req.Name,
		BaseURL:  req.BaseURL,
		IsActive: true,
	}
	if err := h.sources.Create(r.Context(), source); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, source)
}

// ListListings handles GET /api/v1/listings?source=<code>
func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("source")
	if code == "" {
		respondError(w, http.StatusBadRequest, "source query param is required")
		return
	}

	source, err := h.sources.GetByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	listings, err := h.listings.ListRecent(r.Context(), source.ID, 100)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, listings)
}

// helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
