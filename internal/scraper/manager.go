package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// errors
var (
	ErrAlreadyRunning = errors.New("a scrape job is already running")
)

// JobStatus is the lifecycle state of a scrape job.
type JobStatus string

// Job states. Pending→Running on start; Running→Succeeded when
// pagination ends and all detail tasks drained, even with item errors;
// Running→Failed only on a fatal condition.
const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
)

// ScrapeJob represents one execution of the pipeline.
type ScrapeJob struct {
	ID        uuid.UUID
	StartedAt time.Time
	Options   ScrapeOptions

	mu         sync.Mutex
	status     JobStatus
	message    string
	result     *ScrapeResult
	finishedAt *time.Time
}

// Status returns the job's current state, message and counters.
func (j *ScrapeJob) Status() (JobStatus, string, *ScrapeResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status, j.message, j.result
}

func (j *ScrapeJob) setRunning() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusRunning
}

func (j *ScrapeJob) finish(result *ScrapeResult, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	j.finishedAt = &now
	j.result = result
	if err != nil {
		j.status = StatusFailed
		j.message = err.Error()
		return
	}
	j.status = StatusSucceeded
}

// Scraper defines the interface for the scraping pipeline.
type Scraper interface {
	Scrape(ctx context.Context, opts ScrapeOptions) (*ScrapeResult, error)
}

// ScrapeManager manages active scrape jobs.
// ensures only one job runs at a time; thread-safe.
type ScrapeManager struct {
	mu       sync.Mutex
	current  *ScrapeJob
	last     *ScrapeJob
	cancelFn context.CancelFunc
	scraper  Scraper
}

// NewScrapeManager creates a new scrape manager
func NewScrapeManager(scraper Scraper) *ScrapeManager {
	return &ScrapeManager{
		scraper: scraper,
	}
}

// Start starts a new scrape job.
// Returns ErrAlreadyRunning if a job is already running.
func (m *ScrapeManager) Start(_ context.Context, opts ScrapeOptions) (*ScrapeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return nil, ErrAlreadyRunning
	}

	// detached from the HTTP request context: the job keeps running
	// after the trigger response is sent
	jobCtx, cancel := context.WithCancel(context.Background())
	m.cancelFn = cancel

	job := &ScrapeJob{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		Options:   opts,
		status:    StatusPending,
	}
	m.current = job

	go m.run(jobCtx, job)

	return job, nil
}

// Stop cancels the current scrape job. Partial progress stays
// persisted; safe to call when no job is running.
func (m *ScrapeManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancelFn != nil {
		m.cancelFn()
		m.cancelFn = nil
	}
}

// Current returns the currently running job, or nil.
func (m *ScrapeManager) Current() *ScrapeJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Job returns the job with the given id: the running one or the most
// recently finished one. Returns nil when the id is unknown.
func (m *ScrapeManager) Job(id uuid.UUID) *ScrapeJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.ID == id {
		return m.current
	}
	if m.last != nil && m.last.ID == id {
		return m.last
	}
	return nil
}

// Last returns the most recently finished job, or nil.
func (m *ScrapeManager) Last() *ScrapeJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// run executes the scrape job in its own goroutine.
func (m *ScrapeManager) run(ctx context.Context, job *ScrapeJob) {
	defer func() {
		m.mu.Lock()
		if m.current != nil && m.current.ID == job.ID {
			m.last = m.current
			m.current = nil
			m.cancelFn = nil
		}
		m.mu.Unlock()
	}()

	job.setRunning()
	result, err := m.scraper.Scrape(ctx, job.Options)
	job.finish(result, err)
}
