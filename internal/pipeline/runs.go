package pipeline

import (
	"context"
	"sync"
	"time"
)

// RunStatus represents the state of an aggregation run.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// Finished reports whether the status is terminal.
func (s RunStatus) Finished() bool {
	return s == RunCompleted || s == RunCancelled || s == RunFailed
}

// CompanyStatus is the per-company state of a run.
type CompanyStatus string

const (
	CompanyPending    CompanyStatus = "pending"
	CompanyProcessing CompanyStatus = "processing"
	CompanySkipped    CompanyStatus = "skipped"
	CompanyPersisted  CompanyStatus = "persisted"
	CompanyNoContent  CompanyStatus = "no_content"
	CompanyFailed     CompanyStatus = "failed"
	CompanyCancelled  CompanyStatus = "cancelled"
)

// CompanyOutcome is what one run did with one company directory.
type CompanyOutcome struct {
	Ticker    string        `json:"ticker"`
	Status    CompanyStatus `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	Company   string        `json:"company,omitempty"`
	Year      string        `json:"year,omitempty"`
	Artifact  string        `json:"artifact,omitempty"`
	Documents int           `json:"documents"`
	Failed    int           `json:"failed_documents"`
	Unique    int           `json:"unique_blobs"`
}

// Run tracks one pass of the aggregator over a set of companies.
type Run struct {
	mu sync.Mutex

	ID      string
	Tickers []string // empty means every company under the input root

	Status    RunStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time

	companies map[string]*CompanyOutcome
	order     []string
	cancel    context.CancelFunc
}

// NewRun creates a queued run.
func NewRun(tickers []string) *Run {
	now := time.Now()
	return &Run{
		ID:        NewRunID(),
		Tickers:   append([]string(nil), tickers...),
		Status:    RunQueued,
		CreatedAt: now,
		UpdatedAt: now,
		companies: make(map[string]*CompanyOutcome),
	}
}

// SetStatus updates run status atomically.
func (r *Run) SetStatus(status RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	r.UpdatedAt = time.Now()
}

// Fail marks the run failed with a reason.
func (r *Run) Fail(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = RunFailed
	r.Error = reason
	r.UpdatedAt = time.Now()
}

// SetCompany records the latest outcome for a company.
func (r *Run) SetCompany(o CompanyOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.companies[o.Ticker]; !ok {
		r.order = append(r.order, o.Ticker)
	}
	r.companies[o.Ticker] = &o
	r.UpdatedAt = time.Now()
}

// Company returns the outcome recorded for ticker.
func (r *Run) Company(ticker string) (CompanyOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.companies[ticker]
	if !ok {
		return CompanyOutcome{}, false
	}
	return *o, true
}

// begin moves a queued run to running and stores its cancel func. It returns
// false, leaving the run untouched, when Cancel got there first.
func (r *Run) begin(cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status == RunCancelled {
		return false
	}
	r.cancel = cancel
	r.Status = RunRunning
	r.UpdatedAt = time.Now()
	return true
}

// Cancel requests cooperative cancellation. A queued run is cancelled
// before it starts.
func (r *Run) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	if r.Status == RunQueued {
		r.Status = RunCancelled
		r.UpdatedAt = time.Now()
	}
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID        string                `json:"run_id"`
	Status    RunStatus             `json:"status"`
	Error     string                `json:"error,omitempty"`
	Tickers   []string              `json:"tickers"`
	Companies []CompanyOutcome      `json:"companies"`
	Counts    map[CompanyStatus]int `json:"counts"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the run state. Companies are listed
// in the order they were first reported.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	tickers := r.Tickers
	if tickers == nil {
		tickers = []string{}
	}
	snap := RunSnapshot{
		ID:        r.ID,
		Status:    r.Status,
		Error:     r.Error,
		Tickers:   append([]string(nil), tickers...),
		Companies: make([]CompanyOutcome, 0, len(r.order)),
		Counts:    make(map[CompanyStatus]int),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for _, t := range r.order {
		o := *r.companies[t]
		snap.Companies = append(snap.Companies, o)
		snap.Counts[o.Status]++
	}
	return snap
}

// RunStore is a thread-safe in-memory run registry with TTL eviction.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	return &RunStore{
		runs: make(map[string]*Run),
		ttl:  ttl,
	}
}

func (s *RunStore) Put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// Cleanup removes finished runs older than the TTL. Active runs are kept
// regardless of age.
func (s *RunStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, run := range s.runs {
		run.mu.Lock()
		expired := run.Status.Finished() && now.Sub(run.UpdatedAt) > s.ttl
		run.mu.Unlock()
		if expired {
			delete(s.runs, id)
		}
	}
}
