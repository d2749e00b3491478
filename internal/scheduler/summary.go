package scheduler

import (
	"sort"
	"sync"
	"time"
)

// RunSummary reports one batch run.
type RunSummary struct {
	RunID      string            `json:"runId"`
	Period     string            `json:"period"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
	Total      int               `json:"total"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	Partial    int               `json:"partial"`
	Cancelled  bool              `json:"cancelled,omitempty"`
	Failures   []PropertyFailure `json:"failures,omitempty"`
}

type PropertyFailure struct {
	PropertyID string `json:"propertyId"`
	Reason     string `json:"reason"`
}

func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// jobRun accumulates per-property results from concurrent workers.
type jobRun struct {
	job       string
	runID     string
	period    string
	startedAt time.Time

	mu        sync.Mutex
	total     int
	succeeded int
	partial   int
	failures  []PropertyFailure
}

func newJobRun(job, runID, period string, startedAt time.Time) *jobRun {
	return &jobRun{job: job, runID: runID, period: period, startedAt: startedAt}
}

func (r *jobRun) setTotal(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = n
}

func (r *jobRun) succeed(partial bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.succeeded++
	if partial {
		r.partial++
	}
}

func (r *jobRun) fail(propertyID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, PropertyFailure{PropertyID: propertyID, Reason: err.Error()})
}

func (r *jobRun) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}

// summary snapshots the counters; failures are ordered by property id so the
// report does not depend on worker scheduling.
func (r *jobRun) summary(finishedAt time.Time) RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	failures := append([]PropertyFailure(nil), r.failures...)
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].PropertyID < failures[j].PropertyID
	})
	return RunSummary{
		RunID:      r.runID,
		Period:     r.period,
		StartedAt:  r.startedAt,
		FinishedAt: finishedAt.UTC(),
		Total:      r.total,
		Succeeded:  r.succeeded,
		Failed:     len(failures),
		Partial:    r.partial,
		Failures:   failures,
	}
}
