package news

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Pipeline stage names used in StageError.Stage.
const (
	StageFetch  = "fetch"
	StageEnrich = "enrich"
	StageFilter = "filter"
	StageDedup  = "dedup"
	StageSort   = "sort"
	StageStore  = "store"
)

// Stats holds per-stage counters for one run.
type Stats struct {
	Fetched      int           `json:"fetched"`
	Parsed       int           `json:"parsed"`
	Filtered     int           `json:"filtered"`
	Deduplicated int           `json:"deduplicated"`
	Stored       int           `json:"stored"`
	Duration     time.Duration `json:"duration"`
}

// StageError is a non-fatal failure attributed to a stage and optionally a
// source.
type StageError struct {
	Stage     string `json:"stage"`
	Source    string `json:"source,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// RunResult is produced once per pipeline execution.
type RunResult struct {
	RunID   string       `json:"run_id"`
	Records []Record     `json:"records"`
	Stats   Stats        `json:"stats"`
	Errors  []StageError `json:"errors"`
}

// Degraded reports whether any stage recorded an error.
func (r RunResult) Degraded() bool {
	return len(r.Errors) > 0
}

// Alerts returns the alert-flagged records in result order.
func (r RunResult) Alerts() []Record {
	var out []Record
	for _, rec := range r.Records {
		if rec.Metadata.IsAlert {
			out = append(out, rec)
		}
	}
	return out
}

// ErrorsFor returns the stage errors recorded against stage.
func (r RunResult) ErrorsFor(stage string) []StageError {
	var out []StageError
	for _, e := range r.Errors {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a lexically sortable identifier for a run started at t.
func NewRunID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
