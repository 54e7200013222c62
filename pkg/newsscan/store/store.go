// Package store defines the persistence contract for normalized records.
package store

import (
	"context"
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

// Store is the storage contract every adapter implements. Adapters are
// substitutable: Save persists a batch, Load returns everything saved,
// Clear removes it all.
type Store interface {
	Close() error

	Save(ctx context.Context, records []news.Record) error
	Load(ctx context.Context) ([]news.Record, error)
	Clear(ctx context.Context) error
}

// Query narrows a Querier lookup. Zero values disable a criterion.
type Query struct {
	Source     string
	AlertsOnly bool
	Since      time.Time
	Limit      int
}

// Querier is implemented by adapters that can answer indexed lookups.
// Results are ordered by published_at, newest first.
type Querier interface {
	Query(ctx context.Context, q Query) ([]news.Record, error)
	Count(ctx context.Context) (int, error)
	Sources(ctx context.Context) ([]SourceCount, error)
}

// SourceCount is the number of stored records for one source.
type SourceCount struct {
	Source string
	Count  int
}
