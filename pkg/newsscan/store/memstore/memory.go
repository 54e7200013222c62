// Package memstore is an in-memory store.Store for tests and dry runs.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/cognicore/newsscan/pkg/newsscan/news"
	"github.com/cognicore/newsscan/pkg/newsscan/store"
)

// Store keeps records keyed by id. Saving an existing id replaces it.
type Store struct {
	mu      sync.RWMutex
	records map[string]news.Record
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{records: make(map[string]news.Record)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// Save implements store.Store.
func (s *Store) Save(ctx context.Context, records []news.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		s.records[r.ID] = r.Clone()
	}
	return nil
}

// Load implements store.Store. Records come back newest first.
func (s *Store) Load(ctx context.Context) ([]news.Record, error) {
	return s.Query(ctx, store.Query{})
}

// Clear implements store.Store.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]news.Record)
	return nil
}

// Query implements store.Querier.
func (s *Store) Query(ctx context.Context, q store.Query) ([]news.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]news.Record, 0, len(s.records))
	for _, r := range s.records {
		if q.Source != "" && r.Source != q.Source {
			continue
		}
		if q.AlertsOnly && !r.Metadata.IsAlert {
			continue
		}
		if !q.Since.IsZero() {
			if t, ok := r.Published(); !ok || t.Before(q.Since) {
				continue
			}
		}
		out = append(out, r.Clone())
	}

	// map order is random; fix ties by id before the recency sort
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	slices.SortStableFunc(out, news.CompareRecency)

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Count implements store.Querier.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Sources implements store.Querier, most records first.
func (s *Store) Sources(ctx context.Context) ([]store.SourceCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, r := range s.records {
		counts[r.Source]++
	}

	out := make([]store.SourceCount, 0, len(counts))
	for src, n := range counts {
		out = append(out, store.SourceCount{Source: src, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Source < out[j].Source
	})
	return out, nil
}
