package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/internalerr"
	"github.com/cognicore/newsscan/pkg/newsscan/news"
	"github.com/cognicore/newsscan/pkg/newsscan/store"
)

var _ store.Store = (*Store)(nil)
var _ store.Querier = (*Store)(nil)

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "news.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func fixtures() []news.Record {
	return []news.Record{
		{
			ID: "a", Source: "BBC", URL: "https://bbc.co.uk/a", Title: "Old",
			PublishedAt: "2024-01-01T00:00:00Z", FetchedAt: "2024-01-05T00:00:00Z",
			Authors: []string{"Jane Doe"}, Tickers: []string{}, Topics: []string{"FINANCE"}, Language: "en",
			Metadata: news.Metadata{Category: "finance", Domain: "bbc.co.uk"},
		},
		{
			ID: "b", Source: "BBC", URL: "https://bbc.co.uk/b", Title: "Missile strike reported",
			PublishedAt: "2024-01-03T00:00:00Z", Authors: []string{}, Tickers: []string{}, Topics: []string{"CONFLICT"},
			Metadata: news.Metadata{IsAlert: true, AlertKeyword: "missile strike", AlertSeverity: "high",
				Raw: json.RawMessage(`{"seendate":"20240103T000000Z"}`)},
		},
		{
			ID: "c", Source: "NPR", Title: "Mid", PublishedAt: "2024-01-02T00:00:00Z",
			Authors: []string{}, Tickers: []string{"BTC", "ETH"}, Topics: []string{},
			Metadata: news.Metadata{Extra: map[string]any{"sentiment": "neutral"}},
		},
		{
			ID: "d", Source: "NPR", Title: "Undated", PublishedAt: "sometime last week",
			Authors: []string{}, Tickers: []string{}, Topics: []string{},
		},
	}
}

func TestSQLiteIntegrationSaveLoad(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	if err := st.Save(ctx, fixtures()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	order := []string{"b", "c", "a", "d"}
	if len(got) != len(order) {
		t.Fatalf("expected %d records, got %d", len(order), len(got))
	}
	for i, id := range order {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}

	b := got[0]
	if !b.Metadata.IsAlert || b.Metadata.AlertSeverity != "high" {
		t.Errorf("alert metadata lost: %+v", b.Metadata)
	}
	if string(b.Metadata.Raw) != `{"seendate":"20240103T000000Z"}` {
		t.Errorf("raw payload changed: %s", b.Metadata.Raw)
	}

	c := got[1]
	if len(c.Tickers) != 2 || c.Tickers[1] != "ETH" {
		t.Errorf("tickers lost: %v", c.Tickers)
	}
	if c.Metadata.Extra["sentiment"] != "neutral" {
		t.Errorf("extra metadata lost: %+v", c.Metadata.Extra)
	}

	a := got[2]
	if len(a.Authors) != 1 || a.Authors[0] != "Jane Doe" || a.Metadata.Domain != "bbc.co.uk" {
		t.Errorf("record a not round-tripped: %+v", a)
	}
}

func TestSQLiteIntegrationUpsert(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	st.Save(ctx, []news.Record{{ID: "x", Title: "Before", PublishedAt: "2024-01-01T00:00:00Z"}})
	st.Save(ctx, []news.Record{{ID: "x", Title: "After", PublishedAt: "2024-01-01T00:00:00Z"}})

	n, err := st.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row after re-save, got %d", n)
	}

	got, _ := st.Load(ctx)
	if got[0].Title != "After" {
		t.Errorf("re-save should overwrite, got %q", got[0].Title)
	}
	if got[0].Authors == nil || got[0].Topics == nil {
		t.Error("list fields should decode as empty lists, not nil")
	}
}

func TestSQLiteIntegrationQuery(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)
	st.Save(ctx, fixtures())

	tests := []struct {
		name string
		q    store.Query
		want []string
	}{
		{"by source", store.Query{Source: "NPR"}, []string{"c", "d"}},
		{"alerts only", store.Query{AlertsOnly: true}, []string{"b"}},
		{"since", store.Query{Since: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}, []string{"b", "c"}},
		{"limit", store.Query{Limit: 2}, []string{"b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.Query(ctx, tt.q)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %d records", tt.want, len(got))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
				}
			}
		})
	}
}

func TestSQLiteIntegrationSourcesAndClear(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)
	st.Save(ctx, fixtures())
	st.Save(ctx, []news.Record{{ID: "e", Source: "NPR"}})

	sources, err := st.Sources(ctx)
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	if len(sources) != 2 || sources[0].Source != "NPR" || sources[0].Count != 3 {
		t.Errorf("unexpected sources %+v", sources)
	}

	if err := st.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := st.Count(ctx); n != 0 {
		t.Errorf("expected empty table, got %d", n)
	}
}

func TestSQLiteIntegrationPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	st, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	st.Save(ctx, fixtures())
	st.Close()

	st2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	if n, _ := st2.Count(ctx); n != 4 {
		t.Errorf("expected 4 records after reopen, got %d", n)
	}
}

func TestSQLiteInMemory(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	if err := st.Save(ctx, fixtures()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n, _ := st.Count(ctx); n != 4 {
		t.Errorf("expected 4 records, got %d", n)
	}
}

func TestOpenUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(context.Background(), filepath.Join(blocker, "sub", "news.db"))
	if !errors.Is(err, internalerr.ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}
