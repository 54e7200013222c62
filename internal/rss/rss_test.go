package rss

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

func TestLoadFromJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.jsonl")
	data := `{"url":"https://example.com/a","title":"First","outlet":"Wire","published_at":"2024-01-15T12:00:00Z","text":"Body","source_cats":["tech"]}
not json

{"url":"https://example.com/b","title":"Second","outlet":"Wire"}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	items, err := LoadFromJSONL(path, nil)
	if err != nil {
		t.Fatalf("LoadFromJSONL failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].Body != "Body" || items[0].SourceCats[0] != "tech" {
		t.Errorf("Unexpected first item %+v", items[0])
	}
}

func TestLoadFromJSONLEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	if err := os.WriteFile(path, []byte("garbage\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromJSONL(path, nil); err == nil {
		t.Error("Expected an error for a snapshot without items")
	}
	if _, err := LoadFromJSONL(filepath.Join(t.TempDir(), "missing.jsonl"), nil); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestItemRecord(t *testing.T) {
	fetched := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	it := Item{
		URL:         "https://example.com/a",
		Title:       "First",
		Outlet:      "Wire",
		PublishedAt: time.Date(2024, 1, 15, 14, 0, 0, 0, time.FixedZone("EET", 2*60*60)),
		SourceCats:  []string{"tech", "ai"},
	}

	rec := it.Record(fetched)
	if rec.ID != news.ID("Wire", "https://example.com/a") {
		t.Errorf("Unexpected id %s", rec.ID)
	}
	if rec.PublishedAt != "2024-01-15T12:00:00Z" || rec.FetchedAt != "2024-01-16T00:00:00Z" {
		t.Errorf("Unexpected timestamps %s / %s", rec.PublishedAt, rec.FetchedAt)
	}
	if rec.Metadata.Category != "tech" {
		t.Errorf("Expected first category, got %q", rec.Metadata.Category)
	}

	undated := Item{Title: "No outlet"}.Record(fetched)
	if undated.PublishedAt != "" || undated.ID != "" {
		t.Errorf("Expected blanks for the normalizer to fill, got %+v", undated)
	}
}
