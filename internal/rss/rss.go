// Package rss reads offline feed snapshots: JSONL exports where each line
// is one item captured by an external crawler.
package rss

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

// Item is one captured feed item.
type Item struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Outlet      string    `json:"outlet"`
	PublishedAt time.Time `json:"published_at"`
	Body        string    `json:"text"`
	Authors     []string  `json:"authors"`
	SourceCats  []string  `json:"source_cats"`
}

// LoadFromJSONL loads items from a snapshot. Malformed lines are logged and
// skipped; a file with no valid item is an error.
func LoadFromJSONL(path string, logger *slog.Logger) ([]Item, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer f.Close()

	var items []Item
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item Item
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			logger.Warn("skipping malformed snapshot line", "path", path, "line", n, "err", err)
			continue
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no valid items found in %s", path)
	}

	return items, nil
}

// Record maps the item onto a partial record for the normalizer. fetchedAt
// stands in for the capture time, which snapshots do not carry.
func (it Item) Record(fetchedAt time.Time) news.Record {
	rec := news.Record{
		Source:      it.Outlet,
		URL:         it.URL,
		Title:       it.Title,
		ContentText: it.Body,
		Authors:     it.Authors,
		FetchedAt:   news.Timestamp(fetchedAt),
	}
	if !it.PublishedAt.IsZero() {
		rec.PublishedAt = news.Timestamp(it.PublishedAt)
	}
	if len(it.SourceCats) > 0 {
		rec.Metadata.Category = it.SourceCats[0]
	}

	key := it.URL
	if key == "" {
		key = it.Title
	}
	if it.Outlet != "" {
		rec.ID = news.ID(it.Outlet, key)
	}
	return rec
}
