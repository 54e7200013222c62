// Package news defines the canonical record shape shared by every stage of
// the ingestion pipeline, together with the per-run result types.
package news

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// TimeLayout is the canonical textual timestamp form: UTC, second precision.
const TimeLayout = "2006-01-02T15:04:05Z"

// DefaultLanguage is applied when a source does not report one.
const DefaultLanguage = "en"

// Record is the normalized representation of a single article.
type Record struct {
	ID          string   `json:"id"`
	Source      string   `json:"source"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	PublishedAt string   `json:"published_at"`
	FetchedAt   string   `json:"fetched_at"`
	Authors     []string `json:"authors"`
	Summary     string   `json:"summary"`
	ContentText string   `json:"content_text"`
	Tickers     []string `json:"tickers"`
	Topics      []string `json:"topics"`
	Language    string   `json:"language"`
	Metadata    Metadata `json:"metadata"`
}

// ID derives the stable record identifier from a source name and a URL.
// Both halves are the first 12 hex digits of an MD5 digest, so the value is
// reproducible by any implementation of the same hash.
func ID(source, url string) string {
	return shortHash(source) + "-" + shortHash(url)
}

func shortHash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// Timestamp formats t in the canonical form.
func Timestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimeLayout)
}

// ParseTimestamp parses a canonical (or any RFC 3339) timestamp.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// Published returns the parsed publish time, or false if it is malformed.
func (r Record) Published() (time.Time, bool) {
	return ParseTimestamp(r.PublishedAt)
}

// Validate checks the fields every stored record must carry.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("record id is required")
	}

	if strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.URL) == "" {
		return errors.New("record needs a title or a url")
	}

	if _, ok := ParseTimestamp(r.FetchedAt); !ok {
		return errors.New("record fetched time is required")
	}

	return nil
}

// Clone returns a deep copy so later stages can never alias slices held by
// an earlier stage.
func (r Record) Clone() Record {
	out := r
	out.Authors = cloneStrings(r.Authors)
	out.Tickers = cloneStrings(r.Tickers)
	out.Topics = cloneStrings(r.Topics)
	out.Metadata = r.Metadata.clone()
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// UniqueStrings removes duplicates while keeping first-seen order.
func UniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// CompareRecency orders a before b when a was published later. Records
// whose published_at does not parse compare as the oldest possible time.
func CompareRecency(a, b Record) int {
	ta, _ := a.Published()
	tb, _ := b.Published()
	return tb.Compare(ta)
}
