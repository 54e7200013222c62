// Package dedup removes repeated records from a batch, first seen wins.
//
// Two records are duplicates when they share an id or when their titles
// reduce to the same fingerprint. The fingerprint is a 32-bit rolling hash,
// so unrelated titles can collide; that approximation is accepted.
package dedup

import (
	"regexp"
	"strings"

	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

// Result is the outcome of a deduplication pass.
type Result struct {
	Records    []news.Record
	Removed    int
	RemovedIDs []string
}

// Options enables the optional matchers.
type Options struct {
	// MatchURL also treats records with the same normalized URL as
	// duplicates.
	MatchURL bool
}

// Deduplicator holds the matcher configuration. It keeps no state between
// calls.
type Deduplicator struct {
	opts Options
}

// New creates a deduplicator.
func New(opts Options) *Deduplicator {
	return &Deduplicator{opts: opts}
}

// Deduplicate drops repeated records using id and title fingerprint.
func Deduplicate(records []news.Record) Result {
	return New(Options{}).Deduplicate(records)
}

// Deduplicate processes records in order and keeps the first of each
// duplicate group.
func (d *Deduplicator) Deduplicate(records []news.Record) Result {
	res := Result{Records: make([]news.Record, 0, len(records)), RemovedIDs: []string{}}

	seenIDs := make(map[string]struct{}, len(records))
	seenTitles := make(map[uint32]struct{}, len(records))
	seenURLs := make(map[string]struct{})

	for _, r := range records {
		if _, dup := seenIDs[r.ID]; dup {
			res.RemovedIDs = append(res.RemovedIDs, r.ID)
			continue
		}

		fp := TitleFingerprint(r.Title)
		if _, dup := seenTitles[fp]; dup {
			res.RemovedIDs = append(res.RemovedIDs, r.ID)
			continue
		}

		u := ""
		if d.opts.MatchURL {
			u = NormalizeURL(r.URL)
			if _, dup := seenURLs[u]; dup && u != "" {
				res.RemovedIDs = append(res.RemovedIDs, r.ID)
				continue
			}
		}

		seenIDs[r.ID] = struct{}{}
		seenTitles[fp] = struct{}{}
		if u != "" {
			seenURLs[u] = struct{}{}
		}
		res.Records = append(res.Records, r)
	}

	res.Removed = len(res.RemovedIDs)
	return res
}

// AreDuplicates reports whether a and b would be merged by this
// deduplicator.
func (d *Deduplicator) AreDuplicates(a, b news.Record) bool {
	if a.ID == b.ID || TitleFingerprint(a.Title) == TitleFingerprint(b.Title) {
		return true
	}
	if d.opts.MatchURL {
		ua := NormalizeURL(a.URL)
		return ua != "" && ua == NormalizeURL(b.URL)
	}
	return false
}

// TitleFingerprint hashes the lowercased ASCII letters and digits of title
// with h = h*31 + c over 32 bits. A title without letters or digits hashes
// to 0 and matches every other such title.
func TitleFingerprint(title string) uint32 {
	var h uint32
	for i := 0; i < len(title); i++ {
		c := title[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if ('a' <= c && c <= 'z') || ('0' <= c && c <= '9') {
			h = h*31 + uint32(c)
		}
	}
	return h
}

var trackingParam = regexp.MustCompile(`[?&](?:utm_[^&=]*|ref)=[^&]*`)

// NormalizeURL strips the scheme, a leading "www.", tracking parameters and
// trailing slashes, then lowercases.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	u = strings.TrimPrefix(strings.TrimPrefix(u, "https://"), "http://")
	u = strings.TrimPrefix(u, "www.")
	u = trackingParam.ReplaceAllString(u, "")
	if i := strings.IndexByte(u, '&'); i >= 0 && !strings.Contains(u, "?") {
		u = u[:i] + "?" + u[i+1:]
	}
	u = strings.TrimRight(u, "/")
	return strings.ToLower(u)
}
