package filter

import (
	"slices"
	"strings"
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

// Predicate decides whether a record is kept.
type Predicate func(news.Record) bool

// Chain applies predicates in order; a record must satisfy all of them.
type Chain struct {
	predicates []Predicate
}

// NewChain creates a chain from ps.
func NewChain(ps ...Predicate) *Chain {
	return &Chain{predicates: ps}
}

// Add appends a predicate and returns the chain for chaining.
func (c *Chain) Add(p Predicate) *Chain {
	c.predicates = append(c.predicates, p)
	return c
}

// Len returns the number of predicates.
func (c *Chain) Len() int { return len(c.predicates) }

// Match reports whether r satisfies every predicate.
func (c *Chain) Match(r news.Record) bool {
	for _, p := range c.predicates {
		if !p(r) {
			return false
		}
	}
	return true
}

// Apply returns the matching records in input order.
func (c *Chain) Apply(records []news.Record) []news.Record {
	out := make([]news.Record, 0, len(records))
	for _, r := range records {
		if c.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Category keeps records whose metadata category is listed.
func Category(categories ...string) Predicate {
	return func(r news.Record) bool {
		return slices.Contains(categories, r.Metadata.Category)
	}
}

// Region keeps records whose metadata region is listed.
func Region(regions ...string) Predicate {
	return func(r news.Record) bool {
		return slices.Contains(regions, r.Metadata.Region)
	}
}

// Topic keeps records carrying any of topics.
func Topic(topics ...string) Predicate {
	return func(r news.Record) bool {
		return containsAny(r.Topics, topics)
	}
}

// Ticker keeps records mentioning any of tickers.
func Ticker(tickers ...string) Predicate {
	return func(r news.Record) bool {
		return containsAny(r.Tickers, tickers)
	}
}

// Source keeps records from any of sources.
func Source(sources ...string) Predicate {
	return func(r news.Record) bool {
		return slices.Contains(sources, r.Source)
	}
}

// IncludeKeywords keeps records whose title or summary contains any keyword,
// ignoring case.
func IncludeKeywords(keywords ...string) Predicate {
	lowered := lowerAll(keywords)
	return func(r news.Record) bool {
		return containsKeyword(keywordText(r), lowered)
	}
}

// ExcludeKeywords drops records whose title or summary contains any keyword,
// ignoring case.
func ExcludeKeywords(keywords ...string) Predicate {
	return Not(IncludeKeywords(keywords...))
}

// MaxAge keeps records published within age of now. Records whose
// published_at does not parse are kept.
func MaxAge(age time.Duration, now time.Time) Predicate {
	cutoff := now.Add(-age)
	return func(r news.Record) bool {
		t, ok := r.Published()
		if !ok {
			return true
		}
		return !t.Before(cutoff)
	}
}

// AlertsOnly keeps alert-flagged records.
func AlertsOnly() Predicate {
	return func(r news.Record) bool {
		return r.Metadata.IsAlert
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(r news.Record) bool {
		return !p(r)
	}
}

func containsAny(have, want []string) bool {
	for _, h := range have {
		if slices.Contains(want, h) {
			return true
		}
	}
	return false
}

func containsKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
