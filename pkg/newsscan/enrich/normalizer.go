package enrich

import (
	"strings"
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

// NormalizerOptions configures a Normalizer.
type NormalizerOptions struct {
	Taxonomy      *Taxonomy
	Tickers       *TickerExtractor
	SummaryLength int
	Now           func() time.Time
}

// Normalizer fills defaults and derived fields on partially populated
// records.
type Normalizer struct {
	taxonomy      *Taxonomy
	tickers       *TickerExtractor
	summaryLength int
	now           func() time.Time
}

// NewNormalizer creates a normalizer. Missing collaborators are replaced
// with empty ones so every call is safe.
func NewNormalizer(opts NormalizerOptions) *Normalizer {
	n := &Normalizer{
		taxonomy:      opts.Taxonomy,
		tickers:       opts.Tickers,
		summaryLength: opts.SummaryLength,
		now:           opts.Now,
	}
	if n.taxonomy == nil {
		n.taxonomy = NewTaxonomy()
	}
	if n.tickers == nil {
		n.tickers = NewTickerExtractor(nil, nil)
	}
	if n.summaryLength <= 0 {
		n.summaryLength = DefaultSummaryLength
	}
	if n.now == nil {
		n.now = time.Now
	}
	return n
}

// Taxonomy exposes the keyword tables the normalizer matches against.
func (n *Normalizer) Taxonomy() *Taxonomy { return n.taxonomy }

// Tickers exposes the ticker extractor.
func (n *Normalizer) Tickers() *TickerExtractor { return n.tickers }

// Normalize returns a copy of rec with every required field set. Topics,
// tickers, region and alert are derived only when the record does not
// already carry them, so normalizing twice changes nothing.
func (n *Normalizer) Normalize(rec news.Record) news.Record {
	out := rec.Clone()
	now := n.now()

	out.Title = Clean(rec.Title)
	out.Summary = Clean(rec.Summary)
	out.ContentText = Clean(rec.ContentText)

	full := strings.Join([]string{out.Title, out.Summary, out.ContentText}, " ")

	if len(out.Topics) == 0 {
		out.Topics = n.taxonomy.Topics(full)
	}
	out.Topics = news.UniqueStrings(out.Topics)

	if len(out.Tickers) == 0 {
		out.Tickers = n.tickers.Extract(full)
	}
	out.Tickers = news.UniqueStrings(out.Tickers)

	if out.Metadata.AlertKeyword == "" {
		alert := n.taxonomy.Alert(out.Title)
		out.Metadata.IsAlert = alert.IsAlert
		out.Metadata.AlertKeyword = alert.Keyword
		out.Metadata.AlertSeverity = alert.Severity
	}

	if out.Metadata.Region == "" {
		out.Metadata.Region = n.taxonomy.Region(full)
	}

	if out.Metadata.Domain == "" {
		out.Metadata.Domain = Domain(out.URL)
	}

	if out.Source == "" {
		out.Source = out.Metadata.Domain
	}

	out.PublishedAt = canonicalOrDefault(out.PublishedAt, now)
	out.FetchedAt = canonicalOrDefault(out.FetchedAt, now)

	if out.Authors == nil {
		out.Authors = []string{}
	}

	if out.Summary == "" {
		out.Summary = Summarize(out.ContentText, n.summaryLength)
	}

	if out.Language == "" {
		out.Language = news.DefaultLanguage
	}

	if out.ID == "" {
		key := out.URL
		if key == "" {
			key = out.Title
		}
		out.ID = news.ID(out.Source, key)
	}

	return out
}

// NormalizeAll normalizes every record in order.
func (n *Normalizer) NormalizeAll(records []news.Record) []news.Record {
	out := make([]news.Record, len(records))
	for i, rec := range records {
		out[i] = n.Normalize(rec)
	}
	return out
}

// canonicalOrDefault fills an absent timestamp with now and rewrites a
// parseable one into canonical form. Unparseable values are kept so the
// sort stage can place them deterministically.
func canonicalOrDefault(s string, now time.Time) string {
	if strings.TrimSpace(s) == "" {
		return news.Timestamp(now)
	}
	if t, ok := ParseTime(s); ok {
		return news.Timestamp(t)
	}
	return s
}
