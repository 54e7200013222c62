package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/enrich"
	"github.com/cognicore/newsscan/pkg/newsscan/internalerr"
	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

// gdeltMaxRecords is the largest page the DOC API serves.
const gdeltMaxRecords = 250

// GDELTOptions configures the structured-API connector.
type GDELTOptions struct {
	BaseURL    string
	Proxy      string
	Queries    []news.CategoryQuery
	Timeout    time.Duration
	Delay      time.Duration
	MaxRecords int
	Timespan   string
	Language   string
	Client     *http.Client
	Taxonomy   *enrich.Taxonomy
	Logger     *slog.Logger
	Now        func() time.Time
}

// GDELT fetches article lists from the GDELT DOC 2.0 API.
type GDELT struct {
	opts    GDELTOptions
	queries map[string]string
	client  *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

// NewGDELT creates a GDELT connector.
func NewGDELT(opts GDELTOptions) *GDELT {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.gdeltproject.org"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = 20
	}
	if opts.MaxRecords > gdeltMaxRecords {
		opts.MaxRecords = gdeltMaxRecords
	}
	if opts.Timespan == "" {
		opts.Timespan = "7d"
	}
	if opts.Language == "" {
		opts.Language = "english"
	}
	if opts.Taxonomy == nil {
		opts.Taxonomy = enrich.NewTaxonomy()
	}

	queries := make(map[string]string, len(opts.Queries))
	for _, q := range opts.Queries {
		queries[q.Category] = q.Query
	}

	return &GDELT{
		opts:    opts,
		queries: queries,
		client:  defaultClient(opts.Client),
		logger:  defaultLogger(opts.Logger).With("connector", "gdelt"),
		now:     defaultNow(opts.Now),
	}
}

// Name implements Connector.
func (g *GDELT) Name() string { return "GDELT" }

// Categories lists the categories with a configured query, in order.
func (g *GDELT) Categories() []string {
	cats := make([]string, 0, len(g.opts.Queries))
	for _, q := range g.opts.Queries {
		cats = append(cats, q.Category)
	}
	return cats
}

// FetchAll fetches each category in turn. A failing category contributes no
// records and a Failure; the others are unaffected.
func (g *GDELT) FetchAll(ctx context.Context, categories []string) (Batch, error) {
	var batch Batch
	p := newPacer(g.opts.Delay)

	for _, cat := range categories {
		if err := p.wait(ctx); err != nil {
			return batch, err
		}
		records, err := g.FetchCategory(ctx, cat)
		batch.add("gdelt-"+cat, records, err)
	}

	return batch, nil
}

// FetchCategory fetches one category. An unknown category yields no records
// and no error.
func (g *GDELT) FetchCategory(ctx context.Context, category string) ([]news.Record, error) {
	query, ok := g.queries[category]
	if !ok {
		g.logger.Warn("unknown category", "category", category)
		return nil, nil
	}

	target := g.requestURL(query)
	g.logger.Debug("fetching", "category", category, "url", target)

	reqCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	articles, err := g.fetchArticles(reqCtx, category, withProxy(g.opts.Proxy, target))
	if err != nil {
		g.logger.Warn("fetch failed", "category", category, "err", err)
		return nil, err
	}

	fetchedAt := news.Timestamp(g.now())
	records := make([]news.Record, 0, len(articles))
	for i, raw := range articles {
		rec, err := g.toRecord(raw, i+1, category, fetchedAt)
		if err != nil {
			g.logger.Warn("skipping article", "category", category, "err", err)
			continue
		}
		records = append(records, rec)
	}

	g.logger.Info("fetched", "category", category, "articles", len(records))
	return records, nil
}

func (g *GDELT) requestURL(query string) string {
	params := url.Values{}
	params.Set("query", query+" sourcelang:"+g.opts.Language)
	params.Set("timespan", g.opts.Timespan)
	params.Set("mode", "artlist")
	params.Set("maxrecords", strconv.Itoa(g.opts.MaxRecords))
	params.Set("format", "json")
	params.Set("sort", "date")
	return g.opts.BaseURL + "/api/v2/doc/doc?" + params.Encode()
}

func (g *GDELT) fetchArticles(ctx context.Context, category, target string) ([]json.RawMessage, error) {
	source := "gdelt-" + category
	fail := func(status int, err error) error {
		return &internalerr.FetchError{Source: source, URL: target, Status: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fail(0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !strings.Contains(mediaType, "json") {
		return nil, fail(resp.StatusCode, fmt.Errorf("non-JSON content type %q", resp.Header.Get("Content-Type")))
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, fail(resp.StatusCode, err)
	}

	var payload struct {
		Articles []json.RawMessage `json:"articles"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &internalerr.ParseError{Source: source, Err: err}
	}

	return payload.Articles, nil
}

type gdeltArticle struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	SeenDate      string `json:"seendate"`
	SocialImage   string `json:"socialimage"`
	Domain        string `json:"domain"`
	Language      string `json:"language"`
	SourceCountry string `json:"sourcecountry"`
}

func (g *GDELT) toRecord(raw json.RawMessage, entry int, category, fetchedAt string) (news.Record, error) {
	var a gdeltArticle
	if err := json.Unmarshal(raw, &a); err != nil {
		return news.Record{}, &internalerr.ParseError{Source: "gdelt-" + category, Entry: entry, Err: err}
	}

	title := enrich.Clean(a.Title)
	alert := g.opts.Taxonomy.Alert(title)

	source := a.Domain
	if source == "" {
		source = "GDELT"
	}

	return news.Record{
		ID:          news.ID("gdelt-"+category, a.URL),
		Source:      source,
		URL:         a.URL,
		Title:       title,
		PublishedAt: enrich.ParseDateAt(a.SeenDate, g.now()),
		FetchedAt:   fetchedAt,
		Authors:     []string{},
		Tickers:     []string{},
		Topics:      g.opts.Taxonomy.Topics(title),
		Language:    languageCode(a.Language),
		Metadata: news.Metadata{
			Category:      category,
			IsAlert:       alert.IsAlert,
			AlertKeyword:  alert.Keyword,
			AlertSeverity: alert.Severity,
			Region:        g.opts.Taxonomy.Region(title),
			Domain:        a.Domain,
			ImageURL:      a.SocialImage,
			Raw:           raw,
		},
	}, nil
}

var languageCodes = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"russian":    "ru",
	"arabic":     "ar",
	"chinese":    "zh",
	"japanese":   "ja",
	"korean":     "ko",
	"turkish":    "tr",
	"hebrew":     "he",
	"ukrainian":  "uk",
	"dutch":      "nl",
	"polish":     "pl",
}

// languageCode maps the API's language names to ISO 639-1. Unknown names
// are passed through lowercased.
func languageCode(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return news.DefaultLanguage
	}
	if code, ok := languageCodes[name]; ok {
		return code
	}
	return name
}
