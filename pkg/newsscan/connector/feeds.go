package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/enrich"
	"github.com/cognicore/newsscan/pkg/newsscan/internalerr"
	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

const feedAccept = "application/rss+xml, application/atom+xml, application/xml, text/xml, */*"

// FeedOptions configures the feed connector.
type FeedOptions struct {
	Feeds []news.SourceDescriptor
	// Proxies are tried in order; "" means a direct request. An empty list
	// behaves like [""].
	Proxies  []string
	Timeout  time.Duration
	Delay    time.Duration
	Client   *http.Client
	Taxonomy *enrich.Taxonomy
	Tickers  *enrich.TickerExtractor
	Logger   *slog.Logger
	Now      func() time.Time
}

// Feeds fetches RSS and Atom feeds grouped by category.
type Feeds struct {
	opts   FeedOptions
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewFeeds creates a feed connector.
func NewFeeds(opts FeedOptions) *Feeds {
	if len(opts.Proxies) == 0 {
		opts.Proxies = []string{""}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 12 * time.Second
	}
	if opts.Taxonomy == nil {
		opts.Taxonomy = enrich.NewTaxonomy()
	}
	if opts.Tickers == nil {
		opts.Tickers = enrich.NewTickerExtractor(nil, nil)
	}
	return &Feeds{
		opts:   opts,
		client: defaultClient(opts.Client),
		logger: defaultLogger(opts.Logger).With("connector", "feeds"),
		now:    defaultNow(opts.Now),
	}
}

// Name implements Connector.
func (f *Feeds) Name() string { return "RSS" }

// Categories lists the feed categories in declaration order.
func (f *Feeds) Categories() []string {
	cats := make([]string, 0, len(f.opts.Feeds))
	for _, src := range f.opts.Feeds {
		cats = append(cats, src.Category)
	}
	return news.UniqueStrings(cats)
}

// FetchAll fetches the feeds of every category in order, spacing requests
// by the configured delay.
func (f *Feeds) FetchAll(ctx context.Context, categories []string) (Batch, error) {
	return f.fetchSources(ctx, f.sourcesFor(categories))
}

// FetchCategory fetches every feed of one category. It fails only when every
// feed of the category failed.
func (f *Feeds) FetchCategory(ctx context.Context, category string) ([]news.Record, error) {
	batch, err := f.fetchSources(ctx, f.sourcesFor([]string{category}))
	if err != nil {
		return batch.Records, err
	}
	return batch.Records, batchError(batch)
}

// FetchFeed fetches and maps a single feed.
func (f *Feeds) FetchFeed(ctx context.Context, src news.SourceDescriptor) ([]news.Record, error) {
	f.logger.Debug("fetching", "feed", src.Name, "url", src.URL)

	doc, err := f.fetchDocument(ctx, src)
	if err != nil {
		f.logger.Warn("fetch failed", "feed", src.Name, "err", err)
		return nil, err
	}

	entries, skipped := ParseFeed(doc)
	if skipped > 0 {
		f.logger.Warn("skipped entries", "feed", src.Name, "count", skipped,
			"err", &internalerr.ParseError{Source: src.Name, Err: errors.New("entry has neither title nor link")})
	}

	fetchedAt := news.Timestamp(f.now())
	records := make([]news.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, f.toRecord(e, src, fetchedAt))
	}

	f.logger.Info("fetched", "feed", src.Name, "items", len(records))
	return records, nil
}

func (f *Feeds) sourcesFor(categories []string) []news.SourceDescriptor {
	var out []news.SourceDescriptor
	for _, cat := range categories {
		n := len(out)
		for _, src := range f.opts.Feeds {
			if src.Category == cat {
				out = append(out, src)
			}
		}
		if len(out) == n {
			f.logger.Debug("no feeds for category", "category", cat)
		}
	}
	return out
}

func (f *Feeds) fetchSources(ctx context.Context, sources []news.SourceDescriptor) (Batch, error) {
	var batch Batch
	p := newPacer(f.opts.Delay)

	for _, src := range sources {
		if err := p.wait(ctx); err != nil {
			return batch, err
		}
		records, err := f.FetchFeed(ctx, src)
		batch.add(src.Name, records, err)
	}

	return batch, nil
}

// fetchDocument tries each proxy in order until one yields an XML-looking
// body. Every attempt gets its own timeout.
func (f *Feeds) fetchDocument(ctx context.Context, src news.SourceDescriptor) (string, error) {
	var lastErr error
	for _, proxy := range f.opts.Proxies {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		body, err := f.attempt(ctx, src, withProxy(proxy, src.URL))
		if err == nil {
			return body, nil
		}
		lastErr = err
		f.logger.Debug("proxy attempt failed", "feed", src.Name, "proxy", proxy, "err", err)
	}
	return "", lastErr
}

func (f *Feeds) attempt(ctx context.Context, src news.SourceDescriptor, target string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	fail := func(status int, err error) error {
		return &internalerr.FetchError{Source: src.Name, URL: target, Status: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fail(0, err)
	}
	req.Header.Set("Accept", feedAccept)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fail(resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := readBody(resp)
	if err != nil {
		return "", fail(resp.StatusCode, err)
	}
	if err := checkXML(body); err != nil {
		return "", fail(resp.StatusCode, err)
	}

	return string(body), nil
}

// checkXML rejects empty bodies and the HTML error pages relays return
// with a 200.
func checkXML(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return errors.New("empty body")
	}

	head := trimmed
	if len(head) > 512 {
		head = head[:512]
	}
	lower := bytes.ToLower(head)
	if bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html")) {
		return errors.New("body is an HTML page")
	}
	if !bytes.Contains(trimmed, []byte("<")) {
		return errors.New("body is not XML")
	}
	return nil
}

func (f *Feeds) toRecord(e FeedEntry, src news.SourceDescriptor, fetchedAt string) news.Record {
	full := strings.Join([]string{e.Title, e.Description, e.Content}, " ")
	alert := f.opts.Taxonomy.Alert(e.Title)

	raw, err := json.Marshal(e)
	if err != nil {
		raw = nil
	}

	authors := []string{}
	if e.Author != "" {
		authors = enrich.ParseAuthors(e.Author)
	}

	return news.Record{
		ID:          news.ID(src.Name, firstNonEmpty(e.Link, e.Title)),
		Source:      src.Name,
		URL:         e.Link,
		Title:       e.Title,
		PublishedAt: f.publishedAt(e),
		FetchedAt:   fetchedAt,
		Authors:     authors,
		Summary:     e.Description,
		ContentText: firstNonEmpty(e.Content, e.Description),
		Tickers:     f.opts.Tickers.Extract(full),
		Topics:      f.opts.Taxonomy.Topics(full),
		Language:    news.DefaultLanguage,
		Metadata: news.Metadata{
			Category:      src.Category,
			IsAlert:       alert.IsAlert,
			AlertKeyword:  alert.Keyword,
			AlertSeverity: alert.Severity,
			Region:        f.opts.Taxonomy.Region(full),
			Domain:        enrich.Domain(e.Link),
			Raw:           raw,
		},
	}
}

// publishedAt prefers the local date parser, which resolves the US zone
// names RFC 2822 allows, over the feed library's reading.
func (f *Feeds) publishedAt(e FeedEntry) string {
	if t, ok := enrich.ParseTime(e.Published); ok {
		return news.Timestamp(t)
	}
	if !e.PublishedTime.IsZero() {
		return news.Timestamp(e.PublishedTime)
	}
	return news.Timestamp(f.now())
}

// batchError reports a failure only when nothing succeeded.
func batchError(b Batch) error {
	if len(b.Failures) == 0 || len(b.Records) > 0 {
		return nil
	}
	errs := make([]error, len(b.Failures))
	for i, fl := range b.Failures {
		errs[i] = fl.Err
	}
	return errors.Join(errs...)
}
