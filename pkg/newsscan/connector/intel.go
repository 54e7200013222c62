package connector

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/enrich"
	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

// IntelOptions configures the intelligence-feed connector.
type IntelOptions struct {
	Sources  []news.SourceDescriptor
	Proxies  []string
	Timeout  time.Duration
	Delay    time.Duration
	Client   *http.Client
	Taxonomy *enrich.Taxonomy
	Tickers  *enrich.TickerExtractor
	Logger   *slog.Logger
	Now      func() time.Time
}

// Intel fetches think-tank, defense and OSINT feeds and stamps their
// descriptor metadata on every record.
type Intel struct {
	sources []news.SourceDescriptor
	delay   time.Duration
	feeds   *Feeds
	logger  *slog.Logger
}

// NewIntel creates an intelligence-feed connector.
func NewIntel(opts IntelOptions) *Intel {
	logger := defaultLogger(opts.Logger).With("connector", "intel")
	return &Intel{
		sources: opts.Sources,
		delay:   opts.Delay,
		logger:  logger,
		feeds: NewFeeds(FeedOptions{
			Feeds:    opts.Sources,
			Proxies:  opts.Proxies,
			Timeout:  opts.Timeout,
			Delay:    opts.Delay,
			Client:   opts.Client,
			Taxonomy: opts.Taxonomy,
			Tickers:  opts.Tickers,
			Logger:   logger,
			Now:      opts.Now,
		}),
	}
}

// Name implements Connector.
func (in *Intel) Name() string { return "Intel" }

// FetchAll fetches every intelligence source. The category list is not
// consulted: intelligence sources form one family.
func (in *Intel) FetchAll(ctx context.Context, _ []string) (Batch, error) {
	var batch Batch
	p := newPacer(in.delay)

	for _, src := range in.sources {
		if err := p.wait(ctx); err != nil {
			return batch, err
		}
		records, err := in.fetchSource(ctx, src)
		batch.add(src.Name, records, err)
	}

	return batch, nil
}

// FetchCategory fetches the intelligence sources declared under category.
func (in *Intel) FetchCategory(ctx context.Context, category string) ([]news.Record, error) {
	var batch Batch
	p := newPacer(in.delay)

	for _, src := range in.sources {
		if src.Category != category {
			continue
		}
		if err := p.wait(ctx); err != nil {
			return batch.Records, err
		}
		records, err := in.fetchSource(ctx, src)
		batch.add(src.Name, records, err)
	}

	return batch.Records, batchError(batch)
}

func (in *Intel) fetchSource(ctx context.Context, src news.SourceDescriptor) ([]news.Record, error) {
	records, err := in.feeds.FetchFeed(ctx, src)
	if err != nil {
		return nil, err
	}
	for i := range records {
		stampIntel(&records[i], src)
	}
	return records, nil
}

// stampIntel copies descriptor metadata onto rec. The descriptor region is
// a hint: it applies only when keyword detection found none.
func stampIntel(rec *news.Record, src news.SourceDescriptor) {
	rec.Metadata.IntelType = src.Type
	rec.Metadata.IntelTopics = append([]string(nil), src.Topics...)
	if rec.Metadata.Region == "" {
		rec.Metadata.Region = src.Region
	}
}
