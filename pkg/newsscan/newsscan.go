// Package newsscan wires the connectors, enrichment, filter and storage
// into a ready-to-run pipeline from a single configuration.
//
//	cfg, _ := config.Load("newsscan.yaml")
//	p, _ := newsscan.New(newsscan.Options{Config: cfg, UseGDELT: true, UseFeeds: true})
//	res := p.Run(ctx)
package newsscan

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/config"
	"github.com/cognicore/newsscan/pkg/newsscan/connector"
	"github.com/cognicore/newsscan/pkg/newsscan/filter"
	"github.com/cognicore/newsscan/pkg/newsscan/pipeline"
	"github.com/cognicore/newsscan/pkg/newsscan/store"
)

// Family names, in the order they run.
const (
	FamilyGDELT = "gdelt"
	FamilyFeeds = "rss"
	FamilyIntel = "intel"
)

// Options selects what a run fetches and where it goes.
type Options struct {
	// Config defaults to config.Default().
	Config *config.Config
	// Categories defaults to every configured category.
	Categories []string

	UseGDELT bool
	UseFeeds bool
	UseIntel bool

	Filter     *filter.Config
	Store      store.Store
	Concurrent bool

	Client *http.Client
	Logger *slog.Logger
	Clock  func() time.Time
}

// New validates the configuration and builds a pipeline. Each call builds
// fresh connectors; nothing is shared between pipelines except opts.Store
// and opts.Client.
func New(opts Options) (*pipeline.Pipeline, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	comp := cfg.Build(opts.Clock)

	categories := opts.Categories
	if len(categories) == 0 {
		categories = cfg.Categories()
	}

	var families []pipeline.Family
	if opts.UseGDELT {
		families = append(families, pipeline.Family{
			Name: FamilyGDELT,
			Connector: connector.NewGDELT(connector.GDELTOptions{
				BaseURL:    cfg.Request.GDELTBaseURL,
				Proxy:      cfg.Request.APIProxy,
				Queries:    cfg.Sources.APIQueries,
				Timeout:    cfg.Request.Timeout,
				Delay:      cfg.Request.Delay,
				MaxRecords: cfg.APIMaxRecords(),
				Timespan:   cfg.Request.Timespan,
				Language:   cfg.Request.Language,
				Client:     opts.Client,
				Taxonomy:   comp.Taxonomy,
				Logger:     logger,
				Now:        opts.Clock,
			}),
		})
	}
	if opts.UseFeeds {
		families = append(families, pipeline.Family{
			Name: FamilyFeeds,
			Connector: connector.NewFeeds(connector.FeedOptions{
				Feeds:    cfg.Sources.Feeds,
				Proxies:  cfg.Proxies,
				Timeout:  cfg.Request.FeedTimeout,
				Delay:    cfg.Request.Delay,
				Client:   opts.Client,
				Taxonomy: comp.Taxonomy,
				Tickers:  comp.Tickers,
				Logger:   logger,
				Now:      opts.Clock,
			}),
		})
	}
	if opts.UseIntel {
		families = append(families, pipeline.Family{
			Name: FamilyIntel,
			Connector: connector.NewIntel(connector.IntelOptions{
				Sources:  cfg.Sources.Intel,
				Proxies:  cfg.Proxies,
				Timeout:  cfg.Request.FeedTimeout,
				Delay:    cfg.Request.Delay,
				Client:   opts.Client,
				Taxonomy: comp.Taxonomy,
				Tickers:  comp.Tickers,
				Logger:   logger,
				Now:      opts.Clock,
			}),
		})
	}

	return pipeline.New(pipeline.Options{
		Categories: categories,
		Families:   families,
		Normalizer: comp.Normalizer,
		Filter:     opts.Filter,
		Store:      opts.Store,
		Concurrent: opts.Concurrent,
		Logger:     logger,
		Clock:      opts.Clock,
	}), nil
}
