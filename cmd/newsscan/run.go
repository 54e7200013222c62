package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/newsscan/pkg/newsscan"
	"github.com/cognicore/newsscan/pkg/newsscan/filter"
)

type runOptions struct {
	categories []string
	gdelt      bool
	feeds      bool
	intel      bool
	concurrent bool

	filterFile     string
	regions        []string
	topics         []string
	include        []string
	exclude        []string
	sources        []string
	excludeSources []string
	tickers        []string
	maxAge         time.Duration
	alertsOnly     bool

	store  string
	out    string
	pretty bool
	append bool
	asJSON bool
}

func newRunCmd(g *globalOptions) *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ingestion pipeline once",
		Long: `Fetches every enabled source family for the selected categories, then
enriches, filters, deduplicates, sorts and stores the records. Source
failures are reported but never abort the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, g, o)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&o.categories, "categories", nil, "Categories to fetch (default: all configured)")
	f.BoolVar(&o.gdelt, "gdelt", true, "Fetch from the GDELT document API")
	f.BoolVar(&o.feeds, "rss", true, "Fetch RSS/Atom feeds")
	f.BoolVar(&o.intel, "intel", false, "Fetch intelligence feeds")
	f.BoolVar(&o.concurrent, "concurrent", false, "Fetch source families in parallel")

	f.StringVar(&o.filterFile, "filter", "", "YAML filter file; flags below add to it")
	f.StringSliceVar(&o.regions, "region", nil, "Keep records in these regions")
	f.StringSliceVar(&o.topics, "topic", nil, "Keep records with any of these topics")
	f.StringSliceVar(&o.include, "include", nil, "Keep records whose title or summary contains any keyword")
	f.StringSliceVar(&o.exclude, "exclude", nil, "Drop records whose title or summary contains any keyword")
	f.StringSliceVar(&o.sources, "source", nil, "Keep records from these sources")
	f.StringSliceVar(&o.excludeSources, "exclude-source", nil, "Drop records from these sources")
	f.StringSliceVar(&o.tickers, "ticker", nil, "Keep records mentioning any of these tickers")
	f.DurationVar(&o.maxAge, "max-age", 0, "Drop records published longer ago than this")
	f.BoolVar(&o.alertsOnly, "alerts-only", false, "Keep only alert records")

	f.StringVar(&o.store, "store", newsscan.BackendJSONL, "Storage backend: jsonl, sqlite, memory or none")
	f.StringVar(&o.out, "out", "", "Output file (default: timestamped file in the output directory)")
	f.BoolVar(&o.pretty, "pretty", false, "Indent JSONL records")
	f.BoolVar(&o.append, "append", false, "Append to an existing JSONL file")
	f.BoolVar(&o.asJSON, "json", false, "Print the run result as JSON")

	return cmd
}

// filterConfig merges the filter file with the filter flags.
func (o *runOptions) filterConfig() (*filter.Config, error) {
	fc := &filter.Config{}
	if o.filterFile != "" {
		loaded, err := filter.Load(o.filterFile)
		if err != nil {
			return nil, err
		}
		fc = loaded
	}

	fc.Regions = append(fc.Regions, o.regions...)
	fc.Topics = append(fc.Topics, o.topics...)
	fc.IncludeKeywords = append(fc.IncludeKeywords, o.include...)
	fc.ExcludeKeywords = append(fc.ExcludeKeywords, o.exclude...)
	fc.Sources = append(fc.Sources, o.sources...)
	fc.ExcludeSources = append(fc.ExcludeSources, o.excludeSources...)
	fc.Tickers = append(fc.Tickers, o.tickers...)
	if o.maxAge > 0 {
		fc.MaxAge = o.maxAge
	}
	if o.alertsOnly {
		fc.AlertsOnly = true
	}
	return fc, nil
}

func runPipeline(cmd *cobra.Command, g *globalOptions, o *runOptions) error {
	ctx := cmd.Context()

	cfg, logger, err := g.load()
	if err != nil {
		return err
	}

	fc, err := o.filterConfig()
	if err != nil {
		return err
	}

	st, err := newsscan.OpenStore(ctx, newsscan.Backend{
		Kind:   o.store,
		Path:   o.out,
		Dir:    cfg.OutputDir,
		Pretty: o.pretty,
		Append: o.append,
	}, logger)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	p, err := newsscan.New(newsscan.Options{
		Config:     cfg,
		Categories: o.categories,
		UseGDELT:   o.gdelt,
		UseFeeds:   o.feeds,
		UseIntel:   o.intel,
		Filter:     fc,
		Store:      st,
		Concurrent: o.concurrent,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	res := p.Run(ctx)

	out := cmd.OutOrStdout()
	if o.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	printRecords(out, res.Records)
	fmt.Fprintln(out)
	printStats(out, res)
	if file, ok := st.(interface{ Path() string }); ok && res.Stats.Stored > 0 {
		fmt.Fprintf(out, "Saved to %s\n", file.Path())
	}
	return nil
}
