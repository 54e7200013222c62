package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/newsscan/pkg/newsscan"
	"github.com/cognicore/newsscan/pkg/newsscan/filter"
	"github.com/cognicore/newsscan/pkg/newsscan/news"
	"github.com/cognicore/newsscan/pkg/newsscan/pipeline"
	"github.com/cognicore/newsscan/pkg/newsscan/store"
	"github.com/cognicore/newsscan/pkg/newsscan/store/memstore"
)

type showOptions struct {
	store      string
	path       string
	source     string
	alertsOnly bool
	since      time.Duration
	limit      int
	counts     bool
}

func newShowCmd(g *globalOptions) *cobra.Command {
	o := &showOptions{}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print records from a store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showRecords(cmd, g, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.store, "store", newsscan.BackendSQLite, "Storage backend: jsonl or sqlite")
	f.StringVar(&o.path, "path", "", "Store file (sqlite defaults to news.db in the output directory)")
	f.StringVar(&o.source, "source", "", "Only records from this source")
	f.BoolVar(&o.alertsOnly, "alerts-only", false, "Only alert records")
	f.DurationVar(&o.since, "since", 0, "Only records published within this window")
	f.IntVar(&o.limit, "limit", 50, "Maximum records to print (0 for all)")
	f.BoolVar(&o.counts, "counts", false, "Print per-source record counts instead")

	return cmd
}

func showRecords(cmd *cobra.Command, g *globalOptions, o *showOptions) error {
	ctx := cmd.Context()

	cfg, logger, err := g.load()
	if err != nil {
		return err
	}

	if o.store == newsscan.BackendJSONL && o.path == "" {
		return fmt.Errorf("--path is required for the jsonl store")
	}
	if o.store == newsscan.BackendMemory || o.store == newsscan.BackendNone {
		return fmt.Errorf("nothing to show from the %s store", o.store)
	}

	st, err := newsscan.OpenStore(ctx, newsscan.Backend{Kind: o.store, Path: o.path, Dir: cfg.OutputDir}, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()

	if o.counts {
		counts, err := sourceCounts(ctx, st)
		if err != nil {
			return err
		}
		for _, c := range counts {
			fmt.Fprintf(out, "%6d  %s\n", c.Count, c.Source)
		}
		return nil
	}

	q := store.Query{Source: o.source, AlertsOnly: o.alertsOnly, Limit: o.limit}
	if o.since > 0 {
		q.Since = time.Now().Add(-o.since)
	}

	records, err := queryStore(ctx, st, q)
	if err != nil {
		return err
	}
	printRecords(out, records)
	return nil
}

// queryStore answers q with the adapter's own index when it has one and
// falls back to filtering a full load.
func queryStore(ctx context.Context, st store.Store, q store.Query) ([]news.Record, error) {
	if querier, ok := st.(store.Querier); ok {
		return querier.Query(ctx, q)
	}

	all, err := st.Load(ctx)
	if err != nil {
		return nil, err
	}

	chain := filter.NewChain()
	if q.Source != "" {
		chain.Add(filter.Source(q.Source))
	}
	if q.AlertsOnly {
		chain.Add(filter.AlertsOnly())
	}
	if !q.Since.IsZero() {
		now := time.Now()
		chain.Add(filter.MaxAge(now.Sub(q.Since), now))
	}

	records := pipeline.SortByRecency(chain.Apply(all))
	if q.Limit > 0 && len(records) > q.Limit {
		records = records[:q.Limit]
	}
	return records, nil
}

func sourceCounts(ctx context.Context, st store.Store) ([]store.SourceCount, error) {
	if querier, ok := st.(store.Querier); ok {
		return querier.Sources(ctx)
	}

	all, err := st.Load(ctx)
	if err != nil {
		return nil, err
	}

	mem := memstore.New()
	if err := mem.Save(ctx, all); err != nil {
		return nil, err
	}
	return mem.Sources(ctx)
}
