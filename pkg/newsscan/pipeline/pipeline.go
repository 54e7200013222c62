// Package pipeline runs one ingestion pass: fetch, enrich, filter, dedup,
// sort and store. No stage failure aborts a run; failures are collected in
// the result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/connector"
	"github.com/cognicore/newsscan/pkg/newsscan/dedup"
	"github.com/cognicore/newsscan/pkg/newsscan/enrich"
	"github.com/cognicore/newsscan/pkg/newsscan/filter"
	"github.com/cognicore/newsscan/pkg/newsscan/news"
	"github.com/cognicore/newsscan/pkg/newsscan/store"
)

// Family is one source family fetched as a batch.
type Family struct {
	Name      string
	Connector connector.Connector
}

// Options configures a Pipeline.
type Options struct {
	Categories []string
	Families   []Family
	Normalizer *enrich.Normalizer
	// Filter is applied only when it has at least one criterion.
	Filter *filter.Config
	// Store is optional; without it the run only returns records.
	Store store.Store
	// Concurrent fetches families in parallel. Requests within a family
	// stay sequential.
	Concurrent bool
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Pipeline executes runs. It holds no state between runs.
type Pipeline struct {
	opts   Options
	logger *slog.Logger
	clock  func() time.Time
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	p := &Pipeline{opts: opts, logger: opts.Logger, clock: opts.Clock}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	if p.opts.Normalizer == nil {
		p.opts.Normalizer = enrich.NewNormalizer(enrich.NormalizerOptions{Now: p.clock})
	}
	return p
}

// Run executes every stage in order and always returns a complete result.
func (p *Pipeline) Run(ctx context.Context) news.RunResult {
	start := p.clock()
	res := news.RunResult{RunID: news.NewRunID(start), Records: []news.Record{}, Errors: []news.StageError{}}
	logger := p.logger.With("run_id", res.RunID)

	logger.Info("run started", "families", len(p.opts.Families), "categories", len(p.opts.Categories))

	// fetch
	records := p.fetch(ctx, &res)
	res.Stats.Fetched = len(records)

	// enrich
	p.guard(&res, news.StageEnrich, func() {
		records = p.opts.Normalizer.NormalizeAll(records)
	})
	res.Stats.Parsed = len(records)

	// filter
	if !p.opts.Filter.IsEmpty() {
		p.guard(&res, news.StageFilter, func() {
			kept := filter.ApplyAt(records, p.opts.Filter, p.clock())
			res.Stats.Filtered = len(records) - len(kept)
			records = kept
		})
	}

	// dedup
	p.guard(&res, news.StageDedup, func() {
		d := dedup.Deduplicate(records)
		res.Stats.Deduplicated = d.Removed
		records = d.Records
	})

	// sort
	p.guard(&res, news.StageSort, func() {
		records = SortByRecency(records)
	})

	// store
	if p.opts.Store != nil {
		p.guard(&res, news.StageStore, func() {
			if err := p.opts.Store.Save(ctx, records); err != nil {
				p.record(&res, news.StageStore, "", err.Error())
				logger.Error("store failed", "err", err)
				return
			}
			res.Stats.Stored = len(records)
		})
	}

	res.Records = records
	res.Stats.Duration = p.clock().Sub(start)

	logger.Info("run finished",
		"fetched", res.Stats.Fetched,
		"filtered", res.Stats.Filtered,
		"deduplicated", res.Stats.Deduplicated,
		"stored", res.Stats.Stored,
		"records", len(res.Records),
		"errors", len(res.Errors),
		"duration", res.Stats.Duration,
	)
	return res
}

type familyOutcome struct {
	records []news.Record
	errors  []news.StageError
}

func (p *Pipeline) fetch(ctx context.Context, res *news.RunResult) []news.Record {
	outcomes := make([]familyOutcome, len(p.opts.Families))

	if p.opts.Concurrent {
		var wg sync.WaitGroup
		for i, fam := range p.opts.Families {
			wg.Add(1)
			go func(i int, fam Family) {
				defer wg.Done()
				outcomes[i] = p.fetchFamily(ctx, fam)
			}(i, fam)
		}
		wg.Wait()
	} else {
		for i, fam := range p.opts.Families {
			outcomes[i] = p.fetchFamily(ctx, fam)
		}
	}

	var records []news.Record
	for _, o := range outcomes {
		records = append(records, o.records...)
		res.Errors = append(res.Errors, o.errors...)
	}
	return records
}

// fetchFamily isolates one family: a hard error or a panic costs only this
// family's records.
func (p *Pipeline) fetchFamily(ctx context.Context, fam Family) (out familyOutcome) {
	name := fam.Name
	if name == "" && fam.Connector != nil {
		name = fam.Connector.Name()
	}
	logger := p.logger.With("family", name)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("family panicked", "panic", r)
			out = familyOutcome{errors: []news.StageError{p.stageError(news.StageFetch, name, fmt.Sprintf("panic: %v", r))}}
		}
	}()

	if fam.Connector == nil {
		return familyOutcome{}
	}

	batch, err := fam.Connector.FetchAll(ctx, p.opts.Categories)
	for _, f := range batch.Failures {
		out.errors = append(out.errors, p.stageError(news.StageFetch, f.Source, f.Err.Error()))
	}

	if err != nil {
		logger.Error("family failed", "err", err)
		out.errors = append(out.errors, p.stageError(news.StageFetch, name, err.Error()))
		return out
	}

	out.records = batch.Records
	logger.Info("family fetched", "records", len(batch.Records), "failures", len(batch.Failures))
	return out
}

// guard runs fn and turns a panic into a single error for stage.
func (p *Pipeline) guard(res *news.RunResult, stage string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("stage panicked", "stage", stage, "panic", r)
			p.record(res, stage, "", fmt.Sprintf("panic: %v", r))
		}
	}()
	fn()
}

func (p *Pipeline) record(res *news.RunResult, stage, source, msg string) {
	res.Errors = append(res.Errors, p.stageError(stage, source, msg))
}

func (p *Pipeline) stageError(stage, source, msg string) news.StageError {
	return news.StageError{
		Stage:     stage,
		Source:    source,
		Message:   msg,
		Timestamp: news.Timestamp(p.clock()),
	}
}
