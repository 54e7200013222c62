package config

import (
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/enrich"
)

// Components holds the enrichment components built from a Config.
type Components struct {
	Taxonomy   *enrich.Taxonomy
	Tickers    *enrich.TickerExtractor
	Normalizer *enrich.Normalizer
}

// Build constructs the enrichment components. now may be nil.
func (c *Config) Build(now func() time.Time) *Components {
	comp := &Components{}

	comp.Taxonomy = enrich.NewTaxonomy()
	for _, g := range c.Taxonomy.Topics {
		comp.Taxonomy.AddTopic(g.Name, g.Keywords)
	}
	for _, g := range c.Taxonomy.Regions {
		comp.Taxonomy.AddRegion(g.Name, g.Keywords)
	}
	for _, a := range c.Taxonomy.Alerts {
		comp.Taxonomy.AddAlert(a.Keyword, a.Severity)
	}

	comp.Tickers = enrich.NewTickerExtractor(c.Taxonomy.Crypto, c.Taxonomy.TickerExclusions)

	comp.Normalizer = enrich.NewNormalizer(enrich.NormalizerOptions{
		Taxonomy: comp.Taxonomy,
		Tickers:  comp.Tickers,
		Now:      now,
	})

	return comp
}
