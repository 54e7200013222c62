// Package filter narrows a record set by category, region, topic, keyword,
// age, alert state, source and ticker. Every criterion is optional and the
// ones that are set combine conjunctively.
package filter

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

// Config selects records. Zero values disable a criterion.
type Config struct {
	Categories      []string      `yaml:"categories"`
	Regions         []string      `yaml:"regions"`
	Topics          []string      `yaml:"topics"`
	IncludeKeywords []string      `yaml:"include_keywords"`
	ExcludeKeywords []string      `yaml:"exclude_keywords"`
	MaxAge          time.Duration `yaml:"max_age"`
	AlertsOnly      bool          `yaml:"alerts_only"`
	Sources         []string      `yaml:"sources"`
	ExcludeSources  []string      `yaml:"exclude_sources"`
	Tickers         []string      `yaml:"tickers"`
}

// Load reads a filter configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filter %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse filter %s: %w", path, err)
	}
	return &cfg, nil
}

// IsEmpty reports whether the configuration would pass every record.
func (c *Config) IsEmpty() bool {
	if c == nil {
		return true
	}
	return len(c.Predicates(time.Now())) == 0
}

// Apply keeps the records matching cfg, measuring age against the wall
// clock.
func Apply(records []news.Record, cfg *Config) []news.Record {
	return ApplyAt(records, cfg, time.Now())
}

// ApplyAt is Apply with an explicit current time. The input slice and its
// records are left untouched.
func ApplyAt(records []news.Record, cfg *Config, now time.Time) []news.Record {
	if cfg == nil {
		return slices.Clone(records)
	}
	chain := NewChain(cfg.Predicates(now)...)
	return chain.Apply(records)
}

// Predicates translates the configured criteria into predicates, in the
// order they are evaluated.
func (c *Config) Predicates(now time.Time) []Predicate {
	var ps []Predicate

	if len(c.Categories) > 0 {
		ps = append(ps, Category(c.Categories...))
	}
	if len(c.Regions) > 0 {
		ps = append(ps, Region(c.Regions...))
	}
	if len(c.Topics) > 0 {
		ps = append(ps, Topic(c.Topics...))
	}
	if len(c.IncludeKeywords) > 0 {
		ps = append(ps, IncludeKeywords(c.IncludeKeywords...))
	}
	if len(c.ExcludeKeywords) > 0 {
		ps = append(ps, ExcludeKeywords(c.ExcludeKeywords...))
	}
	if c.MaxAge > 0 {
		ps = append(ps, MaxAge(c.MaxAge, now))
	}
	if c.AlertsOnly {
		ps = append(ps, AlertsOnly())
	}
	if len(c.Sources) > 0 {
		ps = append(ps, Source(c.Sources...))
	}
	if len(c.ExcludeSources) > 0 {
		ps = append(ps, Not(Source(c.ExcludeSources...)))
	}
	if len(c.Tickers) > 0 {
		ps = append(ps, Ticker(c.Tickers...))
	}

	return ps
}

// keywordText is the text keyword criteria search.
func keywordText(r news.Record) string {
	return strings.ToLower(r.Title + " " + r.Summary)
}
