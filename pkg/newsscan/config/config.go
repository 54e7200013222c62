// Package config loads the keyword taxonomy, the source catalogue and the
// request settings. Values start from the embedded defaults, are overlaid by
// an optional YAML file and finally by environment variables.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/newsscan/pkg/newsscan/internalerr"
	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// MaxAPIRecords is the upper bound the structured news API accepts.
const MaxAPIRecords = 250

// Config is the immutable configuration handed to every component at
// construction time.
type Config struct {
	OutputDir string   `yaml:"output_dir"`
	Proxies   []string `yaml:"proxies"`
	Request   Request  `yaml:"request"`
	Taxonomy  Taxonomy `yaml:"taxonomy"`
	Sources   Sources  `yaml:"sources"`
}

// Request holds network settings shared by the connectors.
type Request struct {
	GDELTBaseURL string        `yaml:"gdelt_base_url"`
	APIProxy     string        `yaml:"api_proxy"`
	Timeout      time.Duration `yaml:"timeout"`
	FeedTimeout  time.Duration `yaml:"feed_timeout"`
	Delay        time.Duration `yaml:"delay"`
	MaxRecords   int           `yaml:"max_records"`
	Timespan     string        `yaml:"timespan"`
	Language     string        `yaml:"language"`
}

// Taxonomy represents the keyword tables used for enrichment. Lists are
// ordered; the order is part of the matching contract.
type Taxonomy struct {
	Topics           []KeywordGroup `yaml:"topics"`
	Regions          []KeywordGroup `yaml:"regions"`
	Alerts           []AlertKeyword `yaml:"alerts"`
	Crypto           []string       `yaml:"crypto"`
	TickerExclusions []string       `yaml:"ticker_exclusions"`
}

// KeywordGroup is a named list of keywords.
type KeywordGroup struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// AlertKeyword is a single alert term and its severity.
type AlertKeyword struct {
	Keyword  string `yaml:"keyword"`
	Severity string `yaml:"severity"`
}

// Sources is the static source catalogue.
type Sources struct {
	APIQueries []news.CategoryQuery    `yaml:"api_queries"`
	Feeds      []news.SourceDescriptor `yaml:"feeds"`
	Intel      []news.SourceDescriptor `yaml:"intel"`
}

// Default returns a fresh copy of the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return &cfg
}

// Load reads a YAML file over the defaults. An empty path yields the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the invariants the components rely on.
func (c *Config) Validate() error {
	if c.Request.Timeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", internalerr.ErrInvalidConfig)
	}
	if c.Request.FeedTimeout <= 0 {
		return fmt.Errorf("%w: feed timeout must be positive", internalerr.ErrInvalidConfig)
	}
	if c.Request.Delay < 0 {
		return fmt.Errorf("%w: delay must not be negative", internalerr.ErrInvalidConfig)
	}
	if c.Request.MaxRecords <= 0 {
		return fmt.Errorf("%w: max_records must be positive", internalerr.ErrInvalidConfig)
	}

	for _, g := range append(append([]KeywordGroup{}, c.Taxonomy.Topics...), c.Taxonomy.Regions...) {
		if strings.TrimSpace(g.Name) == "" {
			return fmt.Errorf("%w: keyword group without a name", internalerr.ErrInvalidConfig)
		}
	}

	for _, src := range append(append([]news.SourceDescriptor{}, c.Sources.Feeds...), c.Sources.Intel...) {
		if src.Name == "" || src.URL == "" {
			return fmt.Errorf("%w: source %q needs a name and a url", internalerr.ErrInvalidConfig, src.Name)
		}
	}

	return nil
}

// APIMaxRecords returns the configured record count clamped to the API limit.
func (c *Config) APIMaxRecords() int {
	if c.Request.MaxRecords > MaxAPIRecords {
		return MaxAPIRecords
	}
	return c.Request.MaxRecords
}

// FeedCategories lists the feed categories in declaration order.
func (c *Config) FeedCategories() []string {
	var cats []string
	for _, f := range c.Sources.Feeds {
		cats = append(cats, f.Category)
	}
	return news.UniqueStrings(cats)
}

// APICategories lists the categories with a structured API query.
func (c *Config) APICategories() []string {
	cats := make([]string, 0, len(c.Sources.APIQueries))
	for _, q := range c.Sources.APIQueries {
		cats = append(cats, q.Category)
	}
	return cats
}

// Categories is the union of API and feed categories, API order first.
func (c *Config) Categories() []string {
	return news.UniqueStrings(append(c.APICategories(), c.FeedCategories()...))
}
