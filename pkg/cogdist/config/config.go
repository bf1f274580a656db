// Package config loads the run configuration and builds the components a
// run needs from it.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/cogdist/pkg/cogdist/correlation"
	"github.com/cognicore/cogdist/pkg/cogdist/detect"
	"github.com/cognicore/cogdist/pkg/cogdist/embed"
	"github.com/cognicore/cogdist/pkg/cogdist/signals"
	"github.com/cognicore/cogdist/pkg/cogdist/timeseries"
	"github.com/cognicore/cogdist/pkg/cogdist/topics"
)

// APIKeyEnv is read when the embedding API key is not set in the file.
const APIKeyEnv = "COGDIST_EMBEDDING_API_KEY"

// Config is the run configuration file.
type Config struct {
	Lexicon     string              `yaml:"lexicon"` // empty uses the built-in lexicon
	Period      string              `yaml:"period"`
	SpikeWindow int                 `yaml:"spike_window"`
	Reference   Reference           `yaml:"reference"`
	Clusters    topics.SearchConfig `yaml:"clusters"`
	Embedding   embed.Config        `yaml:"embedding"`
	Detector    Detector            `yaml:"detector"`
	Output      Output              `yaml:"output"`
}

// Reference is the interval correlation segments are cut around, as
// YYYY-MM-DD dates.
type Reference struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Detector selects the phrase matcher.
type Detector struct {
	Matcher string `yaml:"matcher"`
	Workers int    `yaml:"workers"`
}

// Output names where results go. An empty DB skips persistence.
type Output struct {
	Dir string `yaml:"dir"`
	DB  string `yaml:"db"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Period:      string(timeseries.Week),
		SpikeWindow: signals.DefaultSpikeWindow,
		Reference:   Reference{Start: "2020-04-07", End: "2022-01-01"},
		Clusters:    topics.DefaultSearchConfig(),
		Embedding: embed.Config{
			Provider:  embed.Hashing,
			Model:     embed.DefaultModel,
			BatchSize: embed.DefaultBatchSize,
			CacheSize: embed.DefaultCacheSize,
		},
		Detector: Detector{Matcher: string(detect.Scan)},
		Output:   Output{Dir: "output"},
	}
}

// Parse decodes YAML over the defaults, so omitted keys keep their default
// values, and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if _, err := timeseries.ParsePeriod(c.Period); err != nil {
		errs = append(errs, err)
	}
	if c.SpikeWindow < 1 {
		errs = append(errs, fmt.Errorf("spike_window must be at least 1, got %d", c.SpikeWindow))
	}
	if _, err := c.ReferenceInterval(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Clusters.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("clusters: %w", err))
	}
	switch c.Embedding.Provider {
	case "", embed.Hashing:
	case embed.OpenAI:
		if c.Embedding.Endpoint == "" {
			errs = append(errs, errors.New("embedding: endpoint is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("embedding: unknown provider %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimension < 0 || c.Embedding.BatchSize < 0 || c.Embedding.CacheSize < 0 {
		errs = append(errs, errors.New("embedding: dimension, batch_size and cache_size must not be negative"))
	}
	switch detect.MatcherKind(c.Detector.Matcher) {
	case "", detect.Scan, detect.Automaton:
	default:
		errs = append(errs, fmt.Errorf("detector: unknown matcher %q", c.Detector.Matcher))
	}
	return errors.Join(errs...)
}

// ReferenceInterval parses the reference dates.
func (c Config) ReferenceInterval() (correlation.Reference, error) {
	start, err := time.Parse(time.DateOnly, c.Reference.Start)
	if err != nil {
		return correlation.Reference{}, fmt.Errorf("reference.start: %w", err)
	}
	end, err := time.Parse(time.DateOnly, c.Reference.End)
	if err != nil {
		return correlation.Reference{}, fmt.Errorf("reference.end: %w", err)
	}
	ref := correlation.Reference{Start: start, End: end}
	if err := ref.Validate(); err != nil {
		return correlation.Reference{}, err
	}
	return ref, nil
}

// YAML renders the configuration for run records. The API key is redacted.
func (c Config) YAML() (string, error) {
	if c.Embedding.APIKey != "" {
		c.Embedding.APIKey = "REDACTED"
	}
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
