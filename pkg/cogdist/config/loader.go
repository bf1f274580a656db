package config

import (
	"fmt"
	"os"

	"github.com/cognicore/cogdist/internal/logging"
	"github.com/cognicore/cogdist/pkg/cogdist/correlation"
	"github.com/cognicore/cogdist/pkg/cogdist/detect"
	"github.com/cognicore/cogdist/pkg/cogdist/embed"
	"github.com/cognicore/cogdist/pkg/cogdist/ingest"
	"github.com/cognicore/cogdist/pkg/cogdist/lexicon"
	"github.com/cognicore/cogdist/pkg/cogdist/timeseries"
)

// Loader builds run components from a Config.
type Loader struct {
	Config Config
}

// Components holds everything a run is wired from.
type Components struct {
	Lexicon   *lexicon.Lexicon
	Detector  *detect.Detector
	Embedder  embed.Embedder
	Splitter  ingest.Splitter
	Period    timeseries.Period
	Reference correlation.Reference
}

// Load validates the config and constructs the components.
func (l *Loader) Load() (*Components, error) {
	cfg := l.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	comp := &Components{}

	if cfg.Lexicon != "" {
		lex, err := lexicon.LoadFromYAML(cfg.Lexicon)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		comp.Lexicon = lex
	} else {
		comp.Lexicon = lexicon.Default()
	}
	st := comp.Lexicon.Stats()
	logging.Info("lexicon ready", "labels", st.Labels, "phrases", st.TotalPhrases, "dropped", st.Dropped)

	comp.Detector = detect.New(comp.Lexicon,
		detect.WithMatcher(detect.MatcherKind(cfg.Detector.Matcher)),
		detect.WithWorkers(cfg.Detector.Workers))

	ec := cfg.Embedding
	if ec.APIKey == "" {
		ec.APIKey = os.Getenv(APIKeyEnv)
	}
	emb, err := embed.New(ec)
	if err != nil {
		return nil, fmt.Errorf("build embedder: %w", err)
	}
	comp.Embedder = emb

	splitter, err := ingest.NewPunktSplitter()
	if err != nil {
		return nil, err
	}
	comp.Splitter = splitter

	comp.Period, _ = timeseries.ParsePeriod(cfg.Period)
	comp.Reference, _ = cfg.ReferenceInterval()
	return comp, nil
}
