package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cognicore/cogdist/internal/logging"
	"github.com/cognicore/cogdist/pkg/cogdist/detect"
	"github.com/cognicore/cogdist/pkg/cogdist/embed"
	"github.com/cognicore/cogdist/pkg/cogdist/timeseries"
)

func init() {
	logging.Discard()
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	ref, err := cfg.ReferenceInterval()
	if err != nil {
		t.Fatal(err)
	}
	if !ref.Start.Equal(time.Date(2020, 4, 7, 0, 0, 0, 0, time.UTC)) || !ref.End.Equal(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("reference = %+v", ref)
	}
	if cfg.Clusters.KMin != 10 || cfg.Clusters.KMax != 100 || cfg.Clusters.KStep != 10 || cfg.Clusters.Seed != 42 {
		t.Errorf("clusters = %+v", cfg.Clusters)
	}
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
period: month
clusters:
  k_min: 2
  k_max: 8
  k_step: 2
embedding:
  timeout: 5s
detector:
  matcher: automaton
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Period != "month" || cfg.Clusters.KMin != 2 || cfg.Clusters.KMax != 8 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Clusters.Seed != 42 || cfg.Clusters.MinSentences != 20 || cfg.SpikeWindow != 4 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Embedding.Timeout != 5*time.Second || cfg.Embedding.Provider != embed.Hashing {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Reference.Start != "2020-04-07" {
		t.Errorf("reference default lost: %+v", cfg.Reference)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]string{
		"k_min below 2":      "clusters: {k_min: 1}",
		"k_step zero":        "clusters: {k_step: 0}",
		"k_max below k_min":  "clusters: {k_min: 50, k_max: 20}",
		"spike window":       "spike_window: 0",
		"reference reversed": "reference: {start: 2022-01-01, end: 2020-01-01}",
		"bad date":           "reference: {start: April}",
		"period":             "period: fortnight",
		"provider":           "embedding: {provider: word2vec}",
		"openai no endpoint": "embedding: {provider: openai}",
		"matcher":            "detector: {matcher: regex}",
	}
	for name, doc := range tests {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
	if _, err := Parse([]byte("period: [")); err == nil {
		t.Error("malformed YAML should fail")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("spike_window: 6\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil || cfg.SpikeWindow != 6 {
		t.Errorf("Load = %+v, %v", cfg, err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestYAMLRedactsKey(t *testing.T) {
	cfg := Default()
	cfg.Embedding.APIKey = "sk-secret"
	out, err := cfg.YAML()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "sk-secret") {
		t.Error("API key leaked into snapshot")
	}
	if cfg.Embedding.APIKey != "sk-secret" {
		t.Error("YAML must not modify the receiver")
	}
	back, err := Parse([]byte(out))
	if err != nil || back.Clusters != cfg.Clusters {
		t.Errorf("snapshot does not round-trip: %v", err)
	}
}

func TestLoaderDefaults(t *testing.T) {
	l := Loader{Config: Default()}
	comp, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if comp.Lexicon.Len() != 12 {
		t.Errorf("default lexicon has %d labels", comp.Lexicon.Len())
	}
	if comp.Detector.Kind() != detect.Scan || comp.Period != timeseries.Week {
		t.Errorf("components = %+v", comp)
	}
	if comp.Embedder.Dimension() != embed.DefaultHashingDim {
		t.Errorf("embedder dimension = %d", comp.Embedder.Dimension())
	}
	if comp.Splitter == nil || comp.Reference.Start.IsZero() {
		t.Error("splitter and reference must be set")
	}
}

func TestLoaderCustomLexicon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lex.yaml")
	doc := "distortions:\n  - label: Absolutes\n    phrases: [always, never]\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	cfg.Lexicon = path
	cfg.Detector.Matcher = string(detect.Automaton)

	comp, err := (&Loader{Config: cfg}).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if labels := comp.Lexicon.Labels(); len(labels) != 1 || labels[0] != "Absolutes" {
		t.Errorf("labels = %v", labels)
	}
	if comp.Detector.Kind() != detect.Automaton {
		t.Errorf("matcher = %s", comp.Detector.Kind())
	}

	cfg.Lexicon = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := (&Loader{Config: cfg}).Load(); err == nil {
		t.Error("missing lexicon should fail")
	}
}
