package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/cogdist/internal/logging"
)

//go:embed default.yaml
var defaultYAML []byte

// Lexicon maps each distortion label to the phrases that signal it.
//
// Design principles:
//   - Ordered: labels keep their declared order, so every downstream table
//     has a stable column order
//   - Validated: entries without usable phrases are dropped and recorded
//     instead of failing the whole run
//   - Immutable: built once, read concurrently without locking
type Lexicon struct {
	entries []Entry

	// label -> position in entries
	index map[string]int

	dropped []*ConfigurationError
}

// Entry is one distortion label and its phrase set (lowercase, deduplicated).
type Entry struct {
	Label   string   `yaml:"label"`
	Phrases []string `yaml:"phrases"`
}

// ConfigurationError describes a lexicon entry that was skipped.
type ConfigurationError struct {
	Label  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("lexicon: unnamed entry: %s", e.Reason)
	}
	return fmt.Sprintf("lexicon: entry %q: %s", e.Label, e.Reason)
}

// New builds a lexicon from entries in declared order.
// Phrases are trimmed, lowercased and deduplicated. Entries with no label,
// a duplicate label, or no non-empty phrase are dropped with a warning.
func New(entries ...Entry) *Lexicon {
	l := &Lexicon{index: make(map[string]int)}

	for _, e := range entries {
		label := strings.TrimSpace(e.Label)
		if label == "" {
			l.drop(&ConfigurationError{Reason: "missing label"})
			continue
		}
		if _, exists := l.index[label]; exists {
			l.drop(&ConfigurationError{Label: label, Reason: "duplicate label"})
			continue
		}

		phrases := normalizePhrases(e.Phrases)
		if len(phrases) == 0 {
			l.drop(&ConfigurationError{Label: label, Reason: "empty phrase set"})
			continue
		}

		l.index[label] = len(l.entries)
		l.entries = append(l.entries, Entry{Label: label, Phrases: phrases})
	}

	return l
}

func (l *Lexicon) drop(err *ConfigurationError) {
	logging.Warn("dropping lexicon entry", "label", err.Label, "reason", err.Reason)
	l.dropped = append(l.dropped, err)
}

func normalizePhrases(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, p := range in {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Parse reads a lexicon from YAML.
//
// Expected format:
//
//	distortions:
//	  - label: Catastrophizing
//	    phrases: [will be a disaster, end of the world]
//	  - label: Should Statements
//	    phrases: [i should, i must]
//
// A malformed document is an error; malformed entries are dropped.
func Parse(data []byte) (*Lexicon, error) {
	var doc struct {
		Distortions []Entry `yaml:"distortions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if len(doc.Distortions) == 0 {
		return nil, fmt.Errorf("parse lexicon: no distortions declared")
	}
	return New(doc.Distortions...), nil
}

// LoadFromYAML loads a lexicon file.
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Default returns the built-in twelve-category lexicon.
func Default() *Lexicon {
	l, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded lexicon: %v", err))
	}
	return l
}

// Labels returns the labels in declared order.
func (l *Lexicon) Labels() []string {
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Label
	}
	return out
}

// Phrases returns the phrase set for label, or nil if it is unknown.
func (l *Lexicon) Phrases(label string) []string {
	i, ok := l.index[label]
	if !ok {
		return nil
	}
	return append([]string(nil), l.entries[i].Phrases...)
}

// Entries returns a copy of all entries in declared order.
func (l *Lexicon) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = Entry{Label: e.Label, Phrases: append([]string(nil), e.Phrases...)}
	}
	return out
}

// Len returns the number of usable labels.
func (l *Lexicon) Len() int { return len(l.entries) }

// Dropped returns the entries skipped while building the lexicon.
func (l *Lexicon) Dropped() []*ConfigurationError {
	return append([]*ConfigurationError(nil), l.dropped...)
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() Stats {
	total := 0
	for _, e := range l.entries {
		total += len(e.Phrases)
	}
	return Stats{
		Labels:       len(l.entries),
		TotalPhrases: total,
		Dropped:      len(l.dropped),
	}
}

// Stats holds statistics about lexicon contents.
type Stats struct {
	Labels       int // usable distortion labels
	TotalPhrases int // phrases across all labels
	Dropped      int // entries skipped as malformed
}
