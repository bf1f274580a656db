// Package detect flags sentences with every distortion label whose phrases
// they contain. Labels are independent: a sentence may carry any number.
package detect

import (
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/cogdist/pkg/cogdist/corpus"
	"github.com/cognicore/cogdist/pkg/cogdist/lexicon"
)

// DefaultBatchSize is the number of sentences labeled per goroutine.
const DefaultBatchSize = 512

// Detector labels sentences against a lexicon.
type Detector struct {
	labels    []string
	kind      MatcherKind
	matcher   Matcher
	workers   int
	batchSize int
}

// Option configures a Detector.
type Option func(*Detector)

// WithMatcher selects the containment strategy. Unknown kinds fall back to Scan.
func WithMatcher(kind MatcherKind) Option {
	return func(d *Detector) { d.kind = kind }
}

// WithWorkers bounds the number of concurrent labeling goroutines.
// Values <= 0 mean GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(d *Detector) { d.workers = n }
}

// WithBatchSize sets how many sentences each goroutine labels.
func WithBatchSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// New creates a detector for lex. Labels keep the lexicon's declared order.
func New(lex *lexicon.Lexicon, opts ...Option) *Detector {
	d := &Detector{
		labels:    lex.Labels(),
		kind:      Scan,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(d)
	}

	entries := lex.Entries()
	switch d.kind {
	case Automaton:
		d.matcher = newAutomatonMatcher(entries)
	default:
		d.kind = Scan
		d.matcher = newScanMatcher(entries)
	}
	if d.workers <= 0 {
		d.workers = runtime.GOMAXPROCS(0)
	}
	return d
}

// Kind reports the matcher strategy in use.
func (d *Detector) Kind() MatcherKind { return d.kind }

// Labels returns the label order used for every result.
func (d *Detector) Labels() []string {
	return append([]string(nil), d.labels...)
}

// Label flags one text. It lowercases once and has no side effects.
func (d *Detector) Label(text string) map[string]bool {
	hits := d.matcher.Match(strings.ToLower(text))
	flags := make(map[string]bool, len(d.labels))
	for i, label := range d.labels {
		flags[label] = hits[i]
	}
	return flags
}

// Detect labels every sentence, undated ones included, and returns the
// results in input order along with the label order.
func (d *Detector) Detect(sentences []corpus.Sentence) ([]corpus.LabeledSentence, []string) {
	out := make([]corpus.LabeledSentence, len(sentences))

	var g errgroup.Group
	g.SetLimit(d.workers)
	for start := 0; start < len(sentences); start += d.batchSize {
		end := start + d.batchSize
		if end > len(sentences) {
			end = len(sentences)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				out[i] = corpus.LabeledSentence{
					Sentence: sentences[i],
					Flags:    d.Label(sentences[i].Text),
				}
			}
			return nil
		})
	}
	_ = g.Wait() // labeling cannot fail

	return out, d.Labels()
}

// Counts returns, per label, how many sentences were flagged.
func Counts(labeled []corpus.LabeledSentence, labels []string) map[string]int {
	counts := make(map[string]int, len(labels))
	for _, label := range labels {
		counts[label] = 0
	}
	for _, ls := range labeled {
		for _, label := range labels {
			if ls.Flags[label] {
				counts[label]++
			}
		}
	}
	return counts
}
