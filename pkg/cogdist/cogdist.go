// Package cogdist is the analytics engine facade: it labels sentences with
// cognitive distortion patterns, builds per-period trend series with spike
// and correlation analysis, and discovers sub-topics within each
// distortion.
package cogdist

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/cogdist/internal/logging"
	"github.com/cognicore/cogdist/pkg/cogdist/cooccur"
	"github.com/cognicore/cogdist/pkg/cogdist/corpus"
	"github.com/cognicore/cogdist/pkg/cogdist/correlation"
	"github.com/cognicore/cogdist/pkg/cogdist/detect"
	"github.com/cognicore/cogdist/pkg/cogdist/embed"
	"github.com/cognicore/cogdist/pkg/cogdist/signals"
	"github.com/cognicore/cogdist/pkg/cogdist/store"
	"github.com/cognicore/cogdist/pkg/cogdist/timeseries"
	"github.com/cognicore/cogdist/pkg/cogdist/topics"
)

// Mode selects which stages a run executes.
type Mode string

const (
	ModeTrends Mode = "all"         // detection, trends, correlations
	ModeTopics Mode = "topic_model" // detection, topic discovery
	ModeFull   Mode = "full"        // everything
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeTrends, ModeTopics, ModeFull:
		return m, nil
	case "":
		return ModeTrends, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want all, topic_model or full)", s)
	}
}

func (m Mode) trends() bool { return m == ModeTrends || m == ModeFull }
func (m Mode) topics() bool { return m == ModeTopics || m == ModeFull }

// Engine runs the analytics stages. It is safe to reuse across runs.
type Engine struct {
	detector     *detect.Detector
	embedder     embed.Embedder
	store        store.Store
	period       timeseries.Period
	spikeWindow  int
	reference    correlation.Reference
	search       topics.SearchConfig
	topicWorkers int
}

// Options configures an Engine. Detector is required; Embedder is required
// for topic discovery; Store is optional. A zero Reference leaves every
// segment unbounded, so each covers the whole range.
type Options struct {
	Detector     *detect.Detector
	Embedder     embed.Embedder
	Store        store.Store
	Period       timeseries.Period
	SpikeWindow  int
	Reference    correlation.Reference
	Search       topics.SearchConfig
	TopicWorkers int // distortions clustered at once; 0 uses GOMAXPROCS
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Detector == nil {
		return nil, errors.New("cogdist: detector is required")
	}
	if opts.Period == "" {
		opts.Period = timeseries.Week
	}
	if opts.SpikeWindow < 1 {
		opts.SpikeWindow = signals.DefaultSpikeWindow
	}
	if opts.Search == (topics.SearchConfig{}) {
		opts.Search = topics.DefaultSearchConfig()
	}
	if err := opts.Search.Validate(); err != nil {
		return nil, fmt.Errorf("cogdist: %w", err)
	}
	if opts.TopicWorkers <= 0 {
		opts.TopicWorkers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		detector:     opts.Detector,
		embedder:     opts.Embedder,
		store:        opts.Store,
		period:       opts.Period,
		spikeWindow:  opts.SpikeWindow,
		reference:    opts.Reference,
		search:       opts.Search,
		topicWorkers: opts.TopicWorkers,
	}, nil
}

// Close releases the store, if any.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Detection is the labeled sentence table.
type Detection struct {
	Labeled []corpus.LabeledSentence
	Labels  []string
	Counts  map[string]int
}

// Detect labels every sentence. Undated sentences are kept.
func (e *Engine) Detect(sentences []corpus.Sentence) *Detection {
	labeled, labels := e.detector.Detect(sentences)
	counts := detect.Counts(labeled, labels)
	logging.Info("detection complete", "sentences", len(labeled), "labels", len(labels))
	for _, l := range labels {
		logging.Debug("distortion count", "label", l, "sentences", counts[l])
	}
	return &Detection{Labeled: labeled, Labels: labels, Counts: counts}
}

// Trends holds the temporal analytics of a detection.
type Trends struct {
	Aggregate     timeseries.Result
	Spikes        map[string]timeseries.Series // computed over the normalized series
	MovingAverage map[string]timeseries.Series // over the normalized series
	Correlations  []correlation.Result
	Cooccurrence  []cooccur.Stat
}

// SeriesByKind returns the series correlation runs over.
func (t *Trends) SeriesByKind() map[correlation.Kind]map[string]timeseries.Series {
	return map[correlation.Kind]map[string]timeseries.Series{
		correlation.Raw:        t.Aggregate.Raw(),
		correlation.Normalized: t.Aggregate.Normalized(),
		correlation.Spike:      t.Spikes,
	}
}

// Trends aggregates, filters spikes and correlates every segment and series
// kind.
func (e *Engine) Trends(det *Detection) *Trends {
	agg := timeseries.Aggregate(det.Labeled, det.Labels, e.period)
	normalized := agg.Normalized()

	t := &Trends{
		Aggregate:     agg,
		Spikes:        signals.SpikesByLabel(normalized, e.spikeWindow),
		MovingAverage: make(map[string]timeseries.Series, len(normalized)),
	}
	for label, s := range normalized {
		t.MovingAverage[label] = signals.MovingAverage(s, e.spikeWindow)
	}

	t.Correlations = correlation.AnalyzeSegments(t.SeriesByKind(), det.Labels, e.reference)
	for _, r := range t.Correlations {
		switch {
		case r.NoData():
			logging.Info("no data for segment", "segment", r.Segment, "kind", r.Kind)
		case r.Err != nil:
			logging.Warn("correlation failed", "segment", r.Segment, "kind", r.Kind, "err", r.Err)
		case r.Matrix.Degenerate() != nil:
			logging.Debug("undefined correlations", "segment", r.Segment, "kind", r.Kind, "err", r.Matrix.Degenerate())
		}
	}

	counter := cooccur.NewCounter()
	counter.AddLabeled(det.Labeled, det.Labels)
	t.Cooccurrence = cooccur.NewCalculator(cooccur.DefaultEpsilon).Table(counter, det.Labels)

	logging.Info("trends complete", "periods", len(agg.Periods()), "basis", agg.Basis, "undated", agg.Undated)
	return t
}

// TopicOutcome is the topic discovery result of one distortion. Exactly one
// of Result and Err is set.
type TopicOutcome struct {
	Label   string
	Indices []int    // positions of the clustered sentences in Detection.Labeled
	Texts   []string // clustered sentence texts, aligned with Indices
	Result  *topics.Result
	Err     error
}

// Insufficient reports whether the distortion had too little data.
func (o TopicOutcome) Insufficient() bool {
	var ide *topics.InsufficientDataError
	return errors.As(o.Err, &ide)
}

// Topics clusters the sentences of every distortion independently and
// concurrently. A failure in one distortion is recorded in its outcome and
// does not affect the others; only context cancellation aborts the call.
// Outcomes follow label order.
func (e *Engine) Topics(ctx context.Context, det *Detection) ([]TopicOutcome, error) {
	if e.embedder == nil {
		return nil, errors.New("cogdist: topic discovery needs an embedder")
	}
	outcomes := make([]TopicOutcome, len(det.Labels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.topicWorkers)
	for i, label := range det.Labels {
		outcomes[i].Label = label
		for idx, s := range det.Labeled {
			if s.Flags[label] {
				outcomes[i].Indices = append(outcomes[i].Indices, idx)
				outcomes[i].Texts = append(outcomes[i].Texts, s.Text)
			}
		}

		g.Go(func() error {
			out := &outcomes[i]
			res, err := topics.Cluster(gctx, out.Texts, e.embedder, e.search)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			out.Result, out.Err = res, err
			switch {
			case err == nil:
				logging.Info("topics discovered", "label", label, "k", res.K, "score", res.Score)
			case out.Insufficient():
				logging.Warn("skipping topic discovery", "label", label, "err", err)
			default:
				out.Result = nil
				logging.Error("topic discovery failed", "label", label, "err", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
