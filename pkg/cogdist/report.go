package cogdist

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cognicore/cogdist/internal/logging"
	"github.com/cognicore/cogdist/pkg/cogdist/cooccur"
	"github.com/cognicore/cogdist/pkg/cogdist/corpus"
	"github.com/cognicore/cogdist/pkg/cogdist/correlation"
	"github.com/cognicore/cogdist/pkg/cogdist/export"
	"github.com/cognicore/cogdist/pkg/cogdist/store"
	"github.com/cognicore/cogdist/pkg/cogdist/timeseries"
)

// Report collects everything one run produced. Trends is nil unless the
// mode includes trend analysis; Topics is nil unless it includes topic
// discovery.
type Report struct {
	Mode      Mode
	Detection *Detection
	Trends    *Trends
	Topics    []TopicOutcome
}

// Run detects distortions and executes the stages selected by mode.
func (e *Engine) Run(ctx context.Context, sentences []corpus.Sentence, mode Mode) (*Report, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ModeTrends
	}
	rep := &Report{Mode: mode, Detection: e.Detect(sentences)}

	if mode.trends() {
		rep.Trends = e.Trends(rep.Detection)
		for _, s := range cooccur.TopByNPMI(rep.Trends.Cooccurrence, 5) {
			logging.Debug("co-occurring distortions", "a", s.A, "b", s.B, "both", s.Both, "npmi", s.NPMI)
		}
	}
	if mode.topics() {
		outcomes, err := e.Topics(ctx, rep.Detection)
		if err != nil {
			return nil, err
		}
		rep.Topics = outcomes
	}
	return rep, nil
}

// Persist stores the report under a new run and returns it. config is an
// optional snapshot of the effective configuration.
func (e *Engine) Persist(ctx context.Context, rep *Report, config string) (store.Run, error) {
	if e.store == nil {
		return store.Run{}, fmt.Errorf("cogdist: no store configured")
	}
	now := time.Now().UTC()
	run := store.Run{
		ID:        store.NewRunID(now),
		StartedAt: now,
		Mode:      string(rep.Mode),
		Sentences: len(rep.Detection.Labeled),
		Config:    config,
	}
	if rep.Trends != nil {
		run.Basis = string(rep.Trends.Aggregate.Basis)
	}
	run, err := e.store.CreateRun(ctx, run)
	if err != nil {
		return store.Run{}, err
	}

	if err := e.store.SaveSentences(ctx, run.ID, sentenceRows(rep.Detection)); err != nil {
		return run, err
	}
	if t := rep.Trends; t != nil {
		if err := e.store.SaveSeries(ctx, run.ID, seriesRows(t)); err != nil {
			return run, err
		}
		if err := e.store.SaveCorrelations(ctx, run.ID, correlationRows(t.Correlations)); err != nil {
			return run, err
		}
		if err := e.store.SaveCooccurrence(ctx, run.ID, pairRows(t.Cooccurrence)); err != nil {
			return run, err
		}
	}
	for _, o := range rep.Topics {
		if err := e.store.SaveTopics(ctx, run.ID, topicReport(o)); err != nil {
			return run, err
		}
	}
	logging.Info("run persisted", "run", run.ID)
	return run, nil
}

func sentenceRows(det *Detection) []store.Sentence {
	rows := make([]store.Sentence, len(det.Labeled))
	for i, s := range det.Labeled {
		row := store.Sentence{
			Index:      i,
			Text:       s.Text,
			Timestamp:  s.Timestamp,
			Author:     s.Author,
			SourceID:   s.SourceID,
			SourceType: string(s.SourceType),
		}
		for _, l := range det.Labels {
			if s.Flags[l] {
				row.Labels = append(row.Labels, l)
			}
		}
		rows[i] = row
	}
	return rows
}

const movingAverageKind = "moving_average"

func seriesRows(t *Trends) []store.SeriesPoint {
	var rows []store.SeriesPoint
	add := func(kind string, byLabel map[string]timeseries.Series) {
		for _, label := range t.Aggregate.Labels {
			for _, p := range byLabel[label] {
				rows = append(rows, store.SeriesPoint{Kind: kind, Label: label, Start: p.Start, Value: p.Value})
			}
		}
	}
	for kind, byLabel := range t.SeriesByKind() {
		add(string(kind), byLabel)
	}
	add(movingAverageKind, t.MovingAverage)
	return rows
}

func correlationRows(results []correlation.Result) []store.CorrelationCell {
	var cells []store.CorrelationCell
	for _, r := range results {
		if r.Matrix == nil {
			continue
		}
		m := r.Matrix
		for i, a := range m.Labels {
			for j, b := range m.Labels {
				cells = append(cells, store.CorrelationCell{
					Segment: string(r.Segment),
					Kind:    string(r.Kind),
					A:       a,
					B:       b,
					Value:   m.AtIndex(i, j),
				})
			}
		}
	}
	return cells
}

func pairRows(stats []cooccur.Stat) []store.PairStat {
	rows := make([]store.PairStat, len(stats))
	for i, s := range stats {
		rows[i] = store.PairStat(s)
	}
	return rows
}

func topicReport(o TopicOutcome) store.TopicReport {
	rep := store.TopicReport{Label: o.Label}
	if o.Err != nil {
		rep.Error = o.Err.Error()
		return rep
	}
	rep.K = o.Result.K
	rep.Score = o.Result.Score
	for _, t := range o.Result.Trace {
		rep.Trials = append(rep.Trials, store.Trial{K: t.K, Score: t.Score})
	}
	for i, c := range o.Result.Assignments {
		rep.Members = append(rep.Members, store.TopicMember{
			SentenceIndex: o.Indices[i],
			Text:          o.Texts[i],
			Cluster:       c,
		})
	}
	return rep
}

// Export writes the report's tables into dir and returns the written paths.
func Export(dir *export.Dir, rep *Report) ([]string, error) {
	var written []string
	write := func(name string, fn func(io.Writer) error) error {
		path, err := dir.Write(name, fn)
		if err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	det := rep.Detection
	if err := write(export.DistortionDataFile, func(w io.Writer) error {
		return export.WriteLabeled(w, det.Labeled, det.Labels)
	}); err != nil {
		return written, err
	}

	if t := rep.Trends; t != nil {
		periods := t.Aggregate.Periods()
		for _, kind := range correlation.Kinds() {
			series := t.SeriesByKind()[kind]
			if err := write(export.SeriesFile(string(kind)), func(w io.Writer) error {
				return export.WriteSeries(w, periods, det.Labels, series)
			}); err != nil {
				return written, err
			}
		}
		if err := write(export.SeriesFile(movingAverageKind), func(w io.Writer) error {
			return export.WriteSeries(w, periods, det.Labels, t.MovingAverage)
		}); err != nil {
			return written, err
		}
		for _, r := range t.Correlations {
			if r.Matrix == nil {
				continue
			}
			if err := write(export.CorrelationFile(r.Segment, r.Kind), func(w io.Writer) error {
				return export.WriteMatrix(w, r.Matrix)
			}); err != nil {
				return written, err
			}
		}
		if err := write(export.CooccurrenceFile, func(w io.Writer) error {
			return export.WriteCooccurrence(w, t.Cooccurrence)
		}); err != nil {
			return written, err
		}
	}

	if rep.Topics != nil {
		var search []export.SearchRow
		for _, o := range rep.Topics {
			if o.Result == nil {
				continue
			}
			for _, tr := range o.Result.Trace {
				search = append(search, export.SearchRow{Label: o.Label, K: tr.K, Score: tr.Score, Chosen: tr.K == o.Result.K})
			}
			subset := make([]corpus.LabeledSentence, len(o.Indices))
			for i, idx := range o.Indices {
				subset[i] = det.Labeled[idx]
			}
			if err := write(export.TopicsFile(o.Label), func(w io.Writer) error {
				return export.WriteTopics(w, subset, o.Indices, det.Labels, o.Result)
			}); err != nil {
				return written, err
			}
		}
		if err := write(export.TopicSearchFile, func(w io.Writer) error {
			return export.WriteSearch(w, search)
		}); err != nil {
			return written, err
		}
	}
	return written, nil
}
