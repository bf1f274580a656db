package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/cogdist/pkg/cogdist/store"
)

// Store is an in-memory implementation of store.Store for tests and
// one-shot runs that do not need a database file.
type Store struct {
	mu           sync.RWMutex
	runs         map[string]store.Run
	sentences    map[string][]store.Sentence
	series       map[string]map[seriesKey]store.SeriesPoint
	seriesOrder  map[string][]seriesKey
	correlations map[string][]store.CorrelationCell
	cooccurrence map[string][]store.PairStat
	topics       map[string]map[string]store.TopicReport
}

type seriesKey struct {
	kind, label string
	start       time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		runs:         make(map[string]store.Run),
		sentences:    make(map[string][]store.Sentence),
		series:       make(map[string]map[seriesKey]store.SeriesPoint),
		seriesOrder:  make(map[string][]seriesKey),
		correlations: make(map[string][]store.CorrelationCell),
		cooccurrence: make(map[string][]store.PairStat),
		topics:       make(map[string]map[string]store.TopicReport),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// CreateRun implements store.Store.
func (s *Store) CreateRun(ctx context.Context, r store.Run) (store.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	if r.ID == "" {
		r.ID = store.NewRunID(r.StartedAt)
	}
	s.runs[r.ID] = r
	return r, nil
}

// GetRun implements store.Store.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	return r, ok, nil
}

// ListRuns implements store.Store.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	out := make([]store.Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveSentences implements store.Store.
func (s *Store) SaveSentences(ctx context.Context, runID string, rows []store.Sentence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]store.Sentence, len(rows))
	for i, r := range rows {
		r.Labels = append([]string(nil), r.Labels...)
		cp[i] = r
	}
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Index < cp[j].Index })
	s.sentences[runID] = cp
	return nil
}

// Sentences implements store.Store.
func (s *Store) Sentences(ctx context.Context, runID string) ([]store.Sentence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Sentence(nil), s.sentences[runID]...), nil
}

// SaveSeries implements store.Store.
func (s *Store) SaveSeries(ctx context.Context, runID string, points []store.SeriesPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.series[runID]
	if m == nil {
		m = make(map[seriesKey]store.SeriesPoint)
		s.series[runID] = m
	}
	for _, p := range points {
		k := seriesKey{kind: p.Kind, label: p.Label, start: p.Start.UTC()}
		if _, ok := m[k]; !ok {
			s.seriesOrder[runID] = append(s.seriesOrder[runID], k)
		}
		m[k] = p
	}
	return nil
}

// Series implements store.Store, ordered by label then period.
func (s *Store) Series(ctx context.Context, runID, kind string) ([]store.SeriesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.SeriesPoint
	for _, k := range s.seriesOrder[runID] {
		if k.kind == kind {
			out = append(out, s.series[runID][k])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

// SaveCorrelations implements store.Store. Cells of a (segment, kind)
// matrix replace any earlier cells of the same matrix.
func (s *Store) SaveCorrelations(ctx context.Context, runID string, cells []store.CorrelationCell) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	type matrixKey struct{ segment, kind string }
	incoming := make(map[matrixKey]bool)
	for _, c := range cells {
		incoming[matrixKey{c.Segment, c.Kind}] = true
	}
	kept := s.correlations[runID][:0:0]
	for _, c := range s.correlations[runID] {
		if !incoming[matrixKey{c.Segment, c.Kind}] {
			kept = append(kept, c)
		}
	}
	s.correlations[runID] = append(kept, cells...)
	return nil
}

// Correlations implements store.Store.
func (s *Store) Correlations(ctx context.Context, runID, segment, kind string) ([]store.CorrelationCell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.CorrelationCell
	for _, c := range s.correlations[runID] {
		if c.Segment == segment && c.Kind == kind {
			out = append(out, c)
		}
	}
	return out, nil
}

// SaveCooccurrence implements store.Store.
func (s *Store) SaveCooccurrence(ctx context.Context, runID string, stats []store.PairStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooccurrence[runID] = append([]store.PairStat(nil), stats...)
	return nil
}

// Cooccurrence implements store.Store.
func (s *Store) Cooccurrence(ctx context.Context, runID string) ([]store.PairStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.PairStat(nil), s.cooccurrence[runID]...), nil
}

// SaveTopics implements store.Store.
func (s *Store) SaveTopics(ctx context.Context, runID string, report store.TopicReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.topics[runID] == nil {
		s.topics[runID] = make(map[string]store.TopicReport)
	}
	report.Trials = append([]store.Trial(nil), report.Trials...)
	report.Members = append([]store.TopicMember(nil), report.Members...)
	s.topics[runID][report.Label] = report
	return nil
}

// Topics implements store.Store, ordered by label.
func (s *Store) Topics(ctx context.Context, runID string) ([]store.TopicReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.TopicReport, 0, len(s.topics[runID]))
	for _, r := range s.topics[runID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

var _ store.Store = (*Store)(nil)
