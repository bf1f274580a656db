// Package store persists analysis runs: labeled sentences, series,
// correlation matrices, co-occurrence statistics and topic reports.
package store

import (
	"context"
	"time"
)

// Store is the persistence interface for analysis results.
type Store interface {
	Close() error

	// Runs
	CreateRun(ctx context.Context, r Run) (Run, error)
	GetRun(ctx context.Context, id string) (Run, bool, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Results of one run
	SaveSentences(ctx context.Context, runID string, rows []Sentence) error
	Sentences(ctx context.Context, runID string) ([]Sentence, error)
	SaveSeries(ctx context.Context, runID string, points []SeriesPoint) error
	Series(ctx context.Context, runID, kind string) ([]SeriesPoint, error)
	SaveCorrelations(ctx context.Context, runID string, cells []CorrelationCell) error
	Correlations(ctx context.Context, runID, segment, kind string) ([]CorrelationCell, error)
	SaveCooccurrence(ctx context.Context, runID string, stats []PairStat) error
	Cooccurrence(ctx context.Context, runID string) ([]PairStat, error)
	SaveTopics(ctx context.Context, runID string, report TopicReport) error
	Topics(ctx context.Context, runID string) ([]TopicReport, error)
}

// Run describes one invocation of the engine.
type Run struct {
	ID        string
	StartedAt time.Time
	Mode      string
	Sentences int
	Basis     string // denominator basis of the normalized series
	Config    string // YAML snapshot of the effective configuration
}

// Sentence is a labeled sentence row.
type Sentence struct {
	Index      int
	Text       string
	Timestamp  time.Time // zero when undated
	Author     string
	SourceID   int64
	SourceType string
	Labels     []string // labels flagged for the sentence, in lexicon order
}

// SeriesPoint is one period value of one label's series.
type SeriesPoint struct {
	Kind  string // raw, normalized, spike, moving_average
	Label string
	Start time.Time
	Value float64
}

// CorrelationCell is one coefficient of a segment matrix. Value is NaN when
// the coefficient is undefined.
type CorrelationCell struct {
	Segment string
	Kind    string
	A, B    string
	Value   float64
}

// PairStat is the co-occurrence summary of one label pair.
type PairStat struct {
	A, B   string
	CountA int64
	CountB int64
	Both   int64
	PMI    float64
	NPMI   float64
}

// TopicReport is the topic search outcome for one distortion. Error is set
// (and K is 0) when clustering was skipped or failed.
type TopicReport struct {
	Label   string
	K       int
	Score   float64 // sweep score that selected K
	Error   string
	Trials  []Trial
	Members []TopicMember
}

// Trial is one scored k of the search trace.
type Trial struct {
	K     int
	Score float64
}

// TopicMember assigns a sentence to a cluster.
type TopicMember struct {
	SentenceIndex int
	Text          string
	Cluster       int
}
