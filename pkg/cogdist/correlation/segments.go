package correlation

import (
	"errors"
	"fmt"
	"time"

	"github.com/cognicore/cogdist/pkg/cogdist/timeseries"
)

// Segment is one part of the fixed three-way partition around a reference
// interval.
type Segment string

const (
	Before Segment = "before" // period start < reference start
	During Segment = "during" // reference start <= period start < reference end
	After  Segment = "after"  // period start >= reference end
)

// Segments returns the partition in chronological order.
func Segments() []Segment {
	return []Segment{Before, During, After}
}

// Kind names which series a matrix was computed from.
type Kind string

const (
	Raw        Kind = "raw"
	Normalized Kind = "normalized"
	Spike      Kind = "spike"
)

// Kinds returns every series kind in reporting order.
func Kinds() []Kind {
	return []Kind{Raw, Normalized, Spike}
}

// Reference is the configured interval the segments are cut around.
type Reference struct {
	Start time.Time
	End   time.Time
}

// Validate checks that the interval is non-empty.
func (r Reference) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("reference interval needs both start and end")
	}
	if !r.End.After(r.Start) {
		return fmt.Errorf("reference end %s is not after start %s", r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly))
	}
	return nil
}

// Window returns the time window of seg.
func (r Reference) Window(seg Segment) Window {
	switch seg {
	case Before:
		return Window{End: r.Start}
	case During:
		return Window{Start: r.Start, End: r.End}
	default:
		return Window{Start: r.End}
	}
}

// Result is the outcome for one (segment, kind) combination. Matrix is nil
// when Err is set; Err is ErrNoData for an empty segment.
type Result struct {
	Segment Segment
	Kind    Kind
	Matrix  *Matrix
	Err     error
}

// NoData reports whether the segment held no aligned periods.
func (r Result) NoData() bool {
	return errors.Is(r.Err, ErrNoData)
}

// AnalyzeSegments correlates every series kind in every segment.
// Results are ordered by segment, then by kind; kinds missing from
// byKind are skipped.
func AnalyzeSegments(byKind map[Kind]map[string]timeseries.Series, labels []string, ref Reference) []Result {
	var results []Result
	for _, seg := range Segments() {
		w := ref.Window(seg)
		for _, kind := range Kinds() {
			series, ok := byKind[kind]
			if !ok {
				continue
			}
			m, err := Correlate(series, labels, w)
			results = append(results, Result{Segment: seg, Kind: kind, Matrix: m, Err: err})
		}
	}
	return results
}
