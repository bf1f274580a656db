package correlation

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cognicore/cogdist/pkg/cogdist/timeseries"
)

var week0 = time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC)

func weekly(values ...float64) timeseries.Series {
	s := make(timeseries.Series, len(values))
	for i, v := range values {
		s[i] = timeseries.Point{Start: week0.AddDate(0, 0, 7*i), Value: v}
	}
	return s
}

func TestCorrelateDiagonalAndSymmetry(t *testing.T) {
	series := map[string]timeseries.Series{
		"A": weekly(1, 2, 3, 4, 5, 7),
		"B": weekly(2, 4, 6, 8, 10, 14),
		"C": weekly(5, 3, 4, 1, 2, 0),
	}
	labels := []string{"A", "B", "C"}

	m, err := Correlate(series, labels, Window{})
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if m.Degenerate() != nil {
		t.Errorf("unexpected degenerate series: %v", m.Degenerate())
	}

	for i := 0; i < m.Size(); i++ {
		if m.AtIndex(i, i) != 1 {
			t.Errorf("diagonal %d = %v, want 1", i, m.AtIndex(i, i))
		}
		for j := 0; j < m.Size(); j++ {
			if math.Abs(m.AtIndex(i, j)-m.AtIndex(j, i)) > 1e-12 {
				t.Errorf("matrix not symmetric at (%d,%d)", i, j)
			}
			if v := m.AtIndex(i, j); v < -1 || v > 1 {
				t.Errorf("coefficient out of range: %v", v)
			}
		}
	}

	if ab, ok := m.At("A", "B"); !ok || math.Abs(ab-1) > 1e-9 {
		t.Errorf("A,B should be perfectly correlated, got %v", ab)
	}
	if ac, _ := m.At("A", "C"); ac >= 0 {
		t.Errorf("A,C should be negatively correlated, got %v", ac)
	}
}

func TestCorrelateZeroVarianceIsUndefined(t *testing.T) {
	series := map[string]timeseries.Series{
		"A":    weekly(1, 2, 3, 4),
		"Flat": weekly(0, 0, 0, 0),
	}
	m, err := Correlate(series, []string{"A", "Flat"}, Window{})
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}

	if _, ok := m.At("Flat", "Flat"); ok {
		t.Error("diagonal of zero-variance series must be undefined")
	}
	if v, ok := m.At("A", "Flat"); ok || !math.IsNaN(v) {
		t.Errorf("pair with flat series must be NaN, got %v", v)
	}
	if v, ok := m.At("A", "A"); !ok || v != 1 {
		t.Errorf("A diagonal = %v", v)
	}

	var degen *DegenerateSeriesError
	if !errors.As(m.Degenerate(), &degen) || len(degen.Labels) != 1 || degen.Labels[0] != "Flat" {
		t.Errorf("Degenerate() = %v", m.Degenerate())
	}
}

func TestCorrelateEmptyWindowIsNoResult(t *testing.T) {
	series := map[string]timeseries.Series{"A": weekly(1, 2, 3), "B": weekly(3, 2, 1)}

	far := Window{Start: week0.AddDate(5, 0, 0)}
	m, err := Correlate(series, []string{"A", "B"}, far)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if m != nil {
		t.Error("empty window must not produce a matrix")
	}

	if _, err := Correlate(series, []string{"Missing"}, Window{}); !errors.Is(err, ErrNoData) {
		t.Errorf("unknown labels should yield ErrNoData, got %v", err)
	}
}

func TestCorrelateWindowAndAlignment(t *testing.T) {
	a := weekly(1, 2, 3, 4, 5, 6)
	b := weekly(6, 5, 4, 3, 2, 1)
	// Drop B's third period so only the shared periods are compared.
	b = append(b[:2:2], b[3:]...)

	w := Window{Start: week0.AddDate(0, 0, 7), End: week0.AddDate(0, 0, 7*5)}
	m, err := Correlate(map[string]timeseries.Series{"A": a, "B": b}, []string{"A", "B"}, w)
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	// Window keeps weeks 1..4; B lacks week 2 -> weeks 1,3,4.
	if len(m.Periods) != 3 {
		t.Fatalf("aligned periods = %d, want 3", len(m.Periods))
	}
	if v, _ := m.At("A", "B"); math.Abs(v+1) > 1e-9 {
		t.Errorf("A,B should be -1, got %v", v)
	}
}

func TestAnalyzeSegments(t *testing.T) {
	ref := Reference{
		Start: week0.AddDate(0, 0, 7*3),
		End:   week0.AddDate(0, 0, 7*6),
	}
	if err := ref.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	// Six weeks: 0..2 before, 3..5 during, nothing after.
	byKind := map[Kind]map[string]timeseries.Series{
		Raw:        {"A": weekly(1, 2, 3, 1, 5, 2), "B": weekly(2, 1, 3, 2, 4, 1)},
		Normalized: {"A": weekly(1, 2, 3, 1, 5, 2), "B": weekly(2, 1, 3, 2, 4, 1)},
	}

	results := AnalyzeSegments(byKind, []string{"A", "B"}, ref)
	if len(results) != 6 {
		t.Fatalf("expected 3 segments x 2 kinds, got %d", len(results))
	}

	for _, r := range results {
		switch r.Segment {
		case Before, During:
			if r.Err != nil || r.Matrix == nil {
				t.Errorf("%s/%s: unexpected %v", r.Segment, r.Kind, r.Err)
				continue
			}
			if len(r.Matrix.Periods) != 3 {
				t.Errorf("%s/%s: %d periods, want 3", r.Segment, r.Kind, len(r.Matrix.Periods))
			}
		case After:
			if !r.NoData() || r.Matrix != nil {
				t.Errorf("after segment should have no data, got %+v", r)
			}
		}
	}
	if results[0].Segment != Before || results[0].Kind != Raw {
		t.Errorf("results should be ordered by segment then kind, first = %s/%s", results[0].Segment, results[0].Kind)
	}
}

func TestReferenceValidate(t *testing.T) {
	if err := (Reference{Start: week0, End: week0}).Validate(); err == nil {
		t.Error("empty interval should be rejected")
	}
	if err := (Reference{Start: week0}).Validate(); err == nil {
		t.Error("missing end should be rejected")
	}
}

func TestReferenceWindowBoundaries(t *testing.T) {
	ref := Reference{Start: week0.AddDate(0, 0, 7), End: week0.AddDate(0, 0, 14)}
	s := weekly(1, 2, 3)

	before := s.Window(ref.Window(Before).Start, ref.Window(Before).End)
	during := s.Window(ref.Window(During).Start, ref.Window(During).End)
	after := s.Window(ref.Window(After).Start, ref.Window(After).End)

	if len(before) != 1 || len(during) != 1 || len(after) != 1 {
		t.Fatalf("partition sizes = %d/%d/%d, want 1/1/1", len(before), len(during), len(after))
	}
	if during[0].Value != 2 || after[0].Value != 3 {
		t.Error("start belongs to during, end belongs to after")
	}
}
