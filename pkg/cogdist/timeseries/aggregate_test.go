package timeseries

import (
	"testing"
	"time"

	"github.com/cognicore/cogdist/internal/logging"
	"github.com/cognicore/cogdist/pkg/cogdist/corpus"
)

func init() {
	logging.Discard()
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func sentence(ts time.Time, author string, flags map[string]bool) corpus.LabeledSentence {
	return corpus.LabeledSentence{
		Sentence: corpus.Sentence{Text: "x", Timestamp: ts, Author: author},
		Flags:    flags,
	}
}

func TestPeriodStart(t *testing.T) {
	tests := []struct {
		period Period
		in     time.Time
		want   time.Time
	}{
		{Week, date(2021, 3, 3), time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)}, // Wednesday
		{Week, date(2021, 3, 1), time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)}, // Monday
		{Week, date(2021, 3, 7), time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)}, // Sunday
		{Week, date(2021, 3, 8), time.Date(2021, 3, 8, 0, 0, 0, 0, time.UTC)}, // next Monday
		{Day, date(2021, 3, 3), time.Date(2021, 3, 3, 0, 0, 0, 0, time.UTC)},
		{Month, date(2021, 3, 31), time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := tt.period.Start(tt.in); !got.Equal(tt.want) {
			t.Errorf("%s.Start(%s) = %s, want %s", tt.period, tt.in, got, tt.want)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	if p, err := ParsePeriod(""); err != nil || p != Week {
		t.Errorf("empty should default to week, got %q %v", p, err)
	}
	if p, err := ParsePeriod(" Month "); err != nil || p != Month {
		t.Errorf("ParsePeriod(Month) = %q %v", p, err)
	}
	if _, err := ParsePeriod("fortnight"); err == nil {
		t.Error("expected error for unknown period")
	}
}

func TestAggregateGapsAndNormalization(t *testing.T) {
	labels := []string{"A", "B"}
	labeled := []corpus.LabeledSentence{
		// week of 2021-03-01: authors u1,u2; A twice
		sentence(date(2021, 3, 1), "u1", map[string]bool{"A": true, "B": false}),
		sentence(date(2021, 3, 2), "u1", map[string]bool{"A": true, "B": true}),
		sentence(date(2021, 3, 3), "u2", map[string]bool{"A": false, "B": false}),
		// week of 2021-03-08: empty gap
		// week of 2021-03-15: one author, B once
		sentence(date(2021, 3, 16), "u3", map[string]bool{"A": false, "B": true}),
		// undated: kept out of temporal analysis
		sentence(time.Time{}, "u4", map[string]bool{"A": true, "B": true}),
	}

	res := Aggregate(labeled, labels, Week)

	if res.Basis != BasisAuthors {
		t.Errorf("Basis = %s, want authors", res.Basis)
	}
	if res.Undated != 1 {
		t.Errorf("Undated = %d, want 1", res.Undated)
	}
	if got := len(res.Periods()); got != 3 {
		t.Fatalf("expected 3 periods (gap included), got %d", got)
	}

	a := res.ByLabel["A"]
	wantRaw := []float64{2, 0, 0}
	wantNorm := []float64{2.0 / 2.0 * 100, 0, 0}
	for i := range wantRaw {
		if a.Raw[i].Value != wantRaw[i] {
			t.Errorf("A raw[%d] = %v, want %v", i, a.Raw[i].Value, wantRaw[i])
		}
		if a.Normalized[i].Value != wantNorm[i] {
			t.Errorf("A normalized[%d] = %v, want %v", i, a.Normalized[i].Value, wantNorm[i])
		}
	}

	b := res.ByLabel["B"]
	if b.Normalized[2].Value != 100 {
		t.Errorf("B normalized week 3 = %v, want 100", b.Normalized[2].Value)
	}
	if res.Denominators[1].Value != 0 || b.Normalized[1].Value != 0 {
		t.Error("empty period should have zero denominator and zero rate")
	}
}

func TestAggregateConservesCounts(t *testing.T) {
	labels := []string{"A"}
	var labeled []corpus.LabeledSentence
	flagged := 0
	for i := 0; i < 60; i++ {
		on := i%4 == 0
		if on {
			flagged++
		}
		labeled = append(labeled, sentence(date(2021, 1, 1).AddDate(0, 0, i), "u", map[string]bool{"A": on}))
	}

	res := Aggregate(labeled, labels, Week)
	if got := res.ByLabel["A"].Raw.Sum(); got != float64(flagged) {
		t.Errorf("raw sum = %v, want %d", got, flagged)
	}
	if got := res.Totals.Sum(); got != 60 {
		t.Errorf("totals sum = %v, want 60", got)
	}
	for _, p := range res.ByLabel["A"].Normalized {
		if p.Value < 0 {
			t.Errorf("negative rate at %s", p.Start)
		}
	}
}

func TestAggregateFallbackToSentenceCount(t *testing.T) {
	labeled := []corpus.LabeledSentence{
		sentence(date(2021, 3, 1), "u1", map[string]bool{"A": true}),
		sentence(date(2021, 3, 2), "", map[string]bool{"A": false}),
		sentence(date(2021, 3, 3), "", map[string]bool{"A": false}),
		sentence(date(2021, 3, 4), "u2", map[string]bool{"A": false}),
	}

	res := Aggregate(labeled, []string{"A"}, Week)
	if res.Basis != BasisSentences {
		t.Fatalf("Basis = %s, want sentences", res.Basis)
	}
	if got := res.ByLabel["A"].Normalized[0].Value; got != 1.0/4.0*100 {
		t.Errorf("normalized = %v, want 25", got)
	}
}

func TestAggregateNoDatedSentences(t *testing.T) {
	labeled := []corpus.LabeledSentence{sentence(time.Time{}, "u", map[string]bool{"A": true})}
	res := Aggregate(labeled, []string{"A"}, Week)
	if len(res.ByLabel["A"].Raw) != 0 || res.Undated != 1 {
		t.Errorf("expected empty series, got %+v", res)
	}
}

func TestNormalizedRate(t *testing.T) {
	if NormalizedRate(0, 0) != 0 || NormalizedRate(0, 5) != 0 {
		t.Error("zero raw must give zero rate")
	}
	if NormalizedRate(2, 0) != 200 {
		t.Errorf("zero denominator should be treated as 1, got %v", NormalizedRate(2, 0))
	}
	raw, denom := 3.0, 7.0
	if got := NormalizedRate(raw, denom); got != raw/denom*100 {
		t.Errorf("NormalizedRate(3,7) = %v", got)
	}
}

func TestSeriesWindow(t *testing.T) {
	s := Series{
		{Start: date(2021, 1, 1), Value: 1},
		{Start: date(2021, 1, 8), Value: 2},
		{Start: date(2021, 1, 15), Value: 3},
	}
	if got := s.Window(date(2021, 1, 8), time.Time{}); len(got) != 2 || got[0].Value != 2 {
		t.Errorf("lower-bounded window = %v", got)
	}
	if got := s.Window(time.Time{}, date(2021, 1, 8)); len(got) != 1 || got[0].Value != 1 {
		t.Errorf("upper bound must be exclusive: %v", got)
	}
	if got := s.Window(date(2022, 1, 1), date(2022, 2, 1)); len(got) != 0 {
		t.Errorf("out-of-range window = %v", got)
	}
}
