package signals

import (
	"math"
	"testing"
	"time"

	"github.com/cognicore/cogdist/pkg/cogdist/timeseries"
)

func weekly(values ...float64) timeseries.Series {
	start := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	s := make(timeseries.Series, len(values))
	for i, v := range values {
		s[i] = timeseries.Point{Start: start.AddDate(0, 0, 7*i), Value: v}
	}
	return s
}

func TestSpikes_ConstantWindowThenJump(t *testing.T) {
	got := Spikes(weekly(1, 1, 1, 1, 10), 4).Values()
	want := []float64{0, 0, 0, 0, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Spikes = %v, want %v", got, want)
		}
	}
}

func TestSpikes_ShorterThanWindowIsAllZero(t *testing.T) {
	for n := 0; n < 4; n++ {
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = float64(100 * (i + 1))
		}
		out := Spikes(weekly(vals...), 4)
		if len(out) != n {
			t.Fatalf("length changed: %d -> %d", n, len(out))
		}
		for _, p := range out {
			if p.Value != 0 {
				t.Errorf("n=%d: expected all zeros, got %v", n, out.Values())
			}
		}
	}
}

func TestSpikes_ConstantSeriesHasNoSpikes(t *testing.T) {
	for _, p := range Spikes(weekly(5, 5, 5, 5, 5, 5), 4) {
		if p.Value != 0 {
			t.Errorf("constant series produced spike at %s", p.Start)
		}
	}
}

func TestSpikes_UsesOnlyPrecedingPoints(t *testing.T) {
	// History 0,0,0,8: mean 2, population stddev sqrt(12)≈3.46.
	// 6 - 2 = 4 > 3.46 -> spike; 5 - 2 = 3 -> not a spike.
	out := Spikes(weekly(0, 0, 0, 8, 6), 4).Values()
	if out[4] != 6 {
		t.Errorf("expected spike of 6, got %v", out)
	}
	out = Spikes(weekly(0, 0, 0, 8, 5), 4).Values()
	if out[4] != 0 {
		t.Errorf("expected no spike, got %v", out)
	}
	// A later large value must not retroactively change earlier outputs.
	a := Spikes(weekly(1, 1, 1, 1, 3, 0), 4).Values()
	b := Spikes(weekly(1, 1, 1, 1, 3, 1000), 4).Values()
	if a[4] != b[4] {
		t.Errorf("future data leaked into point 4: %v vs %v", a, b)
	}
}

func TestSpikes_PreservesIndex(t *testing.T) {
	in := weekly(1, 2, 3, 4, 5, 6)
	out := Spikes(in, 2)
	for i := range in {
		if !out[i].Start.Equal(in[i].Start) {
			t.Errorf("period %d moved: %s -> %s", i, in[i].Start, out[i].Start)
		}
	}
}

func TestSpikes_DefaultWindow(t *testing.T) {
	got := Spikes(weekly(1, 1, 1, 1, 10), 0).Values()
	if got[4] != 10 {
		t.Errorf("window 0 should default to %d: %v", DefaultSpikeWindow, got)
	}
}

func TestIsSpike(t *testing.T) {
	if IsSpike(10, nil) {
		t.Error("empty history cannot assert a spike")
	}
	if !IsSpike(2, []float64{1, 1}) {
		t.Error("value above constant history should be a spike")
	}
	if IsSpike(1, []float64{1, 1}) {
		t.Error("value equal to constant history is not a spike")
	}
}

func TestSpikesByLabel(t *testing.T) {
	out := SpikesByLabel(map[string]timeseries.Series{
		"A": weekly(1, 1, 1, 1, 10),
		"B": weekly(1, 1),
	}, 4)
	if out["A"].Values()[4] != 10 || len(out["B"]) != 2 {
		t.Errorf("SpikesByLabel = %v", out)
	}
}

func TestMovingAverage(t *testing.T) {
	ma := MovingAverage(weekly(1, 2, 3, 4, 5), 4)
	if len(ma) != 2 {
		t.Fatalf("expected 2 points, got %d", len(ma))
	}
	if math.Abs(ma[0].Value-2.5) > 1e-12 || math.Abs(ma[1].Value-3.5) > 1e-12 {
		t.Errorf("MovingAverage = %v", ma.Values())
	}
	if !ma[0].Start.Equal(weekly(1, 2, 3, 4)[3].Start) {
		t.Error("first average should be stamped with the 4th period")
	}
	if MovingAverage(weekly(1, 2), 4) != nil {
		t.Error("too-short series should have no averages")
	}
}
