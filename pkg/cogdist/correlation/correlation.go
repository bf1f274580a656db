// Package correlation computes pairwise Pearson correlation between
// distortion series restricted to a time window.
package correlation

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/cognicore/cogdist/pkg/cogdist/timeseries"
)

// ErrNoData means the window held no aligned periods. It is distinct from a
// matrix of zero correlations.
var ErrNoData = errors.New("correlation: no data in window")

// DegenerateSeriesError lists labels whose series had zero variance in the
// window. Correlations involving them are undefined (NaN).
type DegenerateSeriesError struct {
	Labels []string
}

func (e *DegenerateSeriesError) Error() string {
	return fmt.Sprintf("correlation: zero-variance series: %s", strings.Join(e.Labels, ", "))
}

// Window restricts series to periods starting in [Start, End).
// A zero bound is open on that side.
type Window struct {
	Start time.Time
	End   time.Time
}

// Matrix is a symmetric label×label correlation matrix.
type Matrix struct {
	Labels  []string
	Periods []time.Time // aligned periods the coefficients were computed over

	values     *mat.SymDense
	index      map[string]int
	degenerate []string
}

// At returns the coefficient for two labels and whether it is defined.
func (m *Matrix) At(a, b string) (float64, bool) {
	i, okA := m.index[a]
	j, okB := m.index[b]
	if !okA || !okB {
		return math.NaN(), false
	}
	v := m.values.At(i, j)
	return v, !math.IsNaN(v)
}

// AtIndex returns the coefficient at row i, column j (NaN if undefined).
func (m *Matrix) AtIndex(i, j int) float64 {
	return m.values.At(i, j)
}

// Size returns the number of labels on each axis.
func (m *Matrix) Size() int { return len(m.Labels) }

// Rows returns the matrix as a dense row-major table.
func (m *Matrix) Rows() [][]float64 {
	n := len(m.Labels)
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			rows[i][j] = m.values.At(i, j)
		}
	}
	return rows
}

// Degenerate returns a *DegenerateSeriesError when any series had zero
// variance, nil otherwise.
func (m *Matrix) Degenerate() error {
	if len(m.degenerate) == 0 {
		return nil
	}
	return &DegenerateSeriesError{Labels: append([]string(nil), m.degenerate...)}
}

// Correlate restricts every labeled series to w, aligns them on the periods
// present in all of them, and computes pairwise Pearson correlation.
//
// labels fixes the axis order; labels absent from series are skipped.
// Returns ErrNoData when nothing remains after windowing and alignment.
func Correlate(series map[string]timeseries.Series, labels []string, w Window) (*Matrix, error) {
	var present []string
	windowed := make(map[string]map[time.Time]float64, len(labels))
	for _, label := range labels {
		s, ok := series[label]
		if !ok {
			continue
		}
		byStart := make(map[time.Time]float64)
		for _, p := range s.Window(w.Start, w.End) {
			byStart[p.Start] = p.Value
		}
		present = append(present, label)
		windowed[label] = byStart
	}
	if len(present) == 0 {
		return nil, ErrNoData
	}

	periods := alignedPeriods(series[present[0]].Window(w.Start, w.End), present, windowed)
	if len(periods) == 0 {
		return nil, ErrNoData
	}

	n := len(present)
	cols := make([][]float64, n)
	for i, label := range present {
		cols[i] = make([]float64, len(periods))
		for k, start := range periods {
			cols[i][k] = windowed[label][start]
		}
	}

	m := &Matrix{
		Labels:  present,
		Periods: periods,
		values:  mat.NewSymDense(n, nil),
		index:   make(map[string]int, n),
	}

	flat := make([]bool, n)
	for i, label := range present {
		m.index[label] = i
		if _, std := stat.PopMeanStdDev(cols[i], nil); std == 0 || math.IsNaN(std) {
			flat[i] = true
			m.degenerate = append(m.degenerate, label)
		}
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			switch {
			case flat[i] || flat[j]:
				m.values.SetSym(i, j, math.NaN())
			case i == j:
				m.values.SetSym(i, j, 1)
			default:
				m.values.SetSym(i, j, clamp(stat.Correlation(cols[i], cols[j], nil)))
			}
		}
	}

	return m, nil
}

// alignedPeriods keeps the periods of the first series that every other
// series also has (inner join), in ascending order.
func alignedPeriods(first timeseries.Series, labels []string, windowed map[string]map[time.Time]float64) []time.Time {
	var out []time.Time
	for _, p := range first {
		shared := true
		for _, label := range labels {
			if _, ok := windowed[label][p.Start]; !ok {
				shared = false
				break
			}
		}
		if shared {
			out = append(out, p.Start)
		}
	}
	return out
}

func clamp(r float64) float64 {
	if r > 1 {
		return 1
	}
	if r < -1 {
		return -1
	}
	return r
}
