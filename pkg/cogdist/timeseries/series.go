package timeseries

import "time"

// Point is one period of a series.
type Point struct {
	Start time.Time
	Value float64
}

// Series is ordered ascending by Start, one point per period.
type Series []Point

// Values returns the point values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Starts returns the period starts in order.
func (s Series) Starts() []time.Time {
	out := make([]time.Time, len(s))
	for i, p := range s {
		out[i] = p.Start
	}
	return out
}

// Sum adds all values.
func (s Series) Sum() float64 {
	var total float64
	for _, p := range s {
		total += p.Value
	}
	return total
}

// Window keeps the points with start in [from, to). A zero bound is open.
func (s Series) Window(from, to time.Time) Series {
	var out Series
	for _, p := range s {
		if !from.IsZero() && p.Start.Before(from) {
			continue
		}
		if !to.IsZero() && !p.Start.Before(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}
