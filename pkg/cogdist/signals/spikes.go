package signals

import (
	"gonum.org/v1/gonum/stat"

	"github.com/cognicore/cogdist/pkg/cogdist/timeseries"
)

// DefaultSpikeWindow is the number of trailing periods a spike is measured against.
const DefaultSpikeWindow = 4

// Spikes keeps only the points that stand out from their trailing window.
//
// For position i >= window, the mean and population standard deviation of
// points i-window..i-1 are computed; the current point never contributes to
// its own baseline. The point is a spike when value - mean > stddev and then
// keeps its value; every other point, including the first window points that
// lack history, becomes 0. A constant window has stddev 0, so any value above
// it is a spike.
//
// The output has the same length and period index as the input.
// Windows below 1 use DefaultSpikeWindow.
func Spikes(series timeseries.Series, window int) timeseries.Series {
	if window < 1 {
		window = DefaultSpikeWindow
	}
	values := series.Values()
	out := make(timeseries.Series, len(series))
	for i, p := range series {
		out[i] = timeseries.Point{Start: p.Start}
		if i < window {
			continue
		}
		if IsSpike(p.Value, values[i-window:i]) {
			out[i].Value = p.Value
		}
	}
	return out
}

// IsSpike reports whether value exceeds the mean of history by more than
// the population standard deviation of history.
func IsSpike(value float64, history []float64) bool {
	if len(history) == 0 {
		return false
	}
	mean, std := stat.PopMeanStdDev(history, nil)
	return value-mean > std
}

// SpikesByLabel applies Spikes to every series.
func SpikesByLabel(series map[string]timeseries.Series, window int) map[string]timeseries.Series {
	out := make(map[string]timeseries.Series, len(series))
	for label, s := range series {
		out[label] = Spikes(s, window)
	}
	return out
}

// MovingAverage returns the trailing mean over window points, current point
// included. The first window-1 periods have no average and are omitted, so
// the result starts at the window-th period.
func MovingAverage(series timeseries.Series, window int) timeseries.Series {
	if window < 1 {
		window = DefaultSpikeWindow
	}
	if len(series) < window {
		return nil
	}
	values := series.Values()
	out := make(timeseries.Series, 0, len(series)-window+1)
	for i := window - 1; i < len(series); i++ {
		out = append(out, timeseries.Point{
			Start: series[i].Start,
			Value: stat.Mean(values[i-window+1:i+1], nil),
		})
	}
	return out
}
