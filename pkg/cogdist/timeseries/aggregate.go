// Package timeseries buckets labeled sentences into calendar periods and
// produces raw and population-normalized series per distortion label.
package timeseries

import (
	"time"

	"github.com/cognicore/cogdist/internal/logging"
	"github.com/cognicore/cogdist/pkg/cogdist/corpus"
)

// Basis names what the normalization denominator counts.
type Basis string

const (
	// BasisAuthors divides by distinct active authors in the period.
	BasisAuthors Basis = "authors"
	// BasisSentences divides by all sentences in the period. It is an
	// approximation used when author identity is missing.
	BasisSentences Basis = "sentences"
)

// RatePerHundred scales normalized rates to "per 100 active posters".
const RatePerHundred = 100.0

// LabelSeries holds both series for one label.
type LabelSeries struct {
	Raw        Series
	Normalized Series
}

// Result is the aggregation output. Every series in it shares the same
// period index.
type Result struct {
	Period       Period
	Labels       []string
	Basis        Basis
	Denominators Series // active authors or sentences per period, before the 0→1 substitution
	Totals       Series // sentences per period
	ByLabel      map[string]LabelSeries
	Undated      int // sentences excluded for lacking a timestamp
}

// Periods returns the shared period index.
func (r Result) Periods() []time.Time {
	return r.Totals.Starts()
}

// Raw returns the raw series of every label.
func (r Result) Raw() map[string]Series {
	out := make(map[string]Series, len(r.ByLabel))
	for label, ls := range r.ByLabel {
		out[label] = ls.Raw
	}
	return out
}

// Normalized returns the normalized series of every label.
func (r Result) Normalized() map[string]Series {
	out := make(map[string]Series, len(r.ByLabel))
	for label, ls := range r.ByLabel {
		out[label] = ls.Normalized
	}
	return out
}

// Aggregate buckets dated sentences by period and counts, per label, the
// sentences flagged true.
//
// Normalized rate = raw / denominator * 100. The denominator is the number of
// distinct authors active in the period when every dated sentence has an
// author, otherwise the number of sentences (BasisSentences, logged). A zero
// denominator is replaced by 1: an empty period then reports raw*100, which is
// 0 because an empty period has no flagged sentences.
func Aggregate(labeled []corpus.LabeledSentence, labels []string, period Period) Result {
	if period == "" {
		period = Week
	}
	res := Result{
		Period:  period,
		Labels:  append([]string(nil), labels...),
		Basis:   BasisAuthors,
		ByLabel: make(map[string]LabelSeries, len(labels)),
	}

	var dated []corpus.LabeledSentence
	var first, last time.Time
	for _, ls := range labeled {
		if !ls.Dated() {
			res.Undated++
			continue
		}
		if ls.Author == "" {
			res.Basis = BasisSentences
		}
		if first.IsZero() || ls.Timestamp.Before(first) {
			first = ls.Timestamp
		}
		if last.IsZero() || ls.Timestamp.After(last) {
			last = ls.Timestamp
		}
		dated = append(dated, ls)
	}

	if len(dated) == 0 {
		for _, label := range labels {
			res.ByLabel[label] = LabelSeries{}
		}
		return res
	}
	if res.Basis == BasisSentences {
		logging.Warn("author identity unavailable, normalizing by sentence count", "sentences", len(dated))
	}

	starts := period.Range(first, last)
	slot := make(map[time.Time]int, len(starts))
	for i, s := range starts {
		slot[s] = i
	}

	totals := make([]float64, len(starts))
	authors := make([]map[string]struct{}, len(starts))
	raw := make(map[string][]float64, len(labels))
	for _, label := range labels {
		raw[label] = make([]float64, len(starts))
	}

	for _, ls := range dated {
		i := slot[period.Start(ls.Timestamp)]
		totals[i]++
		if ls.Author != "" {
			if authors[i] == nil {
				authors[i] = make(map[string]struct{})
			}
			authors[i][ls.Author] = struct{}{}
		}
		for _, label := range labels {
			if ls.Flags[label] {
				raw[label][i]++
			}
		}
	}

	denoms := make([]float64, len(starts))
	for i := range starts {
		if res.Basis == BasisAuthors {
			denoms[i] = float64(len(authors[i]))
		} else {
			denoms[i] = totals[i]
		}
	}

	res.Totals = makeSeries(starts, totals)
	res.Denominators = makeSeries(starts, denoms)
	for _, label := range labels {
		counts := raw[label]
		rates := make([]float64, len(starts))
		for i, c := range counts {
			rates[i] = NormalizedRate(c, denoms[i])
		}
		res.ByLabel[label] = LabelSeries{
			Raw:        makeSeries(starts, counts),
			Normalized: makeSeries(starts, rates),
		}
	}

	return res
}

// NormalizedRate computes raw per 100 of denominator, treating a zero
// denominator as 1.
func NormalizedRate(raw, denominator float64) float64 {
	if raw == 0 {
		return 0
	}
	if denominator == 0 {
		denominator = 1
	}
	return raw / denominator * RatePerHundred
}

func makeSeries(starts []time.Time, values []float64) Series {
	s := make(Series, len(starts))
	for i, start := range starts {
		s[i] = Point{Start: start, Value: values[i]}
	}
	return s
}
