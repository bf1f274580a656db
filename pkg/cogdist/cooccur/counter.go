// Package cooccur measures how often distortion labels fire on the same
// sentence and scores each label pair with smoothed PMI.
package cooccur

import (
	"sort"

	"github.com/cognicore/cogdist/pkg/cogdist/corpus"
)

// Pair is an unordered label pair stored with A < B.
type Pair struct {
	A, B string
}

// NewPair returns the canonical ordering of two labels.
func NewPair(a, b string) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Counter maintains sentence-level label frequencies.
type Counter struct {
	N   int64            // sentences seen
	Nx  map[string]int64 // sentences carrying each label
	Nxy map[Pair]int64   // sentences carrying both labels of a pair
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{
		Nx:  make(map[string]int64),
		Nxy: make(map[Pair]int64),
	}
}

// Add counts one sentence given the labels it carries.
func (c *Counter) Add(labels []string) {
	c.N++

	seen := make(map[string]struct{}, len(labels))
	unique := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		unique = append(unique, l)
		c.Nx[l]++
	}

	sort.Strings(unique)
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			c.Nxy[Pair{A: unique[i], B: unique[j]}]++
		}
	}
}

// AddLabeled counts every sentence, with each sentence's flags read in
// the order of labels.
func (c *Counter) AddLabeled(labeled []corpus.LabeledSentence, labels []string) {
	active := make([]string, 0, len(labels))
	for _, s := range labeled {
		active = active[:0]
		for _, l := range labels {
			if s.Flags[l] {
				active = append(active, l)
			}
		}
		c.Add(active)
	}
}

// PairCount returns how many sentences carry both labels.
func (c *Counter) PairCount(a, b string) int64 {
	return c.Nxy[NewPair(a, b)]
}

// LabelCount returns how many sentences carry the label.
func (c *Counter) LabelCount(l string) int64 {
	return c.Nx[l]
}
