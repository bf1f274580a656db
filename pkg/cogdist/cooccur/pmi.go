package cooccur

import (
	"math"
	"sort"
)

// DefaultEpsilon is the additive smoothing constant.
const DefaultEpsilon = 1.0

// Calculator scores label pairs.
type Calculator struct {
	epsilon float64
}

// NewCalculator returns a calculator with the given smoothing; values <= 0
// use DefaultEpsilon.
func NewCalculator(epsilon float64) *Calculator {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Calculator{epsilon: epsilon}
}

// PMI computes log((nAB + ε) * N / ((nA + ε)(nB + ε))).
func (c *Calculator) PMI(nAB, nA, nB, n int64) float64 {
	if n == 0 {
		return 0
	}
	num := (float64(nAB) + c.epsilon) * float64(n)
	den := (float64(nA) + c.epsilon) * (float64(nB) + c.epsilon)
	return math.Log(num / den)
}

// NPMI divides PMI by -log P(a,b), bounding it to roughly [-1, 1].
// Pairs that never co-occur score 0.
func (c *Calculator) NPMI(nAB, nA, nB, n int64) float64 {
	if n == 0 || nAB == 0 {
		return 0
	}
	logP := math.Log((float64(nAB) + c.epsilon) / float64(n))
	if logP >= 0 {
		return 0
	}
	return c.PMI(nAB, nA, nB, n) / -logP
}

// Stat is the co-occurrence summary of one label pair.
type Stat struct {
	A, B   string
	CountA int64
	CountB int64
	Both   int64
	PMI    float64
	NPMI   float64
}

// Table scores every pair of labels, including pairs that never co-occur,
// in the order the labels are given.
func (c *Calculator) Table(counter *Counter, labels []string) []Stat {
	var out []Stat
	for i := 0; i < len(labels); i++ {
		for j := i + 1; j < len(labels); j++ {
			a, b := labels[i], labels[j]
			nA, nB := counter.LabelCount(a), counter.LabelCount(b)
			nAB := counter.PairCount(a, b)
			out = append(out, Stat{
				A: a, B: b,
				CountA: nA, CountB: nB, Both: nAB,
				PMI:  c.PMI(nAB, nA, nB, counter.N),
				NPMI: c.NPMI(nAB, nA, nB, counter.N),
			})
		}
	}
	return out
}

// TopByNPMI returns the n highest-NPMI pairs that co-occur at least once.
func TopByNPMI(stats []Stat, n int) []Stat {
	var kept []Stat
	for _, s := range stats {
		if s.Both > 0 {
			kept = append(kept, s)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].NPMI > kept[j].NPMI })
	if n > 0 && len(kept) > n {
		kept = kept[:n]
	}
	return kept
}
