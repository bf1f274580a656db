package detect

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/cognicore/cogdist/pkg/cogdist/lexicon"
)

// MatcherKind selects the phrase containment strategy.
type MatcherKind string

const (
	// Scan checks every phrase of every label with strings.Contains.
	Scan MatcherKind = "scan"
	// Automaton runs one Aho–Corasick pass over the text for all phrases.
	Automaton MatcherKind = "automaton"
)

// Matcher reports, per label position, whether the lowercased text contains
// at least one phrase of that label. Implementations must be safe for
// concurrent use.
type Matcher interface {
	Match(lower string) []bool
}

type scanMatcher struct {
	phrases [][]string // label position -> phrases
}

func newScanMatcher(entries []lexicon.Entry) *scanMatcher {
	m := &scanMatcher{phrases: make([][]string, len(entries))}
	for i, e := range entries {
		m.phrases[i] = e.Phrases
	}
	return m
}

func (m *scanMatcher) Match(lower string) []bool {
	hits := make([]bool, len(m.phrases))
	for i, phrases := range m.phrases {
		for _, p := range phrases {
			if strings.Contains(lower, p) {
				hits[i] = true
				break
			}
		}
	}
	return hits
}

// automatonMatcher shares one automaton across labels. A phrase declared by
// several labels appears once in the dictionary and fans out to all owners.
type automatonMatcher struct {
	matcher *ahocorasick.Matcher
	owners  [][]int // dictionary index -> label positions
	labels  int
}

func newAutomatonMatcher(entries []lexicon.Entry) *automatonMatcher {
	var dict []string
	var owners [][]int
	pos := make(map[string]int)

	for li, e := range entries {
		for _, p := range e.Phrases {
			if di, ok := pos[p]; ok {
				owners[di] = append(owners[di], li)
				continue
			}
			pos[p] = len(dict)
			dict = append(dict, p)
			owners = append(owners, []int{li})
		}
	}

	return &automatonMatcher{
		matcher: ahocorasick.NewStringMatcher(dict),
		owners:  owners,
		labels:  len(entries),
	}
}

func (m *automatonMatcher) Match(lower string) []bool {
	hits := make([]bool, m.labels)
	if len(m.owners) == 0 {
		return hits
	}
	for _, di := range m.matcher.MatchThreadSafe([]byte(lower)) {
		for _, li := range m.owners[di] {
			hits[li] = true
		}
	}
	return hits
}
