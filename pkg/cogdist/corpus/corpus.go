// Package corpus defines the sentence records every analytics stage consumes.
package corpus

import "time"

// SourceType tells whether a sentence came from a post or a comment.
type SourceType string

const (
	Post    SourceType = "post"
	Comment SourceType = "comment"
)

// Sentence is one sentence split out of a post or comment.
// A zero Timestamp means the source date could not be parsed.
type Sentence struct {
	Text       string
	Timestamp  time.Time
	Author     string
	SourceID   int64
	SourceType SourceType
}

// Dated reports whether the sentence carries a usable timestamp.
func (s Sentence) Dated() bool {
	return !s.Timestamp.IsZero()
}

// LabeledSentence is a Sentence plus one boolean per distortion label.
type LabeledSentence struct {
	Sentence
	Flags map[string]bool
}

// Has reports whether the sentence was flagged for label.
func (l LabeledSentence) Has(label string) bool {
	return l.Flags[label]
}

// Subset returns the sentences flagged for label, in input order.
func Subset(labeled []LabeledSentence, label string) []LabeledSentence {
	var out []LabeledSentence
	for _, ls := range labeled {
		if ls.Flags[label] {
			out = append(out, ls)
		}
	}
	return out
}

// Texts extracts sentence texts.
func Texts(labeled []LabeledSentence) []string {
	out := make([]string, len(labeled))
	for i, ls := range labeled {
		out[i] = ls.Text
	}
	return out
}
