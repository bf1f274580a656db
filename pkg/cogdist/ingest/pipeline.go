package ingest

import (
	"github.com/cognicore/cogdist/pkg/cogdist/corpus"
)

// Pipeline turns records into sentence records.
type Pipeline struct {
	splitter Splitter
}

// NewPipeline creates a pipeline with the given splitter.
func NewPipeline(splitter Splitter) *Pipeline {
	return &Pipeline{splitter: splitter}
}

// Sentences splits every non-empty record. Each sentence inherits the
// record's timestamp, author, id and source type, and sentences keep record
// order.
func (p *Pipeline) Sentences(records []Record) []corpus.Sentence {
	var out []corpus.Sentence
	for _, r := range records {
		if r.Empty() {
			continue
		}
		for _, text := range p.splitter.Split(r.Body()) {
			out = append(out, corpus.Sentence{
				Text:       text,
				Timestamp:  r.CreatedAt,
				Author:     r.Author,
				SourceID:   r.ID,
				SourceType: r.SourceType,
			})
		}
	}
	return out
}
