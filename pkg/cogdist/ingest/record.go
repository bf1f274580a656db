// Package ingest turns raw post and comment exports into sentence records.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/cognicore/cogdist/pkg/cogdist/corpus"
)

// Record is one post or comment before sentence splitting.
type Record struct {
	ID         int64
	Title      string
	Text       string
	Author     string
	CreatedAt  time.Time // zero when the date was missing or unparseable
	SourceType corpus.SourceType
}

// Body returns the text analysed for the record. Posts join title and body
// with a single space; comments use the body alone.
func (r Record) Body() string {
	if r.SourceType == corpus.Post && r.Title != "" {
		if r.Text == "" {
			return r.Title
		}
		return r.Title + " " + r.Text
	}
	return r.Text
}

// Empty reports whether the record carries no analysable text.
func (r Record) Empty() bool {
	return strings.TrimSpace(r.Body()) == ""
}

// DataQualityError describes a problem with the input that does not stop the
// run, such as a file without any recognised date column.
type DataQualityError struct {
	Source string
	Reason string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality: %s: %s", e.Source, e.Reason)
}

// LoadResult carries the loaded records plus non-fatal warnings.
type LoadResult struct {
	Records  []Record
	Warnings []error
	Rows     int // data rows read, including rows skipped as empty
}

// Append adds other's records and warnings to r. Record IDs of other are
// row positions within its own source; they are shifted by the rows r has
// read so IDs stay positions in the combined input.
func (r *LoadResult) Append(other LoadResult) {
	for _, rec := range other.Records {
		rec.ID += int64(r.Rows)
		r.Records = append(r.Records, rec)
	}
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Rows += other.Rows
}
