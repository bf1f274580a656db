package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cognicore/cogdist/internal/logging"
	"github.com/cognicore/cogdist/pkg/cogdist/corpus"
)

// CSVOptions controls CSV loading.
type CSVOptions struct {
	// Limit caps the number of data rows read per file. 0 reads everything.
	Limit int
	// Clean strips HTML markup and entities from text cells.
	Clean bool
}

// LoadCSV reads records of one source type from a CSV export with a header
// row. name identifies the source in warnings.
//
// Posts take their text from title and body; comments from body, falling
// back to comment. Dates come from the first column of DateColumns present.
// Rows with empty text are skipped. Record IDs are 0-based data row
// positions, so they still count skipped rows.
func LoadCSV(r io.Reader, name string, st corpus.SourceType, opts CSVOptions) (LoadResult, error) {
	var res LoadResult

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("read header of %s: %w", name, err)
	}
	cols := indexColumns(header)

	textCol, titleCol := -1, -1
	if st == corpus.Post {
		titleCol = cols.lookup("title")
		textCol = cols.lookup("body")
	} else {
		textCol = cols.lookup("body")
		if textCol < 0 {
			textCol = cols.lookup("comment")
		}
	}
	if textCol < 0 && titleCol < 0 {
		res.Warnings = append(res.Warnings, &DataQualityError{Source: name, Reason: "no text column"})
	}

	dateName, dateCol := "", -1
	for _, c := range DateColumns {
		if i := cols.lookup(c); i >= 0 {
			dateName, dateCol = c, i
			break
		}
	}
	if dateCol < 0 {
		dq := &DataQualityError{Source: name, Reason: "no date column; temporal analysis will be empty"}
		logging.Warn("missing date column", "source", name, "accepted", strings.Join(DateColumns, ","))
		res.Warnings = append(res.Warnings, dq)
	}
	authorCol := cols.lookup("author")

	var unparsed int
	for ; opts.Limit <= 0 || res.Rows < opts.Limit; res.Rows++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read %s row %d: %w", name, res.Rows+1, err)
		}

		rec := Record{
			ID:         int64(res.Rows),
			Title:      cell(row, titleCol),
			Text:       cell(row, textCol),
			Author:     strings.TrimSpace(cell(row, authorCol)),
			SourceType: st,
		}
		if opts.Clean {
			rec.Title = CleanText(rec.Title)
			rec.Text = CleanText(rec.Text)
		}
		if dateCol >= 0 {
			if ts, ok := ParseDate(dateName, cell(row, dateCol)); ok {
				rec.CreatedAt = ts
			} else {
				unparsed++
			}
		}
		if rec.Empty() {
			continue
		}
		res.Records = append(res.Records, rec)
	}

	if unparsed > 0 {
		logging.Warn("unparseable dates", "source", name, "column", dateName, "rows", unparsed)
		res.Warnings = append(res.Warnings, &DataQualityError{
			Source: name,
			Reason: fmt.Sprintf("%d rows with unparseable %s", unparsed, dateName),
		})
	}
	return res, nil
}

// LoadCSVFile opens path and calls LoadCSV.
func LoadCSVFile(path string, st corpus.SourceType, opts CSVOptions) (LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return LoadCSV(f, path, st, opts)
}

// LoadPostsAndComments loads both exports, posts first. Record IDs are row
// positions in the combined input, counting rows skipped as empty. An empty
// path skips that source.
func LoadPostsAndComments(postsPath, commentsPath string, opts CSVOptions) (LoadResult, error) {
	var all LoadResult
	for _, src := range []struct {
		path string
		st   corpus.SourceType
	}{{postsPath, corpus.Post}, {commentsPath, corpus.Comment}} {
		if src.path == "" {
			continue
		}
		res, err := LoadCSVFile(src.path, src.st, opts)
		if err != nil {
			return all, err
		}
		logging.Info("loaded records", "source", src.path, "type", src.st, "records", len(res.Records))
		all.Append(res)
	}
	return all, nil
}

type columnIndex map[string]int

func indexColumns(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

func (c columnIndex) lookup(name string) int {
	if i, ok := c[name]; ok {
		return i
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
