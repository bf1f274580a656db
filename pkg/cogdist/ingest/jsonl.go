package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cognicore/cogdist/internal/logging"
	"github.com/cognicore/cogdist/pkg/cogdist/corpus"
)

// jsonRecord is the line format accepted by LoadJSONL.
type jsonRecord struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	Author     string    `json:"author"`
	CreatedAt  time.Time `json:"created_at"`
	SourceType string    `json:"source_type"`
}

// LoadJSONL reads one record per line. Malformed lines are skipped with a
// warning; records without source_type are treated as posts.
func LoadJSONL(r io.Reader, name string, limit int) (LoadResult, error) {
	var res LoadResult

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for line := 1; sc.Scan(); line++ {
		if limit > 0 && len(res.Records) >= limit {
			break
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		res.Rows++

		var jr jsonRecord
		if err := json.Unmarshal([]byte(text), &jr); err != nil {
			logging.Warn("skipping malformed JSON", "source", name, "line", line, "err", err)
			res.Warnings = append(res.Warnings, &DataQualityError{
				Source: name,
				Reason: fmt.Sprintf("line %d: %v", line, err),
			})
			continue
		}

		st := corpus.Post
		if strings.EqualFold(jr.SourceType, string(corpus.Comment)) {
			st = corpus.Comment
		}
		rec := Record{
			ID:         jr.ID,
			Title:      CleanText(jr.Title),
			Text:       CleanText(jr.Text),
			Author:     strings.TrimSpace(jr.Author),
			CreatedAt:  jr.CreatedAt.UTC(),
			SourceType: st,
		}
		if rec.Empty() {
			continue
		}
		res.Records = append(res.Records, rec)
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("read %s: %w", name, err)
	}
	return res, nil
}

// LoadJSONLFile opens path and calls LoadJSONL.
func LoadJSONLFile(path string, limit int) (LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return LoadJSONL(f, path, limit)
}
