// Package export writes analysis results as flat CSV tables for plotting
// and spreadsheet tools.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cognicore/cogdist/pkg/cogdist/cooccur"
	"github.com/cognicore/cogdist/pkg/cogdist/corpus"
	"github.com/cognicore/cogdist/pkg/cogdist/correlation"
	"github.com/cognicore/cogdist/pkg/cogdist/timeseries"
	"github.com/cognicore/cogdist/pkg/cogdist/topics"
)

// File names used by Dir.
const (
	DistortionDataFile = "distortion_data.csv"
	CooccurrenceFile   = "cooccurrence.csv"
	TopicSearchFile    = "topics_search.csv"
)

// SeriesFile names the file of one series kind, e.g. series_raw.csv.
func SeriesFile(kind string) string {
	return "series_" + kind + ".csv"
}

// CorrelationFile names the file of one segment matrix.
func CorrelationFile(seg correlation.Segment, kind correlation.Kind) string {
	return fmt.Sprintf("correlation_%s_%s.csv", seg, kind)
}

// TopicsFile names the per-distortion topic file; spaces become underscores.
func TopicsFile(label string) string {
	return "topics_" + strings.ReplaceAll(label, " ", "_") + ".csv"
}

// Dir writes tables into one output directory.
type Dir struct {
	Path string
}

// NewDir creates the directory if needed.
func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Dir{Path: path}, nil
}

// Write creates name inside the directory and fills it with fn.
func (d *Dir) Write(name string, fn func(io.Writer) error) (string, error) {
	path := filepath.Join(d.Path, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// WriteLabeled writes one row per sentence with a true/false column per label.
// The index column is the row position, which topic tables refer back to.
func WriteLabeled(w io.Writer, labeled []corpus.LabeledSentence, labels []string) error {
	return writeLabeled(w, labeled, nil, labels, nil)
}

func writeLabeled(w io.Writer, labeled []corpus.LabeledSentence, indices []int, labels []string, clusters []int) error {
	cw := csv.NewWriter(w)
	header := append([]string{"index", "sentence", "date", "author", "source_id", "source_type"}, labels...)
	if clusters != nil {
		header = append(header, "cluster")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for k, s := range labeled {
		idx := k
		if indices != nil {
			idx = indices[k]
		}
		row[0] = strconv.Itoa(idx)
		row[1] = s.Text
		row[2] = formatTime(s.Timestamp)
		row[3] = s.Author
		row[4] = strconv.FormatInt(s.SourceID, 10)
		row[5] = string(s.SourceType)
		for i, l := range labels {
			row[6+i] = strconv.FormatBool(s.Flags[l])
		}
		if clusters != nil {
			row[len(row)-1] = strconv.Itoa(clusters[k])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSeries writes a wide table: one row per period, one column per label.
// Periods a series lacks are left empty.
func WriteSeries(w io.Writer, periods []time.Time, labels []string, series map[string]timeseries.Series) error {
	byLabel := make(map[string]map[time.Time]float64, len(labels))
	for _, l := range labels {
		m := make(map[time.Time]float64, len(series[l]))
		for _, p := range series[l] {
			m[p.Start] = p.Value
		}
		byLabel[l] = m
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"period_start"}, labels...)); err != nil {
		return err
	}
	row := make([]string, len(labels)+1)
	for _, start := range periods {
		row[0] = start.Format(time.DateOnly)
		for i, l := range labels {
			if v, ok := byLabel[l][start]; ok {
				row[i+1] = formatFloat(v)
			} else {
				row[i+1] = ""
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMatrix writes a square correlation matrix with labels on both axes.
// Undefined coefficients are written as empty cells.
func WriteMatrix(w io.Writer, m *correlation.Matrix) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{""}, m.Labels...)); err != nil {
		return err
	}
	for i, row := range m.Rows() {
		rec := make([]string, len(row)+1)
		rec[0] = m.Labels[i]
		for j, v := range row {
			rec[j+1] = formatFloat(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCooccurrence writes one row per label pair.
func WriteCooccurrence(w io.Writer, stats []cooccur.Stat) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"label_a", "label_b", "count_a", "count_b", "both", "pmi", "npmi"}); err != nil {
		return err
	}
	for _, s := range stats {
		rec := []string{
			s.A, s.B,
			strconv.FormatInt(s.CountA, 10),
			strconv.FormatInt(s.CountB, 10),
			strconv.FormatInt(s.Both, 10),
			formatFloat(s.PMI),
			formatFloat(s.NPMI),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTopics writes the labeled rows of one distortion with their cluster
// id appended. indices are the rows' positions in the full labeled table.
func WriteTopics(w io.Writer, labeled []corpus.LabeledSentence, indices []int, labels []string, res *topics.Result) error {
	if len(labeled) != len(res.Assignments) || len(indices) != len(labeled) {
		return fmt.Errorf("%d sentences and %d indices for %d assignments", len(labeled), len(indices), len(res.Assignments))
	}
	return writeLabeled(w, labeled, indices, labels, res.Assignments)
}

// SearchRow is one line of the topic search summary.
type SearchRow struct {
	Label  string
	K      int
	Score  float64
	Chosen bool
}

// WriteSearch writes the k sweep of every distortion.
func WriteSearch(w io.Writer, rows []SearchRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"label", "k", "davies_bouldin", "chosen"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Label, strconv.Itoa(r.K), formatFloat(r.Score), strconv.FormatBool(r.Chosen)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
