package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/cognicore/cogdist/pkg/cogdist/cooccur"
	"github.com/cognicore/cogdist/pkg/cogdist/corpus"
	"github.com/cognicore/cogdist/pkg/cogdist/correlation"
	"github.com/cognicore/cogdist/pkg/cogdist/timeseries"
	"github.com/cognicore/cogdist/pkg/cogdist/topics"
)

func readCSV(t *testing.T, data string) [][]string {
	t.Helper()
	recs, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return recs
}

var monday = time.Date(2020, 4, 6, 0, 0, 0, 0, time.UTC)

func TestWriteLabeled(t *testing.T) {
	labeled := []corpus.LabeledSentence{
		{Sentence: corpus.Sentence{Text: "I always, always fail.", Timestamp: monday, Author: "a", SourceID: 3, SourceType: corpus.Post}, Flags: map[string]bool{"X": true}},
		{Sentence: corpus.Sentence{Text: "ok", SourceType: corpus.Comment}, Flags: map[string]bool{}},
	}
	var buf bytes.Buffer
	if err := WriteLabeled(&buf, labeled, []string{"X", "Y"}); err != nil {
		t.Fatal(err)
	}
	recs := readCSV(t, buf.String())
	want := [][]string{
		{"index", "sentence", "date", "author", "source_id", "source_type", "X", "Y"},
		{"0", "I always, always fail.", "2020-04-06T00:00:00Z", "a", "3", "post", "true", "false"},
		{"1", "ok", "", "", "0", "comment", "false", "false"},
	}
	if !reflect.DeepEqual(recs, want) {
		t.Errorf("got %q", recs)
	}
}

func TestWriteSeries(t *testing.T) {
	next := monday.AddDate(0, 0, 7)
	series := map[string]timeseries.Series{
		"A": {{Start: monday, Value: 1}, {Start: next, Value: 2.5}},
		"B": {{Start: next, Value: 4}},
	}
	var buf bytes.Buffer
	if err := WriteSeries(&buf, []time.Time{monday, next}, []string{"A", "B"}, series); err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"period_start", "A", "B"},
		{"2020-04-06", "1", ""},
		{"2020-04-13", "2.5", "4"},
	}
	if got := readCSV(t, buf.String()); !reflect.DeepEqual(got, want) {
		t.Errorf("got %q", got)
	}
}

func TestWriteMatrix(t *testing.T) {
	s := func(vals ...float64) timeseries.Series {
		out := make(timeseries.Series, len(vals))
		for i, v := range vals {
			out[i] = timeseries.Point{Start: monday.AddDate(0, 0, 7*i), Value: v}
		}
		return out
	}
	m, err := correlation.Correlate(map[string]timeseries.Series{
		"A": s(1, 2, 3), "B": s(2, 4, 6), "C": s(1, 1, 1),
	}, []string{"A", "B", "C"}, correlation.Window{})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteMatrix(&buf, m); err != nil {
		t.Fatal(err)
	}
	recs := readCSV(t, buf.String())
	if len(recs) != 4 || !reflect.DeepEqual(recs[0], []string{"", "A", "B", "C"}) {
		t.Fatalf("got %q", recs)
	}
	if recs[1][1] != "1" || recs[3][3] != "" || recs[1][3] != "" {
		t.Errorf("unexpected cells: %q", recs)
	}
}

func TestWriteCooccurrenceAndSearch(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCooccurrence(&buf, []cooccur.Stat{{A: "A", B: "B", CountA: 2, CountB: 1, Both: 1, PMI: 0.5, NPMI: 0.25}}); err != nil {
		t.Fatal(err)
	}
	recs := readCSV(t, buf.String())
	if !reflect.DeepEqual(recs[1], []string{"A", "B", "2", "1", "1", "0.5", "0.25"}) {
		t.Errorf("cooccurrence row = %q", recs[1])
	}

	buf.Reset()
	if err := WriteSearch(&buf, []SearchRow{{Label: "X", K: 10, Score: 1.25, Chosen: true}}); err != nil {
		t.Fatal(err)
	}
	recs = readCSV(t, buf.String())
	if !reflect.DeepEqual(recs[1], []string{"X", "10", "1.25", "true"}) {
		t.Errorf("search row = %q", recs[1])
	}
}

func TestWriteTopics(t *testing.T) {
	subset := []corpus.LabeledSentence{
		{Sentence: corpus.Sentence{Text: "I always lose.", Timestamp: monday, Author: "a", SourceID: 4, SourceType: corpus.Post}, Flags: map[string]bool{"X": true}},
		{Sentence: corpus.Sentence{Text: "Everyone always leaves.", Author: "b", SourceID: 9, SourceType: corpus.Comment}, Flags: map[string]bool{"X": true, "Y": true}},
	}
	res := &topics.Result{K: 2, Assignments: []int{1, 0}}

	var buf bytes.Buffer
	if err := WriteTopics(&buf, subset, []int{2, 7}, []string{"X", "Y"}, res); err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"index", "sentence", "date", "author", "source_id", "source_type", "X", "Y", "cluster"},
		{"2", "I always lose.", "2020-04-06T00:00:00Z", "a", "4", "post", "true", "false", "1"},
		{"7", "Everyone always leaves.", "", "b", "9", "comment", "true", "true", "0"},
	}
	if recs := readCSV(t, buf.String()); !reflect.DeepEqual(recs, want) {
		t.Errorf("got %q", recs)
	}

	if err := WriteTopics(&buf, subset[:1], []int{2}, []string{"X"}, res); err == nil {
		t.Error("length mismatch should fail")
	}
	if err := WriteTopics(&buf, subset, []int{2}, []string{"X"}, res); err == nil {
		t.Error("missing indices should fail")
	}
}

func TestDirAndFileNames(t *testing.T) {
	d, err := NewDir(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	path, err := d.Write(TopicsFile("Should Statements"), func(w io.Writer) error {
		_, err := io.WriteString(w, "x\n")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "topics_Should_Statements.csv" {
		t.Errorf("file name = %s", filepath.Base(path))
	}
	if data, _ := os.ReadFile(path); string(data) != "x\n" {
		t.Errorf("content = %q", data)
	}
	if SeriesFile("raw") != "series_raw.csv" || CorrelationFile(correlation.During, correlation.Spike) != "correlation_during_spike.csv" {
		t.Error("unexpected file names")
	}
}
