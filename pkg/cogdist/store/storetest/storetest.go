// Package storetest holds behaviour checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/cognicore/cogdist/pkg/cogdist/store"
)

// Run exercises st through a complete run lifecycle.
func Run(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()

	run, err := st.CreateRun(ctx, store.Run{Mode: "full", Sentences: 3, Basis: "authors", Config: "period: week\n"})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.ID == "" || run.StartedAt.IsZero() {
		t.Fatalf("CreateRun did not assign id/time: %+v", run)
	}

	got, ok, err := st.GetRun(ctx, run.ID)
	if err != nil || !ok {
		t.Fatalf("GetRun: %v, found=%v", err, ok)
	}
	if got.Mode != "full" || got.Basis != "authors" || got.Sentences != 3 || got.Config != run.Config {
		t.Errorf("GetRun = %+v", got)
	}
	if _, ok, _ := st.GetRun(ctx, "missing"); ok {
		t.Error("unknown run should not be found")
	}

	second, err := st.CreateRun(ctx, store.Run{Mode: "all", StartedAt: run.StartedAt.Add(time.Second)})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	runs, err := st.ListRuns(ctx, 10)
	if err != nil || len(runs) != 2 || runs[0].ID != second.ID {
		t.Errorf("ListRuns = %+v, %v", runs, err)
	}

	week := time.Date(2020, 4, 6, 0, 0, 0, 0, time.UTC)
	sentences := []store.Sentence{
		{Index: 0, Text: "I always fail.", Timestamp: week, Author: "a", SourceID: 1, SourceType: "post", Labels: []string{"Overgeneralizing"}},
		{Index: 1, Text: "Fine.", SourceID: 2, SourceType: "comment"},
	}
	if err := st.SaveSentences(ctx, run.ID, sentences); err != nil {
		t.Fatalf("SaveSentences: %v", err)
	}
	rows, err := st.Sentences(ctx, run.ID)
	if err != nil || len(rows) != 2 {
		t.Fatalf("Sentences: %v, %d rows", err, len(rows))
	}
	if !rows[0].Timestamp.Equal(week) || !reflect.DeepEqual(rows[0].Labels, []string{"Overgeneralizing"}) {
		t.Errorf("sentence 0 = %+v", rows[0])
	}
	if !rows[1].Timestamp.IsZero() || len(rows[1].Labels) != 0 {
		t.Errorf("undated sentence = %+v", rows[1])
	}

	points := []store.SeriesPoint{
		{Kind: "raw", Label: "B", Start: week, Value: 1},
		{Kind: "raw", Label: "A", Start: week.AddDate(0, 0, 7), Value: 3},
		{Kind: "raw", Label: "A", Start: week, Value: 2},
		{Kind: "normalized", Label: "A", Start: week, Value: 50},
	}
	if err := st.SaveSeries(ctx, run.ID, points); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}
	if err := st.SaveSeries(ctx, run.ID, []store.SeriesPoint{{Kind: "raw", Label: "B", Start: week, Value: 5}}); err != nil {
		t.Fatalf("SaveSeries update: %v", err)
	}
	raw, err := st.Series(ctx, run.ID, "raw")
	if err != nil || len(raw) != 3 {
		t.Fatalf("Series: %v, %+v", err, raw)
	}
	if raw[0].Label != "A" || raw[0].Value != 2 || raw[1].Value != 3 || raw[2].Value != 5 {
		t.Errorf("series order/update wrong: %+v", raw)
	}

	cells := []store.CorrelationCell{
		{Segment: "before", Kind: "raw", A: "A", B: "A", Value: 1},
		{Segment: "before", Kind: "raw", A: "A", B: "B", Value: math.NaN()},
	}
	if err := st.SaveCorrelations(ctx, run.ID, cells); err != nil {
		t.Fatalf("SaveCorrelations: %v", err)
	}
	gotCells, err := st.Correlations(ctx, run.ID, "before", "raw")
	if err != nil || len(gotCells) != 2 {
		t.Fatalf("Correlations: %v, %+v", err, gotCells)
	}
	if gotCells[0].Value != 1 || !math.IsNaN(gotCells[1].Value) {
		t.Errorf("cells = %+v", gotCells)
	}
	if empty, _ := st.Correlations(ctx, run.ID, "after", "raw"); len(empty) != 0 {
		t.Errorf("unexpected cells for after segment: %+v", empty)
	}

	stats := []store.PairStat{{A: "A", B: "B", CountA: 2, CountB: 1, Both: 1, PMI: 0.4, NPMI: 0.2}}
	if err := st.SaveCooccurrence(ctx, run.ID, stats); err != nil {
		t.Fatalf("SaveCooccurrence: %v", err)
	}
	if got, _ := st.Cooccurrence(ctx, run.ID); !reflect.DeepEqual(got, stats) {
		t.Errorf("Cooccurrence = %+v", got)
	}

	reports := []store.TopicReport{
		{
			Label: "Overgeneralizing", K: 2, Score: 0.5,
			Trials:  []store.Trial{{K: 2, Score: 0.5}, {K: 3, Score: 0.7}},
			Members: []store.TopicMember{{SentenceIndex: 0, Text: "I always fail.", Cluster: 1}},
		},
		{Label: "Catastrophizing", Error: "insufficient data", Score: math.NaN()},
	}
	for _, r := range reports {
		if err := st.SaveTopics(ctx, run.ID, r); err != nil {
			t.Fatalf("SaveTopics: %v", err)
		}
	}
	topics, err := st.Topics(ctx, run.ID)
	if err != nil || len(topics) != 2 {
		t.Fatalf("Topics: %v, %+v", err, topics)
	}
	if topics[0].Label != "Catastrophizing" || topics[0].Error == "" {
		t.Errorf("failed report = %+v", topics[0])
	}
	if tr := topics[1]; tr.K != 2 || len(tr.Trials) != 2 || len(tr.Members) != 1 || tr.Members[0].Cluster != 1 {
		t.Errorf("topic report = %+v", tr)
	}

	if rows, _ := st.Sentences(ctx, second.ID); len(rows) != 0 {
		t.Error("runs must not share results")
	}
}
