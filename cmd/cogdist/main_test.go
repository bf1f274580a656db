package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/cogdist/internal/logging"
	"github.com/cognicore/cogdist/pkg/cogdist/store/sqlite"
)

func init() {
	logging.Discard()
}

var things = []string{"exam", "interview", "haircut", "presentation", "cooking", "driving", "essay", "match"}

func writePosts(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "posts.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"title", "body", "author", "created_utc"})
	start := time.Date(2020, 1, 6, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		ts := start.Add(time.Duration(i) * 24 * time.Hour)
		body := fmt.Sprintf("I went to the %s today. It was fine.", things[i%len(things)])
		if i%3 == 0 {
			body = fmt.Sprintf("I feel stupid about my %s number %d. It's a disaster for round %d.", things[i%len(things)], i, i)
		}
		w.Write([]string{
			fmt.Sprintf("Post %d", i),
			body,
			fmt.Sprintf("user%d", i%7),
			fmt.Sprintf("%d.0", ts.Unix()),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	cfg := `period: week
reference:
  start: "2020-01-27"
  end: "2020-02-24"
clusters:
  k_min: 2
  k_max: 3
  k_step: 1
  min_sentences: 5
embedding:
  provider: hashing
  dimension: 64
`
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunFullWritesTablesAndDB(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	db := filepath.Join(dir, "runs.db")

	paths, err := run(context.Background(), options{
		mode:       "full",
		configPath: writeConfig(t, dir),
		posts:      writePosts(t, dir),
		outDir:     out,
		dbPath:     db,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("no files written")
	}
	for _, name := range []string{"distortion_data.csv", "series_raw.csv", "series_normalized.csv", "cooccurrence.csv", "topics_search.csv"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	st, err := sqlite.OpenSQLite(context.Background(), db)
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	defer st.Close()
	runs, err := st.ListRuns(context.Background(), 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns = %d, %v", len(runs), err)
	}
	if runs[0].Mode != "full" || runs[0].Sentences == 0 || runs[0].Config == "" {
		t.Errorf("run = %+v", runs[0])
	}
}

func TestRunTrendModeSkipsTopics(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	if _, err := run(context.Background(), options{
		mode:       "all",
		configPath: writeConfig(t, dir),
		posts:      writePosts(t, dir),
		outDir:     out,
	}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "topics_search.csv")); err == nil {
		t.Error("trend mode should not write topic tables")
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(context.Background(), options{mode: "bogus", posts: writePosts(t, dir)}); err == nil {
		t.Error("expected unknown mode to fail")
	}
	if _, err := run(context.Background(), options{mode: "all", posts: filepath.Join(dir, "missing.csv"), outDir: dir}); err == nil {
		t.Error("expected missing input to fail")
	}
}
