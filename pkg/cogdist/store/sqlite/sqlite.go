package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/cogdist/pkg/cogdist/store"
)

// sqliteStore implements store.Store on SQLite.
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a database with WAL mode and foreign keys
// enabled and the schema applied.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

// Close closes the database connection.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	mode TEXT,
	sentences INTEGER DEFAULT 0,
	basis TEXT,
	config TEXT
);

CREATE TABLE IF NOT EXISTS sentences (
	run_id TEXT NOT NULL,
	idx INTEGER NOT NULL,
	text TEXT NOT NULL,
	ts TEXT,
	author TEXT,
	source_id INTEGER,
	source_type TEXT,
	labels TEXT,
	PRIMARY KEY(run_id, idx),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS series (
	run_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	label TEXT NOT NULL,
	period_start TEXT NOT NULL,
	value REAL NOT NULL,
	PRIMARY KEY(run_id, kind, label, period_start),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS correlations (
	run_id TEXT NOT NULL,
	segment TEXT NOT NULL,
	kind TEXT NOT NULL,
	a TEXT NOT NULL,
	b TEXT NOT NULL,
	value REAL,
	ord INTEGER NOT NULL,
	PRIMARY KEY(run_id, segment, kind, a, b),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS cooccurrence (
	run_id TEXT NOT NULL,
	a TEXT NOT NULL,
	b TEXT NOT NULL,
	count_a INTEGER NOT NULL,
	count_b INTEGER NOT NULL,
	both_count INTEGER NOT NULL,
	pmi REAL NOT NULL,
	npmi REAL NOT NULL,
	ord INTEGER NOT NULL,
	PRIMARY KEY(run_id, a, b),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS topic_reports (
	run_id TEXT NOT NULL,
	label TEXT NOT NULL,
	k INTEGER NOT NULL,
	score REAL,
	error TEXT,
	PRIMARY KEY(run_id, label),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS topic_trials (
	run_id TEXT NOT NULL,
	label TEXT NOT NULL,
	k INTEGER NOT NULL,
	score REAL,
	PRIMARY KEY(run_id, label, k),
	FOREIGN KEY(run_id, label) REFERENCES topic_reports(run_id, label) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS topic_members (
	run_id TEXT NOT NULL,
	label TEXT NOT NULL,
	sentence_idx INTEGER NOT NULL,
	text TEXT NOT NULL,
	cluster INTEGER NOT NULL,
	PRIMARY KEY(run_id, label, sentence_idx),
	FOREIGN KEY(run_id, label) REFERENCES topic_reports(run_id, label) ON DELETE CASCADE
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// CreateRun inserts a run, assigning an ID and start time when missing.
func (s *sqliteStore) CreateRun(ctx context.Context, r store.Run) (store.Run, error) {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	if r.ID == "" {
		r.ID = store.NewRunID(r.StartedAt)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, mode, sentences, basis, config) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, formatTime(r.StartedAt), r.Mode, r.Sentences, r.Basis, r.Config)
	if err != nil {
		return store.Run{}, err
	}
	return r, nil
}

// GetRun loads a run by ID.
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, mode, sentences, basis, config FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, false, nil
	}
	if err != nil {
		return store.Run{}, false, err
	}
	return r, true, nil
}

// ListRuns returns the most recent runs first.
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, mode, sentences, basis, config FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (store.Run, error) {
	var (
		r       store.Run
		started string
		mode    sql.NullString
		basis   sql.NullString
		config  sql.NullString
	)
	if err := sc.Scan(&r.ID, &started, &mode, &r.Sentences, &basis, &config); err != nil {
		return store.Run{}, err
	}
	r.StartedAt = parseTime(started)
	r.Mode, r.Basis, r.Config = mode.String, basis.String, config.String
	return r, nil
}

// SaveSentences replaces the sentences of a run.
func (s *sqliteStore) SaveSentences(ctx context.Context, runID string, rows []store.Sentence) error {
	return s.replace(ctx, `DELETE FROM sentences WHERE run_id = ?`, runID,
		`INSERT INTO sentences (run_id, idx, text, ts, author, source_id, source_type, labels) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) ([]any, error) {
			r := rows[i]
			labels, err := json.Marshal(r.Labels)
			if err != nil {
				return nil, err
			}
			return []any{runID, r.Index, r.Text, formatTime(r.Timestamp), r.Author, r.SourceID, r.SourceType, string(labels)}, nil
		})
}

// Sentences returns a run's sentences in index order.
func (s *sqliteStore) Sentences(ctx context.Context, runID string) ([]store.Sentence, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, text, ts, author, source_id, source_type, labels FROM sentences WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Sentence
	for rows.Next() {
		var (
			r      store.Sentence
			ts     string
			labels string
		)
		if err := rows.Scan(&r.Index, &r.Text, &ts, &r.Author, &r.SourceID, &r.SourceType, &labels); err != nil {
			return nil, err
		}
		r.Timestamp = parseTime(ts)
		if labels != "" && labels != "null" {
			if err := json.Unmarshal([]byte(labels), &r.Labels); err != nil {
				return nil, fmt.Errorf("sentence %d labels: %w", r.Index, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveSeries upserts series points.
func (s *sqliteStore) SaveSeries(ctx context.Context, runID string, points []store.SeriesPoint) error {
	return s.batch(ctx,
		`INSERT INTO series (run_id, kind, label, period_start, value) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(run_id, kind, label, period_start) DO UPDATE SET value = excluded.value`,
		len(points), func(i int) ([]any, error) {
			p := points[i]
			return []any{runID, p.Kind, p.Label, formatTime(p.Start), p.Value}, nil
		})
}

// Series returns one kind of series ordered by label, then period.
func (s *sqliteStore) Series(ctx context.Context, runID, kind string) ([]store.SeriesPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, label, period_start, value FROM series WHERE run_id = ? AND kind = ? ORDER BY label, period_start`,
		runID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.SeriesPoint
	for rows.Next() {
		var (
			p     store.SeriesPoint
			start string
		)
		if err := rows.Scan(&p.Kind, &p.Label, &start, &p.Value); err != nil {
			return nil, err
		}
		p.Start = parseTime(start)
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveCorrelations upserts matrix cells; NaN values are stored as NULL.
func (s *sqliteStore) SaveCorrelations(ctx context.Context, runID string, cells []store.CorrelationCell) error {
	return s.batch(ctx,
		`INSERT INTO correlations (run_id, segment, kind, a, b, value, ord) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, segment, kind, a, b) DO UPDATE SET value = excluded.value, ord = excluded.ord`,
		len(cells), func(i int) ([]any, error) {
			c := cells[i]
			return []any{runID, c.Segment, c.Kind, c.A, c.B, nullFloat(c.Value), i}, nil
		})
}

// Correlations returns the cells of one segment matrix in insertion order.
func (s *sqliteStore) Correlations(ctx context.Context, runID, segment, kind string) ([]store.CorrelationCell, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT segment, kind, a, b, value FROM correlations WHERE run_id = ? AND segment = ? AND kind = ? ORDER BY ord`,
		runID, segment, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.CorrelationCell
	for rows.Next() {
		var (
			c store.CorrelationCell
			v sql.NullFloat64
		)
		if err := rows.Scan(&c.Segment, &c.Kind, &c.A, &c.B, &v); err != nil {
			return nil, err
		}
		c.Value = fromNull(v)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveCooccurrence replaces the pair statistics of a run.
func (s *sqliteStore) SaveCooccurrence(ctx context.Context, runID string, stats []store.PairStat) error {
	return s.replace(ctx, `DELETE FROM cooccurrence WHERE run_id = ?`, runID,
		`INSERT INTO cooccurrence (run_id, a, b, count_a, count_b, both_count, pmi, npmi, ord) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(stats), func(i int) ([]any, error) {
			p := stats[i]
			return []any{runID, p.A, p.B, p.CountA, p.CountB, p.Both, p.PMI, p.NPMI, i}, nil
		})
}

// Cooccurrence returns a run's pair statistics in insertion order.
func (s *sqliteStore) Cooccurrence(ctx context.Context, runID string) ([]store.PairStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a, b, count_a, count_b, both_count, pmi, npmi FROM cooccurrence WHERE run_id = ? ORDER BY ord`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.PairStat
	for rows.Next() {
		var p store.PairStat
		if err := rows.Scan(&p.A, &p.B, &p.CountA, &p.CountB, &p.Both, &p.PMI, &p.NPMI); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveTopics replaces the topic report of one label.
func (s *sqliteStore) SaveTopics(ctx context.Context, runID string, report store.TopicReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"topic_members", "topic_trials", "topic_reports"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ? AND label = ?`, runID, report.Label); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO topic_reports (run_id, label, k, score, error) VALUES (?, ?, ?, ?, ?)`,
		runID, report.Label, report.K, nullFloat(report.Score), report.Error); err != nil {
		return err
	}

	trialStmt, err := tx.PrepareContext(ctx, `INSERT INTO topic_trials (run_id, label, k, score) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer trialStmt.Close()
	for _, tr := range report.Trials {
		if _, err := trialStmt.ExecContext(ctx, runID, report.Label, tr.K, nullFloat(tr.Score)); err != nil {
			return err
		}
	}

	memberStmt, err := tx.PrepareContext(ctx, `INSERT INTO topic_members (run_id, label, sentence_idx, text, cluster) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer memberStmt.Close()
	for _, m := range report.Members {
		if _, err := memberStmt.ExecContext(ctx, runID, report.Label, m.SentenceIndex, m.Text, m.Cluster); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Topics returns every topic report of a run ordered by label.
func (s *sqliteStore) Topics(ctx context.Context, runID string) ([]store.TopicReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, k, score, error FROM topic_reports WHERE run_id = ? ORDER BY label`, runID)
	if err != nil {
		return nil, err
	}
	var reports []store.TopicReport
	for rows.Next() {
		var (
			r     store.TopicReport
			score sql.NullFloat64
			msg   sql.NullString
		)
		if err := rows.Scan(&r.Label, &r.K, &score, &msg); err != nil {
			rows.Close()
			return nil, err
		}
		r.Score, r.Error = fromNull(score), msg.String
		reports = append(reports, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range reports {
		if err := s.loadTopicDetail(ctx, runID, &reports[i]); err != nil {
			return nil, err
		}
	}
	return reports, nil
}

func (s *sqliteStore) loadTopicDetail(ctx context.Context, runID string, r *store.TopicReport) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT k, score FROM topic_trials WHERE run_id = ? AND label = ? ORDER BY k`, runID, r.Label)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			tr    store.Trial
			score sql.NullFloat64
		)
		if err := rows.Scan(&tr.K, &score); err != nil {
			rows.Close()
			return err
		}
		tr.Score = fromNull(score)
		r.Trials = append(r.Trials, tr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT sentence_idx, text, cluster FROM topic_members WHERE run_id = ? AND label = ? ORDER BY sentence_idx`, runID, r.Label)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var m store.TopicMember
		if err := rows.Scan(&m.SentenceIndex, &m.Text, &m.Cluster); err != nil {
			return err
		}
		r.Members = append(r.Members, m)
	}
	return rows.Err()
}

// replace deletes a run's rows and inserts new ones in one transaction.
func (s *sqliteStore) replace(ctx context.Context, del, runID, insert string, n int, args func(int) ([]any, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, del, runID); err != nil {
		return err
	}
	if err := insertAll(ctx, tx, insert, n, args); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) batch(ctx context.Context, insert string, n int, args func(int) ([]any, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertAll(ctx, tx, insert, n, args); err != nil {
		return err
	}
	return tx.Commit()
}

func insertAll(ctx context.Context, tx *sql.Tx, insert string, n int, args func(int) ([]any, error)) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		a, err := args(i)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, a...); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
