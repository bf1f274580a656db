// Package topics groups the sentences of one distortion into topics with
// seeded k-means, choosing the number of clusters by Davies–Bouldin score.
package topics

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/cogdist/internal/logging"
	"github.com/cognicore/cogdist/pkg/cogdist/embed"
)

// SearchConfig controls the model-order search.
type SearchConfig struct {
	KMin          int    `yaml:"k_min"`
	KMax          int    `yaml:"k_max"`
	KStep         int    `yaml:"k_step"`
	Seed          uint64 `yaml:"seed"`
	SweepRestarts int    `yaml:"sweep_restarts"`
	FinalRestarts int    `yaml:"final_restarts"`
	MaxIter       int    `yaml:"max_iter"`
	MinSentences  int    `yaml:"min_sentences"`
	Workers       int    `yaml:"workers"` // 0 uses GOMAXPROCS
}

// DefaultSearchConfig returns the stock sweep: k = 10, 20, ..., 100.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		KMin:          10,
		KMax:          100,
		KStep:         10,
		Seed:          42,
		SweepRestarts: 5,
		FinalRestarts: 10,
		MaxIter:       300,
		MinSentences:  20,
	}
}

// Validate rejects configurations that cannot produce a scored partition.
func (c SearchConfig) Validate() error {
	switch {
	case c.KMin < 2:
		return fmt.Errorf("k_min must be at least 2, got %d", c.KMin)
	case c.KStep < 1:
		return fmt.Errorf("k_step must be at least 1, got %d", c.KStep)
	case c.KMax < c.KMin:
		return fmt.Errorf("k_max (%d) must not be below k_min (%d)", c.KMax, c.KMin)
	case c.MinSentences < 0:
		return fmt.Errorf("min_sentences must not be negative, got %d", c.MinSentences)
	}
	return nil
}

// Candidates returns the k values worth trying for n points: the configured
// grid, stopping at the first k that is not below n.
func (c SearchConfig) Candidates(n int) []int {
	var ks []int
	for k := c.KMin; k <= c.KMax; k += c.KStep {
		if k >= n {
			break
		}
		ks = append(ks, k)
	}
	return ks
}

// InsufficientDataError means a distortion had too few sentences to cluster.
type InsufficientDataError struct {
	N    int // sentences available
	Min  int // configured minimum
	KMin int
}

func (e *InsufficientDataError) Error() string {
	if e.N < e.Min {
		return fmt.Sprintf("insufficient data for clustering: %d sentences, need at least %d", e.N, e.Min)
	}
	return fmt.Sprintf("insufficient data for clustering: %d sentences leave no k >= %d below n", e.N, e.KMin)
}

// Trial is one scored k from the sweep.
type Trial struct {
	K     int
	Score float64
}

// Result is the chosen partition and the full search trace.
type Result struct {
	K           int
	Score       float64 // sweep Davies–Bouldin score that selected K
	FinalScore  float64 // Davies–Bouldin of the refit partition
	Assignments []int   // cluster per input sentence, in input order
	Sizes       []int
	Trace       []Trial // ascending k
}

// Search sweeps the candidate ks in parallel and returns the trace and the
// selected trial. When no trial scores finite, the smallest candidate k is
// selected and its non-finite score kept.
func Search(ctx context.Context, points [][]float64, cfg SearchConfig) (Trial, []Trial, error) {
	ks := cfg.Candidates(len(points))
	if len(ks) == 0 {
		return Trial{}, nil, &InsufficientDataError{N: len(points), Min: cfg.MinSentences, KMin: cfg.KMin}
	}

	trace := make([]Trial, len(ks))
	g, gctx := errgroup.WithContext(ctx)
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for i, k := range ks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m := KMeans(points, k, cfg.SweepRestarts, cfg.MaxIter, cfg.Seed)
			trace[i] = Trial{K: k, Score: DaviesBouldin(points, m.Assignments, k)}
			logging.Debug("topic search trial", "k", k, "score", trace[i].Score)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Trial{}, nil, err
	}

	best, ok := selectBest(trace)
	if !ok {
		// Every partition collapsed into one cluster, e.g. identical vectors.
		best = trace[0]
		logging.Warn("no finite topic score, using smallest k", "k", best.K, "n", len(points))
	}
	return best, trace, nil
}

// selectBest returns the lowest-scoring trial. trace is in ascending k, so
// on ties the smallest k wins. Non-finite scores never win.
func selectBest(trace []Trial) (Trial, bool) {
	best, found := Trial{}, false
	for _, t := range trace {
		if math.IsNaN(t.Score) || math.IsInf(t.Score, 0) {
			continue
		}
		if !found || t.Score < best.Score {
			best, found = t, true
		}
	}
	return best, found
}

// Fit runs the search over pre-computed vectors and refits the chosen k.
func Fit(ctx context.Context, points [][]float64, cfg SearchConfig) (*Result, error) {
	if len(points) < cfg.MinSentences {
		return nil, &InsufficientDataError{N: len(points), Min: cfg.MinSentences, KMin: cfg.KMin}
	}
	best, trace, err := Search(ctx, points, cfg)
	if err != nil {
		return nil, err
	}

	m := KMeans(points, best.K, cfg.FinalRestarts, cfg.MaxIter, cfg.Seed)
	sizes := make([]int, best.K)
	for _, c := range m.Assignments {
		sizes[c]++
	}
	res := &Result{
		K:           best.K,
		Score:       best.Score,
		FinalScore:  DaviesBouldin(points, m.Assignments, best.K),
		Assignments: m.Assignments,
		Sizes:       sizes,
		Trace:       trace,
	}
	logging.Info("selected topic count", "k", res.K, "score", res.Score, "final_score", res.FinalScore, "n", len(points))
	return res, nil
}

// Cluster embeds texts and fits topics over them.
func Cluster(ctx context.Context, texts []string, emb embed.Embedder, cfg SearchConfig) (*Result, error) {
	if len(texts) < cfg.MinSentences {
		return nil, &InsufficientDataError{N: len(texts), Min: cfg.MinSentences, KMin: cfg.KMin}
	}
	vecs, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed sentences: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d sentences", len(vecs), len(texts))
	}
	points := make([][]float64, len(vecs))
	for i, v := range vecs {
		points[i] = make([]float64, len(v))
		for d, x := range v {
			points[i][d] = float64(x)
		}
	}
	return Fit(ctx, points, cfg)
}
