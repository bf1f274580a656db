// Command cogdist labels social media sentences with cognitive distortion
// patterns and writes trend, correlation and topic tables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cognicore/cogdist/internal/logging"
	"github.com/cognicore/cogdist/pkg/cogdist"
	"github.com/cognicore/cogdist/pkg/cogdist/config"
	"github.com/cognicore/cogdist/pkg/cogdist/export"
	"github.com/cognicore/cogdist/pkg/cogdist/ingest"
	"github.com/cognicore/cogdist/pkg/cogdist/store"
	"github.com/cognicore/cogdist/pkg/cogdist/store/sqlite"
)

type options struct {
	mode       string
	configPath string
	posts      string
	comments   string
	jsonl      string
	rows       int
	clean      bool
	outDir     string
	dbPath     string
}

func main() {
	var (
		opts     options
		logLevel string
	)
	flag.StringVar(&opts.mode, "mode", "all", "Analysis mode: all, topic_model or full")
	flag.StringVar(&opts.configPath, "config", "", "YAML config file (optional)")
	flag.StringVar(&opts.posts, "posts", "", "Posts CSV export")
	flag.StringVar(&opts.comments, "comments", "", "Comments CSV export")
	flag.StringVar(&opts.jsonl, "jsonl", "", "JSONL records instead of CSV exports")
	flag.IntVar(&opts.rows, "rows", 0, "Rows to read per input file (0 = all)")
	flag.BoolVar(&opts.clean, "clean", false, "Strip HTML markup from CSV text")
	flag.StringVar(&opts.outDir, "out", "", "Output directory (overrides config)")
	flag.StringVar(&opts.dbPath, "db", "", "SQLite database for run results (overrides config)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	if err := logging.Init(os.Stderr, logLevel); err != nil {
		logging.Warn("unknown log level, using info", "level", logLevel)
	}
	if opts.posts == "" && opts.comments == "" && opts.jsonl == "" {
		logging.Fatal("--posts, --comments or --jsonl required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, err := run(ctx, opts)
	if err != nil {
		logging.Fatal("run failed", "err", err)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}

// run executes one analysis and returns the written file paths.
func run(ctx context.Context, opts options) ([]string, error) {
	mode, err := cogdist.ParseMode(opts.mode)
	if err != nil {
		return nil, err
	}

	cfg := config.Default()
	if opts.configPath != "" {
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}
	if opts.outDir != "" {
		cfg.Output.Dir = opts.outDir
	}
	if opts.dbPath != "" {
		cfg.Output.DB = opts.dbPath
	}

	loader := config.Loader{Config: cfg}
	comp, err := loader.Load()
	if err != nil {
		return nil, err
	}

	records, err := loadRecords(opts)
	if err != nil {
		return nil, err
	}
	sentences := ingest.NewPipeline(comp.Splitter).Sentences(records.Records)
	logging.Info("sentences ready", "records", len(records.Records), "sentences", len(sentences), "warnings", len(records.Warnings))
	if len(sentences) == 0 {
		return nil, errors.New("no sentences to analyze")
	}

	var st store.Store
	if cfg.Output.DB != "" {
		if st, err = sqlite.OpenSQLite(ctx, cfg.Output.DB); err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
	}

	engine, err := cogdist.New(cogdist.Options{
		Detector:    comp.Detector,
		Embedder:    comp.Embedder,
		Store:       st,
		Period:      comp.Period,
		SpikeWindow: cfg.SpikeWindow,
		Reference:   comp.Reference,
		Search:      cfg.Clusters,
	})
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, err
	}
	defer engine.Close()

	rep, err := engine.Run(ctx, sentences, mode)
	if err != nil {
		return nil, err
	}

	dir, err := export.NewDir(cfg.Output.Dir)
	if err != nil {
		return nil, err
	}
	paths, err := cogdist.Export(dir, rep)
	if err != nil {
		return paths, err
	}

	if st != nil {
		snapshot, err := cfg.YAML()
		if err != nil {
			return paths, err
		}
		r, err := engine.Persist(ctx, rep, snapshot)
		if err != nil {
			return paths, fmt.Errorf("persist run: %w", err)
		}
		logging.Info("results stored", "db", cfg.Output.DB, "run", r.ID)
	}
	return paths, nil
}

func loadRecords(opts options) (ingest.LoadResult, error) {
	if opts.jsonl != "" {
		return ingest.LoadJSONLFile(opts.jsonl, opts.rows)
	}
	return ingest.LoadPostsAndComments(opts.posts, opts.comments, ingest.CSVOptions{
		Limit: opts.rows,
		Clean: opts.clean,
	})
}
