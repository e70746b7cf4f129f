package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/analogyeval/internal/analogy"
	"github.com/hyperjump/analogyeval/internal/config"
	"github.com/hyperjump/analogyeval/internal/embedding"
	"github.com/hyperjump/analogyeval/internal/fileid"
	"github.com/hyperjump/analogyeval/internal/models"
	"github.com/hyperjump/analogyeval/internal/parallel"
	"github.com/hyperjump/analogyeval/internal/ranking"
	"github.com/hyperjump/analogyeval/internal/report"
	"github.com/hyperjump/analogyeval/internal/similarity"
	"github.com/hyperjump/analogyeval/internal/storage"
	"github.com/hyperjump/analogyeval/internal/watcher"
)

type evaluateFlags struct {
	embeddings    string
	format        string
	vocab         string
	analogies     string
	topK          int
	workers       int
	caseSensitive bool
	keepMissing   bool
	category      string
	measures      []string
	centroids     bool
	output        string
	outputFormat  string
	db            string
	noNormalize   bool
	watch         bool
}

func evaluateCmd(g *globalOptions) *cobra.Command {
	f := &evaluateFlags{}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Rank every analogy against the whole vocabulary and write a report",
		Long: `Loads an embedding table and an analogy file, computes the baseline,
additive and multiplicative ranks of each analogy's fourth term plus the
selected similarity measures, writes a report and prints a summary.

Examples:
  analogyeval evaluate --embeddings GoogleNews.bin --analogies questions-words.txt
  analogyeval evaluate --embeddings vectors.txt --analogies q.txt --measures cos,ranks,w2w4 --output-format xlsx
  analogyeval evaluate --config analogyeval.yaml --db runs.db --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			applyEvaluateFlags(cmd, f, cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := newPipeline(cfg, logger, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer p.Close()

			if !f.watch {
				_, err := p.Run(ctx)
				return err
			}
			return p.Watch(ctx)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.embeddings, "embeddings", "", "embedding table path")
	fl.StringVar(&f.format, "format", "", "embedding format: word2vec, text, glove or snapshot (detected when empty)")
	fl.StringVar(&f.vocab, "vocab", "", "GloVe vocabulary file (selects the glove format)")
	fl.StringVar(&f.analogies, "analogies", "", "analogy file path")
	fl.IntVar(&f.topK, "top-k", 0, "keep only the K most frequent words (0 keeps all)")
	fl.IntVar(&f.workers, "workers", config.DefaultWorkers, "number of parallel workers")
	fl.BoolVar(&f.caseSensitive, "case-sensitive", false, "keep analogy tokens as written instead of lower-casing")
	fl.BoolVar(&f.keepMissing, "keep-missing", false, "keep analogies with terms outside the vocabulary (they rank last)")
	fl.StringVar(&f.category, "category", "", "evaluate only this category (the full header line)")
	fl.StringSliceVar(&f.measures, "measures", report.DefaultMeasures, "report columns: cos, ranks, w3w4, w2w4, w1w2, w1w4")
	fl.BoolVar(&f.centroids, "centroids", false, "also compute per-category relation centroids")
	fl.StringVar(&f.output, "output", "", "report path (default analogy_experiment_stats_<timestamp>.<ext>)")
	fl.StringVar(&f.outputFormat, "output-format", "", "report format: csv, xlsx, json or text")
	fl.StringVar(&f.db, "db", "", "store the run in this SQLite database")
	fl.BoolVar(&f.noNormalize, "no-normalize", false, "keep vectors at their stored length")
	fl.BoolVar(&f.watch, "watch", false, "re-run whenever the analogy file (or embeddings) change")
	return cmd
}

// applyEvaluateFlags overrides config values with flags the user set explicitly.
func applyEvaluateFlags(cmd *cobra.Command, f *evaluateFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("embeddings") {
		cfg.Embeddings.Path = f.embeddings
	}
	if changed("format") {
		cfg.Embeddings.Format = f.format
	}
	if changed("vocab") {
		cfg.Embeddings.VocabPath = f.vocab
	}
	if changed("top-k") {
		cfg.Embeddings.TopK = f.topK
	}
	if changed("no-normalize") {
		normalize := !f.noNormalize
		cfg.Embeddings.Normalize = &normalize
	}
	if changed("analogies") {
		cfg.Analogies.Path = f.analogies
	}
	if changed("case-sensitive") {
		cfg.Analogies.CaseSensitive = f.caseSensitive
	}
	if changed("keep-missing") {
		cfg.Analogies.KeepMissing = f.keepMissing
	}
	if changed("category") {
		cfg.Analogies.Category = f.category
	}
	if changed("workers") {
		cfg.Evaluation.Workers = f.workers
	}
	if changed("measures") {
		cfg.Evaluation.Measures = f.measures
	}
	if changed("centroids") {
		cfg.Evaluation.Centroids = f.centroids
	}
	if changed("output") {
		cfg.Output.Path = f.output
	}
	if changed("output-format") {
		cfg.Output.Format = f.outputFormat
	}
	if changed("db") {
		cfg.Storage.DatabasePath = f.db
	}
}

// pipeline runs evaluations for one configuration. Loaded tables are cached so
// watch re-runs only reload embeddings when that file changed.
type pipeline struct {
	cfg      *config.Config
	logger   *zap.Logger
	out      io.Writer
	cache    *embedding.Cache
	store    storage.Storage
	measures []string
	format   report.Format
	// debounce overrides the watcher's settle time when positive.
	debounce time.Duration
}

func newPipeline(cfg *config.Config, logger *zap.Logger, out io.Writer) (*pipeline, error) {
	if cfg.Embeddings.Path == "" {
		return nil, errors.New("no embeddings given (--embeddings or embeddings.path)")
	}
	if cfg.Analogies.Path == "" {
		return nil, errors.New("no analogy file given (--analogies or analogies.path)")
	}
	if cfg.Evaluation.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.Evaluation.Workers)
	}
	measures, err := report.ParseMeasures(cfg.Evaluation.Measures)
	if err != nil {
		return nil, err
	}
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	p := &pipeline{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		cache:    embedding.NewCache(cfg.Embeddings.CacheSize),
		measures: measures,
		format:   format,
	}
	if cfg.Storage.DatabasePath != "" {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, err
		}
		p.store = store
	}
	return p, nil
}

func (p *pipeline) Close() error {
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}

func (p *pipeline) embeddingOptions() embedding.Options {
	e := p.cfg.Embeddings
	return embedding.Options{
		Path:      e.Path,
		VocabPath: e.VocabPath,
		Format:    embedding.Format(e.Format),
		Normalize: e.NormalizeOrDefault(),
		TopK:      e.TopK,
		Logger:    p.logger,
	}
}

func (p *pipeline) wants(measure string) bool {
	for _, m := range p.measures {
		if m == measure {
			return true
		}
	}
	return false
}

// Run performs one evaluation, writes its report, optionally stores it and
// prints the text summary.
func (p *pipeline) Run(ctx context.Context) (*models.RunReport, error) {
	start := time.Now()
	opts := p.embeddingOptions()
	if opts.Format == "" {
		opts.Format = embedding.DetectFormat(opts.Path, opts.VocabPath)
	}
	embeddingsID, err := fileid.InputID(opts.Path)
	if err != nil {
		return nil, err
	}
	key, err := embedding.InputKey(opts)
	if err != nil {
		return nil, err
	}
	store, err := p.cache.Load(ctx, key, opts)
	if err != nil {
		return nil, err
	}

	a := p.cfg.Analogies
	parseOpts := analogy.ParseOptions{
		CaseSensitive: a.CaseSensitive,
		Marker:        a.CategoryMarker,
		Logger:        p.logger,
	}
	if !a.KeepMissing {
		parseOpts.Vocabulary = store
	}
	set, stats, err := analogy.ParseFile(a.Path, parseOpts)
	if err != nil {
		return nil, err
	}
	p.logger.Info("analogies parsed",
		zap.String("path", a.Path),
		zap.Int("kept", stats.Kept),
		zap.Int("dropped", stats.Dropped),
		zap.Int("malformed", stats.Malformed),
		zap.Int("categories", stats.Categories),
	)
	if a.Category != "" {
		members, ok := set.Category(a.Category)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ranking.ErrUnknownCategory, a.Category)
		}
		set = analogy.NewCategorizedSet([]string{a.Category}, map[string][]analogy.Analogy{a.Category: members})
	}
	analogiesID, err := fileid.ContentID(a.Path)
	if err != nil {
		return nil, err
	}

	exec := parallel.New(p.cfg.Evaluation.Workers)
	in := report.Input{Set: set, Similarities: map[similarity.Measure]similarity.Scores{}}
	if p.wants(report.MeasureRanks) {
		evaluator := ranking.NewEvaluator(store, exec,
			ranking.WithLogger(p.logger),
			ranking.WithConfig(p.cfg.Evaluation.Ranking()),
		)
		if in.Ranks, err = evaluator.Evaluate(ctx, set.Analogies()); err != nil {
			return nil, err
		}
	}
	reporter := similarity.NewReporter(store, exec, p.logger)
	for _, name := range p.measures {
		m, ok := similarity.ParseMeasure(name)
		if !ok {
			continue
		}
		if in.Similarities[m], err = reporter.Measure(ctx, set.Analogies(), m); err != nil {
			return nil, err
		}
	}
	if p.cfg.Evaluation.Centroids {
		if in.Centroids, err = reporter.Centroids(ctx, set); err != nil {
			return nil, err
		}
	}

	run := models.NewRun()
	run.Embeddings = opts.Path
	run.EmbeddingsID = embeddingsID
	run.Format = string(opts.Format)
	run.Analogies = a.Path
	run.AnalogiesID = analogiesID
	run.Category = a.Category
	run.Measures = p.measures
	run.Workers = exec.Workers
	run.TopK = opts.TopK
	run.Normalized = opts.Normalize
	run.CaseSensitive = a.CaseSensitive
	run.VocabularySize = store.Size()
	run.Dimensions = store.Dimensions()
	run.AnalogyCount = set.Len()
	rep := report.Assemble(run, in)
	run.DurationMS = time.Since(start).Milliseconds()

	path := p.cfg.Output.Path
	if path == "" {
		path = filepath.Join(p.cfg.Output.Dir, report.DefaultFileName(run, p.format))
	}
	if err := report.WriteFile(path, rep, p.format); err != nil {
		return nil, err
	}
	p.logger.Info("report written", zap.String("path", path), zap.String("format", string(p.format)))

	if p.store != nil {
		if err := p.store.CreateRun(ctx, rep); err != nil {
			return nil, fmt.Errorf("store run: %w", err)
		}
		p.logger.Info("run stored", zap.String("id", run.ID), zap.String("db", p.cfg.Storage.DatabasePath))
	}
	if err := report.Write(p.out, rep, report.FormatText); err != nil {
		return nil, err
	}
	return rep, nil
}

// Watch runs once, then again after every settled change to the inputs until ctx ends.
func (p *pipeline) Watch(ctx context.Context) error {
	if _, err := p.Run(ctx); err != nil {
		p.logger.Error("evaluation failed", zap.Error(err))
	}

	changes := make(chan []string, 1)
	files := []string{p.cfg.Analogies.Path, p.cfg.Embeddings.Path, p.cfg.Embeddings.VocabPath}
	w, err := watcher.New(files, func(paths []string) {
		select {
		case changes <- paths:
		default:
			// a re-run is already queued
		}
	}, watcher.WithLogger(p.logger), watcher.WithDebounce(p.debounce))
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()
	p.logger.Info("watching inputs for changes", zap.Strings("files", w.Files()))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down...")
			return nil
		case paths := <-changes:
			p.logger.Info("inputs changed, re-running", zap.Strings("paths", paths))
			if _, err := p.Run(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				p.logger.Error("evaluation failed", zap.Error(err))
			}
		}
	}
}
