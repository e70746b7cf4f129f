package ranking

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hyperjump/analogyeval/internal/analogy"
	"github.com/hyperjump/analogyeval/internal/parallel"
	"github.com/hyperjump/analogyeval/internal/vector"
	"go.uber.org/zap"
)

// Evaluator ranks analogy targets against every vector in a store. The store
// is only read; callers must not mutate it while an evaluation runs.
type Evaluator struct {
	store  *vector.Store
	exec   *parallel.Executor
	config *Config
	logger *zap.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used for progress output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithConfig overrides the default evaluator config.
func WithConfig(c *Config) Option {
	return func(e *Evaluator) {
		if c != nil {
			e.config = c
		}
	}
}

// NewEvaluator creates an evaluator over store. A nil executor uses parallel.DefaultWorkers.
func NewEvaluator(store *vector.Store, exec *parallel.Executor, opts ...Option) *Evaluator {
	if exec == nil {
		exec = parallel.New(0)
	}
	e := &Evaluator{
		store:  store,
		exec:   exec,
		config: DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.config.ApplyDefaults()
	return e
}

// EvaluateSet ranks every analogy of set, or only those of category when it is non-empty.
func (e *Evaluator) EvaluateSet(ctx context.Context, set *analogy.Set, category string) (Result, error) {
	list := set.Analogies()
	if category != "" {
		members, ok := set.Category(category)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
		}
		list = members
	}
	return e.Evaluate(ctx, list)
}

// Evaluate ranks each analogy in list. Analogies with a term outside the store
// get the store size for every method. No partial result is returned on error.
func (e *Evaluator) Evaluate(ctx context.Context, list []analogy.Analogy) (Result, error) {
	stats, err := computeEntryStats(ctx, e.store, e.exec)
	if err != nil {
		return nil, fmt.Errorf("prepare vocabulary: %w", err)
	}

	ranks := make([]Ranks, len(list))
	var done atomic.Int64
	progress := func() {
		n := done.Add(1)
		if n%int64(e.config.ProgressInterval) == 0 {
			e.logger.Info("analogy ranks calculated", zap.Int64("done", n), zap.Int("total", len(list)))
		}
	}

	if len(list) >= e.exec.Workers {
		err = parallel.Fill(ctx, e.exec, ranks, func(i int) (Ranks, error) {
			r, err := e.rank(ctx, stats, list[i], false)
			if err == nil {
				progress()
			}
			return r, err
		})
	} else {
		for i, a := range list {
			if ranks[i], err = e.rank(ctx, stats, a, true); err != nil {
				break
			}
			progress()
		}
	}
	if err != nil {
		return nil, err
	}

	result := make(Result, len(list))
	for i, a := range list {
		result[a] = ranks[i]
	}
	return result, nil
}

// Rank computes the ranks of a single analogy, splitting the scan across workers.
func (e *Evaluator) Rank(ctx context.Context, a analogy.Analogy) (Ranks, error) {
	stats, err := computeEntryStats(ctx, e.store, e.exec)
	if err != nil {
		return Ranks{}, fmt.Errorf("prepare vocabulary: %w", err)
	}
	return e.rank(ctx, stats, a, true)
}

func (e *Evaluator) rank(ctx context.Context, stats *entryStats, a analogy.Analogy, split bool) (Ranks, error) {
	q, ok, err := newQuery(e.store, stats, a)
	if err != nil {
		return Ranks{}, fmt.Errorf("analogy %s: %w", a, err)
	}
	if !ok {
		worst := e.store.Size()
		return Ranks{Baseline: worst, Additive: worst, Multiplicative: worst}, nil
	}

	base := Ranks{Baseline: 1, Additive: 1, Multiplicative: 1}
	if !split {
		beaten, err := q.scan(ctx, 0, e.store.Size())
		if err != nil {
			return Ranks{}, err
		}
		return base.plus(beaten), nil
	}

	partial := make([]Ranks, e.exec.Workers)
	err = e.exec.Run(ctx, e.store.Size(), func(ctx context.Context, r parallel.Range) error {
		beaten, err := q.scan(ctx, r.Begin, r.End)
		if err != nil {
			return err
		}
		partial[r.Index] = beaten
		return nil
	})
	if err != nil {
		return Ranks{}, err
	}
	for _, p := range partial {
		base = base.plus(p)
	}
	return base, nil
}
