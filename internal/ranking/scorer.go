package ranking

import (
	"context"
	"math"

	"github.com/hyperjump/analogyeval/internal/analogy"
	"github.com/hyperjump/analogyeval/internal/parallel"
	"github.com/hyperjump/analogyeval/internal/vector"
)

const cancelCheckInterval = 4096

// entryStats caches, per lexicon position, the component sum and squared norm
// needed to compute cosines of +1-shifted candidates without copying them.
type entryStats struct {
	sum    []float64
	sqNorm []float64
}

func computeEntryStats(ctx context.Context, store *vector.Store, exec *parallel.Executor) (*entryStats, error) {
	type stat struct{ sum, sq float64 }
	raw := make([]stat, store.Size())
	err := parallel.Fill(ctx, exec, raw, func(i int) (stat, error) {
		v := store.At(i)
		sq, err := v.Dot(v)
		if err != nil {
			return stat{}, err
		}
		return stat{sum: v.Sum(), sq: sq}, nil
	})
	if err != nil {
		return nil, err
	}
	s := &entryStats{sum: make([]float64, len(raw)), sqNorm: make([]float64, len(raw))}
	for i, r := range raw {
		s.sum[i] = r.sum
		s.sqNorm[i] = r.sq
	}
	return s, nil
}

// shifted is a 3CosMul operand with ShiftOffset added to every component.
type shifted struct {
	vec  vector.View
	sum  float64
	norm float64
}

func shift(v vector.View) shifted {
	c := v.Clone()
	c.AddScalar(ShiftOffset)
	view := c.View()
	return shifted{vec: view, sum: view.Sum(), norm: view.Norm()}
}

// query holds the worker-local operands for one analogy. Nothing in it aliases
// mutable store memory.
type query struct {
	store      *vector.Store
	stats      *entryStats
	exclude    [3]int
	w3         vector.View
	hypothesis vector.View
	s1, s2, s3 shifted
	dims       float64
	target     scores
}

// newQuery prepares a for scoring. ok is false when any term is outside the store.
func newQuery(store *vector.Store, stats *entryStats, a analogy.Analogy) (q *query, ok bool, err error) {
	target := store.Index(a.W4)
	if target < 0 {
		return nil, false, nil
	}
	q, ok, err = newOperands(store, stats, a.W1, a.W2, a.W3)
	if !ok || err != nil {
		return nil, ok, err
	}
	// The target goes through the same path as every candidate, so its own
	// store entry ties with it instead of outranking it.
	q.target, err = q.score(target)
	if err != nil {
		return nil, false, err
	}
	return q, true, nil
}

// newOperands prepares the three given terms; ok is false when any is outside the store.
func newOperands(store *vector.Store, stats *entryStats, t1, t2, t3 string) (q *query, ok bool, err error) {
	idx := [3]int{store.Index(t1), store.Index(t2), store.Index(t3)}
	for _, i := range idx {
		if i < 0 {
			return nil, false, nil
		}
	}
	w1, w2, w3 := store.At(idx[0]), store.At(idx[1]), store.At(idx[2])

	hyp := w3.Clone()
	if err := hyp.Add(w2); err != nil {
		return nil, false, err
	}
	if err := hyp.Sub(w1); err != nil {
		return nil, false, err
	}

	q = &query{
		store:      store,
		stats:      stats,
		exclude:    [3]int{idx[0], idx[1], idx[2]},
		w3:         w3,
		hypothesis: hyp.View(),
		s1:         shift(w1),
		s2:         shift(w2),
		s3:         shift(w3),
		dims:       float64(store.Dimensions()),
	}
	return q, true, nil
}

func (q *query) excluded(i int) bool {
	return i == q.exclude[0] || i == q.exclude[1] || i == q.exclude[2]
}

// shiftedCos returns cos(c+ShiftOffset, x) for the store entry at i, using
// dot(c+k, x) = dot(c, x) + k*sum(x) and |c+k|^2 = |c|^2 + 2k*sum(c) + k^2*D.
func (q *query) shiftedCos(c vector.View, i int, x shifted) (float64, error) {
	d, err := c.Dot(x.vec)
	if err != nil {
		return 0, err
	}
	num := d + ShiftOffset*x.sum
	normSq := q.stats.sqNorm[i] + 2*ShiftOffset*q.stats.sum[i] + ShiftOffset*ShiftOffset*q.dims
	if normSq <= 0 || x.norm == 0 {
		return 0, nil
	}
	return num / (math.Sqrt(normSq) * x.norm), nil
}

// score computes every method's score for the store entry at i.
func (q *query) score(i int) (scores, error) {
	c := q.store.At(i)
	var s scores
	var err error
	if s.baseline, err = q.w3.Dot(c); err != nil {
		return s, err
	}
	if s.additive, err = q.hypothesis.Dot(c); err != nil {
		return s, err
	}
	cos1, err := q.shiftedCos(c, i, q.s1)
	if err != nil {
		return s, err
	}
	cos2, err := q.shiftedCos(c, i, q.s2)
	if err != nil {
		return s, err
	}
	cos3, err := q.shiftedCos(c, i, q.s3)
	if err != nil {
		return s, err
	}
	s.multiplicative = cos3 * cos2 / (MulSmoothing + cos1)
	return s, nil
}

// scan counts, per method, the candidates in [begin,end) that strictly beat the target.
func (q *query) scan(ctx context.Context, begin, end int) (Ranks, error) {
	var beaten Ranks
	for i := begin; i < end; i++ {
		if (i-begin)%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Ranks{}, err
			}
		}
		if q.excluded(i) {
			continue
		}
		s, err := q.score(i)
		if err != nil {
			return Ranks{}, err
		}
		beaten = beaten.plus(s.beats(q.target))
	}
	return beaten, nil
}
