package ranking

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/analogyeval/internal/analogy"
	"github.com/hyperjump/analogyeval/internal/parallel"
	"github.com/hyperjump/analogyeval/internal/vector"
)

func buildStore(t *testing.T, dims int, entries ...any) *vector.Store {
	t.Helper()
	s, err := vector.NewStore(dims)
	require.NoError(t, err)
	for i := 0; i < len(entries); i += 2 {
		_, err := s.Add(entries[i].(string), entries[i+1].([]float32))
		require.NoError(t, err)
	}
	return s
}

var invSqrt2 = float32(1 / math.Sqrt2)

// workedStore has A=(1,0), B=(0,1), C=(1,1)/sqrt2 and D=(0,1), a duplicate of B.
func workedStore(t *testing.T, extra ...any) *vector.Store {
	base := []any{
		"a", []float32{1, 0},
		"b", []float32{0, 1},
		"c", []float32{invSqrt2, invSqrt2},
		"d", []float32{0, 1},
	}
	return buildStore(t, 2, append(base, extra...)...)
}

func TestEvaluator_WorkedExample(t *testing.T) {
	store := workedStore(t)
	stats, err := computeEntryStats(context.Background(), store, parallel.New(2))
	require.NoError(t, err)

	a := analogy.Analogy{W1: "a", W2: "b", W3: "c", W4: "d"}
	q, ok, err := newQuery(store, stats, a)
	require.NoError(t, err)
	require.True(t, ok)

	c, _ := store.Get("c")
	d, _ := store.Get("d")
	wantBase, _ := c.Dot(d)
	assert.Equal(t, wantBase, q.target.baseline)
	assert.InDelta(t, 1/math.Sqrt2, q.target.baseline, 1e-6)
	assert.InDelta(t, 1/math.Sqrt2+1, q.target.additive, 1e-6)

	for _, key := range []string{"a", "b", "c"} {
		assert.True(t, q.excluded(store.Index(key)), key)
	}
	assert.False(t, q.excluded(store.Index("d")))

	ranks, err := NewEvaluator(store, parallel.New(3)).Rank(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, Ranks{Baseline: 1, Additive: 1, Multiplicative: 1}, ranks)
}

func TestEvaluator_DuplicateOfOperandIsNotExcluded(t *testing.T) {
	// c2 equals c by value but is a distinct key, so it stays in the scan and
	// beats the target under the baseline score.
	store := workedStore(t, "c2", []float32{invSqrt2, invSqrt2})
	a := analogy.Analogy{W1: "a", W2: "b", W3: "c", W4: "d"}
	ranks, err := NewEvaluator(store, parallel.New(1)).Rank(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 2, ranks.Baseline)
	assert.Equal(t, 1, ranks.Additive)
}

func TestEvaluator_TiesDoNotIncrementRank(t *testing.T) {
	store := buildStore(t, 3,
		"w1", []float32{0.2, 0.1, 0.9},
		"w2", []float32{0.5, 0.5, 0.1},
		"w3", []float32{0.3, 0.9, 0.2},
		"w4", []float32{0.7, 0.6, 0.1},
		"dup1", []float32{0.7, 0.6, 0.1},
		"dup2", []float32{0.7, 0.6, 0.1},
	)
	a := analogy.Analogy{W1: "w1", W2: "w2", W3: "w3", W4: "w4"}
	for _, workers := range []int{1, 2, 6} {
		ranks, err := NewEvaluator(store, parallel.New(workers)).Rank(context.Background(), a)
		require.NoError(t, err)
		assert.Equal(t, Ranks{Baseline: 1, Additive: 1, Multiplicative: 1}, ranks, "workers=%d", workers)
	}
}

func TestEvaluator_MissingTermsGetWorstRank(t *testing.T) {
	store := workedStore(t)
	list := []analogy.Analogy{
		{W1: "a", W2: "b", W3: "c", W4: "missing"},
		{W1: "nope", W2: "b", W3: "c", W4: "d"},
	}
	result, err := NewEvaluator(store, parallel.New(2)).Evaluate(context.Background(), list)
	require.NoError(t, err)
	worst := Ranks{Baseline: 4, Additive: 4, Multiplicative: 4}
	for _, a := range list {
		assert.Equal(t, worst, result[a], a.String())
	}
}

func TestEvaluator_EvaluateSetCategory(t *testing.T) {
	store := workedStore(t)
	set := analogy.NewCategorizedSet([]string{"x", "y"}, map[string][]analogy.Analogy{
		"x": {{W1: "a", W2: "b", W3: "c", W4: "d"}},
		"y": {{W1: "b", W2: "a", W3: "d", W4: "c"}},
	})
	ev := NewEvaluator(store, parallel.New(1))
	result, err := ev.EvaluateSet(context.Background(), set, "y")
	require.NoError(t, err)
	assert.Len(t, result, 1)

	all, err := ev.EvaluateSet(context.Background(), set, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = ev.EvaluateSet(context.Background(), set, "nope")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestEvaluator_CancelledContext(t *testing.T) {
	store := workedStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := NewEvaluator(store, parallel.New(2)).Evaluate(ctx, []analogy.Analogy{{W1: "a", W2: "b", W3: "c", W4: "d"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func randomStore(t *testing.T, rng *rand.Rand, size, dims int) *vector.Store {
	t.Helper()
	s, err := vector.NewStore(dims)
	require.NoError(t, err)
	for i := 0; i < size; i++ {
		vals := make([]float32, dims)
		for j := range vals {
			vals[j] = float32(rng.NormFloat64())
		}
		_, err := s.Add(fmt.Sprintf("w%03d", i), vals)
		require.NoError(t, err)
	}
	s.NormalizeAll()
	return s
}

func randomAnalogies(rng *rand.Rand, size, n int) []analogy.Analogy {
	out := make([]analogy.Analogy, n)
	for i := range out {
		p := rng.Perm(size)
		out[i] = analogy.Analogy{
			W1: fmt.Sprintf("w%03d", p[0]),
			W2: fmt.Sprintf("w%03d", p[1]),
			W3: fmt.Sprintf("w%03d", p[2]),
			W4: fmt.Sprintf("w%03d", p[3]),
		}
	}
	return out
}

// referenceBounds recomputes ranks by copying and shifting every candidate. It
// returns the rank counting only candidates clearly above the target and the
// rank counting every candidate that could be above it within tolerance.
func referenceBounds(store *vector.Store, a analogy.Analogy) (low, high Ranks) {
	get := func(k string) []float64 {
		v, _ := store.Get(k)
		out := make([]float64, v.Dim())
		for i := range out {
			out[i] = float64(v.At(i))
		}
		return out
	}
	dot := func(x, y []float64) float64 {
		var s float64
		for i := range x {
			s += x[i] * y[i]
		}
		return s
	}
	cos := func(x, y []float64) float64 {
		nx, ny := math.Sqrt(dot(x, x)), math.Sqrt(dot(y, y))
		if nx == 0 || ny == 0 {
			return 0
		}
		return dot(x, y) / (nx * ny)
	}
	shiftOf := func(x []float64) []float64 {
		out := make([]float64, len(x))
		for i, v := range x {
			out[i] = v + 1
		}
		return out
	}
	w1, w2, w3, w4 := get(a.W1), get(a.W2), get(a.W3), get(a.W4)
	h := make([]float64, len(w1))
	for i := range h {
		h[i] = w3[i] + w2[i] - w1[i]
	}
	s1, s2, s3 := shiftOf(w1), shiftOf(w2), shiftOf(w3)
	mul := func(c []float64) float64 {
		cs := shiftOf(c)
		return cos(cs, s3) * cos(cs, s2) / (0.001 + cos(cs, s1))
	}
	target := [3]float64{dot(w3, w4), dot(h, w4), mul(w4)}

	const tol = 1e-4
	counts := func(c []float64, cmp func(score, target float64) bool, r *Ranks) {
		sc := [3]float64{dot(w3, c), dot(h, c), mul(c)}
		if cmp(sc[0], target[0]) {
			r.Baseline++
		}
		if cmp(sc[1], target[1]) {
			r.Additive++
		}
		if cmp(sc[2], target[2]) {
			r.Multiplicative++
		}
	}
	low = Ranks{1, 1, 1}
	high = Ranks{1, 1, 1}
	for _, k := range store.Keys() {
		if k == a.W1 || k == a.W2 || k == a.W3 {
			continue
		}
		c := get(k)
		counts(c, func(s, t float64) bool { return s > t+tol }, &low)
		counts(c, func(s, t float64) bool { return s > t-tol && k != a.W4 }, &high)
	}
	return low, high
}

func TestEvaluator_MatchesReferenceAndIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	store := randomStore(t, rng, 150, 8)
	list := randomAnalogies(rng, 150, 24)
	ctx := context.Background()

	one, err := NewEvaluator(store, parallel.New(1)).Evaluate(ctx, list)
	require.NoError(t, err)
	eight, err := NewEvaluator(store, parallel.New(8)).Evaluate(ctx, list)
	require.NoError(t, err)
	assert.Equal(t, one, eight)

	// Fewer analogies than workers splits each scan over the vocabulary.
	split, err := NewEvaluator(store, parallel.New(30)).Evaluate(ctx, list[:5])
	require.NoError(t, err)
	for _, a := range list[:5] {
		assert.Equal(t, one[a], split[a], a.String())
	}

	for _, a := range list {
		got := one[a]
		low, high := referenceBounds(store, a)
		for _, m := range Methods {
			r := got.Get(m)
			assert.GreaterOrEqual(t, r, 1)
			assert.LessOrEqual(t, r, store.Size())
			assert.GreaterOrEqual(t, r, low.Get(m), "%s %s", a, m)
			assert.LessOrEqual(t, r, high.Get(m), "%s %s", a, m)
		}
	}
}

func TestMethod_String(t *testing.T) {
	assert.Equal(t, "baserank", MethodBaseline.String())
	assert.Equal(t, "addrank", MethodAdditive.String())
	assert.Equal(t, "mulrank", MethodMultiplicative.String())
	assert.Equal(t, "unknown", Method(9).String())
}

func TestNewEvaluator_Defaults(t *testing.T) {
	ev := NewEvaluator(workedStore(t), nil, WithConfig(&Config{}), WithLogger(nil))
	assert.Equal(t, parallel.DefaultWorkers, ev.exec.Workers)
	assert.Equal(t, DefaultProgressInterval, ev.config.ProgressInterval)
	assert.NotNil(t, ev.logger)
}
