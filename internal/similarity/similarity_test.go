package similarity

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/analogyeval/internal/analogy"
	"github.com/hyperjump/analogyeval/internal/parallel"
	"github.com/hyperjump/analogyeval/internal/vector"
)

func newStore(t *testing.T, dims int, entries map[string][]float32, order ...string) *vector.Store {
	t.Helper()
	s, err := vector.NewStore(dims)
	require.NoError(t, err)
	for _, k := range order {
		_, err := s.Add(k, entries[k])
		require.NoError(t, err)
	}
	return s
}

func workedStore(t *testing.T) *vector.Store {
	r := float32(1 / math.Sqrt2)
	return newStore(t, 2, map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
		"c": {r, r},
		"d": {0, 1},
	}, "a", "b", "c", "d")
}

func TestReporter_Measures(t *testing.T) {
	store := workedStore(t)
	full := analogy.Analogy{W1: "a", W2: "b", W3: "c", W4: "d"}
	missing := analogy.Analogy{W1: "zz", W2: "b", W3: "c", W4: "d"}
	list := []analogy.Analogy{full, missing}
	rep := NewReporter(store, parallel.New(2), nil)
	ctx := context.Background()

	tests := []struct {
		measure     Measure
		full        float64
		withMissing float64
	}{
		{Baseline, 1 / math.Sqrt2, 1 / math.Sqrt2},
		{Additive, (1/math.Sqrt2 + 1) / math.Sqrt(3), 0},
		{W2W4, 1, 1},
		{W1W2, 0, 0},
		{W1W4, 0, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.measure), func(t *testing.T) {
			got, err := rep.Measure(ctx, list, tt.measure)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.InDelta(t, tt.full, got[full], 1e-6)
			assert.InDelta(t, tt.withMissing, got[missing], 1e-6)
		})
	}
}

func TestReporter_UnknownMeasure(t *testing.T) {
	rep := NewReporter(workedStore(t), nil, nil)
	_, err := rep.Measure(context.Background(), nil, Measure("w9w9"))
	assert.Error(t, err)
}

func TestReporter_WorkerCountDoesNotChangeScores(t *testing.T) {
	store := workedStore(t)
	var list []analogy.Analogy
	keys := store.Keys()
	for _, w1 := range keys {
		for _, w2 := range keys {
			list = append(list, analogy.Analogy{W1: w1, W2: w2, W3: "c", W4: "d"})
		}
	}
	ctx := context.Background()
	one, err := NewReporter(store, parallel.New(1), nil).Additive(ctx, list)
	require.NoError(t, err)
	eight, err := NewReporter(store, parallel.New(8), nil).Additive(ctx, list)
	require.NoError(t, err)
	assert.Equal(t, one, eight)
}

func TestParseMeasure(t *testing.T) {
	m, ok := ParseMeasure("w1w4")
	assert.True(t, ok)
	assert.Equal(t, W1W4, m)
	_, ok = ParseMeasure("ranks")
	assert.False(t, ok)
}

func TestCentroids_DistinctPairDivisor(t *testing.T) {
	store := newStore(t, 2, map[string][]float32{
		"a": {2, 0}, "b": {0, 0},
		"c": {0, 1}, "d": {0, 0},
		"e": {1, 1}, "f": {0, 0},
	}, "a", "b", "c", "d", "e", "f")
	// a:b recurs in the first two analogies and must be averaged in once.
	set := analogy.NewCategorizedSet([]string{"x"}, map[string][]analogy.Analogy{
		"x": {
			{W1: "a", W2: "b", W3: "c", W4: "d"},
			{W1: "a", W2: "b", W3: "e", W4: "f"},
			{W1: "c", W2: "d", W3: "e", W4: "f"},
		},
	})
	got, err := NewReporter(store, parallel.New(2), nil).Centroids(context.Background(), set)
	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0]
	assert.False(t, c.Empty)
	assert.NoError(t, c.Err())
	require.Len(t, c.Mean, 2)
	assert.InDelta(t, 1.0, c.Mean[0], 1e-9)
	assert.InDelta(t, 2.0/3, c.Mean[1], 1e-9)

	require.Len(t, c.Pairs, 3)
	assert.Equal(t, "a:b", c.Pairs[0].Pair)
	assert.Equal(t, "c:d", c.Pairs[1].Pair)
	assert.Equal(t, "e:f", c.Pairs[2].Pair)
	norm := math.Sqrt(1 + 4.0/9)
	assert.InDelta(t, 1/norm, c.Pairs[0].Similarity, 1e-6)
	assert.InDelta(t, (2.0/3)/norm, c.Pairs[1].Similarity, 1e-6)
}

func TestCentroids_EmptyCategory(t *testing.T) {
	store := workedStore(t)
	set := analogy.NewCategorizedSet([]string{"ok", "ghost"}, map[string][]analogy.Analogy{
		"ok":    {{W1: "a", W2: "b", W3: "c", W4: "d"}},
		"ghost": {{W1: "x", W2: "y", W3: "z", W4: "w"}},
	})
	got, err := NewReporter(store, parallel.New(4), nil).Centroids(context.Background(), set)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.False(t, got[0].Empty)
	ghost := got[1]
	assert.Equal(t, "ghost", ghost.Category)
	assert.True(t, ghost.Empty)
	assert.Empty(t, ghost.Pairs)
	assert.Nil(t, ghost.Mean)
	assert.True(t, errors.Is(ghost.Err(), ErrEmptyCategory))
	for _, p := range got[0].Pairs {
		assert.False(t, math.IsNaN(p.Similarity))
	}
}
