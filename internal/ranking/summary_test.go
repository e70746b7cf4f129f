package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/analogyeval/internal/analogy"
)

func TestSummarize(t *testing.T) {
	a1 := analogy.Analogy{W1: "a", W2: "b", W3: "c", W4: "d"}
	a2 := analogy.Analogy{W1: "e", W2: "f", W3: "g", W4: "h"}
	a3 := analogy.Analogy{W1: "i", W2: "j", W3: "k", W4: "l"}
	set := analogy.NewCategorizedSet([]string{"x", "y", "empty"}, map[string][]analogy.Analogy{
		"x":     {a1, a2},
		"y":     {a3},
		"empty": nil,
	})
	result := Result{
		a1: {Baseline: 1, Additive: 2, Multiplicative: 1},
		a2: {Baseline: 4, Additive: 20, Multiplicative: 1},
		a3: {Baseline: 10, Additive: 1, Multiplicative: 5},
	}

	got := Summarize(result, set)
	require.Len(t, got, 4)

	all := got[0]
	assert.Equal(t, OverallCategory, all.Category)
	assert.Equal(t, 3, all.Count)
	require.Len(t, all.Methods, 3)

	base := all.Methods[0]
	assert.Equal(t, "baserank", base.Method)
	assert.InDelta(t, 5.0, base.MeanRank, 1e-9)
	assert.InDelta(t, 4.0, base.MedianRank, 1e-9)
	assert.InDelta(t, (1+0.25+0.1)/3, base.MRR, 1e-9)
	assert.InDelta(t, 1.0/3, base.HitsAt1, 1e-9)
	assert.InDelta(t, 1.0, base.HitsAt10, 1e-9)

	add := all.Methods[1]
	assert.InDelta(t, 2.0/3, add.HitsAt10, 1e-9)

	x := got[1]
	assert.Equal(t, "x", x.Category)
	assert.Equal(t, 2, x.Count)
	assert.InDelta(t, 1.0, x.Methods[2].HitsAt1, 1e-9)

	empty := got[3]
	assert.Equal(t, "empty", empty.Category)
	assert.Zero(t, empty.Count)
	assert.Empty(t, empty.Methods)
}

func TestSummarize_SkipsUnrankedAnalogies(t *testing.T) {
	a1 := analogy.Analogy{W1: "a", W2: "b", W3: "c", W4: "d"}
	a2 := analogy.Analogy{W1: "e", W2: "f", W3: "g", W4: "h"}
	set := analogy.NewSet([]analogy.Analogy{a1, a2})

	got := Summarize(Result{a1: {Baseline: 2, Additive: 2, Multiplicative: 2}}, set)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Count)
	assert.InDelta(t, 0.5, got[0].Methods[0].MRR, 1e-9)
}

func TestSummarize_MedianOfEvenCount(t *testing.T) {
	a1 := analogy.Analogy{W1: "a", W2: "b", W3: "c", W4: "d"}
	a2 := analogy.Analogy{W1: "e", W2: "f", W3: "g", W4: "h"}
	a3 := analogy.Analogy{W1: "i", W2: "j", W3: "k", W4: "l"}
	a4 := analogy.Analogy{W1: "m", W2: "n", W3: "o", W4: "p"}
	set := analogy.NewSet([]analogy.Analogy{a1, a2, a3, a4})

	two := Summarize(Result{
		a1: {Baseline: 1, Additive: 1, Multiplicative: 3},
		a2: {Baseline: 2, Additive: 1, Multiplicative: 8},
	}, set)
	assert.InDelta(t, 1.5, two[0].Methods[0].MedianRank, 1e-9)
	assert.InDelta(t, 1.0, two[0].Methods[1].MedianRank, 1e-9)
	assert.InDelta(t, 5.5, two[0].Methods[2].MedianRank, 1e-9)

	four := Summarize(Result{
		a1: {Baseline: 7, Additive: 1, Multiplicative: 1},
		a2: {Baseline: 1, Additive: 1, Multiplicative: 1},
		a3: {Baseline: 4, Additive: 1, Multiplicative: 1},
		a4: {Baseline: 2, Additive: 1, Multiplicative: 1},
	}, set)
	assert.InDelta(t, 3.0, four[0].Methods[0].MedianRank, 1e-9)
}
