// Package vector provides dense word vectors and the in-memory vector store they live in.
package vector

import (
	"errors"
	"fmt"
	"math"

	"github.com/viterin/vek/vek32"
)

var (
	// ErrDimensionMismatch is returned when vectors of different dimensionality are combined.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrKeyNotFound is returned by Store.Get for keys outside the lexicon.
	ErrKeyNotFound = errors.New("key not found")
)

// View is a read-only handle on vector components. Views returned by a Store
// share memory with the store entry; use Clone to obtain a mutable copy.
type View struct {
	data []float32
}

// Vector is a mutable dense vector owned by its creator.
type Vector struct {
	data []float32
}

// New returns a zero vector with the given dimensionality.
func New(dimensions int) *Vector {
	return &Vector{data: make([]float32, dimensions)}
}

// FromSlice copies values into a new Vector.
func FromSlice(values []float32) *Vector {
	data := make([]float32, len(values))
	copy(data, values)
	return &Vector{data: data}
}

// ViewOf wraps values without copying. The caller must not mutate values afterwards.
func ViewOf(values []float32) View {
	return View{data: values}
}

func mismatch(a, b int) error {
	return fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, a, b)
}

// Dim returns the number of components.
func (v View) Dim() int { return len(v.data) }

// At returns component i.
func (v View) At(i int) float32 { return v.data[i] }

// Clone returns a mutable copy.
func (v View) Clone() *Vector { return FromSlice(v.data) }

// Values returns a copy of the components.
func (v View) Values() []float32 {
	out := make([]float32, len(v.data))
	copy(out, v.data)
	return out
}

// Same reports whether v and o are views of the same storage (identity, not value equality).
func (v View) Same(o View) bool {
	if len(v.data) == 0 || len(v.data) != len(o.data) {
		return false
	}
	return &v.data[0] == &o.data[0]
}

// Dot returns the inner product of v and o.
func (v View) Dot(o View) (float64, error) {
	if len(v.data) != len(o.data) {
		return 0, mismatch(len(v.data), len(o.data))
	}
	return dot(v.data, o.data), nil
}

// CosSim returns the cosine similarity of v and o. Zero vectors yield 0.
func (v View) CosSim(o View) (float64, error) {
	if len(v.data) != len(o.data) {
		return 0, mismatch(len(v.data), len(o.data))
	}
	return cosine(v.data, o.data), nil
}

// Norm returns the Euclidean norm.
func (v View) Norm() float64 {
	return math.Sqrt(dot(v.data, v.data))
}

// Sum returns the sum of all components.
func (v View) Sum() float64 {
	if len(v.data) == 0 {
		return 0
	}
	return float64(vek32.Sum(v.data))
}

// Difference returns a new vector v - o.
func (v View) Difference(o View) (*Vector, error) {
	out := v.Clone()
	if err := out.Sub(o); err != nil {
		return nil, err
	}
	return out, nil
}

// View returns a read-only view of the vector. Later mutations of v are visible through it.
func (v *Vector) View() View { return View{data: v.data} }

// Dim returns the number of components.
func (v *Vector) Dim() int { return len(v.data) }

// Add adds o to v in place.
func (v *Vector) Add(o View) error {
	if len(v.data) != len(o.data) {
		return mismatch(len(v.data), len(o.data))
	}
	if len(v.data) > 0 {
		vek32.Add_Inplace(v.data, o.data)
	}
	return nil
}

// Sub subtracts o from v in place.
func (v *Vector) Sub(o View) error {
	if len(v.data) != len(o.data) {
		return mismatch(len(v.data), len(o.data))
	}
	if len(v.data) > 0 {
		vek32.Sub_Inplace(v.data, o.data)
	}
	return nil
}

// AddScalar adds s to every component in place.
func (v *Vector) AddScalar(s float32) {
	if len(v.data) > 0 {
		vek32.AddNumber_Inplace(v.data, s)
	}
}

// Scale multiplies every component by s in place.
func (v *Vector) Scale(s float32) {
	if len(v.data) > 0 {
		vek32.MulNumber_Inplace(v.data, s)
	}
}

// Normalize scales v to unit Euclidean norm. A zero vector is left unchanged.
func (v *Vector) Normalize() {
	normalize(v.data)
}

func dot(a, b []float32) float64 {
	if len(a) == 0 {
		return 0
	}
	return float64(vek32.Dot(a, b))
}

func cosine(a, b []float32) float64 {
	na := dot(a, a)
	nb := dot(b, b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (math.Sqrt(na) * math.Sqrt(nb))
}

func normalize(x []float32) {
	sum := dot(x, x)
	if sum == 0 {
		return
	}
	vek32.MulNumber_Inplace(x, float32(1.0/math.Sqrt(sum)))
}
