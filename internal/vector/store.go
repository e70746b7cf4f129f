package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"os"
	"path/filepath"
)

// Store maps lexicon keys to vectors of a single dimensionality. Insertion
// order defines iteration and truncation order. A Store is built once, then
// read concurrently without locking; NormalizeAll, FilterOn and Truncate must
// not run while it is being read.
type Store struct {
	dimensions int
	keys       []string
	index      map[string]int
	vectors    [][]float32
}

// NewStore creates an empty store for vectors of the given dimension.
func NewStore(dimensions int) (*Store, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Store{
		dimensions: dimensions,
		keys:       make([]string, 0),
		index:      make(map[string]int),
		vectors:    make([][]float32, 0),
	}, nil
}

// Add appends a copy of values under key. Duplicate keys keep their first vector
// and report added=false.
func (s *Store) Add(key string, values []float32) (bool, error) {
	if len(values) != s.dimensions {
		return false, fmt.Errorf("key %q: %w: got %d, expected %d", key, ErrDimensionMismatch, len(values), s.dimensions)
	}
	if _, ok := s.index[key]; ok {
		return false, nil
	}
	vec := make([]float32, s.dimensions)
	copy(vec, values)
	s.index[key] = len(s.keys)
	s.keys = append(s.keys, key)
	s.vectors = append(s.vectors, vec)
	return true, nil
}

// Contains reports whether key is in the lexicon.
func (s *Store) Contains(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Get returns a read-only view of the vector stored under key.
func (s *Store) Get(key string) (View, error) {
	i, ok := s.index[key]
	if !ok {
		return View{}, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return View{data: s.vectors[i]}, nil
}

// Index returns the lexicon position of key, or -1.
func (s *Store) Index(key string) int {
	if i, ok := s.index[key]; ok {
		return i
	}
	return -1
}

// At returns the vector at lexicon position i.
func (s *Store) At(i int) View {
	return View{data: s.vectors[i]}
}

// Key returns the lexicon key at position i.
func (s *Store) Key(i int) string {
	return s.keys[i]
}

// Keys returns a copy of the lexicon.
func (s *Store) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Size returns the number of entries.
func (s *Store) Size() int {
	return len(s.keys)
}

// Dimensions returns the dimensionality shared by every vector.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// All iterates over the store in lexicon order. Each call starts a fresh iteration.
func (s *Store) All() iter.Seq2[string, View] {
	return func(yield func(string, View) bool) {
		for i, key := range s.keys {
			if !yield(key, View{data: s.vectors[i]}) {
				return
			}
		}
	}
}

// NormalizeAll scales every vector to unit norm in place. Zero vectors are left as-is.
func (s *Store) NormalizeAll() {
	for _, vec := range s.vectors {
		normalize(vec)
	}
}

// FilterOn keeps only the keys present in keep, preserving lexicon order.
func (s *Store) FilterOn(keep map[string]struct{}) {
	keys := make([]string, 0, len(keep))
	vectors := make([][]float32, 0, len(keep))
	index := make(map[string]int, len(keep))
	for i, key := range s.keys {
		if _, ok := keep[key]; !ok {
			continue
		}
		index[key] = len(keys)
		keys = append(keys, key)
		vectors = append(vectors, s.vectors[i])
	}
	s.keys = keys
	s.vectors = vectors
	s.index = index
}

// Truncate keeps the first k lexicon entries. k <= 0 or k >= Size is a no-op.
func (s *Store) Truncate(k int) {
	if k <= 0 || k >= len(s.keys) {
		return
	}
	keep := make(map[string]struct{}, k)
	for _, key := range s.keys[:k] {
		keep[key] = struct{}{}
	}
	s.FilterOn(keep)
}

// Save writes a snapshot to path. Directory is created if needed. Format: dimension (4), n (4),
// then per vector: keyLen (4), key bytes, vector (dimension*4 bytes), all little-endian.
func (s *Store) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	w := bufio.NewWriter(f)
	err = s.Encode(w)
	if err == nil {
		if err = w.Flush(); err != nil {
			err = fmt.Errorf("flush snapshot: %w", err)
		}
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close snapshot: %w", cerr)
	}
	return err
}

// Encode writes the snapshot encoding of s to w.
func (s *Store) Encode(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(s.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s.keys))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	buf := make([]byte, s.dimensions*4)
	for i, key := range s.keys {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(key))); err != nil {
			return fmt.Errorf("write key len: %w", err)
		}
		if _, err := io.WriteString(w, key); err != nil {
			return fmt.Errorf("write key: %w", err)
		}
		for j, v := range s.vectors[i] {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// MaxKeyLen bounds the key length ReadStore accepts.
const MaxKeyLen = 1 << 20

// ErrMalformedSnapshot is returned when a snapshot cannot be decoded.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// LoadStore reads a snapshot written by Save.
func LoadStore(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return ReadStore(bufio.NewReader(f))
}

// ReadStore decodes a snapshot from r.
func ReadStore(r io.Reader) (*Store, error) {
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	s, err := NewStore(int(dim))
	if err != nil {
		return nil, err
	}
	buf := make([]byte, int(dim)*4)
	values := make([]float32, dim)
	for i := uint32(0); i < n; i++ {
		var keyLen uint32
		if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
			return nil, fmt.Errorf("read key len: %w", err)
		}
		if keyLen > MaxKeyLen {
			return nil, fmt.Errorf("%w: entry %d key length %d exceeds %d", ErrMalformedSnapshot, i, keyLen, MaxKeyLen)
		}
		keyBytes := make([]byte, keyLen)
		if _, err := io.ReadFull(r, keyBytes); err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		for j := range values {
			values[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		if _, err := s.Add(string(keyBytes), values); err != nil {
			return nil, err
		}
	}
	return s, nil
}
