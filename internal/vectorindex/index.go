// Package vectorindex is a flat in-memory similarity index. Vectors are L2
// normalized on the way in, so the inner product it ranks by equals the
// cosine similarity.
package vectorindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

type Hit struct {
	Index int
	Score float32
}

type Index struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
}

func New(dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dim)
	}
	return &Index{dim: dim}, nil
}

// FromMatrix builds an index over rows. All rows must share one dimension.
func FromMatrix(rows [][]float32) (*Index, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty matrix")
	}
	idx, err := New(len(rows[0]))
	if err != nil {
		return nil, err
	}
	if err := idx.Add(rows); err != nil {
		return nil, err
	}
	return idx, nil
}

func (x *Index) Dim() int {
	return x.dim
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Add appends vectors in order. Nothing is added when any vector has the
// wrong dimension.
func (x *Index) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != x.dim {
			return fmt.Errorf("vector %d has dimension %d, index has %d: %w", i, len(v), x.dim, ErrDimensionMismatch)
		}
	}
	normalized := make([][]float32, 0, len(vectors))
	for _, v := range vectors {
		normalized = append(normalized, Normalize(v))
	}
	x.mu.Lock()
	x.vectors = append(x.vectors, normalized...)
	x.mu.Unlock()
	return nil
}

// Search returns up to k hits by descending score. Equal scores keep
// insertion order.
func (x *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("query has dimension %d, index has %d: %w", len(query), x.dim, ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, nil
	}
	q := Normalize(query)

	x.mu.RLock()
	hits := make([]Hit, len(x.vectors))
	for i, v := range x.vectors {
		hits[i] = Hit{Index: i, Score: dot(v, q)}
	}
	x.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Vectors returns a copy of the stored, normalized vectors.
func (x *Index) Vectors() [][]float32 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([][]float32, len(x.vectors))
	for i, v := range x.vectors {
		out[i] = append([]float32(nil), v...)
	}
	return out
}

// Normalize returns a unit-length copy of v. A zero vector is returned as a
// zero copy.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}
