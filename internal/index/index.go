// Package index provides exact nearest-neighbour search over feature vectors.
package index

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/Veraticus/the-split-must-flow/internal/common"
)

// Search errors.
var (
	ErrInvalidK          = errors.New("k must be a positive integer")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Neighbor is a search hit. Position is the vector's insertion position,
// which is also its position in the corpus the index was built from.
type Neighbor struct {
	Position        int
	SquaredDistance float64
}

// Index stores vectors for brute-force squared Euclidean search.
// It is immutable once built and safe for concurrent searches.
type Index struct {
	vectors   [][]float64
	dimension int
}

// Build stores the vectors in order. All vectors must share one dimension.
// The slices are copied, so callers may reuse them.
func Build(vectors [][]float64) (*Index, error) {
	idx := &Index{vectors: make([][]float64, len(vectors))}
	if len(vectors) > 0 {
		idx.dimension = len(vectors[0])
	}

	for i, v := range vectors {
		if len(v) != idx.dimension {
			return nil, fmt.Errorf("%w: vector %d has %d columns, expected %d",
				ErrDimensionMismatch, i, len(v), idx.dimension)
		}
		idx.vectors[i] = append([]float64(nil), v...)
	}
	return idx, nil
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.vectors)
}

// Dimension returns the vector dimension, or 0 for an empty index.
func (idx *Index) Dimension() int {
	if idx == nil {
		return 0
	}
	return idx.dimension
}

// Search returns up to k nearest vectors to query, by ascending squared
// distance. Equal distances keep insertion order. If k exceeds Len, every
// vector is returned. An empty index yields an empty result.
func (idx *Index) Search(query []float64, k int) ([]Neighbor, error) {
	if idx == nil {
		return nil, fmt.Errorf("cannot search: %w", common.ErrUnfitted)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if len(idx.vectors) == 0 {
		return []Neighbor{}, nil
	}
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d columns, index has %d",
			ErrDimensionMismatch, len(query), idx.dimension)
	}

	diff := make([]float64, idx.dimension)
	candidates := make([]Neighbor, 0, len(idx.vectors))
	for pos, v := range idx.vectors {
		floats.SubTo(diff, v, query)
		d := floats.Dot(diff, diff)
		if math.IsInf(d, 0) || math.IsNaN(d) {
			continue
		}
		candidates = append(candidates, Neighbor{Position: pos, SquaredDistance: d})
	}

	// Candidates are already in position order, so a stable sort breaks ties by position.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SquaredDistance < candidates[j].SquaredDistance
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	return candidates[:k:k], nil
}
