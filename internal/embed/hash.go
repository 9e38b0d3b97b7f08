package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Hash is a deterministic feature-hashing embedder. It needs no model server
// and is used for offline runs.
type Hash struct {
	dims int
}

// NewHash creates a Hash embedder producing dims-dimensional vectors.
func NewHash(dims int) *Hash {
	if dims <= 0 {
		dims = 384
	}
	return &Hash{dims: dims}
}

// Embed implements Embedder. Vectors are L2-normalized.
func (h *Hash) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float64, h.dims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		f := fnv.New64a()
		_, _ = f.Write([]byte(tok))
		sum := f.Sum64()
		idx := int(sum % uint64(h.dims))
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, h.dims)
	if norm == 0 {
		return out, nil
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}
