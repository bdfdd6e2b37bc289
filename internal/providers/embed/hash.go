package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder is the degradation path when no real embedding provider is
// reachable: a hash-bucketed bag-of-words projection into the same
// dimensionality, L2-normalized. Deterministic for identical input. The
// vectors it produces are not comparable with model embeddings and are
// used for query-time search only, never persisted.
type HashEmbedder struct {
	dims int
}

func NewHashEmbedder(dims int) *HashEmbedder {
	return &HashEmbedder{dims: dims}
}

func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dims)

	for _, word := range tokenize(text) {
		hasher := fnv.New64a()
		hasher.Write([]byte(word))
		sum := hasher.Sum64()

		bucket := int(sum % uint64(h.dims))
		// Alternate sign from a hash bit so buckets don't all accumulate
		// in the same direction.
		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		vec[bucket] += sign
	}

	Normalize(vec)
	return vec, nil
}

func (h *HashEmbedder) Dims() int {
	return h.dims
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Normalize scales vec to unit L2 norm in place. A zero vector is left
// untouched.
func Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
