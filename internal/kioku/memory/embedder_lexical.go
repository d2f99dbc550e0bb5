package memory

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// defaultLexicalDims is the bucket count of the hashed bag-of-words space.
// Large enough that unrelated short texts rarely collide, small enough that
// vectors stay cheap to store as JSON.
const defaultLexicalDims = 256

// LexicalEmbedder is a deterministic, dependency-free embedder that hashes
// lower-cased word tokens into a fixed number of buckets and L2-normalizes
// the resulting counts. Texts sharing vocabulary get positive cosine
// similarity; disjoint texts score (near) zero. It needs no network, no
// model files, and produces identical vectors across runs, which makes it
// the default for local deployments and tests.
type LexicalEmbedder struct {
	dims int
}

// NewLexicalEmbedder creates a LexicalEmbedder with the given dimensionality.
// Values <= 0 fall back to the default.
func NewLexicalEmbedder(dims int) *LexicalEmbedder {
	if dims <= 0 {
		dims = defaultLexicalDims
	}
	return &LexicalEmbedder{dims: dims}
}

// Embed hashes the word tokens of text into buckets and returns the
// normalized count vector. Returns nil for text with no tokens.
func (e *LexicalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	vec := make([]float32, e.dims)
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dims)]++
	}

	// L2-normalize so cosine similarity reduces to a dot product.
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// tokenize splits text into lower-cased word tokens, treating any
// non-letter/non-digit rune as a separator.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Compile-time interface satisfaction check.
var _ Embedder = (*LexicalEmbedder)(nil)
