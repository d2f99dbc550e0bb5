package memory

import (
	"context"
	"math"
)

// Embedder produces vector embeddings for text. The long-term store treats
// it as an opaque similarity backend: any implementation that maps related
// texts to nearby vectors works. The default is the deterministic
// LexicalEmbedder; production deployments can wire an OpenAI-compatible API.
type Embedder interface {
	// Embed produces a vector embedding for the given text. Returns nil
	// with no error for text that yields no signal (e.g. empty input).
	Embed(ctx context.Context, text string) ([]float32, error)
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 if either vector is empty or has zero magnitude.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// clampScore maps a raw cosine similarity onto the closed interval [0,1].
// Non-negative vector spaces (the lexical embedder) already land there;
// embedders that can produce negative similarities are clamped at zero so
// relevance scores stay comparable across providers.
func clampScore(sim float64) float64 {
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
