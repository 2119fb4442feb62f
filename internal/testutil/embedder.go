package testutil

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"

	"github.com/firstclay/adam/internal/corpus"
)

// Embedder is a deterministic ai.Embedder for tests: identical input
// always yields the identical vector, and texts sharing words produce
// nearby vectors, so similarity queries behave plausibly without a real
// provider.
type Embedder struct {
	// Err, when set, is returned by every Embed call.
	Err error

	// Calls counts Embed invocations.
	Calls int
}

// Name implements ai.Embedder.
func (e *Embedder) Name() string { return "test-embedder" }

// Register implements ai.Embedder.
func (e *Embedder) Register(r api.Registry) {}

// Embed implements ai.Embedder with a hash-derived unit vector.
func (e *Embedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	e.Calls++
	if e.Err != nil {
		return nil, e.Err
	}

	embeddings := make([]*ai.Embedding, 0, len(req.Input))
	for _, doc := range req.Input {
		text := ""
		if len(doc.Content) > 0 {
			text = doc.Content[0].Text
		}
		embeddings = append(embeddings, &ai.Embedding{Embedding: vectorFor(text)})
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

// vectorFor spreads word hashes over the vector dimensions and
// normalizes, so shared vocabulary means higher cosine similarity.
func vectorFor(text string) []float32 {
	dim := int(corpus.VectorDimension)
	vec := make([]float32, dim)

	start := 0
	bump := func(word string) {
		h := fnv.New64a()
		h.Write([]byte(word))
		sum := h.Sum64()
		vec[sum%uint64(dim)] += 1.0 // #nosec G115 -- dim is a small positive constant
	}
	for i, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			if i > start {
				bump(text[start:i])
			}
			start = i + 1
		}
	}
	if start < len(text) {
		bump(text[start:])
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1.0
		return vec
	}
	scale := float32(1.0 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
