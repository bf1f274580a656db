package embed

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/cognicore/cogdist/pkg/cogdist/ingest"
)

// HashingEmbedder projects unigrams and bigrams into a fixed number of
// signed buckets and L2-normalises the result. It needs no model and is
// fully deterministic, so sentences sharing vocabulary end up close.
type HashingEmbedder struct {
	dim       int
	tokenizer *ingest.Tokenizer
}

// NewHashingEmbedder creates an embedder with dim buckets
// (DefaultHashingDim when dim <= 0).
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = DefaultHashingDim
	}
	return &HashingEmbedder{dim: dim, tokenizer: ingest.NewTokenizer(ingest.DefaultStopwords)}
}

func (h *HashingEmbedder) Dimension() int { return h.dim }
func (h *HashingEmbedder) Model() string  { return defaultHashingModel }

// EmbedBatch embeds every text. Texts without tokens map to the zero vector.
func (h *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out[i] = h.embed(text)
	}
	return out, nil
}

func (h *HashingEmbedder) embed(text string) []float32 {
	acc := make([]float64, h.dim)
	tokens := h.tokenizer.Tokenize(text)
	for i, tok := range tokens {
		h.add(acc, tok, 1)
		if i > 0 {
			h.add(acc, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vec := make([]float32, h.dim)
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

func (h *HashingEmbedder) add(acc []float64, feature string, weight float64) {
	f := fnv.New64a()
	f.Write([]byte(feature))
	sum := f.Sum64()
	bucket := int(sum % uint64(h.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}
