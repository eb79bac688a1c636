// Package embed provides ports.Embedder implementations.
package embed

import (
	"context"
	"hash/fnv"

	"github.com/livingtwin/ragsvc/internal/ports"
)

// Local is a deterministic, dependency-free embedder for offline tests and
// LOCAL_EMBEDDINGS=true deployments. It is not a semantic model: equal text
// hashes to equal vectors, and nothing more is guaranteed.
type Local struct {
	dims int
}

// NewLocal creates a Local embedder producing vectors of the given
// dimensionality.
func NewLocal(dims int) *Local {
	if dims <= 0 {
		dims = 64
	}
	return &Local{dims: dims}
}

var _ ports.Embedder = (*Local)(nil)

func (l *Local) Dimensions() int { return l.dims }

func (l *Local) Embed(_ context.Context, text string) ([]float32, error) {
	return hashEmbed(text, l.dims), nil
}

func (l *Local) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := l.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// hashEmbed derives a stable pseudo-embedding: each dimension is the FNV
// hash of its index byte followed by the whole text, so equal texts give
// equal vectors and any change to the text changes every dimension.
func hashEmbed(text string, dims int) []float32 {
	v := make([]float32, dims)
	if text == "" {
		return v
	}
	h := fnv.New32a()
	for i := 0; i < dims; i++ {
		h.Reset()
		h.Write([]byte{byte(i)})
		h.Write([]byte(text))
		sum := h.Sum32()
		v[i] = float32(sum%2000)/1000 - 1 // in [-1, 1)
	}
	return v
}
