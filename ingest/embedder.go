package ingest

import (
	"context"
	"fmt"
	"math"
)

// embedTexts batch-encodes all chunks in a single model call and
// normalizes every vector to unit length. An empty batch skips the
// model entirely.
func (p *Pipeline) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if p.encoder == nil {
		return nil, ErrModelUnavailable
	}

	vecs, err := p.encoder.Encode(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chunks: %w", err)
	}

	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("encoder returned %d vectors for %d chunks", len(vecs), len(texts))
	}

	for _, v := range vecs {
		Normalize(v)
	}

	return vecs, nil
}

// Normalize scales v to unit L2 norm in place. A zero vector is left
// unchanged (the divisor is clamped to 1) so no NaN or Inf can leak
// into the store.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}

	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
