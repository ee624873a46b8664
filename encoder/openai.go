// Package encoder provides the embedding model client used by the
// ingestion pipeline.
package encoder

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/psi-alpha/genesis-dm/ingest"
)

// OpenAI encodes chunk batches through an OpenAI-compatible embeddings
// endpoint. The model is treated as a deterministic pure function: same
// text and model version produce the same vector.
type OpenAI struct {
	client    openai.Client
	model     string
	dimension int
}

type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
}

func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ingest.ErrModelUnavailable)
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     model,
		dimension: cfg.Dimension,
	}, nil
}

// Encode embeds all texts in one request, preserving input order.
func (e *OpenAI) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}

	return vectors, nil
}

var _ ingest.Encoder = (*OpenAI)(nil)
