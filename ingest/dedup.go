package ingest

import "context"

// countDuplicates runs one batched nearest-neighbor query and counts
// the chunks whose top hit meets the similarity threshold. The
// threshold is inclusive. An empty chunk list never touches the store.
func (p *Pipeline) countDuplicates(ctx context.Context, store VectorStore, collection string, chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		vectors[i] = c.Embedding
	}

	hits, err := store.Search(ctx, collection, vectors, 1, VectorField, searchNProbe)
	if err != nil {
		return 0, &UpstreamError{Op: "search", Err: err}
	}

	duplicates := 0
	for _, group := range hits {
		if len(group) == 0 {
			continue
		}

		score, ok := group[0].Similarity()
		if ok && score != 0 && score >= p.threshold {
			duplicates++
		}
	}

	return duplicates, nil
}
