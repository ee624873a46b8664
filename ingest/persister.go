package ingest

import (
	"context"
	"time"
)

// persist writes all chunks of the file in one batched insert, stamping
// every record with the same upload timestamp. Returns the number of
// records the store accepted. An empty chunk list never touches the
// store.
func (p *Pipeline) persist(ctx context.Context, store VectorStore, target Target, processed ProcessedFile) (int, error) {
	if len(processed.Chunks) == 0 {
		return 0, nil
	}

	now := p.now().UTC().Format(time.RFC3339)
	records := make([]Record, 0, len(processed.Chunks))
	for _, c := range processed.Chunks {
		records = append(records, Record{
			Embedding:  c.Embedding,
			Text:       c.Text,
			Filename:   processed.Filename,
			UploadedAt: now,
			Identity:   target.Identity,
		})
	}

	count, err := store.Insert(ctx, target.Collection, records)
	if err != nil {
		return 0, &UpstreamError{Op: "insert", Err: err}
	}

	return count, nil
}
