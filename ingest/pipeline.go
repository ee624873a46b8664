package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// Pipeline runs the full ingestion chain for one upload: extract text,
// split into word windows, embed, check for duplicates, persist. The
// vector store is passed per call because its endpoint and credentials
// come from the runtime configuration.
type Pipeline struct {
	log          *slog.Logger
	encoder      Encoder
	readers      map[string]Reader
	chunkSize    int
	chunkOverlap int
	threshold    float64
	now          func() time.Time
}

func NewPipeline(log *slog.Logger, encoder Encoder) *Pipeline {
	return &Pipeline{
		log:          log,
		encoder:      encoder,
		readers:      make(map[string]Reader),
		chunkSize:    ChunkSize,
		chunkOverlap: ChunkOverlap,
		threshold:    SimilarityThreshold,
		now:          time.Now,
	}
}

func (p *Pipeline) RegisterReader(readers ...Reader) error {
	for _, r := range readers {
		for _, ext := range r.Exts() {
			if _, ok := p.readers[ext]; ok {
				return fmt.Errorf("reader already registered for type %s", ext)
			}

			p.readers[ext] = r
		}
	}

	return nil
}

// Supports reports whether a reader is registered for the file's
// extension. Callers can reject a payload before reading it.
func (p *Pipeline) Supports(filename string) bool {
	_, err := p.findReader(filename)
	return err == nil
}

func (p *Pipeline) findReader(filename string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	reader, ok := p.readers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	return reader, nil
}

// Process ingests one file end to end. A single detected duplicate
// chunk vetoes the whole file: nothing is inserted and the result
// carries the rejection message.
func (p *Pipeline) Process(ctx context.Context, store VectorStore, target Target, filename string, data []byte) (Result, error) {
	reader, err := p.findReader(filename)
	if err != nil {
		return Result{}, err
	}

	text, err := reader.ReadText(data)
	if err != nil {
		return Result{}, fmt.Errorf("failed to extract text from %s: %w", filename, err)
	}

	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyInput
	}

	texts := Chunkify(text, p.chunkSize, p.chunkOverlap)
	vecs, err := p.embedTexts(ctx, texts)
	if err != nil {
		return Result{}, err
	}

	processed := ProcessedFile{Filename: filename, Chunks: make([]Chunk, len(texts))}
	for i := range texts {
		processed.Chunks[i] = Chunk{Text: texts[i], Embedding: vecs[i]}
	}

	duplicates, err := p.countDuplicates(ctx, store, target.Collection, processed.Chunks)
	if err != nil {
		return Result{}, err
	}

	if duplicates > 0 {
		p.log.Info("upload rejected as duplicate", "file", filename, "duplicate_chunks", duplicates)
		return Result{Duplicates: duplicates, Message: DuplicateMessage}, nil
	}

	inserted, err := p.persist(ctx, store, target, processed)
	if err != nil {
		return Result{}, err
	}

	p.log.Info("upload processed", "file", filename, "chunks", len(processed.Chunks), "inserted", inserted)
	return Result{Inserted: inserted}, nil
}
