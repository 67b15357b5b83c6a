package ingest

import (
	"context"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/passage"
)

// Repository defines the storage contract for passage ingestion.
type Repository interface {
	Upsert(ctx context.Context, p passage.Passage, vector []float32) error
	UpsertMulti(ctx context.Context, passages []passage.Passage, vectors [][]float32) error
	Get(ctx context.Context, id string) (passage.Passage, error)
	Delete(ctx context.Context, id string) error
}

// Embedder vectorizes passage text for indexing.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
