package retrieval

import (
	"context"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/options"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
)

// ContentStore defines the storage contract for retrieval queries.
// Results come back sorted by descending score, truncated to opts.K(),
// with entries below opts.MinScore() already excluded.
type ContentStore interface {
	Query(ctx context.Context, vector []float32, opts options.Options) ([]result.Result, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
