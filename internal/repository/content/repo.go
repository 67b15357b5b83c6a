// Package content adapts the database KNN search to the retrieval pipeline.
package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragpipe/internal/db"
	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/options"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
)

// store is the narrow database contract this repository needs.
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo executes vector similarity queries against the passage index.
type Repo struct {
	store store
}

// New creates a content repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Query runs a KNN search and converts hits to domain results.
// Entries scoring below opts.MinScore() are excluded here, so callers only
// ever see results that satisfy the score bound.
func (r *Repo) Query(ctx context.Context, vector []float32, opts options.Options) ([]result.Result, error) {
	q := &db.KNNQuery{
		IndexName:  opts.IndexName(),
		VectorPath: opts.Path(),
		Filters:    opts.Filters(),
		Vector:     vector,
		K:          opts.K(),
		ReturnFields: []string{
			domain.FieldText,
			domain.FieldSource,
			domain.FieldVersion,
		},
	}

	res, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	results := make([]result.Result, 0, len(res.Entries))
	for i := range res.Entries {
		entry := &res.Entries[i]
		if entry.Score < opts.MinScore() {
			continue
		}
		docID := strings.TrimPrefix(entry.Key, domain.PassageKeyPrefix)
		results = append(results, result.New(
			docID,
			entry.Score,
			entry.Fields[domain.FieldText],
			entry.Fields[domain.FieldSource],
			entry.Fields[domain.FieldVersion],
		))
	}

	return results, nil
}
