// Package retrieval selects the ranked passages injected into a model prompt.
//
// A query is embedded once, the content store is queried once for the
// primary candidates, and the configured boosters are then folded over the
// result set in declaration order. A later booster observes the output of
// all earlier ones, so ordering in the configuration is a behavioral
// contract, not a detail.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/options"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/rank"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
	"github.com/kailas-cloud/ragpipe/internal/logger"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
)

// Pipeline orchestrates embedding, the primary store query, and the booster fold.
type Pipeline struct {
	store     ContentStore
	embed     Embedder
	primary   options.Options
	boosters  []Booster
	totalMaxK int
}

// New creates a retrieval pipeline. Boosters run in the given order on
// every request whose predicate they accept. totalMaxK, when positive,
// caps the final output size after all boosters have run; zero disables
// the cap.
func New(store ContentStore, embed Embedder, primary options.Options, boosters []Booster, totalMaxK int) *Pipeline {
	return &Pipeline{
		store:     store,
		embed:     embed,
		primary:   primary,
		boosters:  boosters,
		totalMaxK: totalMaxK,
	}
}

// Retrieve produces the final ranked result set for a query.
//
// Embedding failure and primary query failure abort the request with
// domain.ErrQueryEmbedding and domain.ErrStoreQuery respectively. A failing
// booster is skipped: its error is logged and counted but never surfaces to
// the caller.
func (p *Pipeline) Retrieve(ctx context.Context, queryText string) ([]result.Result, error) {
	start := time.Now()

	results, err := p.retrieve(ctx, queryText)
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.RetrievalRequestsTotal.WithLabelValues("success").Inc()
	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	return results, nil
}

func (p *Pipeline) retrieve(ctx context.Context, queryText string) ([]result.Result, error) {
	embRes, err := p.embed.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrQueryEmbedding, err)
	}

	domain.UsageFromContext(ctx).AddTokens(embRes.TotalTokens)

	results, err := p.store.Query(ctx, embRes.Embedding, p.primary)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreQuery, err)
	}

	for _, b := range p.boosters {
		if !b.ShouldApply(queryText) {
			continue
		}

		boosted, err := b.Boost(ctx, embRes.Embedding, p.store, results)
		if err != nil {
			metrics.BoosterErrorsTotal.WithLabelValues(b.Name()).Inc()
			logger.FromContext(ctx).Warn("booster failed, skipping",
				zap.String("booster", b.Name()), zap.Error(err))
			continue
		}

		metrics.BoosterAppliedTotal.WithLabelValues(b.Name()).Inc()
		results = boosted
	}

	return rank.Top(results, p.totalMaxK), nil
}
