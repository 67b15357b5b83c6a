package retrieval

import (
	"context"

	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
)

// Booster is a named, stateless result-adjustment policy applied after the
// primary query. Boosters never see raw query text during the merge, only
// the embedding, which keeps their output a pure function of the vector
// space and the current result set.
//
// A booster must preserve the pipeline invariants: no duplicate passage
// texts in its output, and descending score order unless the booster
// documents a pin-to-front deviation.
type Booster interface {
	// Name identifies the booster in logs and metrics.
	Name() string

	// ShouldApply decides from the raw query text whether the booster
	// participates in this request. Returning false makes the booster an
	// identity operation.
	ShouldApply(queryText string) bool

	// Boost returns the new result set. It must not mutate current.
	Boost(ctx context.Context, vector []float32, store ContentStore, current []result.Result) ([]result.Result, error)
}
