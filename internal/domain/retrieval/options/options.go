// Package options holds validated search parameters for one store query.
package options

import (
	"fmt"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/filter"
)

// Search parameter limits.
const (
	DefaultK = 10
	MaxK     = 200
)

// Options configures a single nearest-neighbour query: how many candidates
// to fetch, which index and vector field to search, the inclusive minimum
// similarity score, and an optional metadata pre-filter.
type Options struct {
	indexName string
	path      string
	k         int
	minScore  float64
	filters   filter.Expression
}

// New validates and normalizes search options.
// Defaults: path=__vector, k=10.
func New(indexName, path string, k int, minScore float64, filters filter.Expression) (Options, error) {
	if indexName == "" {
		return Options{}, fmt.Errorf("index name is required")
	}
	if path == "" {
		path = domain.DefaultVectorPath
	}
	if k <= 0 {
		k = DefaultK
	}
	if k > MaxK {
		k = MaxK
	}
	if minScore < 0 || minScore > 1 {
		return Options{}, fmt.Errorf("min_score must be between 0 and 1")
	}
	return Options{
		indexName: indexName,
		path:      path,
		k:         k,
		minScore:  minScore,
		filters:   filters,
	}, nil
}

// Scoped derives options for a secondary sub-query against the same index
// and vector field, with its own k, minScore, and filter.
func (o Options) Scoped(k int, minScore float64, filters filter.Expression) (Options, error) {
	return New(o.indexName, o.path, k, minScore, filters)
}

// IndexName returns the FT index to query.
func (o Options) IndexName() string { return o.indexName }

// Path returns the stored field holding the vector.
func (o Options) Path() string { return o.path }

// K returns the maximum candidates to retrieve.
func (o Options) K() int { return o.k }

// MinScore returns the inclusive lower similarity bound.
func (o Options) MinScore() float64 { return o.minScore }

// Filters returns the metadata pre-filter expression.
func (o Options) Filters() filter.Expression { return o.filters }
