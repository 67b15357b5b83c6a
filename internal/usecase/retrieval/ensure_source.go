package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/filter"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/options"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/rank"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
)

// DefaultCarryOver bounds how many pre-boost results survive an
// EnsureSource merge when no explicit carry-over is configured.
const DefaultCarryOver = 3

// EnsureSourceConfig configures an EnsureSource booster.
type EnsureSourceConfig struct {
	// Source scopes the secondary query; required.
	Source string
	// K is the maximum number of boosted results to fetch.
	K int
	// MinScore is the score bound for the secondary query, typically more
	// permissive than the primary query's bound.
	MinScore float64
	// CarryOver caps how many pre-boost results are retained; defaults to
	// DefaultCarryOver when zero.
	CarryOver int
	// PinFirst keeps boosted items ahead of carry-over items instead of
	// re-sorting the combined set by score.
	PinFirst bool
	// MaxQueryWords makes the booster apply to queries with at most this
	// many words. Zero disables the word-count predicate.
	MaxQueryWords int
	// Keyword makes the booster apply to queries containing this substring,
	// case-insensitively. Empty disables the keyword predicate.
	Keyword string
}

// EnsureSource forces passages from one source into view when a query
// predicate holds: it runs a secondary query scoped to that source with a
// lower score bound, trims the existing results to the carry-over cap, and
// merges the two sets with boosted items winning text duplicates.
//
// By default the combined set is re-sorted by descending score. With
// PinFirst the boosted items stay ahead of carry-over items regardless of
// score, a documented deviation from the sorted-output contract.
type EnsureSource struct {
	source    string
	scoped    options.Options
	carryOver int
	pinFirst  bool

	maxQueryWords int
	keyword       string
}

// NewEnsureSource creates the booster. primary supplies the index and
// vector field the scoped secondary query runs against.
func NewEnsureSource(primary options.Options, cfg EnsureSourceConfig) (*EnsureSource, error) {
	if cfg.Source == "" {
		return nil, fmt.Errorf("ensure_source: source is required")
	}
	if cfg.CarryOver <= 0 {
		cfg.CarryOver = DefaultCarryOver
	}

	expr, err := filter.MustMatch(domain.FieldSource, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("ensure_source %s: %w", cfg.Source, err)
	}

	scoped, err := primary.Scoped(cfg.K, cfg.MinScore, expr)
	if err != nil {
		return nil, fmt.Errorf("ensure_source %s: %w", cfg.Source, err)
	}

	return &EnsureSource{
		source:        cfg.Source,
		scoped:        scoped,
		carryOver:     cfg.CarryOver,
		pinFirst:      cfg.PinFirst,
		maxQueryWords: cfg.MaxQueryWords,
		keyword:       cfg.Keyword,
	}, nil
}

// Name implements Booster.
func (b *EnsureSource) Name() string {
	return "ensure_source:" + b.source
}

// ShouldApply reports whether the query triggers the boost. With both
// predicates configured, either one matching is enough; with neither
// configured the booster applies unconditionally.
func (b *EnsureSource) ShouldApply(queryText string) bool {
	if b.maxQueryWords == 0 && b.keyword == "" {
		return true
	}
	if b.maxQueryWords > 0 && len(strings.Fields(queryText)) <= b.maxQueryWords {
		return true
	}
	if b.keyword != "" && strings.Contains(strings.ToLower(queryText), strings.ToLower(b.keyword)) {
		return true
	}
	return false
}

// Boost implements Booster.
func (b *EnsureSource) Boost(
	ctx context.Context, vector []float32, store ContentStore, current []result.Result,
) ([]result.Result, error) {
	boosted, err := store.Query(ctx, vector, b.scoped)
	if err != nil {
		return nil, fmt.Errorf("scoped query for source %s: %w", b.source, err)
	}
	if len(boosted) == 0 {
		return current, nil
	}

	carried := rank.Top(current, b.carryOver)

	if b.pinFirst {
		return pinMerge(boosted, carried), nil
	}
	return rank.Merge(boosted, carried, 0), nil
}

// pinMerge keeps boosted items first in their own score order and appends
// the carry-over items that do not duplicate a boosted text.
func pinMerge(boosted, carried []result.Result) []result.Result {
	out := make([]result.Result, 0, len(boosted)+len(carried))
	seen := make(map[string]struct{}, len(boosted)+len(carried))

	for _, rs := range [][]result.Result{boosted, carried} {
		for i := range rs {
			text := rs[i].Text()
			if _, dup := seen[text]; dup {
				continue
			}
			seen[text] = struct{}{}
			out = append(out, rs[i])
		}
	}
	return out
}
