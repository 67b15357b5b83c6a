// Package rank provides the pure merge/dedup/sort utility underlying every
// booster merge step.
package rank

import (
	"sort"

	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
)

// Merge concatenates a and b, drops duplicates by passage text (first
// occurrence wins, so callers control precedence by argument order), sorts by
// descending score (stable: equal-score items keep relative input order), and
// truncates to maxCombined when positive.
func Merge(a, b []result.Result, maxCombined int) []result.Result {
	combined := make([]result.Result, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))

	for _, rs := range [][]result.Result{a, b} {
		for i := range rs {
			text := rs[i].Text()
			if _, dup := seen[text]; dup {
				continue
			}
			seen[text] = struct{}{}
			combined = append(combined, rs[i])
		}
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Score() > combined[j].Score()
	})

	return Top(combined, maxCombined)
}

// Top returns the first n results, or all of them when n is not positive.
// Input order is preserved; callers keeping the sort invariant get the
// n highest-scored items.
func Top(rs []result.Result, n int) []result.Result {
	if n > 0 && len(rs) > n {
		return rs[:n]
	}
	return rs
}
