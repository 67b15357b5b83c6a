package retrieval

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
)

// CapSource bounds how many results from one source appear in the final
// set. It runs no store query: the merge drops the lowest-ranked surplus
// items of the capped source, leaving everything else in place. Useful
// after an EnsureSource boost to keep a chatty source from crowding out
// the rest.
type CapSource struct {
	source string
	max    int
}

// NewCapSource creates the booster. max must be positive.
func NewCapSource(source string, max int) (*CapSource, error) {
	if source == "" {
		return nil, fmt.Errorf("cap_source: source is required")
	}
	if max <= 0 {
		return nil, fmt.Errorf("cap_source %s: max must be positive", source)
	}
	return &CapSource{source: source, max: max}, nil
}

// Name implements Booster.
func (b *CapSource) Name() string {
	return "cap_source:" + b.source
}

// ShouldApply implements Booster. The cap is unconditional.
func (b *CapSource) ShouldApply(_ string) bool {
	return true
}

// Boost implements Booster. Input order is preserved, so with a sorted
// input the surviving items of the capped source are its highest-scored.
func (b *CapSource) Boost(
	_ context.Context, _ []float32, _ ContentStore, current []result.Result,
) ([]result.Result, error) {
	kept := 0
	out := make([]result.Result, 0, len(current))
	for i := range current {
		if current[i].Source() == b.source {
			if kept >= b.max {
				continue
			}
			kept++
		}
		out = append(out, current[i])
	}
	return out, nil
}
