// Package passage holds the retrievable unit of reference text.
package passage

import (
	"fmt"

	"github.com/kailas-cloud/ragpipe/internal/domain"
)

// MaxTextLength is the maximum allowed passage body length.
const MaxTextLength = 32768

// Passage is an immutable unit of reference text owned by the content store.
// Identity for deduplication purposes is the text body, not the id: two
// passages with the same text are the same piece of context regardless of
// which source re-published it.
type Passage struct {
	id      string
	text    string
	source  string
	version string
}

// New validates and creates a passage. Version is optional.
func New(id, text, source, version string) (Passage, error) {
	if id == "" {
		return Passage{}, fmt.Errorf("%w: id is required", domain.ErrInvalidPassage)
	}
	if text == "" {
		return Passage{}, fmt.Errorf("%w: text is required", domain.ErrInvalidPassage)
	}
	if len(text) > MaxTextLength {
		return Passage{}, fmt.Errorf("%w: text too long (max %d chars)", domain.ErrInvalidPassage, MaxTextLength)
	}
	if source == "" {
		return Passage{}, fmt.Errorf("%w: source is required", domain.ErrInvalidPassage)
	}
	return Passage{id: id, text: text, source: source, version: version}, nil
}

// ID returns the passage identifier.
func (p *Passage) ID() string { return p.id }

// Text returns the passage body.
func (p *Passage) Text() string { return p.text }

// Source returns the source identifier.
func (p *Passage) Source() string { return p.source }

// Version returns the optional version tag.
func (p *Passage) Version() string { return p.version }
