// Package result holds scored retrieval hits.
package result

// Result pairs a passage with its similarity score for one query vector.
// Results are constructed fresh per query and never persisted.
type Result struct {
	id      string
	score   float64
	text    string
	source  string
	version string
}

// New creates a scored result.
func New(id string, score float64, text, source, version string) Result {
	return Result{id: id, score: score, text: text, source: source, version: version}
}

// ID returns the passage identifier.
func (r *Result) ID() string { return r.id }

// Score returns the similarity score in [0, 1], higher is more relevant.
func (r *Result) Score() float64 { return r.score }

// Text returns the passage body.
func (r *Result) Text() string { return r.text }

// Source returns the source identifier.
func (r *Result) Source() string { return r.source }

// Version returns the optional version tag.
func (r *Result) Version() string { return r.version }
