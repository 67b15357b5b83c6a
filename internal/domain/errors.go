package domain

import "errors"

var (
	// ErrQueryEmbedding signals that the query could not be vectorized; retrieval aborts.
	ErrQueryEmbedding = errors.New("query embedding failed")
	// ErrStoreQuery signals that the primary content store query failed; retrieval aborts.
	ErrStoreQuery = errors.New("content store query failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrPassageNotFound signals a missing passage.
	ErrPassageNotFound = errors.New("passage not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch against the index.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidPassage signals a malformed passage payload.
	ErrInvalidPassage = errors.New("invalid passage")
)
