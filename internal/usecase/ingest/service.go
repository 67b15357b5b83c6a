// Package ingest writes passages and their embeddings into the content store.
package ingest

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/passage"
)

// Service handles passage upserts and deletes.
type Service struct {
	repo  Repository
	embed Embedder
}

// New creates an ingest service.
func New(repo Repository, embed Embedder) *Service {
	return &Service{repo: repo, embed: embed}
}

// Upsert embeds the passage text and stores the passage with its vector.
func (s *Service) Upsert(ctx context.Context, p passage.Passage) error {
	embRes, err := s.embed.Embed(ctx, p.Text())
	if err != nil {
		return fmt.Errorf("vectorize passage %s: %w", p.ID(), err)
	}

	domain.UsageFromContext(ctx).AddTokens(embRes.TotalTokens)

	if err := s.repo.Upsert(ctx, p, embRes.Embedding); err != nil {
		return fmt.Errorf("store passage %s: %w", p.ID(), err)
	}
	return nil
}

// UpsertBatch embeds all passages in one provider call when the embedder
// supports batching, then stores them in a single pipelined write.
func (s *Service) UpsertBatch(ctx context.Context, passages []passage.Passage) error {
	if len(passages) == 0 {
		return nil
	}

	texts := make([]string, len(passages))
	for i := range passages {
		texts[i] = passages[i].Text()
	}

	var batch domain.BatchEmbeddingResult
	var err error
	if be, ok := s.embed.(domain.BatchEmbedder); ok {
		batch, err = be.BatchEmbed(ctx, texts)
	} else {
		batch, err = domain.BatchFallback(ctx, s.embed, texts)
	}
	if err != nil {
		return fmt.Errorf("vectorize %d passages: %w", len(passages), err)
	}

	domain.UsageFromContext(ctx).AddTokens(batch.TotalTokens)

	if err := s.repo.UpsertMulti(ctx, passages, batch.Embeddings); err != nil {
		return fmt.Errorf("store %d passages: %w", len(passages), err)
	}
	return nil
}

// Get loads a passage by id.
func (s *Service) Get(ctx context.Context, id string) (passage.Passage, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return passage.Passage{}, fmt.Errorf("get passage: %w", err)
	}
	return p, nil
}

// Delete removes a passage by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete passage: %w", err)
	}
	return nil
}
