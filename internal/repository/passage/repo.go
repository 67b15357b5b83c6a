// Package passage persists passages as hashes and manages their vector index.
package passage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/kailas-cloud/ragpipe/internal/db"
	"github.com/kailas-cloud/ragpipe/internal/domain"
	dompassage "github.com/kailas-cloud/ragpipe/internal/domain/passage"
)

// store is the narrow database contract this repository needs.
type store interface {
	db.HashStore
	db.IndexManager
}

// HNSWConfig tunes the vector index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo stores passages and their embeddings.
type Repo struct {
	store     store
	vectorDim int
	hnsw      HNSWConfig
}

// Option configures the repository.
type Option func(*Repo)

// WithHNSW overrides the default HNSW index build parameters.
func WithHNSW(cfg HNSWConfig) Option {
	return func(r *Repo) { r.hnsw = cfg }
}

// New creates a passage repository. vectorDim is the embedding dimension
// enforced on every upsert.
func New(s store, vectorDim int, opts ...Option) *Repo {
	r := &Repo{store: s, vectorDim: vectorDim}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureIndex creates the passage vector index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def := &db.IndexDefinition{
		Name:     domain.PassageIndexName,
		Prefixes: []string{domain.PassageKeyPrefix},
		Fields: []db.IndexField{
			{Name: domain.FieldSource, Type: db.IndexFieldTag},
			{Name: domain.FieldVersion, Type: db.IndexFieldTag},
			{
				Name:              domain.DefaultVectorPath,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.vectorDim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create passage index: %w", err)
	}
	return nil
}

// Upsert writes a passage and its embedding under the passage key prefix.
func (r *Repo) Upsert(ctx context.Context, p dompassage.Passage, vector []float32) error {
	fields, err := r.fields(&p, vector)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, key(p.ID()), fields); err != nil {
		return fmt.Errorf("upsert passage %s: %w", p.ID(), err)
	}
	return nil
}

// UpsertMulti writes multiple passages in a single pipelined round-trip.
// Passages and vectors are matched by index.
func (r *Repo) UpsertMulti(ctx context.Context, passages []dompassage.Passage, vectors [][]float32) error {
	if len(passages) != len(vectors) {
		return fmt.Errorf("%w: %d passages, %d vectors", domain.ErrVectorDimMismatch, len(passages), len(vectors))
	}

	items := make([]db.HashSetItem, 0, len(passages))
	for i := range passages {
		fields, err := r.fields(&passages[i], vectors[i])
		if err != nil {
			return fmt.Errorf("passage %s: %w", passages[i].ID(), err)
		}
		items = append(items, db.HashSetItem{Key: key(passages[i].ID()), Fields: fields})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d passages: %w", len(passages), err)
	}
	return nil
}

// Get loads a passage by id.
func (r *Repo) Get(ctx context.Context, id string) (dompassage.Passage, error) {
	fields, err := r.store.HGetAll(ctx, key(id))
	if err != nil {
		return dompassage.Passage{}, fmt.Errorf("get passage %s: %w", id, err)
	}
	if len(fields) == 0 {
		return dompassage.Passage{}, fmt.Errorf("%w: %s", domain.ErrPassageNotFound, id)
	}

	p, err := dompassage.New(id, fields[domain.FieldText], fields[domain.FieldSource], fields[domain.FieldVersion])
	if err != nil {
		return dompassage.Passage{}, fmt.Errorf("stored passage %s: %w", id, err)
	}
	return p, nil
}

// Delete removes a passage by id.
func (r *Repo) Delete(ctx context.Context, id string) error {
	exists, err := r.store.Exists(ctx, key(id))
	if err != nil {
		return fmt.Errorf("check passage %s: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrPassageNotFound, id)
	}
	if err := r.store.Del(ctx, key(id)); err != nil {
		return fmt.Errorf("delete passage %s: %w", id, err)
	}
	return nil
}

func (r *Repo) fields(p *dompassage.Passage, vector []float32) (map[string]string, error) {
	if len(vector) != r.vectorDim {
		return nil, fmt.Errorf("%w: got %d, index expects %d", domain.ErrVectorDimMismatch, len(vector), r.vectorDim)
	}
	fields := map[string]string{
		domain.FieldText:         p.Text(),
		domain.FieldSource:       p.Source(),
		domain.DefaultVectorPath: string(vectorToBytes(vector)),
	}
	if p.Version() != "" {
		fields[domain.FieldVersion] = p.Version()
	}
	return fields, nil
}

func key(id string) string {
	return domain.PassageKeyPrefix + id
}

func vectorToBytes(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
