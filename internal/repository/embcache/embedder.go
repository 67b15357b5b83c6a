// Package embcache caches embedding vectors in the key-value store.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/db"
	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/logger"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
)

const cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// CachedEmbedder wraps an embedder with a key-value cache keyed by the
// SHA-256 of the input text. Cache failures never fail the embed call.
type CachedEmbedder struct {
	inner domain.Embedder
	kv    db.KVStore
	ttl   time.Duration
}

// New creates a caching embedder decorator. A zero ttl stores entries
// without expiry.
func New(inner domain.Embedder, kv db.KVStore, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, kv: kv, ttl: ttl}
}

// Embed returns the cached vector when present, otherwise delegates to the
// inner embedder and stores the result. Cached hits report zero token usage
// since no provider call happens.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := cacheKey(text)

	data, err := e.kv.Get(ctx, key)
	if err == nil {
		vec, decErr := bytesToVector(data)
		if decErr == nil {
			metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
			return domain.EmbeddingResult{Embedding: vec}, nil
		}
		logger.FromContext(ctx).Warn("corrupt embedding cache entry",
			zap.String("key", key), zap.Error(decErr))
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		logger.FromContext(ctx).Warn("embedding cache read failed",
			zap.String("key", key), zap.Error(err))
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

	result, err := e.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	if err := e.put(ctx, key, result.Embedding); err != nil {
		logger.FromContext(ctx).Warn("embedding cache write failed",
			zap.String("key", key), zap.Error(err))
	}

	return result, nil
}

func (e *CachedEmbedder) put(ctx context.Context, key string, vec []float32) error {
	data := vectorToBytes(vec)
	if e.ttl > 0 {
		return e.kv.SetWithTTL(ctx, key, data, e.ttl)
	}
	return e.kv.Set(ctx, key, data)
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func vectorToBytes(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector payload length %d", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
