package embedcache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/licitarag/internal/ai"
)

// WrapLruCacheToEmbedder keeps recent embeddings in memory, mostly repeated
// chat questions against the same edital. Disabled when size or ttl is zero.
func WrapLruCacheToEmbedder(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:    e,
		vectors: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next    ai.IEmbedder
	vectors *expirable.LRU[string, []float32]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

func (l *lruEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	key, _, _ := buildCacheKey(l.next.ModelName(), taskType, text)
	if vec, ok := l.vectors.Get(key); ok {
		hits := l.hits.Add(1)
		logutil.GetLogger(ctx).Debug("embedding lru hit",
			zap.String("task_type", taskType), zap.Uint64("hits", hits), zap.Uint64("misses", l.misses.Load()))
		return copyVector(vec), nil
	}
	l.misses.Add(1)
	vec, err := l.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	l.vectors.Add(key, copyVector(vec))
	return vec, nil
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}

// LruStats reports hit and miss counts of an embedder built by
// WrapLruCacheToEmbedder. ok is false for any other embedder.
func LruStats(e ai.IEmbedder) (hits, misses uint64, ok bool) {
	l, ok := e.(*lruEmbedder)
	if !ok {
		return 0, 0, false
	}
	return l.hits.Load(), l.misses.Load(), true
}

func copyVector(v []float32) []float32 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
