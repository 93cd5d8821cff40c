// Package repository provides the versioned embedding cache: a lookup table
// from (team, season, model version) to cached embeddings. A model version
// bump invalidates the table wholesale; there is no per-entry staleness.
package repository

import (
	"context"
	"sync"

	"github.com/varsity/gridiron/internal/domain/model"
	"github.com/varsity/gridiron/pkg/logger"
	"github.com/varsity/gridiron/pkg/metrics"
)

// Cache stores embeddings for the current model version only.
type Cache struct {
	mu      sync.RWMutex
	version string
	entries map[model.TeamSeason]model.Embedding
	log     logger.Logger
}

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithLogger sets a custom logger for the Cache.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates an empty cache with no version pinned.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[model.TeamSeason]model.Embedding),
		log:     logger.Get().Named("embedding-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Version returns the model version the cache is pinned to. Empty until
// the first SetVersion.
func (c *Cache) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// SetVersion pins the cache to a model version. A version change flushes
// every entry; setting the current version again is a no-op.
func (c *Cache) SetVersion(ctx context.Context, version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version == c.version {
		return
	}
	flushed := len(c.entries)
	c.version = version
	c.entries = make(map[model.TeamSeason]model.Embedding)
	metrics.RecordCacheFlush()
	metrics.UpdateCacheSize(0)
	c.log.Info(ctx, "embedding cache flushed for new model version",
		logger.String("version", version),
		logger.Int("flushed", flushed),
	)
}

// Put stores an embedding. An embedding from a stale model version is
// rejected rather than mixed in.
func (c *Cache) Put(_ context.Context, e model.Embedding) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.ModelVersion != c.version {
		return ErrVersionMismatch
	}
	c.entries[e.TeamSeason] = e
	metrics.UpdateCacheSize(len(c.entries))
	return nil
}

// Get returns the cached embedding for a team-season, if present. A miss
// means the caller should re-encode.
func (c *Cache) Get(_ context.Context, ts model.TeamSeason) (model.Embedding, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[ts]
	if ok {
		metrics.RecordCacheHit()
	} else {
		metrics.RecordCacheMiss()
	}
	return e, ok
}

// Len returns the number of cached embeddings.
func (c *Cache) Len(_ context.Context) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
