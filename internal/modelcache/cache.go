// Package modelcache keeps a small bounded set of loaded model handles so
// repeated operations in one process do not reload weights.
package modelcache

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"whisper-bridge/internal/engine"
)

// DefaultCapacity bounds the cache to two resident models; model weights are
// large and holding more defeats the point of a bridge process.
const DefaultCapacity = 2

// Cache is a capacity-bounded mapping from model identifier to loaded handle.
// Eviction is first-inserted-first-evicted, not least-recently-used. All
// operations are serialized by one mutex so load-or-evict stays atomic under
// concurrent callers.
type Cache struct {
	mu       sync.Mutex
	engine   engine.Engine
	cfg      engine.LoadConfig
	capacity int
	order    []string
	entries  map[string]engine.Model
	log      zerolog.Logger
}

// New creates a cache loading through the given engine with a fixed compute
// configuration. Non-positive capacities fall back to the default bound.
func New(e engine.Engine, cfg engine.LoadConfig, capacity int, log zerolog.Logger) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Cache{
		engine:   e,
		cfg:      cfg,
		capacity: capacity,
		entries:  make(map[string]engine.Model, capacity),
		log:      log.With().Str("component", "modelcache").Logger(),
	}
}

// GetOrLoad returns the cached handle for model, loading and inserting it on
// a miss. Load failures are returned without mutating the cache.
func (c *Cache) GetOrLoad(ctx context.Context, model string) (engine.Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if handle, ok := c.entries[model]; ok {
		return handle, nil
	}

	handle, err := c.engine.Load(ctx, model, c.cfg)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", model, err)
	}

	if len(c.entries) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		c.log.Debug().Str("evicted", oldest).Str("inserted", model).Msg("evicted oldest model")
	}

	c.entries[model] = handle
	c.order = append(c.order, model)
	return handle, nil
}

// Remove drops the entry for model, if present. Resource reclamation of the
// underlying handle is left to normal garbage collection.
func (c *Cache) Remove(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[model]; !ok {
		return
	}
	delete(c.entries, model)
	for i, id := range c.order {
		if id == model {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of resident models.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
