package mcp

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
)

// Router creates adapters by database type and keeps one live connection per type.
// Health checks run under the lock; the SQL agent holds a single store.
type Router struct {
	mu        sync.Mutex
	factories map[string]AdapterFactory
	pool      map[string]Adapter
}

// NewRouter creates a new adapter router
func NewRouter() *Router {
	return &Router{
		factories: make(map[string]AdapterFactory),
		pool:      make(map[string]Adapter),
	}
}

// RegisterAdapter registers an adapter factory for a database type
func (r *Router) RegisterAdapter(dbType string, factory AdapterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[dbType] = factory
}

func (r *Router) SupportedDatabases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// GetAdapter returns the pooled adapter for dbType, connecting a new one when there is
// none or the pooled one fails its health check.
func (r *Router) GetAdapter(ctx context.Context, dbType string, config ConnectionConfig) (Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if adapter, ok := r.pool[dbType]; ok {
		err := adapter.HealthCheck(ctx)
		if err == nil {
			return adapter, nil
		}
		log.Warn().Err(err).Str("db_type", dbType).Msg("Pooled adapter unhealthy, reconnecting")
		_ = adapter.Close()
		delete(r.pool, dbType)
	}

	factory, ok := r.factories[dbType]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	adapter := factory()
	if err := adapter.Connect(ctx, config); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	r.pool[dbType] = adapter
	return adapter, nil
}

// CloseAll closes all connections
func (r *Router) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for dbType, adapter := range r.pool {
		if err := adapter.Close(); err != nil {
			log.Warn().Err(err).Str("db_type", dbType).Msg("Failed to close adapter")
		}
		delete(r.pool, dbType)
	}
}

// PoolSize returns the current number of pooled connections
func (r *Router) PoolSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pool)
}
