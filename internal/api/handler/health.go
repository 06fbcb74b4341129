package handler

import (
	"context"
	"net/http"

	"github.com/Sibikrish3000/cr-agent/internal/api/response"
	"github.com/Sibikrish3000/cr-agent/internal/llm"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status including database connectivity
func ReadyCheck(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			response.Unavailable(w, "database not ready")
			return
		}

		response.OK(w, map[string]string{
			"status": "ready",
		})
	}
}

// ProviderLister describes the registered LLM providers
type ProviderLister interface {
	GetProvidersInfo() []llm.ProviderInfo
	Active() (llm.Provider, error)
}

// ListLLMProviders returns the registered LLM providers in priority order
func ListLLMProviders(providers ProviderLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active := ""
		if p, err := providers.Active(); err == nil {
			active = p.Name()
		}

		infos := providers.GetProvidersInfo()
		if infos == nil {
			infos = []llm.ProviderInfo{}
		}

		response.OK(w, map[string]any{
			"providers":        infos,
			"default_provider": active,
		})
	}
}

// CacheFlusher drops cached tool results
type CacheFlusher interface {
	FlushAll(ctx context.Context) (int64, error)
}

// FlushCache clears all cached tool results from Redis. cache is nil when Redis is disabled.
func FlushCache(cache CacheFlusher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cache == nil {
			response.Unavailable(w, "cache is not enabled")
			return
		}

		deleted, err := cache.FlushAll(r.Context())
		if err != nil {
			response.InternalError(w, "failed to flush cache: "+err.Error())
			return
		}

		response.OK(w, map[string]any{
			"message":      "cache flushed successfully",
			"keys_deleted": deleted,
		})
	}
}
