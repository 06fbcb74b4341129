package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrNoProvider is returned when no registered provider is usable.
var ErrNoProvider = errors.New("No valid LLM configured. Set OPENAI_API_KEY, GOOGLE_API_KEY, or OLLAMA_BASE_URL")

// Observer receives per-call gateway measurements.
type Observer func(provider string, latencyMs int64, err error)

// Router manages LLM providers and picks the first configured one in priority order
type Router struct {
	providers map[string]Provider
	priority  []string
	observer  Observer
	mu        sync.RWMutex
}

// NewRouter creates a new LLM router
func NewRouter(priority []string) *Router {
	return &Router{
		providers: make(map[string]Provider),
		priority:  append([]string(nil), priority...),
	}
}

// RegisterProvider registers an LLM provider. Providers missing from the priority
// list are appended to it.
func (r *Router) RegisterProvider(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := provider.Name()
	r.providers[name] = provider
	for _, p := range r.priority {
		if p == name {
			return
		}
	}
	r.priority = append(r.priority, name)
}

// SetObserver installs a callback invoked after every generation.
func (r *Router) SetObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
}

// Active returns the provider that would serve the next call.
func (r *Router) Active() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.priority {
		p, ok := r.providers[name]
		if ok && p.IsConfigured() {
			return p, nil
		}
	}
	return nil, ErrNoProvider
}

// Generate sends the request to the active provider
func (r *Router) Generate(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p, err := r.Active()
	if err != nil {
		return nil, err
	}

	resp, err := p.Chat(ctx, req)

	r.mu.RLock()
	observer := r.observer
	r.mu.RUnlock()
	if observer != nil {
		var latency int64
		if resp != nil {
			latency = resp.LatencyMs
		}
		observer(p.Name(), latency, err)
	}

	if err != nil {
		log.Error().Err(err).Str("provider", p.Name()).Msg("LLM generation failed")
		return nil, fmt.Errorf("%s generation failed: %w", p.Name(), err)
	}
	resp.Provider = p.Name()
	return resp, nil
}

// GetProvider returns a provider by name
func (r *Router) GetProvider(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}

	if !p.IsConfigured() {
		return nil, fmt.Errorf("provider not configured: %s", name)
	}

	return p, nil
}

// ListProviders returns configured provider names in priority order
func (r *Router) ListProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var providers []string
	for _, name := range r.priority {
		if p, ok := r.providers[name]; ok && p.IsConfigured() {
			providers = append(providers, name)
		}
	}
	return providers
}

// ProviderInfo contains information about an LLM provider
type ProviderInfo struct {
	Name       string   `json:"name"`
	Models     []string `json:"models"`
	Default    bool     `json:"default"`
	Configured bool     `json:"configured"`
}

// GetProvidersInfo returns information about all providers in priority order
func (r *Router) GetProvidersInfo() []ProviderInfo {
	active, _ := r.Active()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var infos []ProviderInfo
	for _, name := range r.priority {
		p, ok := r.providers[name]
		if !ok {
			continue
		}
		infos = append(infos, ProviderInfo{
			Name:       name,
			Models:     p.AvailableModels(),
			Default:    active != nil && active.Name() == name,
			Configured: p.IsConfigured(),
		})
	}
	return infos
}

// ValidAPIKey rejects empty keys, short keys and "your_..._api_key" placeholders.
func ValidAPIKey(key string) bool {
	key = strings.TrimSpace(key)
	if len(key) <= 20 {
		return false
	}
	lower := strings.ToLower(key)
	return !(strings.Contains(lower, "your_") && strings.Contains(lower, "api_key"))
}
