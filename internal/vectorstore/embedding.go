package vectorstore

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/philippgille/chromem-go"

	"github.com/Sibikrish3000/cr-agent/internal/config"
)

// NewEmbeddingFunc builds the embedder named by cfg.Provider
func NewEmbeddingFunc(cfg config.EmbeddingConfig) (chromem.EmbeddingFunc, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "ollama":
		model := cfg.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		return chromem.NewEmbeddingFuncOllama(model, cfg.BaseURL), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai embeddings require an API key")
		}
		model := cfg.Model
		if model == "" || model == "nomic-embed-text" {
			model = string(chromem.EmbeddingModelOpenAI3Small)
		}
		return chromem.NewEmbeddingFuncOpenAI(cfg.APIKey, chromem.EmbeddingModelOpenAI(model)), nil
	case "openai_compat":
		if cfg.BaseURL == "" || cfg.Model == "" {
			return nil, fmt.Errorf("openai_compat embeddings require base_url and model")
		}
		return chromem.NewEmbeddingFuncOpenAICompat(cfg.BaseURL, cfg.APIKey, cfg.Model, nil), nil
	case "hash":
		return HashEmbedding(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// HashEmbedding returns a deterministic bag-of-words embedder that needs no model.
// Each lowercased token is hashed into one of dims buckets and the vector is normalized.
func HashEmbedding(dims int) chromem.EmbeddingFunc {
	if dims <= 0 {
		dims = 384
	}
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dims)
		tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		for _, tok := range tokens {
			h := fnv.New32a()
			h.Write([]byte(tok))
			vec[h.Sum32()%uint32(dims)]++
		}

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm == 0 {
			// chromem rejects zero vectors during normalization
			vec[0] = 1
			return vec, nil
		}
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
		return vec, nil
	}
}
