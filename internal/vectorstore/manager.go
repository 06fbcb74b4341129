package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"github.com/Sibikrish3000/cr-agent/internal/config"
)

// Collection names
const (
	PersistentCollection = "documents"
	TemporaryCollection  = "temp_documents"
)

// ErrUnknownCollection is returned for a search type other than persistent or temporary
var ErrUnknownCollection = errors.New("unknown vector collection")

// Manager owns the persistent and temporary collections. Each is created on first use.
type Manager struct {
	cfg   config.VectorStoreConfig
	embed chromem.EmbeddingFunc

	persistentOnce sync.Once
	persistent     *Store
	persistentErr  error

	temporaryOnce sync.Once
	temporary     *Store
	temporaryErr  error
}

// NewManager creates a manager. Nothing is opened until a collection is requested.
func NewManager(cfg config.VectorStoreConfig, embed chromem.EmbeddingFunc) *Manager {
	return &Manager{cfg: cfg, embed: embed}
}

// ChunkSize returns the configured chunk window
func (m *Manager) ChunkSize() int {
	if m.cfg.ChunkSize <= 0 {
		return 500
	}
	return m.cfg.ChunkSize
}

// ChunkOverlap returns the configured chunk overlap
func (m *Manager) ChunkOverlap() int {
	if m.cfg.ChunkOverlap < 0 {
		return 0
	}
	return m.cfg.ChunkOverlap
}

// Persistent returns the on-disk "documents" collection
func (m *Manager) Persistent() (*Store, error) {
	m.persistentOnce.Do(func() {
		dir := m.cfg.PersistDir
		if dir == "" {
			dir = "./chroma_db"
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			m.persistentErr = fmt.Errorf("failed to create persist directory: %w", err)
			return
		}
		db, err := chromem.NewPersistentDB(dir, m.cfg.Compress)
		if err != nil {
			m.persistentErr = fmt.Errorf("failed to open persistent vector db: %w", err)
			return
		}
		col, err := db.GetOrCreateCollection(PersistentCollection, nil, m.embed)
		if err != nil {
			m.persistentErr = fmt.Errorf("failed to get/create collection %q: %w", PersistentCollection, err)
			return
		}
		m.persistent = newStore(PersistentCollection, true, col)
		log.Info().Str("dir", dir).Int("chunks", col.Count()).Msg("Persistent vector store ready")
	})
	return m.persistent, m.persistentErr
}

// Temporary returns the in-memory "temp_documents" collection
func (m *Manager) Temporary() (*Store, error) {
	m.temporaryOnce.Do(func() {
		col, err := chromem.NewDB().GetOrCreateCollection(TemporaryCollection, nil, m.embed)
		if err != nil {
			m.temporaryErr = fmt.Errorf("failed to get/create collection %q: %w", TemporaryCollection, err)
			return
		}
		m.temporary = newStore(TemporaryCollection, false, col)
	})
	return m.temporary, m.temporaryErr
}

// Get returns the persistent or temporary collection
func (m *Manager) Get(persistent bool) (*Store, error) {
	if persistent {
		return m.Persistent()
	}
	return m.Temporary()
}

// ByType resolves "persistent" or "temporary"
func (m *Manager) ByType(searchType string) (*Store, error) {
	switch searchType {
	case "persistent":
		return m.Persistent()
	case "temporary":
		return m.Temporary()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, searchType)
	}
}

// Stats reports chunk counts per collection, opening them if needed
func (m *Manager) Stats() map[string]int {
	stats := map[string]int{}
	for _, persistent := range []bool{true, false} {
		store, err := m.Get(persistent)
		if err != nil {
			log.Warn().Err(err).Bool("persistent", persistent).Msg("Vector collection unavailable")
			continue
		}
		stats[store.Name()] = store.Count()
	}
	return stats
}

// Ingest is a convenience for Get(persistent).Ingest with the configured chunking
func (m *Manager) Ingest(ctx context.Context, persistent bool, text, docID string, metadata map[string]string) (int, error) {
	store, err := m.Get(persistent)
	if err != nil {
		return 0, err
	}
	return store.Ingest(ctx, text, docID, metadata, m.ChunkSize(), m.ChunkOverlap())
}
