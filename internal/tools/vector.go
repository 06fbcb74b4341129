package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Sibikrish3000/cr-agent/internal/vectorstore"
)

// Search types accepted by VectorTools.Search
const (
	SearchPersistent = "persistent"
	SearchTemporary  = "temporary"
)

// VectorTools exposes document ingestion and similarity search as text producing tools.
type VectorTools struct {
	manager *vectorstore.Manager
}

// NewVectorTools creates the vector tools over a collection manager.
func NewVectorTools(manager *vectorstore.Manager) *VectorTools {
	return &VectorTools{manager: manager}
}

// Manager returns the underlying collection manager.
func (t *VectorTools) Manager() *vectorstore.Manager {
	return t.manager
}

// Ingest parses the file at path and stores its chunks under docID. Chunks of an earlier
// ingestion with the same id are replaced.
func (t *VectorTools) Ingest(ctx context.Context, path, docID string, temporary bool) string {
	count, err := t.ingest(ctx, path, docID, temporary)
	if err != nil {
		log.Warn().Err(err).Str("document_id", docID).Msg("Document ingestion failed")
		return fmt.Sprintf("Document ingestion failed: %v", err)
	}

	storeType := "persistent (disk)"
	if temporary {
		storeType = "temporary (in-memory)"
	}
	return fmt.Sprintf("Successfully ingested document '%s' into %s vector store. Created %d chunks.", docID, storeType, count)
}

func (t *VectorTools) ingest(ctx context.Context, path, docID string, temporary bool) (int, error) {
	text, err := ParseDocument(ctx, path)
	if err != nil {
		return 0, err
	}

	store, err := t.manager.Get(!temporary)
	if err != nil {
		return 0, err
	}
	if _, err := store.Delete(ctx, docID); err != nil {
		return 0, err
	}

	count, err := store.Ingest(ctx, text, docID, map[string]string{"file_path": path}, t.manager.ChunkSize(), t.manager.ChunkOverlap())
	if err != nil {
		return 0, err
	}

	log.Info().
		Str("document_id", docID).
		Str("collection", store.Name()).
		Int("chunks", count).
		Msg("Document ingested")
	return count, nil
}

// Search runs a similarity search and formats the hits with their scores. An empty
// docID searches the whole collection.
func (t *VectorTools) Search(ctx context.Context, query, docID string, topK int, searchType string) string {
	if searchType == "" {
		searchType = SearchPersistent
	}
	if topK <= 0 {
		topK = 3
	}

	store, err := t.manager.ByType(searchType)
	if err != nil {
		return fmt.Sprintf("Vector store search failed: %v", err)
	}

	results, err := store.Search(ctx, query, topK, docID)
	if err != nil {
		return fmt.Sprintf("Vector store search failed: %v", err)
	}
	if len(results) == 0 {
		return fmt.Sprintf("No relevant documents found in %s vector store.", searchType)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Vector Store Search Results:\n\n", capitalize(searchType))
	for i, r := range results {
		id := r.DocumentID()
		if id == "" {
			id = "unknown"
		}
		fmt.Fprintf(&sb, "Result %d (Similarity: %.3f):\n%s\n[Document: %s]\n\n", i+1, r.Similarity, r.Content, id)
	}
	return sb.String()
}

// DocumentID derives a document id from a file name: base name with dots replaced by underscores.
func DocumentID(path string) string {
	return strings.ReplaceAll(filepath.Base(path), ".", "_")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
