package vectorstore

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
)

// Metadata keys written on every chunk
const (
	MetaDocumentID  = "document_id"
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
)

// Result is one similarity search hit
type Result struct {
	ID         string
	Content    string
	Similarity float64
	Metadata   map[string]string
}

// DocumentID returns the id of the document the hit belongs to
func (r Result) DocumentID() string {
	return r.Metadata[MetaDocumentID]
}

// Store is a single chromem collection. Writers are serialized; searches share a read lock
// so the collection cannot shrink between sizing and running a query.
type Store struct {
	name       string
	persistent bool
	col        *chromem.Collection
	mu         sync.RWMutex
}

func newStore(name string, persistent bool, col *chromem.Collection) *Store {
	return &Store{name: name, persistent: persistent, col: col}
}

// Name returns the collection name
func (s *Store) Name() string {
	return s.name
}

// Persistent reports whether the collection survives restarts
func (s *Store) Persistent() bool {
	return s.persistent
}

// Count returns the number of stored chunks
func (s *Store) Count() int {
	return s.col.Count()
}

// Ingest chunks text and stores every chunk with its embedding.
// Returns the number of chunks written; empty input writes nothing.
func (s *Store) Ingest(ctx context.Context, text, docID string, metadata map[string]string, size, overlap int) (int, error) {
	chunks := Chunk(text, size, overlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		meta := map[string]string{
			MetaDocumentID:  docID,
			MetaChunkIndex:  strconv.Itoa(i),
			MetaTotalChunks: strconv.Itoa(len(chunks)),
		}
		for k, v := range metadata {
			meta[k] = v
		}
		docs[i] = chromem.Document{
			ID:       fmt.Sprintf("%s_chunk_%d", docID, i),
			Content:  chunk,
			Metadata: meta,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("failed to add documents to %s: %w", s.name, err)
	}
	return len(chunks), nil
}

// Search returns up to topK chunks closest to query, best first.
// docID, when set, restricts the search to that document's chunks.
func (s *Store) Search(ctx context.Context, query string, topK int, docID string) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := min(topK, s.col.Count())
	if n <= 0 {
		return nil, nil
	}

	var where map[string]string
	if docID != "" {
		where = map[string]string{MetaDocumentID: docID}
	}

	hits, err := s.col.Query(ctx, query, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.name, err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			ID:         h.ID,
			Content:    h.Content,
			Similarity: Similarity(h.Similarity),
			Metadata:   h.Metadata,
		})
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes every chunk of docID and returns how many were removed
func (s *Store) Delete(ctx context.Context, docID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.col.Count()
	if before == 0 {
		return 0, nil
	}
	if err := s.col.Delete(ctx, map[string]string{MetaDocumentID: docID}, nil); err != nil {
		return 0, fmt.Errorf("failed to delete %s from %s: %w", docID, s.name, err)
	}
	return before - s.col.Count(), nil
}

// Similarity maps cosine similarity of normalized vectors onto 1/(1+d),
// where d is their squared euclidean distance 2(1-cos).
func Similarity(cosine float32) float64 {
	d := 2 * (1 - float64(cosine))
	if d < 0 {
		d = 0
	}
	return 1 / (1 + d)
}
