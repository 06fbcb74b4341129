package vectorstore

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sibikrish3000/cr-agent/internal/config"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		size, overlap int
		want          []string
	}{
		{"empty", "", 500, 50, nil},
		{"shorter than window", "hello", 500, 50, []string{"hello"}},
		{"overlapping windows", "abcdefghij", 4, 1, []string{"abcd", "defg", "ghij"}},
		{"shorter than window but longer than stride", strings.Repeat("a", 480), 500, 50, []string{strings.Repeat("a", 480)}},
		{"last window shorter", "abcdefgh", 4, 1, []string{"abcd", "defg", "gh"}},
		{"whitespace window dropped", "ab      ", 2, 0, []string{"ab"}},
		{"stride would not advance", "abcdef", 3, 3, []string{"abc"}},
		{"multibyte runes", "ééééé", 2, 0, []string{"éé", "éé", "é"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chunk(tt.text, tt.size, tt.overlap))
		})
	}
}

func TestChunk_DefaultSizes(t *testing.T) {
	text := strings.Repeat("x", 1200)
	chunks := Chunk(text, 500, 50)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 500)
	assert.Len(t, chunks[2], 300)
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity(1), 1e-9)
	assert.InDelta(t, 1.0/3.0, Similarity(0), 1e-9)
	assert.InDelta(t, 0.2, Similarity(-1), 1e-9)
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(config.VectorStoreConfig{
		PersistDir:   t.TempDir(),
		ChunkSize:    500,
		ChunkOverlap: 50,
	}, HashEmbedding(256))
}

func TestStore_IngestSearchDelete(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	store, err := m.Temporary()
	require.NoError(t, err)
	assert.False(t, store.Persistent())

	n, err := store.Ingest(ctx, "", "empty_txt", nil, 500, 50)
	require.NoError(t, err)
	assert.Zero(t, n)

	vpn := "To configure the VPN open the network settings and import the corporate profile."
	n, err = store.Ingest(ctx, vpn, "vpn_guide_txt", map[string]string{"file_path": "/tmp/vpn_guide.txt"}, 500, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.Ingest(ctx, "Quarterly revenue grew by twelve percent in the northern region.", "finance_txt", nil, 500, 50)
	require.NoError(t, err)

	results, err := store.Search(ctx, "configure the VPN network settings", 3, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "vpn_guide_txt", results[0].DocumentID())
	assert.Equal(t, "vpn_guide_txt_chunk_0", results[0].ID)
	assert.Equal(t, "/tmp/vpn_guide.txt", results[0].Metadata["file_path"])
	assert.Equal(t, "1", results[0].Metadata[MetaTotalChunks])
	assert.Greater(t, results[0].Similarity, results[1].Similarity)

	filtered, err := store.Search(ctx, "configure the VPN", 3, "finance_txt")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "finance_txt", filtered[0].DocumentID())

	deleted, err := store.Delete(ctx, "vpn_guide_txt")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	deleted, err = store.Delete(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Equal(t, 1, store.Count())
}

func TestStore_SearchWhileReplacing(t *testing.T) {
	ctx := context.Background()
	store, err := newTestManager(t).Temporary()
	require.NoError(t, err)

	text := strings.Repeat("remote access needs the vpn client ", 40)
	_, err = store.Ingest(ctx, text, "vpn_txt", nil, 500, 50)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 50 {
			_, err := store.Delete(ctx, "vpn_txt")
			record(err)
			_, err = store.Ingest(ctx, text, "vpn_txt", nil, 500, 50)
			record(err)
		}
	}()
	go func() {
		defer wg.Done()
		for range 50 {
			_, err := store.Search(ctx, "vpn client", 3, "")
			record(err)
		}
	}()
	wg.Wait()

	assert.Empty(t, errs)
}

func TestStore_SearchEmptyCollection(t *testing.T) {
	store, err := newTestManager(t).Temporary()
	require.NoError(t, err)

	results, err := store.Search(context.Background(), "anything", 3, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestManager_PersistentSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.VectorStoreConfig{PersistDir: dir, ChunkSize: 500, ChunkOverlap: 50}

	first := NewManager(cfg, HashEmbedding(128))
	n, err := first.Ingest(ctx, true, "Remote access requires the VPN client.", "policy", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	second := NewManager(cfg, HashEmbedding(128))
	store, err := second.Persistent()
	require.NoError(t, err)
	assert.Equal(t, PersistentCollection, store.Name())
	assert.Equal(t, 1, store.Count())
}

func TestManager_ByTypeAndSingleInit(t *testing.T) {
	m := newTestManager(t)

	var wg sync.WaitGroup
	stores := make([]*Store, 8)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.ByType("temporary")
			assert.NoError(t, err)
			stores[i] = s
		}(i)
	}
	wg.Wait()
	for _, s := range stores {
		assert.Same(t, stores[0], s)
	}

	_, err := m.ByType("archive")
	assert.ErrorIs(t, err, ErrUnknownCollection)

	stats := m.Stats()
	assert.Contains(t, stats, PersistentCollection)
	assert.Contains(t, stats, TemporaryCollection)
}
