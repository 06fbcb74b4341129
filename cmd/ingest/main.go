// Command ingest loads every supported file of the persistent documents directory into
// the persistent vector collection.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Sibikrish3000/cr-agent/internal/config"
	"github.com/Sibikrish3000/cr-agent/internal/tools"
	"github.com/Sibikrish3000/cr-agent/internal/vectorstore"
)

const parseWorkers = 4

func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	embed, err := vectorstore.NewEmbeddingFunc(cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create embedding function")
	}
	manager := vectorstore.NewManager(cfg.VectorStore, embed)

	store, err := manager.Persistent()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open persistent collection")
	}

	var paths []string
	err = filepath.WalkDir(cfg.Storage.PersistentDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && tools.IsSupportedDocument(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Storage.PersistentDir).Msg("Failed to scan documents")
	}
	ids, err := documentIDs(cfg.Storage.PersistentDir, paths)
	if err != nil {
		log.Fatal().Err(err).Msg("Document ids are not unique")
	}
	log.Info().Int("files", len(paths)).Str("dir", cfg.Storage.PersistentDir).Msg("Ingesting documents")

	ctx := context.Background()
	var chunks, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parseWorkers)
	for _, path := range paths {
		g.Go(func() error {
			text, err := tools.ParseDocument(gctx, path)
			if err != nil {
				log.Warn().Err(err).Str("file", path).Msg("Skipping unreadable document")
				failed.Add(1)
				return nil
			}

			docID := ids[path]
			if _, err := store.Delete(gctx, docID); err != nil {
				return err
			}
			n, err := manager.Ingest(gctx, true, text, docID, map[string]string{
				"file_path":    path,
				"filename":     filepath.Base(path),
				"storage_type": "persistent",
			})
			if err != nil {
				return err
			}
			chunks.Add(int64(n))
			log.Info().Str("document_id", docID).Int("chunks", n).Msg("Document ingested")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	log.Info().
		Int("documents", len(paths)-int(failed.Load())).
		Int64("chunks", chunks.Load()).
		Int64("failed", failed.Load()).
		Interface("collections", manager.Stats()).
		Msg("Ingestion complete")
}

// documentIDs maps every file to an id built from its path below root, so files sharing a
// stem in other folders or with other extensions get their own chunks.
func documentIDs(root string, paths []string) (map[string]string, error) {
	ids := make(map[string]string, len(paths))
	owners := make(map[string]string, len(paths))
	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		id := tools.DocumentID(strings.ReplaceAll(filepath.ToSlash(rel), "/", "_"))
		if prev, ok := owners[id]; ok {
			return nil, fmt.Errorf("%s and %s both map to document id %s", prev, path, id)
		}
		owners[id] = path
		ids[path] = id
	}
	return ids, nil
}
