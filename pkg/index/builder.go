package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/bionet/pkg/embeddings"
	"github.com/go-go-golems/bionet/pkg/settings"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultEmbeddingBatchSize = 16

// Builder turns a data directory into a persisted index.
type Builder struct {
	loader      *Loader
	chunker     *Chunker
	provider    embeddings.Provider
	settings    *settings.IndexSettings
	concurrency int
	batchSize   int
}

type BuilderOption func(*Builder)

func WithConcurrency(n int) BuilderOption {
	return func(b *Builder) { b.concurrency = n }
}

func WithBatchSize(n int) BuilderOption {
	return func(b *Builder) { b.batchSize = n }
}

func NewBuilder(provider embeddings.Provider, s *settings.IndexSettings, opts ...BuilderOption) (*Builder, error) {
	if provider == nil {
		return nil, errors.New("no embeddings provider")
	}
	if s == nil {
		s = settings.NewSettings().Index
	}
	chunker, err := NewChunker(s.ChunkSize, s.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	b := &Builder{
		loader:      NewLoader(s.Extensions, s.Exclude),
		chunker:     chunker,
		provider:    provider,
		settings:    s,
		concurrency: 4,
		batchSize:   defaultEmbeddingBatchSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.concurrency <= 0 {
		b.concurrency = 1
	}
	if b.batchSize <= 0 {
		b.batchSize = defaultEmbeddingBatchSize
	}
	return b, nil
}

type BuildStats struct {
	Documents int
	Chunks    int
	Duration  time.Duration
}

func chunkID(path string, ordinal int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", path, ordinal))).String()
}

// Build loads dataDir, embeds every chunk and writes the index to storageDir.
// Any previous index in storageDir is replaced; the manifest is written last.
func (b *Builder) Build(ctx context.Context, dataDir string, storageDir string) (*BuildStats, error) {
	start := time.Now()

	docs, err := b.loader.LoadDirectory(ctx, dataDir)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.Errorf("no documents with extensions %v found in %s", b.loader.Extensions, dataDir)
	}
	log.Info().Int("documents", len(docs)).Str("data_dir", dataDir).Msg("index: loaded documents")

	var chunks []Chunk
	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		parts, err := b.chunker.Split(d.Text)
		if err != nil {
			return nil, errors.Wrapf(err, "chunking %s", d.Path)
		}
		for i, p := range parts {
			chunks = append(chunks, Chunk{
				ID:      chunkID(d.Path, i),
				Path:    d.Path,
				Ordinal: i,
				Text:    p,
			})
		}
		paths = append(paths, d.Path)
	}
	if len(chunks) == 0 {
		return nil, errors.New("documents produced no chunks")
	}

	if err := b.embed(ctx, chunks); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create storage directory %s", storageDir)
	}
	if err := os.Remove(ManifestPath(storageDir)); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "remove old manifest")
	}
	if err := os.Remove(filepath.Join(storageDir, DocStoreFile)); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "remove old docstore")
	}

	store, err := OpenDocStore(filepath.Join(storageDir, DocStoreFile))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = store.Close()
	}()
	if err := store.InsertChunks(ctx, chunks); err != nil {
		return nil, err
	}

	kw, err := CreateKeywordIndex(filepath.Join(storageDir, KeywordIndexDir))
	if err != nil {
		return nil, err
	}
	if err := kw.Add(chunks); err != nil {
		_ = kw.Close()
		return nil, err
	}
	if err := kw.Close(); err != nil {
		return nil, errors.Wrap(err, "close keyword index")
	}

	m, err := NewManifest(b.provider.GetModel(), paths, len(chunks), b.settings)
	if err != nil {
		return nil, err
	}
	if err := WriteManifest(storageDir, m); err != nil {
		return nil, err
	}

	stats := &BuildStats{
		Documents: len(docs),
		Chunks:    len(chunks),
		Duration:  time.Since(start),
	}
	log.Info().
		Int("documents", stats.Documents).
		Int("chunks", stats.Chunks).
		Dur("duration", stats.Duration).
		Str("storage_dir", storageDir).
		Msg("index: build complete")
	return stats, nil
}

// embed fills in the vectors, batchSize chunks per request with at most
// concurrency requests in flight.
func (b *Builder) embed(ctx context.Context, chunks []Chunk) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for start := 0; start < len(chunks); start += b.batchSize {
		end := start + b.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vectors, err := b.provider.GenerateBatchEmbeddings(ctx, texts)
			if err != nil {
				return errors.Wrap(err, "embedding chunks")
			}
			if len(vectors) != len(batch) {
				return errors.Errorf("got %d embeddings for %d chunks", len(vectors), len(batch))
			}
			for i := range batch {
				batch[i].Vector = vectors[i]
			}
			log.Debug().Int("chunks", len(batch)).Msg("index: embedded batch")
			return nil
		})
	}
	return g.Wait()
}
