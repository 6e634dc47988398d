package index

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/go-go-golems/bionet/pkg/embeddings"
	"github.com/go-go-golems/bionet/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FusionConfig weights the semantic and keyword scores of a chunk.
type FusionConfig struct {
	SemanticWeight float64
	KeywordWeight  float64
}

var DefaultFusionConfig = FusionConfig{
	SemanticWeight: 0.7,
	KeywordWeight:  0.3,
}

// ScoredChunk carries the fused score, or the rerank score when a reranker
// is configured.
type ScoredChunk struct {
	Chunk
	Score         float64 `json:"score"`
	SemanticScore float64 `json:"semantic_score"`
	KeywordScore  float64 `json:"keyword_score"`
	RerankScore   float64 `json:"rerank_score,omitempty"`
}

type LoadOption func(*Index)

// WithReranker reorders the best fused candidates with r before the top k
// are returned.
func WithReranker(r embeddings.Reranker, candidates int) LoadOption {
	return func(i *Index) {
		i.reranker = r
		i.rerankCandidates = candidates
	}
}

// WithFusion overrides the weights stored in the manifest.
func WithFusion(f FusionConfig) LoadOption {
	return func(i *Index) {
		i.fusion = f
	}
}

// LoadOptionsFromSettings builds the query time options, currently the
// reranker.
func LoadOptionsFromSettings(s *settings.Settings) ([]LoadOption, error) {
	r, err := embeddings.NewRerankerFromSettings(s)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	return []LoadOption{WithReranker(r, s.Index.RerankCandidates)}, nil
}

// Index is a loaded, read-only persisted index. It is safe for concurrent use.
type Index struct {
	dir      string
	manifest *Manifest
	keyword  *KeywordIndex
	chunks   []Chunk
	byID     map[string]int
	provider embeddings.Provider
	fusion   FusionConfig

	reranker         embeddings.Reranker
	rerankCandidates int
}

// Load opens storageDir. It fails with ErrIndexNotFound when the manifest is
// missing. Chunk vectors are held in memory.
func Load(ctx context.Context, storageDir string, provider embeddings.Provider, opts ...LoadOption) (*Index, error) {
	if provider == nil {
		return nil, errors.New("no embeddings provider")
	}
	m, err := ReadManifest(storageDir)
	if err != nil {
		return nil, err
	}

	if model := provider.GetModel(); model.Name != m.EmbeddingModel.Name {
		log.Warn().
			Str("index_model", m.EmbeddingModel.Name).
			Str("provider_model", model.Name).
			Msg("index: embedding model differs from the one used to build the index")
	}

	store, err := OpenDocStore(filepath.Join(storageDir, DocStoreFile))
	if err != nil {
		return nil, err
	}
	chunks, err := store.Chunks(ctx)
	_ = store.Close()
	if err != nil {
		return nil, err
	}

	kw, err := OpenKeywordIndex(filepath.Join(storageDir, KeywordIndexDir))
	if err != nil {
		return nil, err
	}

	fusion := DefaultFusionConfig
	if s, err := m.IndexSettings(); err == nil && (s.SemanticWeight > 0 || s.KeywordWeight > 0) {
		fusion = FusionConfig{SemanticWeight: s.SemanticWeight, KeywordWeight: s.KeywordWeight}
	}

	byID := make(map[string]int, len(chunks))
	for i, c := range chunks {
		byID[c.ID] = i
	}

	idx := &Index{
		dir:      storageDir,
		manifest: m,
		keyword:  kw,
		chunks:   chunks,
		byID:     byID,
		provider: provider,
		fusion:   fusion,
	}
	for _, opt := range opts {
		opt(idx)
	}

	log.Debug().Int("chunks", len(chunks)).Str("storage_dir", storageDir).Bool("rerank", idx.reranker != nil).Msg("index: loaded")
	return idx, nil
}

func (i *Index) Manifest() *Manifest {
	return i.manifest
}

func (i *Index) Len() int {
	return len(i.chunks)
}

func (i *Index) Close() error {
	return i.keyword.Close()
}

// Retrieve returns the topK chunks by fused score.
func (i *Index) Retrieve(ctx context.Context, q string, topK int) ([]ScoredChunk, error) {
	if topK <= 0 {
		topK = 4
	}
	if len(i.chunks) == 0 {
		return nil, nil
	}

	qv, err := i.provider.GenerateEmbedding(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "embedding query")
	}

	semantic := make([]float64, len(i.chunks))
	for idx, c := range i.chunks {
		semantic[idx] = embeddings.CosineSimilarity(qv, c.Vector)
	}

	hits, err := i.keyword.Search(q, topK*2)
	if err != nil {
		return nil, err
	}
	keyword := make(map[int]float64, len(hits))
	for _, h := range hits {
		if idx, ok := i.byID[h.ID]; ok {
			keyword[idx] = h.Score
		}
	}

	scored := make([]ScoredChunk, 0, len(i.chunks))
	for idx, c := range i.chunks {
		kw := keyword[idx]
		scored = append(scored, ScoredChunk{
			Chunk:         c,
			SemanticScore: semantic[idx],
			KeywordScore:  kw,
			Score:         i.fusion.SemanticWeight*semantic[idx] + i.fusion.KeywordWeight*kw,
		})
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if i.reranker != nil {
		return i.rerank(ctx, q, scored, topK), nil
	}
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// rerank hands the best fused candidates to the reranker. A failing reranker
// degrades to the fused order.
func (i *Index) rerank(ctx context.Context, q string, scored []ScoredChunk, topK int) []ScoredChunk {
	n := i.rerankCandidates
	if n < topK {
		n = topK
	}
	if n > len(scored) {
		n = len(scored)
	}
	candidates := scored[:n]
	fallback := candidates
	if len(fallback) > topK {
		fallback = fallback[:topK]
	}

	docs := make([]string, len(candidates))
	for idx, c := range candidates {
		docs[idx] = c.Text
	}
	results, err := i.reranker.Rerank(ctx, q, docs, embeddings.WithTopN(topK))
	if err != nil {
		log.Warn().Err(err).Str("model", i.reranker.GetModel().Name).Msg("index: rerank failed, using fused order")
		return fallback
	}
	if len(results) == 0 {
		return fallback
	}

	ret := make([]ScoredChunk, 0, topK)
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(candidates) {
			continue
		}
		c := candidates[r.Index]
		c.RerankScore = r.Score
		c.Score = r.Score
		ret = append(ret, c)
		if len(ret) == topK {
			break
		}
	}
	return ret
}
