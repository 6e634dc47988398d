package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DiskCacheEntry is one cached embedding, stored as a JSON file named by the
// sha256 of the text.
type DiskCacheEntry struct {
	Embedding  []float32 `json:"embedding"`
	TextPrefix string    `json:"text_prefix"` // first 100 bytes
}

// DiskCacheProvider persists embeddings across runs, so rebuilding an index
// only embeds chunks that changed. Least recently used files are evicted
// once maxEntries or maxSize is exceeded.
type DiskCacheProvider struct {
	provider   Provider
	directory  string
	maxSize    int64 // in bytes
	maxEntries int
	mu         sync.RWMutex
}

var _ Provider = &DiskCacheProvider{}

type DiskCacheOption func(*DiskCacheProvider)

func WithDirectory(dir string) DiskCacheOption {
	return func(p *DiskCacheProvider) {
		if dir != "" {
			p.directory = dir
		}
	}
}

func WithMaxSize(size int64) DiskCacheOption {
	return func(p *DiskCacheProvider) {
		if size > 0 {
			p.maxSize = size
		}
	}
}

func WithMaxEntries(count int) DiskCacheOption {
	return func(p *DiskCacheProvider) {
		if count > 0 {
			p.maxEntries = count
		}
	}
}

var modelDirReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_")

// DefaultDiskCacheDirectory is ~/.bionet/cache/embeddings/<model>.
func DefaultDiskCacheDirectory(model EmbeddingModel) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(homeDir, ".bionet", "cache", "embeddings", modelDirReplacer.Replace(model.Name)), nil
}

func NewDiskCacheProvider(provider Provider, opts ...DiskCacheOption) (*DiskCacheProvider, error) {
	p := &DiskCacheProvider{
		provider:   provider,
		maxSize:    1 << 30,
		maxEntries: 10000,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.directory == "" {
		dir, err := DefaultDiskCacheDirectory(provider.GetModel())
		if err != nil {
			return nil, err
		}
		p.directory = dir
	}

	if err := os.MkdirAll(p.directory, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create cache directory")
	}
	return p, nil
}

func (p *DiskCacheProvider) Directory() string {
	return p.directory
}

func (p *DiskCacheProvider) cacheFilePath(text string) string {
	hash := sha256.Sum256([]byte(text))
	return filepath.Join(p.directory, hex.EncodeToString(hash[:]))
}

func (p *DiskCacheProvider) writeEntry(text string, embedding []float32) error {
	prefix := text
	if len(prefix) > 100 {
		prefix = prefix[:100]
	}
	data, err := json.Marshal(&DiskCacheEntry{Embedding: embedding, TextPrefix: prefix})
	if err != nil {
		return errors.Wrap(err, "failed to marshal cache entry")
	}
	return errors.Wrap(os.WriteFile(p.cacheFilePath(text), data, 0o644), "failed to write cache file")
}

// readEntry returns nil for a miss. Corrupted files count as misses.
func (p *DiskCacheProvider) readEntry(text string) (*DiskCacheEntry, error) {
	path := p.cacheFilePath(text)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read cache file")
	}

	// modification time doubles as access time for eviction
	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		return nil, errors.Wrap(err, "failed to update file times")
	}

	var entry DiskCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Debug().Str("path", path).Msg("embeddings: dropping corrupted cache file")
		_ = os.Remove(path)
		return nil, nil
	}
	return &entry, nil
}

func (p *DiskCacheProvider) enforceSize() error {
	entries, err := os.ReadDir(p.directory)
	if err != nil {
		return errors.Wrap(err, "failed to read cache directory")
	}

	type fileInfo struct {
		path       string
		size       int64
		accessTime time.Time
	}

	var files []fileInfo
	var totalSize int64
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, fileInfo{
			path:       filepath.Join(p.directory, entry.Name()),
			size:       info.Size(),
			accessTime: info.ModTime(),
		})
		totalSize += info.Size()
	}

	// oldest first
	sort.Slice(files, func(i, j int) bool {
		return files[i].accessTime.Before(files[j].accessTime)
	})

	for i := 0; i < len(files) && (len(files)-i > p.maxEntries || totalSize > p.maxSize); i++ {
		if err := os.Remove(files[i].path); err != nil {
			return errors.Wrap(err, "failed to remove cache file")
		}
		totalSize -= files[i].size
	}
	return nil
}

func (p *DiskCacheProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	res, err := p.generate(ctx, []string{text}, func(missing []string) ([][]float32, error) {
		e, err := p.provider.GenerateEmbedding(ctx, missing[0])
		if err != nil {
			return nil, err
		}
		return [][]float32{e}, nil
	})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

// GenerateBatchEmbeddings only sends the texts missing from the cache
// upstream, in a single batch.
func (p *DiskCacheProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return p.generate(ctx, texts, func(missing []string) ([][]float32, error) {
		return p.provider.GenerateBatchEmbeddings(ctx, missing)
	})
}

func (p *DiskCacheProvider) generate(ctx context.Context, texts []string, upstream func([]string) ([][]float32, error)) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	p.mu.RLock()
	for i, text := range texts {
		entry, err := p.readEntry(text)
		if err != nil {
			p.mu.RUnlock()
			return nil, err
		}
		if entry != nil {
			results[i] = entry.Embedding
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	p.mu.RUnlock()

	if len(missing) == 0 {
		return results, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fresh, err := upstream(missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, errors.Errorf("got %d embeddings for %d texts", len(fresh), len(missing))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for j, embedding := range fresh {
		results[missingIdx[j]] = embedding
		if err := p.writeEntry(missing[j], embedding); err != nil {
			return nil, err
		}
	}
	if err := p.enforceSize(); err != nil {
		return nil, err
	}
	log.Debug().Int("hits", len(texts)-len(missing)).Int("misses", len(missing)).Msg("embeddings: disk cache")
	return results, nil
}

func (p *DiskCacheProvider) GetCachedEntry(text string) (*DiskCacheEntry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.readEntry(text)
}

func (p *DiskCacheProvider) GetModel() EmbeddingModel {
	return p.provider.GetModel()
}

func (p *DiskCacheProvider) ClearCache() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := os.RemoveAll(p.directory); err != nil {
		return errors.Wrap(err, "failed to clear cache")
	}
	return os.MkdirAll(p.directory, 0o755)
}
