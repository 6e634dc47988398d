package embeddings

import (
	"container/list"
	"context"
	"sync"

	"github.com/pkg/errors"
)

type cacheEntry struct {
	embedding []float32
	element   *list.Element
}

// CachedProvider wraps an embedding provider with an LRU cache keyed by text.
type CachedProvider struct {
	provider Provider
	cache    map[string]cacheEntry
	lruList  *list.List
	maxSize  int
	mu       sync.Mutex
}

var _ Provider = &CachedProvider{}

// NewCachedProvider keeps at most maxSize embeddings (default 1000).
func NewCachedProvider(provider Provider, maxSize int) *CachedProvider {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &CachedProvider{
		provider: provider,
		cache:    make(map[string]cacheEntry),
		lruList:  list.New(),
		maxSize:  maxSize,
	}
}

func (c *CachedProvider) lookup(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[text]
	if !ok {
		return nil, false
	}
	c.lruList.MoveToFront(entry.element)
	return entry.embedding, true
}

func (c *CachedProvider) store(text string, embedding []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.cache[text]; ok {
		c.lruList.MoveToFront(entry.element)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		oldest := c.lruList.Back()
		if oldest != nil {
			delete(c.cache, oldest.Value.(string))
			c.lruList.Remove(oldest)
		}
	}

	element := c.lruList.PushFront(text)
	c.cache[text] = cacheEntry{
		embedding: embedding,
		element:   element,
	}
}

func (c *CachedProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if embedding, ok := c.lookup(text); ok {
		return embedding, nil
	}

	embedding, err := c.provider.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(text, embedding)
	return embedding, nil
}

// GenerateBatchEmbeddings only sends the texts missing from the cache upstream.
func (c *CachedProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if embedding, ok := c.lookup(text); ok {
			results[i] = embedding
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return results, nil
	}

	fresh, err := c.provider.GenerateBatchEmbeddings(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, errors.Errorf("got %d embeddings for %d texts", len(fresh), len(missing))
	}
	for j, embedding := range fresh {
		results[missingIdx[j]] = embedding
		c.store(missing[j], embedding)
	}
	return results, nil
}

func (c *CachedProvider) GetModel() EmbeddingModel {
	return c.provider.GetModel()
}

func (c *CachedProvider) ClearCache() {
	c.mu.Lock()
	c.cache = make(map[string]cacheEntry)
	c.lruList.Init()
	c.mu.Unlock()
}

func (c *CachedProvider) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lruList.Len()
}

func (c *CachedProvider) MaxSize() int {
	return c.maxSize
}
