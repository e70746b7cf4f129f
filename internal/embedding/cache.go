package embedding

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/analogyeval/internal/fileid"
	"github.com/hyperjump/analogyeval/internal/vector"
)

// Cache is an LRU of loaded stores keyed by input identity, so repeated runs
// over the same table skip decoding. Cached stores are shared and must be
// treated as read-only.
type Cache struct {
	capacity int
	entries  map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	store *vector.Store
}

// NewCache creates a cache holding at most capacity stores.
func NewCache(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Key identifies a load by the content ID of its inputs and the options that
// change the resulting store.
func Key(inputID string, opts Options) string {
	return fmt.Sprintf("%s|%s|%t|%d", inputID, opts.Format, opts.Normalize, opts.TopK)
}

// InputKey builds the cache key for opts from the current identity of every
// file the load reads: the table and, for GloVe, its vocabulary.
func InputKey(opts Options) (string, error) {
	id, err := fileid.InputID(opts.Path)
	if err != nil {
		return "", err
	}
	if opts.VocabPath != "" {
		vocabID, err := fileid.InputID(opts.VocabPath)
		if err != nil {
			return "", err
		}
		id += "+" + vocabID
	}
	return Key(id, opts), nil
}

// Get returns the cached store for key if present.
func (c *Cache) Get(key string) (*vector.Store, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).store, true
	}
	return nil, false
}

// Set stores s under key, evicting the least recently used entry if at capacity.
func (c *Cache) Set(key string, s *vector.Store) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).store = s
		return
	}

	elem := c.lru.PushFront(&cacheEntry{key: key, store: s})
	c.entries[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached stores.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Load returns the cached store for key, loading it with opts on a miss.
func (c *Cache) Load(ctx context.Context, key string, opts Options) (*vector.Store, error) {
	if s, ok := c.Get(key); ok {
		return s, nil
	}
	s, err := Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	c.Set(key, s)
	return s, nil
}
