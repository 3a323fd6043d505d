package raster

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"image"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
)

// Entry names a crest to cache.
type Entry struct {
	EntityID string
	Ref      string
}

type cached struct {
	img    image.Image
	tempID string
}

// Cache keeps decoded crests per entity and hands out opaque temp ids so a
// crest can be served without exposing its catalog reference.
type Cache struct {
	loader Loader
	key    []byte

	mu     sync.RWMutex
	byID   map[string]cached
	byTemp map[string]string
}

// NewCache returns an empty cache backed by loader. Temp ids are keyed with
// a random per-process secret.
func NewCache(loader Loader) *Cache {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic("raster: crypto/rand failed: " + err.Error())
	}
	return &Cache{
		loader: loader,
		key:    key,
		byID:   make(map[string]cached),
		byTemp: make(map[string]string),
	}
}

// TempID returns the opaque id for an entity. It is stable for the life of the cache.
func (c *Cache) TempID(entityID string) string {
	h, _ := blake2b.New(16, c.key)
	h.Write([]byte(entityID))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the decoded crest for an entity, loading it on first use.
// Failures come back as *LoadError.
func (c *Cache) Get(ctx context.Context, e Entry) (image.Image, error) {
	c.mu.RLock()
	hit, ok := c.byID[e.EntityID]
	c.mu.RUnlock()
	if ok {
		return hit.img, nil
	}

	img, err := c.loader.Load(ctx, e.Ref)
	if err != nil {
		return nil, &LoadError{EntityID: e.EntityID, Ref: e.Ref, Err: err}
	}

	tid := c.TempID(e.EntityID)
	c.mu.Lock()
	c.byID[e.EntityID] = cached{img: img, tempID: tid}
	c.byTemp[tid] = e.EntityID
	c.mu.Unlock()
	return img, nil
}

// Has reports whether an entity's crest is already cached.
func (c *Cache) Has(entityID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byID[entityID]
	return ok
}

// ByTempID looks up a cached crest by its opaque id.
func (c *Cache) ByTempID(tempID string) (image.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byTemp[tempID]
	if !ok {
		return nil, false
	}
	return c.byID[id].img, true
}

// Precache loads entries concurrently with at most workers loads in flight.
// Failures are logged and counted; they never abort the batch.
func (c *Cache) Precache(ctx context.Context, entries []Entry, workers int) (failed int) {
	if workers < 1 {
		workers = 4
	}
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, workers)
	)
	for _, e := range entries {
		if c.Has(e.EntityID) {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(e Entry) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := c.Get(ctx, e); err != nil {
				log.Debug().Err(err).Str("entity", e.EntityID).Msg("precache miss")
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(e)
	}
	wg.Wait()

	if failed > 0 {
		log.Warn().Int("failed", failed).Int("total", len(entries)).Msg("crest precache incomplete")
	}
	return failed
}
