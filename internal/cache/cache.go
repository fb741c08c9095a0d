// Package cache keeps structural indexes of notes keyed by vault path and
// file modification time, optionally backed by a persistent Store.
package cache

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"anchorlink/internal/markdown"
)

var ErrClosed = errors.New("cache: store is closed")

// Entry is one cached index together with the modification time of the
// content it was built from.
type Entry struct {
	ModTime time.Time
	Index   *markdown.Index
}

// Store persists entries between server runs.
type Store interface {
	Load(path string) (Entry, bool, error)
	Save(path string, entry Entry) error
	Delete(path string) error
	Paths() ([]string, error)
	Close() error
}

// IndexCache is safe for concurrent use.
type IndexCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	store   Store
}

// New returns an IndexCache. store may be nil for a memory-only cache.
func New(store Store) *IndexCache {
	return &IndexCache{
		entries: make(map[string]Entry),
		store:   store,
	}
}

// Get returns the index for path if it was built from content at least
// as new as modTime.
func (c *IndexCache) Get(path string, modTime time.Time) (*markdown.Index, bool) {
	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && !e.ModTime.Before(modTime) {
		return e.Index, true
	}
	if ok || c.store == nil {
		return nil, false
	}

	e, ok, err := c.store.Load(path)
	if err != nil {
		log.Printf("cache: load %s: %v", path, err)
		return nil, false
	}
	if !ok || e.ModTime.Before(modTime) {
		return nil, false
	}

	c.mu.Lock()
	c.entries[path] = e
	c.mu.Unlock()
	return e.Index, true
}

// Put records the index of path built from content modified at modTime.
func (c *IndexCache) Put(path string, modTime time.Time, ix *markdown.Index) error {
	e := Entry{ModTime: modTime, Index: ix}

	c.mu.Lock()
	c.entries[path] = e
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	return c.store.Save(path, e)
}

// Invalidate drops path from memory and from the store.
func (c *IndexCache) Invalidate(path string) error {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	return c.store.Delete(path)
}

// SaveTime returns the modification time the cached index of path was
// built from, or the zero time.
func (c *IndexCache) SaveTime(path string) time.Time {
	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if ok {
		return e.ModTime
	}
	if c.store == nil {
		return time.Time{}
	}
	e, ok, err := c.store.Load(path)
	if err != nil || !ok {
		return time.Time{}
	}
	return e.ModTime
}

// Paths returns the paths held in memory, sorted.
func (c *IndexCache) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	paths := make([]string, 0, len(c.entries))
	for p := range c.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Prune drops every entry, in memory and persisted, for which keep
// returns false.
func (c *IndexCache) Prune(keep func(path string) bool) error {
	c.mu.Lock()
	for p := range c.entries {
		if !keep(p) {
			delete(c.entries, p)
		}
	}
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	paths, err := c.store.Paths()
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range paths {
		if !keep(p) {
			errs = append(errs, c.store.Delete(p))
		}
	}
	return errors.Join(errs...)
}

func (c *IndexCache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
