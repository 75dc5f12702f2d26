// SPDX-License-Identifier: Apache-2.0

// Package schemacache persists the per-object change-detection cache
// (cache/schema-object-cache.json) the invalidation orchestrator diffs
// live catalog metadata against.
package schemacache

import (
	"sort"
	"sync"
	"time"

	"github.com/nuetzliches/xtraq/pkg/schema"
	"github.com/nuetzliches/xtraq/pkg/snapshot"
)

// Entry is one cached object's last-known modification time and direct
// dependencies.
type Entry struct {
	LastModifiedUTC time.Time    `json:"LastModifiedUtc"`
	Dependencies    []schema.Ref `json:"Dependencies,omitempty"`
}

// document is the on-disk shape of schema-object-cache.json: a flat list
// keyed by ref so JSON round-trips deterministically regardless of map
// iteration order.
type document struct {
	Version          int        `json:"Version"`
	ReferenceTimestamp time.Time `json:"ReferenceTimestamp"`
	Entries          []entryDoc `json:"Entries"`
}

type entryDoc struct {
	Ref   schema.Ref `json:"Ref"`
	Entry Entry      `json:"Entry"`
}

// Cache is the in-memory, persisted view of every tracked object's last
// observed modification time and dependency set.
type Cache struct {
	mu                 sync.RWMutex
	entries            map[string]Entry
	refs               map[string]schema.Ref
	referenceTimestamp time.Time
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: map[string]Entry{}, refs: map[string]schema.Ref{}}
}

// Load reads the persisted cache from store, if present. A missing or
// corrupt file leaves the cache empty (a full scan will be forced), per
// the tolerant-read contract.
func Load(store *snapshot.Store) (*Cache, error) {
	c := New()
	var doc document
	ok, err := snapshot.Load(store.ObjectCachePath(), &doc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c, nil
	}
	c.referenceTimestamp = doc.ReferenceTimestamp
	for _, e := range doc.Entries {
		c.entries[e.Ref.Key()] = e.Entry
		c.refs[e.Ref.Key()] = e.Ref
	}
	return c, nil
}

// Save persists the cache atomically to store.
func (c *Cache) Save(store *snapshot.Store) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc := document{Version: 1, ReferenceTimestamp: c.referenceTimestamp}
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		doc.Entries = append(doc.Entries, entryDoc{Ref: c.refs[key], Entry: c.entries[key]})
	}
	return snapshot.Save(store.ObjectCachePath(), doc)
}

// Get returns the cached entry for ref, if present.
func (c *Cache) Get(ref schema.Ref) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[ref.Key()]
	return e, ok
}

// UpdateLastModified records a new observed modification time for ref,
// creating the entry if it does not yet exist.
func (c *Cache) UpdateLastModified(ref schema.Ref, modifiedUTC time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.entries[ref.Key()]
	entry.LastModifiedUTC = modifiedUTC
	c.entries[ref.Key()] = entry
	c.refs[ref.Key()] = ref
}

// SetDependencies atomically replaces ref's tracked dependency set.
func (c *Cache) SetDependencies(ref schema.Ref, deps []schema.Ref) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.entries[ref.Key()]
	entry.Dependencies = deps
	c.entries[ref.Key()] = entry
	c.refs[ref.Key()] = ref
}

// EachDependency calls fn once per tracked ref with a non-empty dependency
// set, so a fresh process can replay persisted edges into a depgraph.Graph
// before the first analyze.
func (c *Cache) EachDependency(fn func(ref schema.Ref, deps []schema.Ref)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for key, entry := range c.entries {
		if len(entry.Dependencies) == 0 {
			continue
		}
		fn(c.refs[key], entry.Dependencies)
	}
}

// Remove deletes ref's entry entirely, for catalog-observed deletions.
func (c *Cache) Remove(ref schema.Ref) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, ref.Key())
	delete(c.refs, ref.Key())
}

// ReferenceTimestamp returns the persisted "since" watermark for the next
// analyze pass; the zero time forces a full scan.
func (c *Cache) ReferenceTimestamp() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.referenceTimestamp
}

// SetReferenceTimestamp updates the watermark written on the next Save.
func (c *Cache) SetReferenceTimestamp(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.referenceTimestamp = t
}
