// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package respcache stores raw WHOIS responses in LevelDB so repeated runs
// over the same targets do not hit the registries again.
package respcache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/wingedpig/ipowners/pkg/model"
	"github.com/wingedpig/ipowners/pkg/util/ipcodec"
)

const cacheCategory = "whois"

// Entry is one cached response
type Entry struct {
	Text      string
	FetchedAt time.Time
}

// Cache wraps a LevelDB instance holding WHOIS responses
type Cache struct {
	db     *leveldb.DB
	mu     sync.RWMutex
	path   string
	closed bool
}

// Open opens or creates a cache database at the specified path
func Open(path string) (*Cache, error) {
	opts := &opt.Options{
		// Use snappy compression for values
		Compression: opt.SnappyCompression,
	}

	db, err := leveldb.OpenFile(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	c := &Cache{
		db:   db,
		path: path,
	}

	if err := c.initMetadata(); err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

// Close closes the database
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return model.ErrCacheClosed
	}

	c.closed = true
	return c.db.Close()
}

// IsClosed returns true if the cache is closed
func (c *Cache) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Path returns the database path
func (c *Cache) Path() string {
	return c.path
}

// Get returns the cached entry for a target, or nil if there is none
func (c *Cache) Get(target string) (*Entry, error) {
	value, err := c.get(entryKey(target))
	if err != nil || value == nil {
		return nil, err
	}
	return decodeEntry(value)
}

// Put stores a response for a target
func (c *Cache) Put(target string, entry Entry) error {
	data, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	return c.put(entryKey(target), data)
}

// Delete removes a cached response
func (c *Cache) Delete(target string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return model.ErrCacheClosed
	}

	return c.db.Delete(entryKey(target), nil)
}

// Count returns the number of cached responses
func (c *Cache) Count() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return 0, model.ErrCacheClosed
	}

	iter := c.db.NewIterator(util.BytesPrefix(ipcodec.CacheKey(cacheCategory, "")), nil)
	defer iter.Release()

	n := 0
	for iter.Next() {
		n++
	}
	return n, iter.Error()
}

// Prune deletes entries fetched more than ttl ago and returns how many were removed
func (c *Cache) Prune(ttl time.Duration, now time.Time) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return 0, model.ErrCacheClosed
	}

	iter := c.db.NewIterator(util.BytesPrefix(ipcodec.CacheKey(cacheCategory, "")), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		entry, err := decodeEntry(iter.Value())
		if err != nil || now.Sub(entry.FetchedAt) >= ttl {
			// Iterator buffers are reused, so copy the key
			key := append([]byte(nil), iter.Key()...)
			batch.Delete(key)
		}
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("prune iteration failed: %w", err)
	}

	if batch.Len() == 0 {
		return 0, nil
	}
	if err := c.db.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("prune write failed: %w", err)
	}
	return batch.Len(), nil
}

func (c *Cache) get(key []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, model.ErrCacheClosed
	}

	value, err := c.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	return value, nil
}

func (c *Cache) put(key, value []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return model.ErrCacheClosed
	}

	return c.db.Put(key, value, nil)
}

// entryKey normalizes targets so "Example.COM" and "example.com" share an entry
func entryKey(target string) []byte {
	return ipcodec.CacheKey(cacheCategory, strings.ToLower(strings.TrimSpace(target)))
}

// encodeEntry serializes an Entry to msgpack
func encodeEntry(e Entry) ([]byte, error) {
	data := struct {
		Text      string
		FetchedAt int64 // Unix timestamp
	}{
		Text:      e.Text,
		FetchedAt: e.FetchedAt.Unix(),
	}

	return msgpack.Marshal(data)
}

// decodeEntry deserializes an Entry from msgpack
func decodeEntry(data []byte) (*Entry, error) {
	var stored struct {
		Text      string
		FetchedAt int64
	}

	if err := msgpack.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}

	return &Entry{
		Text:      stored.Text,
		FetchedAt: time.Unix(stored.FetchedAt, 0),
	}, nil
}
