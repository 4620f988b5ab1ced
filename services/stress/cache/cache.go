// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache provides opt-in LRU caching for analysis results.
//
// # Description
//
// The engine is stateless by contract; this cache is the one permitted
// exception, keyed by a content hash of every analysis input (soup, rigid
// transform, hanging point, weight, tunables) so identical re-runs — the
// common case when a UI slider snaps back — skip the pipeline entirely.
//
// # Cache Key Format
//
// Keys are SHA256 over the little-endian bytes of all input floats plus the
// marshaled config. Any input change, tunables included, yields a new key.
//
// # Thread Safety
//
// Safe for concurrent use. A sync.RWMutex guards the entry map and LRU list;
// singleflight deduplicates concurrent computes of the same key.
package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/AleutianStress/services/stress/score"
)

// DefaultMaxEntries bounds the cache when the caller passes zero.
const DefaultMaxEntries = 256

// Result is a cached analysis outcome.
type Result struct {
	// Records is the per-occurrence fragility list.
	Records []score.FragilityRecord

	// Verdict is the aggregated failure verdict.
	Verdict *score.Verdict

	// Triangles is the indexed non-degenerate triangle count.
	Triangles int

	// Degenerate is the dropped triangle count.
	Degenerate int

	// Free is the free (non-anchored) occurrence count.
	Free int
}

// ResultCache is an LRU cache of analysis results.
type ResultCache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	lru        *list.List
	maxEntries int
	flight     singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type entry struct {
	key    string
	result *Result
	elem   *list.Element
}

// New creates a ResultCache. maxEntries <= 0 uses DefaultMaxEntries.
func New(maxEntries int) *ResultCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &ResultCache{
		entries:    make(map[string]*entry, maxEntries),
		lru:        list.New(),
		maxEntries: maxEntries,
	}
}

// Key hashes every analysis input into the cache key.
func Key(positions []float64, inputs []float64, cfgBytes []byte) string {
	h := sha256.New()
	var buf [8]byte
	for _, v := range positions {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	for _, v := range inputs {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	h.Write(cfgBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// GetOrCompute returns the cached result for key, computing and storing it on
// a miss. Concurrent callers of the same key share one compute. The hit flag
// is false for the caller whose compute produced the value.
func (c *ResultCache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (*Result, error)) (res *Result, hit bool, err error) {
	if res, ok := c.get(key); ok {
		c.hits.Add(1)
		return res, true, nil
	}
	c.misses.Add(1)

	computed := false
	v, err, _ := c.flight.Do(key, func() (any, error) {
		if res, ok := c.get(key); ok {
			return res, nil
		}
		res, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		computed = true
		c.put(key, res)
		return res, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Result), !computed, nil
}

// Stats returns cumulative hit, miss, and eviction counts.
func (c *ResultCache) Stats() (hits, misses, evictions int64) {
	return c.hits.Load(), c.misses.Load(), c.evictions.Load()
}

// Purge empties the cache.
func (c *ResultCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry, c.maxEntries)
	c.lru.Init()
}

func (c *ResultCache) get(key string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(e.elem)
	return e.result, true
}

func (c *ResultCache) put(key string, res *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.result = res
		c.lru.MoveToFront(e.elem)
		return
	}
	e := &entry{key: key, result: res}
	e.elem = c.lru.PushFront(e)
	c.entries[key] = e

	for c.lru.Len() > c.maxEntries {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		old := oldest.Value.(*entry)
		c.lru.Remove(oldest)
		delete(c.entries, old.key)
		c.evictions.Add(1)
	}
}

