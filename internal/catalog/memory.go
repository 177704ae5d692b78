// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

// Package catalog provides song candidate sources and the resilience
// wrapper around remote ones.
package catalog

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"github.com/resonata/resonata/internal/recommend"
)

// MemoryCatalog serves candidates from an in-process song list. Used
// as the default provider and as a seam for tests.
type MemoryCatalog struct {
	mu    sync.RWMutex
	songs []recommend.Song

	rngMu sync.Mutex
	rng   *rand.Rand
}

var _ recommend.CatalogProvider = (*MemoryCatalog)(nil)

// NewMemoryCatalog creates a catalog over songs; seed drives the
// sampling order for mood-less fetches (zero means 42).
func NewMemoryCatalog(songs []recommend.Song, seed int64) *MemoryCatalog {
	if seed == 0 {
		seed = 42
	}
	return &MemoryCatalog{
		songs: songs,
		rng:   rand.New(rand.NewSource(seed)), //nolint:gosec // not used for security
	}
}

// FetchCandidates implements recommend.CatalogProvider. With a target
// mood it returns songs whose mood label contains the target or is
// unset; without one it returns a random sample.
func (c *MemoryCatalog) FetchCandidates(ctx context.Context, targetMood string, approxLimit int) ([]recommend.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if approxLimit <= 0 {
		approxLimit = 30
	}

	c.mu.RLock()
	pool := make([]recommend.Song, 0, len(c.songs))
	if targetMood == "" {
		pool = append(pool, c.songs...)
	} else {
		target := strings.ToLower(targetMood)
		for _, s := range c.songs {
			if s.Mood == "" || strings.Contains(strings.ToLower(s.Mood), target) {
				pool = append(pool, s)
			}
		}
	}
	c.mu.RUnlock()

	if targetMood == "" {
		c.rngMu.Lock()
		c.rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
		c.rngMu.Unlock()
	}

	if len(pool) > approxLimit {
		pool = pool[:approxLimit]
	}
	return pool, nil
}

// Add appends songs to the catalog.
func (c *MemoryCatalog) Add(songs ...recommend.Song) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.songs = append(c.songs, songs...)
}

// Len returns the catalog size.
func (c *MemoryCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.songs)
}
