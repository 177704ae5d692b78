// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

// Package storage provides durable and in-memory implementations of
// the weight-persistence seam.
package storage

import (
	"context"
	"sync"

	"github.com/resonata/resonata/internal/recommend"
)

// MemoryWeightStore is a process-local WeightStore, the default when
// no durable backend is configured.
type MemoryWeightStore struct {
	mu          sync.RWMutex
	weights     map[string]map[recommend.Feature]float64
	adjustments map[string][]recommend.Adjustment
	counts      map[string]int
}

var _ recommend.WeightStore = (*MemoryWeightStore)(nil)

// NewMemoryWeightStore creates an empty in-memory store.
func NewMemoryWeightStore() *MemoryWeightStore {
	return &MemoryWeightStore{
		weights:     make(map[string]map[recommend.Feature]float64),
		adjustments: make(map[string][]recommend.Adjustment),
		counts:      make(map[string]int),
	}
}

// LoadWeights implements recommend.WeightStore.
func (s *MemoryWeightStore) LoadWeights(_ context.Context, userID string) (map[recommend.Feature]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.weights[userID]
	if !ok {
		return nil, nil
	}
	out := make(map[recommend.Feature]float64, len(stored))
	for f, w := range stored {
		out[f] = w
	}
	return out, nil
}

// SaveWeights implements recommend.WeightStore.
func (s *MemoryWeightStore) SaveWeights(_ context.Context, userID string, weights map[recommend.Feature]float64) error {
	copied := make(map[recommend.Feature]float64, len(weights))
	for f, w := range weights {
		copied[f] = w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights[userID] = copied
	return nil
}

// AppendAdjustment implements recommend.WeightStore.
func (s *MemoryWeightStore) AppendAdjustment(_ context.Context, userID string, adj recommend.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adjustments[userID] = append(s.adjustments[userID], adj)
	return nil
}

// Adjustments implements recommend.WeightStore, newest first.
func (s *MemoryWeightStore) Adjustments(_ context.Context, userID string, limit int) ([]recommend.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.adjustments[userID]
	out := make([]recommend.Adjustment, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// FeedbackCount implements recommend.WeightStore.
func (s *MemoryWeightStore) FeedbackCount(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[userID], nil
}

// IncrementFeedbackCount implements recommend.WeightStore.
func (s *MemoryWeightStore) IncrementFeedbackCount(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[userID]++
	return s.counts[userID], nil
}

// Close implements recommend.WeightStore.
func (s *MemoryWeightStore) Close() error { return nil }
