// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/resonata/resonata/internal/recommend"
)

// storeFactories builds each WeightStore implementation against the
// same behavioral checks.
func storeFactories(t *testing.T) map[string]func(t *testing.T) recommend.WeightStore {
	t.Helper()
	return map[string]func(t *testing.T) recommend.WeightStore{
		"memory": func(t *testing.T) recommend.WeightStore {
			return NewMemoryWeightStore()
		},
		"badger": func(t *testing.T) recommend.WeightStore {
			store, err := OpenBadgerWeightStore(t.TempDir())
			if err != nil {
				t.Fatalf("opening badger store: %v", err)
			}
			t.Cleanup(func() { store.Close() })
			return store
		},
		"duckdb": func(t *testing.T) recommend.WeightStore {
			store, err := OpenDuckDBWeightStore("")
			if err != nil {
				t.Fatalf("opening duckdb store: %v", err)
			}
			t.Cleanup(func() { store.Close() })
			return store
		},
	}
}

func TestWeightStoreRoundTrip(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			missing, err := store.LoadWeights(ctx, "nobody")
			if err != nil {
				t.Fatalf("LoadWeights on empty store: %v", err)
			}
			if missing != nil {
				t.Errorf("expected nil weights for unknown user, got %v", missing)
			}

			weights := map[recommend.Feature]float64{
				recommend.FeatureMoodMatch:  1.4,
				recommend.FeaturePopularity: 0.6,
			}
			if err := store.SaveWeights(ctx, "user-1", weights); err != nil {
				t.Fatalf("SaveWeights: %v", err)
			}

			loaded, err := store.LoadWeights(ctx, "user-1")
			if err != nil {
				t.Fatalf("LoadWeights: %v", err)
			}
			if loaded[recommend.FeatureMoodMatch] != 1.4 || loaded[recommend.FeaturePopularity] != 0.6 {
				t.Errorf("loaded weights = %v, want %v", loaded, weights)
			}

			// Last writer wins.
			weights[recommend.FeatureMoodMatch] = 0.9
			if err := store.SaveWeights(ctx, "user-1", weights); err != nil {
				t.Fatalf("SaveWeights overwrite: %v", err)
			}
			loaded, err = store.LoadWeights(ctx, "user-1")
			if err != nil {
				t.Fatalf("LoadWeights after overwrite: %v", err)
			}
			if loaded[recommend.FeatureMoodMatch] != 0.9 {
				t.Errorf("mood_match = %f after overwrite, want 0.9", loaded[recommend.FeatureMoodMatch])
			}
		})
	}
}

func TestWeightStoreAdjustmentsNewestFirst(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()
			base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

			for i, fb := range []recommend.Feedback{recommend.FeedbackLike, recommend.FeedbackLove, recommend.FeedbackSkip} {
				adj := recommend.Adjustment{
					Feature:   recommend.FeatureMoodMatch,
					Feedback:  fb,
					OldWeight: 1.0,
					NewWeight: 1.0 + float64(i)*0.01,
					Delta:     float64(i) * 0.01,
					Reason:    "feedback",
					SongID:    "song-9",
					Timestamp: base.Add(time.Duration(i) * time.Minute),
				}
				if err := store.AppendAdjustment(ctx, "user-1", adj); err != nil {
					t.Fatalf("AppendAdjustment: %v", err)
				}
			}

			got, err := store.Adjustments(ctx, "user-1", 2)
			if err != nil {
				t.Fatalf("Adjustments: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("got %d adjustments, want 2", len(got))
			}
			if got[0].Feedback != recommend.FeedbackSkip || got[1].Feedback != recommend.FeedbackLove {
				t.Errorf("order = [%s, %s], want [skip, love]", got[0].Feedback, got[1].Feedback)
			}
			if got[0].SongID != "song-9" || got[0].Reason != "feedback" {
				t.Errorf("metadata lost: song_id=%q reason=%q", got[0].SongID, got[0].Reason)
			}

			other, err := store.Adjustments(ctx, "user-2", 10)
			if err != nil {
				t.Fatalf("Adjustments for other user: %v", err)
			}
			if len(other) != 0 {
				t.Errorf("adjustments leaked across users: %d", len(other))
			}
		})
	}
}

func TestWeightStoreFeedbackCount(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			count, err := store.FeedbackCount(ctx, "user-1")
			if err != nil {
				t.Fatalf("FeedbackCount: %v", err)
			}
			if count != 0 {
				t.Errorf("initial count = %d, want 0", count)
			}

			for i := 1; i <= 3; i++ {
				got, err := store.IncrementFeedbackCount(ctx, "user-1")
				if err != nil {
					t.Fatalf("IncrementFeedbackCount: %v", err)
				}
				if got != i {
					t.Errorf("increment %d returned %d", i, got)
				}
			}

			other, err := store.FeedbackCount(ctx, "user-2")
			if err != nil {
				t.Fatalf("FeedbackCount for other user: %v", err)
			}
			if other != 0 {
				t.Errorf("count leaked across users: %d", other)
			}
		})
	}
}
