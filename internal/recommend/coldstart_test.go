// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package recommend

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

func testColdStartHandler(catalog CatalogProvider, store WeightStore) *ColdStartHandler {
	cfg := DefaultConfig()
	return NewColdStartHandler(cfg.ColdStart, cfg.Limits, catalog, store, zerolog.Nop())
}

// hybridTestCatalog builds six calm songs near the "calm" centroid and
// six popular songs without mood labels, far from the centroid.
func hybridTestCatalog() *mockCatalog {
	songs := make([]Song, 0, 12)
	for i := 0; i < 6; i++ {
		songs = append(songs, Song{
			ID:         fmt.Sprintf("calm-%d", i),
			Artist:     fmt.Sprintf("Calm Artist %d", i),
			Mood:       "calm",
			Valence:    0.5 - 0.02*float64(i),
			Energy:     -0.5,
			Tempo:      90,
			Popularity: 10 + float64(i),
		})
	}
	for i := 0; i < 6; i++ {
		songs = append(songs, Song{
			ID:         fmt.Sprintf("pop-%d", i),
			Artist:     fmt.Sprintf("Pop Artist %d", i),
			Valence:    0.5,
			Energy:     0.9,
			Tempo:      128,
			Popularity: 95 - float64(i),
			LikeCount:  100,
		})
	}
	return &mockCatalog{songs: songs}
}

func TestColdStartHybridSplit(t *testing.T) {
	t.Parallel()

	h := testColdStartHandler(hybridTestCatalog(), newMockWeightStore())
	songs, strategy, err := h.Recommend(context.Background(), "calm", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if strategy != StrategyNameColdStartHybrid {
		t.Errorf("strategy = %s, want %s", strategy, StrategyNameColdStartHybrid)
	}
	if len(songs) != 10 {
		t.Fatalf("got %d songs, want 10", len(songs))
	}

	cluster, popular := 0, 0
	for _, s := range songs {
		if s.Mood == "calm" {
			cluster++
		} else {
			popular++
		}
	}
	if cluster != 6 || popular != 4 {
		t.Errorf("split = %d cluster + %d popular, want 6 + 4", cluster, popular)
	}

	// Interleaved: cluster pick first, then a popular pick.
	if songs[0].Mood != "calm" {
		t.Errorf("first pick mood = %q, want calm", songs[0].Mood)
	}
	if songs[1].Mood != "" {
		t.Errorf("second pick should be a popularity pick, got mood %q", songs[1].Mood)
	}

	// Scores decay from 1.0 in 0.05 steps by final position.
	for i, s := range songs {
		want := 1 - 0.05*float64(i)
		if !approxEqual(s.Score, want, 1e-9) {
			t.Errorf("rank %d score = %f, want %f", i, s.Score, want)
		}
	}
}

func TestColdStartPopularityBaseline(t *testing.T) {
	t.Parallel()

	catalog := &mockCatalog{songs: []Song{
		{ID: "low", Artist: "A", Popularity: 20},
		{ID: "tie-few-likes", Artist: "B", Popularity: 90, LikeCount: 5},
		{ID: "tie-many-likes", Artist: "C", Popularity: 90, LikeCount: 50},
		{ID: "top", Artist: "D", Popularity: 99},
	}}
	h := testColdStartHandler(catalog, newMockWeightStore())

	songs, strategy, err := h.Recommend(context.Background(), "", 4)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if strategy != StrategyNameColdStartPopularity {
		t.Errorf("strategy = %s, want %s", strategy, StrategyNameColdStartPopularity)
	}

	wantOrder := []string{"top", "tie-many-likes", "tie-few-likes", "low"}
	for i, want := range wantOrder {
		if songs[i].ID != want {
			t.Errorf("rank %d = %s, want %s", i, songs[i].ID, want)
		}
	}
	if !approxEqual(songs[0].Score, 1.0, 1e-9) || !approxEqual(songs[3].Score, 0.85, 1e-9) {
		t.Errorf("rank decay scores = %f..%f, want 1.0..0.85", songs[0].Score, songs[3].Score)
	}
}

func TestPersonalizationWeight(t *testing.T) {
	t.Parallel()

	h := testColdStartHandler(&mockCatalog{}, newMockWeightStore())
	tests := []struct {
		count int
		want  float64
	}{
		{0, 0},
		{15, 0.5},
		{29, 29.0 / 30.0},
		{30, 1},
		{45, 1},
	}
	for _, tt := range tests {
		if got := h.PersonalizationWeight(tt.count); !approxEqual(got, tt.want, 1e-9) {
			t.Errorf("PersonalizationWeight(%d) = %f, want %f", tt.count, got, tt.want)
		}
	}
}

func TestIsColdStart(t *testing.T) {
	t.Parallel()

	store := newMockWeightStore()
	store.counts["warm"] = 10
	store.counts["warming"] = 9
	h := testColdStartHandler(&mockCatalog{}, store)
	ctx := context.Background()

	for userID, want := range map[string]bool{"new": true, "warming": true, "warm": false} {
		got, err := h.IsColdStart(ctx, userID)
		if err != nil {
			t.Fatalf("IsColdStart(%s): %v", userID, err)
		}
		if got != want {
			t.Errorf("IsColdStart(%s) = %v, want %v", userID, got, want)
		}
	}
}

func TestScoreNewSongCapped(t *testing.T) {
	t.Parallel()

	h := testColdStartHandler(&mockCatalog{}, newMockWeightStore())
	profile := TasteProfile{Valence: 0.5, Energy: 0.5, PreferredGenres: []string{"jazz"}}
	song := Song{Valence: 0.5, Energy: 0.5, Genre: "jazz"}

	// 0.5·1.0 + 0.3·1.0 + 0.2 + 0.1 exceeds 1, so the cap applies.
	if got := h.ScoreNewSong(song, profile, 1.0); got != 1.0 {
		t.Errorf("score = %f, want capped 1.0", got)
	}

	distant := Song{Valence: -0.5, Energy: -0.5, Genre: "metal"}
	got := h.ScoreNewSong(distant, profile, 0.0)
	if got >= 0.5 || got <= 0 {
		t.Errorf("distant song score = %f, want small positive", got)
	}
}

func TestTransitionBlend(t *testing.T) {
	t.Parallel()

	mk := func(prefix string, n int) []ScoredSong {
		out := make([]ScoredSong, n)
		for i := range out {
			out[i] = ScoredSong{Song: Song{ID: fmt.Sprintf("%s-%d", prefix, i)}}
		}
		return out
	}
	tm := NewTransitionManager(DefaultConfig().ColdStart)

	tests := []struct {
		name         string
		pw           float64
		limit        int
		wantPersonal int
	}{
		{"pure cold", 0, 10, 0},
		{"pure personal", 1, 10, 10},
		{"partial", 29.0 / 30.0, 30, 29},
		{"half", 0.5, 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			blended, weights := tm.Blend(mk("cold", 40), mk("personal", 40), tt.limit, tt.pw)
			if len(blended) != tt.limit {
				t.Fatalf("blended length = %d, want %d", len(blended), tt.limit)
			}
			personal := 0
			for _, s := range blended {
				if len(s.ID) > 8 && s.ID[:8] == "personal" {
					personal++
				}
			}
			if personal != tt.wantPersonal {
				t.Errorf("personal picks = %d, want %d", personal, tt.wantPersonal)
			}
			if !approxEqual(weights["personalized"], ClampUnit(tt.pw), 1e-9) {
				t.Errorf("personalized weight = %f, want %f", weights["personalized"], tt.pw)
			}
		})
	}
}

func TestRankDecayFloor(t *testing.T) {
	t.Parallel()

	if got := rankDecay(0); got != 1.0 {
		t.Errorf("rankDecay(0) = %f, want 1.0", got)
	}
	if got := rankDecay(50); got != 0.1 {
		t.Errorf("rankDecay(50) = %f, want floor 0.1", got)
	}
}
