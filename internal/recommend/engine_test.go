// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// mockCatalog returns a fixed candidate list.
type mockCatalog struct {
	songs []Song
	err   error
}

func (m *mockCatalog) FetchCandidates(_ context.Context, _ string, _ int) ([]Song, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.songs, nil
}

func testEngine(catalog CatalogProvider) *Engine {
	cfg := DefaultConfig()
	store := newMockWeightStore()
	return NewEngine(cfg, catalog,
		NewWeightAdapter(cfg.Weights, store, zerolog.Nop()),
		NewBandit(cfg.Seed, zerolog.Nop()),
		zerolog.Nop())
}

func TestEngineForcedEmotionStrategy(t *testing.T) {
	t.Parallel()

	songA := Song{ID: "a", Name: "Still Water", Artist: "A", Mood: "calm", Valence: 0.5, Energy: -0.5, Tempo: 120, Popularity: 80}
	songB := Song{ID: "b", Name: "Up High", Artist: "B", Mood: "happy", Valence: 0.8, Energy: 0.6, Tempo: 140, Popularity: 60}
	e := testEngine(&mockCatalog{songs: []Song{songB, songA}})

	result, err := e.ScoreSongs(context.Background(), ScoreRequest{
		UserID:        "user-1",
		TargetMood:    "calm",
		TargetValence: 0.5,
		TargetArousal: -0.5,
		Modifiers:     DefaultModifiers(),
		Strategy:      StrategyEmotion,
		ForceStrategy: true,
		Limit:         10,
	})
	if err != nil {
		t.Fatalf("ScoreSongs: %v", err)
	}

	if result.StrategyUsed != StrategyEmotion {
		t.Errorf("strategy used = %s, want emotion", result.StrategyUsed)
	}
	if result.Samples[StrategyEmotion] != 1.0 {
		t.Errorf("forced strategy sample = %f, want 1.0", result.Samples[StrategyEmotion])
	}
	if len(result.Songs) != 2 {
		t.Fatalf("got %d songs, want 2", len(result.Songs))
	}
	if result.Songs[0].ID != "a" {
		t.Fatalf("top song = %s, want a", result.Songs[0].ID)
	}

	top := result.Songs[0]
	if !approxEqual(top.Components[FeatureEmotionalResonance], 1.5, 1e-9) {
		t.Errorf("emotional_resonance = %f, want 1.5", top.Components[FeatureEmotionalResonance])
	}
	if !approxEqual(top.Components[FeatureMoodMatch], 1.3, 1e-9) {
		t.Errorf("mood_match = %f, want 1.3", top.Components[FeatureMoodMatch])
	}
	if !strings.Contains(top.Explanation, "calm") {
		t.Errorf("explanation %q does not mention the target mood", top.Explanation)
	}

	second := result.Songs[1]
	if !approxEqual(second.Components[FeatureMoodMatch], 0.39, 1e-9) {
		t.Errorf("mood_match for different mood = %f, want 0.39", second.Components[FeatureMoodMatch])
	}
}

func TestEngineScoresBounded(t *testing.T) {
	t.Parallel()

	songs := []Song{
		{ID: "1", Artist: "X", Mood: "happy", Valence: 0.8, Energy: 0.6, Tempo: 120, Popularity: 100},
		{ID: "2", Artist: "Y", Mood: "happy", Valence: 0.7, Energy: 0.5, Tempo: 118, Popularity: 95},
		{ID: "3", Artist: "Z", Mood: "sad", Valence: -0.7, Energy: -0.3, Tempo: 60, Popularity: 10},
	}
	e := testEngine(&mockCatalog{songs: songs})

	for _, s := range Strategies() {
		result, err := e.ScoreSongs(context.Background(), ScoreRequest{
			UserID:        "user-1",
			TargetMood:    "happy",
			TargetValence: 0.8,
			TargetArousal: 0.6,
			Modifiers:     DefaultModifiers(),
			Strategy:      s,
			ForceStrategy: true,
			Limit:         3,
		})
		if err != nil {
			t.Fatalf("ScoreSongs(%s): %v", s, err)
		}
		seen := make(map[string]bool)
		for _, song := range result.Songs {
			if song.Score < 0 || song.Score > 1 {
				t.Errorf("strategy %s: score %f outside [0,1]", s, song.Score)
			}
			if seen[song.ID] {
				t.Errorf("strategy %s: duplicate song %s", s, song.ID)
			}
			seen[song.ID] = true
		}
		if len(result.Songs) > 3 {
			t.Errorf("strategy %s: %d songs exceeds limit", s, len(result.Songs))
		}
	}
}

func TestEngineDiversityFilterLimitsArtistRepeats(t *testing.T) {
	t.Parallel()

	// Four songs by the same artist lead the ranking.
	songs := []Song{
		{ID: "1", Artist: "Solo", Mood: "happy", Valence: 0.8, Energy: 0.6, Tempo: 120, Popularity: 100},
		{ID: "2", Artist: "Solo", Mood: "happy", Valence: 0.79, Energy: 0.6, Tempo: 120, Popularity: 99},
		{ID: "3", Artist: "Solo", Mood: "happy", Valence: 0.78, Energy: 0.6, Tempo: 120, Popularity: 98},
		{ID: "4", Artist: "Other", Mood: "happy", Valence: 0.5, Energy: 0.4, Tempo: 110, Popularity: 50},
	}
	e := testEngine(&mockCatalog{songs: songs})

	result, err := e.ScoreSongs(context.Background(), ScoreRequest{
		UserID:        "user-1",
		TargetMood:    "happy",
		TargetValence: 0.8,
		TargetArousal: 0.6,
		Modifiers:     DefaultModifiers(),
		Strategy:      StrategyContent,
		ForceStrategy: true,
		Limit:         4,
	})
	if err != nil {
		t.Fatalf("ScoreSongs: %v", err)
	}
	if len(result.Songs) != 4 {
		t.Fatalf("got %d songs, want 4", len(result.Songs))
	}
	// Repeats of "Solo" are deferred until three distinct picks exist,
	// then backfilled.
	if result.Songs[1].Artist != "Other" {
		t.Errorf("second pick artist = %s, want Other", result.Songs[1].Artist)
	}
}

func TestEngineComfortBoostAppliesToCalmingSongs(t *testing.T) {
	t.Parallel()

	calming := Song{ID: "c", Artist: "A", Mood: "calm", Valence: 0.5, Energy: -0.5, Tempo: 90, Popularity: 40}
	e := testEngine(&mockCatalog{songs: []Song{calming}})

	mods := DefaultModifiers()
	mods.ComfortMusicBoost = 0.2

	boosted, err := e.ScoreSongs(context.Background(), ScoreRequest{
		UserID:        "user-1",
		TargetMood:    "calm",
		TargetValence: 0.5,
		TargetArousal: -0.5,
		Modifiers:     mods,
		Strategy:      StrategyCollaborative,
		ForceStrategy: true,
		Limit:         1,
	})
	if err != nil {
		t.Fatalf("ScoreSongs: %v", err)
	}
	got := boosted.Songs[0].Components[FeatureEmotionalResonance]
	if !approxEqual(got, 1.2, 1e-9) {
		t.Errorf("emotional_resonance with comfort boost = %f, want 1.2", got)
	}
}

func TestEngineCatalogErrorPropagates(t *testing.T) {
	t.Parallel()

	e := testEngine(&mockCatalog{err: errors.New("catalog down")})
	_, err := e.ScoreSongs(context.Background(), ScoreRequest{
		UserID:    "user-1",
		Modifiers: DefaultModifiers(),
		Limit:     5,
	})
	if err == nil {
		t.Fatal("expected error from failing catalog")
	}
}

func TestMoodMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		target   string
		songMood string
		want     float64
	}{
		{"exact", "calm", "calm", 1.0},
		{"substring label", "happy", "happy, sad", 1.0},
		{"different", "calm", "angry", 0.3},
		{"song mood absent", "calm", "", 0.5},
		{"target absent", "", "calm", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := moodMatch(tt.target, tt.songMood); got != tt.want {
				t.Errorf("moodMatch(%q, %q) = %f, want %f", tt.target, tt.songMood, got, tt.want)
			}
		})
	}
}
