// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/resonata/resonata/internal/recommend"
)

func sampleSongs() []recommend.Song {
	return []recommend.Song{
		{ID: "1", Mood: "calm", Artist: "A"},
		{ID: "2", Mood: "happy", Artist: "B"},
		{ID: "3", Mood: "", Artist: "C"},
		{ID: "4", Mood: "calm, nostalgic", Artist: "D"},
		{ID: "5", Mood: "angry", Artist: "E"},
	}
}

func TestMemoryCatalogMoodFilter(t *testing.T) {
	t.Parallel()

	c := NewMemoryCatalog(sampleSongs(), 1)
	songs, err := c.FetchCandidates(context.Background(), "calm", 10)
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}

	// Matching and unlabeled songs qualify; others do not.
	want := map[string]bool{"1": true, "3": true, "4": true}
	if len(songs) != len(want) {
		t.Fatalf("got %d songs, want %d", len(songs), len(want))
	}
	for _, s := range songs {
		if !want[s.ID] {
			t.Errorf("unexpected song %s for mood calm", s.ID)
		}
	}
}

func TestMemoryCatalogSampleWithoutMood(t *testing.T) {
	t.Parallel()

	c := NewMemoryCatalog(sampleSongs(), 1)
	songs, err := c.FetchCandidates(context.Background(), "", 3)
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	if len(songs) != 3 {
		t.Errorf("got %d songs, want approx limit 3", len(songs))
	}
}

func TestMemoryCatalogCanceledContext(t *testing.T) {
	t.Parallel()

	c := NewMemoryCatalog(sampleSongs(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.FetchCandidates(ctx, "", 3); err == nil {
		t.Error("expected error for canceled context")
	}
}

// failingCatalog always errors.
type failingCatalog struct{}

func (failingCatalog) FetchCandidates(context.Context, string, int) ([]recommend.Song, error) {
	return nil, errors.New("upstream down")
}

func TestResilientCatalogOpensAfterFailures(t *testing.T) {
	t.Parallel()

	cfg := DefaultBreakerConfig()
	cfg.FailureThreshold = 3
	rc := NewResilientCatalog(failingCatalog{}, cfg, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := rc.FetchCandidates(ctx, "", 5); err == nil {
			t.Fatalf("call %d unexpectedly succeeded", i)
		}
	}
	if rc.State() != gobreaker.StateOpen {
		t.Errorf("breaker state = %s, want open", rc.State())
	}

	// Open breaker fails fast without reaching the upstream.
	if _, err := rc.FetchCandidates(ctx, "", 5); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("error = %v, want wrapped ErrOpenState", err)
	}
}

func TestResilientCatalogPassesThrough(t *testing.T) {
	t.Parallel()

	inner := NewMemoryCatalog(sampleSongs(), 1)
	rc := NewResilientCatalog(inner, DefaultBreakerConfig(), zerolog.Nop())

	songs, err := rc.FetchCandidates(context.Background(), "calm", 10)
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	if len(songs) == 0 {
		t.Error("expected candidates through the breaker")
	}
}
