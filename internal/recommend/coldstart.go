// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
)

// Cold-start strategy labels reported to callers.
const (
	StrategyNameColdStartHybrid     = "cold_start_hybrid"
	StrategyNameColdStartPopularity = "cold_start_popularity"
)

// TasteProfile summarizes what is known about a user's preferences,
// used to score songs the catalog has no history for.
type TasteProfile struct {
	Valence         float64
	Energy          float64
	PreferredGenres []string
}

// ColdStartHandler serves users without enough feedback history for
// personalized scoring.
type ColdStartHandler struct {
	cfg     ColdStartConfig
	limits  LimitsConfig
	catalog CatalogProvider
	store   WeightStore
	logger  zerolog.Logger
}

// NewColdStartHandler creates a cold-start handler.
func NewColdStartHandler(cfg ColdStartConfig, limits LimitsConfig, catalog CatalogProvider, store WeightStore, logger zerolog.Logger) *ColdStartHandler {
	return &ColdStartHandler{
		cfg:     cfg,
		limits:  limits,
		catalog: catalog,
		store:   store,
		logger:  logger.With().Str("component", "cold_start").Logger(),
	}
}

// IsColdStart reports whether the user's feedback count is below the
// cold-start threshold.
func (h *ColdStartHandler) IsColdStart(ctx context.Context, userID string) (bool, error) {
	count, err := h.store.FeedbackCount(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("loading feedback count: %w", err)
	}
	return count < h.cfg.Threshold, nil
}

// PersonalizationWeight maps a feedback count onto [0,1]; 1.0 means
// fully personalized.
func (h *ColdStartHandler) PersonalizationWeight(feedbackCount int) float64 {
	if feedbackCount <= 0 {
		return 0
	}
	return math.Min(1, float64(feedbackCount)/float64(h.cfg.TransitionCompleteAt))
}

// Recommend produces cold-start recommendations: hybrid when a target
// mood is known, popularity baseline otherwise. Returns the songs and
// the strategy label used.
func (h *ColdStartHandler) Recommend(ctx context.Context, targetMood string, limit int) ([]ScoredSong, string, error) {
	if limit <= 0 {
		limit = h.limits.DefaultLimit
	}
	if targetMood != "" {
		songs, err := h.hybrid(ctx, targetMood, limit)
		if err != nil {
			return nil, "", err
		}
		return songs, StrategyNameColdStartHybrid, nil
	}
	songs, err := h.popularityBaseline(ctx, limit)
	if err != nil {
		return nil, "", err
	}
	return songs, StrategyNameColdStartPopularity, nil
}

// popularityBaseline ranks by popularity, breaking ties on like count,
// and assigns linearly decaying scores.
func (h *ColdStartHandler) popularityBaseline(ctx context.Context, limit int) ([]ScoredSong, error) {
	candidates, err := h.catalog.FetchCandidates(ctx, "", limit*h.limits.CandidateMultiplier)
	if err != nil {
		return nil, fmt.Errorf("fetching popular candidates: %w", err)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Popularity != candidates[j].Popularity {
			return candidates[i].Popularity > candidates[j].Popularity
		}
		return candidates[i].LikeCount > candidates[j].LikeCount
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]ScoredSong, 0, len(candidates))
	for rank, song := range candidates {
		out = append(out, ScoredSong{
			Song:        song,
			Score:       rankDecay(rank),
			Explanation: "A popular pick to get to know your taste.",
		})
	}
	return out, nil
}

// moodClusterBootstrap ranks candidates by proximity to the target
// mood's VA centroid, then applies diversity sampling so one artist
// does not dominate the list.
func (h *ColdStartHandler) moodClusterBootstrap(ctx context.Context, targetMood string, limit int) ([]ScoredSong, error) {
	centroid, known := MoodCentroid(targetMood)
	if !known {
		centroid = VAPosition{}
	}

	candidates, err := h.catalog.FetchCandidates(ctx, targetMood, limit*h.limits.CandidateMultiplier)
	if err != nil {
		return nil, fmt.Errorf("fetching mood candidates: %w", err)
	}

	ranked := make([]ScoredSong, 0, len(candidates))
	for _, song := range candidates {
		dist := VADistance(centroid, VAPosition{Valence: song.Valence, Arousal: song.Energy})
		if dist >= 0.5 && song.Mood == "" {
			continue
		}
		ranked = append(ranked, ScoredSong{
			Song:        song,
			Score:       math.Max(0, 1-dist),
			Explanation: fmt.Sprintf("Close to the %s mood you're in.", targetMood),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return h.diversitySample(ranked, limit), nil
}

// diversitySample greedily picks songs balancing rank score against
// artist novelty, starting from the highest-ranked song.
func (h *ColdStartHandler) diversitySample(ranked []ScoredSong, limit int) []ScoredSong {
	if len(ranked) == 0 {
		return nil
	}
	d := h.cfg.DiversityFactor

	selected := make([]ScoredSong, 0, limit)
	seen := make(map[string]bool)
	remaining := make([]ScoredSong, len(ranked))
	copy(remaining, ranked)

	selected = append(selected, remaining[0])
	seen[remaining[0].Artist] = true
	remaining = remaining[1:]

	for len(selected) < limit && len(remaining) > 0 {
		bestIdx := 0
		bestVal := math.Inf(-1)
		for i, s := range remaining {
			bonus := 0.0
			if !seen[s.Artist] {
				bonus = 0.2
			}
			val := s.Score*(1-d) + bonus*d
			if val > bestVal {
				bestVal = val
				bestIdx = i
			}
		}
		pick := remaining[bestIdx]
		selected = append(selected, pick)
		seen[pick.Artist] = true
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

// hybrid interleaves mood-cluster picks with popularity picks, cluster
// first, then re-scores by final position.
func (h *ColdStartHandler) hybrid(ctx context.Context, targetMood string, limit int) ([]ScoredSong, error) {
	clusterN := int(math.Floor(float64(limit)*0.6 + 1e-9))

	cluster, err := h.moodClusterBootstrap(ctx, targetMood, clusterN)
	if err != nil {
		return nil, err
	}
	popular, err := h.popularityBaseline(ctx, limit-clusterN)
	if err != nil {
		return nil, err
	}

	blended := interleave(cluster, popular, limit)
	for i := range blended {
		blended[i].Score = rankDecay(i)
	}
	return blended, nil
}

// interleave alternates between the two lists, a first, skipping
// duplicate song IDs, until limit songs are collected or both lists
// are exhausted.
func interleave(a, b []ScoredSong, limit int) []ScoredSong {
	out := make([]ScoredSong, 0, limit)
	seen := make(map[string]bool)
	ai, bi := 0, 0

	appendNext := func(list []ScoredSong, idx *int) {
		for *idx < len(list) {
			s := list[*idx]
			*idx++
			if !seen[s.ID] {
				seen[s.ID] = true
				out = append(out, s)
				return
			}
		}
	}

	for len(out) < limit && (ai < len(a) || bi < len(b)) {
		appendNext(a, &ai)
		if len(out) >= limit {
			break
		}
		appendNext(b, &bi)
	}
	return out
}

// ScoreNewSong scores a song with no interaction history by blending
// content similarity to the user's taste profile with artist
// popularity, genre affinity, and a flat exploration bonus.
func (h *ColdStartHandler) ScoreNewSong(song Song, profile TasteProfile, artistPopularity float64) float64 {
	similarity := emotionalResonance(profile.Valence, profile.Energy, song.Valence, song.Energy)
	score := 0.5*similarity + 0.3*ClampUnit(artistPopularity)
	for _, genre := range profile.PreferredGenres {
		if genre != "" && genre == song.Genre {
			score += 0.2
			break
		}
	}
	score += 0.1 // Exploration bonus
	return math.Min(1, score)
}

// rankDecay maps a zero-based rank to a linearly decaying score with a
// 0.1 floor.
func rankDecay(rank int) float64 {
	return math.Max(0.1, 1-0.05*float64(rank))
}

// TransitionManager blends cold-start and personalized lists as a user
// accumulates feedback.
type TransitionManager struct {
	cfg ColdStartConfig
}

// NewTransitionManager creates a transition manager.
func NewTransitionManager(cfg ColdStartConfig) *TransitionManager {
	return &TransitionManager{cfg: cfg}
}

// BlendWeights reports the personalized/cold split for a
// personalization weight.
func (tm *TransitionManager) BlendWeights(pw float64) map[string]float64 {
	pw = ClampUnit(pw)
	return map[string]float64{
		"personalized": pw,
		"cold_start":   1 - pw,
	}
}

// Blend combines the two lists according to the personalization
// weight: fully personalized at pw >= 1, fully cold at pw <= 0, and a
// floor(limit*pw) personalized prefix with a cold remainder otherwise.
func (tm *TransitionManager) Blend(cold, personal []ScoredSong, limit int, pw float64) ([]ScoredSong, map[string]float64) {
	weights := tm.BlendWeights(pw)
	if limit <= 0 {
		return nil, weights
	}

	switch {
	case pw >= 1:
		return truncate(personal, limit), weights
	case pw <= 0:
		return truncate(cold, limit), weights
	}

	// Epsilon guards against float truncation, e.g. 30·(29/30) < 29.
	personalN := int(math.Floor(float64(limit)*pw + 1e-9))
	out := make([]ScoredSong, 0, limit)
	seen := make(map[string]bool)
	for _, s := range truncate(personal, personalN) {
		out = append(out, s)
		seen[s.ID] = true
	}
	for _, s := range cold {
		if len(out) >= limit {
			break
		}
		if seen[s.ID] {
			continue
		}
		out = append(out, s)
		seen[s.ID] = true
	}
	return out, weights
}

func truncate(songs []ScoredSong, limit int) []ScoredSong {
	if len(songs) > limit {
		return songs[:limit]
	}
	return songs
}
