// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package recommend

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ContextModifiers carries conversation-derived scoring adjustments.
// The set is closed; producers populate the fields they know about and
// leave the rest at their neutral values.
type ContextModifiers struct {
	// MoodStabilityWeight scales mood-related components. Neutral: 1.0.
	MoodStabilityWeight float64 `json:"mood_stability_weight"`

	// DiversityBoost inflates popularity under the diversity strategy.
	DiversityBoost float64 `json:"diversity_boost"`

	// ArtistFamiliarityBoost reflects accumulated artist exposure.
	ArtistFamiliarityBoost float64 `json:"artist_familiarity_boost"`

	// ComfortMusicBoost is added to emotional resonance of calming
	// songs when the emotional trajectory is declining.
	ComfortMusicBoost float64 `json:"comfort_music_boost"`

	// ExplorationPenalty discourages exploration for satisfied users.
	ExplorationPenalty float64 `json:"exploration_penalty"`
}

// DefaultModifiers returns neutral modifiers for requests without
// conversation context.
func DefaultModifiers() ContextModifiers {
	return ContextModifiers{MoodStabilityWeight: 1.0}
}

// ScoreRequest describes one scoring pass.
type ScoreRequest struct {
	UserID        string
	TargetMood    string
	TargetValence float64
	TargetArousal float64
	Modifiers     ContextModifiers
	// Strategy forces a specific strategy when ForceStrategy is true;
	// otherwise the bandit picks.
	Strategy      Strategy
	ForceStrategy bool
	Limit         int
}

// ScoreResult is the outcome of one scoring pass.
type ScoreResult struct {
	Songs        []ScoredSong
	StrategyUsed Strategy
	Samples      map[Strategy]float64
}

// Engine ranks catalog candidates for a user by combining weighted
// feature components, conversation modifiers, and the strategy chosen
// by the bandit.
type Engine struct {
	cfg     *Config
	catalog CatalogProvider
	weights *WeightAdapter
	bandit  *Bandit
	logger  zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewEngine creates a scoring engine.
func NewEngine(cfg *Config, catalog CatalogProvider, weights *WeightAdapter, bandit *Bandit, logger zerolog.Logger) *Engine {
	seed := cfg.Seed
	if seed == 0 {
		seed = 42
	}
	return &Engine{
		cfg:     cfg,
		catalog: catalog,
		weights: weights,
		bandit:  bandit,
		logger:  logger.With().Str("component", "scoring_engine").Logger(),
		rng:     rand.New(rand.NewSource(seed)), //nolint:gosec // not used for security
	}
}

// scoredFeatures are the components the engine computes per song, in
// the order they contribute to the normalization denominator.
var scoredFeatures = []Feature{
	FeatureMoodMatch,
	FeatureEmotionalResonance,
	FeatureValenceAlignment,
	FeatureEnergyAlignment,
	FeatureTempoComfort,
	FeaturePopularity,
}

// ScoreSongs fetches candidates, scores them under the selected
// strategy, and returns up to req.Limit ranked songs.
//
// No lock is held across the catalog call. When the catalog fails the
// error is returned and no bandit state changes.
func (e *Engine) ScoreSongs(ctx context.Context, req ScoreRequest) (*ScoreResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = e.cfg.Limits.DefaultLimit
	}
	if limit > e.cfg.Limits.MaxLimit {
		limit = e.cfg.Limits.MaxLimit
	}

	strategy, samples := e.selectStrategy(req)
	profile := e.weights.GetWeights(ctx, req.UserID)

	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.Limits.CatalogTimeout)
	defer cancel()
	candidates, err := e.catalog.FetchCandidates(fetchCtx, req.TargetMood, limit*e.cfg.Limits.CandidateMultiplier)
	if err != nil {
		return nil, fmt.Errorf("fetching candidates: %w", err)
	}

	scored := make([]ScoredSong, 0, len(candidates))
	for _, song := range candidates {
		scored = append(scored, e.scoreSong(song, req, strategy, profile))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	selected := scored
	if strategy != StrategyDiversity {
		selected = applyDiversityFilter(scored, limit)
	}
	if len(selected) > limit {
		selected = selected[:limit]
	}
	for i := range selected {
		selected[i].Explanation = explainSong(selected[i], req.TargetMood)
	}

	e.logger.Debug().
		Str("user_id", req.UserID).
		Str("strategy", strategy.String()).
		Int("candidates", len(candidates)).
		Int("selected", len(selected)).
		Msg("Scored songs")

	return &ScoreResult{Songs: selected, StrategyUsed: strategy, Samples: samples}, nil
}

// selectStrategy honors a forced strategy or delegates to the bandit.
func (e *Engine) selectStrategy(req ScoreRequest) (Strategy, map[Strategy]float64) {
	if req.ForceStrategy && req.Strategy >= 0 && req.Strategy < numStrategies {
		samples := make(map[Strategy]float64, numStrategies)
		for _, s := range Strategies() {
			if s == req.Strategy {
				samples[s] = 1.0
			} else {
				samples[s] = 0.0
			}
		}
		return req.Strategy, samples
	}
	return e.bandit.Sample(req.UserID)
}

// scoreSong computes the weighted components for one song and folds in
// modifiers and strategy adjustments.
func (e *Engine) scoreSong(song Song, req ScoreRequest, strategy Strategy, profile map[Feature]float64) ScoredSong {
	components := map[Feature]float64{
		FeatureMoodMatch:          moodMatch(req.TargetMood, song.Mood),
		FeatureValenceAlignment:   math.Max(0, 1-math.Abs(req.TargetValence-song.Valence)),
		FeatureEnergyAlignment:    math.Max(0, 1-math.Abs(req.TargetArousal-song.Energy)),
		FeatureEmotionalResonance: emotionalResonance(req.TargetValence, req.TargetArousal, song.Valence, song.Energy),
		FeatureTempoComfort:       ClampUnit(1 - math.Abs(song.Tempo-120)/80),
		FeaturePopularity:         song.Popularity / 100,
	}
	for f := range components {
		components[f] *= profile[f]
	}

	// Context modifiers, in contract order.
	msw := req.Modifiers.MoodStabilityWeight
	if msw > 0 {
		components[FeatureMoodMatch] *= msw
		components[FeatureEmotionalResonance] *= msw
	}
	if req.Modifiers.ComfortMusicBoost > 0 && song.Energy < 0.5 && song.Valence > 0 {
		components[FeatureEmotionalResonance] += req.Modifiers.ComfortMusicBoost
	}
	if strategy == StrategyDiversity {
		components[FeaturePopularity] *= 1 + req.Modifiers.DiversityBoost
	}

	raw := 0.0
	switch strategy {
	case StrategyEmotion:
		components[FeatureEmotionalResonance] *= 1.5
		components[FeatureMoodMatch] *= 1.3
	case StrategyContent:
		components[FeatureValenceAlignment] *= 1.3
		components[FeatureEnergyAlignment] *= 1.3
	case StrategyExploration:
		for f := range components {
			components[f] *= 0.7
		}
		raw += e.explorationBonus()
	case StrategyCollaborative, StrategyDiversity:
		// No per-component multipliers.
	}

	weightSum := 0.0
	for _, f := range scoredFeatures {
		raw += components[f]
		weightSum += profile[f]
	}
	maxPossible := 1.5 * weightSum
	final := 0.0
	if maxPossible > 0 {
		final = math.Min(1, raw/maxPossible)
	}

	return ScoredSong{Song: song, Score: final, Components: components}
}

// explorationBonus draws from Uniform(0.2, 0.5) under the engine's
// seeded RNG.
func (e *Engine) explorationBonus() float64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return 0.2 + 0.3*e.rng.Float64()
}

// UpdateBandit records a reward for the strategy used on an earlier
// request.
func (e *Engine) UpdateBandit(userID string, strategy Strategy, reward float64) {
	e.bandit.Update(userID, strategy, reward)
}

// moodMatch implements the substring mood heuristic. Mood labels are
// opaque: a label like "happy, sad" matches either target.
func moodMatch(target, songMood string) float64 {
	if target == "" || songMood == "" {
		return 0.5
	}
	if strings.Contains(strings.ToLower(songMood), strings.ToLower(target)) {
		return 1.0
	}
	return 0.3
}

func emotionalResonance(tv, ta, sv, se float64) float64 {
	d := math.Hypot(tv-sv, ta-se)
	return math.Max(0, 1-d/2)
}

// applyDiversityFilter limits artist repetition at the top of the
// ranking: while fewer than 3 songs are selected, a song whose artist
// already appears is skipped. Skipped songs backfill in rank order if
// the selection falls short of limit.
func applyDiversityFilter(ranked []ScoredSong, limit int) []ScoredSong {
	selected := make([]ScoredSong, 0, limit)
	skipped := make([]ScoredSong, 0, len(ranked))
	seen := make(map[string]bool)

	for _, s := range ranked {
		if len(selected) >= limit {
			break
		}
		if len(selected) < 3 && seen[s.Artist] {
			skipped = append(skipped, s)
			continue
		}
		selected = append(selected, s)
		seen[s.Artist] = true
	}
	for _, s := range skipped {
		if len(selected) >= limit {
			break
		}
		selected = append(selected, s)
	}
	return selected
}
