// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package recommend

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Feature identifies a scoring component whose influence is learned
// per user by the weight adapter.
type Feature string

// Learnable scoring features.
const (
	FeatureMoodMatch          Feature = "mood_match"
	FeatureEmotionalResonance Feature = "emotional_resonance"
	FeatureValenceAlignment   Feature = "valence_alignment"
	FeatureEnergyAlignment    Feature = "energy_alignment"
	FeatureArtistPreference   Feature = "artist_preference"
	FeatureGenrePreference    Feature = "genre_preference"
	FeatureTempoComfort       Feature = "tempo_comfort"
	FeaturePopularity         Feature = "popularity"
	FeatureRecency            Feature = "recency"
)

// Features returns all learnable features in a stable order.
func Features() []Feature {
	return []Feature{
		FeatureMoodMatch,
		FeatureEmotionalResonance,
		FeatureValenceAlignment,
		FeatureEnergyAlignment,
		FeatureArtistPreference,
		FeatureGenrePreference,
		FeatureTempoComfort,
		FeaturePopularity,
		FeatureRecency,
	}
}

// Valid reports whether f names a known feature.
func (f Feature) Valid() bool {
	switch f {
	case FeatureMoodMatch, FeatureEmotionalResonance, FeatureValenceAlignment,
		FeatureEnergyAlignment, FeatureArtistPreference, FeatureGenrePreference,
		FeatureTempoComfort, FeaturePopularity, FeatureRecency:
		return true
	}
	return false
}

// DefaultWeights returns the starting weight profile for a new user.
// Popularity and recency start discounted so personal signals dominate
// as soon as they exist.
func DefaultWeights() map[Feature]float64 {
	return map[Feature]float64{
		FeatureMoodMatch:          1.0,
		FeatureEmotionalResonance: 1.0,
		FeatureValenceAlignment:   1.0,
		FeatureEnergyAlignment:    1.0,
		FeatureArtistPreference:   1.0,
		FeatureGenrePreference:    1.0,
		FeatureTempoComfort:       1.0,
		FeaturePopularity:         0.5,
		FeatureRecency:            0.3,
	}
}

// feedbackDelta maps feedback to the base gradient direction.
func feedbackDelta(fb Feedback) float64 {
	switch fb {
	case FeedbackLove:
		return 0.10
	case FeedbackLike:
		return 0.05
	case FeedbackNeutral:
		return 0.0
	case FeedbackSkip:
		return -0.03
	case FeedbackDislike:
		return -0.08
	default:
		return 0.0
	}
}

// Adjustment records a single applied weight change for audit purposes.
type Adjustment struct {
	Feature   Feature   `json:"feature"`
	Feedback  Feedback  `json:"feedback,omitempty"`
	OldWeight float64   `json:"old_weight"`
	NewWeight float64   `json:"new_weight"`
	Delta     float64   `json:"delta"`
	Reason    string    `json:"reason,omitempty"`
	SongID    string    `json:"song_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WeightStore persists per-user weight profiles and feedback history.
// Implementations must be safe for concurrent use.
type WeightStore interface {
	// LoadWeights returns the stored profile for userID, or (nil, nil)
	// when none exists.
	LoadWeights(ctx context.Context, userID string) (map[Feature]float64, error)

	// SaveWeights replaces the stored profile for userID.
	SaveWeights(ctx context.Context, userID string, weights map[Feature]float64) error

	// AppendAdjustment records an applied weight change.
	AppendAdjustment(ctx context.Context, userID string, adj Adjustment) error

	// Adjustments returns the most recent adjustments for userID,
	// newest first, up to limit.
	Adjustments(ctx context.Context, userID string, limit int) ([]Adjustment, error)

	// FeedbackCount returns the total number of feedback events
	// recorded for userID.
	FeedbackCount(ctx context.Context, userID string) (int, error)

	// IncrementFeedbackCount adds one to the feedback total and
	// returns the new value.
	IncrementFeedbackCount(ctx context.Context, userID string) (int, error)

	// Close releases store resources.
	Close() error
}

// WeightAdapter learns per-user feature weights from feedback through
// bounded gradient updates with L2 regularization toward the neutral
// weight 1.0.
//
// The in-memory cache is authoritative: store writes that fail are
// logged and the operation still succeeds on the cached profile.
type WeightAdapter struct {
	cfg    WeightsConfig
	store  WeightStore
	logger zerolog.Logger

	mu       sync.RWMutex
	profiles map[string]map[Feature]float64
}

// NewWeightAdapter creates a weight adapter backed by store.
func NewWeightAdapter(cfg WeightsConfig, store WeightStore, logger zerolog.Logger) *WeightAdapter {
	return &WeightAdapter{
		cfg:      cfg,
		store:    store,
		logger:   logger.With().Str("component", "weight_adapter").Logger(),
		profiles: make(map[string]map[Feature]float64),
	}
}

// GetWeights returns a copy of the user's current weight profile,
// loading it from the store (or defaults) on first access.
func (wa *WeightAdapter) GetWeights(ctx context.Context, userID string) map[Feature]float64 {
	wa.mu.RLock()
	profile, ok := wa.profiles[userID]
	if ok {
		out := cloneWeights(profile)
		wa.mu.RUnlock()
		return out
	}
	wa.mu.RUnlock()

	profile = wa.loadProfile(ctx, userID)

	wa.mu.Lock()
	// Another goroutine may have loaded meanwhile; keep the first.
	if existing, ok := wa.profiles[userID]; ok {
		profile = existing
	} else {
		wa.profiles[userID] = profile
	}
	out := cloneWeights(profile)
	wa.mu.Unlock()
	return out
}

// loadProfile fetches the profile from the store, falling back to
// defaults on miss or error. Called without wa.mu held.
func (wa *WeightAdapter) loadProfile(ctx context.Context, userID string) map[Feature]float64 {
	stored, err := wa.store.LoadWeights(ctx, userID)
	if err != nil {
		wa.logger.Warn().Err(err).Str("user_id", userID).
			Msg("Failed to load weights, using defaults")
		return DefaultWeights()
	}
	if stored == nil {
		return DefaultWeights()
	}

	// Merge onto defaults so profiles saved before a feature existed
	// still carry every feature.
	profile := DefaultWeights()
	for f, w := range stored {
		if f.Valid() {
			profile[f] = wa.clamp(w)
		}
	}
	return profile
}

// AdjustWeights applies one gradient step to every known feature,
// using the feedback direction and the song's feature intensities.
// Features absent from songFeatures use the neutral observation 0.5.
// Neutral feedback is a no-op. Returns the applied adjustments.
func (wa *WeightAdapter) AdjustWeights(ctx context.Context, userID string, fb Feedback, songFeatures map[Feature]float64, songID string) []Adjustment {
	if fb == FeedbackNeutral || fb == FeedbackNone {
		return nil
	}
	delta := feedbackDelta(fb)
	now := time.Now().UTC()

	// Ensure the profile is loaded before taking the write lock.
	wa.GetWeights(ctx, userID)

	wa.mu.Lock()
	profile := wa.profiles[userID]
	adjustments := make([]Adjustment, 0, len(profile))
	for _, f := range Features() {
		x, ok := songFeatures[f]
		if !ok {
			x = 0.5
		}
		old := profile[f]
		change := delta*wa.cfg.LearningRate*x - wa.cfg.Regularization*(old-1.0)
		next := wa.clamp(old + change)
		profile[f] = next
		adjustments = append(adjustments, Adjustment{
			Feature:   f,
			Feedback:  fb,
			OldWeight: old,
			NewWeight: next,
			Delta:     next - old,
			Reason:    "feedback",
			SongID:    songID,
			Timestamp: now,
		})
	}
	snapshot := cloneWeights(profile)
	wa.mu.Unlock()

	wa.persist(ctx, userID, snapshot, adjustments)
	return adjustments
}

// SetWeight explicitly sets one feature weight, clamped to the
// configured bounds. Returns false when the feature name is unknown.
func (wa *WeightAdapter) SetWeight(ctx context.Context, userID string, f Feature, value float64, reason string) bool {
	if !f.Valid() {
		return false
	}

	wa.GetWeights(ctx, userID)

	wa.mu.Lock()
	profile := wa.profiles[userID]
	old := profile[f]
	next := wa.clamp(value)
	profile[f] = next
	snapshot := cloneWeights(profile)
	wa.mu.Unlock()

	adj := Adjustment{
		Feature:   f,
		OldWeight: old,
		NewWeight: next,
		Delta:     next - old,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
	wa.persist(ctx, userID, snapshot, []Adjustment{adj})
	return true
}

// Reset restores the user's profile to defaults.
func (wa *WeightAdapter) Reset(ctx context.Context, userID string) map[Feature]float64 {
	profile := DefaultWeights()

	wa.mu.Lock()
	wa.profiles[userID] = profile
	snapshot := cloneWeights(profile)
	wa.mu.Unlock()

	wa.persist(ctx, userID, snapshot, nil)
	return snapshot
}

// Adjustments returns the most recent recorded adjustments for userID.
func (wa *WeightAdapter) Adjustments(ctx context.Context, userID string, limit int) ([]Adjustment, error) {
	return wa.store.Adjustments(ctx, userID, limit)
}

// persist writes the profile and adjustment records to the store.
// Failures are logged; the cache remains authoritative.
func (wa *WeightAdapter) persist(ctx context.Context, userID string, profile map[Feature]float64, adjustments []Adjustment) {
	if err := wa.store.SaveWeights(ctx, userID, profile); err != nil {
		wa.logger.Warn().Err(err).Str("user_id", userID).
			Msg("Failed to persist weights")
	}
	for _, adj := range adjustments {
		if err := wa.store.AppendAdjustment(ctx, userID, adj); err != nil {
			wa.logger.Warn().Err(err).Str("user_id", userID).
				Str("feature", string(adj.Feature)).
				Msg("Failed to persist weight adjustment")
			return
		}
	}
}

func (wa *WeightAdapter) clamp(w float64) float64 {
	return Clamp(w, wa.cfg.Min, wa.cfg.Max)
}

func cloneWeights(weights map[Feature]float64) map[Feature]float64 {
	out := make(map[Feature]float64, len(weights))
	for f, w := range weights {
		out[f] = w
	}
	return out
}
