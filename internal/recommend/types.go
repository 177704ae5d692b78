// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package recommend

import (
	"context"
	"math"
)

// Feedback classifies explicit user reactions to a recommended song.
type Feedback string

const (
	// FeedbackLove is the strongest positive signal.
	FeedbackLove Feedback = "love"
	// FeedbackLike is a positive signal.
	FeedbackLike Feedback = "like"
	// FeedbackNeutral carries no preference signal.
	FeedbackNeutral Feedback = "neutral"
	// FeedbackSkip indicates the song was skipped.
	FeedbackSkip Feedback = "skip"
	// FeedbackDislike is the strongest negative signal.
	FeedbackDislike Feedback = "dislike"
	// FeedbackNone marks a turn without recorded feedback.
	FeedbackNone Feedback = ""
)

// Valid reports whether f is one of the five recordable feedback values.
func (f Feedback) Valid() bool {
	switch f {
	case FeedbackLove, FeedbackLike, FeedbackNeutral, FeedbackSkip, FeedbackDislike:
		return true
	default:
		return false
	}
}

// Positive reports whether f counts toward positive engagement.
func (f Feedback) Positive() bool {
	return f == FeedbackLove || f == FeedbackLike
}

// EngagementBase returns the base engagement reward for a feedback value.
// Unknown values map to the neutral reward.
func (f Feedback) EngagementBase() float64 {
	switch f {
	case FeedbackLove:
		return 1.0
	case FeedbackLike:
		return 0.8
	case FeedbackNeutral:
		return 0.4
	case FeedbackSkip:
		return 0.1
	case FeedbackDislike:
		return 0.0
	default:
		return 0.4
	}
}

// Strategy identifies one of the five scoring emphases selected by the bandit.
// The numeric order is stable and doubles as the tie-break order for sampling.
type Strategy int

const (
	// StrategyEmotion emphasizes emotional resonance and mood match.
	StrategyEmotion Strategy = iota
	// StrategyContent emphasizes valence and energy alignment.
	StrategyContent
	// StrategyCollaborative applies no per-component emphasis.
	StrategyCollaborative
	// StrategyDiversity boosts popularity for low-engagement contexts and
	// disables the artist diversity filter.
	StrategyDiversity
	// StrategyExploration dampens all components and adds a random bonus.
	StrategyExploration

	numStrategies
)

// String returns the wire name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyEmotion:
		return "emotion"
	case StrategyContent:
		return "content"
	case StrategyCollaborative:
		return "collaborative"
	case StrategyDiversity:
		return "diversity"
	case StrategyExploration:
		return "exploration"
	default:
		return "unknown"
	}
}

// Strategies returns all strategies in stable order.
func Strategies() []Strategy {
	return []Strategy{
		StrategyEmotion,
		StrategyContent,
		StrategyCollaborative,
		StrategyDiversity,
		StrategyExploration,
	}
}

// ParseStrategy resolves a wire name to a Strategy.
func ParseStrategy(name string) (Strategy, bool) {
	for _, s := range Strategies() {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// Song is a catalog entry with the audio features the core consumes.
// Valence and Energy share the [-1, 1] VA axes used by the trajectory
// tracker; Popularity is on a 0-100 scale.
type Song struct {
	// ID is the unique song identifier.
	ID string `json:"song_id"`

	// Name is the song title.
	Name string `json:"name"`

	// Artist is the performing artist.
	Artist string `json:"artist"`

	// Genre is an optional genre label.
	Genre string `json:"genre,omitempty"`

	// Mood is an optional mood label. Labels are opaque strings matched by
	// substring containment; a label such as "happy, sad" matches both
	// targets.
	Mood string `json:"mood,omitempty"`

	// Valence is the pleasantness of the song in [-1, 1].
	Valence float64 `json:"valence"`

	// Energy is the activation of the song in [-1, 1].
	Energy float64 `json:"energy"`

	// Tempo is the tempo in BPM.
	Tempo float64 `json:"tempo"`

	// Popularity is a 0-100 popularity score.
	Popularity float64 `json:"popularity"`

	// LikeCount is an optional absolute like counter, defaulting to 0.
	LikeCount int `json:"like_count,omitempty"`
}

// ScoredSong is a song with its recommendation score and explanation.
type ScoredSong struct {
	// Song is the catalog entry.
	Song `json:"song"`

	// Score is the final recommendation score in [0, 1].
	Score float64 `json:"score"`

	// Components is the per-feature score breakdown after modifiers.
	Components map[Feature]float64 `json:"components,omitempty"`

	// Explanation is a single human-readable sentence.
	Explanation string `json:"explanation,omitempty"`
}

// CatalogProvider is the read contract against the song catalog.
// Implementations live outside the core; the core never holds a lock
// across a catalog call.
type CatalogProvider interface {
	// FetchCandidates returns approximately approxLimit candidate songs.
	// When targetMood is non-empty the result contains songs whose mood
	// label matches the target or is empty; otherwise a sample of the
	// catalog is returned.
	FetchCandidates(ctx context.Context, targetMood string, approxLimit int) ([]Song, error)
}

// VAPosition is a point in valence-arousal space.
type VAPosition struct {
	Valence float64 `json:"valence"`
	Arousal float64 `json:"arousal"`
}

// moodCentroids is the canonical VA map for mood labels. The values are part
// of the external contract: they govern comfort-boost triggering and
// nearest-mood mapping and must not drift.
var moodCentroids = []struct {
	mood string
	pos  VAPosition
}{
	{"happy", VAPosition{0.8, 0.6}},
	{"sad", VAPosition{-0.7, -0.3}},
	{"angry", VAPosition{-0.6, 0.8}},
	{"calm", VAPosition{0.5, -0.5}},
	{"excited", VAPosition{0.7, 0.9}},
	{"romantic", VAPosition{0.6, 0.2}},
	{"nostalgic", VAPosition{0.1, -0.2}},
	{"energetic", VAPosition{0.5, 0.9}},
	{"anxious", VAPosition{-0.4, 0.7}},
	{"peaceful", VAPosition{0.6, -0.6}},
	{"melancholic", VAPosition{-0.5, -0.4}},
	{"neutral", VAPosition{0.0, 0.0}},
}

// MoodCentroid returns the canonical VA position for a mood label.
func MoodCentroid(mood string) (VAPosition, bool) {
	for _, c := range moodCentroids {
		if c.mood == mood {
			return c.pos, true
		}
	}
	return VAPosition{}, false
}

// KnownMoods returns the mood labels of the canonical centroid table.
func KnownMoods() []string {
	moods := make([]string, len(moodCentroids))
	for i, c := range moodCentroids {
		moods[i] = c.mood
	}
	return moods
}

// NearestMood returns the mood label whose centroid has the minimum Euclidean
// distance to the given VA position. Ties resolve to the earlier table entry.
func NearestMood(pos VAPosition) string {
	best := moodCentroids[0].mood
	bestDist := math.Inf(1)
	for _, c := range moodCentroids {
		d := VADistance(pos, c.pos)
		if d < bestDist {
			bestDist = d
			best = c.mood
		}
	}
	return best
}

// VADistance is the Euclidean distance between two VA positions.
func VADistance(a, b VAPosition) float64 {
	dv := a.Valence - b.Valence
	da := a.Arousal - b.Arousal
	return math.Sqrt(dv*dv + da*da)
}

// ClampVA clamps a valence or arousal value to [-1, 1].
func ClampVA(v float64) float64 {
	return Clamp(v, -1, 1)
}

// ClampUnit clamps a value to [0, 1].
func ClampUnit(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
