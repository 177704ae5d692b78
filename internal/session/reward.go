// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package session

import (
	"math"
	"sync"
	"time"

	"github.com/resonata/resonata/internal/recommend"
)

// Reward composition weights.
const (
	engagementWeight   = 0.40
	satisfactionWeight = 0.30
	emotionalWeight    = 0.30
)

// RewardEvent kinds.
const (
	RewardKindFeedback  = "feedback"
	RewardKindEmotional = "emotional"
)

// RewardEvent is one append-only record contributing to the session
// reward.
type RewardEvent struct {
	Timestamp     time.Time          `json:"timestamp"`
	Kind          string             `json:"kind"`
	SongID        string             `json:"song_id,omitempty"`
	RawValue      float64            `json:"raw_value"`
	WeightedValue float64            `json:"weighted_value"`
	Metadata      map[string]float64 `json:"metadata,omitempty"`
}

// RewardTracker turns observable session events into a bounded
// composite reward for bandit updates.
type RewardTracker struct {
	mu sync.RWMutex

	sessionID string

	engagementSum   float64
	engagementCount int

	satisfactionSum   float64
	satisfactionCount int

	emotionalImprovement float64
	hasEmotionalSample   bool

	fullListens    int
	partialListens int

	initialValence *float64
	currentValence float64

	events []RewardEvent

	now func() time.Time
}

// NewRewardTracker creates a reward tracker for one session.
func NewRewardTracker(sessionID string) *RewardTracker {
	return &RewardTracker{
		sessionID: sessionID,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SessionID returns the owning session.
func (rt *RewardTracker) SessionID() string { return rt.sessionID }

// RecordFeedback folds a feedback event into the engagement and
// satisfaction averages. listenPct may arrive on a [0,1] or [0,100]
// scale; values above 1 are treated as percentages.
func (rt *RewardTracker) RecordFeedback(songID string, fb recommend.Feedback, listenPct, recommendationScore float64) {
	if listenPct > 1 {
		listenPct /= 100
	}
	listenPct = recommend.ClampUnit(listenPct)
	recommendationScore = recommend.ClampUnit(recommendationScore)

	listenBonus := 0.0
	switch {
	case listenPct >= 0.8:
		listenBonus = 0.2
	case listenPct >= 0.3:
		listenBonus = 0.1
	}

	engagement := math.Min(1, fb.EngagementBase()+listenBonus)

	var satisfaction float64
	switch fb {
	case recommend.FeedbackLove, recommend.FeedbackLike:
		satisfaction = recommendationScore
	case recommend.FeedbackNeutral:
		satisfaction = 0.5
	default:
		satisfaction = 1 - recommendationScore
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if listenPct >= 0.8 {
		rt.fullListens++
	} else if listenPct >= 0.3 {
		rt.partialListens++
	}

	rt.engagementSum += engagement
	rt.engagementCount++
	rt.satisfactionSum += satisfaction
	rt.satisfactionCount++

	rt.events = append(rt.events, RewardEvent{
		Timestamp:     rt.now(),
		Kind:          RewardKindFeedback,
		SongID:        songID,
		RawValue:      fb.EngagementBase(),
		WeightedValue: engagement,
		Metadata: map[string]float64{
			"listen_pct":   listenPct,
			"satisfaction": satisfaction,
		},
	})
}

// UpdateEmotionalState recomputes the emotional-improvement component
// from the valence delta since the session started, plus a trend
// bonus. The value replaces the previous one rather than accumulating.
func (rt *RewardTracker) UpdateEmotionalState(valence, arousal float64, trend Trend) {
	valence = recommend.ClampVA(valence)

	rt.mu.Lock()
	defer rt.mu.Unlock()

	first := rt.initialValence == nil
	if first {
		v := valence
		rt.initialValence = &v
	}
	rt.currentValence = valence

	raw := valence - *rt.initialValence
	normalized := recommend.ClampUnit((raw + 2) / 4)

	trendBonus := 0.0
	switch trend {
	case TrendImproving:
		trendBonus = 0.15
	case TrendStable:
		trendBonus = 0.05
	case TrendDeclining:
		trendBonus = -0.1
	}

	rt.emotionalImprovement = recommend.ClampUnit(normalized + trendBonus)
	rt.hasEmotionalSample = true

	// The raw delta is always 0 on the first call; it is reported for
	// observability but never drives the reward on its own.
	rt.events = append(rt.events, RewardEvent{
		Timestamp:     rt.now(),
		Kind:          RewardKindEmotional,
		RawValue:      raw,
		WeightedValue: rt.emotionalImprovement,
		Metadata: map[string]float64{
			"normalized_improvement": normalized,
			"trend_bonus":            trendBonus,
			"arousal":                recommend.ClampVA(arousal),
		},
	})
}

// SessionReward computes the composite reward from running averages;
// components without samples default to 0.5.
func (rt *RewardTracker) SessionReward() float64 {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.sessionRewardLocked()
}

func (rt *RewardTracker) sessionRewardLocked() float64 {
	engagement := 0.5
	if rt.engagementCount > 0 {
		engagement = rt.engagementSum / float64(rt.engagementCount)
	}
	satisfaction := 0.5
	if rt.satisfactionCount > 0 {
		satisfaction = rt.satisfactionSum / float64(rt.satisfactionCount)
	}
	emotional := 0.5
	if rt.hasEmotionalSample {
		emotional = rt.emotionalImprovement
	}
	return engagementWeight*engagement + satisfactionWeight*satisfaction + emotionalWeight*emotional
}

// BanditReward discretizes the session reward into the three-tier
// signal the bandit consumes.
func (rt *RewardTracker) BanditReward() float64 {
	r := rt.SessionReward()
	switch {
	case r >= 0.6:
		return 1.0
	case r >= 0.4:
		return 0.5
	default:
		return 0.0
	}
}

// Components reports the current running averages.
func (rt *RewardTracker) Components() (engagement, satisfaction, emotional float64) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	engagement, satisfaction, emotional = 0.5, 0.5, 0.5
	if rt.engagementCount > 0 {
		engagement = rt.engagementSum / float64(rt.engagementCount)
	}
	if rt.satisfactionCount > 0 {
		satisfaction = rt.satisfactionSum / float64(rt.satisfactionCount)
	}
	if rt.hasEmotionalSample {
		emotional = rt.emotionalImprovement
	}
	return engagement, satisfaction, emotional
}

// RewardSnapshot is the serializable form of a RewardTracker.
type RewardSnapshot struct {
	SessionID            string        `json:"session_id"`
	EngagementSum        float64       `json:"engagement_sum"`
	EngagementCount      int           `json:"engagement_count"`
	SatisfactionSum      float64       `json:"satisfaction_sum"`
	SatisfactionCount    int           `json:"satisfaction_count"`
	EmotionalImprovement float64       `json:"emotional_improvement"`
	HasEmotionalSample   bool          `json:"has_emotional_sample"`
	FullListens          int           `json:"full_listens"`
	PartialListens       int           `json:"partial_listens"`
	InitialValence       *float64      `json:"initial_valence,omitempty"`
	CurrentValence       float64       `json:"current_valence"`
	Events               []RewardEvent `json:"events"`
}

// Snapshot returns a serializable copy of the tracker state.
func (rt *RewardTracker) Snapshot() RewardSnapshot {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	events := make([]RewardEvent, len(rt.events))
	copy(events, rt.events)

	var initial *float64
	if rt.initialValence != nil {
		v := *rt.initialValence
		initial = &v
	}

	return RewardSnapshot{
		SessionID:            rt.sessionID,
		EngagementSum:        rt.engagementSum,
		EngagementCount:      rt.engagementCount,
		SatisfactionSum:      rt.satisfactionSum,
		SatisfactionCount:    rt.satisfactionCount,
		EmotionalImprovement: rt.emotionalImprovement,
		HasEmotionalSample:   rt.hasEmotionalSample,
		FullListens:          rt.fullListens,
		PartialListens:       rt.partialListens,
		InitialValence:       initial,
		CurrentValence:       rt.currentValence,
		Events:               events,
	}
}

// RewardFromSnapshot rebuilds a RewardTracker from its serialized
// form.
func RewardFromSnapshot(snap RewardSnapshot) *RewardTracker {
	rt := NewRewardTracker(snap.SessionID)
	rt.engagementSum = snap.EngagementSum
	rt.engagementCount = snap.EngagementCount
	rt.satisfactionSum = snap.SatisfactionSum
	rt.satisfactionCount = snap.SatisfactionCount
	rt.emotionalImprovement = snap.EmotionalImprovement
	rt.hasEmotionalSample = snap.HasEmotionalSample
	rt.fullListens = snap.FullListens
	rt.partialListens = snap.PartialListens
	if snap.InitialValence != nil {
		v := *snap.InitialValence
		rt.initialValence = &v
	}
	rt.currentValence = snap.CurrentValence
	rt.events = append([]RewardEvent(nil), snap.Events...)
	return rt
}
