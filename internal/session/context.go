// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package session

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/resonata/resonata/internal/recommend"
)

// Turn is one conversational exchange. Turns are immutable once
// created except for feedback, which may be recorded once.
type Turn struct {
	TurnNumber         int                 `json:"turn_number"`
	UserText           string              `json:"user_text"`
	BotText            string              `json:"bot_text"`
	Timestamp          time.Time           `json:"timestamp"`
	DetectedMood       string              `json:"detected_mood,omitempty"`
	Valence            float64             `json:"valence"`
	Arousal            float64             `json:"arousal"`
	Intensity          float64             `json:"intensity"`
	Confidence         float64             `json:"confidence"`
	Entities           map[string][]string `json:"entities,omitempty"`
	RecommendedSongIDs []string            `json:"recommended_song_ids,omitempty"`
	Feedback           recommend.Feedback  `json:"feedback,omitempty"`
}

// TurnInput carries the caller-supplied fields for a new turn.
type TurnInput struct {
	UserText           string
	BotText            string
	DetectedMood       string
	Valence            float64
	Arousal            float64
	Intensity          float64
	Confidence         float64
	Entities           map[string][]string
	RecommendedSongIDs []string
}

// Entity kinds that feed the accumulators.
const (
	entityKindArtist = "artist"
	entityKindGenre  = "genre"
)

// ContextFeatures is the closed set of derived conversation features.
type ContextFeatures struct {
	TurnCount              int      `json:"turn_count"`
	WindowSize             int      `json:"window_size"`
	MoodStability          float64  `json:"mood_stability"`
	AvgConfidence          float64  `json:"avg_confidence"`
	EngagementRate         float64  `json:"engagement_rate"`
	DominantMood           string   `json:"dominant_mood,omitempty"`
	RecentMoods            []string `json:"recent_moods"`
	AccumulatedArtists     []string `json:"accumulated_artists"`
	AccumulatedGenres      []string `json:"accumulated_genres"`
	PositiveFeedback       int      `json:"positive_feedback"`
	NegativeFeedback       int      `json:"negative_feedback"`
	SkipFeedback           int      `json:"skip_feedback"`
	SessionDurationSeconds float64  `json:"session_duration_seconds"`
}

// ContextMemory maintains a sliding window of conversation turns for
// one session and derives scoring features from them.
type ContextMemory struct {
	mu sync.RWMutex

	sessionID  string
	userID     string
	windowSize int
	createdAt  time.Time
	updatedAt  time.Time

	totalTurns int
	turns      []*Turn

	accumulatedArtists map[string]struct{}
	accumulatedGenres  map[string]struct{}
	accumulatedMoods   []string

	// recommendedSongs maps a song ID to the newest turn that
	// recommended it, across the whole session. The window evicts
	// turns but feedback still needs to recognize songs whose turn
	// is gone.
	recommendedSongs map[string]int

	positiveFeedback int
	negativeFeedback int
	skipFeedback     int

	comfortBoost float64

	now func() time.Time
}

// NewContextMemory creates a session memory with the given window
// size (minimum 1).
func NewContextMemory(sessionID, userID string, windowSize int) *ContextMemory {
	if windowSize < 1 {
		windowSize = 1
	}
	now := time.Now().UTC()
	return &ContextMemory{
		sessionID:          sessionID,
		userID:             userID,
		windowSize:         windowSize,
		createdAt:          now,
		updatedAt:          now,
		accumulatedArtists: make(map[string]struct{}),
		accumulatedGenres:  make(map[string]struct{}),
		recommendedSongs:   make(map[string]int),
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// SessionID returns the owning session.
func (cm *ContextMemory) SessionID() string { return cm.sessionID }

// UserID returns the owning user.
func (cm *ContextMemory) UserID() string { return cm.userID }

// UpdatedAt returns the last mutation time.
func (cm *ContextMemory) UpdatedAt() time.Time {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.updatedAt
}

// AddTurn appends a turn, evicting the oldest when the window is full.
// VA inputs are clamped to [-1,1] and intensity/confidence to [0,1].
// Only supplied entities feed the artist/genre accumulators;
// recommended songs do not.
func (cm *ContextMemory) AddTurn(in TurnInput) *Turn {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.totalTurns++
	turn := &Turn{
		TurnNumber:         cm.totalTurns,
		UserText:           in.UserText,
		BotText:            in.BotText,
		Timestamp:          cm.now(),
		DetectedMood:       in.DetectedMood,
		Valence:            recommend.ClampVA(in.Valence),
		Arousal:            recommend.ClampVA(in.Arousal),
		Intensity:          recommend.ClampUnit(in.Intensity),
		Confidence:         recommend.ClampUnit(in.Confidence),
		Entities:           in.Entities,
		RecommendedSongIDs: in.RecommendedSongIDs,
	}

	if len(cm.turns) == cm.windowSize {
		cm.turns = cm.turns[1:]
	}
	cm.turns = append(cm.turns, turn)

	for _, artist := range in.Entities[entityKindArtist] {
		cm.accumulatedArtists[artist] = struct{}{}
	}
	for _, genre := range in.Entities[entityKindGenre] {
		cm.accumulatedGenres[genre] = struct{}{}
	}
	if in.DetectedMood != "" {
		cm.accumulatedMoods = append(cm.accumulatedMoods, in.DetectedMood)
	}
	for _, id := range in.RecommendedSongIDs {
		cm.recommendedSongs[id] = turn.TurnNumber
	}

	cm.updatedAt = turn.Timestamp
	return turn
}

// TurnForSong returns the newest turn number that recommended the
// song, whether or not that turn is still in the window.
func (cm *ContextMemory) TurnForSong(songID string) (int, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	n, ok := cm.recommendedSongs[songID]
	return n, ok
}

// TurnInWindow reports whether the turn is still retained.
func (cm *ContextMemory) TurnInWindow(turnNumber int) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for _, t := range cm.turns {
		if t.TurnNumber == turnNumber {
			return true
		}
	}
	return false
}

// RecordFeedback records feedback on a windowed turn. Returns false
// when the turn is outside the window or already has feedback.
func (cm *ContextMemory) RecordFeedback(turnNumber int, fb recommend.Feedback) bool {
	if !fb.Valid() {
		return false
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	for _, turn := range cm.turns {
		if turn.TurnNumber != turnNumber {
			continue
		}
		if turn.Feedback != recommend.FeedbackNone {
			return false
		}
		turn.Feedback = fb
		switch fb {
		case recommend.FeedbackLove, recommend.FeedbackLike:
			cm.positiveFeedback++
		case recommend.FeedbackDislike:
			cm.negativeFeedback++
		case recommend.FeedbackSkip:
			cm.skipFeedback++
		}
		cm.updatedAt = cm.now()
		return true
	}
	return false
}

// SetComfortBoost records the trajectory-derived comfort boost so it
// flows through the modifiers.
func (cm *ContextMemory) SetComfortBoost(boost float64) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.comfortBoost = boost
}

// Features derives the closed context feature set.
func (cm *ContextMemory) Features() ContextFeatures {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return ContextFeatures{
		TurnCount:              cm.totalTurns,
		WindowSize:             len(cm.turns),
		MoodStability:          cm.moodStability(),
		AvgConfidence:          cm.avgConfidence(),
		EngagementRate:         cm.engagementRate(),
		DominantMood:           cm.dominantMood(),
		RecentMoods:            cm.recentMoods(),
		AccumulatedArtists:     sortedKeys(cm.accumulatedArtists),
		AccumulatedGenres:      sortedKeys(cm.accumulatedGenres),
		PositiveFeedback:       cm.positiveFeedback,
		NegativeFeedback:       cm.negativeFeedback,
		SkipFeedback:           cm.skipFeedback,
		SessionDurationSeconds: cm.now().Sub(cm.createdAt).Seconds(),
	}
}

// Modifiers derives the scoring modifiers handed to the engine.
func (cm *ContextMemory) Modifiers() recommend.ContextModifiers {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	mods := recommend.ContextModifiers{
		MoodStabilityWeight:    1 + 0.3*cm.moodStability(),
		DiversityBoost:         math.Max(0, 0.3-0.3*cm.engagementRate()),
		ArtistFamiliarityBoost: math.Min(0.2, 0.02*float64(len(cm.accumulatedArtists))),
		ComfortMusicBoost:      cm.comfortBoost,
	}
	if cm.positiveFeedback > 5 {
		mods.ExplorationPenalty = -0.1
	}
	return mods
}

// moodStability measures label churn in the last five recorded moods.
// Caller must hold cm.mu.
func (cm *ContextMemory) moodStability() float64 {
	recent := cm.recentMoods()
	if len(recent) == 0 {
		return 0.5
	}
	unique := make(map[string]struct{}, len(recent))
	for _, m := range recent {
		unique[m] = struct{}{}
	}
	return 1 - float64(len(unique)-1)/math.Max(float64(len(recent)), 1)
}

// recentMoods returns up to the five most recent mood labels, oldest
// first. Caller must hold cm.mu.
func (cm *ContextMemory) recentMoods() []string {
	start := len(cm.accumulatedMoods) - 5
	if start < 0 {
		start = 0
	}
	out := make([]string, len(cm.accumulatedMoods)-start)
	copy(out, cm.accumulatedMoods[start:])
	return out
}

// dominantMood is the most frequent mood across the whole session,
// ties broken by most recent occurrence. Caller must hold cm.mu.
func (cm *ContextMemory) dominantMood() string {
	if len(cm.accumulatedMoods) == 0 {
		return ""
	}
	counts := make(map[string]int)
	lastSeen := make(map[string]int)
	for i, m := range cm.accumulatedMoods {
		counts[m]++
		lastSeen[m] = i
	}

	best := ""
	for m, c := range counts {
		if best == "" || c > counts[best] || (c == counts[best] && lastSeen[m] > lastSeen[best]) {
			best = m
		}
	}
	return best
}

// engagementRate is the positive share of recorded feedback, 0.5 when
// none exists. Caller must hold cm.mu.
func (cm *ContextMemory) engagementRate() float64 {
	total := cm.positiveFeedback + cm.negativeFeedback + cm.skipFeedback
	if total == 0 {
		return 0.5
	}
	return float64(cm.positiveFeedback) / float64(total)
}

// avgConfidence averages confidence over windowed turns. Caller must
// hold cm.mu.
func (cm *ContextMemory) avgConfidence() float64 {
	if len(cm.turns) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range cm.turns {
		sum += t.Confidence
	}
	return sum / float64(len(cm.turns))
}

// Turns returns a copy of the windowed turns, oldest first.
func (cm *ContextMemory) Turns() []Turn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	out := make([]Turn, len(cm.turns))
	for i, t := range cm.turns {
		out[i] = *t
	}
	return out
}

// TotalTurns returns the all-time turn count, including evicted turns.
func (cm *ContextMemory) TotalTurns() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.totalTurns
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ContextSnapshot is the serializable form of a ContextMemory.
type ContextSnapshot struct {
	SessionID        string    `json:"session_id"`
	UserID           string    `json:"user_id"`
	WindowSize       int       `json:"window_size"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	TotalTurns       int       `json:"total_turns"`
	Turns            []Turn    `json:"turns"`
	AccumulatedMoods []string  `json:"accumulated_moods"`
	Artists          []string  `json:"accumulated_artists"`
	Genres           []string  `json:"accumulated_genres"`
	PositiveFeedback int       `json:"positive_feedback"`
	NegativeFeedback int       `json:"negative_feedback"`
	SkipFeedback     int       `json:"skip_feedback"`
	ComfortBoost     float64   `json:"comfort_boost"`

	RecommendedSongs map[string]int `json:"recommended_songs,omitempty"`
}

// Snapshot returns a serializable copy of the session state.
func (cm *ContextMemory) Snapshot() ContextSnapshot {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	turns := make([]Turn, len(cm.turns))
	for i, t := range cm.turns {
		turns[i] = *t
	}
	moods := make([]string, len(cm.accumulatedMoods))
	copy(moods, cm.accumulatedMoods)
	songs := make(map[string]int, len(cm.recommendedSongs))
	for id, n := range cm.recommendedSongs {
		songs[id] = n
	}

	return ContextSnapshot{
		SessionID:        cm.sessionID,
		UserID:           cm.userID,
		WindowSize:       cm.windowSize,
		CreatedAt:        cm.createdAt,
		UpdatedAt:        cm.updatedAt,
		TotalTurns:       cm.totalTurns,
		Turns:            turns,
		AccumulatedMoods: moods,
		Artists:          sortedKeys(cm.accumulatedArtists),
		Genres:           sortedKeys(cm.accumulatedGenres),
		PositiveFeedback: cm.positiveFeedback,
		NegativeFeedback: cm.negativeFeedback,
		SkipFeedback:     cm.skipFeedback,
		ComfortBoost:     cm.comfortBoost,
		RecommendedSongs: songs,
	}
}

// ContextFromSnapshot rebuilds a ContextMemory from its serialized
// form.
func ContextFromSnapshot(snap ContextSnapshot) *ContextMemory {
	cm := NewContextMemory(snap.SessionID, snap.UserID, snap.WindowSize)
	cm.createdAt = snap.CreatedAt
	cm.updatedAt = snap.UpdatedAt
	cm.totalTurns = snap.TotalTurns
	cm.turns = make([]*Turn, len(snap.Turns))
	for i := range snap.Turns {
		turn := snap.Turns[i]
		cm.turns[i] = &turn
	}
	cm.accumulatedMoods = append([]string(nil), snap.AccumulatedMoods...)
	for _, a := range snap.Artists {
		cm.accumulatedArtists[a] = struct{}{}
	}
	for _, g := range snap.Genres {
		cm.accumulatedGenres[g] = struct{}{}
	}
	cm.positiveFeedback = snap.PositiveFeedback
	cm.negativeFeedback = snap.NegativeFeedback
	cm.skipFeedback = snap.SkipFeedback
	cm.comfortBoost = snap.ComfortBoost
	for id, n := range snap.RecommendedSongs {
		cm.recommendedSongs[id] = n
	}
	return cm
}
