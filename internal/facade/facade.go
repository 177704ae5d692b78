// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

// Package facade is the request/response surface of the
// recommendation core. It owns cross-component flow: the session
// stores, trajectory tracker, reward calculator, weight adapter,
// bandit, and scoring engine never reference each other; the facade
// threads values (valence, arousal, trend, reward) between them and
// translates internal failures into a stable error taxonomy.
package facade

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/resonata/resonata/internal/metrics"
	"github.com/resonata/resonata/internal/recommend"
	"github.com/resonata/resonata/internal/session"
	"github.com/resonata/resonata/internal/validation"
)

// StrategyNone is reported when a failed request produced no
// recommendations.
const StrategyNone = "none"

// lastStrategy remembers which strategy served a user's most recent
// recommendation so that later feedback can credit the right bandit
// arm.
type lastStrategy struct {
	name      string
	arm       recommend.Strategy
	banditArm bool
}

// Facade exposes the five core operations.
type Facade struct {
	reg    *Registry
	logger zerolog.Logger

	requestCount atomic.Int64
	errorCount   atomic.Int64

	mu           sync.Mutex
	strategies   map[string]lastStrategy
	userSessions map[string]string
}

// FacadeMetrics is a point-in-time operational snapshot.
type FacadeMetrics struct {
	RequestCount   int64 `json:"request_count"`
	ErrorCount     int64 `json:"error_count"`
	ActiveSessions int   `json:"active_sessions"`
}

// Metrics returns the current operational counters.
func (f *Facade) Metrics() FacadeMetrics {
	return FacadeMetrics{
		RequestCount:   f.requestCount.Load(),
		ErrorCount:     f.errorCount.Load(),
		ActiveSessions: f.reg.Sessions.Len(),
	}
}

// New creates a facade over a wired registry.
func New(reg *Registry) *Facade {
	return &Facade{
		reg:          reg,
		logger:       reg.Logger.With().Str("component", "facade").Logger(),
		strategies:   make(map[string]lastStrategy),
		userSessions: make(map[string]string),
	}
}

// ContinueConversationRequest is the input for one conversation turn.
type ContinueConversationRequest struct {
	SessionID              string `json:"session_id" validate:"omitempty,uuid"`
	UserID                 string `json:"user_id" validate:"required"`
	Message                string `json:"message" validate:"required,min=1,max=1000"`
	InputType              string `json:"input_type" validate:"omitempty,oneof=text chip"`
	IncludeRecommendations *bool  `json:"include_recommendations"`
	MaxRecommendations     int    `json:"max_recommendations" validate:"omitempty,min=1,max=50"`
	EmotionalSupportMode   bool   `json:"emotional_support_mode"`
}

// ContinueConversationResponse is the output of one conversation
// turn.
type ContinueConversationResponse struct {
	SessionID       string                 `json:"session_id"`
	TurnNumber      int                    `json:"turn_number"`
	BotResponse     string                 `json:"bot_response"`
	DetectedMood    string                 `json:"detected_mood,omitempty"`
	EmotionalTrend  string                 `json:"emotional_trend"`
	ClarityScore    float64                `json:"clarity_score"`
	ShouldRecommend bool                   `json:"should_recommend"`
	Recommendations []recommend.ScoredSong `json:"recommendations"`
	ContextEntities map[string][]string    `json:"context_entities"`
}

// ContinueConversation processes one user message: analyzes mood,
// updates the emotional trajectory and session reward state, appends
// a turn, and optionally attaches recommendations. Conversational
// replies always succeed even when recommendation fails.
func (f *Facade) ContinueConversation(ctx context.Context, req *ContinueConversationRequest) (*ContinueConversationResponse, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, WrapError(CodeValidation, verr, "invalid conversation request")
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	cm := f.reg.Sessions.GetOrCreate(sessionID, req.UserID)
	f.rememberSession(req.UserID, sessionID)

	analysis, err := f.reg.Analyzer.Analyze(ctx, req.Message)
	if err != nil {
		// The conversational reply must not fail on analyzer
		// trouble; degrade to a generic prompt.
		f.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Message analysis failed, using fallback")
		analysis = Analysis{
			Response:     "Tell me a bit more about your mood and I'll find something that fits.",
			Confidence:   0.2,
			ClarityScore: 0.2,
			Entities:     map[string][]string{},
		}
	}

	traj := f.reg.Trajectories.GetOrCreate(req.UserID)
	if analysis.Mood != "" {
		point := traj.AddPoint(analysis.Valence, analysis.Arousal, cm.TotalTurns()+1, analysis.Mood)
		rt := f.reg.Rewards.GetOrCreate(sessionID)
		rt.UpdateEmotionalState(point.Valence, point.Arousal, traj.Trend())
	}
	if req.EmotionalSupportMode || traj.Trend() == session.TrendDeclining {
		cm.SetComfortBoost(traj.ComfortMusicBoost())
	}

	includeRecs := req.IncludeRecommendations == nil || *req.IncludeRecommendations
	shouldRecommend := analysis.ShouldRecommend && includeRecs

	var recs []recommend.ScoredSong
	if shouldRecommend {
		limit := req.MaxRecommendations
		if limit <= 0 {
			limit = f.reg.Config.Limits.DefaultLimit
		}
		adaptiveResp, aerr := f.Adaptive(ctx, &AdaptiveRequest{
			UserID: req.UserID,
			Mood:   analysis.Mood,
			Limit:  limit,
		})
		if aerr != nil {
			// Empty recommendations are a valid conversational
			// outcome.
			f.logger.Warn().Err(aerr).Str("user_id", req.UserID).Msg("Recommendation failed during conversation")
		} else {
			recs = adaptiveResp.Recommendations
		}
	}

	songIDs := make([]string, 0, len(recs))
	for _, s := range recs {
		songIDs = append(songIDs, s.ID)
	}

	turn := cm.AddTurn(session.TurnInput{
		UserText:           req.Message,
		BotText:            analysis.Response,
		DetectedMood:       analysis.Mood,
		Valence:            analysis.Valence,
		Arousal:            analysis.Arousal,
		Intensity:          analysis.Intensity,
		Confidence:         analysis.Confidence,
		Entities:           analysis.Entities,
		RecommendedSongIDs: songIDs,
	})
	metrics.ConversationTurns.Inc()
	metrics.SessionsActive.Set(float64(f.reg.Sessions.Len()))

	features := cm.Features()
	entities := map[string][]string{
		"artists": features.AccumulatedArtists,
		"genres":  features.AccumulatedGenres,
	}

	if recs == nil {
		recs = []recommend.ScoredSong{}
	}
	return &ContinueConversationResponse{
		SessionID:       sessionID,
		TurnNumber:      turn.TurnNumber,
		BotResponse:     analysis.Response,
		DetectedMood:    analysis.Mood,
		EmotionalTrend:  string(traj.Trend()),
		ClarityScore:    analysis.ClarityScore,
		ShouldRecommend: shouldRecommend,
		Recommendations: recs,
		ContextEntities: entities,
	}, nil
}

// AdaptiveRequest is the input for an adaptive recommendation.
type AdaptiveRequest struct {
	UserID                 string   `json:"user_id" validate:"required"`
	Mood                   string   `json:"mood" validate:"omitempty,mood"`
	Valence                *float64 `json:"valence" validate:"omitempty,gte=-1,lte=1"`
	Arousal                *float64 `json:"arousal" validate:"omitempty,gte=-1,lte=1"`
	EnergyLevel            *float64 `json:"energy_level" validate:"omitempty,gte=0,lte=1"`
	Limit                  int      `json:"limit" validate:"omitempty,min=1,max=50"`
	UseContextMemory       *bool    `json:"use_context_memory"`
	UseEmotionalTrajectory *bool    `json:"use_emotional_trajectory"`
	ApplyColdStart         *bool    `json:"apply_cold_start"`
	IncludeExplanations    *bool    `json:"include_explanations"`
	ExplanationVerbosity   string   `json:"explanation_verbosity" validate:"omitempty,oneof=brief detailed"`
	DiversityFactor        *float64 `json:"diversity_factor" validate:"omitempty,gte=0,lte=1"`
}

func boolOrTrue(p *bool) bool { return p == nil || *p }

// AdaptiveResponse is the output of an adaptive recommendation.
type AdaptiveResponse struct {
	Recommendations       []recommend.ScoredSong `json:"recommendations"`
	StrategyUsed          string                 `json:"strategy_used"`
	PersonalizationWeight float64                `json:"personalization_weight"`
	ColdStartActive       bool                   `json:"cold_start_active"`
	DiversityApplied      bool                   `json:"diversity_applied"`
	ProcessingTimeMS      float64                `json:"processing_time_ms"`
}

// Adaptive produces recommendations blending cold-start and
// personalized strategies according to the user's feedback history.
// On upstream failure it returns a degraded response alongside the
// error: empty list, strategy "none", and no bandit or weight
// updates.
func (f *Facade) Adaptive(ctx context.Context, req *AdaptiveRequest) (*AdaptiveResponse, error) {
	f.requestCount.Add(1)
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, WrapError(CodeValidation, verr, "invalid recommendation request")
	}
	start := time.Now()

	limit := req.Limit
	if limit <= 0 {
		limit = f.reg.Config.Limits.DefaultLimit
	}
	if limit > f.reg.Config.Limits.MaxLimit {
		limit = f.reg.Config.Limits.MaxLimit
	}

	pw := 1.0
	if boolOrTrue(req.ApplyColdStart) {
		count, err := f.reg.WeightStore.FeedbackCount(ctx, req.UserID)
		if err != nil {
			return f.degraded(start, false), WrapError(CodeUpstreamError, err, "feedback count lookup failed")
		}
		pw = f.reg.ColdStart.PersonalizationWeight(count)
	}
	coldActive := pw < 1

	mood, targetValence, targetArousal := f.resolveTarget(req)

	modifiers := recommend.DefaultModifiers()
	if boolOrTrue(req.UseContextMemory) {
		if cm, ok := f.sessionFor(req.UserID); ok {
			modifiers = cm.Modifiers()
		}
	}
	if boolOrTrue(req.UseEmotionalTrajectory) {
		if traj, ok := f.reg.Trajectories.Get(req.UserID); ok {
			if boost := traj.ComfortMusicBoost(); boost > modifiers.ComfortMusicBoost {
				modifiers.ComfortMusicBoost = boost
			}
		}
	}
	if req.DiversityFactor != nil {
		modifiers.DiversityBoost = *req.DiversityFactor
	}

	var (
		personal *recommend.ScoreResult
		cold     []recommend.ScoredSong
		coldName string
	)

	if pw > 0 {
		result, err := f.reg.Engine.ScoreSongs(ctx, recommend.ScoreRequest{
			UserID:        req.UserID,
			TargetMood:    mood,
			TargetValence: targetValence,
			TargetArousal: targetArousal,
			Modifiers:     modifiers,
			Limit:         limit,
		})
		if err != nil {
			return f.degraded(start, coldActive), upstreamError(err, "scoring failed")
		}
		personal = result
	}
	if pw < 1 {
		songs, name, err := f.reg.ColdStart.Recommend(ctx, mood, limit)
		if err != nil {
			return f.degraded(start, coldActive), upstreamError(err, "cold start recommendation failed")
		}
		cold, coldName = songs, name
	}

	var songs []recommend.ScoredSong
	var strategyUsed string
	var diversityApplied bool
	switch {
	case pw <= 0:
		songs = cold
		strategyUsed = coldName
		diversityApplied = coldName == recommend.StrategyNameColdStartHybrid
		metrics.ColdStartRequests.WithLabelValues(coldName).Inc()
		f.recordStrategy(req.UserID, lastStrategy{name: coldName})
	case pw >= 1:
		songs = personal.Songs
		strategyUsed = personal.StrategyUsed.String()
		diversityApplied = personal.StrategyUsed != recommend.StrategyDiversity
		f.recordStrategy(req.UserID, lastStrategy{name: strategyUsed, arm: personal.StrategyUsed, banditArm: true})
	default:
		songs, _ = f.reg.Transition.Blend(cold, personal.Songs, limit, pw)
		strategyUsed = personal.StrategyUsed.String()
		diversityApplied = personal.StrategyUsed != recommend.StrategyDiversity
		metrics.ColdStartRequests.WithLabelValues(coldName).Inc()
		f.recordStrategy(req.UserID, lastStrategy{name: strategyUsed, arm: personal.StrategyUsed, banditArm: true})
	}

	if req.IncludeExplanations != nil && !*req.IncludeExplanations {
		for i := range songs {
			songs[i].Explanation = ""
		}
	}

	if songs == nil {
		songs = []recommend.ScoredSong{}
	}
	elapsed := time.Since(start)
	metrics.RecordRecommendation(strategyUsed, coldActive, len(songs), elapsed)
	if pw > 0 {
		rewards := make(map[string]float64)
		for s, r := range f.reg.Bandit.ExpectedRewards(req.UserID) {
			rewards[s.String()] = r
		}
		metrics.RecordBanditSample(strategyUsed, rewards)
	}

	return &AdaptiveResponse{
		Recommendations:       songs,
		StrategyUsed:          strategyUsed,
		PersonalizationWeight: pw,
		ColdStartActive:       coldActive,
		DiversityApplied:      diversityApplied,
		ProcessingTimeMS:      float64(elapsed.Microseconds()) / 1000.0,
	}, nil
}

// resolveTarget derives the target mood and valence/arousal position
// from the request, falling back to the user's emotional trajectory.
func (f *Facade) resolveTarget(req *AdaptiveRequest) (mood string, valence, arousal float64) {
	mood = req.Mood
	traj, hasTraj := f.reg.Trajectories.Get(req.UserID)
	if mood == "" && boolOrTrue(req.UseEmotionalTrajectory) && hasTraj {
		mood = traj.NearestMoodToCurrent()
	}

	if pos, ok := recommend.MoodCentroid(mood); ok {
		valence, arousal = pos.Valence, pos.Arousal
	} else if hasTraj {
		if pos, ok := traj.PredictNextPosition(); ok {
			valence, arousal = pos.Valence, pos.Arousal
		}
	}
	if req.Valence != nil {
		valence = *req.Valence
	}
	if req.Arousal != nil {
		arousal = *req.Arousal
	} else if req.EnergyLevel != nil {
		arousal = 2**req.EnergyLevel - 1
	}
	if hasTraj {
		arousal = recommend.ClampVA(arousal + traj.EnergyAdjustment())
	}
	return mood, valence, arousal
}

func (f *Facade) degraded(start time.Time, coldActive bool) *AdaptiveResponse {
	f.errorCount.Add(1)
	return &AdaptiveResponse{
		Recommendations:  []recommend.ScoredSong{},
		StrategyUsed:     StrategyNone,
		ColdStartActive:  coldActive,
		ProcessingTimeMS: float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

func upstreamError(err error, msg string) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return WrapError(CodeUpstreamTimeout, err, "%s", msg)
	}
	return WrapError(CodeUpstreamError, err, "%s", msg)
}

// LearnWeightsRequest is the input for a weight adjustment.
type LearnWeightsRequest struct {
	UserID          string             `json:"user_id" validate:"required"`
	AdjustmentType  string             `json:"adjustment_type" validate:"required,oneof=feedback explicit reset"`
	FeedbackType    string             `json:"feedback_type" validate:"omitempty,feedback"`
	SongID          string             `json:"song_id"`
	SongFeatures    map[string]float64 `json:"song_features"`
	ExplicitWeights map[string]float64 `json:"explicit_weights"`
}

// LearnWeightsResponse is the output of a weight adjustment.
type LearnWeightsResponse struct {
	Success             bool                          `json:"success"`
	UpdatedWeights      map[recommend.Feature]float64 `json:"updated_weights"`
	AdjustmentMagnitude float64                       `json:"adjustment_magnitude"`
}

// LearnWeights applies a feedback-driven, explicit, or reset weight
// adjustment. Reset always succeeds. Unknown feature names and
// out-of-bound explicit weights are validation errors.
func (f *Facade) LearnWeights(ctx context.Context, req *LearnWeightsRequest) (*LearnWeightsResponse, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, WrapError(CodeValidation, verr, "invalid weights request")
	}

	switch req.AdjustmentType {
	case "feedback":
		fb := recommend.Feedback(req.FeedbackType)
		if !fb.Valid() {
			return nil, NewError(CodeValidation, "feedback_type is required for feedback adjustments")
		}
		features, err := parseFeatureMap(req.SongFeatures)
		if err != nil {
			return nil, err
		}
		adjustments := f.reg.Weights.AdjustWeights(ctx, req.UserID, fb, features, req.SongID)
		magnitude := 0.0
		for _, adj := range adjustments {
			magnitude += absFloat(adj.Delta)
		}
		metrics.WeightAdjustments.WithLabelValues("feedback").Add(float64(len(adjustments)))
		return &LearnWeightsResponse{
			Success:             true,
			UpdatedWeights:      f.reg.Weights.GetWeights(ctx, req.UserID),
			AdjustmentMagnitude: magnitude,
		}, nil

	case "explicit":
		if len(req.ExplicitWeights) == 0 {
			return nil, NewError(CodeValidation, "explicit_weights is required for explicit adjustments")
		}
		cfg := f.reg.Config.Weights
		// Validate the whole batch before applying any of it.
		for name, value := range req.ExplicitWeights {
			if !recommend.Feature(name).Valid() {
				return nil, NewError(CodeValidation, "unknown feature %q", name)
			}
			if value < cfg.Min || value > cfg.Max {
				return nil, NewError(CodeValidation, "weight for %q must be in [%g, %g], got %g", name, cfg.Min, cfg.Max, value)
			}
		}
		before := f.reg.Weights.GetWeights(ctx, req.UserID)
		magnitude := 0.0
		for name, value := range req.ExplicitWeights {
			feature := recommend.Feature(name)
			f.reg.Weights.SetWeight(ctx, req.UserID, feature, value, "explicit")
			magnitude += absFloat(value - before[feature])
		}
		metrics.WeightAdjustments.WithLabelValues("explicit").Add(float64(len(req.ExplicitWeights)))
		return &LearnWeightsResponse{
			Success:             true,
			UpdatedWeights:      f.reg.Weights.GetWeights(ctx, req.UserID),
			AdjustmentMagnitude: magnitude,
		}, nil

	case "reset":
		before := f.reg.Weights.GetWeights(ctx, req.UserID)
		after := f.reg.Weights.Reset(ctx, req.UserID)
		magnitude := 0.0
		for feature, w := range after {
			magnitude += absFloat(w - before[feature])
		}
		metrics.WeightAdjustments.WithLabelValues("reset").Inc()
		return &LearnWeightsResponse{
			Success:             true,
			UpdatedWeights:      after,
			AdjustmentMagnitude: magnitude,
		}, nil
	}

	return nil, NewError(CodeValidation, "unknown adjustment_type %q", req.AdjustmentType)
}

func parseFeatureMap(raw map[string]float64) (map[recommend.Feature]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[recommend.Feature]float64, len(raw))
	for name, value := range raw {
		feature := recommend.Feature(name)
		if !feature.Valid() {
			return nil, NewError(CodeValidation, "unknown feature %q", name)
		}
		out[feature] = recommend.ClampUnit(value)
	}
	return out, nil
}

// RecordRewardRequest is the input for a feedback reward event.
type RecordRewardRequest struct {
	UserID              string   `json:"user_id" validate:"required"`
	SessionID           string   `json:"session_id" validate:"omitempty,uuid"`
	SongID              string   `json:"song_id" validate:"required"`
	FeedbackType        string   `json:"feedback_type" validate:"required,feedback"`
	PlayDurationSeconds float64  `json:"play_duration_seconds" validate:"gte=0"`
	SongDurationSeconds float64  `json:"song_duration_seconds" validate:"gte=0"`
	RecommendationScore *float64 `json:"recommendation_score" validate:"omitempty,gte=0,lte=1"`
}

// RecordRewardResponse is the output of a feedback reward event.
type RecordRewardResponse struct {
	Success              bool    `json:"success"`
	Reason               string  `json:"reason,omitempty"`
	EngagementScore      float64 `json:"engagement_score"`
	SatisfactionScore    float64 `json:"satisfaction_score"`
	EmotionalImprovement float64 `json:"emotional_improvement"`
	TotalReward          float64 `json:"total_reward"`
}

// RecordReward processes feedback on a recommended song: it updates
// the session reward, adjusts the user's weights, credits the bandit
// arm that served the recommendation, and bumps the feedback count
// driving cold-start transition.
func (f *Facade) RecordReward(ctx context.Context, req *RecordRewardRequest) (*RecordRewardResponse, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, WrapError(CodeValidation, verr, "invalid reward request")
	}
	fb := recommend.Feedback(req.FeedbackType)

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = f.sessionIDFor(req.UserID)
	}
	if sessionID == "" {
		// No conversation yet; rewards still accrue under a
		// user-scoped tracker.
		sessionID = "user:" + req.UserID
	}

	listenPct := 0.0
	if req.SongDurationSeconds > 0 {
		listenPct = req.PlayDurationSeconds / req.SongDurationSeconds
	}
	recScore := 0.5
	if req.RecommendationScore != nil {
		recScore = *req.RecommendationScore
	}

	// Resolve the recommending turn up front: feedback on a song
	// whose turn fell out of the window is a failed request, and
	// failed requests never update rewards, weights, or the bandit.
	windowTurn := 0
	cm, haveSession := f.reg.Sessions.Get(sessionID)
	if haveSession {
		if turnNumber, known := cm.TurnForSong(req.SongID); known {
			if !cm.TurnInWindow(turnNumber) {
				return &RecordRewardResponse{
					Success: false,
					Reason:  "recommending turn is no longer in the context window",
				}, nil
			}
			windowTurn = turnNumber
		}
	}

	rt := f.reg.Rewards.GetOrCreate(sessionID)
	rt.RecordFeedback(req.SongID, fb, listenPct, recScore)
	engagement, satisfaction, emotional := rt.Components()

	f.reg.Weights.AdjustWeights(ctx, req.UserID, fb, nil, req.SongID)

	if last, ok := f.strategyFor(req.UserID); ok && last.banditArm {
		f.reg.Bandit.Update(req.UserID, last.arm, rt.BanditReward())
		metrics.BanditUpdates.Inc()
	}

	if _, err := f.reg.WeightStore.IncrementFeedbackCount(ctx, req.UserID); err != nil {
		f.logger.Warn().Err(err).Str("user_id", req.UserID).Msg("Failed to increment feedback count")
	}

	// Feedback on a turn inside the context window also feeds the
	// session's engagement counters.
	success := true
	reason := ""
	if windowTurn > 0 {
		if !cm.RecordFeedback(windowTurn, fb) {
			success = false
			reason = "turn already has feedback"
		}
	}

	total := rt.SessionReward()
	metrics.RecordFeedback(string(fb), total)

	return &RecordRewardResponse{
		Success:              success,
		Reason:               reason,
		EngagementScore:      engagement,
		SatisfactionScore:    satisfaction,
		EmotionalImprovement: emotional,
		TotalReward:          total,
	}, nil
}

// ColdStartStatus summarizes where a user sits in the cold-start
// transition.
type ColdStartStatus struct {
	Active                bool    `json:"active"`
	FeedbackCount         int     `json:"feedback_count"`
	PersonalizationWeight float64 `json:"personalization_weight"`
}

// SessionStatusResponse aggregates a user's live state. Unknown users
// yield empty structures rather than an error.
type SessionStatusResponse struct {
	UserID                 string                        `json:"user_id"`
	ContextMemory          *session.ContextFeatures      `json:"context_memory,omitempty"`
	EmotionalTrajectory    *session.TrajectorySnapshot   `json:"emotional_trajectory,omitempty"`
	SessionRewards         *session.RewardSnapshot       `json:"session_rewards,omitempty"`
	PersonalizationWeights map[recommend.Feature]float64 `json:"personalization_weights"`
	ColdStartStatus        ColdStartStatus               `json:"cold_start_status"`
}

// SessionStatus reports a user's conversation, trajectory, reward,
// and learning state. Callers may only inspect their own state.
func (f *Facade) SessionStatus(ctx context.Context, callerID, userID string) (*SessionStatusResponse, error) {
	if userID == "" {
		return nil, NewError(CodeValidation, "user_id is required")
	}
	if callerID != userID {
		return nil, NewError(CodeForbidden, "caller %q may not access state for user %q", callerID, userID)
	}

	resp := &SessionStatusResponse{
		UserID:                 userID,
		PersonalizationWeights: f.reg.Weights.GetWeights(ctx, userID),
	}

	if sessionID := f.sessionIDFor(userID); sessionID != "" {
		if cm, ok := f.reg.Sessions.Get(sessionID); ok {
			features := cm.Features()
			resp.ContextMemory = &features
		}
		if rt, ok := f.reg.Rewards.Get(sessionID); ok {
			snap := rt.Snapshot()
			resp.SessionRewards = &snap
		}
	}
	if traj, ok := f.reg.Trajectories.Get(userID); ok {
		snap := traj.Snapshot()
		resp.EmotionalTrajectory = &snap
	}

	count, err := f.reg.WeightStore.FeedbackCount(ctx, userID)
	if err != nil {
		return nil, WrapError(CodeUpstreamError, err, "feedback count lookup failed")
	}
	pw := f.reg.ColdStart.PersonalizationWeight(count)
	resp.ColdStartStatus = ColdStartStatus{
		Active:                pw < 1,
		FeedbackCount:         count,
		PersonalizationWeight: pw,
	}
	return resp, nil
}

func (f *Facade) rememberSession(userID, sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userSessions[userID] = sessionID
}

func (f *Facade) sessionIDFor(userID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userSessions[userID]
}

func (f *Facade) sessionFor(userID string) (*session.ContextMemory, bool) {
	sessionID := f.sessionIDFor(userID)
	if sessionID == "" {
		return nil, false
	}
	return f.reg.Sessions.Get(sessionID)
}

func (f *Facade) recordStrategy(userID string, s lastStrategy) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strategies[userID] = s
}

func (f *Facade) strategyFor(userID string) (lastStrategy, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.strategies[userID]
	return s, ok
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
