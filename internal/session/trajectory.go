// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package session

import (
	"math"
	"sync"

	"github.com/resonata/resonata/internal/recommend"
)

// Trend classifies recent motion through VA-space.
type Trend string

// Trajectory trends.
const (
	TrendUnknown   Trend = "unknown"
	TrendStable    Trend = "stable"
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendVolatile  Trend = "volatile"
)

// minPointsForTrend is the number of VA points required before a trend
// is defined.
const minPointsForTrend = 3

// VAPoint is one observation of a user's emotional position.
type VAPoint struct {
	Valence    float64 `json:"valence"`
	Arousal    float64 `json:"arousal"`
	TurnNumber int     `json:"turn_number"`
	Mood       string  `json:"mood,omitempty"`
}

// Trajectory tracks a user's emotional positions over a session and
// classifies their trend via least-squares regression on valence.
type Trajectory struct {
	mu sync.RWMutex

	userID       string
	points       []VAPoint
	trend        Trend
	valenceSlope float64
	arousalSlope float64
	valenceVar   float64
	arousalVar   float64
}

// NewTrajectory creates an empty trajectory for userID.
func NewTrajectory(userID string) *Trajectory {
	return &Trajectory{userID: userID, trend: TrendUnknown}
}

// UserID returns the owning user.
func (t *Trajectory) UserID() string { return t.userID }

// AddPoint clamps and appends a VA observation, recomputing the trend
// once enough points exist.
func (t *Trajectory) AddPoint(valence, arousal float64, turnNumber int, mood string) VAPoint {
	p := VAPoint{
		Valence:    recommend.ClampVA(valence),
		Arousal:    recommend.ClampVA(arousal),
		TurnNumber: turnNumber,
		Mood:       mood,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.points = append(t.points, p)
	t.recompute()
	return p
}

// recompute refreshes slopes, variances, and the trend. Caller must
// hold t.mu.
func (t *Trajectory) recompute() {
	if len(t.points) < minPointsForTrend {
		t.trend = TrendUnknown
		return
	}

	ts := make([]float64, len(t.points))
	vs := make([]float64, len(t.points))
	as := make([]float64, len(t.points))
	for i, p := range t.points {
		ts[i] = float64(p.TurnNumber)
		vs[i] = p.Valence
		as[i] = p.Arousal
	}

	t.valenceSlope = slope(ts, vs)
	t.arousalSlope = slope(ts, as)
	t.valenceVar = variance(vs)
	t.arousalVar = variance(as)

	switch {
	case t.valenceVar > 0.3:
		t.trend = TrendVolatile
	case t.valenceSlope > 0.05:
		t.trend = TrendImproving
	case t.valenceSlope < -0.05:
		t.trend = TrendDeclining
	default:
		t.trend = TrendStable
	}
}

// slope computes the least-squares slope of ys over xs; a degenerate
// denominator yields 0.
func slope(xs, ys []float64) float64 {
	xMean := mean(xs)
	yMean := mean(ys)
	num, den := 0.0, 0.0
	for i := range xs {
		dx := xs[i] - xMean
		num += dx * (ys[i] - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// variance is the population variance.
func variance(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := mean(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(vals))
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// Trend returns the current trend classification.
func (t *Trajectory) Trend() Trend {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.trend
}

// ValenceSlope returns the regression slope of valence over turns.
func (t *Trajectory) ValenceSlope() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.valenceSlope
}

// ArousalSlope returns the regression slope of arousal over turns.
func (t *Trajectory) ArousalSlope() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.arousalSlope
}

// PointCount returns the number of stored observations.
func (t *Trajectory) PointCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.points)
}

// CurrentPosition returns the most recent VA position, or the origin
// when no points exist.
func (t *Trajectory) CurrentPosition() recommend.VAPosition {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.points) == 0 {
		return recommend.VAPosition{}
	}
	last := t.points[len(t.points)-1]
	return recommend.VAPosition{Valence: last.Valence, Arousal: last.Arousal}
}

// AveragePosition averages the last n points (default 3).
func (t *Trajectory) AveragePosition(n int) recommend.VAPosition {
	if n <= 0 {
		n = 3
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.points) == 0 {
		return recommend.VAPosition{}
	}

	start := len(t.points) - n
	if start < 0 {
		start = 0
	}
	window := t.points[start:]
	var v, a float64
	for _, p := range window {
		v += p.Valence
		a += p.Arousal
	}
	return recommend.VAPosition{
		Valence: v / float64(len(window)),
		Arousal: a / float64(len(window)),
	}
}

// ComfortMusicBoost returns the additive resonance bonus for calming
// songs when the trajectory is declining.
func (t *Trajectory) ComfortMusicBoost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.trend != TrendDeclining {
		return 0
	}
	return math.Min(0.3, 2*math.Abs(t.valenceSlope))
}

// EnergyAdjustment nudges the target arousal based on trend.
func (t *Trajectory) EnergyAdjustment() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	switch t.trend {
	case TrendDeclining:
		return -0.2
	case TrendImproving:
		return 0.1
	default:
		return 0
	}
}

// NearestMoodToCurrent maps the current position onto the closest mood
// centroid.
func (t *Trajectory) NearestMoodToCurrent() string {
	return recommend.NearestMood(t.CurrentPosition())
}

// PredictNextPosition extrapolates one turn ahead. The second return
// is false when fewer than three points exist.
func (t *Trajectory) PredictNextPosition() (recommend.VAPosition, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.points) < minPointsForTrend {
		return recommend.VAPosition{}, false
	}
	last := t.points[len(t.points)-1]
	return recommend.VAPosition{
		Valence: recommend.ClampVA(last.Valence + t.valenceSlope),
		Arousal: recommend.ClampVA(last.Arousal + t.arousalSlope),
	}, true
}

// TrajectorySnapshot is the serializable form of a Trajectory.
type TrajectorySnapshot struct {
	UserID string    `json:"user_id"`
	Points []VAPoint `json:"points"`
	Trend  Trend     `json:"trend"`
}

// Snapshot returns a serializable copy of the trajectory.
func (t *Trajectory) Snapshot() TrajectorySnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	points := make([]VAPoint, len(t.points))
	copy(points, t.points)
	return TrajectorySnapshot{UserID: t.userID, Points: points, Trend: t.trend}
}

// TrajectoryFromSnapshot rebuilds a trajectory, re-deriving slopes and
// trend from the stored points.
func TrajectoryFromSnapshot(snap TrajectorySnapshot) *Trajectory {
	t := NewTrajectory(snap.UserID)
	for _, p := range snap.Points {
		t.AddPoint(p.Valence, p.Arousal, p.TurnNumber, p.Mood)
	}
	return t
}
