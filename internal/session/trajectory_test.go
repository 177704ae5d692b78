// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package session

import (
	"reflect"
	"testing"
)

func TestTrajectoryDecliningTrend(t *testing.T) {
	t.Parallel()

	tr := NewTrajectory("user-1")
	valences := []float64{0.6, 0.5, 0.4, 0.3, 0.2}
	for i, v := range valences {
		tr.AddPoint(v, 0, i+1, "")
	}

	if tr.Trend() != TrendDeclining {
		t.Errorf("trend = %s, want declining", tr.Trend())
	}
	if !approxEqual(tr.ValenceSlope(), -0.1, 1e-9) {
		t.Errorf("valence slope = %f, want -0.1", tr.ValenceSlope())
	}
	if !approxEqual(tr.ComfortMusicBoost(), 0.2, 1e-9) {
		t.Errorf("comfort boost = %f, want 0.2", tr.ComfortMusicBoost())
	}
	if tr.EnergyAdjustment() != -0.2 {
		t.Errorf("energy adjustment = %f, want -0.2", tr.EnergyAdjustment())
	}
}

func TestTrajectoryTrendClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		valences []float64
		want     Trend
	}{
		{"too few points", []float64{0.1, 0.2}, TrendUnknown},
		{"improving", []float64{0.0, 0.1, 0.2, 0.3}, TrendImproving},
		{"stable", []float64{0.5, 0.52, 0.48, 0.5}, TrendStable},
		{"volatile", []float64{-1, 1, -1, 1, -1}, TrendVolatile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := NewTrajectory("user-1")
			for i, v := range tt.valences {
				tr.AddPoint(v, 0, i+1, "")
			}
			if tr.Trend() != tt.want {
				t.Errorf("trend = %s, want %s", tr.Trend(), tt.want)
			}
		})
	}
}

func TestTrajectoryClampsInputs(t *testing.T) {
	t.Parallel()

	tr := NewTrajectory("user-1")
	p := tr.AddPoint(5, -5, 1, "")
	if p.Valence != 1 || p.Arousal != -1 {
		t.Errorf("point = (%f, %f), want clamped (1, -1)", p.Valence, p.Arousal)
	}
}

func TestTrajectoryComfortBoostOnlyWhenDeclining(t *testing.T) {
	t.Parallel()

	tr := NewTrajectory("user-1")
	for i, v := range []float64{0.0, 0.1, 0.2, 0.3} {
		tr.AddPoint(v, 0, i+1, "")
	}
	if tr.ComfortMusicBoost() != 0 {
		t.Errorf("comfort boost = %f for improving trend, want 0", tr.ComfortMusicBoost())
	}
	if tr.EnergyAdjustment() != 0.1 {
		t.Errorf("energy adjustment = %f, want 0.1", tr.EnergyAdjustment())
	}
}

func TestTrajectoryPredictNextPosition(t *testing.T) {
	t.Parallel()

	tr := NewTrajectory("user-1")
	if _, ok := tr.PredictNextPosition(); ok {
		t.Error("prediction defined with no points")
	}

	for i, v := range []float64{0.2, 0.3, 0.4} {
		tr.AddPoint(v, 0.1*float64(i), i+1, "")
	}
	pos, ok := tr.PredictNextPosition()
	if !ok {
		t.Fatal("prediction undefined with 3 points")
	}
	if !approxEqual(pos.Valence, 0.5, 1e-9) {
		t.Errorf("predicted valence = %f, want 0.5", pos.Valence)
	}
}

func TestTrajectoryNearestMood(t *testing.T) {
	t.Parallel()

	tr := NewTrajectory("user-1")
	tr.AddPoint(0.78, 0.62, 1, "")
	if got := tr.NearestMoodToCurrent(); got != "happy" {
		t.Errorf("nearest mood = %s, want happy", got)
	}
}

func TestTrajectoryAveragePosition(t *testing.T) {
	t.Parallel()

	tr := NewTrajectory("user-1")
	for i, v := range []float64{0.0, 0.3, 0.6, 0.9} {
		tr.AddPoint(v, 0, i+1, "")
	}
	avg := tr.AveragePosition(3)
	if !approxEqual(avg.Valence, 0.6, 1e-9) {
		t.Errorf("average valence = %f, want 0.6", avg.Valence)
	}
}

func TestTrajectorySnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	tr := NewTrajectory("user-1")
	for i, v := range []float64{0.6, 0.5, 0.4, 0.3} {
		tr.AddPoint(v, 0.1, i+1, "calm")
	}

	restored := TrajectoryFromSnapshot(tr.Snapshot())
	if !reflect.DeepEqual(tr.Snapshot(), restored.Snapshot()) {
		t.Error("snapshot round-trip changed state")
	}
	if restored.Trend() != tr.Trend() {
		t.Errorf("trend = %s, want %s", restored.Trend(), tr.Trend())
	}
}
