// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package recommend

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestBanditLoveFeedbackUpdatesEmotionArm(t *testing.T) {
	t.Parallel()

	b := NewBandit(42, zerolog.Nop())
	b.Update("user-1", StrategyEmotion, 1.0)

	expected := b.ExpectedRewards("user-1")
	if !approxEqual(expected[StrategyEmotion], 2.0/3.0, 1e-9) {
		t.Errorf("emotion expected reward = %f, want %f", expected[StrategyEmotion], 2.0/3.0)
	}
	for _, s := range Strategies() {
		if s == StrategyEmotion {
			continue
		}
		if !approxEqual(expected[s], 0.5, 1e-9) {
			t.Errorf("%s expected reward = %f, want 0.5", s, expected[s])
		}
	}

	stats := b.Stats("user-1")
	if stats[StrategyEmotion].Alpha != 2.0 || stats[StrategyEmotion].Beta != 1.0 {
		t.Errorf("emotion arm = (%f, %f), want (2, 1)",
			stats[StrategyEmotion].Alpha, stats[StrategyEmotion].Beta)
	}
}

func TestBanditLowRewardReinforcesFailure(t *testing.T) {
	t.Parallel()

	b := NewBandit(42, zerolog.Nop())
	b.Update("user-1", StrategyContent, 0.0)

	stats := b.Stats("user-1")
	if stats[StrategyContent].Alpha != 1.0 || stats[StrategyContent].Beta != 2.0 {
		t.Errorf("content arm = (%f, %f), want (1, 2)",
			stats[StrategyContent].Alpha, stats[StrategyContent].Beta)
	}
}

func TestBanditSampleDeterministicForSeed(t *testing.T) {
	t.Parallel()

	b1 := NewBandit(7, zerolog.Nop())
	b2 := NewBandit(7, zerolog.Nop())

	for i := 0; i < 20; i++ {
		s1, samples1 := b1.Sample("user-1")
		s2, samples2 := b2.Sample("user-1")
		if s1 != s2 {
			t.Fatalf("draw %d: winners diverged: %s vs %s", i, s1, s2)
		}
		for _, s := range Strategies() {
			if !approxEqual(samples1[s], samples2[s], 1e-12) {
				t.Fatalf("draw %d: samples diverged for %s", i, s)
			}
		}
	}
}

func TestBanditArmsStayPositive(t *testing.T) {
	t.Parallel()

	b := NewBandit(42, zerolog.Nop())
	rewards := []float64{0.0, 1.0, 0.3, 0.5, 0.9, 0.1, -5, 7}
	for _, r := range rewards {
		for _, s := range Strategies() {
			b.Update("user-1", s, r)
		}
	}

	for _, arm := range b.Stats("user-1") {
		if arm.Alpha <= 0 || arm.Beta <= 0 {
			t.Errorf("arm %s has non-positive posterior (%f, %f)", arm.Strategy, arm.Alpha, arm.Beta)
		}
	}
}

func TestBanditResetRestoresUniformPrior(t *testing.T) {
	t.Parallel()

	b := NewBandit(42, zerolog.Nop())
	b.Update("user-1", StrategyDiversity, 1.0)
	b.Reset("user-1")

	for _, arm := range b.Stats("user-1") {
		if arm.Alpha != 1.0 || arm.Beta != 1.0 {
			t.Errorf("arm %s = (%f, %f) after reset, want (1, 1)", arm.Strategy, arm.Alpha, arm.Beta)
		}
	}
}

func TestBanditUsersAreIsolated(t *testing.T) {
	t.Parallel()

	b := NewBandit(42, zerolog.Nop())
	b.Update("user-1", StrategyEmotion, 1.0)

	expected := b.ExpectedRewards("user-2")
	if !approxEqual(expected[StrategyEmotion], 0.5, 1e-9) {
		t.Errorf("user-2 emotion arm affected by user-1 update: %f", expected[StrategyEmotion])
	}
}
