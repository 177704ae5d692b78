// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package recommend

import (
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// ArmStats exposes the posterior state of one bandit arm.
type ArmStats struct {
	Strategy       string  `json:"strategy"`
	Alpha          float64 `json:"alpha"`
	Beta           float64 `json:"beta"`
	Pulls          int     `json:"pulls"`
	Updates        int     `json:"updates"`
	ExpectedReward float64 `json:"expected_reward"`
}

// armState holds the Beta posterior for one strategy arm.
type armState struct {
	alpha   float64
	beta    float64
	pulls   int
	updates int
}

func newArmStates() []*armState {
	arms := make([]*armState, numStrategies)
	for i := range arms {
		arms[i] = &armState{alpha: 1, beta: 1} // Uniform prior
	}
	return arms
}

// Bandit selects recommendation strategies per user via Thompson
// sampling over Beta posteriors, one arm per strategy.
//
// All draws come from a single seeded source so behavior is
// reproducible for a fixed seed and call sequence.
type Bandit struct {
	logger zerolog.Logger

	mu    sync.Mutex
	src   rand.Source
	users map[string][]*armState
}

// NewBandit creates a bandit seeded with seed (zero means the default
// seed 42).
func NewBandit(seed int64, logger zerolog.Logger) *Bandit {
	if seed == 0 {
		seed = 42
	}
	return &Bandit{
		logger: logger.With().Str("component", "bandit").Logger(),
		src:    rand.NewSource(uint64(seed)),
		users:  make(map[string][]*armState),
	}
}

// arms returns the user's arm states, creating uniform priors on
// first access. Caller must hold b.mu.
func (b *Bandit) arms(userID string) []*armState {
	arms, ok := b.users[userID]
	if !ok {
		arms = newArmStates()
		b.users[userID] = arms
	}
	return arms
}

// Sample draws one value from each arm's posterior and returns the
// strategy with the highest draw, together with the per-strategy
// sampled values.
func (b *Bandit) Sample(userID string) (Strategy, map[Strategy]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	arms := b.arms(userID)
	samples := make(map[Strategy]float64, numStrategies)

	best := StrategyEmotion
	bestDraw := -1.0
	for i, arm := range arms {
		dist := distuv.Beta{Alpha: arm.alpha, Beta: arm.beta, Src: b.src}
		draw := dist.Rand()
		samples[Strategy(i)] = draw
		if draw > bestDraw {
			bestDraw = draw
			best = Strategy(i)
		}
	}
	arms[best].pulls++

	b.logger.Debug().
		Str("user_id", userID).
		Str("strategy", best.String()).
		Float64("draw", bestDraw).
		Msg("Sampled strategy")

	return best, samples
}

// Update records the observed reward for the given strategy. Rewards
// at or above 0.5 reinforce the arm's success count; lower rewards
// reinforce failure by the complement.
func (b *Bandit) Update(userID string, s Strategy, reward float64) {
	if s < 0 || s >= numStrategies {
		return
	}
	reward = ClampUnit(reward)

	b.mu.Lock()
	defer b.mu.Unlock()

	arm := b.arms(userID)[s]
	if reward >= 0.5 {
		arm.alpha += reward
	} else {
		arm.beta += 1 - reward
	}
	arm.updates++
}

// ExpectedRewards returns the posterior mean alpha/(alpha+beta) for
// every strategy.
func (b *Bandit) ExpectedRewards(userID string) map[Strategy]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	arms := b.arms(userID)
	out := make(map[Strategy]float64, numStrategies)
	for i, arm := range arms {
		out[Strategy(i)] = arm.alpha / (arm.alpha + arm.beta)
	}
	return out
}

// Stats returns per-arm posterior statistics in strategy order.
func (b *Bandit) Stats(userID string) []ArmStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	arms := b.arms(userID)
	out := make([]ArmStats, numStrategies)
	for i, arm := range arms {
		out[i] = ArmStats{
			Strategy:       Strategy(i).String(),
			Alpha:          arm.alpha,
			Beta:           arm.beta,
			Pulls:          arm.pulls,
			Updates:        arm.updates,
			ExpectedReward: arm.alpha / (arm.alpha + arm.beta),
		}
	}
	return out
}

// Reset restores the user's arms to uniform priors.
func (b *Bandit) Reset(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[userID] = newArmStates()
}
