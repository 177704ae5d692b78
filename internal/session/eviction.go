// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

// Evictor periodically removes idle sessions and their reward
// trackers. It implements suture.Service and runs until its context is
// canceled.
type Evictor struct {
	sessions *SessionStore
	rewards  *RewardStore
	ttl      time.Duration
	interval time.Duration
	logger   zerolog.Logger
}

var _ suture.Service = (*Evictor)(nil)

// NewEvictor creates an eviction service scanning every interval for
// sessions idle longer than ttl.
func NewEvictor(sessions *SessionStore, rewards *RewardStore, ttl, interval time.Duration, logger zerolog.Logger) *Evictor {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Evictor{
		sessions: sessions,
		rewards:  rewards,
		ttl:      ttl,
		interval: interval,
		logger:   logger.With().Str("component", "session_evictor").Logger(),
	}
}

// Serve implements suture.Service.
func (e *Evictor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			e.sweep(now.UTC())
		}
	}
}

// Sweep runs one eviction pass immediately.
func (e *Evictor) Sweep() {
	e.sweep(time.Now().UTC())
}

func (e *Evictor) sweep(now time.Time) {
	idle := e.sessions.IdleSessions(e.ttl, now)
	for _, sessionID := range idle {
		e.sessions.Delete(sessionID)
		e.rewards.Delete(sessionID)
	}
	if len(idle) > 0 {
		e.logger.Info().
			Int("evicted", len(idle)).
			Int("remaining", e.sessions.Len()).
			Msg("Evicted idle sessions")
	}
}
