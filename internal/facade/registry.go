// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package facade

import (
	"github.com/rs/zerolog"

	"github.com/resonata/resonata/internal/recommend"
	"github.com/resonata/resonata/internal/session"
)

// Registry bundles the collaborators the facade threads values
// between. The stores never reference each other; all cross-component
// flow goes through the facade.
type Registry struct {
	Config       *recommend.Config
	Sessions     *session.SessionStore
	Trajectories *session.TrajectoryStore
	Rewards      *session.RewardStore
	Weights      *recommend.WeightAdapter
	WeightStore  recommend.WeightStore
	Bandit       *recommend.Bandit
	Engine       *recommend.Engine
	ColdStart    *recommend.ColdStartHandler
	Transition   *recommend.TransitionManager
	Analyzer     Analyzer
	Logger       zerolog.Logger
}

// NewRegistry wires a complete registry from a config, a catalog, and
// a weight store.
func NewRegistry(cfg *recommend.Config, catalog recommend.CatalogProvider, store recommend.WeightStore, logger zerolog.Logger) *Registry {
	weights := recommend.NewWeightAdapter(cfg.Weights, store, logger)
	bandit := recommend.NewBandit(cfg.Seed, logger)
	return &Registry{
		Config:       cfg,
		Sessions:     session.NewSessionStore(cfg.Context.WindowSize),
		Trajectories: session.NewTrajectoryStore(),
		Rewards:      session.NewRewardStore(),
		Weights:      weights,
		WeightStore:  store,
		Bandit:       bandit,
		Engine:       recommend.NewEngine(cfg, catalog, weights, bandit, logger),
		ColdStart:    recommend.NewColdStartHandler(cfg.ColdStart, cfg.Limits, catalog, store, logger),
		Transition:   recommend.NewTransitionManager(cfg.ColdStart),
		Analyzer:     NewLexiconAnalyzer(),
		Logger:       logger,
	}
}
