// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/resonata/resonata/internal/metrics"
)

// RouterConfig configures the HTTP router.
type RouterConfig struct {
	Handler *Handler
	// JWT enables bearer-token identity when non-nil; otherwise the
	// X-User-ID header asserts identity (development mode).
	JWT *JWTManager
	// RequestsPerMinute rate-limits each client IP. 0 disables.
	RequestsPerMinute int
}

// NewRouter builds the chi router with the full middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		MaxAge:         300,
	}))
	r.Use(prometheusMiddleware)

	r.Get("/healthz", cfg.Handler.Health)
	r.Get("/api/v1/health", cfg.Handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RequestsPerMinute > 0 {
			r.Use(httprate.LimitByIP(cfg.RequestsPerMinute, time.Minute))
		}
		r.Use(Identity(cfg.JWT))

		r.Post("/conversation/continue", cfg.Handler.ContinueConversation)
		r.Post("/recommendations/adaptive", cfg.Handler.Adaptive)
		r.Post("/learning/weights", cfg.Handler.LearnWeights)
		r.Post("/feedback/reward", cfg.Handler.RecordReward)
		r.Get("/session/status/{userID}", cfg.Handler.SessionStatus)
	})

	return r
}

// prometheusMiddleware records per-request metrics.
func prometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		metrics.RecordAPIRequest(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), time.Since(start))
	})
}
