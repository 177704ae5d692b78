// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

// Package metrics provides Prometheus metrics collection for
// observability. Metrics are exposed at the /metrics endpoint in
// Prometheus text format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Recommendation Metrics
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"strategy", "cold_start"},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Duration of recommendation scoring in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecommendationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_errors_total",
			Help: "Total number of failed recommendation requests",
		},
		[]string{"error_type"}, // "upstream_timeout", "upstream_error", "internal"
	)

	RecommendationsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendations_returned",
			Help:    "Number of songs returned per recommendation request",
			Buckets: []float64{1, 5, 10, 20, 30, 50},
		},
	)

	// Bandit Metrics
	BanditArmExpectedReward = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bandit_arm_expected_reward",
			Help: "Expected reward (alpha / (alpha + beta)) per strategy arm",
		},
		[]string{"strategy"},
	)

	BanditArmPulls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandit_arm_pulls_total",
			Help: "Total number of times each strategy arm was selected",
		},
		[]string{"strategy"},
	)

	BanditUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bandit_updates_total",
			Help: "Total number of bandit posterior updates",
		},
	)

	// Learning Metrics
	WeightAdjustments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weight_adjustments_total",
			Help: "Total number of per-feature weight adjustments",
		},
		[]string{"reason"}, // "feedback", "explicit", "reset"
	)

	SessionRewards = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "session_reward",
			Help:    "Composite session reward values",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)

	FeedbackReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_received_total",
			Help: "Total number of feedback events received",
		},
		[]string{"feedback_type"},
	)

	// Session Metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Current number of live conversation sessions",
		},
	)

	SessionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_evicted_total",
			Help: "Total number of sessions evicted after idle TTL expiry",
		},
	)

	ConversationTurns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversation_turns_total",
			Help: "Total number of conversation turns processed",
		},
	)

	// Cold Start Metrics
	ColdStartRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cold_start_requests_total",
			Help: "Total number of recommendation requests served by cold-start strategies",
		},
		[]string{"strategy"}, // "cold_start_hybrid", "cold_start_popularity"
	)

	// Catalog Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	CatalogFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_fetch_duration_seconds",
			Help:    "Duration of catalog candidate fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CatalogFetchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_fetch_errors_total",
			Help: "Total number of failed catalog fetches",
		},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRecommendation records a completed recommendation request.
func RecordRecommendation(strategy string, coldStart bool, returned int, duration time.Duration) {
	cold := "false"
	if coldStart {
		cold = "true"
	}
	RecommendationRequests.WithLabelValues(strategy, cold).Inc()
	RecommendationDuration.Observe(duration.Seconds())
	RecommendationsReturned.Observe(float64(returned))
}

// RecordBanditSample records a strategy arm selection and the current
// expected rewards of every arm.
func RecordBanditSample(strategy string, expectedRewards map[string]float64) {
	BanditArmPulls.WithLabelValues(strategy).Inc()
	for arm, reward := range expectedRewards {
		BanditArmExpectedReward.WithLabelValues(arm).Set(reward)
	}
}

// RecordFeedback records a feedback event and the resulting session
// reward.
func RecordFeedback(feedbackType string, sessionReward float64) {
	FeedbackReceived.WithLabelValues(feedbackType).Inc()
	SessionRewards.Observe(sessionReward)
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
