// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/resonata/resonata/internal/catalog"
	"github.com/resonata/resonata/internal/facade"
	"github.com/resonata/resonata/internal/recommend"
	"github.com/resonata/resonata/internal/storage"
)

func testCatalogSongs() []recommend.Song {
	return []recommend.Song{
		{ID: "s1", Name: "Still Water", Artist: "River Ensemble", Genre: "ambient", Mood: "calm", Valence: 0.5, Energy: -0.5, Tempo: 80, Popularity: 80},
		{ID: "s2", Name: "Evening Drift", Artist: "Nora Vale", Genre: "lofi", Mood: "calm", Valence: 0.4, Energy: -0.6, Tempo: 72, Popularity: 60},
		{ID: "s3", Name: "Gold Hour", Artist: "The Daylights", Genre: "pop", Mood: "happy", Valence: 0.8, Energy: 0.5, Tempo: 118, Popularity: 95},
		{ID: "s4", Name: "Harbor", Artist: "The Quiet Coast", Genre: "folk", Mood: "calm", Valence: 0.3, Energy: -0.3, Tempo: 95, Popularity: 50},
		{ID: "s5", Name: "Northern Line", Artist: "Transit Club", Genre: "electronic", Mood: "energetic", Valence: 0.6, Energy: 0.8, Tempo: 128, Popularity: 90},
		{ID: "s6", Name: "Low Tide", Artist: "Mira Sol", Genre: "jazz", Mood: "sad", Valence: -0.6, Energy: -0.5, Tempo: 70, Popularity: 55},
	}
}

func newTestRouter(t *testing.T, jwtManager *JWTManager) http.Handler {
	t.Helper()
	cfg := recommend.DefaultConfig()
	store := storage.NewMemoryWeightStore()
	cat := catalog.NewMemoryCatalog(testCatalogSongs(), 42)
	reg := facade.NewRegistry(cfg, cat, store, zerolog.Nop())
	handler := NewHandler(facade.New(reg), zerolog.Nop())
	return NewRouter(RouterConfig{Handler: handler, JWT: jwtManager})
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func doJSON(t *testing.T, router http.Handler, method, path, body, userID string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func TestConversationEndpoint(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, nil)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/conversation/continue",
		`{"user_id":"u1","message":"I want some calm music to relax"}`, "u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if !env.Success {
		t.Fatal("expected success envelope")
	}

	var data facade.ContinueConversationResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.SessionID == "" {
		t.Error("expected a session id")
	}
	if data.DetectedMood != "calm" {
		t.Errorf("detected mood = %q, want calm", data.DetectedMood)
	}
	if data.TurnNumber != 1 {
		t.Errorf("turn = %d, want 1", data.TurnNumber)
	}
}

func TestConversationValidationError(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, nil)

	long := strings.Repeat("a", 1001)
	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/conversation/continue",
		`{"user_id":"u1","message":"`+long+`"}`, "u1")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if env.Error == nil || env.Error.Code != string(facade.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR, got %+v", env.Error)
	}
}

func TestMalformedJSON(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, nil)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/recommendations/adaptive",
		`{"user_id": `, "u1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "BAD_REQUEST" {
		t.Errorf("expected BAD_REQUEST, got %+v", env.Error)
	}
}

func TestAdaptiveEndpoint(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, nil)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/recommendations/adaptive",
		`{"user_id":"u2","mood":"calm","limit":5}`, "u2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	var data facade.AdaptiveResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if len(data.Recommendations) == 0 {
		t.Error("expected recommendations")
	}
	if !data.ColdStartActive {
		t.Error("expected cold start for a new user")
	}
	if data.PersonalizationWeight != 0 {
		t.Errorf("personalization_weight = %f, want 0", data.PersonalizationWeight)
	}
}

type failingCatalog struct{}

func (failingCatalog) FetchCandidates(context.Context, string, int) ([]recommend.Song, error) {
	return nil, errors.New("catalog down")
}

func TestAdaptiveUpstreamFailureMapsTo502(t *testing.T) {
	t.Parallel()
	cfg := recommend.DefaultConfig()
	reg := facade.NewRegistry(cfg, failingCatalog{}, storage.NewMemoryWeightStore(), zerolog.Nop())
	handler := NewHandler(facade.New(reg), zerolog.Nop())
	router := NewRouter(RouterConfig{Handler: handler})

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/recommendations/adaptive",
		`{"user_id":"u3","mood":"calm"}`, "u3")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502; body %s", rec.Code, rec.Body.String())
	}
	if env.Success {
		t.Error("expected failure envelope")
	}

	// The degraded payload still rides along.
	var data facade.AdaptiveResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.StrategyUsed != facade.StrategyNone {
		t.Errorf("strategy = %q, want none", data.StrategyUsed)
	}
	if len(data.Recommendations) != 0 {
		t.Errorf("expected empty recommendations, got %d", len(data.Recommendations))
	}
}

func TestSessionStatusIdentity(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, nil)

	rec, _ := doJSON(t, router, http.MethodGet, "/api/v1/session/status/bob", "", "alice")
	if rec.Code != http.StatusForbidden {
		t.Errorf("cross-user status = %d, want 403", rec.Code)
	}

	rec, env := doJSON(t, router, http.MethodGet, "/api/v1/session/status/alice", "", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("self status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var data facade.SessionStatusResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.UserID != "alice" {
		t.Errorf("user_id = %q, want alice", data.UserID)
	}
	if !data.ColdStartStatus.Active {
		t.Error("expected active cold start for a fresh user")
	}
}

func TestJWTIdentity(t *testing.T) {
	t.Parallel()
	manager, err := NewJWTManager("0123456789abcdef0123456789abcdef", 0)
	if err != nil {
		t.Fatal(err)
	}
	router := newTestRouter(t, manager)

	// No token.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/status/carol", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d, want 401", rec.Code)
	}

	// Valid token for the same user.
	token, err := manager.GenerateToken("carol")
	if err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/v1/session/status/carol", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	// Valid token for a different user hits the FORBIDDEN check.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/session/status/dave", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("cross-user token status = %d, want 403", rec.Code)
	}

	// Garbage token.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/session/status/carol", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}

func TestFeedbackRewardEndpoint(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, nil)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/feedback/reward",
		`{"user_id":"u4","song_id":"s1","feedback_type":"love","play_duration_seconds":200,"song_duration_seconds":200}`, "u4")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var data facade.RecordRewardResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if !data.Success {
		t.Error("expected success")
	}
	if data.TotalReward <= 0 {
		t.Errorf("total reward = %f, want > 0", data.TotalReward)
	}
}
