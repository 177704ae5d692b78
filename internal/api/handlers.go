// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/resonata/resonata/internal/facade"
)

// Handler holds the HTTP handlers over the facade.
type Handler struct {
	facade *facade.Facade
	logger zerolog.Logger
}

// NewHandler creates the handler set.
func NewHandler(f *facade.Facade, logger zerolog.Logger) *Handler {
	return &Handler{
		facade: f,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// statusForCode maps facade error codes to HTTP status codes.
func statusForCode(code facade.Code) int {
	switch code {
	case facade.CodeValidation:
		return http.StatusUnprocessableEntity
	case facade.CodeNotFound:
		return http.StatusNotFound
	case facade.CodeForbidden:
		return http.StatusForbidden
	case facade.CodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case facade.CodeUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeFacadeError translates a facade error, optionally carrying a
// degraded partial payload.
func writeFacadeError(rw *ResponseWriter, err error, data any) {
	code := facade.CodeOf(err)
	message := err.Error()
	var fe *facade.Error
	if errors.As(err, &fe) {
		message = fe.Message
		if fe.Err != nil {
			message += ": " + fe.Err.Error()
		}
	}
	rw.ErrorWithData(statusForCode(code), string(code), message, data)
}

func decodeBody(rw *ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		rw.Error(http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON body: "+err.Error())
		return false
	}
	return true
}

// ContinueConversation handles POST /api/v1/conversation/continue.
func (h *Handler) ContinueConversation(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req facade.ContinueConversationRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	resp, err := h.facade.ContinueConversation(r.Context(), &req)
	if err != nil {
		writeFacadeError(rw, err, nil)
		return
	}
	rw.Success(resp)
}

// Adaptive handles POST /api/v1/recommendations/adaptive.
func (h *Handler) Adaptive(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req facade.AdaptiveRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	resp, err := h.facade.Adaptive(r.Context(), &req)
	if err != nil {
		// Upstream failures still carry the degraded payload:
		// empty list, strategy "none".
		var data any
		if resp != nil {
			data = resp
		}
		writeFacadeError(rw, err, data)
		return
	}
	rw.Success(resp)
}

// LearnWeights handles POST /api/v1/learning/weights.
func (h *Handler) LearnWeights(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req facade.LearnWeightsRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	resp, err := h.facade.LearnWeights(r.Context(), &req)
	if err != nil {
		writeFacadeError(rw, err, nil)
		return
	}
	rw.Success(resp)
}

// RecordReward handles POST /api/v1/feedback/reward.
func (h *Handler) RecordReward(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req facade.RecordRewardRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	resp, err := h.facade.RecordReward(r.Context(), &req)
	if err != nil {
		writeFacadeError(rw, err, nil)
		return
	}
	rw.Success(resp)
}

// SessionStatus handles GET /api/v1/session/status/{userID}.
func (h *Handler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := chi.URLParam(r, "userID")
	caller := IdentityFromContext(r.Context())
	resp, err := h.facade.SessionStatus(r.Context(), caller, userID)
	if err != nil {
		writeFacadeError(rw, err, nil)
		return
	}
	rw.Success(resp)
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "ok"})
}
