// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

// identityKey carries the authenticated user id through the request
// context.
const identityKey contextKey = "identity"

// Claims are the JWT claims Resonata issues and validates.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTManager issues and validates HS256 tokens.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTManager creates a token manager. The secret must be at least
// 32 bytes.
func NewJWTManager(secret string, ttl time.Duration) (*JWTManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes, got %d", len(secret))
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl}, nil
}

// GenerateToken creates a signed token asserting the given user id.
func (m *JWTManager) GenerateToken(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the signature, algorithm, and time claims.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		// Reject anything but HMAC to prevent algorithm
		// confusion.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// IdentityFromContext returns the caller identity established by the
// identity middleware, or "" when the request is anonymous.
func IdentityFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(identityKey).(string); ok {
		return id
	}
	return ""
}

// withIdentity stores the caller identity in the request context.
func withIdentity(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, identityKey, userID)
}

// Identity returns middleware establishing the caller's identity.
// With a JWT manager, a valid Bearer token is required; without one,
// the X-User-ID header asserts identity (development mode).
func Identity(manager *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				ctx := withIdentity(r.Context(), r.Header.Get("X-User-ID"))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				NewResponseWriter(w, r).Error(http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token")
				return
			}
			claims, err := manager.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				NewResponseWriter(w, r).Error(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
				return
			}
			userID := claims.UserID
			if userID == "" {
				userID = claims.Subject
			}
			ctx := withIdentity(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
