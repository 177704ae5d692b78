// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package session

import (
	"sync"
	"time"
)

// SessionStore holds live conversation memories keyed by session ID.
// The outer lock is held only for lookup and creation; all per-session
// work happens under the session's own lock.
type SessionStore struct {
	mu         sync.RWMutex
	sessions   map[string]*ContextMemory
	windowSize int
}

// NewSessionStore creates a session store whose sessions use the given
// window size.
func NewSessionStore(windowSize int) *SessionStore {
	return &SessionStore{
		sessions:   make(map[string]*ContextMemory),
		windowSize: windowSize,
	}
}

// GetOrCreate returns the session memory, creating it on first use.
func (s *SessionStore) GetOrCreate(sessionID, userID string) *ContextMemory {
	s.mu.RLock()
	cm, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return cm
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cm, ok := s.sessions[sessionID]; ok {
		return cm
	}
	cm = NewContextMemory(sessionID, userID, s.windowSize)
	s.sessions[sessionID] = cm
	return cm
}

// Get returns the session memory if it exists.
func (s *SessionStore) Get(sessionID string) (*ContextMemory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cm, ok := s.sessions[sessionID]
	return cm, ok
}

// Delete removes a session.
func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// IdleSessions collects the IDs of sessions idle longer than ttl. The
// outer lock is held only while copying the map, not while reading
// per-session timestamps.
func (s *SessionStore) IdleSessions(ttl time.Duration, now time.Time) []string {
	s.mu.RLock()
	candidates := make([]*ContextMemory, 0, len(s.sessions))
	for _, cm := range s.sessions {
		candidates = append(candidates, cm)
	}
	s.mu.RUnlock()

	var idle []string
	for _, cm := range candidates {
		if now.Sub(cm.UpdatedAt()) > ttl {
			idle = append(idle, cm.SessionID())
		}
	}
	return idle
}

// TrajectoryStore holds emotional trajectories keyed by user ID.
type TrajectoryStore struct {
	mu           sync.RWMutex
	trajectories map[string]*Trajectory
}

// NewTrajectoryStore creates an empty trajectory store.
func NewTrajectoryStore() *TrajectoryStore {
	return &TrajectoryStore{trajectories: make(map[string]*Trajectory)}
}

// GetOrCreate returns the user's trajectory, creating it on first use.
func (s *TrajectoryStore) GetOrCreate(userID string) *Trajectory {
	s.mu.RLock()
	t, ok := s.trajectories[userID]
	s.mu.RUnlock()
	if ok {
		return t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.trajectories[userID]; ok {
		return t
	}
	t = NewTrajectory(userID)
	s.trajectories[userID] = t
	return t
}

// Get returns the user's trajectory if it exists.
func (s *TrajectoryStore) Get(userID string) (*Trajectory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trajectories[userID]
	return t, ok
}

// Delete removes a user's trajectory.
func (s *TrajectoryStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.trajectories, userID)
}

// RewardStore holds reward trackers keyed by session ID.
type RewardStore struct {
	mu       sync.RWMutex
	trackers map[string]*RewardTracker
}

// NewRewardStore creates an empty reward store.
func NewRewardStore() *RewardStore {
	return &RewardStore{trackers: make(map[string]*RewardTracker)}
}

// GetOrCreate returns the session's reward tracker, creating it on
// first use.
func (s *RewardStore) GetOrCreate(sessionID string) *RewardTracker {
	s.mu.RLock()
	rt, ok := s.trackers[sessionID]
	s.mu.RUnlock()
	if ok {
		return rt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rt, ok := s.trackers[sessionID]; ok {
		return rt
	}
	rt = NewRewardTracker(sessionID)
	s.trackers[sessionID] = rt
	return rt
}

// Get returns the session's reward tracker if it exists.
func (s *RewardStore) Get(sessionID string) (*RewardTracker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.trackers[sessionID]
	return rt, ok
}

// Delete removes a session's reward tracker.
func (s *RewardStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.trackers, sessionID)
}
