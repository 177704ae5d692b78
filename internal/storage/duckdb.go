// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver
	"github.com/goccy/go-json"

	"github.com/resonata/resonata/internal/recommend"
)

// duckdbSchema creates the weight-persistence tables. Weights are
// last-writer-wins; adjustments are append-only.
const duckdbSchema = `
CREATE SEQUENCE IF NOT EXISTS weight_adjustments_seq;

CREATE TABLE IF NOT EXISTS user_weights (
	user_id      VARCHAR PRIMARY KEY,
	weights_json VARCHAR NOT NULL,
	updated_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS weight_adjustments (
	id            BIGINT PRIMARY KEY DEFAULT nextval('weight_adjustments_seq'),
	user_id       VARCHAR NOT NULL,
	feature       VARCHAR NOT NULL,
	old_weight    DOUBLE NOT NULL,
	new_weight    DOUBLE NOT NULL,
	delta         DOUBLE NOT NULL,
	reason        VARCHAR,
	feedback_type VARCHAR,
	song_id       VARCHAR,
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS user_feedback_counts (
	user_id VARCHAR PRIMARY KEY,
	count   BIGINT NOT NULL
);
`

// DuckDBWeightStore implements recommend.WeightStore on DuckDB.
type DuckDBWeightStore struct {
	db *sql.DB
}

var _ recommend.WeightStore = (*DuckDBWeightStore)(nil)

// OpenDuckDBWeightStore opens a DuckDB database at path (empty for
// in-memory) and ensures the schema exists.
func OpenDuckDBWeightStore(path string) (*DuckDBWeightStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb at %q: %w", path, err)
	}
	if _, err := db.Exec(duckdbSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DuckDBWeightStore{db: db}, nil
}

// LoadWeights implements recommend.WeightStore.
func (s *DuckDBWeightStore) LoadWeights(ctx context.Context, userID string) (map[recommend.Feature]float64, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT weights_json FROM user_weights WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading weights: %w", err)
	}

	var weights map[recommend.Feature]float64
	if err := json.Unmarshal([]byte(raw), &weights); err != nil {
		return nil, fmt.Errorf("decoding weights: %w", err)
	}
	return weights, nil
}

// SaveWeights implements recommend.WeightStore with last-writer-wins
// semantics.
func (s *DuckDBWeightStore) SaveWeights(ctx context.Context, userID string, weights map[recommend.Feature]float64) error {
	data, err := json.Marshal(weights)
	if err != nil {
		return fmt.Errorf("encoding weights: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_weights (user_id, weights_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			weights_json = excluded.weights_json,
			updated_at = excluded.updated_at`,
		userID, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving weights: %w", err)
	}
	return nil
}

// AppendAdjustment implements recommend.WeightStore.
func (s *DuckDBWeightStore) AppendAdjustment(ctx context.Context, userID string, adj recommend.Adjustment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weight_adjustments
			(user_id, feature, old_weight, new_weight, delta, reason, feedback_type, song_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, string(adj.Feature), adj.OldWeight, adj.NewWeight, adj.Delta,
		adj.Reason, string(adj.Feedback), adj.SongID, adj.Timestamp)
	if err != nil {
		return fmt.Errorf("appending adjustment: %w", err)
	}
	return nil
}

// Adjustments implements recommend.WeightStore, newest first.
func (s *DuckDBWeightStore) Adjustments(ctx context.Context, userID string, limit int) ([]recommend.Adjustment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT feature, old_weight, new_weight, delta, reason, feedback_type, song_id, created_at
		FROM weight_adjustments
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying adjustments: %w", err)
	}
	defer rows.Close()

	var out []recommend.Adjustment
	for rows.Next() {
		var adj recommend.Adjustment
		var feature, feedback string
		var reason, songID sql.NullString
		if err := rows.Scan(&feature, &adj.OldWeight, &adj.NewWeight, &adj.Delta,
			&reason, &feedback, &songID, &adj.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning adjustment: %w", err)
		}
		adj.Feature = recommend.Feature(feature)
		adj.Feedback = recommend.Feedback(feedback)
		adj.Reason = reason.String
		adj.SongID = songID.String
		out = append(out, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating adjustments: %w", err)
	}
	return out, nil
}

// FeedbackCount implements recommend.WeightStore.
func (s *DuckDBWeightStore) FeedbackCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count FROM user_feedback_counts WHERE user_id = ?`, userID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("loading feedback count: %w", err)
	}
	return count, nil
}

// IncrementFeedbackCount implements recommend.WeightStore.
func (s *DuckDBWeightStore) IncrementFeedbackCount(ctx context.Context, userID string) (int, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_feedback_counts (user_id, count)
		VALUES (?, 1)
		ON CONFLICT (user_id) DO UPDATE SET count = user_feedback_counts.count + 1`,
		userID)
	if err != nil {
		return 0, fmt.Errorf("incrementing feedback count: %w", err)
	}
	return s.FeedbackCount(ctx, userID)
}

// Close closes the database.
func (s *DuckDBWeightStore) Close() error {
	return s.db.Close()
}
