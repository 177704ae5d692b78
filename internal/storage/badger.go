// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/resonata/resonata/internal/recommend"
)

// Key prefixes for BadgerDB storage.
const (
	weightsKeyPrefix   = "weights:"
	adjustKeyPrefix    = "adjust:"
	adjustSeqKeyPrefix = "adjustseq:"
	fbCountKeyPrefix   = "fbcount:"
)

// BadgerWeightStore implements recommend.WeightStore on BadgerDB,
// persisting weight profiles across restarts.
type BadgerWeightStore struct {
	db *badger.DB
}

var _ recommend.WeightStore = (*BadgerWeightStore)(nil)

// NewBadgerWeightStore creates a store on an opened BadgerDB handle.
// The store does not own the handle; Close is a no-op so several
// stores can share one database.
func NewBadgerWeightStore(db *badger.DB) *BadgerWeightStore {
	return &BadgerWeightStore{db: db}
}

// OpenBadgerWeightStore opens (or creates) a BadgerDB at path and
// wraps it in a weight store that owns the handle.
func OpenBadgerWeightStore(path string) (*OwnedBadgerWeightStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", path, err)
	}
	return &OwnedBadgerWeightStore{BadgerWeightStore: BadgerWeightStore{db: db}}, nil
}

// OwnedBadgerWeightStore is a BadgerWeightStore that closes its
// database handle on Close.
type OwnedBadgerWeightStore struct {
	BadgerWeightStore
}

// Close closes the underlying database.
func (s *OwnedBadgerWeightStore) Close() error {
	return s.db.Close()
}

// LoadWeights implements recommend.WeightStore.
func (s *BadgerWeightStore) LoadWeights(_ context.Context, userID string) (map[recommend.Feature]float64, error) {
	var weights map[recommend.Feature]float64

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(weightsKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get weights: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &weights)
		})
	})
	if err != nil {
		return nil, err
	}
	return weights, nil
}

// SaveWeights implements recommend.WeightStore with last-writer-wins
// semantics.
func (s *BadgerWeightStore) SaveWeights(_ context.Context, userID string, weights map[recommend.Feature]float64) error {
	data, err := json.Marshal(weights)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(weightsKeyPrefix+userID), data)
	})
}

// AppendAdjustment implements recommend.WeightStore. Adjustments are
// keyed by a per-user monotonic sequence so prefix iteration returns
// them in insertion order.
func (s *BadgerWeightStore) AppendAdjustment(_ context.Context, userID string, adj recommend.Adjustment) error {
	data, err := json.Marshal(adj)
	if err != nil {
		return fmt.Errorf("marshal adjustment: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		seq, err := nextSeq(txn, userID)
		if err != nil {
			return err
		}
		key := []byte(fmt.Sprintf("%s%s:%012d", adjustKeyPrefix, userID, seq))
		return txn.Set(key, data)
	})
}

// nextSeq increments and returns the per-user adjustment sequence
// inside txn.
func nextSeq(txn *badger.Txn, userID string) (uint64, error) {
	key := []byte(adjustSeqKeyPrefix + userID)
	var seq uint64

	item, err := txn.Get(key)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		seq = 0
	case err != nil:
		return 0, fmt.Errorf("get sequence: %w", err)
	default:
		if err := item.Value(func(val []byte) error {
			if len(val) == 8 {
				seq = binary.BigEndian.Uint64(val)
			}
			return nil
		}); err != nil {
			return 0, err
		}
	}

	seq++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	if err := txn.Set(key, buf); err != nil {
		return 0, fmt.Errorf("set sequence: %w", err)
	}
	return seq, nil
}

// Adjustments implements recommend.WeightStore, newest first.
func (s *BadgerWeightStore) Adjustments(_ context.Context, userID string, limit int) ([]recommend.Adjustment, error) {
	prefix := []byte(adjustKeyPrefix + userID + ":")
	out := make([]recommend.Adjustment, 0, limit)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts past the prefix range.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			var adj recommend.Adjustment
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &adj)
			}); err != nil {
				return err
			}
			out = append(out, adj)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FeedbackCount implements recommend.WeightStore.
func (s *BadgerWeightStore) FeedbackCount(_ context.Context, userID string) (int, error) {
	var count uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(fbCountKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get feedback count: %w", err)
		}
		return item.Value(func(val []byte) error {
			if len(val) == 8 {
				count = binary.BigEndian.Uint64(val)
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// IncrementFeedbackCount implements recommend.WeightStore.
func (s *BadgerWeightStore) IncrementFeedbackCount(_ context.Context, userID string) (int, error) {
	key := []byte(fbCountKeyPrefix + userID)
	var count uint64

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return fmt.Errorf("get feedback count: %w", err)
		default:
			if err := item.Value(func(val []byte) error {
				if len(val) == 8 {
					count = binary.BigEndian.Uint64(val)
				}
				return nil
			}); err != nil {
				return err
			}
		}

		count++
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, count)
		return txn.Set(key, buf)
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// Close implements recommend.WeightStore. The shared handle is owned
// by the caller.
func (s *BadgerWeightStore) Close() error { return nil }
