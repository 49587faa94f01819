// Package store is the durable local key-value store shared by the sync orchestrator and
// every UI surface. Values are JSON documents; each Set is one badger transaction.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"

	"github.com/takak2166/promptsync/internal/logger"
)

// namespace prefixes every key so the change feed can match on it
const namespace = "local/"

// Change is one key written to the store, as delivered by Watch
type Change struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Store wraps a Badger database instance.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil      // Disable Badger's internal logging
	opts.SyncWrites = true // Settings and libraries are small; durability matters more

	return open(opts)
}

// OpenInMemory opens a store that lives only as long as the process. Used by tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	logger.Debug("Local store opened", map[string]interface{}{
		"path":      opts.Dir,
		"in_memory": opts.InMemory,
	})

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw JSON value of each requested key that exists. Missing keys are absent
// from the result, not errors.
func (s *Store) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(keys))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get([]byte(namespace + key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("get %s: %w", key, err)
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read %s: %w", key, err)
			}
			out[key] = val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set writes every key in values in a single transaction. Readers see all or none of them.
func (s *Store) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded := make(map[string][]byte, len(values))
	for key, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", key, err)
		}
		encoded[key] = data
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for key, data := range encoded {
			if err := txn.Set([]byte(namespace+key), data); err != nil {
				return fmt.Errorf("set %s: %w", key, err)
			}
		}
		return nil
	})
}

// Watch calls fn for every key written after Watch starts, until ctx is done or fn returns
// an error. Only keys in keys are reported; with no keys every write is reported.
func (s *Store) Watch(ctx context.Context, fn func(Change) error, keys ...string) error {
	matches := []pb.Match{{Prefix: []byte(namespace)}}
	if len(keys) > 0 {
		matches = make([]pb.Match, 0, len(keys))
		for _, key := range keys {
			matches = append(matches, pb.Match{Prefix: []byte(namespace + key)})
		}
	}

	err := s.db.Subscribe(ctx, func(kvs *badger.KVList) error {
		for _, kv := range kvs.Kv {
			key := strings.TrimPrefix(string(kv.Key), namespace)
			if len(keys) > 0 && !slices.Contains(keys, key) {
				// Prefix matched a longer key, e.g. "libraries" vs "librariesBackup"
				continue
			}
			if err := fn(Change{Key: key, Value: kv.Value}); err != nil {
				return err
			}
		}
		return nil
	}, matches)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// getJSON decodes key into dest. It reports whether the key existed.
func (s *Store) getJSON(ctx context.Context, key string, dest any) (bool, error) {
	vals, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	raw, ok := vals[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}
