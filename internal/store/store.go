// Package store is the JSON boundary between in-memory values and a
// model.Storage backend. Reads are fail-soft: a missing, unreadable or
// corrupted entry is reported as absent and never as an error.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/dtroode/moviecat/internal/logger"
	"github.com/dtroode/moviecat/internal/model"
)

// Store wraps a storage backend with JSON encoding.
type Store struct {
	storage model.Storage
	logger  *logger.Logger
}

// New creates a Store over storage.
func New(storage model.Storage, logger *logger.Logger) *Store {
	return &Store{
		storage: storage,
		logger:  logger,
	}
}

// Remove deletes key from the backend.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.storage.Remove(ctx, key); err != nil {
		return fmt.Errorf("failed to remove %q: %w", key, err)
	}
	return nil
}

// Load decodes the value stored under key. It reports false when the key is
// absent, when the stored value is JSON null or is not valid JSON for T, and
// when the backend read fails.
func Load[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var value T

	raw, ok, err := s.storage.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Store: failed to read key, treating as absent",
			"key", key,
			"error", err.Error())
		return value, false
	}
	if !ok {
		return value, false
	}

	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return value, false
	}

	if err := json.Unmarshal(data, &value); err != nil {
		s.logger.Warn("Store: discarding unreadable value",
			"key", key,
			"error", err.Error())
		var zero T
		return zero, false
	}

	return value, true
}

// Save encodes value and overwrites whatever is stored under key.
func Save[T any](ctx context.Context, s *Store, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}

	if err := s.storage.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}

	return nil
}
