package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"sync"
)

// Reporter is a live device that can report its current air level
type Reporter interface {
	ID() string
	Remaining() float64
}

// Store maps vehicle identity to remaining air
type Store struct {
	mu      sync.Mutex
	records map[string]float64
	backend Backend
	logger  *slog.Logger
}

// NewStore creates an empty store over backend
// A nil backend keeps the store memory-only; Flush and Load become no-ops
func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		records: make(map[string]float64),
		backend: backend,
		logger:  logger.With("component", "persistence"),
	}
}

// Restore returns the saved air for key
func (s *Store) Restore(key string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[key]
	return v, ok
}

// Update upserts the air for key
func (s *Store) Update(key string, value float64) {
	if key == "" || math.IsNaN(value) {
		return
	}
	s.mu.Lock()
	s.records[key] = value
	s.mu.Unlock()
}

// Len returns the number of records held
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Snapshot returns a copy of all records
func (s *Store) Snapshot() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.records)
}

// Flush writes every record to the backend
func (s *Store) Flush(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	snapshot := s.Snapshot()
	data, err := encodeRecords(snapshot)
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, DocumentKey, data); err != nil {
		return fmt.Errorf("flushing air state: %w", err)
	}

	s.logger.Debug("air state flushed", "records", len(snapshot))
	return nil
}

// CollectAndFlush captures the live devices' air levels, then flushes
func (s *Store) CollectAndFlush(ctx context.Context, live []Reporter) error {
	for _, r := range live {
		s.Update(r.ID(), r.Remaining())
	}
	return s.Flush(ctx)
}

// Load merges the backend document into memory
// Records already held in memory are newer and win
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	data, err := s.backend.Load(ctx, DocumentKey)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading air state: %w", err)
	}

	loaded, err := decodeRecords(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for id, v := range loaded {
		if _, held := s.records[id]; !held {
			s.records[id] = v
		}
	}
	s.mu.Unlock()

	s.logger.Info("air state loaded", "records", len(loaded))
	return nil
}
