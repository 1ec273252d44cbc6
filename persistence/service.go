package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lixenwraith/airbladder/config"
)

// StorageService owns the backend and the shared Store
type StorageService struct {
	cfg     config.StorageConfig
	logger  *slog.Logger
	backend Backend
	store   *Store
}

// NewService creates a storage service for cfg
func NewService(cfg config.StorageConfig, logger *slog.Logger) *StorageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageService{cfg: cfg, logger: logger}
}

// Name implements Service
func (s *StorageService) Name() string {
	return "storage"
}

// Dependencies implements Service
func (s *StorageService) Dependencies() []string {
	return nil
}

// Init implements Service
// Opens the configured backend
func (s *StorageService) Init(args ...any) error {
	backend, err := Open(s.cfg, s.logger)
	if err != nil {
		return fmt.Errorf("opening %s backend: %w", s.cfg.Backend, err)
	}
	s.backend = backend
	s.store = NewStore(backend, s.logger)
	return nil
}

// Start implements Service
// Loads saved air state into the store
func (s *StorageService) Start() error {
	if s.store == nil {
		return fmt.Errorf("storage not initialized")
	}
	return s.store.Load(context.Background())
}

// Stop implements Service
func (s *StorageService) Stop() error {
	if s.backend == nil {
		return nil
	}
	err := s.backend.Close()
	s.backend = nil
	return err
}

// Store returns the shared store, nil before Init
func (s *StorageService) Store() *Store {
	return s.store
}

// Backend returns the open backend for callers storing their own documents, nil before Init or after Stop
func (s *StorageService) Backend() Backend {
	return s.backend
}
