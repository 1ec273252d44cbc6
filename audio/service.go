package audio

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/lixenwraith/airbladder/config"
)

// AudioService wraps Bank as a Service
// Handles graceful degradation when no output device is available
type AudioService struct {
	cfg      config.AudioConfig
	logger   *slog.Logger
	bank     *Bank
	disabled atomic.Bool
}

// NewService creates a new audio service
func NewService(cfg config.AudioConfig, logger *slog.Logger) *AudioService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AudioService{cfg: cfg, logger: logger}
}

// Name implements Service
func (s *AudioService) Name() string {
	return "audio"
}

// Dependencies implements Service
func (s *AudioService) Dependencies() []string {
	return nil
}

// Init implements Service
// Decodes clips; missing clips leave their sound silent (no error returned)
func (s *AudioService) Init(args ...any) error {
	if !s.cfg.Enabled {
		s.disabled.Store(true)
		return nil
	}

	s.bank = NewBank(OptionsFromConfig(s.cfg), s.logger)
	if failed := decodeFailures(s.bank.Load()); len(failed) > 0 {
		s.logger.Warn("audio clips failed to decode", "count", len(failed), "error", errors.Join(failed...))
	}
	return nil
}

// decodeFailures keeps the entries of a joined Load error that are not missing clips
func decodeFailures(err error) []error {
	if err == nil {
		return nil
	}
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}

	var out []error
	for _, e := range errs {
		if !errors.Is(e, ErrClipMissing) {
			out = append(out, e)
		}
	}
	return out
}

// Start implements Service
// Opens the speaker; sets disabled on failure (no error returned)
func (s *AudioService) Start() error {
	if s.disabled.Load() || s.bank == nil {
		return nil
	}

	if err := s.bank.Start(); err != nil {
		s.logger.Warn("audio output unavailable, continuing silent", "error", err)
		s.disabled.Store(true)
		s.bank = nil
	}
	return nil
}

// Stop implements Service
func (s *AudioService) Stop() error {
	if s.bank != nil {
		s.bank.Close()
	}
	return nil
}

// IsDisabled returns true if audio is unavailable
func (s *AudioService) IsDisabled() bool {
	return s.disabled.Load()
}

// Bank returns the live bank, nil when audio is disabled
func (s *AudioService) Bank() *Bank {
	if s.disabled.Load() {
		return nil
	}
	return s.bank
}
