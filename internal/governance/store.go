package governance

import (
	"fmt"
	"sync/atomic"
)

// Store holds the active Config. Readers always see a complete Config;
// replacing it is a single pointer swap.
type Store struct {
	current atomic.Pointer[Config]
}

// NewStore creates a store holding cfg, or DefaultConfig when cfg is nil.
func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Store{}
	s.current.Store(cfg)
	return s
}

// Config returns the active configuration.
func (s *Store) Config() *Config {
	return s.current.Load()
}

// Replace publishes cfg and returns the configuration it replaced.
func (s *Store) Replace(cfg *Config) (*Config, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	return s.current.Swap(cfg), nil
}

// Reload builds a new configuration with load and publishes it. On failure
// the active configuration is left untouched.
func (s *Store) Reload(load func() (*Config, error)) (*Config, error) {
	cfg, err := load()
	if err != nil {
		return s.Config(), fmt.Errorf("reload governance config: %w", err)
	}
	if cfg == nil {
		return s.Config(), fmt.Errorf("reload governance config: %w", ErrNilConfig)
	}
	s.current.Store(cfg)
	return cfg, nil
}

// Apply governs payload under the active configuration.
func (s *Store) Apply(payload Payload) (GovernedResult, error) {
	return Apply(payload, s.Config())
}

// Validate checks data against the active configuration's required fields.
func (s *Store) Validate(data Fields) ValidationResult {
	return s.Config().Validate(data)
}
