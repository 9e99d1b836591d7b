// Package settings persists the two durable operator settings across
// sessions: the network-enabled flag and the default canary percentage.
package settings

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/canarystack/canary-engine/internal/utils"
)

type state struct {
	NetworkEnabled       bool `yaml:"networkEnabled"`
	DefaultCanaryPercent int  `yaml:"defaultCanaryPercent"`
}

func defaultState() state {
	return state{NetworkEnabled: true, DefaultCanaryPercent: 5}
}

// Store is a YAML-file-backed settings store. Every setter writes through to
// disk before returning. An empty path keeps the store in memory only.
type Store struct {
	mu    sync.Mutex
	path  string
	state state
}

// Open loads the settings file at path, falling back to defaults when it does
// not exist yet.
func Open(path string) (*Store, error) {
	store := &Store{path: path, state: defaultState()}
	if path == "" {
		return store, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store, nil
		}
		return nil, utils.NewAppError("settings.Open", "read settings file", err)
	}
	if err := yaml.Unmarshal(data, &store.state); err != nil {
		return nil, utils.NewAppError("settings.Open", "parse settings file", err)
	}
	return store, nil
}

// NetworkEnabled reports the persisted network flag.
func (s *Store) NetworkEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.NetworkEnabled
}

// SetNetworkEnabled persists the network flag.
func (s *Store) SetNetworkEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.state
	s.state.NetworkEnabled = enabled
	if err := s.flush(); err != nil {
		s.state = previous
		return err
	}
	return nil
}

// DefaultCanaryPercent reports the persisted default traffic split.
func (s *Store) DefaultCanaryPercent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DefaultCanaryPercent
}

// SetDefaultCanaryPercent persists the default traffic split. Validation is
// the engine's responsibility.
func (s *Store) SetDefaultCanaryPercent(percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.state
	s.state.DefaultCanaryPercent = percent
	if err := s.flush(); err != nil {
		s.state = previous
		return err
	}
	return nil
}

func (s *Store) flush() error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(s.state)
	if err != nil {
		return utils.NewAppError("settings.flush", "encode settings", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return utils.NewAppError("settings.flush", "create settings directory", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return utils.NewAppError("settings.flush", "write settings file", err)
	}
	return nil
}
