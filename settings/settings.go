// Package settings persists the user's dubbing preferences: last-used
// voice, volume, speaking rate, and pitch.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	gap "github.com/muesli/go-app-paths"
	"gopkg.in/yaml.v3"
)

// Settings are the persisted dubbing preferences.
type Settings struct {
	Voice  string  `yaml:"voice"`
	Volume float64 `yaml:"volume"`
	Rate   float64 `yaml:"rate"`
	Pitch  float64 `yaml:"pitch"`
}

// Defaults returns the settings used before the user changes anything.
func Defaults() Settings {
	return Settings{
		Voice:  "",
		Volume: 1.0,
		Rate:   1.0,
		Pitch:  1.0,
	}
}

// Store reads and writes settings at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store at the given path. An empty path resolves
// to the per-user data directory.
func NewStore(path string) (*Store, error) {
	if path == "" {
		scope := gap.NewScope(gap.User, "capvox")
		dir, err := scope.DataPath("")
		if err != nil {
			return nil, fmt.Errorf("unable to resolve data directory: %w", err)
		}
		path = filepath.Join(dir, "settings.yml")
	}
	return &Store{path: path}, nil
}

// Load reads the persisted settings, returning Defaults when the file
// does not exist yet. Out-of-range values are clamped rather than
// rejected; a hand-edited file should not break startup.
func (s *Store) Load() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Defaults(), fmt.Errorf("unable to read settings: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Defaults(), fmt.Errorf("unable to parse settings: %w", err)
	}
	return clamp(cfg), nil
}

// Save writes the settings atomically (write then rename) so a crash
// never leaves a truncated file behind.
func (s *Store) Save(cfg Settings) error {
	cfg = clamp(cfg)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("unable to encode settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("unable to create settings directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("unable to write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("unable to replace settings: %w", err)
	}
	return nil
}

// Path returns where the settings live on disk.
func (s *Store) Path() string {
	return s.path
}

func clamp(cfg Settings) Settings {
	if cfg.Volume < 0 {
		cfg.Volume = 0
	}
	if cfg.Volume > 1 {
		cfg.Volume = 1
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 1.0
	}
	if cfg.Pitch <= 0 {
		cfg.Pitch = 1.0
	}
	return cfg
}
