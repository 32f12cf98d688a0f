package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Preferences are the user-facing switches kept between runs.
type Preferences struct {
	OnboardingSeen   bool `yaml:"onboarding_seen" json:"onboardingSeen"`
	ShortcutsEnabled bool `yaml:"shortcuts_enabled" json:"shortcutsEnabled"`
}

// DefaultPreferences is what a fresh install starts with.
func DefaultPreferences() Preferences {
	return Preferences{ShortcutsEnabled: true}
}

// PreferencesStore keeps Preferences in a YAML file. It is read once on open
// and rewritten on every change.
type PreferencesStore struct {
	mu    sync.RWMutex
	path  string
	prefs Preferences
}

// OpenPreferences loads path, falling back to defaults when the file does
// not exist yet.
func OpenPreferences(path string) (*PreferencesStore, error) {
	s := &PreferencesStore{path: path, prefs: DefaultPreferences()}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read preferences: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.prefs); err != nil {
		return nil, fmt.Errorf("parse preferences %s: %w", path, err)
	}
	return s, nil
}

func (s *PreferencesStore) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Set replaces the preferences and persists them.
func (s *PreferencesStore) Set(p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(p); err != nil {
		return err
	}
	s.prefs = p
	return nil
}

// Update applies fn to a copy of the current preferences and persists the
// result.
func (s *PreferencesStore) Update(fn func(*Preferences)) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.prefs
	fn(&next)
	if err := s.write(next); err != nil {
		return s.prefs, err
	}
	s.prefs = next
	return next, nil
}

func (s *PreferencesStore) write(p Preferences) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create preferences dir %q: %w", dir, err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}
