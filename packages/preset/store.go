package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Store loads presets from a JSON file and payload params from a configs
// directory. It is safe for concurrent readers; Load and Add take the write
// lock.
type Store struct {
	path       string
	configsDir string

	mu      sync.RWMutex
	presets []Preset
}

// NewStore creates a store over the given presets file and configs dir.
// Call Load before reading.
func NewStore(path, configsDir string) *Store {
	return &Store{path: path, configsDir: configsDir}
}

// Path returns the presets file path.
func (s *Store) Path() string { return s.path }

// Load reads and validates the presets file. A missing file loads as an
// empty store; a malformed one is an error, never silently reset.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.presets = nil
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading presets: %w", err)
	}

	if err := ValidateDocument(data); err != nil {
		return fmt.Errorf("presets file %s: %w", s.path, err)
	}

	var presets []Preset
	if err := json.Unmarshal(data, &presets); err != nil {
		return fmt.Errorf("parsing presets: %w", err)
	}
	for i := range presets {
		if err := presets[i].Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.presets = presets
	s.mu.Unlock()
	return nil
}

// Save writes the presets file as indented JSON.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.presets, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0644)
}

// All returns a copy of every preset in file order.
func (s *Store) All() []Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Preset, len(s.presets))
	copy(out, s.presets)
	return out
}

// Get returns the preset with the given name.
func (s *Store) Get(name string) (Preset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// Names returns all preset names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.presets))
	for _, p := range s.presets {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Filter returns presets matching the mode and a case-insensitive name
// substring. An empty search matches everything.
func (s *Store) Filter(mode Mode, search string) []Preset {
	search = strings.ToLower(search)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Preset
	for _, p := range s.presets {
		if p.Mode != mode {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Add inserts a preset, replacing any existing one with the same name.
func (s *Store) Add(p Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.presets {
		if s.presets[i].Name == p.Name {
			s.presets[i] = p
			return nil
		}
	}
	s.presets = append(s.presets, p)
	return nil
}

// LoadPayload reads the preset's params file. Presets without a payload
// yield nil. The path is confined to the configs directory.
func (s *Store) LoadPayload(p Preset) (json.RawMessage, error) {
	if p.PayloadFile == "" {
		return nil, nil
	}

	clean := filepath.Clean(strings.ReplaceAll(p.PayloadFile, "\\", "/"))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("preset %q: payload file %q escapes configs dir", p.Name, p.PayloadFile)
	}

	data, err := os.ReadFile(filepath.Join(s.configsDir, clean))
	if err != nil {
		return nil, fmt.Errorf("preset %q: %w", p.Name, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("preset %q: payload file %s is not valid JSON", p.Name, clean)
	}
	return data, nil
}
