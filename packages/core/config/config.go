// Package config holds the immutable settings context threaded into request
// building: device address, credentials, timeout and file locations. Nothing
// in the engine mutates a Settings after load.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings is the devprobe configuration. JSON and YAML files are both
// accepted; CLI flags override file values field by field.
type Settings struct {
	DeviceIP     string  `json:"deviceIP,omitempty" yaml:"deviceIP,omitempty"`
	Username     string  `json:"username,omitempty" yaml:"username,omitempty"`
	Password     string  `json:"password,omitempty" yaml:"password,omitempty"`
	TimeoutMS    int     `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	UseTLS       *bool   `json:"useTLS,omitempty" yaml:"useTLS,omitempty"`
	SimpleFormat *bool   `json:"simpleFormat,omitempty" yaml:"simpleFormat,omitempty"`
	PresetsFile  string  `json:"presetsFile,omitempty" yaml:"presetsFile,omitempty"`
	ConfigsDir   string  `json:"configsDir,omitempty" yaml:"configsDir,omitempty"`
	LogsDir      string  `json:"logsDir,omitempty" yaml:"logsDir,omitempty"`
	HistoryDB    string  `json:"historyDB,omitempty" yaml:"historyDB,omitempty"`
	StepRate     float64 `json:"stepRate,omitempty" yaml:"stepRate,omitempty"` // batch steps per second, 0 = unpaced
	NoColor      *bool   `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// SettingsFilenames contains the config file names searched in order.
var SettingsFilenames = []string{
	".devprobe.config.json",
	"devprobe.config.json",
	".devprobe.yaml",
	"devprobe.yaml",
}

// Default returns a Settings with the stock values.
func Default() *Settings {
	return &Settings{
		TimeoutMS:    10000, // 10 seconds, matching device session limits
		UseTLS:       boolPtr(false),
		SimpleFormat: boolPtr(false),
		PresetsFile:  "presets.json",
		ConfigsDir:   "json_configs",
		LogsDir:      "logs",
		HistoryDB:    "devprobe.db",
		StepRate:     0,
		NoColor:      boolPtr(false),
	}
}

func boolPtr(b bool) *bool { return &b }

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetUseTLS reports whether requests use https, defaulting to false.
func (s *Settings) GetUseTLS() bool { return getBool(s.UseTLS, false) }

// GetSimpleFormat reports whether the format=simple toggle is appended.
func (s *Settings) GetSimpleFormat() bool { return getBool(s.SimpleFormat, false) }

// GetNoColor reports whether colored output is disabled.
func (s *Settings) GetNoColor() bool { return getBool(s.NoColor, false) }

// Scheme returns the URL scheme for device requests.
func (s *Settings) Scheme() string {
	if s.GetUseTLS() {
		return "https"
	}
	return "http"
}

// ValidateDevice checks the fields required before any request can be built.
func (s *Settings) ValidateDevice() error {
	if s.DeviceIP == "" {
		return fmt.Errorf("device IP required")
	}
	if net.ParseIP(s.DeviceIP) == nil {
		// Allow host:port and hostnames for lab DNS setups.
		if host, _, err := net.SplitHostPort(s.DeviceIP); err != nil || host == "" {
			if strings.ContainsAny(s.DeviceIP, " /?#") {
				return fmt.Errorf("invalid device address %q", s.DeviceIP)
			}
		}
	}
	if s.Username == "" {
		return fmt.Errorf("username required for digest authentication")
	}
	return nil
}

// Load reads settings from the given path, or searches the current directory
// when path is empty. A missing file yields defaults, not an error.
func Load(path string) (*Settings, error) {
	if path != "" {
		return loadFile(path)
	}
	return FindAndLoad(".")
}

// FindAndLoad searches dir for a settings file and loads the first match.
func FindAndLoad(dir string) (*Settings, error) {
	for _, name := range SettingsFilenames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return loadFile(p)
		}
	}
	return Default(), nil
}

func loadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return s, nil
}

// Merge overlays other onto s, with other taking precedence, and returns the
// result. Neither input is modified.
func (s *Settings) Merge(other *Settings) *Settings {
	if other == nil {
		return s
	}

	result := *s

	if other.DeviceIP != "" {
		result.DeviceIP = other.DeviceIP
	}
	if other.Username != "" {
		result.Username = other.Username
	}
	if other.Password != "" {
		result.Password = other.Password
	}
	if other.TimeoutMS > 0 {
		result.TimeoutMS = other.TimeoutMS
	}
	if other.PresetsFile != "" {
		result.PresetsFile = other.PresetsFile
	}
	if other.ConfigsDir != "" {
		result.ConfigsDir = other.ConfigsDir
	}
	if other.LogsDir != "" {
		result.LogsDir = other.LogsDir
	}
	if other.HistoryDB != "" {
		result.HistoryDB = other.HistoryDB
	}
	if other.StepRate > 0 {
		result.StepRate = other.StepRate
	}

	if other.UseTLS != nil {
		result.UseTLS = other.UseTLS
	}
	if other.SimpleFormat != nil {
		result.SimpleFormat = other.SimpleFormat
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	return &result
}

// Save writes the settings as indented JSON.
func (s *Settings) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
