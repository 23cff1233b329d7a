package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds per-technology watcher settings loaded from YAML.
type Settings struct {
	// Technologies enabled for the scan loop, in run order.
	Technologies []string `yaml:"technologies"`
	// Regions slurped by regional watchers.
	Regions []string `yaml:"regions"`
	// Accounts watched. Identifier is the 12-digit AWS account number.
	Accounts []AccountSettings `yaml:"accounts"`
	// Ephemeral lists config paths excluded from change detection,
	// keyed by technology name.
	Ephemeral map[string][]string `yaml:"ephemeral"`
	// Ignore lists item name prefixes skipped per technology.
	Ignore map[string][]string `yaml:"ignore"`
}

// AccountSettings describes one watched account.
type AccountSettings struct {
	Name       string `yaml:"name"`
	Identifier string `yaml:"identifier"`
	Notes      string `yaml:"notes"`
	Active     bool   `yaml:"active"`
	ThirdParty bool   `yaml:"third_party"`
	// NotifyEmails receive the account's periodic issue report.
	NotifyEmails []string `yaml:"notify_emails"`
}

// LoadSettings reads watcher settings from a YAML file.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}

	if len(s.Regions) == 0 {
		s.Regions = []string{"us-east-1"}
	}

	return &s, nil
}

// EphemeralPaths returns the ephemeral config paths for a technology.
func (s *Settings) EphemeralPaths(technology string) []string {
	if s.Ephemeral == nil {
		return nil
	}
	return s.Ephemeral[technology]
}

// IgnorePrefixes returns the ignored item name prefixes for a technology.
func (s *Settings) IgnorePrefixes(technology string) []string {
	if s.Ignore == nil {
		return nil
	}
	return s.Ignore[technology]
}
