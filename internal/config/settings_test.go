package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return path
}

func TestLoadSettings(t *testing.T) {
	path := writeSettings(t, `
technologies:
  - securitygroup
  - iamuser
regions:
  - us-east-1
  - eu-west-1
accounts:
  - name: production
    identifier: "123456789012"
    active: true
  - name: vendor
    identifier: "210987654321"
    third_party: true
ephemeral:
  ec2instance:
    - state
    - launch_time
ignore:
  securitygroup:
    - test-
`)

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	if !reflect.DeepEqual(s.Technologies, []string{"securitygroup", "iamuser"}) {
		t.Errorf("technologies = %v", s.Technologies)
	}
	if !reflect.DeepEqual(s.Regions, []string{"us-east-1", "eu-west-1"}) {
		t.Errorf("regions = %v", s.Regions)
	}
	if len(s.Accounts) != 2 || s.Accounts[0].Identifier != "123456789012" || !s.Accounts[1].ThirdParty {
		t.Errorf("accounts = %+v", s.Accounts)
	}
	if got := s.EphemeralPaths("ec2instance"); !reflect.DeepEqual(got, []string{"state", "launch_time"}) {
		t.Errorf("ephemeral paths = %v", got)
	}
	if got := s.IgnorePrefixes("securitygroup"); !reflect.DeepEqual(got, []string{"test-"}) {
		t.Errorf("ignore prefixes = %v", got)
	}
}

func TestLoadSettingsDefaultRegion(t *testing.T) {
	path := writeSettings(t, "technologies:\n  - securitygroup\n")

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if !reflect.DeepEqual(s.Regions, []string{"us-east-1"}) {
		t.Errorf("regions = %v, want the default", s.Regions)
	}
}

func TestLoadSettingsErrors(t *testing.T) {
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeSettings(t, "technologies: [unclosed")
	if _, err := LoadSettings(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestSettingsNilMaps(t *testing.T) {
	s := &Settings{}
	if got := s.EphemeralPaths("ec2instance"); got != nil {
		t.Errorf("ephemeral paths = %v, want nil", got)
	}
	if got := s.IgnorePrefixes("securitygroup"); got != nil {
		t.Errorf("ignore prefixes = %v, want nil", got)
	}
}
