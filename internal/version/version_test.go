package version_test

import (
	"strings"
	"testing"

	"github.com/decklive/decklive-bridge/internal/version"
)

func TestVersionInfo(t *testing.T) {
	if version.Version == "" {
		t.Error("Version should not be empty")
	}
	if version.Name != "decklive" {
		t.Errorf("Expected name 'decklive', got '%s'", version.Name)
	}
}

func TestGetInfo(t *testing.T) {
	info := version.GetInfo()

	if info.Name != version.Name {
		t.Errorf("Expected name '%s', got '%s'", version.Name, info.Name)
	}
	if info.Version != version.Version {
		t.Errorf("Expected version '%s', got '%s'", version.Version, info.Version)
	}
}

func TestString(t *testing.T) {
	info := version.GetInfo()
	str := info.String()

	if !strings.Contains(str, version.Name) || !strings.Contains(str, version.Version) {
		t.Errorf("String() should contain name and version: %s", str)
	}
}

func TestStringWithCommit(t *testing.T) {
	info := version.Info{Name: "decklive", Version: "1.2.3", GitCommit: "abcdef0123456789"}
	str := info.String()

	if !strings.Contains(str, "abcdef0") {
		t.Errorf("String() should contain the short commit: %s", str)
	}
	if strings.Contains(str, "abcdef01") {
		t.Errorf("String() should truncate the commit to 7 chars: %s", str)
	}
}
