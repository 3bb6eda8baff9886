package version

import (
	"encoding/json"
	"runtime"
	"strings"
	"testing"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	if info.Version == "" {
		t.Error("expected non-empty version")
	}
	if info.GoVersion == "" {
		t.Error("expected non-empty go version")
	}
	if !strings.Contains(info.Platform, runtime.GOOS) {
		t.Errorf("expected platform to contain %s, got %s", runtime.GOOS, info.Platform)
	}
}

func TestString(t *testing.T) {
	originalCommit := Commit
	defer func() { Commit = originalCommit }()

	Commit = "unknown"
	if s := String(); !strings.HasPrefix(s, ApplicationName+" version") {
		t.Errorf("expected string to start with application name, got %s", s)
	}

	Commit = "0123456789abcdef"
	if s := String(); !strings.Contains(s, "commit: 01234567") {
		t.Errorf("expected short commit in string, got %s", s)
	}
}

func TestShort(t *testing.T) {
	originalVersion, originalCommit := Version, Commit
	defer func() { Version, Commit = originalVersion, originalCommit }()

	Version = "1.0.0"
	Commit = "unknown"
	if s := Short(); s != "1.0.0" {
		t.Errorf("expected '1.0.0', got %s", s)
	}

	Commit = "0123456789abcdef"
	if s := Short(); s != "1.0.0 (01234567)" {
		t.Errorf("expected '1.0.0 (01234567)', got %s", s)
	}
}

func TestJSON(t *testing.T) {
	var info Info
	if err := json.Unmarshal([]byte(JSON()), &info); err != nil {
		t.Fatalf("expected valid JSON: %v", err)
	}
	if info.Version != Version {
		t.Errorf("expected version %s, got %s", Version, info.Version)
	}
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent()

	if !strings.HasPrefix(ua, ApplicationName+"/") {
		t.Errorf("expected user agent to start with %s/, got %s", ApplicationName, ua)
	}
}
