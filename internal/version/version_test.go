package version

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if BuildTime == "" || GitCommit == "" {
		t.Error("build info should be initialized")
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "sitelinks ") {
		t.Errorf("unexpected banner %q", s)
	}
	if !strings.Contains(s, GitCommit) {
		t.Errorf("banner should include commit, got %q", s)
	}
}
