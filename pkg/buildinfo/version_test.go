package buildinfo

import (
	"strings"
	"testing"
)

func TestUserAgent(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "v0.3.0"
	if got := UserAgent(); !strings.HasPrefix(got, "depscope/v0.3.0 ") {
		t.Errorf("UserAgent() = %q", got)
	}
}

func TestTemplate(t *testing.T) {
	if got := Template(); !strings.Contains(got, "commit: "+Commit) {
		t.Errorf("Template() = %q", got)
	}
}
