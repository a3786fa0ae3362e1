package main

import (
	"fmt"
	"testing"

	"github.com/matzehuels/depscope/pkg/errors"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New(errors.ErrCodeInvalidInput, "bad flag"), 2},
		{errors.NotFound("package %q", "ghost"), 3},
		{fmt.Errorf("outdated: %w", errors.New(errors.ErrCodeNetwork, "503")), 4},
		{errors.New(errors.ErrCodeToolFailed, "cargo audit"), 5},
		{fmt.Errorf("plain"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
