package deps

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/matzehuels/depscope/pkg/errors"
)

func fakeRunner(out string, err error) Runner {
	return func(context.Context, string, string, ...string) ([]byte, error) {
		return []byte(out), err
	}
}

func TestRunAudit(t *testing.T) {
	exit := &ToolError{Tool: "npm", Err: stderrors.New("exit status 1")}

	tests := []struct {
		name    string
		run     Runner
		want    string
		wantErr bool
	}{
		{"clean", fakeRunner(`{"ok":true}`, nil), `{"ok":true}`, false},
		{"findings exit non-zero", fakeRunner(`{"vulns":1}`, exit), `{"vulns":1}`, false},
		{"failure without output", fakeRunner("  \n", exit), "", true},
		{"not installed", fakeRunner("", errors.New(errors.ErrCodeToolFailed, "npm is not installed")), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := RunAudit(context.Background(), tt.run, ".", "npm", "audit", "--json")
			if (err != nil) != tt.wantErr {
				t.Fatalf("RunAudit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errors.ErrCodeToolFailed) {
					t.Errorf("code = %s, want TOOL_FAILED", errors.GetCode(err))
				}
				return
			}
			if string(out) != tt.want {
				t.Errorf("RunAudit() = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestExecRunner_MissingTool(t *testing.T) {
	_, err := ExecRunner(context.Background(), ".", "depscope-no-such-tool")
	if !errors.Is(err, errors.ErrCodeToolFailed) {
		t.Fatalf("ExecRunner() error = %v, want TOOL_FAILED", err)
	}
	if errors.GetHint(err) == "" {
		t.Error("expected an install hint")
	}
}
