package deps

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/matzehuels/depscope/pkg/errors"
)

// Runner executes an external tool in dir and returns its standard output.
//
// Audit tools exit non-zero when they find vulnerabilities, so a Runner
// returns the output together with an *exec.ExitError in that case; callers
// decide whether the output is still usable.
type Runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// ExecRunner runs tools with os/exec.
func ExecRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, errors.Wrap(errors.ErrCodeToolFailed, err, "%s is not installed", name).
			WithHint("install %s and make sure it is on PATH", name)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return stdout.Bytes(), &ToolError{Tool: name, Stderr: strings.TrimSpace(stderr.String()), Err: err}
		}
		return nil, errors.Wrap(errors.ErrCodeToolFailed, err, "run %s", name)
	}
	return stdout.Bytes(), nil
}

// ToolError reports a tool that ran but exited non-zero.
type ToolError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Stderr != "" {
		return e.Tool + ": " + e.Err.Error() + ": " + e.Stderr
	}
	return e.Tool + ": " + e.Err.Error()
}

func (e *ToolError) Unwrap() error { return e.Err }

// RunAudit runs an audit tool and returns output worth decoding. A non-zero
// exit with output on stdout is treated as "vulnerabilities found"; a
// non-zero exit with no output, or a tool that cannot start, is TOOL_FAILED.
func RunAudit(ctx context.Context, run Runner, dir, name string, args ...string) ([]byte, error) {
	if run == nil {
		run = ExecRunner
	}
	out, err := run(ctx, dir, name, args...)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var te *ToolError
	if errors.As(err, &te) && len(bytes.TrimSpace(out)) > 0 {
		return out, nil
	}
	if errors.Is(err, errors.ErrCodeToolFailed) {
		return nil, err
	}
	return nil, errors.Wrap(errors.ErrCodeToolFailed, err, "%s failed", name)
}
