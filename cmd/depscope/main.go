package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/depscope/internal/cli"
	"github.com/matzehuels/depscope/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()
	root.SilenceErrors = true

	if err := root.ExecuteContext(ctx); err != nil {
		if stderrors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		fmt.Fprintln(os.Stderr, "error:", errors.UserMessage(err))
		if hint := errors.GetHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps error codes to process exit statuses so scripts can tell
// bad input from a missing package or a failing registry.
func exitCode(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeUnsupported:
		return 2
	case errors.ErrCodeNotFound:
		return 3
	case errors.ErrCodeNetwork, errors.ErrCodeDecompress:
		return 4
	case errors.ErrCodeToolFailed:
		return 5
	default:
		return 1
	}
}
