package converter

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	execute "github.com/alexellis/go-execute/v2"
	"go.uber.org/zap"
)

// ErrUnavailable means a conversion needs an external engine that was not
// found on this host at startup.
var ErrUnavailable = errors.New("converter engine unavailable")

// lookPath resolves the first available binary from candidates, honoring
// an explicit override from configuration. Empty means not installed;
// callers must check before dispatching.
func lookPath(override string, candidates ...string) string {
	if override != "" {
		return override
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// runEngine executes an external conversion engine and returns its stdout.
// A non-zero exit is an error carrying the engine's stderr.
func runEngine(ctx context.Context, logger *zap.Logger, bin string, args ...string) (string, error) {
	logger.Debug("running engine",
		zap.String("bin", bin),
		zap.Strings("args", args),
	)
	task := execute.ExecTask{
		Command: bin,
		Args:    args,
	}
	res, err := task.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", bin, err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("%s exited with %d: %s", bin, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, nil
}
