package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/codebuildervaibhav/quizsplice/internal/logger"
)

// Runner executes an external binary and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExitError is returned when a binary exits non-zero.
type ExitError struct {
	Name     string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", e.Name, e.ExitCode, e.Stderr)
}

// ExecRunner runs binaries with os/exec.
type ExecRunner struct {
	log *logger.Logger
}

// NewExecRunner creates a runner that logs each invocation at debug level.
func NewExecRunner(log *logger.Logger) *ExecRunner {
	return &ExecRunner{log: log.With("component", "ExecRunner")}
}

// Run spawns name with args and waits for it. No timeout is applied beyond ctx.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("running command", "name", name, "args", strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &ExitError{
				Name:     name,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return stdout.String(), fmt.Errorf("failed to start %s: %w", name, err)
	}

	return stdout.String(), nil
}
