package media

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/codebuildervaibhav/quizsplice/internal/logger"
)

func TestExecRunner(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	r := NewExecRunner(logger.Nop())
	ctx := context.Background()

	out, err := r.Run(ctx, "sh", "-c", "echo hello; echo noise 1>&2")
	if err != nil {
		t.Fatal(err)
	}
	if out != "hello\n" {
		t.Errorf("stdout = %q", out)
	}

	_, err = r.Run(ctx, "sh", "-c", "echo broken input 1>&2; exit 3")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.ExitCode != 3 || exitErr.Stderr != "broken input" {
		t.Errorf("unexpected exit error %+v", exitErr)
	}

	if _, err := r.Run(ctx, "definitely-not-a-binary-xyz"); err == nil || errors.As(err, &exitErr) {
		t.Errorf("missing binary should be a start error, got %v", err)
	}
}
