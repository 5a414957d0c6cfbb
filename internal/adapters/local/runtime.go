package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/ament-gradle/ament-gradle/internal/domain"
	"github.com/ament-gradle/ament-gradle/internal/ports"
)

// DefaultWaitDelay is how long a cancelled process gets to exit after the
// interrupt before it is killed.
const DefaultWaitDelay = 10 * time.Second

// Runtime runs invocations as child processes of the host. The zero value
// is ready to use.
type Runtime struct {
	WaitDelay time.Duration
}

func NewRuntime() *Runtime {
	return &Runtime{WaitDelay: DefaultWaitDelay}
}

var _ ports.ProcessRunner = (*Runtime)(nil)

// Run executes inv in inv.Dir with stdout and stderr merged into output.
func (r *Runtime) Run(ctx context.Context, inv domain.Invocation, output io.Writer) (int, error) {
	if len(inv.Args) == 0 {
		return -1, errors.New("empty invocation")
	}
	if inv.Dir != "" {
		if err := os.MkdirAll(inv.Dir, 0755); err != nil {
			return -1, fmt.Errorf("creating working directory: %w", err)
		}
	}

	cmd := exec.CommandContext(ctx, inv.Args[0], inv.Args[1:]...)
	cmd.Dir = inv.Dir
	cmd.Stdout = output
	cmd.Stderr = output
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = r.WaitDelay

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("starting %s: %w", inv.Args[0], err)
	}
	err := cmd.Wait()
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("waiting for %s: %w", inv.Args[0], err)
	}
	return 0, nil
}
