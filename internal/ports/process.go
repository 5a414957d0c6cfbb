package ports

import (
	"context"
	"io"

	"github.com/ament-gradle/ament-gradle/internal/domain"
)

// ProcessRunner executes one invocation to completion. A nonzero exit code
// is reported, not returned as an error.
type ProcessRunner interface {
	Run(ctx context.Context, inv domain.Invocation, output io.Writer) (exitCode int, err error)
}
