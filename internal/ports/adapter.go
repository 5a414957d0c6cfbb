package ports

import (
	"context"
	"flag"

	"github.com/ament-gradle/ament-gradle/internal/domain"
)

// BuildAdapter translates the package lifecycle of one build type into
// external invocations. Each call returns the full, ordered list of
// invocations for the stage; the host runs them in order.
type BuildAdapter interface {
	Name() string
	OnBuild(ctx context.Context, bc *domain.BuildContext) ([]domain.Invocation, error)
	OnTest(ctx context.Context, bc *domain.BuildContext) ([]domain.Invocation, error)
	OnInstall(ctx context.Context, bc *domain.BuildContext) ([]domain.Invocation, error)
	OnUninstall(ctx context.Context, bc *domain.BuildContext) ([]domain.Invocation, error)
}

// ArgumentHandler is implemented by adapters that accept their own
// command-line arguments from the host.
type ArgumentHandler interface {
	RegisterFlags(fs *flag.FlagSet)
	// PreprocessArguments removes the adapter's argument groups from args
	// before the host parses them.
	PreprocessArguments(args []string) (rest []string, extras map[string][]string)
	ExtendContext(bc *domain.BuildContext, extras map[string][]string)
}

// SetupExpander folds environment hooks into package-level setup files.
// Paths are relative to the build space; Paths lists what Expand writes.
type SetupExpander interface {
	Expand(bc *domain.BuildContext, hooks []string) ([]string, error)
	Paths(bc *domain.BuildContext) []string
}
