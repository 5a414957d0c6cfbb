// Package gradle is the ament_gradle build type: it builds, tests, installs
// and cleans Java/Android packages by running Gradle against a private copy
// of the package source in the build space.
package gradle

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ament-gradle/ament-gradle/internal/domain"
	"github.com/ament-gradle/ament-gradle/internal/hooks"
	"github.com/ament-gradle/ament-gradle/internal/manifest"
	"github.com/ament-gradle/ament-gradle/internal/ports"
	"github.com/ament-gradle/ament-gradle/internal/treesync"
)

// BuildType is the value of <build_type> in package.xml handled here.
const BuildType = "ament_gradle"

const (
	taskAssemble = "assemble"
	taskTest     = "test"
	taskClean    = "clean"
)

type Config struct {
	// DefaultArgs precede any --ament-gradle-args given on the command line.
	DefaultArgs    []string
	AndroidVariant string

	// GradleHome, when set, is used instead of $GRADLE_HOME.
	GradleHome string

	// GOOS selects the wrapper, executable and hook flavour; defaults to
	// the host OS.
	GOOS string

	// SyncExclude lists paths (the stage store, for one) that are never
	// copied from the source into the build space.
	SyncExclude []string
}

type Adapter struct {
	cfg      Config
	resolver *Resolver
	hooks    *hooks.Materializer
	setup    ports.SetupExpander
}

func New(cfg Config) *Adapter {
	if cfg.GOOS == "" {
		cfg.GOOS = runtime.GOOS
	}
	if cfg.AndroidVariant == "" {
		cfg.AndroidVariant = DefaultAndroidVariant
	}

	resolver := NewResolver()
	resolver.GOOS = cfg.GOOS
	if home := cfg.GradleHome; home != "" {
		resolver.Getenv = func(key string) string {
			if key == "GRADLE_HOME" {
				return home
			}
			return os.Getenv(key)
		}
	}

	return &Adapter{
		cfg:      cfg,
		resolver: resolver,
		hooks:    &hooks.Materializer{GOOS: cfg.GOOS},
		setup:    hooks.NewLocalSetup(cfg.GOOS),
	}
}

func (a *Adapter) Name() string {
	return BuildType
}

func (a *Adapter) SetResolver(r *Resolver) {
	a.resolver = r
}

func (a *Adapter) SetSetupExpander(s ports.SetupExpander) {
	a.setup = s
}

// prepare validates the context and resolves Gradle for this stage call.
func (a *Adapter) prepare(ctx context.Context, bc *domain.BuildContext) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := bc.Validate(); err != nil {
		return "", err
	}
	return a.resolver.Resolve(bc.SourceSpace)
}

func (a *Adapter) invocation(gradle string, bc *domain.BuildContext, task string) []domain.Invocation {
	args := []string{gradle}
	args = append(args, Properties(bc, a.cfg.AndroidVariant)...)
	args = append(args, task, "--stacktrace")
	return []domain.Invocation{{Args: args, Dir: bc.BuildSpace}}
}

// OnBuild renders the environment hooks, syncs the source into the build
// space and assembles the package there.
func (a *Adapter) OnBuild(ctx context.Context, bc *domain.BuildContext) ([]domain.Invocation, error) {
	gradle, err := a.prepare(ctx, bc)
	if err != nil {
		return nil, err
	}

	hookPaths, err := a.hooks.Materialize(bc)
	if err != nil {
		return nil, fmt.Errorf("materializing environment hooks: %w", err)
	}
	if _, err := a.setup.Expand(bc, hookPaths); err != nil {
		return nil, fmt.Errorf("expanding setup files: %w", err)
	}

	exclude := append([]string{bc.InstallSpace}, a.cfg.SyncExclude...)
	res, err := treesync.Sync(bc.SourceSpace, bc.BuildSpace, exclude...)
	if err != nil {
		return nil, fmt.Errorf("syncing %s into %s: %w", bc.SourceSpace, bc.BuildSpace, err)
	}
	if res.Changed() {
		log.Printf("%s: build space synced (%d files pruned, %d dirs pruned, %d copied)",
			bc.PackageName, len(res.PrunedFiles), len(res.PrunedDirs), len(res.Copied))
	}

	return a.invocation(gradle, bc, taskAssemble), nil
}

// OnTest runs the Gradle test task against the existing build space.
func (a *Adapter) OnTest(ctx context.Context, bc *domain.BuildContext) ([]domain.Invocation, error) {
	gradle, err := a.prepare(ctx, bc)
	if err != nil {
		return nil, err
	}
	return a.invocation(gradle, bc, taskTest), nil
}

// OnInstall deploys the manifest, the ament index marker, the environment
// hooks and setup files, then assembles into the install space.
func (a *Adapter) OnInstall(ctx context.Context, bc *domain.BuildContext) ([]domain.Invocation, error) {
	gradle, err := a.prepare(ctx, bc)
	if err != nil {
		return nil, err
	}

	pkg := bc.PackageName
	shareDir := filepath.Join(bc.InstallSpace, "share", pkg)

	if err := deployFile(
		filepath.Join(bc.SourceSpace, manifest.FileName),
		filepath.Join(shareDir, manifest.FileName),
		bc.SymlinkInstall,
	); err != nil {
		return nil, err
	}

	if err := ensureMarker(bc.InstallSpace, pkg); err != nil {
		return nil, err
	}

	var files []string
	files = append(files, a.hooks.Paths(bc)...)
	files = append(files, a.setup.Paths(bc)...)
	for _, rel := range files {
		native := filepath.FromSlash(rel)
		err := deployFile(filepath.Join(bc.BuildSpace, native), filepath.Join(bc.InstallSpace, native), bc.SymlinkInstall)
		if err != nil {
			return nil, err
		}
	}

	return a.invocation(gradle, bc, taskAssemble), nil
}

// OnUninstall only asks Gradle to clean its build outputs. Files deployed
// by OnInstall stay in the install space.
func (a *Adapter) OnUninstall(ctx context.Context, bc *domain.BuildContext) ([]domain.Invocation, error) {
	gradle, err := a.prepare(ctx, bc)
	if err != nil {
		return nil, err
	}
	return a.invocation(gradle, bc, taskClean), nil
}

var (
	_ ports.BuildAdapter    = (*Adapter)(nil)
	_ ports.ArgumentHandler = (*Adapter)(nil)
)
