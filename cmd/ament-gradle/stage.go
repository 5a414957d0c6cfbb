package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ament-gradle/ament-gradle/internal/adapters/buildtypes/gradle"
	"github.com/ament-gradle/ament-gradle/internal/adapters/local"
	"github.com/ament-gradle/ament-gradle/internal/adapters/sqlite"
	"github.com/ament-gradle/ament-gradle/internal/config"
	"github.com/ament-gradle/ament-gradle/internal/domain"
	"github.com/ament-gradle/ament-gradle/internal/engine"
	"github.com/ament-gradle/ament-gradle/internal/manifest"
	"github.com/ament-gradle/ament-gradle/internal/protocol"
)

// listFlag collects comma-separated values and may be repeated.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*l = append(*l, s)
		}
	}
	return nil
}

type stageSetup struct {
	cfg      *config.Config
	registry *engine.Registry
	bc       *domain.BuildContext
	status   bool
}

// parseStage loads the workspace config from the current directory and
// turns the stage flags into a build context.
func parseStage(name string, args []string, stderr io.Writer) (*stageSetup, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(wd)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", config.Path(wd), err)
	}
	cfg.ApplyEnv(os.Getenv)

	adapter := gradle.New(gradle.Config{
		DefaultArgs:    cfg.Gradle.Args,
		AndroidVariant: cfg.Gradle.AndroidVariant,
		GradleHome:     cfg.Gradle.Home,
		SyncExclude:    sqlite.Files(cfg.Store.Path),
	})
	registry := engine.NewRegistry()
	if err := registry.Register(adapter); err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	source := fs.String("source", wd, "package source directory")
	build := fs.String("build", "", "build space (default ./build/<package>)")
	install := fs.String("install", "install", "install space")
	pkg := fs.String("package", "", "package name (default from package.xml)")
	var deps, execDeps listFlag
	fs.Var(&deps, "deps", "build dependency names, comma separated (default from package.xml)")
	fs.Var(&execDeps, "exec-deps", "paths of exec dependencies in the workspace, comma separated")
	buildTests := fs.Bool("build-tests", false, "build the package tests")
	isolated := fs.Bool("isolated", false, "install into an isolated prefix")
	symlinkInstall := fs.Bool("symlink-install", false, "symlink installed files instead of copying")
	status := fs.Bool("status", false, "write JSON status messages to stdout")
	adapter.RegisterFlags(fs)

	rest, extras := adapter.PreprocessArguments(args)
	if err := fs.Parse(rest); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	bc := &domain.BuildContext{
		BuildDependencies:   deps,
		ExecDependencyPaths: execDeps,
		BuildTests:          *buildTests,
		Isolated:            *isolated,
		SymlinkInstall:      *symlinkInstall,
		BuildType:           gradle.BuildType,
	}
	if bc.SourceSpace, err = filepath.Abs(*source); err != nil {
		return nil, err
	}

	mf, err := manifest.Load(bc.SourceSpace)
	switch {
	case err == nil:
		bc.Manifest = mf
		bc.PackageName = mf.Name
		if mf.BuildType != "" {
			bc.BuildType = mf.BuildType
		}
		if len(bc.BuildDependencies) == 0 {
			bc.BuildDependencies = mf.BuildDepends
		}
	case os.IsNotExist(err) && *pkg != "":
		// packages without a manifest must be named explicitly
	default:
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	if *pkg != "" {
		bc.PackageName = *pkg
	}

	if *build == "" {
		*build = filepath.Join("build", bc.PackageName)
	}
	if bc.BuildSpace, err = filepath.Abs(*build); err != nil {
		return nil, err
	}
	if bc.InstallSpace, err = filepath.Abs(*install); err != nil {
		return nil, err
	}

	adapter.ExtendContext(bc, extras)
	return &stageSetup{cfg: cfg, registry: registry, bc: bc, status: *status}, nil
}

// runStage runs one lifecycle stage locally. Tool output goes to stderr.
func runStage(ctx context.Context, stage domain.Stage, args []string, stdout, stderr io.Writer) error {
	setup, err := parseStage(string(stage), args, stderr)
	if err != nil {
		return err
	}

	eng := engine.New(setup.registry, local.NewRuntime())
	eng.SetOutput(stderr)
	if setup.status {
		eng.SetStatusHandler(protocol.NewReporter(stdout))
		bc := setup.bc
		protocol.NewStatusWriter(stdout).Log("", fmt.Sprintf("%s %s: source %s, build %s, install %s",
			stage, bc.PackageName, bc.SourceSpace, bc.BuildSpace, bc.InstallSpace))
	}

	store, err := sqlite.NewStore(setup.cfg.Store.Path)
	if err != nil {
		log.Printf("stage history disabled: %v", err)
	} else {
		defer store.Close()
		eng.SetStore(store)
	}

	run, err := eng.Run(ctx, stage, setup.bc)
	if err != nil {
		if setup.status {
			protocol.NewStatusWriter(stdout).Error(run.ID, err.Error())
		}
		return err
	}
	fmt.Fprintf(stderr, "%s %s: %s (%s, %s)\n", stage, run.PackageName, run.State, run.ID,
		run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
	return nil
}
