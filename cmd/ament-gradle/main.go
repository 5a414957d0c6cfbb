package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ament-gradle/ament-gradle/internal/domain"
	"github.com/ament-gradle/ament-gradle/internal/engine"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd := os.Args[1]; cmd {
	case "build", "test", "install", "uninstall":
		stage, _ := domain.ParseStage(cmd)
		exit(runStage(ctx, stage, os.Args[2:], os.Stdout, os.Stderr))
	case "plan":
		exit(cmdPlan(ctx, os.Args[2:], os.Stdout, os.Stderr))
	case "history":
		exit(cmdHistory(ctx, os.Args[2:], os.Stdout))
	case "status":
		exit(cmdStatus(ctx, os.Args[2:], os.Stdout))
	case "init":
		cmdInit(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: ament-gradle <command> [args]

Commands:
  build      Sync sources into the build space and assemble
  test       Run the package tests
  install    Deploy the manifest, hooks and setup files and assemble
  uninstall  Clean the build space
  plan       Print the invocations of a stage (via ament-gradled)
  history    List recorded stages (via ament-gradled)
  status     Show one recorded stage (via ament-gradled)
  init       Create .ament/gradle.toml in the current directory

Stage flags are listed by 'ament-gradle build -h'. Gradle arguments go
after --ament-gradle-args and run to the next -- or the end of the line.
`)
}

// exit terminates with the exit code of a failed invocation when there is
// one, so the caller sees Gradle's own status.
func exit(err error) {
	code := exitCode(err)
	if code == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(code)
}

// exitCode maps a command's error to the process exit code. A -h request
// has already printed its usage and counts as success.
func exitCode(err error) int {
	var invErr *engine.InvocationError
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.As(err, &invErr):
		return invErr.ExitCode
	}
	return 1
}
