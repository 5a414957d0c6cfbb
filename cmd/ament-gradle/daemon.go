package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	adaptgrpc "github.com/ament-gradle/ament-gradle/internal/adapters/grpc"
	"github.com/ament-gradle/ament-gradle/internal/domain"
)

const defaultAddr = "unix:///tmp/ament-gradle.sock"

func dial() (*adaptgrpc.Client, error) {
	addr := os.Getenv("AMENT_GRADLE_ADDR")
	if addr == "" {
		addr = defaultAddr
	}
	return adaptgrpc.Dial(addr)
}

// cmdPlan asks the daemon for the invocations of a stage and prints them
// one per line.
func cmdPlan(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ament-gradle plan <build|test|install|uninstall> [flags]")
	}
	stage, err := domain.ParseStage(args[0])
	if err != nil {
		return err
	}
	setup, err := parseStage("plan "+args[0], args[1:], stderr)
	if err != nil {
		return err
	}

	client, err := dial()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	invs, err := client.Plan(ctx, stage, setup.bc)
	if err != nil {
		return err
	}
	for _, inv := range invs {
		fmt.Fprintf(stdout, "(cd %s && %s)\n", inv.Dir, strings.Join(inv.Args, " "))
	}
	return nil
}

func cmdHistory(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	pkg := fs.String("package", "", "only show stages of this package")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := dial()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	runs, err := client.ListStages(ctx)
	if err != nil {
		return err
	}
	printHistory(stdout, runs, *pkg)
	return nil
}

func printHistory(w io.Writer, runs []*domain.StageRun, pkg string) {
	shown := 0
	for _, run := range runs {
		if pkg != "" && run.PackageName != pkg {
			continue
		}
		fmt.Fprintf(w, "%-32s  %-20s  %-9s  %-9s  %s\n",
			run.ID, run.PackageName, run.Stage, run.State, run.StartedAt.Format(time.DateTime))
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(w, "No stages found.")
	}
}

func cmdStatus(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ament-gradle status <stage-id>")
	}

	client, err := dial()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	run, err := client.GetStage(ctx, args[0])
	if err != nil {
		return err
	}
	printStatus(stdout, run)
	return nil
}

func printStatus(w io.Writer, run *domain.StageRun) {
	fmt.Fprintf(w, "Stage:    %s\n", run.ID)
	fmt.Fprintf(w, "Package:  %s (%s)\n", run.PackageName, run.BuildType)
	fmt.Fprintf(w, "Step:     %s\n", run.Stage)
	fmt.Fprintf(w, "State:    %s\n", run.State)
	if run.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:    %s\n", run.ErrorMessage)
	}
	for _, rec := range run.Invocations {
		outcome := rec.Outcome
		if outcome == "" {
			outcome = "-"
		}
		fmt.Fprintf(w, "  #%d exit %d  %s  %s\n", rec.Seq, rec.ExitCode, outcome, strings.Join(rec.Args, " "))
	}
}
