package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ament-gradle/ament-gradle/internal/adapters/buildtypes/gradle"
	adaptgrpc "github.com/ament-gradle/ament-gradle/internal/adapters/grpc"
	"github.com/ament-gradle/ament-gradle/internal/adapters/local"
	"github.com/ament-gradle/ament-gradle/internal/adapters/sqlite"
	"github.com/ament-gradle/ament-gradle/internal/config"
	"github.com/ament-gradle/ament-gradle/internal/engine"
	"google.golang.org/grpc"
)

func main() {
	wd, _ := os.Getwd()
	cfg, err := config.Load(wd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyEnv(os.Getenv)

	store, err := sqlite.NewStore(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if n, err := store.FailPendingStages(context.Background()); err != nil {
		log.Printf("failing stale stages: %v", err)
	} else if n > 0 {
		log.Printf("marked %d interrupted stage(s) as failed", n)
	}

	registry := engine.NewRegistry()
	if err := registry.Register(gradle.New(gradle.Config{
		DefaultArgs:    cfg.Gradle.Args,
		AndroidVariant: cfg.Gradle.AndroidVariant,
		GradleHome:     cfg.Gradle.Home,
		SyncExclude:    sqlite.Files(cfg.Store.Path),
	})); err != nil {
		fmt.Fprintf(os.Stderr, "registering build types: %v\n", err)
		os.Exit(1)
	}
	eng := engine.New(registry, local.NewRuntime())
	eng.SetStore(store)

	lis, err := listen(cfg.Daemon.Listen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to listen on %s: %v\n", cfg.Daemon.Listen, err)
		os.Exit(1)
	}

	planner := plannerFor(lis, eng)
	if planner == nil {
		log.Printf("%s is not a unix socket: Plan is disabled, stage history only", cfg.Daemon.Listen)
	}
	grpcServer := grpc.NewServer()
	adaptgrpc.Register(grpcServer, adaptgrpc.NewBuildServer(planner, store))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		grpcServer.GracefulStop()
	}()

	fmt.Fprintf(os.Stderr, "ament-gradled listening on %s (build types: %s)\n",
		cfg.Daemon.Listen, strings.Join(registry.Names(), ", "))
	if err := grpcServer.Serve(lis); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func listen(addr string) (net.Listener, error) {
	if sockPath, ok := strings.CutPrefix(addr, "unix://"); ok {
		os.Remove(sockPath)
		return net.Listen("unix", sockPath)
	}
	return net.Listen("tcp", addr)
}

// plannerFor returns eng only when lis is a unix socket. Planning syncs the
// source tree and writes hook files, and the TCP listener has no
// authentication.
func plannerFor(lis net.Listener, eng *engine.Engine) adaptgrpc.Planner {
	if lis.Addr().Network() != "unix" {
		return nil
	}
	return eng
}
