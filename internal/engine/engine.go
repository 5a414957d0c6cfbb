package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/ament-gradle/ament-gradle/internal/domain"
	"github.com/ament-gradle/ament-gradle/internal/ports"
	"github.com/ament-gradle/ament-gradle/internal/protocol"
)

// InvocationError reports an invocation that exited nonzero. The stage is
// aborted at that point.
type InvocationError struct {
	Invocation domain.Invocation
	ExitCode   int
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s exited with code %d", strings.Join(e.Invocation.Args, " "), e.ExitCode)
}

// StatusHandler receives notifications about stage execution progress.
type StatusHandler interface {
	OnStageStart(run *domain.StageRun)
	OnInvocationStart(run *domain.StageRun, rec *domain.InvocationRecord)
	OnInvocationComplete(run *domain.StageRun, rec *domain.InvocationRecord)
	OnStageComplete(run *domain.StageRun)
}

type noopStatus struct{}

func (noopStatus) OnStageStart(*domain.StageRun)                                   {}
func (noopStatus) OnInvocationStart(*domain.StageRun, *domain.InvocationRecord)    {}
func (noopStatus) OnInvocationComplete(*domain.StageRun, *domain.InvocationRecord) {}
func (noopStatus) OnStageComplete(*domain.StageRun)                                {}

type Engine struct {
	registry *Registry
	runner   ports.ProcessRunner
	store    ports.StageStore
	status   StatusHandler
	output   io.Writer
}

func New(registry *Registry, runner ports.ProcessRunner) *Engine {
	return &Engine{
		registry: registry,
		runner:   runner,
		status:   noopStatus{},
		output:   io.Discard,
	}
}

func (e *Engine) SetStatusHandler(h StatusHandler) {
	e.status = h
}

// SetStore records every stage run and invocation in s.
func (e *Engine) SetStore(s ports.StageStore) {
	e.store = s
}

// SetOutput mirrors the output of every invocation to w.
func (e *Engine) SetOutput(w io.Writer) {
	e.output = w
}

// Plan asks the package's build-type adapter for the invocations of stage
// without running them. Adapter side effects (hook rendering, source sync,
// install deployment) still happen.
func (e *Engine) Plan(ctx context.Context, stage domain.Stage, bc *domain.BuildContext) ([]domain.Invocation, error) {
	adapter, err := e.registry.Lookup(bc.BuildType)
	if err != nil {
		return nil, err
	}
	switch stage {
	case domain.StageBuild:
		return adapter.OnBuild(ctx, bc)
	case domain.StageTest:
		return adapter.OnTest(ctx, bc)
	case domain.StageInstall:
		return adapter.OnInstall(ctx, bc)
	case domain.StageUninstall:
		return adapter.OnUninstall(ctx, bc)
	}
	return nil, fmt.Errorf("unknown stage %q", stage)
}

// Run plans stage and executes its invocations in order, stopping at the
// first one that fails. The returned run is never nil.
func (e *Engine) Run(ctx context.Context, stage domain.Stage, bc *domain.BuildContext) (*domain.StageRun, error) {
	run := domain.NewStageRun(domain.GenerateStageID(bc.PackageName, stage), bc.PackageName, bc.BuildType, stage)
	run.Start()
	e.createRecord(ctx, run)
	e.status.OnStageStart(run)

	invs, err := e.Plan(ctx, stage, bc)
	if err != nil {
		return e.finish(ctx, run, bc, fmt.Errorf("planning %s of %s: %w", stage, bc.PackageName, err))
	}

	for _, inv := range invs {
		if err := ctx.Err(); err != nil {
			return e.finish(ctx, run, bc, fmt.Errorf("stage cancelled: %w", err))
		}

		rec := run.RecordInvocationStart(inv)
		e.status.OnInvocationStart(run, rec)

		var buf bytes.Buffer
		exitCode, err := e.runner.Run(ctx, inv, io.MultiWriter(&buf, e.output))
		if err != nil {
			run.RecordInvocationComplete(-1, "", buf.String())
			e.saveInvocation(ctx, run, rec)
			return e.finish(ctx, run, bc, fmt.Errorf("running %s: %w", inv.Args[0], err))
		}

		outcome, _ := protocol.ExtractOutcome(buf.Bytes())
		run.RecordInvocationComplete(exitCode, outcome, buf.String())
		e.saveInvocation(ctx, run, rec)
		e.status.OnInvocationComplete(run, rec)

		if exitCode != 0 {
			return e.finish(ctx, run, bc, &InvocationError{Invocation: inv, ExitCode: exitCode})
		}
	}

	return e.finish(ctx, run, bc, nil)
}

func (e *Engine) finish(ctx context.Context, run *domain.StageRun, bc *domain.BuildContext, err error) (*domain.StageRun, error) {
	switch {
	case err == nil:
		run.Complete(domain.StageStateSucceeded)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		run.Complete(domain.StageStateCancelled)
		run.ErrorMessage = err.Error()
	default:
		run.Fail(err.Error())
	}

	// the record must land even if ctx was cancelled
	e.updateRecord(context.WithoutCancel(ctx), run)
	protocol.AppendHistory(bc.BuildSpace, run)
	e.status.OnStageComplete(run)
	return run, err
}

func (e *Engine) createRecord(ctx context.Context, run *domain.StageRun) {
	if e.store == nil {
		return
	}
	if err := e.store.CreateStage(ctx, run); err != nil {
		log.Printf("recording stage %s: %v", run.ID, err)
	}
}

func (e *Engine) updateRecord(ctx context.Context, run *domain.StageRun) {
	if e.store == nil {
		return
	}
	if err := e.store.UpdateStage(ctx, run); err != nil {
		log.Printf("updating stage %s: %v", run.ID, err)
	}
}

func (e *Engine) saveInvocation(ctx context.Context, run *domain.StageRun, rec *domain.InvocationRecord) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveInvocation(context.WithoutCancel(ctx), run.ID, rec); err != nil {
		log.Printf("recording invocation %d of stage %s: %v", rec.Seq, run.ID, err)
	}
}
