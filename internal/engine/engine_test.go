package engine_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ament-gradle/ament-gradle/internal/domain"
	"github.com/ament-gradle/ament-gradle/internal/engine"
	"github.com/ament-gradle/ament-gradle/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	name  string
	stage map[domain.Stage][]domain.Invocation
	err   error
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) plan(s domain.Stage) ([]domain.Invocation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stage[s], nil
}

func (f *fakeAdapter) OnBuild(context.Context, *domain.BuildContext) ([]domain.Invocation, error) {
	return f.plan(domain.StageBuild)
}

func (f *fakeAdapter) OnTest(context.Context, *domain.BuildContext) ([]domain.Invocation, error) {
	return f.plan(domain.StageTest)
}

func (f *fakeAdapter) OnInstall(context.Context, *domain.BuildContext) ([]domain.Invocation, error) {
	return f.plan(domain.StageInstall)
}

func (f *fakeAdapter) OnUninstall(context.Context, *domain.BuildContext) ([]domain.Invocation, error) {
	return f.plan(domain.StageUninstall)
}

// fakeRunner answers each invocation by its last argument.
type fakeRunner struct {
	mu     sync.Mutex
	exits  map[string]int
	output map[string]string
	called []string
}

func (f *fakeRunner) Run(_ context.Context, inv domain.Invocation, out io.Writer) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task := inv.Args[len(inv.Args)-1]
	f.called = append(f.called, task)
	if text, ok := f.output[task]; ok {
		fmt.Fprint(out, text)
	}
	return f.exits[task], nil
}

type memStore struct {
	mu          sync.Mutex
	stages      map[string]*domain.StageRun
	invocations map[string][]*domain.InvocationRecord
}

func newMemStore() *memStore {
	return &memStore{stages: map[string]*domain.StageRun{}, invocations: map[string][]*domain.InvocationRecord{}}
}

func (m *memStore) CreateStage(_ context.Context, run *domain.StageRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.stages[run.ID] = &cp
	return nil
}

func (m *memStore) GetStage(_ context.Context, id string) (*domain.StageRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.stages[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return run, nil
}

func (m *memStore) UpdateStage(ctx context.Context, run *domain.StageRun) error {
	return m.CreateStage(ctx, run)
}

func (m *memStore) ListStages(context.Context) ([]*domain.StageRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.StageRun
	for _, r := range m.stages {
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) SaveInvocation(_ context.Context, stageID string, rec *domain.InvocationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.invocations[stageID] = append(m.invocations[stageID], &cp)
	return nil
}

func (m *memStore) GetInvocations(_ context.Context, stageID string) ([]*domain.InvocationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invocations[stageID], nil
}

func (m *memStore) FailPendingStages(context.Context) (int64, error) { return 0, nil }

func inv(args ...string) domain.Invocation {
	return domain.Invocation{Args: args, Dir: "/ws/build/foo"}
}

func setup(t *testing.T, adapter *fakeAdapter, runner *fakeRunner) (*engine.Engine, *domain.BuildContext) {
	t.Helper()
	reg := engine.NewRegistry()
	require.NoError(t, reg.Register(adapter))
	bc := &domain.BuildContext{
		PackageName: "foo",
		BuildType:   adapter.name,
		BuildSpace:  t.TempDir(),
	}
	return engine.New(reg, runner), bc
}

func TestEngine_RunsInvocationsInOrder(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", stage: map[domain.Stage][]domain.Invocation{
		domain.StageBuild: {inv("gradle", "first"), inv("gradle", "second")},
	}}
	runner := &fakeRunner{output: map[string]string{"second": "BUILD SUCCESSFUL in 1s\n"}}
	eng, bc := setup(t, adapter, runner)

	run, err := eng.Run(context.Background(), domain.StageBuild, bc)
	require.NoError(t, err)
	assert.Equal(t, domain.StageStateSucceeded, run.State)
	assert.Equal(t, []string{"first", "second"}, runner.called)
	require.Len(t, run.Invocations, 2)
	assert.Equal(t, 1, run.Invocations[0].Seq)
	assert.Empty(t, run.Invocations[0].Outcome)
	assert.Equal(t, protocol.OutcomeSuccessful, run.Invocations[1].Outcome)
	assert.FileExists(t, filepath.Join(bc.BuildSpace, protocol.HistoryFile))
}

func TestEngine_AbortsOnNonzeroExit(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", stage: map[domain.Stage][]domain.Invocation{
		domain.StageTest: {inv("gradle", "test"), inv("gradle", "never")},
	}}
	runner := &fakeRunner{
		exits:  map[string]int{"test": 1},
		output: map[string]string{"test": "BUILD FAILED in 3s\n"},
	}
	eng, bc := setup(t, adapter, runner)

	run, err := eng.Run(context.Background(), domain.StageTest, bc)
	var invErr *engine.InvocationError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, 1, invErr.ExitCode)
	assert.Equal(t, domain.StageStateFailed, run.State)
	assert.Equal(t, []string{"test"}, runner.called)
	assert.Equal(t, protocol.OutcomeFailed, run.Invocations[0].Outcome)
	assert.Contains(t, run.ErrorMessage, "exited with code 1")
}

func TestEngine_UnknownBuildType(t *testing.T) {
	eng, bc := setup(t, &fakeAdapter{name: "fake"}, &fakeRunner{})
	bc.BuildType = "ament_cmake"

	run, err := eng.Run(context.Background(), domain.StageBuild, bc)
	assert.ErrorIs(t, err, engine.ErrUnknownBuildType)
	assert.Equal(t, domain.StageStateFailed, run.State)
}

func TestEngine_PlanErrorFailsStage(t *testing.T) {
	eng, bc := setup(t, &fakeAdapter{name: "fake", err: errors.New("gradle not found")}, &fakeRunner{})

	run, err := eng.Run(context.Background(), domain.StageInstall, bc)
	require.Error(t, err)
	assert.Equal(t, domain.StageStateFailed, run.State)
	assert.Empty(t, run.Invocations)
}

func TestEngine_ContextCancellation(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", stage: map[domain.Stage][]domain.Invocation{
		domain.StageBuild: {inv("gradle", "assemble")},
	}}
	runner := &fakeRunner{}
	eng, bc := setup(t, adapter, runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := eng.Run(ctx, domain.StageBuild, bc)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.StageStateCancelled, run.State)
	assert.Empty(t, runner.called)
}

func TestEngine_RecordsToStore(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", stage: map[domain.Stage][]domain.Invocation{
		domain.StageUninstall: {inv("gradle", "clean")},
	}}
	eng, bc := setup(t, adapter, &fakeRunner{output: map[string]string{"clean": "cleaning\n"}})
	store := newMemStore()
	eng.SetStore(store)

	run, err := eng.Run(context.Background(), domain.StageUninstall, bc)
	require.NoError(t, err)

	stored, err := store.GetStage(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageStateSucceeded, stored.State)

	recs, err := store.GetInvocations(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "cleaning\n", recs[0].Output)
	assert.Equal(t, []string{"gradle", "clean"}, recs[0].Args)
}

func TestEngine_MirrorsOutputAndReportsStatus(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", stage: map[domain.Stage][]domain.Invocation{
		domain.StageBuild: {inv("gradle", "assemble")},
	}}
	eng, bc := setup(t, adapter, &fakeRunner{output: map[string]string{"assemble": "BUILD SUCCESSFUL\n"}})

	var out, status bytes.Buffer
	eng.SetOutput(&out)
	eng.SetStatusHandler(protocol.NewReporter(&status))

	_, err := eng.Run(context.Background(), domain.StageBuild, bc)
	require.NoError(t, err)
	assert.Equal(t, "BUILD SUCCESSFUL\n", out.String())

	msgs, err := protocol.ParseStatusStream(status.Bytes())
	require.NoError(t, err)
	var types []protocol.MessageType
	for _, m := range msgs {
		types = append(types, m.Type)
	}
	assert.Equal(t, []protocol.MessageType{
		protocol.MsgStageStarted,
		protocol.MsgInvocationStarted,
		protocol.MsgInvocationCompleted,
		protocol.MsgStageCompleted,
	}, types)
}

func TestEngine_PlanDoesNotRun(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", stage: map[domain.Stage][]domain.Invocation{
		domain.StageTest: {inv("gradle", "test")},
	}}
	runner := &fakeRunner{}
	eng, bc := setup(t, adapter, runner)

	invs, err := eng.Plan(context.Background(), domain.StageTest, bc)
	require.NoError(t, err)
	assert.Len(t, invs, 1)
	assert.Empty(t, runner.called)
}
