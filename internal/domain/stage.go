package domain

import (
	"time"
)

type StageState string

const (
	StageStatePending   StageState = "pending"
	StageStateRunning   StageState = "running"
	StageStateSucceeded StageState = "succeeded"
	StageStateFailed    StageState = "failed"
	StageStateCancelled StageState = "cancelled"
)

type InvocationRecord struct {
	Seq         int
	Args        []string
	Dir         string
	ExitCode    int
	Outcome     string // BUILD SUCCESSFUL / BUILD FAILED as reported by gradle
	Output      string
	StartedAt   time.Time
	CompletedAt time.Time
}

func (r *InvocationRecord) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

func (r *InvocationRecord) Completed() bool {
	return !r.CompletedAt.IsZero()
}

// StageRun is the host-side record of one lifecycle stage of one package.
type StageRun struct {
	ID           string
	PackageName  string
	BuildType    string
	Stage        Stage
	State        StageState
	Invocations  []*InvocationRecord
	StartedAt    time.Time
	CompletedAt  time.Time
	ErrorMessage string
}

func NewStageRun(id, packageName, buildType string, stage Stage) *StageRun {
	return &StageRun{
		ID:          id,
		PackageName: packageName,
		BuildType:   buildType,
		Stage:       stage,
		State:       StageStatePending,
	}
}

func (r *StageRun) Start() {
	r.State = StageStateRunning
	r.StartedAt = time.Now()
}

// RecordInvocationStart appends a record for inv and returns it.
func (r *StageRun) RecordInvocationStart(inv Invocation) *InvocationRecord {
	rec := &InvocationRecord{
		Seq:       len(r.Invocations) + 1,
		Args:      append([]string(nil), inv.Args...),
		Dir:       inv.Dir,
		StartedAt: time.Now(),
	}
	r.Invocations = append(r.Invocations, rec)
	return rec
}

// RecordInvocationComplete closes the most recent open invocation record.
func (r *StageRun) RecordInvocationComplete(exitCode int, outcome, output string) *InvocationRecord {
	for i := len(r.Invocations) - 1; i >= 0; i-- {
		rec := r.Invocations[i]
		if !rec.Completed() {
			rec.ExitCode = exitCode
			rec.Outcome = outcome
			rec.Output = output
			rec.CompletedAt = time.Now()
			return rec
		}
	}
	return nil
}

func (r *StageRun) Complete(state StageState) {
	r.State = state
	r.CompletedAt = time.Now()
}

func (r *StageRun) Fail(msg string) {
	r.State = StageStateFailed
	r.CompletedAt = time.Now()
	r.ErrorMessage = msg
}

// Finished reports whether the stage reached a terminal state.
func (r *StageRun) Finished() bool {
	switch r.State {
	case StageStateSucceeded, StageStateFailed, StageStateCancelled:
		return true
	}
	return false
}
