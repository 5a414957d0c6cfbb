package grpc

import (
	"fmt"
	"time"

	"github.com/ament-gradle/ament-gradle/internal/domain"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages on the wire are structpb.Struct values. The helpers here convert
// between them and the domain types.

func contextToMap(bc *domain.BuildContext) map[string]any {
	m := map[string]any{
		"source_space":          bc.SourceSpace,
		"build_space":           bc.BuildSpace,
		"install_space":         bc.InstallSpace,
		"package_name":          bc.PackageName,
		"build_type":            bc.BuildType,
		"build_dependencies":    stringList(bc.BuildDependencies),
		"exec_dependency_paths": stringList(bc.ExecDependencyPaths),
		"build_tests":           bc.BuildTests,
		"symlink_install":       bc.SymlinkInstall,
		"isolated":              bc.Isolated,
		"gradle_args":           stringList(bc.GradleArgs),
	}
	if mf := bc.Manifest; mf != nil {
		m["manifest"] = map[string]any{
			"name":          mf.Name,
			"version":       mf.Version,
			"build_type":    mf.BuildType,
			"exports":       stringList(mf.Exports),
			"build_depends": stringList(mf.BuildDepends),
			"exec_depends":  stringList(mf.ExecDepends),
		}
	}
	return m
}

func contextFromStruct(s *structpb.Struct) (*domain.BuildContext, error) {
	if s == nil {
		return nil, fmt.Errorf("missing build context")
	}
	f := s.GetFields()
	bc := &domain.BuildContext{
		SourceSpace:         str(f, "source_space"),
		BuildSpace:          str(f, "build_space"),
		InstallSpace:        str(f, "install_space"),
		PackageName:         str(f, "package_name"),
		BuildType:           str(f, "build_type"),
		BuildDependencies:   strs(f, "build_dependencies"),
		ExecDependencyPaths: strs(f, "exec_dependency_paths"),
		BuildTests:          f["build_tests"].GetBoolValue(),
		SymlinkInstall:      f["symlink_install"].GetBoolValue(),
		Isolated:            f["isolated"].GetBoolValue(),
		GradleArgs:          strs(f, "gradle_args"),
	}
	if mv := f["manifest"].GetStructValue(); mv != nil {
		mf := mv.GetFields()
		bc.Manifest = &domain.PackageManifest{
			Name:         str(mf, "name"),
			Version:      str(mf, "version"),
			BuildType:    str(mf, "build_type"),
			Exports:      strs(mf, "exports"),
			BuildDepends: strs(mf, "build_depends"),
			ExecDepends:  strs(mf, "exec_depends"),
		}
	}
	return bc, nil
}

func invocationsToList(invs []domain.Invocation) []any {
	out := make([]any, 0, len(invs))
	for _, inv := range invs {
		out = append(out, map[string]any{
			"args": stringList(inv.Args),
			"dir":  inv.Dir,
		})
	}
	return out
}

func invocationsFromValue(v *structpb.Value) []domain.Invocation {
	var invs []domain.Invocation
	for _, item := range v.GetListValue().GetValues() {
		f := item.GetStructValue().GetFields()
		invs = append(invs, domain.Invocation{Args: strs(f, "args"), Dir: str(f, "dir")})
	}
	return invs
}

func stageToMap(run *domain.StageRun, withInvocations bool) map[string]any {
	m := map[string]any{
		"id":           run.ID,
		"package_name": run.PackageName,
		"build_type":   run.BuildType,
		"stage":        string(run.Stage),
		"state":        string(run.State),
		"started_at":   formatTime(run.StartedAt),
		"completed_at": formatTime(run.CompletedAt),
		"error":        run.ErrorMessage,
	}
	if withInvocations {
		recs := make([]any, 0, len(run.Invocations))
		for _, rec := range run.Invocations {
			recs = append(recs, map[string]any{
				"seq":          rec.Seq,
				"args":         stringList(rec.Args),
				"dir":          rec.Dir,
				"exit_code":    rec.ExitCode,
				"outcome":      rec.Outcome,
				"output":       rec.Output,
				"started_at":   formatTime(rec.StartedAt),
				"completed_at": formatTime(rec.CompletedAt),
			})
		}
		m["invocations"] = recs
	}
	return m
}

func stageFromStruct(s *structpb.Struct) *domain.StageRun {
	f := s.GetFields()
	run := &domain.StageRun{
		ID:           str(f, "id"),
		PackageName:  str(f, "package_name"),
		BuildType:    str(f, "build_type"),
		Stage:        domain.Stage(str(f, "stage")),
		State:        domain.StageState(str(f, "state")),
		StartedAt:    parseTime(str(f, "started_at")),
		CompletedAt:  parseTime(str(f, "completed_at")),
		ErrorMessage: str(f, "error"),
	}
	for _, item := range f["invocations"].GetListValue().GetValues() {
		rf := item.GetStructValue().GetFields()
		run.Invocations = append(run.Invocations, &domain.InvocationRecord{
			Seq:         int(rf["seq"].GetNumberValue()),
			Args:        strs(rf, "args"),
			Dir:         str(rf, "dir"),
			ExitCode:    int(rf["exit_code"].GetNumberValue()),
			Outcome:     str(rf, "outcome"),
			Output:      str(rf, "output"),
			StartedAt:   parseTime(str(rf, "started_at")),
			CompletedAt: parseTime(str(rf, "completed_at")),
		})
	}
	return run
}

func stringList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func str(f map[string]*structpb.Value, key string) string {
	return f[key].GetStringValue()
}

func strs(f map[string]*structpb.Value, key string) []string {
	vals := f[key].GetListValue().GetValues()
	if len(vals) == 0 {
		return nil
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.GetStringValue()
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
