package gradle_test

import (
	"strings"
	"testing"

	"github.com/ament-gradle/ament-gradle/internal/adapters/buildtypes/gradle"
	"github.com/ament-gradle/ament-gradle/internal/domain"
	"github.com/stretchr/testify/assert"
)

func sampleContext() *domain.BuildContext {
	return &domain.BuildContext{
		PackageName:         "foo",
		SourceSpace:         "/ws/src/foo",
		BuildSpace:          "/ws/build/foo",
		InstallSpace:        "/ws/install",
		BuildDependencies:   []string{"bar", "baz"},
		ExecDependencyPaths: []string{"/ws/install/share/bar", "/ws/install/share/baz"},
	}
}

func TestProperties_Order(t *testing.T) {
	bc := sampleContext()
	bc.Isolated = true

	assert.Equal(t, []string{
		"-Pament.build_space=/ws/build/foo",
		"-Pament.install_space=/ws/install",
		"-Pament.dependencies=bar:baz",
		"-Pament.build_tests=false",
		"-Pament.package_manifest.name=foo",
		"-Pament.exec_dependency_paths_in_workspace=/ws/install/share/bar:/ws/install/share/baz",
		"-Pament.gradle_recursive_dependencies=false",
		"-Pament.gradle_isolated=true",
		"-Pament.android_variant=release",
	}, gradle.Properties(bc, ""))
}

func TestProperties_Deterministic(t *testing.T) {
	bc := sampleContext()
	bc.GradleArgs = []string{"--offline", "-x", "lint"}
	assert.Equal(t, gradle.Properties(bc, "debug"), gradle.Properties(bc, "debug"))
}

func TestProperties_RecursiveDependenciesExport(t *testing.T) {
	bc := sampleContext()
	bc.Manifest = &domain.PackageManifest{
		Name:    "foo",
		Exports: []string{"build_type", gradle.RecursiveDependenciesExport},
	}
	assert.Contains(t, gradle.Properties(bc, ""), "-Pament.gradle_recursive_dependencies=true")
}

func TestProperties_ExtraArgsFollowGeneratedOnes(t *testing.T) {
	bc := sampleContext()
	bc.GradleArgs = []string{"--offline"}

	args := gradle.Properties(bc, "")
	assert.Equal(t, "--offline", args[len(args)-2])
	assert.Equal(t, "-Pament.android_variant=release", args[len(args)-1])
}

func TestProperties_DefaultVariantAppendedOnce(t *testing.T) {
	bc := sampleContext()
	args := gradle.Properties(bc, "debug")
	assert.Equal(t, 1, countPrefix(args, gradle.AndroidVariantProperty))
	assert.Contains(t, args, "-Pament.android_variant=debug")
}

func TestProperties_CallerVariantOverridesDefault(t *testing.T) {
	bc := sampleContext()
	bc.GradleArgs = []string{"-Pament.android_variant=debug"}

	args := gradle.Properties(bc, "release")
	assert.Equal(t, 1, countPrefix(args, gradle.AndroidVariantProperty))
	assert.Equal(t, "-Pament.android_variant=debug", args[len(args)-1])
}

func TestProperties_EmptyDependencies(t *testing.T) {
	bc := sampleContext()
	bc.BuildDependencies = nil
	bc.ExecDependencyPaths = nil

	args := gradle.Properties(bc, "")
	assert.Contains(t, args, "-Pament.dependencies=")
	assert.Contains(t, args, "-Pament.exec_dependency_paths_in_workspace=")
}

func countPrefix(args []string, prefix string) int {
	n := 0
	for _, a := range args {
		if strings.HasPrefix(a, prefix) {
			n++
		}
	}
	return n
}
