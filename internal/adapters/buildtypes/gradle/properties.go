package gradle

import (
	"strconv"
	"strings"

	"github.com/ament-gradle/ament-gradle/internal/domain"
)

const (
	// RecursiveDependenciesExport is the package.xml export tag that asks
	// the Gradle build to propagate dependencies transitively.
	RecursiveDependenciesExport = "ament_gradle_recursive_dependencies"

	AndroidVariantProperty = "-Pament.android_variant"
	DefaultAndroidVariant  = "release"
)

// Properties builds the -Pament.* flags for a stage invocation, followed by
// the caller's pass-through arguments and any defaults they did not
// override. The result depends only on bc and variant.
func Properties(bc *domain.BuildContext, variant string) []string {
	args := []string{
		property("build_space", bc.BuildSpace),
		property("install_space", bc.InstallSpace),
		property("dependencies", strings.Join(bc.BuildDependencies, ":")),
		property("build_tests", strconv.FormatBool(bc.BuildTests)),
		property("package_manifest.name", bc.PackageName),
		property("exec_dependency_paths_in_workspace", strings.Join(bc.ExecDependencyPaths, ":")),
		property("gradle_recursive_dependencies", strconv.FormatBool(bc.Exports(RecursiveDependenciesExport))),
		property("gradle_isolated", strconv.FormatBool(bc.Isolated)),
	}
	args = append(args, bc.GradleArgs...)

	if variant == "" {
		variant = DefaultAndroidVariant
	}
	return appendDefault(args, AndroidVariantProperty, AndroidVariantProperty+"="+variant)
}

func property(key, value string) string {
	return "-Pament." + key + "=" + value
}

// appendDefault appends def unless some argument already starts with prefix.
func appendDefault(args []string, prefix, def string) []string {
	for _, a := range args {
		if strings.HasPrefix(a, prefix) {
			return args
		}
	}
	return append(args, def)
}
