package domain

import (
	"fmt"
	"path/filepath"
)

// BuildContext carries everything a build-type adapter needs for one stage
// of one package. The host builds it per call; adapters never persist it.
type BuildContext struct {
	SourceSpace  string
	BuildSpace   string
	InstallSpace string

	PackageName         string
	BuildType           string
	BuildDependencies   []string
	ExecDependencyPaths []string
	BuildTests          bool
	SymlinkInstall      bool
	Isolated            bool

	// Manifest is the parsed package.xml, nil when the package has none.
	Manifest *PackageManifest

	// GradleArgs are passed through verbatim to every Gradle invocation.
	GradleArgs []string
}

// Validate checks that the three spaces are absolute and pairwise distinct.
func (c *BuildContext) Validate() error {
	if c.PackageName == "" {
		return fmt.Errorf("build context: package name is empty")
	}
	spaces := []struct{ name, path string }{
		{"source space", c.SourceSpace},
		{"build space", c.BuildSpace},
		{"install space", c.InstallSpace},
	}
	for _, s := range spaces {
		if !filepath.IsAbs(s.path) {
			return fmt.Errorf("build context: %s %q is not absolute", s.name, s.path)
		}
	}
	for i := range spaces {
		for j := i + 1; j < len(spaces); j++ {
			if filepath.Clean(spaces[i].path) == filepath.Clean(spaces[j].path) {
				return fmt.Errorf("build context: %s and %s are both %q", spaces[i].name, spaces[j].name, spaces[i].path)
			}
		}
	}
	return nil
}

// Exports reports whether the package manifest carries the given export tag.
func (c *BuildContext) Exports(tag string) bool {
	if c.Manifest == nil {
		return false
	}
	for _, t := range c.Manifest.Exports {
		if t == tag {
			return true
		}
	}
	return false
}

// PackageManifest is the subset of package.xml the build cares about.
type PackageManifest struct {
	Name         string
	Version      string
	BuildType    string
	Exports      []string
	BuildDepends []string
	ExecDepends  []string
}

// Invocation is one external process the host must run: an argument vector
// and a working directory.
type Invocation struct {
	Args []string
	Dir  string
}

func (i Invocation) String() string {
	return fmt.Sprintf("%v (in %s)", i.Args, i.Dir)
}

// Stage names a step of the package lifecycle.
type Stage string

const (
	StageBuild     Stage = "build"
	StageTest      Stage = "test"
	StageInstall   Stage = "install"
	StageUninstall Stage = "uninstall"
)

// ParseStage maps a command-line stage name to a Stage.
func ParseStage(s string) (Stage, error) {
	switch st := Stage(s); st {
	case StageBuild, StageTest, StageInstall, StageUninstall:
		return st, nil
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// EnvironmentHook is a shell or batch fragment rendered from a template.
// It is written once into the build space and copied verbatim on install.
type EnvironmentHook struct {
	Name          string
	Template      string
	Substitutions map[string]string
	// Destination is relative to the build and install spaces.
	Destination string
}
