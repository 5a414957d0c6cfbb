package gradle

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ToolNotFoundError means no Gradle executable could be located for a
// package. It is fatal for every stage.
type ToolNotFoundError struct {
	Tried []string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("gradle executable not found (tried %s)", strings.Join(e.Tried, ", "))
}

// Resolver locates the Gradle executable for a source space: the project
// wrapper first, then $GRADLE_HOME/bin, then PATH.
type Resolver struct {
	GOOS     string
	Getenv   func(string) string
	LookPath func(string) (string, error)
}

// NewResolver returns a Resolver for the host OS and process environment.
func NewResolver() *Resolver {
	return &Resolver{
		GOOS:     runtime.GOOS,
		Getenv:   os.Getenv,
		LookPath: exec.LookPath,
	}
}

func (r *Resolver) scriptName(base string) string {
	if r.GOOS == "windows" {
		return base + ".bat"
	}
	return base
}

// Resolve returns the path of the Gradle executable to run for the package
// in sourceSpace.
func (r *Resolver) Resolve(sourceSpace string) (string, error) {
	var tried []string

	wrapper := filepath.Join(sourceSpace, r.scriptName("gradlew"))
	if isRegular(wrapper) {
		return wrapper, nil
	}
	tried = append(tried, wrapper)

	if home := r.getenv("GRADLE_HOME"); home != "" {
		p := filepath.Join(home, "bin", r.scriptName("gradle"))
		if isRegular(p) {
			return p, nil
		}
		tried = append(tried, p)
	}

	name := r.scriptName("gradle")
	if r.LookPath != nil {
		if p, err := r.LookPath(name); err == nil {
			return p, nil
		}
	}
	tried = append(tried, name+" on PATH")

	return "", &ToolNotFoundError{Tried: tried}
}

func (r *Resolver) getenv(key string) string {
	if r.Getenv == nil {
		return ""
	}
	return r.Getenv(key)
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
