package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ament-gradle/ament-gradle/internal/config"
)

var configTemplate = `# ament-gradle workspace settings

[gradle]
# passed to every Gradle invocation, before --ament-gradle-args
args = []
# used unless -Pament.android_variant=... is given
android_variant = %q
# overrides $GRADLE_HOME when no gradlew wrapper is present
home = %q

[store]
# stage history, relative to the workspace
path = "ament_gradle.db"

[daemon]
# a host:port listener is unauthenticated and serves stage history only
listen = "unix:///tmp/ament-gradle.sock"
`

func cmdInit(args []string) {
	variant := "release"
	gradleHome := ""

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--variant":
			if i+1 < len(args) {
				i++
				variant = args[i]
			}
		case "--gradle-home":
			if i+1 < len(args) {
				i++
				gradleHome = args[i]
			}
		}
	}

	path := filepath.Join(config.Dir, config.File)
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "  skip %s (already exists)\n", path)
		return
	}

	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating %s/: %v\n", config.Dir, err)
		os.Exit(1)
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf(configTemplate, variant, gradleHome)), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "  create %s\n", path)

	cwd, _ := os.Getwd()
	fmt.Fprintf(os.Stderr, "\nInitialized ament-gradle workspace in %s\n", filepath.Base(cwd))
	fmt.Fprintf(os.Stderr, "\nNext steps:\n")
	fmt.Fprintf(os.Stderr, "  1. Edit %s for your Gradle setup\n", path)
	fmt.Fprintf(os.Stderr, "  2. ament-gradle build --source src/<package>\n")
}
