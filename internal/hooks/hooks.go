// Package hooks renders the environment hooks and package-level setup
// files that make an installed Gradle package visible to the workspace
// environment (CLASSPATH, PATH, AMENT_PREFIX_PATH).
package hooks

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/ament-gradle/ament-gradle/internal/domain"
)

//go:embed templates/*.in
var templates embed.FS

var placeholder = regexp.MustCompile(`@[A-Z_]+@`)

// Materializer renders environment hooks into a package's build space.
// The zero value targets the host OS.
type Materializer struct {
	GOOS string
}

func (m *Materializer) goos() string {
	if m.GOOS == "" {
		return runtime.GOOS
	}
	return m.GOOS
}

func (m *Materializer) windows() bool {
	return m.goos() == "windows"
}

// Extension is the script suffix for the target OS.
func (m *Materializer) Extension() string {
	if m.windows() {
		return "bat"
	}
	return "sh"
}

// PrefixMarker is how a hook refers to the prefix it is installed into.
func (m *Materializer) PrefixMarker() string {
	if m.windows() {
		return "%AMENT_CURRENT_PREFIX%"
	}
	return "$AMENT_CURRENT_PREFIX"
}

// EnvironmentDir is the directory holding a package's hooks, relative to
// the build and install spaces.
func EnvironmentDir(pkg string) string {
	return path.Join("share", pkg, "environment")
}

// JarPath is where the Gradle build installs the package jar, relative to
// the install space.
func JarPath(pkg string) string {
	return path.Join("share", pkg, "java", pkg+".jar")
}

// Hooks lists the package's environment hooks in the order they are sourced.
func (m *Materializer) Hooks(bc *domain.BuildContext) []domain.EnvironmentHook {
	ext := m.Extension()
	prefix := m.PrefixMarker()
	join := func(elem ...string) string {
		p := path.Join(append([]string{prefix}, elem...)...)
		if m.windows() {
			p = strings.ReplaceAll(p, "/", `\`)
		}
		return p
	}
	hook := func(name string, subs map[string]string) domain.EnvironmentHook {
		return domain.EnvironmentHook{
			Name:          name,
			Template:      name + "." + ext + ".in",
			Substitutions: subs,
			Destination:   path.Join(EnvironmentDir(bc.PackageName), name+"."+ext),
		}
	}
	return []domain.EnvironmentHook{
		hook("classpath", map[string]string{"JAR_PATH": join(JarPath(bc.PackageName))}),
		hook("path", map[string]string{"BIN_PATH": join("bin")}),
		hook("ament_prefix_path", map[string]string{"PREFIX": prefix}),
	}
}

// Render substitutes the hook's placeholders into its template. Every
// placeholder in the template must have a substitution.
func Render(name string, subs map[string]string) ([]byte, error) {
	data, err := templates.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", name, err)
	}
	keys := make([]string, 0, len(subs))
	for k := range subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "@"+k+"@", subs[k])
	}
	out := strings.NewReplacer(pairs...).Replace(string(data))

	if missing := placeholder.FindString(out); missing != "" {
		return nil, fmt.Errorf("template %s: no value for %s", name, missing)
	}
	return []byte(out), nil
}

// Materialize renders every hook into the build space, overwriting any
// previous copy, and returns their paths relative to the build space.
func (m *Materializer) Materialize(bc *domain.BuildContext) ([]string, error) {
	var written []string
	for _, h := range m.Hooks(bc) {
		content, err := Render(h.Template, h.Substitutions)
		if err != nil {
			return written, err
		}
		if err := writeFile(bc.BuildSpace, h.Destination, content); err != nil {
			return written, err
		}
		written = append(written, h.Destination)
	}
	return written, nil
}

// Paths lists the hook destinations without rendering anything.
func (m *Materializer) Paths(bc *domain.BuildContext) []string {
	var out []string
	for _, h := range m.Hooks(bc) {
		out = append(out, h.Destination)
	}
	return out
}

func writeFile(root, rel string, content []byte) error {
	dst := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}
	if err := os.WriteFile(dst, content, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}
