package hooks_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ament-gradle/ament-gradle/internal/domain"
	"github.com/ament-gradle/ament-gradle/internal/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T) *domain.BuildContext {
	ws := t.TempDir()
	return &domain.BuildContext{
		PackageName:  "foo",
		SourceSpace:  filepath.Join(ws, "src", "foo"),
		BuildSpace:   filepath.Join(ws, "build", "foo"),
		InstallSpace: filepath.Join(ws, "install"),
	}
}

func TestMaterialize_WritesHooks(t *testing.T) {
	bc := newContext(t)
	m := &hooks.Materializer{GOOS: "linux"}

	written, err := m.Materialize(bc)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"share/foo/environment/classpath.sh",
		"share/foo/environment/path.sh",
		"share/foo/environment/ament_prefix_path.sh",
	}, written)
	assert.Equal(t, written, m.Paths(bc))

	data, err := os.ReadFile(filepath.Join(bc.BuildSpace, "share", "foo", "environment", "classpath.sh"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `ament_prepend_unique_value CLASSPATH "$AMENT_CURRENT_PREFIX/share/foo/java/foo.jar"`)
	assert.NotContains(t, string(data), "@")

	data, err = os.ReadFile(filepath.Join(bc.BuildSpace, "share", "foo", "environment", "path.sh"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `ament_prepend_unique_value PATH "$AMENT_CURRENT_PREFIX/bin"`)
}

func TestMaterialize_Windows(t *testing.T) {
	bc := newContext(t)
	m := &hooks.Materializer{GOOS: "windows"}

	written, err := m.Materialize(bc)
	require.NoError(t, err)
	assert.Equal(t, "share/foo/environment/classpath.bat", written[0])

	data, err := os.ReadFile(filepath.Join(bc.BuildSpace, "share", "foo", "environment", "classpath.bat"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `set "CLASSPATH=%AMENT_CURRENT_PREFIX%\share\foo\java\foo.jar;%CLASSPATH%"`)
}

func TestMaterialize_Deterministic(t *testing.T) {
	bc := newContext(t)
	m := &hooks.Materializer{GOOS: "linux"}
	path := filepath.Join(bc.BuildSpace, "share", "foo", "environment", "ament_prefix_path.sh")

	_, err := m.Materialize(bc)
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("tampered"), 0644))

	_, err = m.Materialize(bc)
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRender_MissingSubstitution(t *testing.T) {
	_, err := hooks.Render("classpath.sh.in", map[string]string{})
	assert.ErrorContains(t, err, "@JAR_PATH@")
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, err := hooks.Render("nope.sh.in", nil)
	assert.Error(t, err)
}

func TestLocalSetup_Expand(t *testing.T) {
	bc := newContext(t)
	setup := hooks.NewLocalSetup("linux")

	hookPaths, err := setup.Materialize(bc)
	require.NoError(t, err)

	written, err := setup.Expand(bc, hookPaths)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"share/foo/local_setup.sh",
		"share/foo/local_setup.bash",
		"share/foo/local_setup.zsh",
	}, written)

	data, err := os.ReadFile(filepath.Join(bc.BuildSpace, "share", "foo", "local_setup.sh"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `. "$AMENT_CURRENT_PREFIX/share/foo/environment/classpath.sh"`)
	assert.Contains(t, content, `AMENT_CURRENT_PREFIX="`+bc.InstallSpace+`"`)
	assert.Less(t,
		strings.Index(content, "classpath.sh"),
		strings.Index(content, "ament_prefix_path.sh"),
		"hooks must be sourced in order")
}

func TestLocalSetup_ExpandWindows(t *testing.T) {
	bc := newContext(t)
	setup := hooks.NewLocalSetup("windows")

	written, err := setup.Expand(bc, []string{"share/foo/environment/classpath.bat"})
	require.NoError(t, err)
	assert.Equal(t, []string{"share/foo/local_setup.bat"}, written)

	data, err := os.ReadFile(filepath.Join(bc.BuildSpace, "share", "foo", "local_setup.bat"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `call "%AMENT_CURRENT_PREFIX%\share\foo\environment\classpath.bat"`)
	assert.Contains(t, string(data), `set "AMENT_CURRENT_PREFIX=`+bc.InstallSpace+`"`)
	assert.Contains(t, string(data), `set "AMENT_CURRENT_PREFIX=%_AMENT_GRADLE_SAVED_PREFIX%"`)
}

func TestLocalSetup_RejectsForeignHook(t *testing.T) {
	bc := newContext(t)
	_, err := hooks.NewLocalSetup("linux").Expand(bc, []string{"share/bar/environment/classpath.sh"})
	assert.Error(t, err)
}

// isolatedPackage renders hooks and setup files for pkg straight into its
// own install prefix.
func isolatedPackage(t *testing.T, ws, pkg string) string {
	t.Helper()
	prefix := filepath.Join(ws, "install", pkg)
	bc := &domain.BuildContext{
		PackageName:  pkg,
		SourceSpace:  filepath.Join(ws, "src", pkg),
		BuildSpace:   prefix,
		InstallSpace: prefix,
		Isolated:     true,
	}
	setup := hooks.NewLocalSetup("linux")
	hookPaths, err := setup.Materialize(bc)
	require.NoError(t, err)
	_, err = setup.Expand(bc, hookPaths)
	require.NoError(t, err)
	return prefix
}

func TestLocalSetup_SourcingIsolatedPackagesInSequence(t *testing.T) {
	ws := t.TempDir()
	foo := isolatedPackage(t, ws, "foo")
	bar := isolatedPackage(t, ws, "bar")

	script := `. "$1/share/foo/local_setup.sh" && . "$2/share/bar/local_setup.sh" &&
echo "CLASSPATH=$CLASSPATH" && echo "PREFIX=${AMENT_CURRENT_PREFIX-unset}"`
	cmd := exec.Command("sh", "-c", script, "sh", foo, bar)
	cmd.Env = []string{"PATH=" + os.Getenv("PATH")}
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))

	assert.Contains(t, string(out),
		"CLASSPATH="+filepath.Join(bar, "share/bar/java/bar.jar")+":"+filepath.Join(foo, "share/foo/java/foo.jar"))
	assert.Contains(t, string(out), "PREFIX=unset")
}

func TestLocalSetup_RestoresCallerPrefix(t *testing.T) {
	ws := t.TempDir()
	foo := isolatedPackage(t, ws, "foo")

	cmd := exec.Command("sh", "-c", `. "$1/share/foo/local_setup.sh" && echo "PREFIX=$AMENT_CURRENT_PREFIX"`, "sh", foo)
	cmd.Env = []string{"PATH=" + os.Getenv("PATH"), "AMENT_CURRENT_PREFIX=/opt/ros"}
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	assert.Contains(t, string(out), "PREFIX=/opt/ros")
}
