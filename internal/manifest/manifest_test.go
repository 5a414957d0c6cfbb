package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ament-gradle/ament-gradle/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePackage = `<?xml version="1.0"?>
<package format="2">
  <name>rcljava</name>
  <version>0.1.0</version>
  <buildtool_depend>ament_build_type_gradle</buildtool_depend>
  <build_depend>rcljava_common</build_depend>
  <depend>builtin_interfaces</depend>
  <exec_depend>rosidl_generator_java</exec_depend>
  <export>
    <build_type>ament_gradle</build_type>
    <ament_gradle_recursive_dependencies/>
  </export>
</package>
`

func TestParse(t *testing.T) {
	m, err := manifest.Parse([]byte(samplePackage))
	require.NoError(t, err)

	assert.Equal(t, "rcljava", m.Name)
	assert.Equal(t, "0.1.0", m.Version)
	assert.Equal(t, "ament_gradle", m.BuildType)
	assert.Equal(t, []string{"build_type", "ament_gradle_recursive_dependencies"}, m.Exports)
	assert.Equal(t, []string{"rcljava_common", "builtin_interfaces"}, m.BuildDepends)
	assert.Equal(t, []string{"rosidl_generator_java", "builtin_interfaces"}, m.ExecDepends)
}

func TestParse_NoExport(t *testing.T) {
	m, err := manifest.Parse([]byte(`<package><name>foo</name></package>`))
	require.NoError(t, err)
	assert.Empty(t, m.Exports)
	assert.Empty(t, m.BuildType)
}

func TestParse_MissingName(t *testing.T) {
	_, err := manifest.Parse([]byte(`<package><version>1</version></package>`))
	assert.Error(t, err)
}

func TestParse_Malformed(t *testing.T) {
	_, err := manifest.Parse([]byte(`<package><name>foo</package>`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(samplePackage), 0644))

	m, err := manifest.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "rcljava", m.Name)

	_, err = manifest.Load(t.TempDir())
	assert.True(t, os.IsNotExist(err))
}
