package protocol_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ament-gradle/ament-gradle/internal/domain"
	"github.com/ament-gradle/ament-gradle/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendHistory(t *testing.T) {
	build := t.TempDir()

	run := domain.NewStageRun("foo-build-1", "foo", "ament_gradle", domain.StageBuild)
	run.Start()
	run.RecordInvocationStart(domain.Invocation{Args: []string{"gradlew", "assemble", "--stacktrace"}})
	run.RecordInvocationComplete(1, protocol.OutcomeFailed, "")
	run.Fail("gradlew exited with code 1")
	protocol.AppendHistory(build, run)

	second := domain.NewStageRun("foo-build-2", "foo", "ament_gradle", domain.StageBuild)
	second.Start()
	second.Complete(domain.StageStateSucceeded)
	protocol.AppendHistory(build, second)

	data, err := os.ReadFile(filepath.Join(build, protocol.HistoryFile))
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "stage:build package:foo id:foo-build-1 result:failed")
	assert.Contains(t, content, "  $ gradlew assemble --stacktrace\n")
	assert.Contains(t, content, "  | exit 1, BUILD FAILED\n")
	assert.Contains(t, content, "  ! gradlew exited with code 1\n")
	assert.Less(t, strings.Index(content, "foo-build-1"), strings.Index(content, "foo-build-2"))
}

func TestAppendHistory_RelativeBuildSpaceIgnored(t *testing.T) {
	run := domain.NewStageRun("x", "foo", "ament_gradle", domain.StageBuild)
	protocol.AppendHistory("relative/build", run)
	_, err := os.Stat("relative")
	assert.True(t, os.IsNotExist(err))
}
