package protocol

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ament-gradle/ament-gradle/internal/domain"
)

// HistoryFile is the per-package stage log, relative to the build space.
const HistoryFile = ".ament_gradle/history.log"

// AppendHistory appends a finished stage and its invocations to the history
// log in buildSpace. Failures to write are ignored; the log is informational.
func AppendHistory(buildSpace string, run *domain.StageRun) {
	if !filepath.IsAbs(buildSpace) {
		return
	}
	path := filepath.Join(buildSpace, HistoryFile)
	_ = os.MkdirAll(filepath.Dir(path), 0755)

	ts := time.Now().UTC().Format(time.RFC3339)
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] stage:%s package:%s id:%s result:%s\n", ts, run.Stage, run.PackageName, run.ID, run.State)
	for _, rec := range run.Invocations {
		fmt.Fprintf(&b, "  $ %s\n", strings.Join(rec.Args, " "))
		if rec.Outcome != "" {
			fmt.Fprintf(&b, "  | exit %d, %s\n", rec.ExitCode, rec.Outcome)
		} else {
			fmt.Fprintf(&b, "  | exit %d\n", rec.ExitCode)
		}
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(&b, "  ! %s\n", run.ErrorMessage)
	}
	b.WriteString("\n")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(b.String())
}
