package protocol

import (
	"bytes"
	"strings"
)

const (
	OutcomeSuccessful = "BUILD SUCCESSFUL"
	OutcomeFailed     = "BUILD FAILED"
)

// ExtractOutcome scans Gradle output for the last BUILD SUCCESSFUL or
// BUILD FAILED summary line and returns which one it was.
func ExtractOutcome(output []byte) (outcome string, found bool) {
	for _, line := range bytes.Split(output, []byte("\n")) {
		trimmed := strings.TrimSpace(string(line))
		switch {
		case strings.HasPrefix(trimmed, OutcomeSuccessful):
			outcome, found = OutcomeSuccessful, true
		case strings.HasPrefix(trimmed, OutcomeFailed):
			outcome, found = OutcomeFailed, true
		}
	}
	return outcome, found
}
