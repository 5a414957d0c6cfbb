package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateStageID produces a readable stage run ID in the format
// <package>-<stage>-<8 hex chars>.
func GenerateStageID(packageName string, stage Stage) string {
	id := uuid.New()
	return fmt.Sprintf("%s-%s-%x", packageName, stage, id[:4])
}
