package ports

import (
	"context"
	"errors"

	"github.com/ament-gradle/ament-gradle/internal/domain"
)

// ErrNotFound is returned when a stage id is unknown to the store.
var ErrNotFound = errors.New("not found")

type StageStore interface {
	CreateStage(ctx context.Context, run *domain.StageRun) error
	GetStage(ctx context.Context, id string) (*domain.StageRun, error)
	UpdateStage(ctx context.Context, run *domain.StageRun) error
	ListStages(ctx context.Context) ([]*domain.StageRun, error)
	SaveInvocation(ctx context.Context, stageID string, rec *domain.InvocationRecord) error
	GetInvocations(ctx context.Context, stageID string) ([]*domain.InvocationRecord, error)
	FailPendingStages(ctx context.Context) (int64, error)
}
