package storage

import (
	"context"

	"github.com/slok/codesbx/internal/model"
)

//go:generate mockery --case underscore --output storagemock --outpkg storagemock --name RunRepository --structname MockRunRepository

// RunRepository is the interface for the run log persistence.
type RunRepository interface {
	CreateRun(ctx context.Context, r model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	// ListRuns returns the runs newest first.
	ListRuns(ctx context.Context, f model.RunFilter) ([]model.Run, error)
}
