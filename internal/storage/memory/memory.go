package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/slok/codesbx/internal/log"
	"github.com/slok/codesbx/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	// MaxRuns bounds the kept runs, the oldest are dropped. 0 means unbounded.
	MaxRuns int
	Logger  log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.MaxRuns < 0 {
		return fmt.Errorf("max runs can't be negative")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.RunRepository.
type Repository struct {
	runs    map[string]model.Run
	maxRuns int
	mu      sync.RWMutex
	logger  log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		runs:    make(map[string]model.Run),
		maxRuns: cfg.MaxRuns,
		logger:  cfg.Logger,
	}, nil
}

// CreateRun stores a new run.
func (r *Repository) CreateRun(ctx context.Context, run model.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required: %w", model.ErrNotValid)
	}
	if !run.Kind.Valid() {
		return fmt.Errorf("run kind %q: %w", run.Kind, model.ErrNotValid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; ok {
		return fmt.Errorf("run with id %s: %w", run.ID, model.ErrAlreadyExists)
	}

	r.runs[run.ID] = run
	r.logger.Debugf("Created run in repository: %s", run.ID)

	if r.maxRuns > 0 && len(r.runs) > r.maxRuns {
		sorted := r.sorted()
		for _, old := range sorted[r.maxRuns:] {
			delete(r.runs, old.ID)
		}
	}

	return nil
}

// GetRun retrieves a run by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, model.ErrNotFound)
	}

	return &run, nil
}

// ListRuns returns the runs that match the filter, newest first.
func (r *Repository) ListRuns(ctx context.Context, f model.RunFilter) ([]model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := f.Limit
	if limit <= 0 {
		limit = model.DefaultRunListLimit
	}

	runs := []model.Run{}
	for _, run := range r.sorted() {
		if f.Kind != "" && run.Kind != f.Kind {
			continue
		}
		runs = append(runs, run)
		if len(runs) == limit {
			break
		}
	}

	return runs, nil
}

// sorted returns the runs newest first, must be called with the lock held.
func (r *Repository) sorted() []model.Run {
	runs := make([]model.Run, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs
}
