package runlist

import (
	"context"
	"fmt"

	"github.com/slok/codesbx/internal/log"
	"github.com/slok/codesbx/internal/model"
	"github.com/slok/codesbx/internal/storage"
)

// MaxLimit is the max number of runs that can be listed at once.
const MaxLimit = 500

// ServiceConfig is the configuration for the run list service.
type ServiceConfig struct {
	Repository storage.RunRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.RunList"})

	return nil
}

// Service lists the run log with optional filtering.
type Service struct {
	repo   storage.RunRepository
	logger log.Logger
}

// NewService creates a new run list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the list request parameters.
type Request struct {
	// Kind is an optional filter, empty means all kinds.
	Kind model.RunKind
	// Limit is optional, 0 means the default limit.
	Limit int
}

// Run lists the runs, newest first.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Run, error) {
	if req.Kind != "" && !req.Kind.Valid() {
		return nil, fmt.Errorf("unknown run kind %q: %w", req.Kind, model.ErrNotValid)
	}
	if req.Limit < 0 || req.Limit > MaxLimit {
		return nil, fmt.Errorf("limit must be between 0 and %d: %w", MaxLimit, model.ErrNotValid)
	}

	s.logger.Debugf("listing runs with filter: kind=%q limit=%d", req.Kind, req.Limit)

	runs, err := s.repo.ListRuns(ctx, model.RunFilter{Kind: req.Kind, Limit: req.Limit})
	if err != nil {
		return nil, fmt.Errorf("could not list runs: %w", err)
	}

	s.logger.Debugf("found %d runs", len(runs))
	return runs, nil
}

// Get returns a single run.
func (s *Service) Get(ctx context.Context, id string) (*model.Run, error) {
	if id == "" {
		return nil, fmt.Errorf("run id is required: %w", model.ErrNotValid)
	}

	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not get run: %w", err)
	}

	return run, nil
}
