package execute

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/codesbx/internal/app/runlog"
	"github.com/slok/codesbx/internal/log"
	"github.com/slok/codesbx/internal/model"
	"github.com/slok/codesbx/internal/storage"
)

// Interpreter runs JavaScript sources.
type Interpreter interface {
	Execute(ctx context.Context, code string) model.ExecuteResult
}

// ServiceConfig is the configuration for the execute service.
type ServiceConfig struct {
	Interpreter Interpreter
	// Repository is optional, when missing runs are not recorded.
	Repository storage.RunRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Interpreter == nil {
		return fmt.Errorf("interpreter is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Execute"})
	return nil
}

// Service executes editor submissions.
type Service struct {
	interpreter Interpreter
	recorder    runlog.Recorder
	logger      log.Logger
}

// NewService creates a new execute service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		interpreter: cfg.Interpreter,
		recorder:    runlog.Recorder{Repository: cfg.Repository, Logger: cfg.Logger},
		logger:      cfg.Logger,
	}, nil
}

// Request contains the parameters for an execution.
type Request struct {
	Code      string
	RequestID string
}

// Run executes the script. Script failures are part of the result, an error
// is only returned when the request itself is not valid.
func (s *Service) Run(ctx context.Context, req Request) (*model.ExecuteResult, error) {
	if err := model.ValidateSource(req.Code); err != nil {
		return nil, fmt.Errorf("invalid source: %w", err)
	}

	logger := s.logger.WithCtxValues(ctx)

	start := time.Now()
	res := s.interpreter.Execute(ctx, req.Code).Normalize()
	duration := time.Since(start)

	logger.Infof("execution finished in %s (success: %t)", duration, res.Success)

	s.recorder.Record(ctx, runlog.Entry{
		Kind:         model.RunKindExecute,
		Code:         req.Code,
		Success:      res.Success,
		ErrorMessage: res.Error,
		RequestID:    req.RequestID,
		StartedAt:    start,
		Duration:     duration,
	})

	return &res, nil
}
