package compile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slok/codesbx/internal/app/runlog"
	"github.com/slok/codesbx/internal/log"
	"github.com/slok/codesbx/internal/model"
	"github.com/slok/codesbx/internal/storage"
)

// Compiler compiles Solidity sources.
type Compiler interface {
	Compile(ctx context.Context, source string) model.CompileResult
}

// ServiceConfig is the configuration for the compile service.
type ServiceConfig struct {
	Compiler Compiler
	// Repository is optional, when missing runs are not recorded.
	Repository storage.RunRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Compiler == nil {
		return fmt.Errorf("compiler is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Compile"})
	return nil
}

// Service compiles editor submissions.
type Service struct {
	compiler Compiler
	recorder runlog.Recorder
	logger   log.Logger
}

// NewService creates a new compile service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		compiler: cfg.Compiler,
		recorder: runlog.Recorder{Repository: cfg.Repository, Logger: cfg.Logger},
		logger:   cfg.Logger,
	}, nil
}

// Request contains the parameters for a compilation.
type Request struct {
	Code      string
	RequestID string
}

// Run compiles the source. Compiler diagnostics are part of the result, an
// error is only returned when the request itself is not valid.
func (s *Service) Run(ctx context.Context, req Request) (*model.CompileResult, error) {
	if err := model.ValidateSource(req.Code); err != nil {
		return nil, fmt.Errorf("invalid source: %w", err)
	}

	logger := s.logger.WithCtxValues(ctx)

	start := time.Now()
	res := s.compiler.Compile(ctx, req.Code).Normalize()
	duration := time.Since(start)

	logger.Infof("compilation finished in %s (success: %t, errors: %d, warnings: %d)", duration, res.Success, len(res.Errors), len(res.Warnings))

	s.recorder.Record(ctx, runlog.Entry{
		Kind:         model.RunKindCompile,
		Code:         req.Code,
		Success:      res.Success,
		ErrorMessage: strings.Join(res.Errors, "\n"),
		RequestID:    req.RequestID,
		StartedAt:    start,
		Duration:     duration,
	})

	return &res, nil
}
