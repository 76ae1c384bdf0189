package lib

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"k8s.io/client-go/util/homedir"

	"github.com/slok/codesbx/internal/api"
	"github.com/slok/codesbx/internal/app/compile"
	"github.com/slok/codesbx/internal/app/execute"
	"github.com/slok/codesbx/internal/app/runlist"
	"github.com/slok/codesbx/internal/log"
	"github.com/slok/codesbx/internal/model"
	"github.com/slok/codesbx/internal/sandbox"
	"github.com/slok/codesbx/internal/storage"
	"github.com/slok/codesbx/internal/storage/memory"
	"github.com/slok/codesbx/internal/storage/sqlite"
)

const (
	defaultDataDir = ".codesbx"
	defaultDBFile  = "codesbx.db"
)

// Config configures the SDK client.
//
// All fields are optional. An empty Config{} compiles with the solc binary
// found on PATH and records runs in ~/.codesbx/codesbx.db.
type Config struct {
	// DBPath is the SQLite database path of the run log.
	// Default: ~/.codesbx/codesbx.db.
	DBPath string

	// RunLog selects where runs are recorded.
	// Default: [RunLogSQLite].
	RunLog RunLogType

	// CompilerRunner selects how solc is run.
	// Default: [CompilerRunnerSolc].
	CompilerRunner CompilerRunnerType

	// SolcBinary is the solc binary used by [CompilerRunnerSolc].
	// Default: "solc" (looked up on PATH).
	SolcBinary string

	// SolcImage is the image used by [CompilerRunnerDocker].
	// Default: "ethereum/solc:0.8.28".
	SolcImage string

	// CompileTimeout is the wall clock budget of a compilation.
	// Default: 30s.
	CompileTimeout time.Duration

	// ExecuteTimeout is the wall clock budget of a script execution.
	// Default: 10s.
	ExecuteTimeout time.Duration

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.RunLog == "" {
		c.RunLog = RunLogSQLite
	}
	if c.DBPath == "" && c.RunLog == RunLogSQLite {
		home := homedir.HomeDir()
		if home == "" {
			return fmt.Errorf("could not get user home dir: %w", ErrNotValid)
		}
		c.DBPath = filepath.Join(home, defaultDataDir, defaultDBFile)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the main SDK entry point to compile and execute editor code.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	sandbox    *sandbox.Sandbox
	compileSvc *compile.Service
	executeSvc *execute.Service
	runListSvc *runlist.Service
	logger     log.Logger
	closeFn    func() error
}

// New creates a new SDK client.
//
// The caller must call [Client.Close] when done to release the run log
// database. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	sb, err := sandbox.New(sandbox.Config{
		Sandbox: model.SandboxConfig{
			Compiler: model.CompilerConfig{
				Runner:     model.CompilerRunnerType(cfg.CompilerRunner),
				Timeout:    cfg.CompileTimeout,
				SolcBinary: cfg.SolcBinary,
				Docker:     model.DockerCompilerConfig{Image: cfg.SolcImage},
			},
			Interpreter: model.InterpreterConfig{Timeout: cfg.ExecuteTimeout},
		},
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, mapError(fmt.Errorf("could not create sandbox: %w", err))
	}

	var (
		repo    storage.RunRepository
		closeFn func() error
	)
	switch cfg.RunLog {
	case RunLogSQLite:
		r, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: cfg.DBPath, Logger: cfg.Logger})
		if err != nil {
			return nil, fmt.Errorf("could not create repository: %w", err)
		}
		repo, closeFn = r, r.Close
	case RunLogMemory:
		r, err := memory.NewRepository(memory.RepositoryConfig{Logger: cfg.Logger})
		if err != nil {
			return nil, fmt.Errorf("could not create repository: %w", err)
		}
		repo = r
	case RunLogNone:
	default:
		return nil, fmt.Errorf("unknown run log %q: %w", cfg.RunLog, ErrNotValid)
	}

	c := &Client{sandbox: sb, logger: cfg.Logger, closeFn: closeFn}

	c.compileSvc, err = compile.NewService(compile.ServiceConfig{Compiler: sb.Compiler(), Repository: repo, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create compile service: %w", err)
	}
	c.executeSvc, err = execute.NewService(execute.ServiceConfig{Interpreter: sb.Interpreter(), Repository: repo, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create execute service: %w", err)
	}
	if repo != nil {
		c.runListSvc, err = runlist.NewService(runlist.ServiceConfig{Repository: repo, Logger: cfg.Logger})
		if err != nil {
			return nil, fmt.Errorf("could not create run list service: %w", err)
		}
	}

	return c, nil
}

// Close releases resources held by the client, including the database connection.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// Compile compiles a Solidity source.
//
// Compiler diagnostics are part of the returned result. Returns [ErrNotValid]
// if the source is empty or longer than [MaxSourceLength] characters.
func (c *Client) Compile(ctx context.Context, code string) (*CompileResult, error) {
	res, err := c.compileSvc.Run(ctx, compile.Request{Code: code})
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalCompileResult(*res), nil
}

// Execute runs a JavaScript source in a fresh sandboxed runtime.
//
// Script errors and timeouts are part of the returned result. Returns
// [ErrNotValid] if the source is empty or longer than [MaxSourceLength] characters.
func (c *Client) Execute(ctx context.Context, code string) (*ExecuteResult, error) {
	res, err := c.executeSvc.Run(ctx, execute.Request{Code: code})
	if err != nil {
		return nil, mapError(err)
	}

	return &ExecuteResult{Success: res.Success, Output: res.Output, Error: res.Error}, nil
}

// ListRuns returns the recorded runs, newest first.
//
// Returns [ErrNotValid] when the run log is disabled or the options are not valid.
func (c *Client) ListRuns(ctx context.Context, opts *ListRunsOpts) ([]Run, error) {
	if c.runListSvc == nil {
		return nil, fmt.Errorf("run log is disabled: %w", ErrNotValid)
	}

	req := runlist.Request{}
	if opts != nil {
		req.Kind = model.RunKind(opts.Kind)
		req.Limit = opts.Limit
	}

	runs, err := c.runListSvc.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalRunList(runs), nil
}

// GetRun returns a recorded run by its ID.
//
// Returns [ErrNotFound] if the run does not exist.
func (c *Client) GetRun(ctx context.Context, id string) (*Run, error) {
	if c.runListSvc == nil {
		return nil, fmt.Errorf("run log is disabled: %w", ErrNotValid)
	}

	run, err := c.runListSvc.Get(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	r := fromInternalRun(*run)
	return &r, nil
}

// Doctor runs the preflight checks of the compiler runner and the interpreter.
func (c *Client) Doctor(ctx context.Context) []CheckResult {
	var results []CheckResult
	for _, g := range c.sandbox.Check(ctx) {
		results = append(results, fromInternalCheckResults(g.Results)...)
	}
	return results
}

// HandlerOpts are the options of [Client.Handler].
type HandlerOpts struct {
	// Production hides the internal error details.
	Production bool
	// CORSOrigins are the allowed origins. Default: http://localhost:3000.
	CORSOrigins []string
}

// Handler returns the editor HTTP API backed by this client, ready to be
// mounted in a host application server.
func (c *Client) Handler(opts *HandlerOpts) (http.Handler, error) {
	if opts == nil {
		opts = &HandlerOpts{}
	}

	cfg := api.Config{
		CompileService: c.compileSvc,
		ExecuteService: c.executeSvc,
		CORSOrigins:    opts.CORSOrigins,
		Logger:         c.logger,
	}
	if opts.Production {
		cfg.Environment = api.EnvironmentProduction
	}
	if c.runListSvc != nil {
		cfg.RunListService = c.runListSvc
	}

	h, err := api.NewHandler(cfg)
	if err != nil {
		return nil, mapError(err)
	}
	return h, nil
}
