package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/codesbx/internal/log"
	"github.com/slok/codesbx/internal/model"
	"github.com/slok/codesbx/internal/sandbox"
	"github.com/slok/codesbx/internal/storage"
	storageio "github.com/slok/codesbx/internal/storage/io"
	"github.com/slok/codesbx/internal/storage/memory"
	"github.com/slok/codesbx/internal/storage/sqlite"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

const (
	// RunLogSQLite stores the run log in the SQLite database.
	RunLogSQLite = "sqlite"
	// RunLogMemory keeps the run log in memory, it's lost on exit.
	RunLogMemory = "memory"
	// RunLogNone disables the run log.
	RunLogNone = "none"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug          bool
	NoLog          bool
	NoColor        bool
	LoggerType     string
	DBPath         string
	ConfigPath     string
	RunLog         string
	CompilerRunner string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDBPath := filepath.Join(homedir.HomeDir(), ".codesbx", "codesbx.db")
	app.Flag("db-path", "Path to the SQLite database file of the run log.").Default(defaultDBPath).StringVar(&c.DBPath)
	app.Flag("config", "Path to a YAML sandbox configuration file.").StringVar(&c.ConfigPath)
	app.Flag("run-log", "Where the compile and execute runs are recorded.").Default(RunLogSQLite).EnumVar(&c.RunLog, RunLogSQLite, RunLogMemory, RunLogNone)
	app.Flag("compiler-runner", "Overrides the configured Solidity compiler runner.").EnumVar(&c.CompilerRunner,
		string(model.CompilerRunnerSolc), string(model.CompilerRunnerDocker), string(model.CompilerRunnerFake))

	return c
}

// SandboxConfig returns the sandbox configuration from the config file (when
// set) with the flag overrides applied.
func (r RootCommand) SandboxConfig(ctx context.Context) (model.SandboxConfig, error) {
	cfg := model.SandboxConfig{}
	if r.ConfigPath != "" {
		dir, file := filepath.Split(r.ConfigPath)
		if dir == "" {
			dir = "."
		}

		var err error
		cfg, err = storageio.NewConfigYAMLRepository(os.DirFS(dir)).GetConfig(ctx, file)
		if err != nil {
			return model.SandboxConfig{}, fmt.Errorf("could not load config %q: %w", r.ConfigPath, err)
		}
	}

	if r.CompilerRunner != "" {
		cfg.Compiler.Runner = model.CompilerRunnerType(r.CompilerRunner)
	}

	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return model.SandboxConfig{}, fmt.Errorf("invalid sandbox configuration: %w", err)
	}

	return cfg, nil
}

// NewSandbox builds the sandbox from the configuration.
func (r RootCommand) NewSandbox(ctx context.Context) (*sandbox.Sandbox, error) {
	cfg, err := r.SandboxConfig(ctx)
	if err != nil {
		return nil, err
	}

	sb, err := sandbox.New(sandbox.Config{Sandbox: cfg, Logger: r.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create sandbox: %w", err)
	}

	return sb, nil
}

// NewRunRepository returns the run log repository, nil when the run log is
// disabled. The returned close func must always be called.
func (r RootCommand) NewRunRepository(ctx context.Context) (storage.RunRepository, func() error, error) {
	noop := func() error { return nil }

	switch r.RunLog {
	case RunLogNone:
		return nil, noop, nil
	case RunLogMemory:
		repo, err := memory.NewRepository(memory.RepositoryConfig{MaxRuns: 1000, Logger: r.Logger})
		if err != nil {
			return nil, noop, fmt.Errorf("could not create memory repository: %w", err)
		}
		return repo, noop, nil
	default:
		repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: r.DBPath, Logger: r.Logger})
		if err != nil {
			return nil, noop, fmt.Errorf("could not create repository: %w", err)
		}
		return repo, repo.Close, nil
	}
}

// readSource reads a source file, `-` reads from stdin.
func readSource(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("could not read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not read source file: %w", err)
	}
	return string(data), nil
}
