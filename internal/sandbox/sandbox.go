package sandbox

import (
	"context"
	"fmt"

	"github.com/slok/codesbx/internal/compiler"
	"github.com/slok/codesbx/internal/compiler/docker"
	"github.com/slok/codesbx/internal/compiler/fake"
	"github.com/slok/codesbx/internal/compiler/solc"
	"github.com/slok/codesbx/internal/interpreter"
	"github.com/slok/codesbx/internal/log"
	"github.com/slok/codesbx/internal/model"
)

// Config is the configuration of the sandbox.
type Config struct {
	Sandbox model.SandboxConfig
	// DockerClient is optional, only used by the docker compiler runner.
	DockerClient docker.DockerClient
	Logger       log.Logger
}

func (c *Config) defaults() error {
	c.Sandbox.Defaults()
	if err := c.Sandbox.Validate(); err != nil {
		return err
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	return nil
}

// Sandbox groups the language backends built from a sandbox configuration.
type Sandbox struct {
	compiler    *compiler.Compiler
	interpreter *interpreter.Interpreter
	runnerType  model.CompilerRunnerType
	logger      log.Logger
}

// New builds the compiler with the configured runner and the interpreter.
func New(cfg Config) (*Sandbox, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	runner, err := newRunner(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not create %s compiler runner: %w", cfg.Sandbox.Compiler.Runner, err)
	}

	comp, err := compiler.New(compiler.Config{
		Runner:  runner,
		Timeout: cfg.Sandbox.Compiler.Timeout,
		Logger:  cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create compiler: %w", err)
	}

	interp, err := interpreter.New(interpreter.Config{
		Timeout:          cfg.Sandbox.Interpreter.Timeout,
		MaxCallStackSize: cfg.Sandbox.Interpreter.MaxCallStackSize,
		Logger:           cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create interpreter: %w", err)
	}

	return &Sandbox{
		compiler:    comp,
		interpreter: interp,
		runnerType:  cfg.Sandbox.Compiler.Runner,
		logger:      cfg.Logger,
	}, nil
}

func newRunner(cfg Config) (compiler.Runner, error) {
	cc := cfg.Sandbox.Compiler
	switch cc.Runner {
	case model.CompilerRunnerSolc:
		return solc.NewRunner(solc.RunnerConfig{Binary: cc.SolcBinary, Logger: cfg.Logger})
	case model.CompilerRunnerDocker:
		return docker.NewRunner(docker.RunnerConfig{
			Client:    cfg.DockerClient,
			Image:     cc.Docker.Image,
			Platform:  cc.Docker.Platform,
			Resources: cc.Docker.Resources,
			Logger:    cfg.Logger,
		})
	case model.CompilerRunnerFake:
		return fake.NewRunner(fake.RunnerConfig{Logger: cfg.Logger})
	}

	return nil, fmt.Errorf("unknown compiler runner %q: %w", cc.Runner, model.ErrNotValid)
}

// Compiler returns the Solidity compiler.
func (s *Sandbox) Compiler() *compiler.Compiler { return s.compiler }

// Interpreter returns the JavaScript interpreter.
func (s *Sandbox) Interpreter() *interpreter.Interpreter { return s.interpreter }

// Check runs the preflight checks of the compiler runner and the interpreter.
func (s *Sandbox) Check(ctx context.Context) []model.CheckGroup {
	return []model.CheckGroup{
		{Name: fmt.Sprintf("compiler (%s runner)", s.runnerType), Results: s.compiler.Check(ctx)},
		{Name: "interpreter", Results: s.checkInterpreter(ctx)},
	}
}

func (s *Sandbox) checkInterpreter(ctx context.Context) []model.CheckResult {
	res := s.interpreter.Execute(ctx, `console.log(6 * 7)`)
	if !res.Success || res.Output != "42" {
		msg := res.Error
		if msg == "" {
			msg = fmt.Sprintf("unexpected output %q", res.Output)
		}
		return []model.CheckResult{{ID: "js_runtime", Message: "Interpreter self test failed: " + msg, Status: model.CheckStatusError}}
	}

	return []model.CheckResult{{ID: "js_runtime", Message: "Interpreter self test passed", Status: model.CheckStatusOK}}
}
