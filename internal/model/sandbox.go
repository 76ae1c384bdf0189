package model

import (
	"fmt"
	"time"
)

// CompilerRunnerType is the kind of backend used to run the Solidity compiler.
type CompilerRunnerType string

const (
	// CompilerRunnerSolc runs a local solc binary.
	CompilerRunnerSolc CompilerRunnerType = "solc"
	// CompilerRunnerDocker runs solc inside a throwaway docker container.
	CompilerRunnerDocker CompilerRunnerType = "docker"
	// CompilerRunnerFake returns canned compiler output, for development and tests.
	CompilerRunnerFake CompilerRunnerType = "fake"
)

const (
	// DefaultExecutionTimeout is the wall clock budget of a script execution.
	DefaultExecutionTimeout = 10 * time.Second
	// DefaultCompileTimeout is the wall clock budget of a compilation.
	DefaultCompileTimeout = 30 * time.Second
	// DefaultMaxCallStackSize is the max JS call stack depth of a script.
	DefaultMaxCallStackSize = 10000
	// DefaultSolcBinary is the solc binary looked up on PATH.
	DefaultSolcBinary = "solc"
	// DefaultSolcImage is the image used by the docker compiler runner.
	DefaultSolcImage = "ethereum/solc:0.8.28"
)

// SandboxConfig is the static configuration of the code sandbox.
type SandboxConfig struct {
	Compiler    CompilerConfig
	Interpreter InterpreterConfig
}

// CompilerConfig configures the Solidity compiler adapter.
type CompilerConfig struct {
	Runner  CompilerRunnerType
	Timeout time.Duration
	// SolcBinary is the binary path or name used by the solc runner.
	SolcBinary string
	// Docker is only used by the docker runner.
	Docker DockerCompilerConfig
}

// DockerCompilerConfig configures the docker compiler runner.
type DockerCompilerConfig struct {
	Image string
	// Platform is an optional OCI platform (e.g. "linux/amd64").
	Platform  string
	Resources Resources
}

// Resources defines the compute resources for a compiler container.
type Resources struct {
	VCPUs    float64
	MemoryMB int
}

// InterpreterConfig configures the sandboxed JS interpreter.
type InterpreterConfig struct {
	Timeout          time.Duration
	MaxCallStackSize int
}

// Defaults sets the unset values of the configuration.
func (c *SandboxConfig) Defaults() {
	if c.Compiler.Runner == "" {
		c.Compiler.Runner = CompilerRunnerSolc
	}
	if c.Compiler.Timeout == 0 {
		c.Compiler.Timeout = DefaultCompileTimeout
	}
	if c.Compiler.SolcBinary == "" {
		c.Compiler.SolcBinary = DefaultSolcBinary
	}
	if c.Compiler.Docker.Image == "" {
		c.Compiler.Docker.Image = DefaultSolcImage
	}
	if c.Compiler.Docker.Resources.VCPUs == 0 {
		c.Compiler.Docker.Resources.VCPUs = 1
	}
	if c.Compiler.Docker.Resources.MemoryMB == 0 {
		c.Compiler.Docker.Resources.MemoryMB = 512
	}
	if c.Interpreter.Timeout == 0 {
		c.Interpreter.Timeout = DefaultExecutionTimeout
	}
	if c.Interpreter.MaxCallStackSize == 0 {
		c.Interpreter.MaxCallStackSize = DefaultMaxCallStackSize
	}
}

// Validate validates the sandbox configuration.
func (c *SandboxConfig) Validate() error {
	switch c.Compiler.Runner {
	case CompilerRunnerSolc:
		if c.Compiler.SolcBinary == "" {
			return fmt.Errorf("solc binary is required: %w", ErrNotValid)
		}
	case CompilerRunnerDocker:
		if c.Compiler.Docker.Image == "" {
			return fmt.Errorf("docker compiler image is required: %w", ErrNotValid)
		}
		if c.Compiler.Docker.Resources.VCPUs <= 0 {
			return fmt.Errorf("vcpus must be positive: %w", ErrNotValid)
		}
		if c.Compiler.Docker.Resources.MemoryMB <= 0 {
			return fmt.Errorf("memory_mb must be positive: %w", ErrNotValid)
		}
	case CompilerRunnerFake:
	default:
		return fmt.Errorf("unknown compiler runner %q: %w", c.Compiler.Runner, ErrNotValid)
	}

	if c.Compiler.Timeout <= 0 {
		return fmt.Errorf("compile timeout must be positive: %w", ErrNotValid)
	}
	if c.Interpreter.Timeout <= 0 {
		return fmt.Errorf("execution timeout must be positive: %w", ErrNotValid)
	}
	if c.Interpreter.MaxCallStackSize <= 0 {
		return fmt.Errorf("max call stack size must be positive: %w", ErrNotValid)
	}

	return nil
}
