package io

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/codesbx/internal/model"
)

// ConfigYAMLRepository loads the sandbox configuration from YAML files.
type ConfigYAMLRepository struct {
	fs fs.FS
}

// NewConfigYAMLRepository creates a new YAML config repository.
func NewConfigYAMLRepository(filesystem fs.FS) *ConfigYAMLRepository {
	return &ConfigYAMLRepository{fs: filesystem}
}

// GetConfig loads a sandbox configuration from a YAML file and returns a
// defaulted and validated domain model. Unset values get the defaults.
func (r *ConfigYAMLRepository) GetConfig(ctx context.Context, path string) (model.SandboxConfig, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.SandboxConfig{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return model.SandboxConfig{}, ctx.Err()
	}

	var cfg SandboxConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return model.SandboxConfig{}, fmt.Errorf("parsing YAML: %w", err)
	}

	m, err := cfg.toModel()
	if err != nil {
		return model.SandboxConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	m.Defaults()
	if err := m.Validate(); err != nil {
		return model.SandboxConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return m, nil
}

// SandboxConfig represents the YAML structure for the sandbox configuration.
type SandboxConfig struct {
	Compiler    CompilerConfig    `yaml:"compiler"`
	Interpreter InterpreterConfig `yaml:"interpreter"`
}

// CompilerConfig represents the YAML structure for the compiler configuration.
type CompilerConfig struct {
	Runner     string               `yaml:"runner"`
	Timeout    string               `yaml:"timeout"`
	SolcBinary string               `yaml:"solc_binary"`
	Docker     DockerCompilerConfig `yaml:"docker"`
}

// DockerCompilerConfig represents the YAML structure for the docker compiler runner.
type DockerCompilerConfig struct {
	Image     string          `yaml:"image"`
	Platform  string          `yaml:"platform"`
	Resources ResourcesConfig `yaml:"resources"`
}

// ResourcesConfig represents the YAML structure for resource configuration.
type ResourcesConfig struct {
	VCPUs    float64 `yaml:"vcpus"`
	MemoryMB int     `yaml:"memory_mb"`
}

// InterpreterConfig represents the YAML structure for the interpreter configuration.
type InterpreterConfig struct {
	Timeout          string `yaml:"timeout"`
	MaxCallStackSize int    `yaml:"max_call_stack_size"`
}

func (c SandboxConfig) toModel() (model.SandboxConfig, error) {
	compileTimeout, err := parseDuration(c.Compiler.Timeout)
	if err != nil {
		return model.SandboxConfig{}, fmt.Errorf("compiler timeout: %w", err)
	}
	execTimeout, err := parseDuration(c.Interpreter.Timeout)
	if err != nil {
		return model.SandboxConfig{}, fmt.Errorf("interpreter timeout: %w", err)
	}
	if c.Compiler.Docker.Resources.VCPUs < 0 || c.Compiler.Docker.Resources.MemoryMB < 0 {
		return model.SandboxConfig{}, fmt.Errorf("docker resources can't be negative")
	}

	return model.SandboxConfig{
		Compiler: model.CompilerConfig{
			Runner:     model.CompilerRunnerType(c.Compiler.Runner),
			Timeout:    compileTimeout,
			SolcBinary: c.Compiler.SolcBinary,
			Docker: model.DockerCompilerConfig{
				Image:    c.Compiler.Docker.Image,
				Platform: c.Compiler.Docker.Platform,
				Resources: model.Resources{
					VCPUs:    c.Compiler.Docker.Resources.VCPUs,
					MemoryMB: c.Compiler.Docker.Resources.MemoryMB,
				},
			},
		},
		Interpreter: model.InterpreterConfig{
			Timeout:          execTimeout,
			MaxCallStackSize: c.Interpreter.MaxCallStackSize,
		},
	}, nil
}

// parseDuration parses an optional duration, empty means unset.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got: %s", s)
	}

	return d, nil
}
