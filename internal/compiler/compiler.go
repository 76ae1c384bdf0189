package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/slok/codesbx/internal/log"
	"github.com/slok/codesbx/internal/model"
)

// SourceUnitName is the name the submitted source gets inside the compiler input.
const SourceUnitName = "contract.sol"

// Runner runs a Solidity compiler in standard JSON mode, it receives the
// standard JSON input and returns the standard JSON output.
type Runner interface {
	Run(ctx context.Context, input []byte) ([]byte, error)
}

// Checker is implemented by runners that can verify their own dependencies.
type Checker interface {
	Check(ctx context.Context) []model.CheckResult
}

// Config is the configuration of the compiler.
type Config struct {
	Runner  Runner
	Timeout time.Duration
	Logger  log.Logger
}

func (c *Config) defaults() error {
	if c.Runner == nil {
		return fmt.Errorf("runner is required")
	}
	if c.Timeout == 0 {
		c.Timeout = model.DefaultCompileTimeout
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "compiler.Compiler"})
	return nil
}

// Compiler compiles Solidity sources into an ABI and deployment bytecode.
type Compiler struct {
	runner  Runner
	timeout time.Duration
	logger  log.Logger
}

// New returns a new compiler.
func New(cfg Config) (*Compiler, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Compiler{
		runner:  cfg.Runner,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}, nil
}

// Compile compiles the source as a single compilation unit. Compiler
// diagnostics and compiler failures are part of the returned result, never a
// Go error.
func (c *Compiler) Compile(ctx context.Context, source string) model.CompileResult {
	logger := c.logger.WithCtxValues(ctx)
	start := time.Now()

	res, err := c.compile(ctx, source)
	if err != nil {
		logger.Warningf("compilation could not be completed: %s", err)
		return model.CompileFailure(err)
	}

	logger.Debugf("compiled in %s (errors: %d, warnings: %d)", time.Since(start), len(res.Errors), len(res.Warnings))
	return res
}

// Check returns the preflight checks of the compiler runner.
func (c *Compiler) Check(ctx context.Context) []model.CheckResult {
	checker, ok := c.runner.(Checker)
	if !ok {
		return []model.CheckResult{{ID: "compiler_runner", Status: model.CheckStatusOK, Message: "Runner has no checks"}}
	}
	return checker.Check(ctx)
}

func (c *Compiler) compile(ctx context.Context, source string) (model.CompileResult, error) {
	input, err := NewStandardInput(source)
	if err != nil {
		return model.CompileResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.runner.Run(ctx, input)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return model.CompileResult{}, fmt.Errorf("Compilation timed out after %dms", c.timeout.Milliseconds())
		}
		return model.CompileResult{}, err
	}

	return ParseStandardOutput(out)
}

type standardInput struct {
	Language string                    `json:"language"`
	Sources  map[string]standardSource `json:"sources"`
	Settings standardSettings          `json:"settings"`
}

type standardSource struct {
	Content string `json:"content"`
}

type standardSettings struct {
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

// NewStandardInput returns the compiler standard JSON input for a source. Only
// the ABI and the deployment bytecode are requested, with the optimizer off.
func NewStandardInput(source string) ([]byte, error) {
	in := standardInput{
		Language: "Solidity",
		Sources: map[string]standardSource{
			SourceUnitName: {Content: source},
		},
		Settings: standardSettings{
			OutputSelection: map[string]map[string][]string{
				"*": {"*": {"abi", "evm.bytecode"}},
			},
		},
	}

	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("could not marshal compiler input: %w", err)
	}
	return b, nil
}

type standardOutput struct {
	Errors    []diagnostic               `json:"errors"`
	Contracts map[string]json.RawMessage `json:"contracts"`
}

type diagnostic struct {
	Severity         string `json:"severity"`
	Type             string `json:"type"`
	Message          string `json:"message"`
	FormattedMessage string `json:"formattedMessage"`
}

func (d diagnostic) text() string {
	if d.FormattedMessage != "" {
		return d.FormattedMessage
	}
	return d.Message
}

type contractOutput struct {
	ABI json.RawMessage `json:"abi"`
	EVM struct {
		Bytecode struct {
			Object string `json:"object"`
		} `json:"bytecode"`
	} `json:"evm"`
}

// ParseStandardOutput maps the compiler standard JSON output into a compile
// result. Diagnostics with error severity fail the result, the rest are
// warnings. On success the first contract emitted for the source unit is used.
func ParseStandardOutput(out []byte) (model.CompileResult, error) {
	var so standardOutput
	if err := json.Unmarshal(out, &so); err != nil {
		return model.CompileResult{}, fmt.Errorf("could not parse compiler output: %w", err)
	}

	res := model.CompileResult{Errors: []string{}, Warnings: []string{}}
	for _, d := range so.Errors {
		if d.Severity == "error" {
			res.Errors = append(res.Errors, d.text())
			continue
		}
		res.Warnings = append(res.Warnings, d.text())
	}

	if len(res.Errors) > 0 {
		return res.Normalize(), nil
	}

	name, raw, err := firstContract(so.Contracts[SourceUnitName])
	if err != nil {
		return model.CompileResult{}, err
	}
	if name == "" {
		res.Errors = append(res.Errors, "no contract found in source")
		return res.Normalize(), nil
	}

	var co contractOutput
	if err := json.Unmarshal(raw, &co); err != nil {
		return model.CompileResult{}, fmt.Errorf("could not parse contract %q output: %w", name, err)
	}

	res.Success = true
	res.ABI = co.ABI
	res.Bytecode = co.EVM.Bytecode.Object
	if len(res.ABI) == 0 || string(res.ABI) == "null" {
		res.ABI = json.RawMessage("[]")
	}

	return res.Normalize(), nil
}

// firstContract returns the first contract of a source unit output keeping the
// order the keys have in the document. An empty name means no contract.
func firstContract(unit json.RawMessage) (string, json.RawMessage, error) {
	if len(unit) == 0 || string(unit) == "null" {
		return "", nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(unit))
	tk, err := dec.Token()
	if err != nil {
		return "", nil, fmt.Errorf("could not parse compiler contracts: %w", err)
	}
	if d, ok := tk.(json.Delim); !ok || d != '{' {
		return "", nil, fmt.Errorf("could not parse compiler contracts: object expected")
	}

	tk, err = dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil, fmt.Errorf("could not parse compiler contracts: %w", io.ErrUnexpectedEOF)
		}
		return "", nil, fmt.Errorf("could not parse compiler contracts: %w", err)
	}

	name, ok := tk.(string)
	if !ok {
		// Closing delimiter, no contracts.
		return "", nil, nil
	}

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return "", nil, fmt.Errorf("could not parse contract %q output: %w", name, err)
	}

	return name, raw, nil
}
