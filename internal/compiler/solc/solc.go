package solc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/slok/codesbx/internal/log"
	"github.com/slok/codesbx/internal/model"
)

// RunnerConfig is the configuration for the local solc runner.
type RunnerConfig struct {
	// Binary is the solc executable name or path.
	Binary string
	Logger log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.Binary == "" {
		c.Binary = model.DefaultSolcBinary
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "compiler.Solc"})
	return nil
}

// Runner runs a local solc binary in standard JSON mode.
type Runner struct {
	binary string
	logger log.Logger
}

// NewRunner returns a new local solc runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runner{
		binary: cfg.Binary,
		logger: cfg.Logger,
	}, nil
}

// Run runs `solc --standard-json` with the input on stdin.
func (r *Runner) Run(ctx context.Context, input []byte) ([]byte, error) {
	path, err := exec.LookPath(r.binary)
	if err != nil {
		return nil, fmt.Errorf("solc binary %q not found: %w", r.binary, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "--standard-json")
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debugf("Running %s --standard-json", path)
	err = cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("solc was stopped: %w", ctx.Err())
		}

		// Some solc versions exit with non zero code but still report the
		// diagnostics on the standard JSON output.
		if stdout.Len() > 0 && json.Valid(stdout.Bytes()) {
			return stdout.Bytes(), nil
		}

		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("solc failed: %s", msg)
	}

	return stdout.Bytes(), nil
}

// Check performs preflight checks for the local solc runner.
func (r *Runner) Check(ctx context.Context) []model.CheckResult {
	path, err := exec.LookPath(r.binary)
	if err != nil {
		return []model.CheckResult{{
			ID:      "solc_binary",
			Message: fmt.Sprintf("solc binary %q not found in PATH", r.binary),
			Status:  model.CheckStatusError,
		}}
	}

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return []model.CheckResult{{
			ID:      "solc_binary",
			Message: fmt.Sprintf("solc found at %s but could not get version: %v", path, err),
			Status:  model.CheckStatusWarning,
		}}
	}

	return []model.CheckResult{{
		ID:      "solc_binary",
		Message: fmt.Sprintf("solc found at %s (%s)", path, versionLine(string(out))),
		Status:  model.CheckStatusOK,
	}}
}

// versionLine extracts the `Version: ...` line from `solc --version`.
func versionLine(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "Version:"); ok {
			return strings.TrimSpace(v)
		}
	}
	return "unknown version"
}
