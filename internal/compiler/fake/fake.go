package fake

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/slok/codesbx/internal/log"
	"github.com/slok/codesbx/internal/model"
)

// RunnerConfig is the configuration for the fake runner.
type RunnerConfig struct {
	// Output is returned as is when set.
	Output []byte
	// Err is returned when set.
	Err    error
	Logger log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "compiler.Fake"})
	return nil
}

// Runner is a fake compiler runner. Without canned output it answers with a
// synthetic standard JSON output that has an entry for every contract declared
// in the sources, without compiling anything.
type Runner struct {
	output []byte
	err    error
	logger log.Logger
}

// NewRunner returns a new fake runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runner{
		output: cfg.Output,
		err:    cfg.Err,
		logger: cfg.Logger,
	}, nil
}

var contractDeclRe = regexp.MustCompile(`(?m)^\s*(?:abstract\s+)?(?:contract|library|interface)\s+([A-Za-z_$][A-Za-z0-9_$]*)`)

type fakeInput struct {
	Sources map[string]struct {
		Content string `json:"content"`
	} `json:"sources"`
}

type fakeContract struct {
	ABI []any `json:"abi"`
	EVM struct {
		Bytecode struct {
			Object string `json:"object"`
		} `json:"bytecode"`
	} `json:"evm"`
}

// Run returns the canned output or a synthetic one.
func (r *Runner) Run(ctx context.Context, input []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.output != nil {
		return r.output, nil
	}

	var in fakeInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid compiler input: %w", err)
	}

	// Contract names are emitted sorted, like solc does.
	contracts := map[string]map[string]fakeContract{}
	for unit, src := range in.Sources {
		contracts[unit] = map[string]fakeContract{}
		names := contractDeclRe.FindAllStringSubmatch(src.Content, -1)
		for _, n := range names {
			c := fakeContract{ABI: []any{}}
			sum := sha256.Sum256([]byte(unit + ":" + n[1] + ":" + src.Content))
			c.EVM.Bytecode.Object = "6080604052" + hex.EncodeToString(sum[:])
			contracts[unit][n[1]] = c
		}
	}

	r.logger.Debugf("Synthesized output for %d source units", len(contracts))

	// encoding/json sorts map keys.
	out, err := json.Marshal(map[string]any{
		"contracts": contracts,
		"sources":   sourceIDs(in),
	})
	if err != nil {
		return nil, fmt.Errorf("could not marshal fake output: %w", err)
	}

	return out, nil
}

func sourceIDs(in fakeInput) map[string]map[string]int {
	units := make([]string, 0, len(in.Sources))
	for u := range in.Sources {
		units = append(units, u)
	}
	sort.Strings(units)

	ids := map[string]map[string]int{}
	for i, u := range units {
		ids[u] = map[string]int{"id": i}
	}
	return ids
}

// Check performs preflight checks for the fake runner.
func (r *Runner) Check(ctx context.Context) []model.CheckResult {
	return []model.CheckResult{{
		ID:      "fake_compiler",
		Message: "Fake compiler runner in use, Solidity is not really compiled",
		Status:  model.CheckStatusWarning,
	}}
}
