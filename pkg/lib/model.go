package lib

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/slok/codesbx/internal/model"
)

// Sentinel errors returned by the SDK, check them with [errors.Is].
var (
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned on invalid input or configuration.
	ErrNotValid = errors.New("not valid")
)

// MaxSourceLength is the max number of characters of a submitted source.
const MaxSourceLength = model.MaxSourceLength

// CompilerRunnerType selects how the Solidity compiler is run.
type CompilerRunnerType string

const (
	// CompilerRunnerSolc runs the solc binary of the host.
	CompilerRunnerSolc CompilerRunnerType = "solc"
	// CompilerRunnerDocker runs solc in a throwaway container without network.
	CompilerRunnerDocker CompilerRunnerType = "docker"
	// CompilerRunnerFake returns synthetic artifacts without compiling.
	// Use this for unit testing without a solc installation.
	CompilerRunnerFake CompilerRunnerType = "fake"
)

// RunLogType selects where the runs are recorded.
type RunLogType string

const (
	// RunLogSQLite records the runs in a SQLite database.
	RunLogSQLite RunLogType = "sqlite"
	// RunLogMemory keeps the runs in memory for the life of the client.
	RunLogMemory RunLogType = "memory"
	// RunLogNone doesn't record runs.
	RunLogNone RunLogType = "none"
)

// CompileResult is the outcome of a Solidity compilation.
type CompileResult struct {
	// Success is true when the compiler reported no errors.
	Success bool
	// ABI is the JSON ABI of the first contract. Nil when Success is false.
	ABI json.RawMessage
	// Bytecode is the hex deployment bytecode. Empty when Success is false.
	Bytecode string
	// Errors are the formatted compiler errors.
	Errors []string
	// Warnings are the formatted compiler warnings.
	Warnings []string
}

// ExecuteResult is the outcome of a script execution.
type ExecuteResult struct {
	// Success is true when the script finished without throwing or timing out.
	Success bool
	// Output is the console output. Only set when Success is true.
	Output string
	// Error is the failure message. Only set when Success is false.
	Error string
}

// RunKind is the kind of a recorded run.
type RunKind string

const (
	RunKindCompile RunKind = "compile"
	RunKindExecute RunKind = "execute"
)

// Run is the record of a compile or execute call. The source is never stored,
// only its hash and size.
type Run struct {
	ID           string
	Kind         RunKind
	CodeHash     string
	// CodeSize is the source size in bytes.
	CodeSize     int
	Success      bool
	Duration     time.Duration
	ErrorMessage string
	RequestID    string
	CreatedAt    time.Time
}

// ListRunsOpts are the options of [Client.ListRuns].
type ListRunsOpts struct {
	// Kind filters the runs, empty means all.
	Kind RunKind
	// Limit is the max number of runs, 0 means 50.
	Limit int
}

// CheckStatus represents the status of a preflight check.
type CheckStatus string

const (
	// CheckStatusOK indicates the check passed.
	CheckStatusOK CheckStatus = "ok"
	// CheckStatusWarning indicates the check passed with a warning.
	CheckStatusWarning CheckStatus = "warning"
	// CheckStatusError indicates the check failed.
	CheckStatusError CheckStatus = "error"
)

// CheckResult represents the result of a single preflight check.
type CheckResult struct {
	// ID is a unique identifier for the check (e.g. "solc_binary").
	ID string
	// Message is a human-readable description of the result.
	Message string
	// Status is the check status.
	Status CheckStatus
}

func fromInternalCompileResult(r model.CompileResult) *CompileResult {
	return &CompileResult{
		Success:  r.Success,
		ABI:      r.ABI,
		Bytecode: r.Bytecode,
		Errors:   r.Errors,
		Warnings: r.Warnings,
	}
}

func fromInternalRun(r model.Run) Run {
	return Run{
		ID:           r.ID,
		Kind:         RunKind(r.Kind),
		CodeHash:     r.CodeHash,
		CodeSize:     r.CodeSize,
		Success:      r.Success,
		Duration:     r.Duration,
		ErrorMessage: r.ErrorMessage,
		RequestID:    r.RequestID,
		CreatedAt:    r.CreatedAt,
	}
}

func fromInternalRunList(rs []model.Run) []Run {
	out := make([]Run, len(rs))
	for i, r := range rs {
		out[i] = fromInternalRun(r)
	}
	return out
}

func fromInternalCheckResults(results []model.CheckResult) []CheckResult {
	out := make([]CheckResult, len(results))
	for i, r := range results {
		out[i] = CheckResult{
			ID:      r.ID,
			Message: r.Message,
			Status:  CheckStatus(r.Status),
		}
	}
	return out
}

// mapError maps internal sentinel errors to the public ones, keeping the
// original message.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return &mappedError{original: err, sentinel: ErrNotFound}
	case errors.Is(err, model.ErrAlreadyExists):
		return &mappedError{original: err, sentinel: ErrAlreadyExists}
	case errors.Is(err, model.ErrNotValid):
		return &mappedError{original: err, sentinel: ErrNotValid}
	default:
		return err
	}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool { return target == e.sentinel }

func (e *mappedError) Unwrap() error { return e.original }
