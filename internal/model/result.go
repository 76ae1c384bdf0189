package model

import "encoding/json"

const (
	// NoOutputMessage is the output used when an execution didn't print anything.
	NoOutputMessage = "Code executed successfully (no output)"
	// ExecutionFailedMessage is used when a thrown value doesn't carry a message.
	ExecutionFailedMessage = "Execution failed"
	// CompilationFailedMessage is used when a compiler failure doesn't carry a message.
	CompilationFailedMessage = "Compilation failed"
)

// CompileResult is the outcome of compiling a Solidity source.
type CompileResult struct {
	Success bool `json:"success"`
	// ABI is the JSON ABI of the first contract, only set on success.
	ABI json.RawMessage `json:"abi,omitempty"`
	// Bytecode is the hex encoded deployment bytecode, only set on success.
	Bytecode string   `json:"bytecode,omitempty"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Normalize returns a copy of the result that satisfies the result invariants:
// a failed compilation never exposes artifacts and the diagnostic lists are
// never nil.
func (r CompileResult) Normalize() CompileResult {
	if len(r.Errors) > 0 {
		r.Success = false
	}
	if !r.Success {
		r.ABI = nil
		r.Bytecode = ""
	}
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	return r
}

// CompileFailure returns a failed compile result for an internal compiler error.
func CompileFailure(err error) CompileResult {
	msg := CompilationFailedMessage
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return CompileResult{Success: false, Errors: []string{msg}}.Normalize()
}

// ExecuteResult is the outcome of running a script.
type ExecuteResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Normalize returns a copy of the result that satisfies the result invariants.
func (r ExecuteResult) Normalize() ExecuteResult {
	if r.Success {
		r.Error = ""
		if r.Output == "" {
			r.Output = NoOutputMessage
		}
		return r
	}

	r.Output = ""
	if r.Error == "" {
		r.Error = ExecutionFailedMessage
	}
	return r
}
