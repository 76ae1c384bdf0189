package model

import "time"

// RunKind is the kind of editor operation a run represents.
type RunKind string

const (
	RunKindCompile RunKind = "compile"
	RunKindExecute RunKind = "execute"
)

// Valid returns true if the kind is a known one.
func (k RunKind) Valid() bool {
	return k == RunKindCompile || k == RunKindExecute
}

// Run is the audit record of a single compile or execute call. It never
// contains the submitted source nor the produced artifacts.
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

// RunFilter filters the listed runs.
type RunFilter struct {
	// Kind is optional, empty means all kinds.
	Kind RunKind
	// Limit is the max number of runs returned, 0 means the default.
	Limit int
}

// DefaultRunListLimit is the limit used when a filter doesn't set one.
const DefaultRunListLimit = 50
