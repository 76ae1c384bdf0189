package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/codesbx/internal/model"
)

// JSONPrinter prints results in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// runOutput represents a run in the JSON output.
type runOutput struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	CodeHash     string    `json:"code_hash"`
	CodeSize     int       `json:"code_size"`
	Success      bool      `json:"success"`
	DurationMs   int64     `json:"duration_ms"`
	ErrorMessage string    `json:"error_message,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

func mapRun(r model.Run) runOutput {
	return runOutput{
		ID:           r.ID,
		Kind:         string(r.Kind),
		CodeHash:     r.CodeHash,
		CodeSize:     r.CodeSize,
		Success:      r.Success,
		DurationMs:   r.Duration.Milliseconds(),
		ErrorMessage: r.ErrorMessage,
		RequestID:    r.RequestID,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

// PrintCompileResult prints the result as returned by the HTTP API.
func (j *JSONPrinter) PrintCompileResult(res model.CompileResult) error {
	return j.encode(res.Normalize())
}

// PrintExecuteResult prints the result as returned by the HTTP API.
func (j *JSONPrinter) PrintExecuteResult(res model.ExecuteResult) error {
	return j.encode(res.Normalize())
}

// PrintRuns prints runs in JSON format.
func (j *JSONPrinter) PrintRuns(runs []model.Run) error {
	items := make([]runOutput, len(runs))
	for i, r := range runs {
		items[i] = mapRun(r)
	}
	return j.encode(items)
}

// PrintRun prints a single run in JSON format.
func (j *JSONPrinter) PrintRun(run model.Run) error {
	return j.encode(mapRun(run))
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
