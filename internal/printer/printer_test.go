package printer_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/codesbx/internal/model"
	"github.com/slok/codesbx/internal/printer"
)

func runFixture() model.Run {
	return model.Run{
		ID:           "01J9Z3B7ZQ6X8K2M4N5P6R7S8T",
		Kind:         model.RunKindExecute,
		CodeHash:     "deadbeef",
		CodeSize:     2048,
		Success:      false,
		Duration:     1500 * time.Millisecond,
		ErrorMessage: "x is not defined",
		RequestID:    "req-1",
		CreatedAt:    time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC),
	}
}

func TestTablePrinterPrintCompileResult(t *testing.T) {
	tests := map[string]struct {
		res         model.CompileResult
		expContains []string
		expMissing  []string
	}{
		"A successful compilation should print the artifacts.": {
			res: model.CompileResult{
				Success:  true,
				ABI:      json.RawMessage(`[{"type":"function","name":"get"}]`),
				Bytecode: "6080",
				Warnings: []string{"SPDX license identifier not provided"},
			},
			expContains: []string{
				"Compilation: ok",
				"Warning: SPDX license identifier not provided",
				`ABI:      [{"type":"function","name":"get"}]`,
				"Bytecode: 6080",
			},
		},
		"A failed compilation should print only the diagnostics.": {
			res: model.CompileResult{
				Success: false,
				Errors:  []string{"ParserError: Expected ';'"},
			},
			expContains: []string{"Compilation: failed", "Error: ParserError: Expected ';'"},
			expMissing:  []string{"ABI:", "Bytecode:"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			err := printer.NewTablePrinter(&buf).PrintCompileResult(test.res)
			require.NoError(t, err)

			out := buf.String()
			for _, exp := range test.expContains {
				assert.Contains(t, out, exp)
			}
			for _, exp := range test.expMissing {
				assert.NotContains(t, out, exp)
			}
		})
	}
}

func TestTablePrinterPrintExecuteResult(t *testing.T) {
	tests := map[string]struct {
		res    model.ExecuteResult
		expOut string
	}{
		"A successful execution should print the output.": {
			res:    model.ExecuteResult{Success: true, Output: "Hello\n42"},
			expOut: "Hello\n42\n",
		},
		"A failed execution should print the error.": {
			res:    model.ExecuteResult{Success: false, Error: "boom"},
			expOut: "Error: boom\n",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			err := printer.NewTablePrinter(&buf).PrintExecuteResult(test.res)
			require.NoError(t, err)
			assert.Equal(t, test.expOut, buf.String())
		})
	}
}

func TestTablePrinterPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	require.NoError(t, p.PrintRuns(nil))
	assert.Empty(t, buf.String())

	require.NoError(t, p.PrintRuns([]model.Run{runFixture()}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"ID", "KIND", "SUCCESS", "SIZE", "DURATION", "CREATED"}, strings.Fields(lines[0]))
	assert.Contains(t, lines[1], "01J9Z3B7ZQ6X8K2M4N5P6R7S8T")
	assert.Contains(t, lines[1], "execute")
	assert.Contains(t, lines[1], "2.0 KB")
	assert.Contains(t, lines[1], "1.5s")
}

func TestTablePrinterPrintRun(t *testing.T) {
	var buf bytes.Buffer
	err := printer.NewTablePrinter(&buf).PrintRun(runFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Kind:       execute")
	assert.Contains(t, out, "Error:      x is not defined")
	assert.Contains(t, out, "Created:    2026-01-30 10:00:00 UTC")
}

func TestJSONPrinterPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	err := printer.NewJSONPrinter(&buf).PrintRuns([]model.Run{runFixture()})
	require.NoError(t, err)

	exp := `[{
		"id": "01J9Z3B7ZQ6X8K2M4N5P6R7S8T",
		"kind": "execute",
		"code_hash": "deadbeef",
		"code_size": 2048,
		"success": false,
		"duration_ms": 1500,
		"error_message": "x is not defined",
		"request_id": "req-1",
		"created_at": "2026-01-30T10:00:00Z"
	}]`
	assert.JSONEq(t, exp, buf.String())
}

func TestJSONPrinterPrintRunsEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := printer.NewJSONPrinter(&buf).PrintRuns(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", buf.String())
}

func TestJSONPrinterPrintResults(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	require.NoError(t, p.PrintCompileResult(model.CompileResult{Success: false, Errors: []string{"e1"}}))
	assert.JSONEq(t, `{"success":false,"errors":["e1"],"warnings":[]}`, buf.String())

	buf.Reset()
	require.NoError(t, p.PrintExecuteResult(model.ExecuteResult{Success: true}))
	assert.JSONEq(t, `{"success":true,"output":"Code executed successfully (no output)"}`, buf.String())
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(buf.String()))
}
