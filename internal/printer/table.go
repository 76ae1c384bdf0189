package printer

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/slok/codesbx/internal/model"
)

// TablePrinter prints results in a human friendly format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintCompileResult prints the compilation outcome with its diagnostics.
func (t *TablePrinter) PrintCompileResult(res model.CompileResult) error {
	status := "failed"
	if res.Success {
		status = "ok"
	}
	fmt.Fprintf(t.writer, "Compilation: %s\n", status)

	for _, e := range res.Errors {
		fmt.Fprintf(t.writer, "\nError: %s\n", e)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(t.writer, "\nWarning: %s\n", w)
	}

	if res.Success {
		fmt.Fprintf(t.writer, "\nABI:      %s\n", string(res.ABI))
		fmt.Fprintf(t.writer, "Bytecode: %s\n", res.Bytecode)
	}

	return nil
}

// PrintExecuteResult prints the script output or its error.
func (t *TablePrinter) PrintExecuteResult(res model.ExecuteResult) error {
	if !res.Success {
		fmt.Fprintf(t.writer, "Error: %s\n", res.Error)
		return nil
	}

	fmt.Fprintln(t.writer, res.Output)
	return nil
}

// PrintRuns prints runs in a table format.
func (t *TablePrinter) PrintRuns(runs []model.Run) error {
	if len(runs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	now := time.Now()

	fmt.Fprintln(tw, "ID\tKIND\tSUCCESS\tSIZE\tDURATION\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%s\n",
			r.ID,
			r.Kind,
			r.Success,
			FormatCodeSize(r.CodeSize),
			FormatDuration(r.Duration),
			TimeAgo(r.CreatedAt, now),
		)
	}

	return nil
}

// PrintRun prints a detailed run.
func (t *TablePrinter) PrintRun(run model.Run) error {
	fmt.Fprintf(t.writer, "ID:         %s\n", run.ID)
	fmt.Fprintf(t.writer, "Kind:       %s\n", run.Kind)
	fmt.Fprintf(t.writer, "Success:    %t\n", run.Success)
	fmt.Fprintf(t.writer, "Code hash:  %s\n", run.CodeHash)
	fmt.Fprintf(t.writer, "Code size:  %s\n", FormatCodeSize(run.CodeSize))
	fmt.Fprintf(t.writer, "Duration:   %s\n", FormatDuration(run.Duration))
	if run.ErrorMessage != "" {
		fmt.Fprintf(t.writer, "Error:      %s\n", run.ErrorMessage)
	}
	if run.RequestID != "" {
		fmt.Fprintf(t.writer, "Request ID: %s\n", run.RequestID)
	}
	fmt.Fprintf(t.writer, "Created:    %s\n", FormatTimestamp(run.CreatedAt))

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
