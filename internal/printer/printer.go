package printer

import "github.com/slok/codesbx/internal/model"

// Printer knows how to print sandbox results in different formats.
type Printer interface {
	PrintCompileResult(res model.CompileResult) error
	PrintExecuteResult(res model.ExecuteResult) error
	PrintRuns(runs []model.Run) error
	PrintRun(run model.Run) error
	PrintMessage(msg string) error
}
