package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/codesbx/internal/app/runlist"
	"github.com/slok/codesbx/internal/model"
	"github.com/slok/codesbx/internal/printer"
)

type RunsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id     string
	kind   string
	limit  int
	format string
}

// NewRunsCommand returns the runs command.
func NewRunsCommand(rootCmd *RootCommand, app *kingpin.Application) *RunsCommand {
	c := &RunsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("runs", "List the recorded compile and execute runs.")
	c.Cmd.Arg("id", "Show a single run.").StringVar(&c.id)
	c.Cmd.Flag("kind", "Filter by kind (compile, execute).").EnumVar(&c.kind, string(model.RunKindCompile), string(model.RunKindExecute))
	c.Cmd.Flag("limit", "Max number of runs listed.").Default("50").IntVar(&c.limit)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c RunsCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunsCommand) Run(ctx context.Context) error {
	if c.rootCmd.RunLog != RunLogSQLite {
		return fmt.Errorf("runs can only be listed from the sqlite run log")
	}

	repo, closeRepo, err := c.rootCmd.NewRunRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	svc, err := runlist.NewService(runlist.ServiceConfig{
		Repository: repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)

	if c.id != "" {
		run, err := svc.Get(ctx, c.id)
		if err != nil {
			return fmt.Errorf("could not get run: %w", err)
		}
		return p.PrintRun(*run)
	}

	runs, err := svc.Run(ctx, runlist.Request{Kind: model.RunKind(c.kind), Limit: c.limit})
	if err != nil {
		return fmt.Errorf("could not list runs: %w", err)
	}

	if err := p.PrintRuns(runs); err != nil {
		return fmt.Errorf("could not print runs: %w", err)
	}

	return nil
}

func newPrinter(format string, out io.Writer) printer.Printer {
	switch format {
	case "json":
		return printer.NewJSONPrinter(out)
	default: // table
		return printer.NewTablePrinter(out)
	}
}
