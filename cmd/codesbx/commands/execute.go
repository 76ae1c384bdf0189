package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/codesbx/internal/app/execute"
)

type ExecuteCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	path   string
	format string
}

// NewExecuteCommand returns the execute command.
func NewExecuteCommand(rootCmd *RootCommand, app *kingpin.Application) *ExecuteCommand {
	c := &ExecuteCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("execute", "Run a JavaScript source file in the sandboxed interpreter.")
	c.Cmd.Arg("file", "JavaScript source file, use `-` for stdin.").Required().StringVar(&c.path)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c ExecuteCommand) Name() string { return c.Cmd.FullCommand() }

func (c ExecuteCommand) Run(ctx context.Context) error {
	code, err := readSource(c.path, c.rootCmd.Stdin)
	if err != nil {
		return err
	}

	sb, err := c.rootCmd.NewSandbox(ctx)
	if err != nil {
		return err
	}

	repo, closeRepo, err := c.rootCmd.NewRunRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	svc, err := execute.NewService(execute.ServiceConfig{
		Interpreter: sb.Interpreter(),
		Repository:  repo,
		Logger:      c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, execute.Request{Code: code})
	if err != nil {
		return fmt.Errorf("could not execute: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintExecuteResult(*res); err != nil {
		return fmt.Errorf("could not print result: %w", err)
	}

	if !res.Success {
		return fmt.Errorf("execution failed: %w", ErrRunFailed)
	}

	return nil
}
