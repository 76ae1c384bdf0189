package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/codesbx/internal/app/compile"
)

// ErrRunFailed is returned when the submission didn't succeed, the details
// have already been printed.
var ErrRunFailed = errors.New("run failed")

type CompileCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	path   string
	format string
}

// NewCompileCommand returns the compile command.
func NewCompileCommand(rootCmd *RootCommand, app *kingpin.Application) *CompileCommand {
	c := &CompileCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("compile", "Compile a Solidity source file.")
	c.Cmd.Arg("file", "Solidity source file, use `-` for stdin.").Required().StringVar(&c.path)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c CompileCommand) Name() string { return c.Cmd.FullCommand() }

func (c CompileCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

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

	svc, err := compile.NewService(compile.ServiceConfig{
		Compiler:   sb.Compiler(),
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, compile.Request{Code: code})
	if err != nil {
		return fmt.Errorf("could not compile: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintCompileResult(*res); err != nil {
		return fmt.Errorf("could not print result: %w", err)
	}

	if !res.Success {
		return fmt.Errorf("compilation failed: %w", ErrRunFailed)
	}

	return nil
}
