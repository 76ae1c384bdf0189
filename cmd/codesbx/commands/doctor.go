package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/codesbx/internal/model"
	"github.com/slok/codesbx/internal/storage/sqlite"
)

type DoctorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewDoctorCommand returns the doctor command.
func NewDoctorCommand(rootCmd *RootCommand, app *kingpin.Application) *DoctorCommand {
	c := &DoctorCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("doctor", "Run preflight checks for the compiler, the interpreter and the run log.")
	return c
}

func (c DoctorCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoctorCommand) Run(ctx context.Context) error {
	out := c.rootCmd.Stdout

	sb, err := c.rootCmd.NewSandbox(ctx)
	if err != nil {
		return err
	}

	groups := sb.Check(ctx)
	groups = append(groups, model.CheckGroup{Name: "run log", Results: c.checkRunLog(ctx)})

	for _, g := range groups {
		fmt.Fprintf(out, "\nChecking %s...\n", g.Name)
		for _, r := range g.Results {
			fmt.Fprintf(out, "  %s %-20s %s\n", getStatusIcon(r.Status), r.ID, r.Message)
		}
	}

	summary := model.Summarize(groups)
	fmt.Fprintln(out)
	if summary.Clean() {
		fmt.Fprintln(out, "All checks passed!")
	} else {
		var parts []string
		if summary.Errors > 0 {
			parts = append(parts, fmt.Sprintf("%d error(s)", summary.Errors))
		}
		if summary.Warnings > 0 {
			parts = append(parts, fmt.Sprintf("%d warning(s)", summary.Warnings))
		}
		fmt.Fprintln(out, strings.Join(parts, ", "))
	}

	if summary.Failed() {
		return fmt.Errorf("preflight checks failed with %d error(s)", summary.Errors)
	}

	return nil
}

func (c DoctorCommand) checkRunLog(ctx context.Context) []model.CheckResult {
	if c.rootCmd.RunLog != RunLogSQLite {
		return []model.CheckResult{{ID: "run_log", Status: model.CheckStatusOK, Message: fmt.Sprintf("Run log backend is %s", c.rootCmd.RunLog)}}
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: c.rootCmd.DBPath, Logger: c.rootCmd.Logger})
	if err != nil {
		return []model.CheckResult{{ID: "run_log", Status: model.CheckStatusError, Message: fmt.Sprintf("Could not open %s: %s", c.rootCmd.DBPath, err)}}
	}
	defer repo.Close()

	v, err := repo.SchemaVersion(ctx)
	if err != nil {
		return []model.CheckResult{{ID: "run_log", Status: model.CheckStatusError, Message: fmt.Sprintf("Could not get schema version: %s", err)}}
	}

	return []model.CheckResult{{ID: "run_log", Status: model.CheckStatusOK, Message: fmt.Sprintf("%s (schema v%d)", c.rootCmd.DBPath, v)}}
}

func getStatusIcon(status model.CheckStatus) string {
	switch status {
	case model.CheckStatusOK:
		return "OK"
	case model.CheckStatusWarning:
		return "!!"
	case model.CheckStatusError:
		return "XX"
	default:
		return "??"
	}
}
