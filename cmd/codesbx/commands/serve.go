package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/codesbx/internal/api"
	"github.com/slok/codesbx/internal/app/compile"
	"github.com/slok/codesbx/internal/app/execute"
	"github.com/slok/codesbx/internal/app/runlist"
	"github.com/slok/codesbx/internal/model"
)

type ServeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	listenAddr      string
	environment     string
	corsOrigins     string
	maxBodyBytes    int64
	shutdownTimeout time.Duration
	version         string
}

// NewServeCommand returns the serve command.
func NewServeCommand(rootCmd *RootCommand, app *kingpin.Application, version string) *ServeCommand {
	c := &ServeCommand{rootCmd: rootCmd, version: version}

	c.Cmd = app.Command("serve", "Serve the editor HTTP API.")
	c.Cmd.Flag("listen-address", "The address where the HTTP API listens.").Default(":4000").StringVar(&c.listenAddr)
	c.Cmd.Flag("environment", "Runtime environment, production hides internal error details.").Default("development").StringVar(&c.environment)
	c.Cmd.Flag("cors-origin", "Comma separated list of allowed CORS origins.").Default(api.DefaultCORSOrigin).StringVar(&c.corsOrigins)
	c.Cmd.Flag("max-body-bytes", "Max size of a request body.").Default(fmt.Sprint(api.DefaultMaxBodyBytes)).Int64Var(&c.maxBodyBytes)
	c.Cmd.Flag("shutdown-timeout", "Graceful shutdown timeout.").Default("5s").DurationVar(&c.shutdownTimeout)

	return c
}

func (c ServeCommand) Name() string { return c.Cmd.FullCommand() }

func (c ServeCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	sb, err := c.rootCmd.NewSandbox(ctx)
	if err != nil {
		return err
	}

	for _, g := range sb.Check(ctx) {
		for _, r := range g.Results {
			if r.Status != model.CheckStatusOK {
				logger.Warningf("%s check %s: %s", g.Name, r.ID, r.Message)
			}
		}
	}

	repo, closeRepo, err := c.rootCmd.NewRunRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	compileSvc, err := compile.NewService(compile.ServiceConfig{Compiler: sb.Compiler(), Repository: repo, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create compile service: %w", err)
	}
	executeSvc, err := execute.NewService(execute.ServiceConfig{Interpreter: sb.Interpreter(), Repository: repo, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create execute service: %w", err)
	}

	cfg := api.Config{
		CompileService: compileSvc,
		ExecuteService: executeSvc,
		Environment:    c.environment,
		Version:        c.version,
		CORSOrigins:    splitList(c.corsOrigins),
		MaxBodyBytes:   c.maxBodyBytes,
		Logger:         logger,
	}
	if repo != nil {
		runListSvc, err := runlist.NewService(runlist.ServiceConfig{Repository: repo, Logger: logger})
		if err != nil {
			return fmt.Errorf("could not create run list service: %w", err)
		}
		cfg.RunListService = runListSvc
	}

	handler, err := api.NewHandler(cfg)
	if err != nil {
		return fmt.Errorf("could not create HTTP handler: %w", err)
	}

	server, err := api.NewServer(api.ServerConfig{
		ListenAddr:      c.listenAddr,
		Handler:         handler,
		ShutdownTimeout: c.shutdownTimeout,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("could not create HTTP server: %w", err)
	}

	return server.Run(ctx)
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
