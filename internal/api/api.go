package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/slok/codesbx/internal/app/compile"
	"github.com/slok/codesbx/internal/app/execute"
	"github.com/slok/codesbx/internal/app/runlist"
	"github.com/slok/codesbx/internal/log"
	"github.com/slok/codesbx/internal/model"
)

const (
	// DefaultMaxBodyBytes is the max accepted request body size.
	DefaultMaxBodyBytes = 10 << 20 // 10 MiB.
	// DefaultCORSOrigin is the editor frontend origin allowed by default.
	DefaultCORSOrigin = "http://localhost:3000"
	// EnvironmentProduction hides internal error details.
	EnvironmentProduction = "production"
)

// CompileService compiles Solidity submissions.
type CompileService interface {
	Run(ctx context.Context, req compile.Request) (*model.CompileResult, error)
}

// ExecuteService executes JavaScript submissions.
type ExecuteService interface {
	Run(ctx context.Context, req execute.Request) (*model.ExecuteResult, error)
}

// RunListService reads the run log.
type RunListService interface {
	Run(ctx context.Context, req runlist.Request) ([]model.Run, error)
	Get(ctx context.Context, id string) (*model.Run, error)
}

// Config is the configuration of the HTTP API handler.
type Config struct {
	CompileService CompileService
	ExecuteService ExecuteService
	// RunListService is optional, without it the run endpoints are not registered.
	RunListService RunListService
	Environment    string
	Version        string
	CORSOrigins    []string
	MaxBodyBytes   int64
	Logger         log.Logger
	// Now is used to get the current time, useful for tests.
	Now func() time.Time
}

func (c *Config) defaults() error {
	if c.CompileService == nil {
		return fmt.Errorf("compile service is required")
	}
	if c.ExecuteService == nil {
		return fmt.Errorf("execute service is required")
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Version == "" {
		c.Version = "dev"
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{DefaultCORSOrigin}
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("max body bytes must be positive")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "api.HTTP"})
	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

type apiHandler struct {
	compileSvc   CompileService
	executeSvc   ExecuteService
	runListSvc   RunListService
	environment  string
	version      string
	maxBodyBytes int64
	upgrader     *websocket.Upgrader
	startedAt    time.Time
	now          func() time.Time
	logger       log.Logger
}

// NewHandler returns the HTTP handler of the editor API.
func NewHandler(cfg Config) (http.Handler, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	h := &apiHandler{
		compileSvc:   cfg.CompileService,
		executeSvc:   cfg.ExecuteService,
		runListSvc:   cfg.RunListService,
		environment:  cfg.Environment,
		version:      cfg.Version,
		maxBodyBytes: cfg.MaxBodyBytes,
		upgrader:     newUpgrader(cfg.CORSOrigins),
		startedAt:    cfg.Now(),
		now:          cfg.Now,
		logger:       cfg.Logger,
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(h.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.notFound)

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/", h.root).Methods(http.MethodGet)

	editor := r.PathPrefix("/api/editor").Subrouter()
	editor.HandleFunc("/compile", h.compile).Methods(http.MethodPost)
	editor.HandleFunc("/execute", h.execute).Methods(http.MethodPost)
	editor.HandleFunc("/ws", h.live).Methods(http.MethodGet)
	if h.runListSvc != nil {
		editor.HandleFunc("/runs", h.listRuns).Methods(http.MethodGet)
		editor.HandleFunc("/runs/{id}", h.getRun).Methods(http.MethodGet)
	}

	// Middlewares, the last one is the outermost.
	var handler http.Handler = r
	handler = h.recoverer(handler)
	handler = securityHeaders(handler)
	handler = compress(handler)
	handler = handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowCredentials(),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Request-ID"}),
	)(handler)
	handler = h.accessLog(handler)
	handler = requestID(handler)
	handler = handlers.ProxyHeaders(handler)

	return handler, nil
}
