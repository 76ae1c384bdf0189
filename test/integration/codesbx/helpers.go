package codesbx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/slok/codesbx/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary         string
	CompilerRunner string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "codesbx"
	}

	// go test changes the CWD to the test package directory, relative paths would break.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("CODESBX_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("codesbx binary not found at %q: %w", c.Binary, err)
	}

	switch c.CompilerRunner {
	case "":
		c.CompilerRunner = "solc"
	case "solc", "docker":
	default:
		return fmt.Errorf("compiler runner must be solc or docker, got %q", c.CompilerRunner)
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation     = "CODESBX_INTEGRATION"
		envBinary         = "CODESBX_INTEGRATION_BINARY"
		envCompilerRunner = "CODESBX_INTEGRATION_COMPILER_RUNNER"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary:         os.Getenv(envBinary),
		CompilerRunner: os.Getenv(envCompilerRunner),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// RunCmd runs a codesbx command with a specific db path and the configured compiler runner.
func RunCmd(ctx context.Context, config Config, dbPath, cmdArgs string, stdin string) (stdout, stderr []byte, err error) {
	args := fmt.Sprintf("--db-path %s --compiler-runner %s %s", dbPath, config.CompilerRunner, cmdArgs)
	return testutils.RunCodesbx(ctx, nil, config.Binary, args, strings.NewReader(stdin), true)
}

// RunCompile compiles a Solidity source read from stdin, JSON output.
func RunCompile(ctx context.Context, config Config, dbPath, source string) (stdout, stderr []byte, err error) {
	return RunCmd(ctx, config, dbPath, "compile - --format json", source)
}

// RunExecute executes a JavaScript source read from stdin, JSON output.
func RunExecute(ctx context.Context, config Config, dbPath, source string) (stdout, stderr []byte, err error) {
	return RunCmd(ctx, config, dbPath, "execute - --format json", source)
}

// RunRuns lists the recorded runs in JSON format.
func RunRuns(ctx context.Context, config Config, dbPath, extraArgs string) (stdout, stderr []byte, err error) {
	return RunCmd(ctx, config, dbPath, "runs --format json "+extraArgs, "")
}

// StartServe starts the HTTP API in the background and waits until it's healthy.
// The server is stopped when the test finishes.
func StartServe(t *testing.T, config Config, dbPath string) (baseURL string) {
	t.Helper()

	addr, err := freeAddr()
	if err != nil {
		t.Fatalf("could not get a free address: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	args := []string{"--no-log", "--db-path", dbPath, "--compiler-runner", config.CompilerRunner, "serve", "--listen-address", addr}
	cmd := exec.CommandContext(ctx, config.Binary, args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 10 * time.Second
	if err := cmd.Start(); err != nil {
		cancel()
		t.Fatalf("could not start server: %s", err)
	}
	t.Cleanup(func() {
		cancel()
		_ = cmd.Wait()
	})

	baseURL = "http://" + addr
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return baseURL
			}
		}
		time.Sleep(200 * time.Millisecond)
	}

	t.Fatalf("server at %s not healthy after 30s", addr)
	return ""
}

func freeAddr() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer ln.Close()
	return ln.Addr().String(), nil
}
