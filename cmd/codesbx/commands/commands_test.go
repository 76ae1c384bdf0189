package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/codesbx/internal/log"
	"github.com/slok/codesbx/internal/model"
)

func TestRootCommandSandboxConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "codesbx.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("compiler:\n  runner: docker\ninterpreter:\n  timeout: 3s\n"), 0o600))
	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("compiler:\n  runner: remix\n"), 0o600))

	tests := map[string]struct {
		root   RootCommand
		expCfg func() model.SandboxConfig
		expErr bool
	}{
		"Without config file the defaults should be used.": {
			root: RootCommand{},
			expCfg: func() model.SandboxConfig {
				cfg := model.SandboxConfig{}
				cfg.Defaults()
				return cfg
			},
		},
		"The config file should be loaded.": {
			root: RootCommand{ConfigPath: cfgPath},
			expCfg: func() model.SandboxConfig {
				cfg := model.SandboxConfig{}
				cfg.Compiler.Runner = model.CompilerRunnerDocker
				cfg.Interpreter.Timeout = 3 * time.Second
				cfg.Defaults()
				return cfg
			},
		},
		"The compiler runner flag should override the config file.": {
			root: RootCommand{ConfigPath: cfgPath, CompilerRunner: "fake"},
			expCfg: func() model.SandboxConfig {
				cfg := model.SandboxConfig{}
				cfg.Compiler.Runner = model.CompilerRunnerFake
				cfg.Interpreter.Timeout = 3 * time.Second
				cfg.Defaults()
				return cfg
			},
		},
		"An invalid config file should fail.": {
			root:   RootCommand{ConfigPath: badPath},
			expErr: true,
		},
		"A missing config file should fail.": {
			root:   RootCommand{ConfigPath: filepath.Join(dir, "missing.yaml")},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := test.root.SandboxConfig(context.Background())
			if test.expErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expCfg(), cfg)
		})
	}
}

func TestRootCommandNewRunRepository(t *testing.T) {
	tests := map[string]struct {
		runLog  string
		expNil  bool
		expFile bool
	}{
		"Disabled run log should not return a repository.": {
			runLog: RunLogNone,
			expNil: true,
		},
		"Memory run log should return a repository.": {
			runLog: RunLogMemory,
		},
		"SQLite run log should create the database.": {
			runLog:  RunLogSQLite,
			expFile: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			dbPath := filepath.Join(t.TempDir(), "db", "codesbx.db")
			root := RootCommand{RunLog: test.runLog, DBPath: dbPath, Logger: log.Noop}

			repo, closeRepo, err := root.NewRunRepository(context.Background())
			require.NoError(t, err)
			defer closeRepo()

			if test.expNil {
				assert.Nil(t, repo)
				return
			}
			assert.NotNil(t, repo)

			_, err = os.Stat(dbPath)
			assert.Equal(t, test.expFile, err == nil)
		})
	}
}

func TestReadSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.js")
	require.NoError(t, os.WriteFile(path, []byte("console.log(1)"), 0o600))

	got, err := readSource(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", got)

	got, err = readSource("-", strings.NewReader("contract A {}"))
	require.NoError(t, err)
	assert.Equal(t, "contract A {}", got)

	_, err = readSource(filepath.Join(t.TempDir(), "missing.js"), nil)
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	tests := map[string]struct {
		in  string
		exp []string
	}{
		"A single item.":                  {in: "http://localhost:3000", exp: []string{"http://localhost:3000"}},
		"Multiple items should be split.": {in: "http://a, http://b ,", exp: []string{"http://a", "http://b"}},
		"Empty should return nothing.":    {in: " ", exp: nil},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, splitList(test.in))
		})
	}
}
