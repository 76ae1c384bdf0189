package io

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/codesbx/internal/model"
)

func defaultConfig() model.SandboxConfig {
	cfg := model.SandboxConfig{}
	cfg.Defaults()
	return cfg
}

func TestConfigYAMLRepositoryGetConfig(t *testing.T) {
	tests := map[string]struct {
		fs     fstest.MapFS
		path   string
		expCfg func() model.SandboxConfig
		expErr bool
		errMsg string
	}{
		"A full config should load successfully.": {
			fs: fstest.MapFS{
				"codesbx.yaml": &fstest.MapFile{
					Data: []byte(`compiler:
  runner: docker
  timeout: 20s
  docker:
    image: ethereum/solc:0.8.20
    platform: linux/amd64
    resources:
      vcpus: 0.5
      memory_mb: 256
interpreter:
  timeout: 2s
  max_call_stack_size: 500
`),
				},
			},
			path: "codesbx.yaml",
			expCfg: func() model.SandboxConfig {
				return model.SandboxConfig{
					Compiler: model.CompilerConfig{
						Runner:     model.CompilerRunnerDocker,
						Timeout:    20 * time.Second,
						SolcBinary: model.DefaultSolcBinary,
						Docker: model.DockerCompilerConfig{
							Image:     "ethereum/solc:0.8.20",
							Platform:  "linux/amd64",
							Resources: model.Resources{VCPUs: 0.5, MemoryMB: 256},
						},
					},
					Interpreter: model.InterpreterConfig{
						Timeout:          2 * time.Second,
						MaxCallStackSize: 500,
					},
				}
			},
		},

		"A partial config should be defaulted.": {
			fs: fstest.MapFS{
				"codesbx.yaml": &fstest.MapFile{Data: []byte("compiler:\n  solc_binary: /opt/solc\n")},
			},
			path: "codesbx.yaml",
			expCfg: func() model.SandboxConfig {
				cfg := defaultConfig()
				cfg.Compiler.SolcBinary = "/opt/solc"
				return cfg
			},
		},

		"An empty config should return the defaults.": {
			fs: fstest.MapFS{
				"empty.yaml": &fstest.MapFile{Data: []byte("---\n")},
			},
			path:   "empty.yaml",
			expCfg: defaultConfig,
		},

		"Missing file should return error.": {
			fs:     fstest.MapFS{},
			path:   "nonexistent.yaml",
			expErr: true,
			errMsg: "reading config file",
		},

		"Invalid YAML should return error.": {
			fs: fstest.MapFS{
				"invalid.yaml": &fstest.MapFile{Data: []byte(`invalid: yaml: content: {}`)},
			},
			path:   "invalid.yaml",
			expErr: true,
			errMsg: "parsing YAML",
		},

		"Unknown fields should return error.": {
			fs: fstest.MapFS{
				"codesbx.yaml": &fstest.MapFile{Data: []byte("compiler:\n  runer: docker\n")},
			},
			path:   "codesbx.yaml",
			expErr: true,
			errMsg: "parsing YAML",
		},

		"An unknown runner should return error.": {
			fs: fstest.MapFS{
				"codesbx.yaml": &fstest.MapFile{Data: []byte("compiler:\n  runner: remix\n")},
			},
			path:   "codesbx.yaml",
			expErr: true,
			errMsg: `unknown compiler runner "remix"`,
		},

		"An invalid duration should return error.": {
			fs: fstest.MapFS{
				"codesbx.yaml": &fstest.MapFile{Data: []byte("interpreter:\n  timeout: soon\n")},
			},
			path:   "codesbx.yaml",
			expErr: true,
			errMsg: "interpreter timeout",
		},

		"A negative duration should return error.": {
			fs: fstest.MapFS{
				"codesbx.yaml": &fstest.MapFile{Data: []byte("compiler:\n  timeout: -1s\n")},
			},
			path:   "codesbx.yaml",
			expErr: true,
			errMsg: "compiler timeout",
		},

		"Negative resources should return error.": {
			fs: fstest.MapFS{
				"codesbx.yaml": &fstest.MapFile{Data: []byte("compiler:\n  docker:\n    resources:\n      memory_mb: -5\n")},
			},
			path:   "codesbx.yaml",
			expErr: true,
			errMsg: "can't be negative",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			repo := NewConfigYAMLRepository(test.fs)
			cfg, err := repo.GetConfig(context.Background(), test.path)

			if test.expErr {
				require.Error(err)
				assert.Contains(err.Error(), test.errMsg)
				return
			}

			require.NoError(err)
			assert.Equal(test.expCfg(), cfg)
		})
	}
}

func TestConfigYAMLRepositoryGetConfigCancelled(t *testing.T) {
	repo := NewConfigYAMLRepository(fstest.MapFS{"c.yaml": &fstest.MapFile{Data: []byte("{}")}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.GetConfig(ctx, "c.yaml")
	assert.ErrorIs(t, err, context.Canceled)
}
