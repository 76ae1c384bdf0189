package fake_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/codesbx/internal/compiler"
	"github.com/slok/codesbx/internal/compiler/fake"
)

func TestRunnerRun(t *testing.T) {
	tests := map[string]struct {
		config      fake.RunnerConfig
		source      string
		expSuccess  bool
		expErrors   []string
		expBytecode bool
	}{
		"Canned output should be returned as is.": {
			config:     fake.RunnerConfig{Output: []byte(`{"errors":[{"severity":"error","formattedMessage":"boom"}]}`)},
			source:     "contract A {}",
			expSuccess: false,
			expErrors:  []string{"boom"},
		},
		"A canned error should be returned.": {
			config:     fake.RunnerConfig{Err: fmt.Errorf("something")},
			source:     "contract A {}",
			expSuccess: false,
			expErrors:  []string{"something"},
		},
		"Declared contracts should be synthesized.": {
			config:      fake.RunnerConfig{},
			source:      "pragma solidity ^0.8.0;\n\ncontract A {}\nabstract contract B {}\ninterface C {}",
			expSuccess:  true,
			expErrors:   []string{},
			expBytecode: true,
		},
		"Sources without contracts should not synthesize any.": {
			config:     fake.RunnerConfig{},
			source:     "pragma solidity ^0.8.0;",
			expSuccess: false,
			expErrors:  []string{"no contract found in source"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			r, err := fake.NewRunner(test.config)
			require.NoError(err)
			c, err := compiler.New(compiler.Config{Runner: r})
			require.NoError(err)

			res := c.Compile(context.Background(), test.source)

			assert.Equal(test.expSuccess, res.Success)
			assert.Equal(test.expErrors, res.Errors)
			assert.Equal(test.expBytecode, res.Bytecode != "")
		})
	}
}

func TestRunnerRunContractOrder(t *testing.T) {
	r, err := fake.NewRunner(fake.RunnerConfig{})
	require.NoError(t, err)

	in, err := compiler.NewStandardInput("contract Zeta {}\ncontract Alpha {}")
	require.NoError(t, err)

	out, err := r.Run(context.Background(), in)
	require.NoError(t, err)

	// Keys are sorted like solc does.
	assert.Regexp(t, `"contract.sol":\{"Alpha":.*"Zeta":`, string(out))
}

func TestRunnerRunCancelledContext(t *testing.T) {
	r, err := fake.NewRunner(fake.RunnerConfig{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Run(ctx, []byte(`{}`))
	assert.ErrorIs(t, err, context.Canceled)
}
