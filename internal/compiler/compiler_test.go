package compiler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/codesbx/internal/compiler"
	"github.com/slok/codesbx/internal/compiler/fake"
	"github.com/slok/codesbx/internal/compiler/solc"
	"github.com/slok/codesbx/internal/model"
)

const counterSource = `contract Counter { uint public count; function inc() public { count++; } }`

const counterOutput = `{
  "contracts": {
    "contract.sol": {
      "Counter": {
        "abi": [
          {"inputs": [], "name": "count", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
          {"inputs": [], "name": "inc", "outputs": [], "stateMutability": "nonpayable", "type": "function"}
        ],
        "evm": {
          "bytecode": {
            "functionDebugData": {},
            "generatedSources": [],
            "linkReferences": {},
            "object": "6080604052348015600e575f5ffd5b5060",
            "opcodes": "PUSH1 0x80 PUSH1 0x40 MSTORE",
            "sourceMap": "0:72:0:-:0;;;;;;;;;;;;;;;;;;;"
          }
        }
      }
    }
  },
  "errors": [
    {
      "component": "general",
      "errorCode": "1878",
      "formattedMessage": "Warning: SPDX license identifier not provided in source file.\n--> contract.sol\n\n",
      "message": "SPDX license identifier not provided in source file.",
      "severity": "warning",
      "sourceLocation": {"end": -1, "file": "contract.sol", "start": -1},
      "type": "Warning"
    }
  ],
  "sources": {"contract.sol": {"id": 0}}
}`

// runnerFunc is a compiler.Runner made of a function.
type runnerFunc func(ctx context.Context, input []byte) ([]byte, error)

func (r runnerFunc) Run(ctx context.Context, input []byte) ([]byte, error) { return r(ctx, input) }

func abiNames(t *testing.T, abi json.RawMessage) []string {
	t.Helper()
	var entries []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(abi, &entries))

	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

func TestCompilerCompile(t *testing.T) {
	tests := map[string]struct {
		output      string
		runErr      error
		expSuccess  bool
		expABINames []string
		expBytecode string
		expErrors   []string
		expWarnings []string
	}{
		"A valid contract should return its ABI, bytecode and warnings.": {
			output:      counterOutput,
			expSuccess:  true,
			expABINames: []string{"count", "inc"},
			expBytecode: "6080604052348015600e575f5ffd5b5060",
			expErrors:   []string{},
			expWarnings: []string{"Warning: SPDX license identifier not provided in source file.\n--> contract.sol\n\n"},
		},
		"With multiple contracts the first emitted should be returned.": {
			output: `{"contracts":{"contract.sol":{
				"Zeta": {"abi":[{"type":"function","name":"z"}],"evm":{"bytecode":{"object":"01"}}},
				"Alpha": {"abi":[{"type":"function","name":"a"}],"evm":{"bytecode":{"object":"02"}}}
			}}}`,
			expSuccess:  true,
			expABINames: []string{"z"},
			expBytecode: "01",
			expErrors:   []string{},
			expWarnings: []string{},
		},
		"Contracts of other source units should be ignored.": {
			output: `{"contracts":{
				"other.sol": {"Other": {"abi":[],"evm":{"bytecode":{"object":"03"}}}},
				"contract.sol": {"Mine": {"abi":[],"evm":{"bytecode":{"object":"04"}}}}
			}}`,
			expSuccess:  true,
			expABINames: []string{},
			expBytecode: "04",
			expErrors:   []string{},
			expWarnings: []string{},
		},
		"Error diagnostics should fail the compilation and keep warnings.": {
			output: `{"errors":[
				{"severity":"warning","formattedMessage":"Warning: unused variable","message":"unused variable","type":"Warning"},
				{"severity":"error","formattedMessage":"ParserError: Expected ';' but got '}'","message":"Expected ';' but got '}'","type":"ParserError"},
				{"severity":"info","formattedMessage":"Info: something","message":"something","type":"Info"}
			],"contracts":{"contract.sol":{"Counter":{"abi":[],"evm":{"bytecode":{"object":"05"}}}}}}`,
			expSuccess:  false,
			expErrors:   []string{"ParserError: Expected ';' but got '}'"},
			expWarnings: []string{"Warning: unused variable", "Info: something"},
		},
		"Diagnostics without formatted message should use the message.": {
			output:      `{"errors":[{"severity":"error","message":"Expected pragma","type":"ParserError"}]}`,
			expSuccess:  false,
			expErrors:   []string{"Expected pragma"},
			expWarnings: []string{},
		},
		"A source unit without contracts should fail.": {
			output:      `{"sources":{"contract.sol":{"id":0}}}`,
			expSuccess:  false,
			expErrors:   []string{"no contract found in source"},
			expWarnings: []string{},
		},
		"An empty contracts object should fail.": {
			output:      `{"contracts":{"contract.sol":{}}}`,
			expSuccess:  false,
			expErrors:   []string{"no contract found in source"},
			expWarnings: []string{},
		},
		"A contract without ABI should return an empty ABI.": {
			output:      `{"contracts":{"contract.sol":{"Empty":{"evm":{"bytecode":{"object":"06"}}}}}}`,
			expSuccess:  true,
			expABINames: []string{},
			expBytecode: "06",
			expErrors:   []string{},
			expWarnings: []string{},
		},
		"Malformed compiler output should fail with a single error.": {
			output:      `{"contracts":`,
			expSuccess:  false,
			expErrors:   []string{"could not parse compiler output: unexpected end of JSON input"},
			expWarnings: []string{},
		},
		"A runner error should fail with its message.": {
			runErr:      fmt.Errorf("solc binary \"solc\" not found"),
			expSuccess:  false,
			expErrors:   []string{"solc binary \"solc\" not found"},
			expWarnings: []string{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			var runner compiler.Runner
			if test.runErr != nil {
				runner = runnerFunc(func(context.Context, []byte) ([]byte, error) { return nil, test.runErr })
			} else {
				r, err := fake.NewRunner(fake.RunnerConfig{Output: []byte(test.output)})
				require.NoError(err)
				runner = r
			}

			c, err := compiler.New(compiler.Config{Runner: runner})
			require.NoError(err)

			res := c.Compile(context.Background(), counterSource)

			assert.Equal(test.expSuccess, res.Success)
			assert.Equal(test.expErrors, res.Errors)
			assert.Equal(test.expWarnings, res.Warnings)
			assert.Equal(test.expBytecode, res.Bytecode)
			if test.expSuccess {
				assert.Equal(test.expABINames, abiNames(t, res.ABI))
			} else {
				assert.Nil(res.ABI)
			}
		})
	}
}

func TestCompilerCompileInput(t *testing.T) {
	var gotInput []byte
	runner := runnerFunc(func(_ context.Context, input []byte) ([]byte, error) {
		gotInput = input
		return []byte(counterOutput), nil
	})

	c, err := compiler.New(compiler.Config{Runner: runner})
	require.NoError(t, err)

	_ = c.Compile(context.Background(), counterSource)

	expInput := `{
		"language": "Solidity",
		"sources": {"contract.sol": {"content": "contract Counter { uint public count; function inc() public { count++; } }"}},
		"settings": {"outputSelection": {"*": {"*": ["abi", "evm.bytecode"]}}}
	}`
	assert.JSONEq(t, expInput, string(gotInput))
}

func TestCompilerCompileTimeout(t *testing.T) {
	runner := runnerFunc(func(ctx context.Context, _ []byte) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	c, err := compiler.New(compiler.Config{Runner: runner, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	res := c.Compile(context.Background(), counterSource)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"Compilation timed out after 50ms"}, res.Errors)
}

func TestCompilerCompileDeterministic(t *testing.T) {
	runner, err := fake.NewRunner(fake.RunnerConfig{})
	require.NoError(t, err)
	c, err := compiler.New(compiler.Config{Runner: runner})
	require.NoError(t, err)

	res1 := c.Compile(context.Background(), counterSource)
	res2 := c.Compile(context.Background(), counterSource)

	require.True(t, res1.Success)
	assert.Equal(t, res1, res2)
}

func TestNew(t *testing.T) {
	_, err := compiler.New(compiler.Config{})
	assert.Error(t, err)

	_, err = compiler.New(compiler.Config{Runner: runnerFunc(nil), Timeout: -time.Second})
	assert.Error(t, err)
}

func TestCompilerCheck(t *testing.T) {
	// Runners without checks.
	c, err := compiler.New(compiler.Config{Runner: runnerFunc(nil)})
	require.NoError(t, err)
	results := c.Check(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, model.CheckStatusOK, results[0].Status)

	// Runners with checks.
	r, err := fake.NewRunner(fake.RunnerConfig{})
	require.NoError(t, err)
	c, err = compiler.New(compiler.Config{Runner: r})
	require.NoError(t, err)
	results = c.Check(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, "fake_compiler", results[0].ID)
}

func TestCompilerCompileWithSolc(t *testing.T) {
	if _, err := exec.LookPath("solc"); err != nil {
		t.Skip("solc not available, skipping test")
	}

	r, err := solc.NewRunner(solc.RunnerConfig{})
	require.NoError(t, err)
	c, err := compiler.New(compiler.Config{Runner: r})
	require.NoError(t, err)

	res1 := c.Compile(context.Background(), "// SPDX-License-Identifier: MIT\npragma solidity >=0.4.0;\n"+counterSource)
	require.True(t, res1.Success, "errors: %v", res1.Errors)
	assert.ElementsMatch(t, []string{"count", "inc"}, abiNames(t, res1.ABI))
	assert.NotEmpty(t, res1.Bytecode)

	res2 := c.Compile(context.Background(), "// SPDX-License-Identifier: MIT\npragma solidity >=0.4.0;\n"+counterSource)
	assert.Equal(t, res1.ABI, res2.ABI)
	assert.Equal(t, res1.Bytecode, res2.Bytecode)

	res3 := c.Compile(context.Background(), "contract Broken { function f() public { uint x = } }")
	assert.False(t, res3.Success)
	assert.NotEmpty(t, res3.Errors)
	assert.Nil(t, res3.ABI)
}
