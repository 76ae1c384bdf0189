package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/codesbx/cmd/codesbx/commands"
)

func TestRun(t *testing.T) {
	tests := map[string]struct {
		args      []string
		stdin     string
		expOut    string
		expErr    bool
		expErrIs  error
		expOutSub []string
	}{
		"Executing a script from stdin should print its output.": {
			args:   []string{"--run-log=none", "execute", "-"},
			stdin:  `console.log("Hello"); console.log(40 + 2);`,
			expOut: "Hello\n42\n",
		},
		"Executing a failing script should print the error and fail.": {
			args:     []string{"--run-log=none", "execute", "-"},
			stdin:    `undefinedFn()`,
			expErr:   true,
			expErrIs: commands.ErrRunFailed,
			expOutSub: []string{
				"Error: undefinedFn is not defined",
			},
		},
		"Compiling with the fake runner should print the artifacts.": {
			args:      []string{"--run-log=none", "--compiler-runner=fake", "compile", "-", "--format=json"},
			stdin:     "contract Counter {}",
			expOutSub: []string{`"success": true`, `"bytecode": "6080604052`},
		},
		"Compiling a source without contracts should fail.": {
			args:      []string{"--run-log=none", "--compiler-runner=fake", "compile", "-"},
			stdin:     "// nothing here",
			expErr:    true,
			expErrIs:  commands.ErrRunFailed,
			expOutSub: []string{"Compilation: failed", "no contract found in source"},
		},
		"Executing an empty source should fail validation.": {
			args:   []string{"--run-log=none", "execute", "-"},
			stdin:  "",
			expErr: true,
		},
		"A missing source file should fail.": {
			args:   []string{"--run-log=none", "execute", "/does/not/exist.js"},
			expErr: true,
		},
		"An unknown command should fail.": {
			args:   []string{"deploy"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			args := append([]string{"codesbx"}, test.args...)
			err := Run(context.Background(), args, strings.NewReader(test.stdin), &stdout, &stderr)

			if test.expErr {
				require.Error(t, err)
				if test.expErrIs != nil {
					assert.ErrorIs(t, err, test.expErrIs)
				}
			} else {
				require.NoError(t, err)
			}

			if test.expOut != "" {
				assert.Equal(t, test.expOut, stdout.String())
			}
			for _, sub := range test.expOutSub {
				assert.Contains(t, stdout.String(), sub)
			}
		})
	}
}

func TestRunRecordsRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "codesbx.db")
	ctx := context.Background()

	run := func(stdin string, args ...string) (string, error) {
		var stdout, stderr bytes.Buffer
		args = append([]string{"codesbx", "--db-path", dbPath, "--compiler-runner=fake"}, args...)
		err := Run(ctx, args, strings.NewReader(stdin), &stdout, &stderr)
		return stdout.String(), err
	}

	_, err := run("contract A {}", "compile", "-")
	require.NoError(t, err)
	_, err = run("console.log(1)", "execute", "-")
	require.NoError(t, err)
	_, err = run("throw new Error('boom')", "execute", "-")
	require.ErrorIs(t, err, commands.ErrRunFailed)

	out, err := run("", "runs", "--format=json")
	require.NoError(t, err)

	var runs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 3)

	kinds := map[string]int{}
	var failed []string
	for _, r := range runs {
		kinds[r["kind"].(string)]++
		if r["success"] == false {
			failed = append(failed, r["error_message"].(string))
		}
	}
	assert.Equal(t, map[string]int{"compile": 1, "execute": 2}, kinds)
	assert.Equal(t, []string{"boom"}, failed)

	out, err = run("", "runs", "--kind=compile", "--format=json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)

	id, _ := runs[0]["id"].(string)
	out, err = run("", "runs", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Kind:       compile")
}
