package lib_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/codesbx/pkg/lib"
)

func newTestClient(t *testing.T) *lib.Client {
	t.Helper()
	client, err := lib.New(context.Background(), lib.Config{
		DBPath:         filepath.Join(t.TempDir(), "test.db"),
		CompilerRunner: lib.CompilerRunnerFake,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNew(t *testing.T) {
	tests := map[string]struct {
		cfg    lib.Config
		expErr error
	}{
		"Memory run log should work.": {
			cfg: lib.Config{RunLog: lib.RunLogMemory, CompilerRunner: lib.CompilerRunnerFake},
		},
		"Disabled run log should work.": {
			cfg: lib.Config{RunLog: lib.RunLogNone},
		},
		"Unknown compiler runner should fail.": {
			cfg:    lib.Config{RunLog: lib.RunLogNone, CompilerRunner: "remix"},
			expErr: lib.ErrNotValid,
		},
		"Unknown run log should fail.": {
			cfg:    lib.Config{RunLog: "redis"},
			expErr: lib.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			client, err := lib.New(context.Background(), test.cfg)
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, client.Close())
		})
	}
}

func TestClientCompile(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	res, err := client.Compile(ctx, "contract Counter {}")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.ABI)
	assert.True(t, strings.HasPrefix(res.Bytecode, "6080604052"))
	assert.Empty(t, res.Errors)

	res, err = client.Compile(ctx, "pragma solidity ^0.8.0;")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Nil(t, res.ABI)
	assert.Empty(t, res.Bytecode)
	assert.NotEmpty(t, res.Errors)

	_, err = client.Compile(ctx, "")
	assert.ErrorIs(t, err, lib.ErrNotValid)

	_, err = client.Compile(ctx, strings.Repeat("a", lib.MaxSourceLength+1))
	assert.ErrorIs(t, err, lib.ErrNotValid)
}

func TestClientExecute(t *testing.T) {
	tests := map[string]struct {
		code      string
		expResult lib.ExecuteResult
		expErr    error
	}{
		"Printing should return the output.": {
			code:      `console.log("a"); console.log({b: 1});`,
			expResult: lib.ExecuteResult{Success: true, Output: "a\n{\n  \"b\": 1\n}"},
		},
		"No output should return the placeholder.": {
			code:      `1 + 1;`,
			expResult: lib.ExecuteResult{Success: true, Output: "Code executed successfully (no output)"},
		},
		"Throwing should return the error.": {
			code:      `throw new Error("nope")`,
			expResult: lib.ExecuteResult{Success: false, Error: "nope"},
		},
		"An empty source should fail.": {
			code:   "",
			expErr: lib.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t)
			res, err := client.Execute(context.Background(), test.code)
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expResult, *res)
		})
	}
}

func TestClientRuns(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Execute(ctx, `console.log(1)`)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	_, err := client.Compile(ctx, "contract A {}")
	require.NoError(t, err)

	runs, err := client.ListRuns(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, runs, 6)

	runs, err = client.ListRuns(ctx, &lib.ListRunsOpts{Kind: lib.RunKindCompile})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, lib.RunKindCompile, runs[0].Kind)
	assert.Equal(t, len("contract A {}"), runs[0].CodeSize)

	got, err := client.GetRun(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, runs[0], *got)

	_, err = client.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, lib.ErrNotFound)

	_, err = client.ListRuns(ctx, &lib.ListRunsOpts{Kind: "deploy"})
	assert.ErrorIs(t, err, lib.ErrNotValid)
}

func TestClientRunsDisabled(t *testing.T) {
	client, err := lib.New(context.Background(), lib.Config{RunLog: lib.RunLogNone})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.ListRuns(context.Background(), nil)
	assert.ErrorIs(t, err, lib.ErrNotValid)
}

func TestClientDoctor(t *testing.T) {
	client := newTestClient(t)

	results := client.Doctor(context.Background())
	assert.Equal(t, []lib.CheckResult{
		{ID: "fake_compiler", Message: "Fake compiler runner in use, Solidity is not really compiled", Status: lib.CheckStatusWarning},
		{ID: "js_runtime", Message: "Interpreter self test passed", Status: lib.CheckStatusOK},
	}, results)
}

func TestClientHandler(t *testing.T) {
	client := newTestClient(t)

	h, err := client.Handler(nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/editor/execute", strings.NewReader(`{"code":"console.log(2*21)"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"success":true,"output":"42"}}`, w.Body.String())
}
