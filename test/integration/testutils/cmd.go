package testutils

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

var multiSpaceRegex = regexp.MustCompile(" +")

// RunCodesbx executes a codesbx command with the given arguments string (split by spaces).
// Use RunCodesbxArgs when arguments contain spaces that should be preserved.
func RunCodesbx(ctx context.Context, env []string, binary, cmdArgs string, stdin io.Reader, nolog bool) (stdout, stderr []byte, err error) {
	cmdArgs = strings.TrimSpace(cmdArgs)
	cmdArgs = multiSpaceRegex.ReplaceAllString(cmdArgs, " ")

	var args []string
	if cmdArgs != "" {
		args = strings.Split(cmdArgs, " ")
	}

	return RunCodesbxArgs(ctx, env, binary, args, stdin, nolog)
}

// RunCodesbxArgs executes a codesbx command with pre-split arguments.
func RunCodesbxArgs(ctx context.Context, env []string, binary string, args []string, stdin io.Reader, nolog bool) (stdout, stderr []byte, err error) {
	var outData, errData bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = stdin
	cmd.Stdout = &outData
	cmd.Stderr = &errData

	// Custom env goes after os.Environ(), the last duplicated key wins.
	newEnv := append([]string{}, os.Environ()...)
	newEnv = append(newEnv, env...)
	if nolog {
		newEnv = append(newEnv, "CODESBX_NO_LOG=true")
	}
	cmd.Env = newEnv

	err = cmd.Run()

	return outData.Bytes(), errData.Bytes(), err
}
