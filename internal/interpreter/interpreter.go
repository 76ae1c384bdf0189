package interpreter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"

	"github.com/slok/codesbx/internal/log"
	"github.com/slok/codesbx/internal/model"
)

// Config is the configuration for the interpreter.
type Config struct {
	// Timeout is the wall clock budget of a single execution.
	Timeout time.Duration
	// MaxCallStackSize bounds the JS call stack depth.
	MaxCallStackSize int
	Logger           log.Logger
}

func (c *Config) defaults() error {
	if c.Timeout == 0 {
		c.Timeout = model.DefaultExecutionTimeout
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxCallStackSize == 0 {
		c.MaxCallStackSize = model.DefaultMaxCallStackSize
	}
	if c.MaxCallStackSize < 0 {
		return fmt.Errorf("max call stack size must be positive")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "interpreter.Goja"})
	return nil
}

// Interpreter runs untrusted JavaScript sources. Every execution uses a fresh
// runtime that only exposes the ECMAScript builtins and a console.log that
// writes into a buffer owned by that execution.
type Interpreter struct {
	timeout          time.Duration
	maxCallStackSize int
	logger           log.Logger
}

// New returns a new interpreter.
func New(cfg Config) (*Interpreter, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Interpreter{
		timeout:          cfg.Timeout,
		maxCallStackSize: cfg.MaxCallStackSize,
		logger:           cfg.Logger,
	}, nil
}

// errTimeout is the interrupt value used when the budget is exhausted.
type errTimeout struct{ timeout time.Duration }

func (e errTimeout) Error() string {
	return fmt.Sprintf("Script execution timed out after %dms", e.timeout.Milliseconds())
}

// Execute runs the code and returns its result. It never returns a Go error,
// every failure is part of the result.
func (i *Interpreter) Execute(ctx context.Context, code string) (res model.ExecuteResult) {
	logger := i.logger.WithCtxValues(ctx)
	start := time.Now()

	vm := goja.New()
	vm.SetMaxCallStackSize(i.maxCallStackSize)

	out := &strings.Builder{}
	if err := installConsole(vm, out); err != nil {
		logger.Errorf("could not prepare runtime: %s", err)
		return model.ExecuteResult{Success: false, Error: err.Error()}.Normalize()
	}

	// Interrupts are safe to call from other goroutines, goja checks them
	// between instructions so tight loops are stopped too.
	timer := time.AfterFunc(i.timeout, func() { vm.Interrupt(errTimeout{timeout: i.timeout}) })
	defer timer.Stop()

	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("interpreter panic: %v", r)
			res = model.ExecuteResult{Success: false, Error: fmt.Sprintf("%v", r)}.Normalize()
		}
	}()

	prg, err := compileScript(code)
	if err != nil {
		logger.Debugf("script could not be compiled: %s", err)
		return model.ExecuteResult{Success: false, Error: err.Error()}.Normalize()
	}

	_, err = vm.RunProgram(prg)
	if err != nil {
		msg := errorMessage(vm, err)
		logger.Debugf("script failed after %s: %s", time.Since(start), msg)
		return model.ExecuteResult{Success: false, Error: msg}.Normalize()
	}

	logger.Debugf("script executed in %s", time.Since(start))
	return model.ExecuteResult{
		Success: true,
		Output:  strings.TrimRight(out.String(), " \t\r\n\v\f"),
	}.Normalize()
}

// syntaxError is a script that can't be compiled, the message has no source position.
type syntaxError struct{ msg string }

func (e syntaxError) Error() string { return e.msg }

// compileScript compiles the code as a top level script.
func compileScript(code string) (*goja.Program, error) {
	ast, err := parser.ParseFile(nil, "", code, 0)
	if err != nil {
		var list parser.ErrorList
		if errors.As(err, &list) && len(list) > 0 {
			return nil, syntaxError{msg: list[0].Message}
		}
		return nil, syntaxError{msg: err.Error()}
	}

	prg, err := goja.CompileAST(ast, false)
	if err != nil {
		var cerr *goja.CompilerSyntaxError
		if errors.As(err, &cerr) {
			return nil, syntaxError{msg: cerr.Message}
		}
		return nil, err
	}

	return prg, nil
}

// errorMessage gets the user facing message of an execution error.
func errorMessage(vm *goja.Runtime, err error) string {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if v, ok := interrupted.Value().(error); ok && v != nil {
			return v.Error()
		}
		return model.ExecutionFailedMessage
	}

	var exception *goja.Exception
	if errors.As(err, &exception) {
		return thrownMessage(vm, exception.Value())
	}

	if err.Error() != "" {
		return err.Error()
	}
	return model.ExecutionFailedMessage
}

// thrownMessage returns the message property of a thrown value, if any.
func thrownMessage(vm *goja.Runtime, v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return model.ExecutionFailedMessage
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		return model.ExecutionFailedMessage
	}

	msg := obj.Get("message")
	if msg == nil || goja.IsUndefined(msg) || goja.IsNull(msg) {
		return model.ExecutionFailedMessage
	}

	s := msg.String()
	if s == "" {
		return model.ExecutionFailedMessage
	}
	return s
}
