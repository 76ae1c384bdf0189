package interpreter

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// installConsole sets a `console` global whose only capability is `log`,
// writing the formatted arguments plus a newline into out.
func installConsole(vm *goja.Runtime, out *strings.Builder) error {
	stringify, err := jsonStringify(vm)
	if err != nil {
		return err
	}

	console := vm.NewObject()
	err = console.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, formatArg(vm, stringify, arg))
		}
		out.WriteString(strings.Join(parts, " "))
		out.WriteString("\n")
		return goja.Undefined()
	})
	if err != nil {
		return fmt.Errorf("could not set console.log: %w", err)
	}

	if err := vm.Set("console", console); err != nil {
		return fmt.Errorf("could not set console: %w", err)
	}

	return nil
}

func jsonStringify(vm *goja.Runtime) (goja.Callable, error) {
	jsonObj := vm.Get("JSON")
	if jsonObj == nil {
		return nil, fmt.Errorf("JSON builtin missing")
	}
	stringify, ok := goja.AssertFunction(jsonObj.ToObject(vm).Get("stringify"))
	if !ok {
		return nil, fmt.Errorf("JSON.stringify builtin missing")
	}

	return func(this goja.Value, args ...goja.Value) (goja.Value, error) {
		return stringify(jsonObj, args...)
	}, nil
}

// formatArg renders objects as indented JSON and everything else with its
// string form. A JSON.stringify error (e.g. circular structure) is thrown
// back to the script.
func formatArg(vm *goja.Runtime, stringify goja.Callable, arg goja.Value) string {
	obj, isObj := arg.(*goja.Object)
	if !isObj {
		return arg.String()
	}
	if _, isFn := goja.AssertFunction(obj); isFn {
		return arg.String()
	}

	v, err := stringify(goja.Undefined(), arg, goja.Null(), vm.ToValue(2))
	if err != nil {
		if ex, ok := err.(*goja.Exception); ok {
			panic(ex.Value())
		}
		panic(vm.NewGoError(err))
	}

	// Stringifying can return undefined (e.g. toJSON returning undefined),
	// it's rendered as an empty string.
	if v == nil || goja.IsUndefined(v) {
		return ""
	}
	return v.String()
}
