package trace

import (
	"fmt"

	"github.com/sunholo/ailang-debugger/internal/errors"
	"github.com/sunholo/ailang-debugger/internal/script"
)

// RunTrace is the engine's single entry point (spec.md §4.F, §6): it
// waits for the controller's START action, compiles source under
// fileName, builds either a default or sandboxed scope, installs a
// FrameProcessor as the interpreter's trace hook, then runs the
// program to completion (or until a QUIT unwinds it), emitting exactly
// the STARTED/ERROR/DATA/PRODUCT results spec.md §3 describes on
// results. RunTrace always closes results before returning, and never
// panics — every failure path is translated into a terminal ERROR
// result first.
func RunTrace(fileName, source string, sandbox bool, actions <-chan Action, results chan<- Result) {
	defer close(results)
	defer func() {
		if p := recover(); p != nil {
			results <- errorResult(fmt.Sprintf("internal error: %v", p))
		}
	}()

	first, ok := <-actions
	if !ok {
		return
	}
	if first.Name != ActionStart {
		results <- errorResult(fmt.Sprintf("expected START, got %q", first.Name))
		return
	}

	prog, err := script.Parse([]byte(source))
	if err != nil {
		report := errors.NewCompile(errors.PAR001, err.Error(), 0)
		results <- reportError(report)
		return
	}

	var env *script.Environment
	if sandbox {
		env = SandboxScope(fileName)
	} else {
		env = DefaultScope(fileName)
	}

	results <- started()

	interp := script.NewInterp()
	processor := NewFrameProcessor(fileName, interp, actions, results)
	interp.SetTraceHook(processor.Hook)

	runErr := interp.Run(prog, env)
	if runErr == nil || runErr == ErrQuit {
		return
	}

	if se, ok := runErr.(*script.ScriptError); ok {
		report := errors.NewRuntime(runtimeCode(se.Kind), se.Error(), lastFrameLine(se), map[string]any{
			"traceback": se.Traceback(),
		})
		results <- reportError(report)
		return
	}

	results <- errorResult(runErr.Error())
}

func lastFrameLine(se *script.ScriptError) int {
	if len(se.Stack) == 0 {
		return 0
	}
	return se.Stack[len(se.Stack)-1].Line
}

// runtimeCode maps a script.ScriptError's Kind to this engine's error
// code taxonomy (internal/errors.codes.go).
func runtimeCode(kind string) string {
	switch kind {
	case "ZeroDivisionError":
		return errors.RT001
	case "NameError":
		return errors.RT002
	case "IndexError", "KeyError":
		return errors.RT003
	case "AttributeError":
		return errors.RT005
	case "ModuleNotFoundError", "ImportError":
		return errors.SCP001
	case "SyntaxError":
		return errors.PAR001
	default:
		return errors.RT004
	}
}

func reportError(r *errors.Report) Result {
	return errorResult(r.Message)
}
