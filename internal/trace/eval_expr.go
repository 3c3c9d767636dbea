package trace

import "github.com/sunholo/ailang-debugger/internal/script"

// EvalFailure is the structured exception info returned when EVAL's
// expression raises instead of completing normally, matching
// original_source's evaluate_expression except-branch product shape
// ({'type', 'value', 'traceback'}).
type EvalFailure struct {
	Type      string
	Value     []script.Value
	Traceback []string
}

// Evaluate runs expression against frame's combined global+local scope
// using interp, the same interpreter instance mid-run so mutations are
// visible to subsequent steps (spec.md §4.C). On success it returns the
// resulting Value; on failure it returns a non-nil *EvalFailure and a
// nil Value. Evaluator failures are always recovered here — they never
// propagate as engine-terminating errors (spec.md §7).
func Evaluate(interp *script.Interp, frame *script.Frame, expression string) (script.Value, *EvalFailure) {
	val, err := interp.EvalExpr(expression, frame.Env, frame)
	if err == nil {
		return val, nil
	}
	se, ok := err.(*script.ScriptError)
	if !ok {
		se = &script.ScriptError{Kind: "Error", Message: err.Error()}
	}
	return nil, &EvalFailure{
		Type:      se.Kind,
		Value:     se.Args,
		Traceback: se.Traceback(),
	}
}
