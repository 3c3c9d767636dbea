// Package trace implements the step-debugger engine's core subsystems:
// the restricted scope builder, the frame classifier, the expression
// evaluator, the heap snapshotter and the trace-loop/controller protocol
// that ties them together, all driving internal/script as the embedded
// interpreter. Grounded on original_source/src/message.py,
// src/core/scope.py, src/core/tracer.py and src/inspector.py.
package trace

// ActionName tags the kind of an Action sent by the controller.
type ActionName string

const (
	ActionStart ActionName = "start"
	ActionStop  ActionName = "stop"
	ActionStep  ActionName = "step"
	ActionEval  ActionName = "eval"
	ActionInput ActionName = "input"
	// ActionQuit is named QUIT in spec.md; the original design called it
	// "stop" (message.Actions.STOP) — kept as an alias so both names
	// resolve to the same tag.
	ActionQuit ActionName = ActionStop
)

// ResultName tags the kind of a Result emitted by the engine.
type ResultName string

const (
	ResultStarted ResultName = "started"
	ResultError   ResultName = "error"
	ResultData    ResultName = "data"
	ResultProduct ResultName = "product"
	ResultPrint   ResultName = "print"
	ResultPrompt  ResultName = "prompt"
	ResultLocked  ResultName = "locked"
)

// EvalPayload is the value carried by an EVAL action.
type EvalPayload struct {
	Expression string
	Inspect    bool
}

// InputPayload is the value carried by an INPUT action.
type InputPayload struct {
	Text string
}

// Action is a tagged record sent from the controller to the engine on
// the actions channel (spec.md §3 Action, §6 Action schema).
type Action struct {
	Name  ActionName
	Value interface{} // *EvalPayload for EVAL, *InputPayload for INPUT, nil otherwise
}

// Eval extracts the EvalPayload from an EVAL action; ok is false for any
// other action or a malformed payload.
func (a Action) Eval() (EvalPayload, bool) {
	p, ok := a.Value.(*EvalPayload)
	if !ok || p == nil {
		return EvalPayload{}, false
	}
	return *p, true
}

// DataPayload is the value carried by a DATA result.
type DataPayload struct {
	Snapshot *Snapshot
	Finish   bool
}

// ProductPayload is the value carried by a PRODUCT result. Heap carries
// whatever heap entries Product's value (if composite) was registered
// into, so a reference inside Product always resolves even when
// Snapshot is nil (spec.md invariant 2, §4.C).
type ProductPayload struct {
	Product  interface{} // a scalar, a heap reference Value, or *EvalFailure
	Snapshot *Snapshot
	Heap     map[string]*HeapObject
}

// ErrorPayload is the value carried by an ERROR result.
type ErrorPayload struct {
	Message string
}

// Result is a tagged record sent from the engine to the controller on
// the results channel (spec.md §3 Result, §6 Result schema).
type Result struct {
	Name  ResultName
	Value interface{}
}

func started() Result { return Result{Name: ResultStarted} }

func data(payload DataPayload) Result { return Result{Name: ResultData, Value: &payload} }

func product(payload ProductPayload) Result { return Result{Name: ResultProduct, Value: &payload} }

func errorResult(message string) Result {
	return Result{Name: ResultError, Value: &ErrorPayload{Message: message}}
}
