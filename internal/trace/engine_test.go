package trace

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain reads exactly n results or fails the test after a generous
// timeout, so a hung engine fails fast instead of wedging CI.
func drain(t *testing.T, results <-chan Result, n int) []Result {
	t.Helper()
	out := make([]Result, 0, n)
	for i := 0; i < n; i++ {
		select {
		case r, ok := <-results:
			require.True(t, ok, "results closed early after %d of %d", i, n)
			out = append(out, r)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for result %d of %d", i, n)
		}
	}
	return out
}

// TestLinearScenario is spec.md §8 scenario 1.
func TestLinearScenario(t *testing.T) {
	actions := make(chan Action)
	results := make(chan Result)
	go RunTrace("<test>", "a = 1\nb = 2\n", false, actions, results)

	actions <- Action{Name: ActionStart}
	got := drain(t, results, 1)
	assert.Equal(t, ResultStarted, got[0].Name)

	for i := 0; i < 2; i++ {
		actions <- Action{Name: ActionStep}
		r := drain(t, results, 1)[0]
		require.Equal(t, ResultData, r.Name)
		payload := r.Value.(*DataPayload)
		assert.True(t, payload.Finish)
	}

	actions <- Action{Name: ActionStep}
	r := drain(t, results, 1)[0]
	require.Equal(t, ResultData, r.Name)
	payload := r.Value.(*DataPayload)
	assert.False(t, payload.Finish, "third STEP lands on natural termination")
}

// TestSandboxDenialScenario is spec.md §8 scenario 4.
func TestSandboxDenialScenario(t *testing.T) {
	// Buffered: the engine reports ERROR after the exception pause without
	// reading another action, so the STEP sent next must not block.
	actions := make(chan Action, 1)
	results := make(chan Result)
	go RunTrace("<test>", "import os\n", true, actions, results)

	actions <- Action{Name: ActionStart}
	got := drain(t, results, 1)
	assert.Equal(t, ResultStarted, got[0].Name)

	var r Result
	for i := 0; i < 5; i++ {
		actions <- Action{Name: ActionStep}
		r = drain(t, results, 1)[0]
		if r.Name != ResultData {
			break
		}
	}
	require.Equal(t, ResultError, r.Name)
	payload := r.Value.(*ErrorPayload)
	assert.Contains(t, payload.Message, "os")
}

// TestUnsandboxedImportSucceeds covers spec.md §4.A: only sandboxScope
// restricts imports, so the same "import os" that spec.md §8 scenario 4
// denies in sandbox mode must succeed unsandboxed.
func TestUnsandboxedImportSucceeds(t *testing.T) {
	actions := make(chan Action)
	results := make(chan Result)
	go RunTrace("<test>", "import os\nx = 1\n", false, actions, results)

	actions <- Action{Name: ActionStart}
	assert.Equal(t, ResultStarted, drain(t, results, 1)[0].Name)

	for i := 0; i < 2; i++ {
		actions <- Action{Name: ActionStep}
		r := drain(t, results, 1)[0]
		require.Equal(t, ResultData, r.Name, "unsandboxed import must not raise")
	}

	actions <- Action{Name: ActionQuit}
	drain(t, results, 1)
}

// TestEvalScenario is spec.md §8 scenario 5.
func TestEvalScenario(t *testing.T) {
	actions := make(chan Action)
	results := make(chan Result)
	go RunTrace("<test>", "a = 1\nb = 2\n", false, actions, results)

	actions <- Action{Name: ActionStart}
	drain(t, results, 1)

	actions <- Action{Name: ActionEval, Value: &EvalPayload{Expression: "1+2"}}
	r := drain(t, results, 1)[0]
	require.Equal(t, ResultProduct, r.Name)
	product := r.Value.(*ProductPayload)
	v, ok := product.Product.(Value)
	require.True(t, ok)
	assert.Equal(t, int64(3), v.Scalar)

	actions <- Action{Name: ActionQuit}
	drain(t, results, 1)
}

// TestEvalFreshCompositeResolvesInHeap guards spec.md invariant 2 for an
// EVAL product that is not already bound to any frame-local variable: a
// freshly constructed composite must still register in the heap that
// accompanies the PRODUCT result, not dangle as an unresolvable
// reference.
func TestEvalFreshCompositeResolvesInHeap(t *testing.T) {
	actions := make(chan Action)
	results := make(chan Result)
	go RunTrace("<test>", "a = 1\n", false, actions, results)

	actions <- Action{Name: ActionStart}
	drain(t, results, 1)

	actions <- Action{Name: ActionEval, Value: &EvalPayload{Expression: "[1, 2, 3]", Inspect: true}}
	r := drain(t, results, 1)[0]
	require.Equal(t, ResultProduct, r.Name)
	payload := r.Value.(*ProductPayload)

	v, ok := payload.Product.(Value)
	require.True(t, ok)
	require.True(t, v.IsRef, "a fresh list must come back as a heap reference")

	require.NotNil(t, payload.Snapshot)
	obj, ok := payload.Snapshot.Heap[v.Ref]
	require.True(t, ok, "product reference must resolve in the snapshot's own heap")
	assert.Equal(t, "alist", obj.HeapType)
	require.Len(t, obj.Members, 3)

	objFromPayload, ok := payload.Heap[v.Ref]
	require.True(t, ok, "product reference must also resolve in ProductPayload.Heap")
	assert.Same(t, obj, objFromPayload)

	actions <- Action{Name: ActionQuit}
	drain(t, results, 1)
}

// TestQuitScenario is spec.md §8 scenario 6.
func TestQuitScenario(t *testing.T) {
	actions := make(chan Action)
	results := make(chan Result)
	go RunTrace("<test>", "i = 0\nwhile true:\n    i = i + 1\n", false, actions, results)

	actions <- Action{Name: ActionStart}
	drain(t, results, 1)

	actions <- Action{Name: ActionStep}
	r := drain(t, results, 1)[0]
	payload := r.Value.(*DataPayload)
	assert.True(t, payload.Finish)

	actions <- Action{Name: ActionQuit}
	r = drain(t, results, 1)[0]
	assert.Equal(t, ResultData, r.Name)

	select {
	case _, ok := <-results:
		assert.False(t, ok, "engine must exit promptly after QUIT")
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not exit within bounded time after QUIT")
	}
}

func TestCompileErrorNeverStarts(t *testing.T) {
	actions := make(chan Action)
	results := make(chan Result)
	go RunTrace("<test>", "if true\n", false, actions, results)

	actions <- Action{Name: ActionStart}
	r := drain(t, results, 1)[0]
	require.Equal(t, ResultError, r.Name)
	payload := r.Value.(*ErrorPayload)
	assert.True(t, len(strings.TrimSpace(payload.Message)) > 0)
}

// TestEmptySourceBoundary is spec.md §8's "Empty source string" boundary
// behavior: the engine still emits STARTED, and answering the module's
// sole natural-termination event with a STEP yields a terminal DATA that
// carries no snapshot, after which the engine exits.
func TestEmptySourceBoundary(t *testing.T) {
	actions := make(chan Action)
	results := make(chan Result)
	go RunTrace("<test>", "", false, actions, results)

	actions <- Action{Name: ActionStart}
	got := drain(t, results, 1)
	assert.Equal(t, ResultStarted, got[0].Name)

	actions <- Action{Name: ActionStep}
	r := drain(t, results, 1)[0]
	require.Equal(t, ResultData, r.Name)
	payload := r.Value.(*DataPayload)
	assert.False(t, payload.Finish, "an empty program's only event is its own natural termination")

	select {
	case _, ok := <-results:
		assert.False(t, ok, "engine must close results once the empty program terminates")
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not terminate on an empty program")
	}
}

// TestFirstStatementRaisesBoundary is spec.md §8's "User program whose
// first statement raises" boundary: STARTED, then a bounded number of
// DATA results (one per traceable event already seen), then a terminal
// ERROR naming the exception.
func TestFirstStatementRaisesBoundary(t *testing.T) {
	// Buffered for the same reason as in TestSandboxDenialScenario.
	actions := make(chan Action, 1)
	results := make(chan Result)
	go RunTrace("<test>", "x = 1 / 0\n", false, actions, results)

	actions <- Action{Name: ActionStart}
	got := drain(t, results, 1)
	require.Equal(t, ResultStarted, got[0].Name)

	var r Result
	for i := 0; i < 5; i++ {
		actions <- Action{Name: ActionStep}
		r = drain(t, results, 1)[0]
		if r.Name != ResultData {
			break
		}
	}
	require.Equal(t, ResultError, r.Name)
	payload := r.Value.(*ErrorPayload)
	assert.Contains(t, payload.Message, "ZeroDivisionError")
}

// TestEvalMutationObservedOnNextStep is spec.md §8's round-trip property:
// an EVAL that mutates state is visible in the snapshot attached to the
// next STEP that reaches a pause point.
func TestEvalMutationObservedOnNextStep(t *testing.T) {
	actions := make(chan Action)
	results := make(chan Result)
	go RunTrace("<test>", "lst = []\nlst2 = lst\nn = 0\n", false, actions, results)

	actions <- Action{Name: ActionStart}
	drain(t, results, 1)

	// Answers the pause before "lst = []"; the engine then pauses before
	// "lst2 = lst".
	actions <- Action{Name: ActionStep}
	drain(t, results, 1)
	// Answers the pause before "lst2 = lst"; the engine then pauses before
	// "n = 0", with both "lst" and "lst2" bound.
	actions <- Action{Name: ActionStep}
	drain(t, results, 1)

	actions <- Action{Name: ActionEval, Value: &EvalPayload{Expression: "lst.append(1)"}}
	r := drain(t, results, 1)[0]
	require.Equal(t, ResultProduct, r.Name)

	// Answers the pause before "n = 0"; its snapshot is taken after the
	// mutation above has taken effect.
	actions <- Action{Name: ActionStep}
	r = drain(t, results, 1)[0]
	require.Equal(t, ResultData, r.Name)
	payload := r.Value.(*DataPayload)
	require.NotNil(t, payload.Snapshot)

	var lstVar, lst2Var Value
	for _, v := range payload.Snapshot.Stack[0].Variables {
		switch v.Name {
		case "lst":
			lstVar = v.Value
		case "lst2":
			lst2Var = v.Value
		}
	}
	require.True(t, lstVar.IsRef)
	assert.Equal(t, lstVar.Ref, lst2Var.Ref, "lst2 = lst must alias the same heap object")
	obj := payload.Snapshot.Heap[lstVar.Ref]
	require.NotNil(t, obj)
	require.Len(t, obj.Members, 1, "mutation performed inside EVAL must be visible in the next snapshot")
	assert.Equal(t, int64(1), obj.Members[0].Value.Scalar)

	actions <- Action{Name: ActionQuit}
	drain(t, results, 1)
}

// TestEvalBoundVariableStructurallyEqualToSnapshot is spec.md §8's
// round-trip property: EVAL on a bound public variable returns a
// product structurally equal to the value already present in the
// snapshot, compared with google/go-cmp rather than field-by-field.
func TestEvalBoundVariableStructurallyEqualToSnapshot(t *testing.T) {
	actions := make(chan Action)
	results := make(chan Result)
	go RunTrace("<test>", "pair = (1, 2)\nn = 0\n", false, actions, results)

	actions <- Action{Name: ActionStart}
	drain(t, results, 1)

	// Answers the pause before "pair = (1, 2)"; the engine then pauses
	// before "n = 0".
	actions <- Action{Name: ActionStep}
	drain(t, results, 1)

	// Paused before "n = 0"; "pair" is bound. EVAL and STEP both answer
	// this same pause, so nothing mutates between the two reads below.
	actions <- Action{Name: ActionEval, Value: &EvalPayload{Expression: "pair", Inspect: true}}
	r := drain(t, results, 1)[0]
	require.Equal(t, ResultProduct, r.Name)
	product := r.Value.(*ProductPayload)
	fromEval, ok := product.Product.(Value)
	require.True(t, ok)
	require.NotNil(t, product.Snapshot)

	actions <- Action{Name: ActionStep}
	r = drain(t, results, 1)[0]
	require.Equal(t, ResultData, r.Name)
	payload := r.Value.(*DataPayload)
	var fromSnapshot Value
	for _, v := range payload.Snapshot.Stack[0].Variables {
		if v.Name == "pair" {
			fromSnapshot = v.Value
		}
	}

	if diff := cmp.Diff(fromSnapshot, fromEval); diff != "" {
		t.Errorf("eval product differs from the bound variable's snapshot value (-snapshot +eval):\n%s", diff)
	}
	if diff := cmp.Diff(product.Snapshot.Heap[fromEval.Ref], payload.Snapshot.Heap[fromSnapshot.Ref]); diff != "" {
		t.Errorf("eval's heap entry differs from the subsequent snapshot's (-eval +snapshot):\n%s", diff)
	}

	actions <- Action{Name: ActionQuit}
	drain(t, results, 1)
}
