package trace

import (
	"errors"

	"github.com/sunholo/ailang-debugger/internal/script"
)

// ErrQuit is the dedicated interrupt internal/script's Interp propagates
// once a QUIT action unwinds the action loop, matching spec.md §4.E/§9's
// "raising a dedicated interrupt caught by the entry." Engine Entry must
// recognize it and terminate cleanly without emitting ERROR.
var ErrQuit = errors.New("quit requested")

// FrameProcessor is the per-event pause point: it classifies events,
// drains the controller's action channel, and replies on the result
// channel, grounded on original_source/src/core/tracer.py's
// FrameProcessor.
type FrameProcessor struct {
	fileName string
	actions  <-chan Action
	results  chan<- Result

	interp      *script.Interp
	snapshotter *Snapshotter

	sentinel       *script.Frame
	inspectedCount int
}

// NewFrameProcessor wires a processor for one run.
func NewFrameProcessor(fileName string, interp *script.Interp, actions <-chan Action, results chan<- Result) *FrameProcessor {
	return &FrameProcessor{
		fileName:    fileName,
		actions:     actions,
		results:     results,
		interp:      interp,
		snapshotter: NewSnapshotter(fileName),
	}
}

// Hook is installed as the script.Interp's TraceHook. It implements
// spec.md §4.E steps 1–3.
func (fp *FrameProcessor) Hook(ev script.Event) error {
	if !IsUserFrame(ev.Frame, fp.fileName) || !IsTraceable(ev.Kind) {
		return nil
	}

	if fp.inspectedCount == 0 {
		fp.sentinel = ev.Frame.Parent
	}
	fp.inspectedCount++

	naturalEnd := ev.Kind == "return" && ev.Frame.Parent == nil

	for {
		action, ok := <-fp.actions
		if !ok {
			// A closed actions channel must terminate the engine cleanly
			// (spec.md §5 Cancellation/timeouts).
			return ErrQuit
		}

		switch action.Name {
		case ActionEval:
			payload, _ := action.Eval()
			fp.results <- fp.handleEval(ev.Frame, payload)
			continue
		case ActionStep:
			if naturalEnd {
				// spec.md §8 scenario 1: the STEP that lands on natural
				// termination answers with a bare DATA{}, no snapshot.
				fp.results <- data(DataPayload{})
			} else {
				snap := fp.snapshotter.Snapshot(ev.Kind, ev.Frame, fp.sentinel)
				fp.results <- data(DataPayload{Snapshot: &snap, Finish: true})
			}
		case ActionQuit:
			fp.results <- data(DataPayload{})
			return ErrQuit
		default:
			// INPUT and any other action: reserved, not required by the
			// core (spec.md §4.E "Other actions: ignored or answered with
			// LOCKED").
			fp.results <- Result{Name: ResultLocked}
			continue
		}
		break
	}
	return nil
}

func (fp *FrameProcessor) handleEval(frame *script.Frame, payload EvalPayload) Result {
	val, failure := Evaluate(fp.interp, frame, payload.Expression)

	if failure != nil {
		var snap *Snapshot
		if payload.Inspect {
			s := fp.snapshotter.Snapshot("line", frame, fp.sentinel)
			snap = &s
		}
		return product(ProductPayload{Product: failure, Snapshot: snap})
	}

	if payload.Inspect {
		// Walk the product into the exact same heap/user-class tables
		// the accompanying snapshot uses, so a heap reference in Product
		// always resolves inside Snapshot.Heap (spec.md invariant 2).
		snap, pv := fp.snapshotter.SnapshotWithValue("line", frame, fp.sentinel, val)
		return product(ProductPayload{Product: pv, Snapshot: &snap, Heap: snap.Heap})
	}

	heap := map[string]*HeapObject{}
	pv := fp.snapshotter.walk(val, heap, map[*script.ClassValue]bool{}, frame.Env.Name())
	return product(ProductPayload{Product: pv, Heap: heap})
}
