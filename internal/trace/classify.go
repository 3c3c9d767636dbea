package trace

import "github.com/sunholo/ailang-debugger/internal/script"

// traceableEvents is the set of event kinds the trace loop acts on,
// grounded on original_source/src/core/tracer.py's
// FrameUtil.TRACEABLE_EVENTS.
var traceableEvents = map[string]bool{
	"call": true, "line": true, "exception": true, "return": true,
}

// IsUserFrame reports whether frame belongs to the user's compiled
// source, i.e. its file attribute matches fileName — the language-level
// equivalent of original_source's FrameUtil.is_file (frame.f_code.co_filename).
func IsUserFrame(frame *script.Frame, fileName string) bool {
	return frame != nil && frame.File == fileName
}

// IsTraceable reports whether event is one of the four kinds the trace
// loop processes, matching original_source's FrameUtil.is_traceable.
func IsTraceable(event string) bool {
	return traceableEvents[event]
}
