package errors

import (
	"encoding/json"
	"errors"
)

// Report is the canonical structured error type the engine returns for
// every terminal failure (a compile failure before Engine Entry can even
// start tracing, or an uncaught exception that unwinds the user
// program). Adapted from the teacher's internal/errors.Report; the
// AILANG-specific *ast.Span location has been replaced by Line, the
// only location this embedded language's frames carry.
type Report struct {
	Schema  string         `json:"schema"`         // Always "aildbg.error/v1"
	Code    string         `json:"code"`           // Error code (LEX001, PAR001, RT001, ...)
	Phase   string         `json:"phase"`          // "compile" or "runtime"
	Message string         `json:"message"`        // Human-readable message
	Line    int            `json:"line,omitempty"` // 1-based source line, 0 if unknown
	Data    map[string]any `json:"data,omitempty"` // Structured context (stack, args, ...)
	Fix     *Fix           `json:"fix,omitempty"`  // Suggested fix (optional)
}

// Fix is a suggested repair attached to a Report.
type Fix struct {
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ReportError wraps a Report as an error so it survives errors.As()
// unwrapping across the engine's return paths.
type ReportError struct {
	Rep *Report
}

// Error implements the error interface.
func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	return e.Rep.Code + ": " + e.Rep.Message
}

// AsReport attempts to extract a Report from an error chain.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// WrapReport wraps a Report as a ReportError.
func WrapReport(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// ToJSON converts a Report to JSON (indented when compact is false).
func (r *Report) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error

	if compact {
		data, err = json.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// NewCompile builds a Report for a failure raised before tracing could
// begin (lexing, parsing, or scope construction).
func NewCompile(code, message string, line int) *Report {
	return &Report{Schema: "aildbg.error/v1", Code: code, Phase: "compile", Message: message, Line: line}
}

// NewRuntime builds a Report for an uncaught exception that unwound the
// traced program itself.
func NewRuntime(code, message string, line int, data map[string]any) *Report {
	return &Report{Schema: "aildbg.error/v1", Code: code, Phase: "runtime", Message: message, Line: line, Data: data}
}
