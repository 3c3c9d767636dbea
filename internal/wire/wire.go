// Package wire gives spec.md's Action/Result/Snapshot records a
// convenient textual encoding for file-based trace requests and CLI
// output. spec.md explicitly leaves the bit-level wire format to an
// external collaborator (§6 "External Interfaces"); this package only
// fixes the Go-level record shapes and serializes them, the way the
// teacher's internal/eval_harness package serializes fixture files with
// gopkg.in/yaml.v3.
package wire

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sunholo/ailang-debugger/internal/trace"
)

// Step is one paused-point Snapshot, aliased for a shorter wire name.
type Step = trace.Snapshot

// Trace is a file-based trace request: the program source, an optional
// canned stdin script (reserved for when input handling is added to
// the core), and a step budget the driving controller should not
// exceed when scripting a run non-interactively.
type Trace struct {
	Source string `json:"source" yaml:"source"`
	Input  string `json:"input,omitempty" yaml:"input,omitempty"`
	Steps  int32  `json:"steps" yaml:"steps"`
}

// Result is a finished run's recorded Snapshots, one per pause point,
// in the order the engine produced them.
type Result struct {
	Steps []Step `json:"steps" yaml:"steps"`
}

// LoadTraceFile reads a Trace from a YAML or JSON file (detected by
// extension), matching the teacher's eval_harness fixture-loading
// convention.
func LoadTraceFile(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace file: %w", err)
	}
	var t Trace
	if isJSON(path) {
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parsing trace file as JSON: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing trace file as YAML: %w", err)
	}
	return &t, nil
}

// WriteResultYAML renders a Result as YAML, the format cmd/aildbg uses
// for its `--format yaml` output.
func WriteResultYAML(r *Result) ([]byte, error) {
	return yaml.Marshal(r)
}

// WriteResultJSON renders a Result as indented JSON.
func WriteResultJSON(r *Result) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func isJSON(path string) bool {
	return len(path) >= 5 && path[len(path)-5:] == ".json"
}
