package wire

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunholo/ailang-debugger/internal/trace"
)

func TestLoadTraceFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	content := "source: \"a = 1\\n\"\nsteps: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	tr, err := LoadTraceFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a = 1\n", tr.Source)
	assert.Equal(t, int32(3), tr.Steps)
	assert.Empty(t, tr.Input)
}

func TestLoadTraceFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	content := `{"source": "b = 2\n", "steps": 1}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	tr, err := LoadTraceFile(path)
	require.NoError(t, err)
	assert.Equal(t, "b = 2\n", tr.Source)
	assert.Equal(t, int32(1), tr.Steps)
}

func TestWriteResultEncodesEventType(t *testing.T) {
	result := &Result{
		Steps: []Step{
			{EventType: "line", Stack: []trace.FrameRecord{{Name: "<module>", Line: 0}}},
		},
	}

	yamlBytes, err := WriteResultYAML(result)
	require.NoError(t, err)
	assert.Contains(t, string(yamlBytes), "line")

	jsonBytes, err := WriteResultJSON(result)
	require.NoError(t, err)
	assert.Contains(t, string(jsonBytes), "\"line\"")
}
