package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexerIndentation(t *testing.T) {
	src := "if true:\n    a = 1\n    b = 2\nc = 3\n"
	toks, err := NewLexer(Normalize([]byte(src))).Tokenize()
	require.NoError(t, err)

	var kinds []TokKind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}

	require.Contains(t, kinds, TokIndent)
	require.Contains(t, kinds, TokDedent)

	// indent count must balance dedent count
	indents, dedents := 0, 0
	for _, k := range kinds {
		if k == TokIndent {
			indents++
		}
		if k == TokDedent {
			dedents++
		}
	}
	assert.Equal(t, indents, dedents)
}

func TestLexerInconsistentIndentation(t *testing.T) {
	src := "if true:\n    a = 1\n  b = 2\n"
	_, err := NewLexer(Normalize([]byte(src))).Tokenize()
	assert.Error(t, err)
}

func TestLexerOperators(t *testing.T) {
	toks, err := NewLexer(Normalize([]byte("a == b != c <= d >= e\n"))).Tokenize()
	require.NoError(t, err)

	var ops []string
	for _, tok := range toks {
		if tok.Kind == TokOp {
			ops = append(ops, tok.Text)
		}
	}
	assert.Equal(t, []string{"==", "!=", "<=", ">="}, ops)
}

func TestNormalizeStripsBOM(t *testing.T) {
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a = 1\n")...)
	normalized := Normalize(withBOM)
	assert.Equal(t, "a = 1\n", string(normalized))
}
