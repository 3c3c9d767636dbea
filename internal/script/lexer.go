// Package script implements a small dynamically-typed scripting language
// used as the embedded interpreter driven by internal/trace.
package script

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// TokKind enumerates lexical token kinds.
type TokKind int

const (
	TokEOF TokKind = iota
	TokNewline
	TokIndent
	TokDedent
	TokIdent
	TokInt
	TokFloat
	TokString
	TokKeyword
	TokOp
)

// Token is a single lexical token with its source line (1-based).
type Token struct {
	Kind  TokKind
	Text  string
	Line  int
}

var keywords = map[string]bool{
	"def": true, "class": true, "if": true, "elif": true, "else": true,
	"while": true, "return": true, "import": true, "pass": true,
	"true": true, "false": true, "none": true, "and": true, "or": true,
	"not": true, "in": true, "self": true,
}

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// Normalize strips a UTF-8 BOM and applies Unicode NFC normalization, the
// same two-step input normalization the teacher's lexer performs at the
// boundary before tokenizing.
func Normalize(src []byte) []byte {
	src = bytes.TrimPrefix(src, bomUTF8)
	if !norm.NFC.IsNormal(src) {
		src = norm.NFC.Bytes(src)
	}
	return src
}

// Lexer tokenizes source text using Python-style significant indentation:
// logical lines are terminated by TokNewline and a stack of indentation
// widths emits TokIndent/TokDedent around nested blocks.
type Lexer struct {
	src      []rune
	pos      int
	line     int
	indents  []int
	pending  []Token
	atLineStart bool
	parenDepth  int
}

// NewLexer creates a lexer over already-normalized source.
func NewLexer(src []byte) *Lexer {
	return &Lexer{
		src:         []rune(string(src)),
		pos:         0,
		line:        1,
		indents:     []int{0},
		atLineStart: true,
	}
}

// Tokenize runs the lexer to completion and returns the full token stream,
// always ending in a TokEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	var out []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Kind == TokEOF {
			return out, nil
		}
	}
}

func (l *Lexer) next() (Token, error) {
	if len(l.pending) > 0 {
		t := l.pending[0]
		l.pending = l.pending[1:]
		return t, nil
	}

	if l.atLineStart && l.parenDepth == 0 {
		if tok, ok, err := l.scanIndentation(); err != nil {
			return Token{}, err
		} else if ok {
			return tok, nil
		}
	}
	l.atLineStart = false

	l.skipBlanksAndComments()

	if l.pos >= len(l.src) {
		if l.parenDepth == 0 && len(l.indents) > 1 {
			l.indents = l.indents[:len(l.indents)-1]
			return Token{Kind: TokDedent, Line: l.line}, nil
		}
		return Token{Kind: TokEOF, Line: l.line}, nil
	}

	ch := l.src[l.pos]

	if ch == '\n' {
		l.pos++
		ln := l.line
		l.line++
		l.atLineStart = true
		if l.parenDepth > 0 {
			return l.next()
		}
		return Token{Kind: TokNewline, Line: ln}, nil
	}

	if isIdentStart(ch) {
		start := l.pos
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		text := string(l.src[start:l.pos])
		if keywords[text] {
			return Token{Kind: TokKeyword, Text: text, Line: l.line}, nil
		}
		return Token{Kind: TokIdent, Text: text, Line: l.line}, nil
	}

	if isDigit(ch) {
		return l.scanNumber()
	}

	if ch == '"' || ch == '\'' {
		return l.scanString(ch)
	}

	return l.scanOperator()
}

func (l *Lexer) scanIndentation() (Token, bool, error) {
	start := l.pos
	width := 0
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ':
			width++
			l.pos++
			continue
		case '\t':
			width += 8
			l.pos++
			continue
		}
		break
	}
	// blank or comment-only line: no indentation token, just consume
	if l.pos >= len(l.src) || l.src[l.pos] == '\n' || l.src[l.pos] == '#' {
		l.pos = start
		l.atLineStart = false
		return Token{}, false, nil
	}

	l.atLineStart = false
	top := l.indents[len(l.indents)-1]
	if width > top {
		l.indents = append(l.indents, width)
		return Token{Kind: TokIndent, Line: l.line}, true, nil
	}
	if width < top {
		for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
			l.indents = l.indents[:len(l.indents)-1]
			l.pending = append(l.pending, Token{Kind: TokDedent, Line: l.line})
		}
		if l.indents[len(l.indents)-1] != width {
			return Token{}, false, fmt.Errorf("line %d: inconsistent indentation", l.line)
		}
		first := l.pending[0]
		l.pending = l.pending[1:]
		return first, true, nil
	}
	return Token{}, false, nil
}

func (l *Lexer) skipBlanksAndComments() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\r':
			l.pos++
			continue
		case '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		return
	}
}

func (l *Lexer) scanNumber() (Token, error) {
	start := l.pos
	isFloat := false
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) {
		isFloat = true
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	text := string(l.src[start:l.pos])
	if isFloat {
		return Token{Kind: TokFloat, Text: text, Line: l.line}, nil
	}
	return Token{Kind: TokInt, Text: text, Line: l.line}, nil
}

func (l *Lexer) scanString(quote rune) (Token, error) {
	startLine := l.line
	l.pos++
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return Token{}, fmt.Errorf("line %d: unterminated string literal", startLine)
		}
		ch := l.src[l.pos]
		if ch == quote {
			l.pos++
			return Token{Kind: TokString, Text: sb.String(), Line: startLine}, nil
		}
		if ch == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			switch l.src[l.pos] {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				sb.WriteRune(l.src[l.pos])
			}
			l.pos++
			continue
		}
		sb.WriteRune(ch)
		l.pos++
	}
}

var twoCharOps = []string{"==", "!=", "<=", ">="}

func (l *Lexer) scanOperator() (Token, error) {
	for _, op := range twoCharOps {
		if l.pos+len(op) <= len(l.src) && string(l.src[l.pos:l.pos+len(op)]) == op {
			l.pos += len(op)
			return Token{Kind: TokOp, Text: op, Line: l.line}, nil
		}
	}
	ch := l.src[l.pos]
	switch ch {
	case '(', '[', '{':
		l.parenDepth++
	case ')', ']', '}':
		if l.parenDepth > 0 {
			l.parenDepth--
		}
	}
	l.pos++
	return Token{Kind: TokOp, Text: string(ch), Line: l.line}, nil
}

func isIdentStart(r rune) bool { return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r >= utf8.RuneSelf }
func isIdentPart(r rune) bool  { return isIdentStart(r) || isDigit(r) }
func isDigit(r rune) bool      { return r >= '0' && r <= '9' }
