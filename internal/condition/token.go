package condition

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenBool
	tokenNull      // null literal
	tokenUndefined // undefined literal
	tokenLParen
	tokenRParen
	tokenDot
	tokenNot // !
	tokenAnd // &&
	tokenOr  // ||
	tokenEq  // ==
	tokenNe  // !=
	tokenLt  // <
	tokenLe  // <=
	tokenGt  // >
	tokenGe  // >=
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// forbiddenIdents lists identifiers that reference execution primitives.
// Their presence anywhere in an expression is a static rejection — this is
// a security boundary, not a parser convenience.
var forbiddenIdents = map[string]bool{
	"eval":        true,
	"Function":    true,
	"function":    true,
	"constructor": true,
	"prototype":   true,
	"__proto__":   true,
	"globalThis":  true,
	"global":      true,
	"window":      true,
	"process":     true,
	"require":     true,
	"import":      true,
	"new":         true,
	"this":        true,
}

// lexer converts an expression string into a token stream.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func (l *lexer) errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// next scans and returns the next token.
func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos

	if l.pos >= len(l.input) {
		return token{kind: tokenEOF, pos: start}, nil
	}

	ch := l.input[l.pos]

	switch ch {
	case '(':
		l.pos++
		return token{kind: tokenLParen, text: "(", pos: start}, nil
	case ')':
		l.pos++
		return token{kind: tokenRParen, text: ")", pos: start}, nil
	case '.':
		l.pos++
		return token{kind: tokenDot, text: ".", pos: start}, nil
	case '!':
		l.pos++
		if l.peek() == '=' {
			l.pos++
			return token{kind: tokenNe, text: "!=", pos: start}, nil
		}
		return token{kind: tokenNot, text: "!", pos: start}, nil
	case '&':
		l.pos++
		if l.peek() != '&' {
			return token{}, l.errorf("unexpected character '&' at position %d", start)
		}
		l.pos++
		return token{kind: tokenAnd, text: "&&", pos: start}, nil
	case '|':
		l.pos++
		if l.peek() != '|' {
			return token{}, l.errorf("unexpected character '|' at position %d", start)
		}
		l.pos++
		return token{kind: tokenOr, text: "||", pos: start}, nil
	case '=':
		l.pos++
		if l.peek() != '=' {
			return token{}, l.errorf("assignment is not allowed (position %d)", start)
		}
		l.pos++
		return token{kind: tokenEq, text: "==", pos: start}, nil
	case '<':
		l.pos++
		if l.peek() == '=' {
			l.pos++
			return token{kind: tokenLe, text: "<=", pos: start}, nil
		}
		return token{kind: tokenLt, text: "<", pos: start}, nil
	case '>':
		l.pos++
		if l.peek() == '=' {
			l.pos++
			return token{kind: tokenGe, text: ">=", pos: start}, nil
		}
		return token{kind: tokenGt, text: ">", pos: start}, nil
	case '\'', '"':
		return l.scanString(ch)
	}

	if isDigit(rune(ch)) || (ch == '-' && isDigit(l.peekAt(1))) {
		return l.scanNumber()
	}

	if isIdentStart(rune(ch)) {
		return l.scanIdent()
	}

	return token{}, l.errorf("unexpected character %q at position %d", ch, start)
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *lexer) peekAt(offset int) rune {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return rune(l.input[l.pos+offset])
}

func (l *lexer) scanString(quote byte) (token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			next := l.input[l.pos+1]
			if next == quote || next == '\\' {
				sb.WriteByte(next)
				l.pos += 2
				continue
			}
		}
		if ch == quote {
			l.pos++
			return token{kind: tokenString, text: sb.String(), pos: start}, nil
		}
		sb.WriteByte(ch)
		l.pos++
	}
	return token{}, l.errorf("unterminated string starting at position %d", start)
}

func (l *lexer) scanNumber() (token, error) {
	start := l.pos
	if l.input[l.pos] == '-' {
		l.pos++
	}
	seenDot := false
	for l.pos < len(l.input) {
		ch := rune(l.input[l.pos])
		if ch == '.' && !seenDot && isDigit(l.peekAt(1)) {
			seenDot = true
			l.pos++
			continue
		}
		if !isDigit(ch) {
			break
		}
		l.pos++
	}
	return token{kind: tokenNumber, text: l.input[start:l.pos], pos: start}, nil
}

func (l *lexer) scanIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(rune(l.input[l.pos])) {
		l.pos++
	}
	text := l.input[start:l.pos]

	if forbiddenIdents[text] {
		return token{}, l.errorf("forbidden identifier %q at position %d", text, start)
	}

	switch text {
	case "true", "false":
		return token{kind: tokenBool, text: text, pos: start}, nil
	case "null", "nil":
		return token{kind: tokenNull, text: text, pos: start}, nil
	case "undefined":
		return token{kind: tokenUndefined, text: text, pos: start}, nil
	}
	return token{kind: tokenIdent, text: text, pos: start}, nil
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
