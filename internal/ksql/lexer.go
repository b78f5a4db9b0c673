package ksql

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes statement text.
type Lexer struct {
	input  string
	pos    int // current byte position
	line   int // 1-based
	col    int // 1-based
	tokens []Token
	errors []*ParseError
}

// NewLexer creates a lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		line:  1,
		col:   1,
	}
}

// Tokenize scans the entire input and returns all tokens plus any errors.
func (l *Lexer) Tokenize() ([]Token, []*ParseError) {
	for {
		tok := l.next()
		if tok.Type == TokenComment {
			continue
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return l.tokens, l.errors
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *Lexer) peekAt(offset int) rune {
	p := l.pos + offset
	if p >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[p:])
	return r
}

func (l *Lexer) advance() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		r := l.peek()
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			l.advance()
		} else {
			break
		}
	}
}

func (l *Lexer) errorf(line, col, pos int, format string, args ...any) {
	l.errors = append(l.errors, newParseErrorf(Token{Line: line, Col: col, Pos: pos}, format, args...))
}

// next scans and returns the next token.
func (l *Lexer) next() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos, Line: l.line, Col: l.col}
	}

	startPos, startLine, startCol := l.pos, l.line, l.col
	tok := func(t TokenType, lit string) Token {
		return Token{Type: t, Literal: lit, Pos: startPos, Line: startLine, Col: startCol}
	}
	r := l.peek()

	if r == ':' && l.isStatementStart() {
		return l.scanMetaCmd(startPos, startLine, startCol)
	}
	if r == '\'' {
		return l.scanString(startPos, startLine, startCol)
	}
	if r == '"' || r == '`' {
		return l.scanQuotedIdent(startPos, startLine, startCol)
	}
	if r >= '0' && r <= '9' || (r == '.' && isDigit(l.peekAt(1))) {
		return l.scanNumber(startPos, startLine, startCol)
	}
	if isIdentStart(r) {
		return l.scanIdent(startPos, startLine, startCol)
	}

	// Two-character operators
	two := string(r) + string(l.peekAt(1))
	switch two {
	case "--":
		return l.scanComment(startPos, startLine, startCol)
	case "!=", "<>":
		l.advance()
		l.advance()
		return tok(TokenNEQ, two)
	case ">=":
		l.advance()
		l.advance()
		return tok(TokenGTE, two)
	case "<=":
		l.advance()
		l.advance()
		return tok(TokenLTE, two)
	}

	// Single-character operators
	l.advance()
	switch r {
	case '=':
		return tok(TokenEQ, "=")
	case '>':
		return tok(TokenGT, ">")
	case '<':
		return tok(TokenLT, "<")
	case '+':
		return tok(TokenPlus, "+")
	case '-':
		return tok(TokenMinus, "-")
	case '*':
		return tok(TokenStar, "*")
	case '/':
		return tok(TokenSlash, "/")
	case '%':
		return tok(TokenPercent, "%")
	case '.':
		return tok(TokenDot, ".")
	case ',':
		return tok(TokenComma, ",")
	case ';':
		return tok(TokenSemi, ";")
	case '(':
		return tok(TokenLParen, "(")
	case ')':
		return tok(TokenRParen, ")")
	}

	l.errorf(startLine, startCol, startPos, "unexpected character %q", r)
	return tok(TokenIdent, string(r))
}

// scanString reads a single-quoted string literal. A doubled quote ('')
// stands for one quote character.
func (l *Lexer) scanString(startPos, startLine, startCol int) Token {
	l.advance() // opening quote
	var b strings.Builder
	for l.pos < len(l.input) {
		r := l.advance()
		if r == '\'' {
			if l.peek() == '\'' {
				l.advance()
				b.WriteByte('\'')
				continue
			}
			return Token{Type: TokenString, Literal: b.String(), Pos: startPos, Line: startLine, Col: startCol}
		}
		b.WriteRune(r)
	}
	l.errorf(startLine, startCol, startPos, "unterminated string")
	return Token{Type: TokenString, Literal: b.String(), Pos: startPos, Line: startLine, Col: startCol}
}

// scanQuotedIdent reads a "double-quoted" or `backquoted` identifier. A
// doubled quote character stands for one literal quote.
func (l *Lexer) scanQuotedIdent(startPos, startLine, startCol int) Token {
	quote := l.advance()
	var b strings.Builder
	for l.pos < len(l.input) {
		r := l.advance()
		if r == quote {
			if l.peek() == quote {
				l.advance()
				b.WriteRune(quote)
				continue
			}
			if b.Len() == 0 {
				l.errorf(startLine, startCol, startPos, "empty quoted identifier")
			}
			return Token{Type: TokenIdent, Literal: b.String(), Pos: startPos, Line: startLine, Col: startCol}
		}
		b.WriteRune(r)
	}
	l.errorf(startLine, startCol, startPos, "unterminated quoted identifier")
	return Token{Type: TokenIdent, Literal: b.String(), Pos: startPos, Line: startLine, Col: startCol}
}

// scanNumber reads an integer or decimal literal, with an optional exponent.
func (l *Lexer) scanNumber(startPos, startLine, startCol int) Token {
	start := l.pos
	isFloat := false
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if e := l.peek(); e == 'e' || e == 'E' {
		off := 1
		if s := l.peekAt(1); s == '+' || s == '-' {
			off = 2
		}
		if isDigit(l.peekAt(off)) {
			isFloat = true
			for i := 0; i < off; i++ {
				l.advance()
			}
			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}
	lit := l.input[start:l.pos]
	if isIdentStart(l.peek()) {
		l.errorf(startLine, startCol, startPos, "malformed number %q", lit+string(l.peek()))
	}
	if isFloat {
		return Token{Type: TokenFloat, Literal: lit, Pos: startPos, Line: startLine, Col: startCol}
	}
	return Token{Type: TokenInt, Literal: lit, Pos: startPos, Line: startLine, Col: startCol}
}

// scanIdent reads an identifier or keyword.
func (l *Lexer) scanIdent(startPos, startLine, startCol int) Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.peek()) {
		l.advance()
	}
	lit := l.input[start:l.pos]
	return Token{Type: LookupKeyword(lit), Literal: lit, Pos: startPos, Line: startLine, Col: startCol}
}

// scanMetaCmd reads a meta-command (e.g., :help, :describe).
func (l *Lexer) scanMetaCmd(startPos, startLine, startCol int) Token {
	l.advance() // ':'
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.peek()) {
		l.advance()
	}
	lit := ":" + l.input[start:l.pos]
	return Token{Type: TokenMetaCmd, Literal: lit, Pos: startPos, Line: startLine, Col: startCol}
}

// scanComment reads a -- comment to end of line.
func (l *Lexer) scanComment(startPos, startLine, startCol int) Token {
	start := l.pos
	for l.pos < len(l.input) && l.peek() != '\n' {
		l.advance()
	}
	return Token{Type: TokenComment, Literal: l.input[start:l.pos], Pos: startPos, Line: startLine, Col: startCol}
}

// isStatementStart reports whether a colon would begin a new statement:
// nothing has been emitted yet, or the previous token ended a statement.
func (l *Lexer) isStatementStart() bool {
	if len(l.tokens) == 0 {
		return true
	}
	return l.tokens[len(l.tokens)-1].Type == TokenSemi
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
