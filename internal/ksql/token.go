// Package ksql implements the lexer, parser and AST for the streaming SQL
// statement subset accepted by the planner:
//
//	SELECT <items> [INTO <sink>] FROM <stream> [[AS] <alias>]
//	  [[INNER | LEFT [OUTER] | RIGHT [OUTER] | FULL [OUTER]] JOIN <stream> [[AS] <alias>] ON <expr>]...
//	  [WHERE <expr>] [GROUP BY <expr>, ...] [;]
//
// plus REPL meta-commands (":help", ":describe s1").
package ksql

import (
	"sort"
	"strings"
)

// TokenType identifies the kind of lexical token.
type TokenType int

const (
	// Literals and identifiers
	TokenEOF    TokenType = iota
	TokenIdent            // unquoted or "quoted" identifier
	TokenString           // 'quoted string'
	TokenInt              // 123
	TokenFloat            // 1.23
	TokenBool             // true / false
	TokenNull             // null

	// Operators
	TokenEQ      // =
	TokenNEQ     // != or <>
	TokenGT      // >
	TokenLT      // <
	TokenGTE     // >=
	TokenLTE     // <=
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // *
	TokenSlash   // /
	TokenPercent // %
	TokenDot     // .
	TokenComma   // ,
	TokenSemi    // ;

	// Grouping
	TokenLParen // (
	TokenRParen // )

	// Keywords: clauses
	TokenSelect
	TokenInto
	TokenFrom
	TokenAs
	TokenWhere
	TokenGroup
	TokenBy

	// Keywords: joins
	TokenJoin
	TokenInner
	TokenLeft
	TokenRight
	TokenFull
	TokenOuter
	TokenOn

	// Keywords: logical operators
	TokenAnd
	TokenOr
	TokenNot
	TokenLike

	// Special
	TokenMetaCmd // :help, :describe, etc.
	TokenComment // -- comment text
)

var tokenNames = map[TokenType]string{
	TokenEOF:     "EOF",
	TokenIdent:   "identifier",
	TokenString:  "string",
	TokenInt:     "integer",
	TokenFloat:   "float",
	TokenBool:    "boolean",
	TokenNull:    "null",
	TokenEQ:      "=",
	TokenNEQ:     "<>",
	TokenGT:      ">",
	TokenLT:      "<",
	TokenGTE:     ">=",
	TokenLTE:     "<=",
	TokenPlus:    "+",
	TokenMinus:   "-",
	TokenStar:    "*",
	TokenSlash:   "/",
	TokenPercent: "%",
	TokenDot:     ".",
	TokenComma:   ",",
	TokenSemi:    ";",
	TokenLParen:  "(",
	TokenRParen:  ")",
	TokenMetaCmd: "meta-command",
	TokenComment: "comment",
}

// String returns a human-readable name for the token type.
func (t TokenType) String() string {
	if n, ok := tokenNames[t]; ok {
		return n
	}
	for kw, tt := range keywords {
		if tt == t && tt != TokenBool && tt != TokenNull {
			return strings.ToUpper(kw)
		}
	}
	return "unknown"
}

// IsKeyword returns true for reserved words.
func (t TokenType) IsKeyword() bool {
	return t >= TokenSelect && t <= TokenLike
}

// IsClause returns true if the token type begins a clause that ends a
// select list, FROM list or expression.
func (t TokenType) IsClause() bool {
	switch t {
	case TokenInto, TokenFrom, TokenWhere, TokenGroup,
		TokenJoin, TokenInner, TokenLeft, TokenRight, TokenFull, TokenOn:
		return true
	}
	return false
}

// Token represents a single lexical token.
type Token struct {
	Type    TokenType
	Literal string // raw text of the token; unquoted for strings and quoted identifiers
	Pos     int    // byte offset in source
	Line    int    // 1-based line number
	Col     int    // 1-based column number
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"select": TokenSelect,
	"into":   TokenInto,
	"from":   TokenFrom,
	"as":     TokenAs,
	"where":  TokenWhere,
	"group":  TokenGroup,
	"by":     TokenBy,
	"join":   TokenJoin,
	"inner":  TokenInner,
	"left":   TokenLeft,
	"right":  TokenRight,
	"full":   TokenFull,
	"outer":  TokenOuter,
	"on":     TokenOn,
	"and":    TokenAnd,
	"or":     TokenOr,
	"not":    TokenNot,
	"like":   TokenLike,
	"true":   TokenBool,
	"false":  TokenBool,
	"null":   TokenNull,
}

// LookupKeyword returns the keyword token type for an identifier, or
// TokenIdent if the identifier is not a keyword. Lookup is case-insensitive.
func LookupKeyword(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return TokenIdent
}

// Keywords returns every reserved word in upper case, sorted.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for kw := range keywords {
		out = append(out, strings.ToUpper(kw))
	}
	sort.Strings(out)
	return out
}
