package ksql

import (
	"strconv"
	"strings"

	"github.com/matthewbaird/ksqlplan/internal/expr"
)

// Parser implements a recursive descent parser over a token slice.
type Parser struct {
	tokens []Token
	pos    int
	errors []*ParseError
}

// NewParser creates a parser from a token slice (typically from Lexer.Tokenize).
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses the token stream into a list of statements. Statements are
// separated by ';'. A statement with a syntax error is skipped and parsing
// resumes at the next statement boundary.
func (p *Parser) Parse() ([]Statement, []*ParseError) {
	var stmts []Statement
	for !p.atEnd() {
		if _, ok := p.match(TokenSemi); ok {
			continue
		}
		before := len(p.errors)
		stmt := p.parseStatement()
		if len(p.errors) > before {
			p.synchronize()
			continue
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, p.errors
}

// ── Token navigation ────────────────────────────────────────────────────────

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *Parser) atEnd() bool {
	return p.peek().Type == TokenEOF
}

func (p *Parser) check(t TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) match(types ...TokenType) (Token, bool) {
	for _, t := range types {
		if p.check(t) {
			return p.advance(), true
		}
	}
	return Token{}, false
}

func (p *Parser) expect(t TokenType) (Token, bool) {
	if p.check(t) {
		return p.advance(), true
	}
	tok := p.peek()
	if tok.Type == TokenIdent && t.IsKeyword() {
		p.addErrorWithSuggestion(tok, "expected "+t.String()+", got '"+tok.Literal+"'",
			SuggestFrom(strings.ToUpper(tok.Literal), []string{t.String()}, 2))
		return tok, false
	}
	p.addError(tok, "expected "+t.String()+", got "+describe(tok))
	return tok, false
}

func (p *Parser) addError(tok Token, msg string) {
	p.errors = append(p.errors, &ParseError{
		Message: msg,
		Line:    tok.Line,
		Col:     tok.Col,
		Pos:     tok.Pos,
	})
}

func (p *Parser) addErrorWithSuggestion(tok Token, msg, suggestion string) {
	p.errors = append(p.errors, &ParseError{
		Message:    msg,
		Line:       tok.Line,
		Col:        tok.Col,
		Pos:        tok.Pos,
		Suggestion: suggestion,
	})
}

// synchronize skips tokens until a statement boundary.
func (p *Parser) synchronize() {
	for !p.atEnd() {
		switch p.peek().Type {
		case TokenSemi:
			p.advance()
			return
		case TokenMetaCmd:
			return
		}
		p.advance()
	}
}

func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenIdent:
		return "identifier '" + tok.Literal + "'"
	case TokenString:
		return "string '" + tok.Literal + "'"
	case TokenInt, TokenFloat:
		return "number " + tok.Literal
	}
	return "'" + tok.Literal + "'"
}

// ── Statement parsing ───────────────────────────────────────────────────────

var statementVerbs = []string{"SELECT"}

func (p *Parser) parseStatement() Statement {
	tok := p.peek()
	switch tok.Type {
	case TokenSelect:
		return p.parseSelect()
	case TokenMetaCmd:
		return p.parseMetaCmd()
	case TokenIdent:
		p.addErrorWithSuggestion(tok, "expected SELECT or a meta-command, got '"+tok.Literal+"'",
			SuggestFrom(strings.ToUpper(tok.Literal), statementVerbs, 2))
		return nil
	default:
		p.addError(tok, "expected SELECT or a meta-command, got "+describe(tok))
		return nil
	}
}

func (p *Parser) parseMetaCmd() *MetaCmdStmt {
	tok := p.advance()
	stmt := &MetaCmdStmt{
		TokenPos: tok.Pos,
		Command:  strings.TrimPrefix(tok.Literal, ":"),
	}
	// Meta-commands consume the rest of the statement.
	for !p.atEnd() && !p.check(TokenSemi) && !p.check(TokenMetaCmd) {
		stmt.Args = append(stmt.Args, p.advance().Literal)
	}
	return stmt
}

// ── SELECT ──────────────────────────────────────────────────────────────────

func (p *Parser) parseSelect() *SelectStmt {
	tok := p.advance() // consume SELECT
	stmt := &SelectStmt{TokenPos: tok.Pos}

	items, ok := p.parseSelectItems()
	if !ok {
		return nil
	}
	stmt.Items = items

	if intoTok, ok := p.match(TokenInto); ok {
		name, ok := p.expect(TokenIdent)
		if !ok {
			return nil
		}
		stmt.Into = &IntoClause{TokenPos: intoTok.Pos, Name: name.Literal}
	}

	if _, ok := p.expect(TokenFrom); !ok {
		return nil
	}
	first := p.parseFromItem(tok.Pos)
	if first == nil {
		return nil
	}
	stmt.From = append(stmt.From, first)

	for {
		if commaTok, ok := p.match(TokenComma); ok {
			item := p.parseFromItem(commaTok.Pos)
			if item == nil {
				return nil
			}
			stmt.From = append(stmt.From, item)
			continue
		}
		if !p.atJoin() {
			break
		}
		item := p.parseJoin()
		if item == nil {
			return nil
		}
		stmt.From = append(stmt.From, item)
	}

	if _, ok := p.match(TokenWhere); ok {
		where := p.parseExpr()
		if where == nil {
			return nil
		}
		stmt.Where = where
	}

	if _, ok := p.match(TokenGroup); ok {
		if _, ok := p.expect(TokenBy); !ok {
			return nil
		}
		for {
			e := p.parseExpr()
			if e == nil {
				return nil
			}
			stmt.GroupBy = append(stmt.GroupBy, e)
			if _, ok := p.match(TokenComma); !ok {
				break
			}
		}
	}

	if !p.atEnd() && !p.check(TokenSemi) && !p.check(TokenMetaCmd) {
		p.addError(p.peek(), "unexpected "+describe(p.peek())+" after statement")
		return nil
	}
	return stmt
}

func (p *Parser) parseSelectItems() ([]SelectItem, bool) {
	var items []SelectItem
	for {
		tok := p.peek()
		switch {
		case tok.Type == TokenStar:
			p.advance()
			items = append(items, SelectItem{TokenPos: tok.Pos, Star: true})
		case tok.Type == TokenIdent && p.peekAt(1).Type == TokenDot && p.peekAt(2).Type == TokenStar:
			p.advance()
			p.advance()
			p.advance()
			items = append(items, SelectItem{TokenPos: tok.Pos, Star: true, Qualifier: tok.Literal})
		default:
			e := p.parseExpr()
			if e == nil {
				return nil, false
			}
			item := SelectItem{TokenPos: tok.Pos, Expr: e}
			alias, ok := p.parseAlias()
			if !ok {
				return nil, false
			}
			item.Alias = alias
			items = append(items, item)
		}
		if _, ok := p.match(TokenComma); !ok {
			return items, true
		}
	}
}

// parseAlias parses an optional "[AS] name".
func (p *Parser) parseAlias() (string, bool) {
	if _, ok := p.match(TokenAs); ok {
		name, ok := p.expect(TokenIdent)
		return name.Literal, ok
	}
	if p.check(TokenIdent) {
		return p.advance().Literal, true
	}
	return "", true
}

func (p *Parser) parseFromItem(pos int) *FromItem {
	name, ok := p.expect(TokenIdent)
	if !ok {
		return nil
	}
	alias, ok := p.parseAlias()
	if !ok {
		return nil
	}
	return &FromItem{TokenPos: pos, Stream: name.Literal, Alias: alias}
}

func (p *Parser) atJoin() bool {
	switch p.peek().Type {
	case TokenJoin, TokenInner, TokenLeft, TokenRight, TokenFull:
		return true
	}
	return false
}

func (p *Parser) parseJoin() *FromItem {
	start := p.peek()
	jt := JoinInner
	switch start.Type {
	case TokenInner:
		p.advance()
	case TokenLeft:
		p.advance()
		p.match(TokenOuter)
		jt = JoinLeft
	case TokenRight:
		p.advance()
		p.match(TokenOuter)
		jt = JoinRight
	case TokenFull:
		p.advance()
		p.match(TokenOuter)
		jt = JoinFull
	}
	if _, ok := p.expect(TokenJoin); !ok {
		return nil
	}
	item := p.parseFromItem(start.Pos)
	if item == nil {
		return nil
	}
	onTok, ok := p.expect(TokenOn)
	if !ok {
		return nil
	}
	on := p.parseExpr()
	if on == nil {
		return nil
	}
	item.Join = &JoinClause{TokenPos: onTok.Pos, Type: jt, On: on}
	return item
}

// ── Expressions ─────────────────────────────────────────────────────────────
//
// Precedence, lowest first: OR, AND, NOT, comparison, additive,
// multiplicative, unary minus, primary.

func (p *Parser) parseExpr() Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() Expr {
	left := p.parseAnd()
	for left != nil && p.check(TokenOr) {
		opTok := p.advance()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{TokenPos: opTok.Pos, Op: expr.OpOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() Expr {
	left := p.parseNot()
	for left != nil && p.check(TokenAnd) {
		opTok := p.advance()
		right := p.parseNot()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{TokenPos: opTok.Pos, Op: expr.OpAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseNot() Expr {
	if tok, ok := p.match(TokenNot); ok {
		operand := p.parseNot()
		if operand == nil {
			return nil
		}
		return &UnaryExpr{TokenPos: tok.Pos, Op: expr.OpNot, Operand: operand}
	}
	return p.parseComparison()
}

var comparisonOps = map[TokenType]expr.BinaryOp{
	TokenEQ:   expr.OpEQ,
	TokenNEQ:  expr.OpNEQ,
	TokenLT:   expr.OpLT,
	TokenLTE:  expr.OpLTE,
	TokenGT:   expr.OpGT,
	TokenGTE:  expr.OpGTE,
	TokenLike: expr.OpLike,
}

func (p *Parser) parseComparison() Expr {
	left := p.parseAdditive()
	if left == nil {
		return nil
	}

	// x NOT LIKE y
	if p.check(TokenNot) && p.peekAt(1).Type == TokenLike {
		notTok := p.advance()
		likeTok := p.advance()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		like := &BinaryExpr{TokenPos: likeTok.Pos, Op: expr.OpLike, Left: left, Right: right}
		return &UnaryExpr{TokenPos: notTok.Pos, Op: expr.OpNot, Operand: like}
	}

	op, ok := comparisonOps[p.peek().Type]
	if !ok {
		return left
	}
	opTok := p.advance()
	right := p.parseAdditive()
	if right == nil {
		return nil
	}
	return &BinaryExpr{TokenPos: opTok.Pos, Op: op, Left: left, Right: right}
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for left != nil {
		var op expr.BinaryOp
		switch p.peek().Type {
		case TokenPlus:
			op = expr.OpAdd
		case TokenMinus:
			op = expr.OpSub
		default:
			return left
		}
		opTok := p.advance()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{TokenPos: opTok.Pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for left != nil {
		var op expr.BinaryOp
		switch p.peek().Type {
		case TokenStar:
			op = expr.OpMul
		case TokenSlash:
			op = expr.OpDiv
		case TokenPercent:
			op = expr.OpMod
		default:
			return left
		}
		opTok := p.advance()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{TokenPos: opTok.Pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	if tok, ok := p.match(TokenMinus); ok {
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &UnaryExpr{TokenPos: tok.Pos, Op: expr.OpNeg, Operand: operand}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() Expr {
	tok := p.peek()
	switch tok.Type {
	case TokenLParen:
		p.advance()
		e := p.parseExpr()
		if e == nil {
			return nil
		}
		if _, ok := p.expect(TokenRParen); !ok {
			return nil
		}
		return e

	case TokenInt, TokenFloat, TokenString, TokenBool, TokenNull:
		return p.parseLiteral()

	case TokenIdent:
		p.advance()
		if p.check(TokenLParen) {
			return p.parseCall(tok)
		}
		if _, ok := p.match(TokenDot); ok {
			name, ok := p.expect(TokenIdent)
			if !ok {
				return nil
			}
			return &ColumnRef{TokenPos: tok.Pos, Qualifier: tok.Literal, Name: name.Literal}
		}
		return &ColumnRef{TokenPos: tok.Pos, Name: tok.Literal}

	default:
		p.addError(tok, "expected expression, got "+describe(tok))
		return nil
	}
}

func (p *Parser) parseLiteral() *Literal {
	tok := p.advance()
	lit := &Literal{TokenPos: tok.Pos, Kind: tok.Type, Raw: tok.Literal}
	switch tok.Type {
	case TokenInt:
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.addError(tok, "integer literal "+tok.Literal+" out of range")
			return nil
		}
		lit.Value = v
	case TokenFloat:
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.addError(tok, "invalid number "+tok.Literal)
			return nil
		}
		lit.Value = v
	case TokenString:
		lit.Value = tok.Literal
	case TokenBool:
		lit.Value = strings.EqualFold(tok.Literal, "true")
	}
	return lit
}

func (p *Parser) parseCall(name Token) Expr {
	p.advance() // consume '('
	call := &CallExpr{TokenPos: name.Pos, Name: name.Literal}

	if _, ok := p.match(TokenStar); ok {
		call.Star = true
	} else if !p.check(TokenRParen) {
		for {
			arg := p.parseExpr()
			if arg == nil {
				return nil
			}
			call.Args = append(call.Args, arg)
			if _, ok := p.match(TokenComma); !ok {
				break
			}
		}
	}
	if _, ok := p.expect(TokenRParen); !ok {
		return nil
	}
	return call
}

// ── Entry points ────────────────────────────────────────────────────────────

// ParseStatements lexes and parses input, returning the first error.
func ParseStatements(input string) ([]Statement, error) {
	tokens, lexErrs := NewLexer(input).Tokenize()
	if len(lexErrs) > 0 {
		return nil, lexErrs[0]
	}
	stmts, errs := NewParser(tokens).Parse()
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return stmts, nil
}

// ParseSelect parses input that must hold exactly one SELECT statement.
func ParseSelect(input string) (*SelectStmt, error) {
	stmts, err := ParseStatements(input)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, &ParseError{Message: "expected exactly one statement, got " + strconv.Itoa(len(stmts)), Line: 1, Col: 1}
	}
	sel, ok := stmts[0].(*SelectStmt)
	if !ok {
		return nil, &ParseError{Message: "expected a SELECT statement", Line: 1, Col: 1}
	}
	return sel, nil
}

// ParseExpr parses a standalone expression, such as the canonical text of
// a predicate, into an unresolved expression tree.
func ParseExpr(input string) (expr.Expr, error) {
	tokens, lexErrs := NewLexer(input).Tokenize()
	if len(lexErrs) > 0 {
		return nil, lexErrs[0]
	}
	p := NewParser(tokens)
	e := p.parseExpr()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	if !p.atEnd() {
		return nil, newParseErrorf(p.peek(), "unexpected %s after expression", describe(p.peek()))
	}
	return ToExpr(e)
}
