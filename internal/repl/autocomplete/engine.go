// Package autocomplete provides context-aware completions for statements
// typed into the REPL.
package autocomplete

import (
	"strings"

	"github.com/matthewbaird/ksqlplan/internal/expr"
	"github.com/matthewbaird/ksqlplan/internal/ksql"
	"github.com/matthewbaird/ksqlplan/internal/metastore"
)

// CompletionItem is a single autocomplete suggestion.
type CompletionItem struct {
	Label      string `json:"label"`
	Kind       string `json:"kind"` // "keyword", "stream", "column", "function", "command"
	Detail     string `json:"detail,omitempty"`
	InsertText string `json:"insert_text,omitempty"`
}

// Engine completes from the in-memory catalog.
type Engine struct {
	catalog metastore.Reader
}

// New creates an autocomplete engine backed by the given catalog.
func New(catalog metastore.Reader) *Engine {
	return &Engine{catalog: catalog}
}

// MetaCommands lists the REPL meta-commands.
var MetaCommands = []string{":help", ":clear", ":env", ":history", ":streams", ":describe"}

// Keywords suggested after a complete term, by the clause being typed.
var (
	afterSelectItem = []string{"AS", "INTO", "FROM"}
	afterInto       = []string{"FROM"}
	afterSource     = []string{"AS", "JOIN", "INNER JOIN", "LEFT JOIN", "RIGHT JOIN", "FULL OUTER JOIN", "ON", "WHERE", "GROUP BY"}
	afterCondition  = []string{"AND", "OR", "LIKE", "JOIN", "LEFT JOIN", "WHERE", "GROUP BY"}
	afterPredicate  = []string{"AND", "OR", "LIKE", "NOT", "GROUP BY"}
)

// source is a stream named in the FROM clause and the name it is referred
// to by.
type source struct {
	alias  string
	stream *metastore.Stream
}

// Complete returns suggestions for text with the cursor at byte offset
// cursor.
func (e *Engine) Complete(text string, cursor int) []CompletionItem {
	if cursor < 0 || cursor > len(text) {
		cursor = len(text)
	}
	prefix := text[:cursor]
	tokens := significant(prefix)

	// Sources are read from the whole statement so a select list typed
	// before its FROM clause still sees the streams.
	sources := e.sources(significant(text))

	// The last identifier is a partial only when the cursor touches it.
	partial := ""
	if n := len(tokens); n > 0 {
		last := tokens[n-1]
		if (last.Type == ksql.TokenIdent || last.Type == ksql.TokenMetaCmd || last.Type.IsKeyword()) &&
			cursor <= last.Pos+len(last.Literal) {
			partial = strings.ToLower(last.Literal)
			tokens = tokens[:n-1]
		}
	}
	if n := len(tokens); n > 0 && tokens[n-1].Type == ksql.TokenString && unterminated(prefix, tokens[n-1]) {
		return nil
	}

	if len(tokens) == 0 || tokens[len(tokens)-1].Type == ksql.TokenSemi {
		items := filterItems([]string{"SELECT"}, partial, "keyword")
		return append(items, filterItems(MetaCommands, partial, "command")...)
	}

	last := tokens[len(tokens)-1]
	if tokens[0].Type == ksql.TokenMetaCmd {
		if strings.EqualFold(tokens[0].Literal, ":describe") && len(tokens) == 1 {
			return e.completeStreams(partial)
		}
		if strings.EqualFold(tokens[0].Literal, ":help") && len(tokens) == 1 {
			return filterItems(helpTopics, partial, "keyword")
		}
		return nil
	}

	switch last.Type {
	case ksql.TokenFrom, ksql.TokenJoin:
		return e.completeStreams(partial)

	case ksql.TokenInto, ksql.TokenAs:
		return nil

	case ksql.TokenDot:
		if len(tokens) < 2 || tokens[len(tokens)-2].Type != ksql.TokenIdent {
			return nil
		}
		q := tokens[len(tokens)-2].Literal
		for _, s := range sources {
			if strings.EqualFold(s.alias, q) {
				return completeColumns([]source{s}, partial, false)
			}
		}
		return nil

	case ksql.TokenSelect, ksql.TokenWhere, ksql.TokenOn, ksql.TokenBy,
		ksql.TokenAnd, ksql.TokenOr, ksql.TokenNot, ksql.TokenLParen, ksql.TokenComma,
		ksql.TokenEQ, ksql.TokenNEQ, ksql.TokenGT, ksql.TokenLT, ksql.TokenGTE, ksql.TokenLTE,
		ksql.TokenPlus, ksql.TokenMinus, ksql.TokenSlash, ksql.TokenPercent:
		if last.Type == ksql.TokenComma && clause(tokens) == ksql.TokenFrom {
			return e.completeStreams(partial)
		}
		items := completeColumns(sources, partial, len(sources) > 1)
		items = append(items, completeFunctions(partial)...)
		if last.Type == ksql.TokenSelect && partial == "" {
			items = append([]CompletionItem{{Label: "*", Kind: "keyword"}}, items...)
		}
		return items

	case ksql.TokenInner, ksql.TokenOuter:
		return filterItems([]string{"JOIN"}, partial, "keyword")

	case ksql.TokenLeft, ksql.TokenRight, ksql.TokenFull:
		return filterItems([]string{"JOIN", "OUTER JOIN"}, partial, "keyword")

	case ksql.TokenGroup:
		return filterItems([]string{"BY"}, partial, "keyword")
	}

	// After a complete term, suggest what may follow it.
	switch clause(tokens) {
	case ksql.TokenSelect:
		return filterItems(afterSelectItem, partial, "keyword")
	case ksql.TokenInto:
		return filterItems(afterInto, partial, "keyword")
	case ksql.TokenFrom, ksql.TokenJoin:
		return filterItems(afterSource, partial, "keyword")
	case ksql.TokenOn:
		return filterItems(afterCondition, partial, "keyword")
	case ksql.TokenWhere:
		return filterItems(afterPredicate, partial, "keyword")
	}
	return nil
}

var helpTopics = []string{"select", "join", "where", "group", "functions"}

// ── Completion providers ────────────────────────────────────────────────────

func (e *Engine) completeStreams(partial string) []CompletionItem {
	var items []CompletionItem
	for _, name := range e.catalog.StreamNames() {
		if !hasPrefix(name, partial) {
			continue
		}
		item := CompletionItem{Label: name, Kind: "stream"}
		if s := e.catalog.Stream(name); s != nil {
			item.Detail = s.Topic + " (" + s.Format + ")"
		}
		items = append(items, item)
	}
	return items
}

// completeColumns lists the columns of sources. With qualify set, columns
// present in more than one source are offered qualified.
func completeColumns(sources []source, partial string, qualify bool) []CompletionItem {
	count := make(map[string]int)
	for _, s := range sources {
		for _, c := range s.stream.Columns {
			count[strings.ToLower(c.Name)]++
		}
	}
	var items []CompletionItem
	for _, s := range sources {
		for _, c := range s.stream.Columns {
			label := c.Name
			if qualify && count[strings.ToLower(c.Name)] > 1 {
				label = s.alias + "." + c.Name
			}
			if !hasPrefix(label, partial) {
				continue
			}
			detail := c.Type.String()
			if strings.EqualFold(c.Name, s.stream.Key) {
				detail += " KEY"
			}
			items = append(items, CompletionItem{Label: label, Kind: "column", Detail: s.alias + " " + detail})
		}
	}
	return items
}

func completeFunctions(partial string) []CompletionItem {
	var items []CompletionItem
	for _, name := range expr.FunctionNames() {
		if !hasPrefix(name, partial) {
			continue
		}
		detail := "scalar"
		if expr.IsAggregate(name) {
			detail = "aggregate"
		}
		items = append(items, CompletionItem{Label: name, Kind: "function", Detail: detail, InsertText: name + "("})
	}
	return items
}

// ── Helpers ─────────────────────────────────────────────────────────────────

// sources collects the streams named after FROM and JOIN, with their
// aliases. Unknown streams are skipped.
func (e *Engine) sources(tokens []ksql.Token) []source {
	var out []source
	for i := 0; i < len(tokens)-1; i++ {
		t := tokens[i].Type
		if t != ksql.TokenFrom && t != ksql.TokenJoin && !(t == ksql.TokenComma && clause(tokens[:i]) == ksql.TokenFrom) {
			continue
		}
		name := tokens[i+1]
		if name.Type != ksql.TokenIdent {
			continue
		}
		st := e.catalog.Stream(name.Literal)
		if st == nil {
			continue
		}
		alias := name.Literal
		j := i + 2
		if j < len(tokens) && tokens[j].Type == ksql.TokenAs {
			j++
		}
		if j < len(tokens) && tokens[j].Type == ksql.TokenIdent {
			alias = tokens[j].Literal
		}
		out = append(out, source{alias: alias, stream: st})
	}
	return out
}

// clause returns the last clause keyword in tokens, or TokenEOF.
func clause(tokens []ksql.Token) ksql.TokenType {
	for i := len(tokens) - 1; i >= 0; i-- {
		switch t := tokens[i].Type; t {
		case ksql.TokenSelect, ksql.TokenInto, ksql.TokenFrom, ksql.TokenJoin,
			ksql.TokenOn, ksql.TokenWhere, ksql.TokenGroup:
			return t
		}
	}
	return ksql.TokenEOF
}

// significant tokenizes text, dropping comments and the EOF token.
func significant(text string) []ksql.Token {
	tokens, _ := ksql.NewLexer(text).Tokenize()
	out := tokens[:0]
	for _, t := range tokens {
		if t.Type != ksql.TokenEOF && t.Type != ksql.TokenComment {
			out = append(out, t)
		}
	}
	return out
}

func filterItems(candidates []string, partial, kind string) []CompletionItem {
	var items []CompletionItem
	for _, c := range candidates {
		if hasPrefix(c, partial) {
			items = append(items, CompletionItem{Label: c, Kind: kind})
		}
	}
	return items
}

func hasPrefix(s, partial string) bool {
	return partial == "" || strings.HasPrefix(strings.ToLower(s), partial)
}

// unterminated reports whether the string token at tok has no closing quote
// in source.
func unterminated(source string, tok ksql.Token) bool {
	if tok.Pos >= len(source) {
		return true
	}
	return strings.IndexByte(source[tok.Pos+1:], '\'') < 0
}
