package autocomplete

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/ksqlplan/internal/metastore"
)

func newEngine() *Engine {
	return New(metastore.Sample())
}

func labels(items []CompletionItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func find(items []CompletionItem, label string) *CompletionItem {
	for i := range items {
		if items[i].Label == label {
			return &items[i]
		}
	}
	return nil
}

func complete(text string) []CompletionItem {
	return newEngine().Complete(text, len(text))
}

func TestComplete_StatementStart(t *testing.T) {
	got := labels(complete(""))
	assert.Equal(t, append([]string{"SELECT"}, MetaCommands...), got)

	assert.Equal(t, []string{"SELECT"}, labels(complete("sel")))
	assert.Equal(t, []string{":describe"}, labels(complete(":de")))
	assert.Equal(t, []string{"SELECT"}, labels(complete("SELECT * FROM s1; s")))
}

func TestComplete_Streams(t *testing.T) {
	tests := []string{
		"SELECT * FROM ",
		"SELECT * FROM s",
		"SELECT * FROM s1 t1 JOIN ",
		"SELECT * FROM s1 t1 LEFT JOIN s",
		":describe ",
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			items := complete(text)
			assert.Equal(t, []string{"s1", "s2"}, labels(items))
			assert.Equal(t, "stream", items[0].Kind)
			assert.Equal(t, "test1 (JSON)", items[0].Detail)
		})
	}
	assert.Empty(t, complete("SELECT * FROM x"))
}

func TestComplete_SelectListSeesLaterFrom(t *testing.T) {
	text := "SELECT  FROM s1"
	items := newEngine().Complete(text, len("SELECT "))

	require.NotEmpty(t, items)
	assert.Equal(t, "*", items[0].Label)
	col0 := find(items, "col0")
	require.NotNil(t, col0)
	assert.Equal(t, "column", col0.Kind)
	assert.Equal(t, "s1 BIGINT KEY", col0.Detail)
	assert.NotNil(t, find(items, "col3"))
	assert.NotNil(t, find(items, "COUNT"))
}

func TestComplete_QualifiedColumns(t *testing.T) {
	text := "SELECT t1. FROM s1 t1 JOIN s2 t2 ON t1.col0 = t2.col0"
	items := newEngine().Complete(text, len("SELECT t1."))
	assert.Equal(t, []string{"col0", "col1", "col2", "col3"}, labels(items))

	text = "SELECT t2.col4 FROM s1 t1 JOIN s2 t2 ON t1.col0 = t2.col0"
	items = newEngine().Complete(text, len("SELECT t2.col"))
	assert.Equal(t, []string{"col0", "col1", "col2", "col3", "col4"}, labels(items))

	text = "SELECT t9. FROM s1 t1 JOIN s2 t2 ON t1.col0 = t2.col0"
	items = newEngine().Complete(text, len("SELECT t9."))
	assert.Empty(t, items)

	text = "SELECT t2.col4 FROM s1 t1 JOIN s2 t2 ON t1.col0 = t9."
	items = newEngine().Complete(text, len(text))
	assert.Empty(t, items)
}

func TestComplete_JoinedColumnsAreQualifiedWhenShared(t *testing.T) {
	items := complete("SELECT * FROM s1 t1 JOIN s2 t2 ON t1.col0 = t2.col0 WHERE ")
	assert.NotNil(t, find(items, "t1.col0"))
	assert.NotNil(t, find(items, "t2.col0"))
	assert.NotNil(t, find(items, "col4"))
	assert.Nil(t, find(items, "col0"))
}

func TestComplete_Functions(t *testing.T) {
	items := complete("SELECT co")
	count := find(items, "COUNT")
	require.NotNil(t, count)
	assert.Equal(t, "aggregate", count.Detail)
	assert.Equal(t, "COUNT(", count.InsertText)
	concat := find(items, "CONCAT")
	require.NotNil(t, concat)
	assert.Equal(t, "scalar", concat.Detail)
	assert.Nil(t, find(items, "ABS"))
}

func TestComplete_Keywords(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"SELECT col0 ", afterSelectItem},
		{"SELECT col0 INTO out ", afterInto},
		{"SELECT col0 FROM s1 ", afterSource},
		{"SELECT col0 FROM s1 t1 JOIN s2 t2 ON t1.col0 = t2.col0 ", afterCondition},
		{"SELECT col0 FROM s1 WHERE col0 > 1 ", afterPredicate},
		{"SELECT col0 FROM s1 GROUP ", []string{"BY"}},
		{"SELECT col0 FROM s1 LEFT ", []string{"JOIN", "OUTER JOIN"}},
		{"SELECT col0 FROM s1 W", []string{"WHERE"}},
		{"SELECT col0 FROM s1 WHERE col0 > 1 g", []string{"GROUP BY"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, labels(complete(tt.text)))
		})
	}
}

func TestComplete_NoSuggestions(t *testing.T) {
	assert.Empty(t, complete("SELECT * FROM s1 WHERE col1 = 'ab"))
	assert.Empty(t, complete("SELECT col0 AS "))
	assert.Empty(t, complete("SELECT col0 INTO "))
	assert.Empty(t, complete(":history "))
}

func TestComplete_CursorOutOfRange(t *testing.T) {
	e := newEngine()
	assert.Equal(t, labels(e.Complete("SELECT * FROM ", 999)), labels(e.Complete("SELECT * FROM ", -1)))
}
