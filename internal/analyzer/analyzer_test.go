package analyzer

import (
	"errors"
	"testing"

	"github.com/matthewbaird/ksqlplan/internal/ksql"
	"github.com/matthewbaird/ksqlplan/internal/metastore"
	"github.com/matthewbaird/ksqlplan/internal/planerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, sql string) (*Analysis, error) {
	t.Helper()
	stmt, err := ksql.ParseSelect(sql)
	require.NoError(t, err)
	return New(metastore.Sample()).Analyze(stmt)
}

func mustAnalyze(t *testing.T, sql string) *Analysis {
	t.Helper()
	a, err := analyze(t, sql)
	require.NoError(t, err)
	return a
}

func TestAnalyze_SingleSource(t *testing.T) {
	a := mustAnalyze(t, "SELECT col0, col2, col3 INTO out FROM s1 WHERE col0 > 100")

	require.Len(t, a.From, 1)
	assert.Empty(t, a.From[0].Alias)
	assert.Equal(t, "s1", a.From[0].Stream.Name)
	assert.Nil(t, a.From[0].Join)

	require.Len(t, a.Select, 3)
	assert.Equal(t, "COL2", a.Select[1].String())
	assert.Equal(t, "(COL0 > 100)", a.Where.String())
	assert.False(t, a.Grouped())

	require.NotNil(t, a.Into)
	assert.Equal(t, Sink{Name: "out", Topic: "out", Format: "JSON"}, *a.Into)
}

func TestAnalyze_JoinQualifiesColumns(t *testing.T) {
	a := mustAnalyze(t, "SELECT t1.col1, t2.col1, col4, t2.col2 INTO out FROM s1 t1 LEFT JOIN s2 t2 ON t1.col1 = t2.col1 WHERE t1.col1 > 10 AND t2.col4 = 10.8")

	require.Len(t, a.From, 2)
	assert.Equal(t, "t1", a.From[0].Alias)
	assert.Equal(t, "t2", a.From[1].Alias)

	join := a.From[1].Join
	require.NotNil(t, join)
	assert.Equal(t, JoinLeft, join.Type)
	assert.Equal(t, "T1.COL1", join.Left.String())
	assert.Equal(t, "T2.COL1", join.Right.String())

	assert.Equal(t, "T2.COL4", a.Select[2].String(), "unqualified column picks up its source's alias")
	assert.Equal(t, "((T1.COL1 > 10) AND (T2.COL4 = 10.8))", a.Where.String())
}

func TestAnalyze_UnaliasedJoinUsesStreamNames(t *testing.T) {
	a := mustAnalyze(t, "SELECT s1.col0, col4 INTO out FROM s1 JOIN s2 ON s1.col0 = s2.col0")
	assert.Equal(t, "s1", a.From[0].Alias)
	assert.Equal(t, "s2", a.From[1].Alias)
	assert.Equal(t, "S2.COL4", a.Select[1].String())
}

func TestAnalyze_Wildcards(t *testing.T) {
	a := mustAnalyze(t, "SELECT *, t2.* INTO out FROM s1 t1 JOIN s2 t2 ON t1.col0 = t2.col0")
	require.Len(t, a.Select, 2)
	assert.True(t, a.Select[0].All)
	assert.True(t, a.Select[1].All)
	assert.Equal(t, "t2", a.Select[1].Qualifier)
}

func TestAnalyze_GroupBy(t *testing.T) {
	a := mustAnalyze(t, "SELECT col1, COUNT(*) AS n INTO out FROM s1 GROUP BY col1")
	assert.True(t, a.Grouped())
	assert.Equal(t, "COL1", a.GroupBy[0].String())
	assert.Equal(t, "n", a.Select[1].Alias)
}

func TestAnalyze_NoSink(t *testing.T) {
	a := mustAnalyze(t, "SELECT col0 FROM s1")
	assert.Nil(t, a.Into)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		want    error
		subject string
	}{
		{"unknown stream", "SELECT a FROM nope", planerr.ErrUnknownSource, "NOPE"},
		{"unresolved column", "SELECT col9 FROM s1", planerr.ErrUnresolvedColumn, "COL9"},
		{"unknown qualifier", "SELECT x.col0 FROM s1 t1", planerr.ErrUnresolvedColumn, "X.COL0"},
		{"qualified missing column", "SELECT t1.col4 FROM s1 t1 JOIN s2 t2 ON t1.col0 = t2.col0", planerr.ErrUnresolvedColumn, "T1.COL4"},
		{"ambiguous column", "SELECT col1 FROM s1 t1 JOIN s2 t2 ON t1.col0 = t2.col0", planerr.ErrAmbiguousColumn, "COL1"},
		{"ambiguous in where", "SELECT t1.col1 FROM s1 t1 JOIN s2 t2 ON t1.col0 = t2.col0 WHERE col2 = 'x'", planerr.ErrAmbiguousColumn, "COL2"},
		{"duplicate alias", "SELECT * FROM s1 t JOIN s2 t ON t.col0 = t.col0", planerr.ErrDuplicateQualifiedField, "T"},
		{"self join without alias", "SELECT * FROM s1 JOIN s1 ON s1.col0 = s1.col0", planerr.ErrDuplicateQualifiedField, "S1"},
		{"non-equality join", "SELECT * FROM s1 t1 JOIN s2 t2 ON t1.col0 > t2.col0", planerr.ErrUnsupportedJoinCondition, ""},
		{"join references later source", "SELECT * FROM s1 a JOIN s2 b ON a.col0 = c.col0 JOIN s2 c ON b.col0 = c.col0", planerr.ErrUnresolvedColumn, "C.COL0"},
		{"unknown wildcard qualifier", "SELECT x.* FROM s1 t1", planerr.ErrUnresolvedColumn, "X.*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := analyze(t, tt.sql)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			if tt.subject != "" {
				var pe *planerr.Error
				require.True(t, errors.As(err, &pe))
				assert.Equal(t, tt.subject, pe.Subject)
			}
		})
	}
}

func TestAnalyze_UnknownStreamSuggestion(t *testing.T) {
	_, err := analyze(t, "SELECT col0 FROM s3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean 's1'?")
}
