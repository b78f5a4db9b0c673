package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/ksqlplan/internal/metastore"
	"github.com/matthewbaird/ksqlplan/internal/repl/session"
)

func run(t *testing.T, sess *session.Session, command string, args ...string) *Result {
	t.Helper()
	res, err := New(metastore.Sample()).Execute(sess, command, args)
	require.NoError(t, err)
	return res
}

func TestHelp(t *testing.T) {
	res := run(t, session.NewSession(), "help")
	assert.Contains(t, res.Output, ":describe <stream>")

	res = run(t, session.NewSession(), "HELP", "functions")
	assert.Contains(t, res.Output, "COUNT")
	assert.Contains(t, res.Output, "aggregate")

	res = run(t, session.NewSession(), "help", "nope")
	assert.Equal(t, "No help available for 'nope'", res.Output)
}

func TestClear(t *testing.T) {
	assert.True(t, run(t, session.NewSession(), "clear").Clear)
}

func TestHistory(t *testing.T) {
	sess := session.NewSession()
	assert.Equal(t, "(no history)", run(t, sess, "history").Output)

	sess.AddHistory("SELECT col0 INTO out FROM s1")
	assert.Equal(t, "  1  SELECT col0 INTO out FROM s1\n", run(t, sess, "history").Output)

	run(t, sess, "history", "clear")
	assert.Empty(t, sess.History())
}

func TestEnv(t *testing.T) {
	sess := session.NewSession()
	sess.CountResult(false)
	out := run(t, sess, "env").Output
	assert.Contains(t, out, "Session: "+sess.ID)
	assert.Contains(t, out, "Rejected: 1")
	assert.Contains(t, out, "Streams: 2")
}

func TestStreams(t *testing.T) {
	out := run(t, session.NewSession(), "streams").Output
	assert.Contains(t, out, "Streams (2):")
	assert.Contains(t, out, "topic=test1 format=JSON")
	assert.Contains(t, out, "topic=test2 format=JSON")

	res, err := New(metastore.New()).Execute(session.NewSession(), "streams", nil)
	require.NoError(t, err)
	assert.Equal(t, "(no streams)", res.Output)
}

func TestDescribe(t *testing.T) {
	out := run(t, session.NewSession(), "describe", "S2").Output
	assert.Contains(t, out, "Stream: s2\nTopic: test2\nFormat: JSON\nKey: col0\n")
	assert.Regexp(t, `col0\s+BIGINT \(key\)`, out)
	assert.Regexp(t, `col4\s+DOUBLE\n`, out)
}

func TestErrors(t *testing.T) {
	h := New(metastore.Sample())
	sess := session.NewSession()

	_, err := h.Execute(sess, "describe", nil)
	assert.EqualError(t, err, "usage: :describe <stream>")

	_, err = h.Execute(sess, "describe", []string{"s3"})
	assert.EqualError(t, err, "unknown stream 's3' (did you mean 's1'?)")

	_, err = h.Execute(sess, "bogus", nil)
	assert.ErrorContains(t, err, "unknown meta-command ':bogus'")
}
