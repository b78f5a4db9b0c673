package metastore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matthewbaird/ksqlplan/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_CaseInsensitive(t *testing.T) {
	ms := New()
	require.NoError(t, ms.Register(&Stream{
		Name:    "Orders",
		Columns: []schema.Field{{Name: "id", Type: schema.Bigint}},
		Key:     "ID",
	}))

	st := ms.Stream("ORDERS")
	require.NotNil(t, st)
	assert.Equal(t, "Orders", st.Topic, "topic defaults to the stream name")
	assert.Equal(t, "JSON", st.Format)
	assert.Equal(t, []string{"Orders"}, ms.StreamNames())

	key, ok := st.KeyColumn()
	require.True(t, ok)
	assert.Equal(t, "id", key.Name)
}

func TestRegister_Replaces(t *testing.T) {
	ms := Sample()
	require.NoError(t, ms.Register(&Stream{
		Name:    "S1",
		Columns: []schema.Field{{Name: "x", Type: schema.String}},
	}))
	assert.Equal(t, 2, ms.Len())
	assert.Len(t, ms.Stream("s1").Columns, 1)
}

func TestRemove(t *testing.T) {
	ms := Sample()
	assert.True(t, ms.Remove("S2"))
	assert.False(t, ms.Remove("s2"))
	assert.Equal(t, []string{"s1"}, ms.StreamNames())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		st   Stream
		err  string
	}{
		{"no name", Stream{Columns: []schema.Field{{Name: "a", Type: schema.String}}}, "no name"},
		{"no columns", Stream{Name: "s"}, "no columns"},
		{"untyped", Stream{Name: "s", Columns: []schema.Field{{Name: "a"}}}, "no type"},
		{"duplicate", Stream{Name: "s", Columns: []schema.Field{
			{Name: "a", Type: schema.String}, {Name: "A", Type: schema.String},
		}}, "twice"},
		{"bad key", Stream{Name: "s", Key: "b", Columns: []schema.Field{{Name: "a", Type: schema.String}}}, "not a declared column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.st.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestSample(t *testing.T) {
	ms := Sample()
	assert.Equal(t, []string{"s1", "s2"}, ms.StreamNames())
	assert.Len(t, ms.Stream("s2").Columns, 5)
	assert.Equal(t, "col0", ms.Stream("s1").Key)
}

const testCatalog = `
streams: {
	pageviews: {
		topic:  "pageviews-v1"
		format: "avro"
		key:    "viewtime"
		columns: [
			{name: "viewtime", type: "BIGINT"},
			{name: "userid", type: "VARCHAR"},
			{name: "pageid", type: "STRING"},
		]
	}
	users: {
		columns: [{name: "userid", type: "STRING"}, {name: "score", type: "DOUBLE"}]
	}
}
`

func writeCatalog(t *testing.T, dir, src string) string {
	t.Helper()
	path := filepath.Join(dir, "catalog.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadCUE_File(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), testCatalog)

	ms, err := LoadCUE(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"pageviews", "users"}, ms.StreamNames())

	pv := ms.Stream("pageviews")
	assert.Equal(t, "pageviews-v1", pv.Topic)
	assert.Equal(t, "AVRO", pv.Format)
	assert.Equal(t, "viewtime", pv.Key)
	require.Len(t, pv.Columns, 3)
	assert.Equal(t, schema.String, pv.Columns[1].Type)

	users := ms.Stream("users")
	assert.Equal(t, "users", users.Topic)
	assert.Empty(t, users.Key)
}

func TestLoadCUE_Directory(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "package catalog\n"+testCatalog)

	ms, err := LoadCUE(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, ms.Len())
}

func TestLoadCUE_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown type", `streams: s: columns: [{name: "a", type: "DECIMALISH"}]`},
		{"empty columns", `streams: s: columns: []`},
		{"bad format", `streams: s: {format: "XML", columns: [{name: "a", type: "STRING"}]}`},
		{"bad key", `streams: s: {key: "b", columns: [{name: "a", type: "STRING"}]}`},
		{"not concrete", `streams: s: columns: [{name: "a", type: string}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCatalog(t, t.TempDir(), tt.src)
			_, err := LoadCUE(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadCUE_MissingFile(t *testing.T) {
	_, err := LoadCUE(filepath.Join(t.TempDir(), "nope.cue"))
	assert.Error(t, err)
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()
	store, err := OpenSQLite(ctx, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestSQLiteStore_MigrateCreatesTable(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	rows, err := store.db.QueryContext(ctx, "SELECT name FROM pragma_table_info('streams') ORDER BY cid")
	require.NoError(t, err)
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var c string
		require.NoError(t, rows.Scan(&c))
		cols = append(cols, c)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"id", "name", "topic", "format", "key_column", "columns"}, cols)

	streams, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, streams)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.SaveAll(ctx, Sample()))
	// Migrate is idempotent.
	require.NoError(t, store.Migrate(ctx))

	streams, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, streams, 2)
	assert.Equal(t, Sample().Stream("s2"), streams[1])

	ms := New()
	n, err := store.LoadInto(ctx, ms)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"s1", "s2"}, ms.StreamNames())
}

func TestSQLiteStore_SaveReplacesAndDelete(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	st := &Stream{Name: "s", Format: "avro", Columns: []schema.Field{{Name: "a", Type: schema.String}}}
	require.NoError(t, store.Save(ctx, st))
	st2 := &Stream{Name: "S", Columns: []schema.Field{{Name: "b", Type: schema.Integer}}, Key: "b"}
	require.NoError(t, store.Save(ctx, st2))

	streams, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, "S", streams[0].Name)
	assert.Equal(t, "S", streams[0].Topic)
	assert.Equal(t, "JSON", streams[0].Format)
	assert.Equal(t, "b", streams[0].Key)

	ok, err := store.Delete(ctx, "s")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Delete(ctx, "s")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_SaveRejectsInvalid(t *testing.T) {
	store := openTestStore(t)
	err := store.Save(context.Background(), &Stream{Name: "s"})
	assert.Error(t, err)
}
