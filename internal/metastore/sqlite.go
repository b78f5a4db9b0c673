package metastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// SQLite driver registered as "sqlite".
	_ "modernc.org/sqlite"
)

const streamsTable = "streams"

// SQLiteStore persists the catalog in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the SQLite database at dsn. An empty dsn opens the
// default catalog file.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "file:ksqlplan.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return NewSQLiteStore(db), nil
}

// NewSQLiteStore wraps an open database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

const createStreamsTable = `CREATE TABLE IF NOT EXISTS streams (
	id         TEXT NOT NULL PRIMARY KEY,
	name       TEXT NOT NULL,
	topic      TEXT NOT NULL,
	format     TEXT NOT NULL,
	key_column TEXT NOT NULL DEFAULT '',
	columns    TEXT NOT NULL
)`

// Migrate creates the catalog table if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createStreamsTable); err != nil {
		return fmt.Errorf("creating %s table: %w", streamsTable, err)
	}
	return nil
}

// Save stores st, replacing any stream with the same name.
func (s *SQLiteStore) Save(ctx context.Context, st *Stream) error {
	if err := st.Validate(); err != nil {
		return err
	}
	cols, err := json.Marshal(st.Columns)
	if err != nil {
		return fmt.Errorf("encoding columns: %w", err)
	}
	topic := st.Topic
	if topic == "" {
		topic = st.Name
	}
	format := strings.ToUpper(st.Format)
	if format == "" {
		format = "JSON"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query, args := builder().Delete(streamsTable).
		Where(entsql.EQ("id", strings.ToLower(st.Name))).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("replacing stream '%s': %w", st.Name, err)
	}

	query, args = builder().Insert(streamsTable).
		Columns("id", "name", "topic", "format", "key_column", "columns").
		Values(strings.ToLower(st.Name), st.Name, topic, format, st.Key, string(cols)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("saving stream '%s': %w", st.Name, err)
	}
	return tx.Commit()
}

// Delete removes the named stream. It reports whether a row was removed.
func (s *SQLiteStore) Delete(ctx context.Context, name string) (bool, error) {
	query, args := builder().Delete(streamsTable).
		Where(entsql.EQ("id", strings.ToLower(name))).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("deleting stream '%s': %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Load returns every stored stream ordered by name.
func (s *SQLiteStore) Load(ctx context.Context) ([]*Stream, error) {
	query, args := builder().
		Select("name", "topic", "format", "key_column", "columns").
		From(builder().Table(streamsTable)).
		OrderBy("id").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading streams: %w", err)
	}
	defer rows.Close()

	var out []*Stream
	for rows.Next() {
		var (
			st   Stream
			cols string
		)
		if err := rows.Scan(&st.Name, &st.Topic, &st.Format, &st.Key, &cols); err != nil {
			return nil, fmt.Errorf("scanning stream: %w", err)
		}
		if err := json.Unmarshal([]byte(cols), &st.Columns); err != nil {
			return nil, fmt.Errorf("decoding columns of '%s': %w", st.Name, err)
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

// LoadInto registers every stored stream in ms and returns how many were
// loaded.
func (s *SQLiteStore) LoadInto(ctx context.Context, ms *MetaStore) (int, error) {
	streams, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	for _, st := range streams {
		if err := ms.Register(st); err != nil {
			return 0, fmt.Errorf("registering stream '%s': %w", st.Name, err)
		}
	}
	return len(streams), nil
}

// SaveAll stores every stream in ms.
func (s *SQLiteStore) SaveAll(ctx context.Context, ms *MetaStore) error {
	for _, st := range ms.AllStreams() {
		if err := s.Save(ctx, st); err != nil {
			return err
		}
	}
	return nil
}
