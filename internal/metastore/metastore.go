// Package metastore is the catalog of streams the analyzer resolves FROM
// clauses against.
//
// A MetaStore is populated at startup from a CUE catalog (LoadCUE), from the
// SQLite catalog store (SQLiteStore.LoadInto), or in tests from Sample. After
// that it is read by the analyzer, the REPL autocomplete engine and the
// :streams / :describe meta-commands.
package metastore

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/matthewbaird/ksqlplan/internal/schema"
)

// Stream describes one registered stream.
type Stream struct {
	Name    string         `json:"name"`
	Topic   string         `json:"topic"`
	Format  string         `json:"format"` // value format, e.g. JSON, AVRO, DELIMITED
	Columns []schema.Field `json:"columns"`
	Key     string         `json:"key,omitempty"` // key column name, "" if unkeyed
}

// Column returns the declared column named name (case-insensitive).
func (s *Stream) Column(name string) (schema.Field, bool) {
	for _, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return schema.Field{}, false
}

// KeyColumn returns the declared key column, if any.
func (s *Stream) KeyColumn() (schema.Field, bool) {
	if s.Key == "" {
		return schema.Field{}, false
	}
	return s.Column(s.Key)
}

// Validate checks that the stream is usable by the planner: it has a name,
// at least one column, unique typed columns and a key naming one of them.
func (s *Stream) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("stream has no name")
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("stream '%s' declares no columns", s.Name)
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if c.Name == "" {
			return fmt.Errorf("stream '%s' has a column with no name", s.Name)
		}
		if c.Type == schema.Unknown || c.Type == schema.Null {
			return fmt.Errorf("stream '%s' column '%s' has no type", s.Name, c.Name)
		}
		lc := strings.ToLower(c.Name)
		if seen[lc] {
			return fmt.Errorf("stream '%s' declares column '%s' twice", s.Name, c.Name)
		}
		seen[lc] = true
	}
	if s.Key != "" {
		if _, ok := s.Column(s.Key); !ok {
			return fmt.Errorf("stream '%s' key '%s' is not a declared column", s.Name, s.Key)
		}
	}
	return nil
}

// Reader is the read side of the catalog used by the analyzer and REPL.
type Reader interface {
	Stream(name string) *Stream
	StreamNames() []string
}

// MetaStore holds the registered streams. Lookups are case-insensitive and
// safe for concurrent use.
type MetaStore struct {
	mu      sync.RWMutex
	streams map[string]*Stream // lower-case name -> stream
	order   []string           // lower-case names, sorted
}

// New creates an empty catalog.
func New() *MetaStore {
	return &MetaStore{streams: make(map[string]*Stream)}
}

// Register validates and adds a stream, replacing any stream with the same
// name. Topic defaults to the stream name.
func (m *MetaStore) Register(s *Stream) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Topic == "" {
		s.Topic = s.Name
	}
	if s.Format == "" {
		s.Format = "JSON"
	}
	s.Format = strings.ToUpper(s.Format)

	key := strings.ToLower(s.Name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.streams[key]; !exists {
		m.order = append(m.order, key)
		sort.Strings(m.order)
	}
	m.streams[key] = s
	return nil
}

// Remove deletes a stream. It reports whether the stream existed.
func (m *MetaStore) Remove(name string) bool {
	key := strings.ToLower(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.streams[key]; !ok {
		return false
	}
	delete(m.streams, key)
	for i, n := range m.order {
		if n == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Stream returns the named stream, or nil if not found.
func (m *MetaStore) Stream(name string) *Stream {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.streams[strings.ToLower(name)]
}

// StreamNames returns the registered stream names in sorted order.
func (m *MetaStore) StreamNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.order))
	for i, k := range m.order {
		names[i] = m.streams[k].Name
	}
	return names
}

// AllStreams returns every registered stream in name order.
func (m *MetaStore) AllStreams() []*Stream {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Stream, len(m.order))
	for i, k := range m.order {
		out[i] = m.streams[k]
	}
	return out
}

// Len returns the number of registered streams.
func (m *MetaStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.streams)
}
