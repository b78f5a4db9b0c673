package config

import (
	"context"
	"fmt"

	"github.com/matthewbaird/ksqlplan/internal/metastore"
)

// Catalog is the resolved stream catalog and, when a database is
// configured, the store persisting it.
type Catalog struct {
	Streams *metastore.MetaStore
	Store   *metastore.SQLiteStore // nil without DatabaseURL
	Source  string                 // "cue:<path>", "sqlite", "sample" or a combination
}

// Close releases the store, if any.
func (c *Catalog) Close() error {
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

// LoadCatalog builds the catalog from the CUE catalog, the database, or
// both. Streams in the database replace CUE streams of the same name. With
// neither configured, or both empty, the sample streams are used.
func LoadCatalog(ctx context.Context, c Config) (*Catalog, error) {
	out := &Catalog{Streams: metastore.New()}
	if c.Catalog != "" {
		ms, err := metastore.LoadCUE(c.Catalog)
		if err != nil {
			return nil, fmt.Errorf("loading catalog %s: %w", c.Catalog, err)
		}
		out.Streams = ms
		out.Source = "cue:" + c.Catalog
	}

	if c.DatabaseURL != "" {
		store, err := metastore.OpenSQLite(ctx, c.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrating catalog database: %w", err)
		}
		n, err := store.LoadInto(ctx, out.Streams)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("loading catalog database: %w", err)
		}
		out.Store = store
		if n > 0 {
			out.Source = join(out.Source, "sqlite")
		}
	}

	if out.Streams.Len() == 0 {
		out.Streams = metastore.Sample()
		out.Source = join(out.Source, "sample")
	}
	return out, nil
}

func join(a, b string) string {
	if a == "" {
		return b
	}
	return a + "+" + b
}
