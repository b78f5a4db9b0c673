package metastore

import "github.com/matthewbaird/ksqlplan/internal/schema"

// Sample returns a catalog with the two demo streams used when no catalog is
// configured and throughout the planner tests:
//
//	s1 (COL0 BIGINT KEY, COL1 STRING, COL2 STRING, COL3 DOUBLE)
//	s2 (COL0 BIGINT KEY, COL1 STRING, COL2 STRING, COL3 DOUBLE, COL4 DOUBLE)
func Sample() *MetaStore {
	ms := New()
	for _, s := range []*Stream{
		{
			Name:   "s1",
			Topic:  "test1",
			Format: "JSON",
			Key:    "col0",
			Columns: []schema.Field{
				{Name: "col0", Type: schema.Bigint},
				{Name: "col1", Type: schema.String},
				{Name: "col2", Type: schema.String},
				{Name: "col3", Type: schema.Double},
			},
		},
		{
			Name:   "s2",
			Topic:  "test2",
			Format: "JSON",
			Key:    "col0",
			Columns: []schema.Field{
				{Name: "col0", Type: schema.Bigint},
				{Name: "col1", Type: schema.String},
				{Name: "col2", Type: schema.String},
				{Name: "col3", Type: schema.Double},
				{Name: "col4", Type: schema.Double},
			},
		},
	} {
		if err := ms.Register(s); err != nil {
			panic(err)
		}
	}
	return ms
}
