package metastore

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/matthewbaird/ksqlplan/internal/schema"
)

// catalogSchema constrains catalog files. It is unified with the loaded
// value before decoding, so CUE reports shape errors with file positions.
const catalogSchema = `
#Column: {
	name: string & =~"^[A-Za-z_][A-Za-z0-9_]*$"
	type: string
}

#Stream: {
	topic?:  string & !=""
	format?: "JSON" | "AVRO" | "DELIMITED" | "PROTOBUF" | "KAFKA" | "json" | "avro" | "delimited" | "protobuf" | "kafka"
	key?:    string
	columns: [...#Column] & [_, ...]
}

streams: [string]: #Stream
`

type cueColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type cueStream struct {
	Topic   string      `json:"topic"`
	Format  string      `json:"format"`
	Key     string      `json:"key"`
	Columns []cueColumn `json:"columns"`
}

// LoadCUE reads a catalog from a CUE file, or from the CUE package in a
// directory, and returns the populated MetaStore. The catalog declares
//
//	streams: s1: {
//		topic:  "test1"
//		format: "JSON"
//		key:    "col0"
//		columns: [{name: "col0", type: "BIGINT"}, ...]
//	}
func LoadCUE(path string) (*MetaStore, error) {
	ctx := cuecontext.New()

	val, err := buildCUE(ctx, path)
	if err != nil {
		return nil, err
	}

	constraint := ctx.CompileString(catalogSchema, cue.Filename("catalog-schema.cue"))
	if constraint.Err() != nil {
		return nil, fmt.Errorf("compiling catalog schema: %w", constraint.Err())
	}
	val = constraint.Unify(val)
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating catalog %s: %w", path, err)
	}

	ms := New()
	streams := val.LookupPath(cue.ParsePath("streams"))
	if !streams.Exists() {
		return ms, nil
	}
	iter, err := streams.Fields()
	if err != nil {
		return nil, fmt.Errorf("reading streams: %w", err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		var cs cueStream
		if err := iter.Value().Decode(&cs); err != nil {
			return nil, fmt.Errorf("decoding stream '%s': %w", name, err)
		}
		st, err := cs.toStream(name)
		if err != nil {
			return nil, err
		}
		if err := ms.Register(st); err != nil {
			return nil, fmt.Errorf("registering stream '%s': %w", name, err)
		}
	}
	return ms, nil
}

func buildCUE(ctx *cue.Context, path string) (cue.Value, error) {
	info, err := os.Stat(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("opening catalog: %w", err)
	}

	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, fmt.Errorf("reading catalog: %w", err)
		}
		val := ctx.CompileBytes(src, cue.Filename(path))
		if val.Err() != nil {
			return cue.Value{}, fmt.Errorf("compiling catalog %s: %w", path, val.Err())
		}
		return val, nil
	}

	insts := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(insts) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances found in %s", path)
	}
	if insts[0].Err != nil {
		return cue.Value{}, fmt.Errorf("loading catalog: %w", insts[0].Err)
	}
	val := ctx.BuildInstance(insts[0])
	if val.Err() != nil {
		return cue.Value{}, fmt.Errorf("building catalog: %w", val.Err())
	}
	return val, nil
}

func (cs cueStream) toStream(name string) (*Stream, error) {
	st := &Stream{Name: name, Topic: cs.Topic, Format: cs.Format, Key: cs.Key}
	for _, c := range cs.Columns {
		t, ok := schema.ParseType(c.Type)
		if !ok {
			return nil, fmt.Errorf("stream '%s' column '%s': unknown type '%s'", name, c.Name, c.Type)
		}
		st.Columns = append(st.Columns, schema.Field{Name: c.Name, Type: t})
	}
	return st, nil
}
