package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matthewbaird/ksqlplan/internal/planerr"
)

// Field is one column of a schema. Qualifier is the source alias, or empty
// for unqualified and derived fields.
type Field struct {
	Qualifier string    `json:"qualifier,omitempty"`
	Name      string    `json:"name"`
	Type      ValueType `json:"type"`
}

// QualifiedName returns "qualifier.name", or "name" when unqualified.
func (f Field) QualifiedName() string {
	if f.Qualifier == "" {
		return f.Name
	}
	return f.Qualifier + "." + f.Name
}

// DisplayName returns the upper-case qualified name used in plan text.
func (f Field) DisplayName() string {
	return strings.ToUpper(f.QualifiedName())
}

// SameColumn reports whether f and o name the same (qualifier, name) pair.
// Comparison is case-insensitive.
func (f Field) SameColumn(o Field) bool {
	return strings.EqualFold(f.Qualifier, o.Qualifier) && strings.EqualFold(f.Name, o.Name)
}

// String returns "Q.NAME TYPE".
func (f Field) String() string {
	return f.DisplayName() + " " + f.Type.String()
}

// Schema is an immutable, ordered list of fields. The zero value is an empty
// schema.
type Schema struct {
	fields []Field
}

// New builds a schema from fields in order. A (qualifier, name) pair may
// appear only once.
func New(fields ...Field) (Schema, error) {
	for i := range fields {
		for j := 0; j < i; j++ {
			if fields[i].SameColumn(fields[j]) {
				return Schema{}, planerr.Newf(planerr.DuplicateQualifiedField, fields[i].DisplayName(),
					"field '%s' appears more than once", fields[i].QualifiedName())
			}
		}
	}
	out := make([]Field, len(fields))
	copy(out, fields)
	return Schema{fields: out}, nil
}

// Len returns the number of fields.
func (s Schema) Len() int { return len(s.fields) }

// Field returns the i-th field.
func (s Schema) Field(i int) Field { return s.fields[i] }

// Fields returns a copy of the field list.
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the qualified field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.QualifiedName()
	}
	return names
}

// Lookup resolves a column reference. A qualified reference must match both
// parts; an unqualified reference must match exactly one field by name.
func (s Schema) Lookup(qualifier, name string) (Field, int, error) {
	ref := name
	if qualifier != "" {
		ref = qualifier + "." + name
	}

	match := -1
	for i, f := range s.fields {
		if !strings.EqualFold(f.Name, name) {
			continue
		}
		if qualifier != "" && !strings.EqualFold(f.Qualifier, qualifier) {
			continue
		}
		if match >= 0 {
			return Field{}, -1, planerr.Newf(planerr.AmbiguousColumn, strings.ToUpper(ref),
				"column '%s' is ambiguous: matches %s and %s",
				ref, s.fields[match].QualifiedName(), f.QualifiedName())
		}
		match = i
	}
	if match < 0 {
		return Field{}, -1, planerr.Newf(planerr.UnresolvedColumn, strings.ToUpper(ref),
			"column '%s' cannot be resolved", ref)
	}
	return s.fields[match], match, nil
}

// Qualify returns a copy of s with every field qualified by q.
func (s Schema) Qualify(q string) Schema {
	out := make([]Field, len(s.fields))
	for i, f := range s.fields {
		f.Qualifier = q
		out[i] = f
	}
	return Schema{fields: out}
}

// Concat returns left's fields followed by right's. Both inputs keep their
// qualifiers; a pair present in both is rejected.
func Concat(left, right Schema) (Schema, error) {
	fields := make([]Field, 0, left.Len()+right.Len())
	fields = append(fields, left.fields...)
	fields = append(fields, right.fields...)
	return New(fields...)
}

// Equal reports whether both schemas have identical fields in the same order.
func (s Schema) Equal(o Schema) bool {
	if len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != o.fields[i] {
			return false
		}
	}
	return true
}

// String renders the schema as "[Q.A TYPE, B TYPE]".
func (s Schema) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}

// MarshalJSON encodes the schema as its list of fields.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s.fields == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.fields)
}
