// Package schema provides the field and schema model shared by every plan
// node: ordered, immutable lists of qualified, typed fields.
package schema

import (
	"fmt"
	"strings"
)

// ValueType is the logical type of a column or expression.
type ValueType int

const (
	Unknown ValueType = iota
	Boolean
	Integer
	Bigint
	Double
	String
	Array
	Map
	Null // type of the NULL literal; compatible with every other type
)

// String returns the SQL type name.
func (t ValueType) String() string {
	switch t {
	case Boolean:
		return "BOOLEAN"
	case Integer:
		return "INTEGER"
	case Bigint:
		return "BIGINT"
	case Double:
		return "DOUBLE"
	case String:
		return "STRING"
	case Array:
		return "ARRAY"
	case Map:
		return "MAP"
	case Null:
		return "NULL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the type as its SQL name.
func (t ValueType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a SQL type name.
func (t *ValueType) UnmarshalText(b []byte) error {
	v, ok := ParseType(string(b))
	if !ok {
		return fmt.Errorf("unknown type '%s'", b)
	}
	*t = v
	return nil
}

// Numeric returns true for INTEGER, BIGINT and DOUBLE.
func (t ValueType) Numeric() bool {
	switch t {
	case Integer, Bigint, Double:
		return true
	default:
		return false
	}
}

// Comparable returns true if the type supports ordering operators (<, >, ...).
func (t ValueType) Comparable() bool {
	return t.Numeric() || t == String || t == Null
}

// typeNames maps accepted (lower-case) spellings to value types.
var typeNames = map[string]ValueType{
	"boolean": Boolean,
	"bool":    Boolean,
	"int":     Integer,
	"integer": Integer,
	"bigint":  Bigint,
	"long":    Bigint,
	"double":  Double,
	"float":   Double,
	"string":  String,
	"varchar": String,
	"array":   Array,
	"map":     Map,
}

// ParseType resolves a type name. Lookup is case-insensitive.
func ParseType(name string) (ValueType, bool) {
	t, ok := typeNames[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Compatible reports whether values of a and b can be compared for equality.
func Compatible(a, b ValueType) bool {
	if a == Null || b == Null {
		return true
	}
	if a.Numeric() && b.Numeric() {
		return true
	}
	return a == b
}

// Widen returns the result type of arithmetic over a and b.
func Widen(a, b ValueType) ValueType {
	switch {
	case a == Double || b == Double:
		return Double
	case a == Bigint || b == Bigint:
		return Bigint
	case a == Null:
		return b
	case b == Null:
		return a
	default:
		return Integer
	}
}
