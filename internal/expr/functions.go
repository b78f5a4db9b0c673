package expr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matthewbaird/ksqlplan/internal/schema"
)

// Function describes a built-in scalar or aggregate function.
type Function struct {
	Name      string
	Aggregate bool
	MinArgs   int
	MaxArgs   int // -1 = variadic
	// Returns computes the result type from the argument types.
	Returns func(args []schema.ValueType) (schema.ValueType, error)
}

// builtins is the immutable function table, keyed by upper-case name.
var builtins = map[string]*Function{}

func register(f *Function) { builtins[f.Name] = f }

func init() {
	// Aggregates
	register(&Function{Name: "COUNT", Aggregate: true, MinArgs: 1, MaxArgs: 1, Returns: fixed(schema.Bigint)})
	register(&Function{Name: "SUM", Aggregate: true, MinArgs: 1, MaxArgs: 1, Returns: numericArg})
	register(&Function{Name: "MIN", Aggregate: true, MinArgs: 1, MaxArgs: 1, Returns: comparableArg})
	register(&Function{Name: "MAX", Aggregate: true, MinArgs: 1, MaxArgs: 1, Returns: comparableArg})

	// Numeric
	register(&Function{Name: "ABS", MinArgs: 1, MaxArgs: 1, Returns: numericArg})
	register(&Function{Name: "CEIL", MinArgs: 1, MaxArgs: 1, Returns: numericArg})
	register(&Function{Name: "FLOOR", MinArgs: 1, MaxArgs: 1, Returns: numericArg})
	register(&Function{Name: "ROUND", MinArgs: 1, MaxArgs: 1, Returns: func(args []schema.ValueType) (schema.ValueType, error) {
		if _, err := numericArg(args); err != nil {
			return schema.Unknown, err
		}
		return schema.Bigint, nil
	}})
	register(&Function{Name: "RANDOM", MinArgs: 0, MaxArgs: 0, Returns: fixed(schema.Double)})

	// String
	register(&Function{Name: "LCASE", MinArgs: 1, MaxArgs: 1, Returns: stringArgs(schema.String)})
	register(&Function{Name: "UCASE", MinArgs: 1, MaxArgs: 1, Returns: stringArgs(schema.String)})
	register(&Function{Name: "TRIM", MinArgs: 1, MaxArgs: 1, Returns: stringArgs(schema.String)})
	register(&Function{Name: "LEN", MinArgs: 1, MaxArgs: 1, Returns: stringArgs(schema.Integer)})
	register(&Function{Name: "CONCAT", MinArgs: 2, MaxArgs: -1, Returns: stringArgs(schema.String)})
	register(&Function{Name: "EXTRACTJSONFIELD", MinArgs: 2, MaxArgs: 2, Returns: stringArgs(schema.String)})
	register(&Function{Name: "SUBSTRING", MinArgs: 2, MaxArgs: 3, Returns: func(args []schema.ValueType) (schema.ValueType, error) {
		if !isString(args[0]) {
			return schema.Unknown, fmt.Errorf("argument 1 must be STRING, got %s", args[0])
		}
		for i, a := range args[1:] {
			if a != schema.Integer && a != schema.Bigint && a != schema.Null {
				return schema.Unknown, fmt.Errorf("argument %d must be INTEGER, got %s", i+2, a)
			}
		}
		return schema.String, nil
	}})
}

func fixed(t schema.ValueType) func([]schema.ValueType) (schema.ValueType, error) {
	return func([]schema.ValueType) (schema.ValueType, error) { return t, nil }
}

func numericArg(args []schema.ValueType) (schema.ValueType, error) {
	if !args[0].Numeric() && args[0] != schema.Null {
		return schema.Unknown, fmt.Errorf("argument must be numeric, got %s", args[0])
	}
	return args[0], nil
}

func comparableArg(args []schema.ValueType) (schema.ValueType, error) {
	if !args[0].Comparable() {
		return schema.Unknown, fmt.Errorf("argument must be numeric or STRING, got %s", args[0])
	}
	return args[0], nil
}

func isString(t schema.ValueType) bool { return t == schema.String || t == schema.Null }

func stringArgs(ret schema.ValueType) func([]schema.ValueType) (schema.ValueType, error) {
	return func(args []schema.ValueType) (schema.ValueType, error) {
		for i, a := range args {
			if !isString(a) {
				return schema.Unknown, fmt.Errorf("argument %d must be STRING, got %s", i+1, a)
			}
		}
		return ret, nil
	}
}

// LookupFunction returns the built-in named name (case-insensitive).
func LookupFunction(name string) (*Function, bool) {
	f, ok := builtins[strings.ToUpper(name)]
	return f, ok
}

// IsAggregate reports whether name is a built-in aggregate function.
func IsAggregate(name string) bool {
	f, ok := LookupFunction(name)
	return ok && f.Aggregate
}

// FunctionNames returns all built-in function names, sorted.
func FunctionNames() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
