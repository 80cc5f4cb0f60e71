// Package pylit serializes Go values as Python literals for embedding in
// generated scripts. Every caller-supplied value that ends up inside
// generated Python goes through this package, so the emitted source stays
// syntactically valid no matter what the value contains (quotes,
// backslashes, newlines).
package pylit

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Str returns a double-quoted Python string literal for s.
//
// strconv.Quote escapes with \", \\, \n, \xNN and \uNNNN sequences, all of
// which carry the same meaning inside a Python string literal.
func Str(s string) string {
	return strconv.Quote(s)
}

// Int returns a Python int literal.
func Int(i int) string {
	return strconv.Itoa(i)
}

// Float returns a Python float literal. The value always contains a
// decimal point or exponent so Python treats it as a float, not an int.
// Non-finite values have no literal form in Python and are emitted as
// float() constructor calls instead.
func Float(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return `float("inf")`
	case math.IsInf(f, -1):
		return `float("-inf")`
	case math.IsNaN(f):
		return `float("nan")`
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Bool returns a Python bool literal.
func Bool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// StrList returns a Python list literal of string literals.
func StrList(items []string) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(Str(item))
	}
	sb.WriteString("]")
	return sb.String()
}

// FloatList returns a Python list literal of float literals.
func FloatList(items []float64) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(Float(item))
	}
	sb.WriteString("]")
	return sb.String()
}

// ColumnDict returns a Python dict literal mapping column names to float
// lists. Keys are emitted in sorted order so generated scripts are
// deterministic for a given input.
func ColumnDict(columns map[string][]float64) string {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("{")
	for i, name := range names {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", Str(name), FloatList(columns[name]))
	}
	sb.WriteString("}")
	return sb.String()
}
