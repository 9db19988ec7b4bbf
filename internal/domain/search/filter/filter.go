// Package filter holds the typed metadata and document filter trees.
//
// Trees are always built by ParseWhere/ParseWhereDocument from caller input
// and are never shared between calls.
package filter

import (
	"fmt"

	"github.com/kailas-cloud/seekdb/internal/domain/collection/field"
)

// Op is a metadata comparison operator.
type Op string

// Comparison operators.
const (
	Eq  Op = "$eq"
	Ne  Op = "$ne"
	Gt  Op = "$gt"
	Gte Op = "$gte"
	Lt  Op = "$lt"
	Lte Op = "$lte"
	In  Op = "$in"
	Nin Op = "$nin"
)

// IsSet reports whether the operator takes a list operand.
func (o Op) IsSet() bool { return o == In || o == Nin }

// IsOrdering reports whether the operator requires an ordered (numeric) operand.
func (o Op) IsOrdering() bool { return o == Gt || o == Gte || o == Lt || o == Lte }

func (o Op) valid() bool {
	switch o {
	case Eq, Ne, Gt, Gte, Lt, Lte, In, Nin:
		return true
	}
	return false
}

// LogicalOp combines child filters.
type LogicalOp string

// Logical operators.
const (
	And LogicalOp = "$and"
	Or  LogicalOp = "$or"
)

// Document operators.
const (
	OpContains = "$contains"
	OpRegex    = "$regex"
)

// Value is a typed scalar operand.
type Value struct {
	family field.Family
	num    float64
	str    string
	b      bool
}

// NewValue converts a caller scalar. ok is false for unsupported types.
func NewValue(v any) (Value, bool) {
	fam, ok := field.FamilyOf(v)
	if !ok {
		return Value{}, false
	}
	switch fam {
	case field.String:
		return Value{family: fam, str: v.(string)}, true
	case field.Bool:
		return Value{family: fam, b: v.(bool)}, true
	default:
		return Value{family: fam, num: toFloat(v)}, true
	}
}

// Family returns the operand's type family.
func (v Value) Family() field.Family { return v.family }

// Num returns the numeric operand.
func (v Value) Num() float64 { return v.num }

// Str returns the string operand.
func (v Value) Str() string { return v.str }

// Bool returns the boolean operand.
func (v Value) Bool() bool { return v.b }

// Any returns the operand as a plain Go value.
func (v Value) Any() any {
	switch v.family {
	case field.String:
		return v.str
	case field.Bool:
		return v.b
	default:
		return v.num
	}
}

func (v Value) String() string { return fmt.Sprint(v.Any()) }

// Node is a metadata filter tree node: *Comparison or *Logical.
type Node interface {
	node()
}

// Comparison compares one metadata field with an operand.
// Set operators carry Values; all others carry Value.
type Comparison struct {
	Field  string
	Op     Op
	Value  Value
	Values []Value
}

// Logical combines non-empty children with $and or $or.
type Logical struct {
	Op       LogicalOp
	Children []Node
}

func (*Comparison) node() {}
func (*Logical) node()    {}

// DocumentNode is a document filter tree node: *Contains, *Regex or *DocLogical.
type DocumentNode interface {
	documentNode()
}

// Contains matches documents containing Substring.
type Contains struct {
	Substring string
}

// Regex matches documents against Pattern.
type Regex struct {
	Pattern string
}

// DocLogical combines non-empty document children.
type DocLogical struct {
	Op       LogicalOp
	Children []DocumentNode
}

func (*Contains) documentNode()   {}
func (*Regex) documentNode()      {}
func (*DocLogical) documentNode() {}

// Terms collects the $contains substrings of a document tree in order.
func Terms(n DocumentNode) []string {
	var out []string
	var walk func(DocumentNode)
	walk = func(n DocumentNode) {
		switch t := n.(type) {
		case *Contains:
			out = append(out, t.Substring)
		case *DocLogical:
			for _, c := range t.Children {
				walk(c)
			}
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
