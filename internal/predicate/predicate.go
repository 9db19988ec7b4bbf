// Package predicate compiles filter trees into backend-evaluable predicates.
package predicate

import (
	"github.com/kailas-cloud/seekdb/internal/domain/collection/field"
	"github.com/kailas-cloud/seekdb/internal/domain/search/filter"
)

// Predicate is a compiled boolean condition: a clause fragment in the
// backend's query language plus its bound arguments in placeholder order.
// A nil *Predicate matches every row.
type Predicate struct {
	Clause string
	Args   []any
}

// Schema resolves declared or inferred metadata fields.
type Schema interface {
	FieldByName(name string) (field.Field, bool)
}

// Dialect renders predicate fragments for one backend query language.
type Dialect interface {
	Name() string
	// SupportsRegex reports whether $regex can be evaluated.
	SupportsRegex() bool
	// RequiresDeclaredFields reports whether filters may only reference
	// fields the backend has indexed.
	RequiresDeclaredFields() bool

	Compare(b *Builder, name string, op filter.Op, v filter.Value) string
	Set(b *Builder, name string, op filter.Op, vs []filter.Value) string
	Contains(b *Builder, substr string) string
	Regex(b *Builder, pattern string) string
	IDs(b *Builder, ids []string) string
	Join(op filter.LogicalOp, parts []string) string
}

// Builder accumulates bound arguments for one compilation.
type Builder struct {
	args []any
}

// Bind appends an argument and returns its 1-based position.
func (b *Builder) Bind(v any) int {
	b.args = append(b.args, v)
	return len(b.args)
}

// Len returns the number of bound arguments.
func (b *Builder) Len() int { return len(b.args) }

// Args returns the bound arguments in placeholder order.
func (b *Builder) Args() []any { return b.args }
