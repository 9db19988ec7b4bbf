package predicate

import (
	"fmt"

	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/domain/collection/field"
	"github.com/kailas-cloud/seekdb/internal/domain/search/filter"
)

// Compiler turns filter trees into Predicates for one Dialect.
// It holds no per-call state and is safe for concurrent use.
type Compiler struct {
	dialect Dialect
}

// NewCompiler creates a Compiler for the dialect.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{dialect: d}
}

// Dialect returns the target dialect.
func (c *Compiler) Dialect() Dialect { return c.dialect }

// Input is the full row condition of a collection call.
type Input struct {
	IDs           []string
	Where         filter.Node
	WhereDocument filter.DocumentNode
	Schema        Schema
}

// IsEmpty reports whether the input selects every row.
func (in Input) IsEmpty() bool {
	return len(in.IDs) == 0 && in.Where == nil && in.WhereDocument == nil
}

// CompileMetadata compiles a metadata filter. A nil node yields a nil predicate.
func (c *Compiler) CompileMetadata(n filter.Node, s Schema) (*Predicate, error) {
	return c.Compile(Input{Where: n, Schema: s})
}

// CompileDocument compiles a document filter. A nil node yields a nil predicate.
func (c *Compiler) CompileDocument(n filter.DocumentNode) (*Predicate, error) {
	return c.Compile(Input{WhereDocument: n})
}

// Compile compiles ids ∧ where ∧ where_document into one predicate sharing
// a single argument sequence. Nothing is returned on failure.
func (c *Compiler) Compile(in Input) (*Predicate, error) {
	if in.IsEmpty() {
		return nil, nil
	}
	b := &Builder{}
	var parts []string
	if len(in.IDs) > 0 {
		parts = append(parts, c.dialect.IDs(b, in.IDs))
	}
	if in.Where != nil {
		p, err := c.metadata(b, in.Where, in.Schema)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	if in.WhereDocument != nil {
		p, err := c.document(b, in.WhereDocument)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	clause := parts[0]
	if len(parts) > 1 {
		clause = c.dialect.Join(filter.And, parts)
	}
	return &Predicate{Clause: clause, Args: b.args}, nil
}

func (c *Compiler) metadata(b *Builder, n filter.Node, s Schema) (string, error) {
	switch t := n.(type) {
	case *filter.Logical:
		if len(t.Children) == 0 {
			return "", domain.NewFilterSyntaxError("", string(t.Op), "operand list is empty")
		}
		parts := make([]string, 0, len(t.Children))
		for _, ch := range t.Children {
			p, err := c.metadata(b, ch, s)
			if err != nil {
				return "", err
			}
			parts = append(parts, p)
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		return c.dialect.Join(t.Op, parts), nil
	case *filter.Comparison:
		if err := c.checkComparison(t, s); err != nil {
			return "", err
		}
		if t.Op.IsSet() {
			return c.dialect.Set(b, t.Field, t.Op, t.Values), nil
		}
		return c.dialect.Compare(b, t.Field, t.Op, t.Value), nil
	default:
		return "", domain.NewFilterSyntaxError("", "", fmt.Sprintf("unknown filter node %T", n))
	}
}

func (c *Compiler) checkComparison(cmp *filter.Comparison, s Schema) error {
	op := string(cmp.Op)
	fam := cmp.Value.Family()
	if cmp.Op.IsSet() {
		if len(cmp.Values) == 0 {
			return domain.NewFilterSyntaxError(cmp.Field, op, "operand list is empty")
		}
		fam = cmp.Values[0].Family()
		for _, v := range cmp.Values[1:] {
			if v.Family() != fam {
				return domain.NewFilterTypeError(cmp.Field, op,
					fmt.Sprintf("list mixes %s and %s values", fam, v.Family()))
			}
		}
	}
	if cmp.Op.IsOrdering() && fam != field.Numeric {
		return domain.NewFilterTypeError(cmp.Field, op, fmt.Sprintf("expects a numeric operand, got %s", fam))
	}

	var declared field.Field
	var known bool
	if s != nil {
		declared, known = s.FieldByName(cmp.Field)
	}
	if !known {
		if c.dialect.RequiresDeclaredFields() {
			return domain.NewFilterTypeError(cmp.Field, op, "field is not indexed by "+c.dialect.Name())
		}
		return nil
	}
	if declared.Family() != fam {
		return domain.NewFilterTypeError(cmp.Field, op,
			fmt.Sprintf("field is %s, operand is %s", declared.Family(), fam))
	}
	return nil
}

func (c *Compiler) document(b *Builder, n filter.DocumentNode) (string, error) {
	switch t := n.(type) {
	case *filter.DocLogical:
		if len(t.Children) == 0 {
			return "", domain.NewFilterSyntaxError("document", string(t.Op), "operand list is empty")
		}
		parts := make([]string, 0, len(t.Children))
		for _, ch := range t.Children {
			p, err := c.document(b, ch)
			if err != nil {
				return "", err
			}
			parts = append(parts, p)
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		return c.dialect.Join(t.Op, parts), nil
	case *filter.Contains:
		return c.dialect.Contains(b, t.Substring), nil
	case *filter.Regex:
		if !c.dialect.SupportsRegex() {
			return "", domain.NewUnsupportedFilterError(filter.OpRegex, c.dialect.Name())
		}
		return c.dialect.Regex(b, t.Pattern), nil
	default:
		return "", domain.NewFilterSyntaxError("document", "", fmt.Sprintf("unknown filter node %T", n))
	}
}
