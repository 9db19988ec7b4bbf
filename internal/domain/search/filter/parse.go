package filter

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/domain/collection/field"
)

// ParseWhere parses a metadata filter such as
//
//	{"$and": [{"score": {"$gte": 50}}, {"lang": {"$in": ["go", "rust"]}}]}
//
// An empty or nil map means match-all and returns a nil Node.
// A bare value is shorthand for $eq; several keys are an implicit $and.
func ParseWhere(m map[string]any) (Node, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return parseWhere(m)
}

func parseWhere(m map[string]any) (Node, error) {
	if len(m) == 0 {
		return nil, domain.NewFilterSyntaxError("", "", "empty filter object")
	}
	keys := sortedKeys(m)
	nodes := make([]Node, 0, len(keys))
	for _, k := range keys {
		n, err := parseWhereEntry(k, m[k])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return &Logical{Op: And, Children: nodes}, nil
}

func parseWhereEntry(key string, v any) (Node, error) {
	if op := LogicalOp(key); op == And || op == Or {
		subs, err := mapList(key, v)
		if err != nil {
			return nil, err
		}
		children := make([]Node, 0, len(subs))
		for _, s := range subs {
			c, err := parseWhere(s)
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		return &Logical{Op: op, Children: children}, nil
	}
	if strings.HasPrefix(key, "$") {
		return nil, domain.NewFilterSyntaxError("", key, "unknown operator")
	}
	if err := field.ValidateName(key); err != nil {
		return nil, domain.NewFilterSyntaxError(key, "", err.Error())
	}

	ops, isObj := v.(map[string]any)
	if !isObj {
		return parseComparison(key, Eq, v)
	}
	if len(ops) == 0 {
		return nil, domain.NewFilterSyntaxError(key, "", "empty operator object")
	}
	opKeys := sortedKeys(ops)
	nodes := make([]Node, 0, len(opKeys))
	for _, ok := range opKeys {
		n, err := parseComparison(key, Op(ok), ops[ok])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return &Logical{Op: And, Children: nodes}, nil
}

func parseComparison(fieldName string, op Op, v any) (Node, error) {
	if !op.valid() {
		return nil, domain.NewFilterSyntaxError(fieldName, string(op), "unknown operator")
	}
	if op.IsSet() {
		items, ok := list(v)
		if !ok {
			return nil, domain.NewFilterSyntaxError(fieldName, string(op), "operand must be a list")
		}
		if len(items) == 0 {
			return nil, domain.NewFilterSyntaxError(fieldName, string(op), "operand list is empty")
		}
		vals := make([]Value, 0, len(items))
		for _, it := range items {
			val, ok := NewValue(it)
			if !ok {
				return nil, domain.NewFilterSyntaxError(fieldName, string(op),
					fmt.Sprintf("unsupported list element %T", it))
			}
			vals = append(vals, val)
		}
		return &Comparison{Field: fieldName, Op: op, Values: vals}, nil
	}
	val, ok := NewValue(v)
	if !ok {
		return nil, domain.NewFilterSyntaxError(fieldName, string(op),
			fmt.Sprintf("operand must be a string, number or boolean, got %T", v))
	}
	return &Comparison{Field: fieldName, Op: op, Value: val}, nil
}

// ParseWhereDocument parses a document filter such as
//
//	{"$or": [{"$contains": "vector"}, {"$regex": "^intro"}]}
//
// An empty or nil map returns a nil DocumentNode.
func ParseWhereDocument(m map[string]any) (DocumentNode, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return parseDocument(m)
}

func parseDocument(m map[string]any) (DocumentNode, error) {
	if len(m) == 0 {
		return nil, domain.NewFilterSyntaxError("", "", "empty document filter object")
	}
	keys := sortedKeys(m)
	nodes := make([]DocumentNode, 0, len(keys))
	for _, k := range keys {
		n, err := parseDocumentEntry(k, m[k])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return &DocLogical{Op: And, Children: nodes}, nil
}

func parseDocumentEntry(key string, v any) (DocumentNode, error) {
	switch key {
	case OpContains:
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, domain.NewFilterSyntaxError("document", key, "operand must be a non-empty string")
		}
		return &Contains{Substring: s}, nil
	case OpRegex:
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, domain.NewFilterSyntaxError("document", key, "operand must be a non-empty string")
		}
		if _, err := regexp.Compile(s); err != nil {
			return nil, domain.NewFilterSyntaxError("document", key, err.Error())
		}
		return &Regex{Pattern: s}, nil
	case string(And), string(Or):
		subs, err := mapList(key, v)
		if err != nil {
			return nil, err
		}
		children := make([]DocumentNode, 0, len(subs))
		for _, s := range subs {
			c, err := parseDocument(s)
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		return &DocLogical{Op: LogicalOp(key), Children: children}, nil
	default:
		return nil, domain.NewFilterSyntaxError("document", key, "unknown operator")
	}
}

func mapList(op string, v any) ([]map[string]any, error) {
	if ms, ok := v.([]map[string]any); ok {
		if len(ms) == 0 {
			return nil, domain.NewFilterSyntaxError("", op, "operand list is empty")
		}
		return ms, nil
	}
	items, ok := list(v)
	if !ok {
		return nil, domain.NewFilterSyntaxError("", op, "operand must be a list of filter objects")
	}
	if len(items) == 0 {
		return nil, domain.NewFilterSyntaxError("", op, "operand list is empty")
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, domain.NewFilterSyntaxError("", op,
				fmt.Sprintf("list element must be a filter object, got %T", it))
		}
		out = append(out, m)
	}
	return out, nil
}

// list accepts []any and any typed slice; strings are not lists.
func list(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
