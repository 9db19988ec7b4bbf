package redis

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/kailas-cloud/seekdb/internal/domain/collection/field"
	"github.com/kailas-cloud/seekdb/internal/domain/search/filter"
	"github.com/kailas-cloud/seekdb/internal/predicate"
)

var _ predicate.Dialect = Dialect{}

// Dialect renders predicates as RediSearch query syntax. Values are
// escaped inline, so compiled predicates carry no arguments.
type Dialect struct{}

// Name identifies the dialect in error messages.
func (Dialect) Name() string { return "redisearch" }

// SupportsRegex is false: the query language has no regex operator.
func (Dialect) SupportsRegex() bool { return false }

// RequiresDeclaredFields is true: only indexed hash fields are searchable.
func (Dialect) RequiresDeclaredFields() bool { return true }

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func tagValue(v filter.Value) string {
	switch v.Family() {
	case field.Bool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case field.Numeric:
		return formatNum(v.Num())
	default:
		return tagEscaper.Replace(v.Str())
	}
}

func numRange(name string, op filter.Op, n float64) string {
	lo, hi := "-inf", "+inf"
	v := formatNum(n)
	switch op {
	case filter.Eq, filter.Ne:
		lo, hi = v, v
	case filter.Gt:
		lo = "(" + v
	case filter.Gte:
		lo = v
	case filter.Lt:
		hi = "(" + v
	case filter.Lte:
		hi = v
	}
	return "@" + name + ":[" + lo + " " + hi + "]"
}

// negate excludes expr from the records that carry the field. A record
// without the field matches neither $ne nor $nin.
func negate(name, expr string) string {
	return "(@" + fieldKeys + ":{" + name + "} -" + expr + ")"
}

// Compare renders a tag match or a numeric range; $ne negates the match.
func (Dialect) Compare(_ *predicate.Builder, name string, op filter.Op, v filter.Value) string {
	var expr string
	if v.Family() == field.Numeric {
		expr = numRange(name, op, v.Num())
	} else {
		expr = "@" + name + ":{" + tagValue(v) + "}"
	}
	if op == filter.Ne {
		return negate(name, expr)
	}
	return expr
}

// Set renders $in as a tag union or a range union; $nin negates it.
func (Dialect) Set(_ *predicate.Builder, name string, op filter.Op, vs []filter.Value) string {
	var expr string
	if vs[0].Family() == field.Numeric {
		parts := make([]string, len(vs))
		for i, v := range vs {
			parts[i] = numRange(name, filter.Eq, v.Num())
		}
		expr = "(" + strings.Join(parts, " | ") + ")"
	} else {
		parts := make([]string, len(vs))
		for i, v := range vs {
			parts[i] = tagValue(v)
		}
		expr = "@" + name + ":{" + strings.Join(parts, " | ") + "}"
	}
	if op == filter.Nin {
		return negate(name, expr)
	}
	return expr
}

// Contains renders an exact phrase over the substring's tokens.
func (Dialect) Contains(_ *predicate.Builder, s string) string {
	return "@" + fieldDocument + ":" + phrase(s)
}

// Regex is never called: SupportsRegex is false.
func (Dialect) Regex(_ *predicate.Builder, _ string) string { return "" }

// IDs renders an id tag union.
func (Dialect) IDs(_ *predicate.Builder, ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = tagEscaper.Replace(id)
	}
	return "@" + fieldID + ":{" + strings.Join(parts, " | ") + "}"
}

// Join intersects with spaces and unions with pipes.
func (Dialect) Join(op filter.LogicalOp, parts []string) string {
	sep := " "
	if op == filter.Or {
		sep = " | "
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// phrase quotes the tokens of s; text without tokens is escaped verbatim.
func phrase(s string) string {
	toks := tokens(s)
	if len(toks) == 0 {
		return "(" + escapeQuery(s) + ")"
	}
	return `"` + strings.Join(toks, " ") + `"`
}

// termQuery ORs the phrases of the terms for relevance ranking.
func termQuery(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		if len(tokens(t)) > 0 {
			parts = append(parts, phrase(t))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "@" + fieldDocument + ":(" + strings.Join(parts, " | ") + ")"
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
)
