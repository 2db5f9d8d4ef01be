package postgres

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hypertrace/config-service-go/internal/docstore"
)

// topLevelColumns maps the document's non-opaque fields to their SQL
// column names. Any path not in this map, other than "config" itself or a
// path prefixed "config.", is rejected by pathSQL — the core never builds
// predicates over anything else.
var topLevelColumns = map[string]string{
	"tenantId":          "tenant_id",
	"resourceNamespace": "resource_namespace",
	"resourceName":      "resource_name",
	"context":           "context",
	"version":           "version",
}

// pathSQL resolves a docstore.Expr leaf path into either a plain SQL
// column (isJSON=false) or a json path into the config column
// (isJSON=true, segments holds "config.a.b" -> ["a","b"]).
func pathSQL(path string) (col string, segments []string, isJSON bool, err error) {
	if rest, ok := strings.CutPrefix(path, "config."); ok {
		segs := strings.Split(rest, ".")
		return "config", segs, true, nil
	}
	if path == "config" {
		return "config", nil, true, nil
	}
	if col, ok := topLevelColumns[path]; ok {
		return col, nil, false, nil
	}
	return "", nil, false, fmt.Errorf("postgres: unsupported predicate path %q", path)
}

func pgTextArray(segments []string) string {
	var b strings.Builder
	b.WriteString("'{")
	b.WriteString(strings.Join(segments, ","))
	b.WriteString("}'")
	return b.String()
}

// sqlBuilder accumulates positional placeholders ($1, $2, ...) and their
// bound arguments while a predicate tree is rendered to SQL text.
type sqlBuilder struct {
	args   []any
	offset int
}

func (b *sqlBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", b.offset+len(b.args))
}

// compilePredicate renders a docstore.Expr to a SQL boolean expression
// plus the bound arguments for its placeholders. Returns ("TRUE", nil,
// nil) for a nil predicate (match everything).
func compilePredicate(e docstore.Expr) (string, []any, error) {
	return compilePredicateFrom(e, 0)
}

// compilePredicateFrom is compilePredicate but numbers placeholders
// starting at $(offset+1), so the rendered fragment can be embedded in a
// statement that already binds offset leading arguments of its own.
func compilePredicateFrom(e docstore.Expr, offset int) (string, []any, error) {
	if e == nil {
		return "TRUE", nil, nil
	}
	b := &sqlBuilder{offset: offset}
	sql, err := renderExpr(b, e)
	if err != nil {
		return "", nil, err
	}
	return sql, b.args, nil
}

func renderExpr(b *sqlBuilder, e docstore.Expr) (string, error) {
	switch n := e.(type) {
	case *docstore.Relational:
		return renderRelational(b, n)
	case *docstore.Logical:
		return renderLogical(b, n)
	default:
		return "", fmt.Errorf("postgres: unsupported expression node %T", n)
	}
}

func renderLogical(b *sqlBuilder, n *docstore.Logical) (string, error) {
	switch n.Op {
	case docstore.NOT:
		if len(n.Children) != 1 {
			return "", fmt.Errorf("postgres: NOT requires exactly one child")
		}
		inner, err := renderExpr(b, n.Children[0])
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case docstore.AND, docstore.OR:
		if len(n.Children) == 0 {
			return "", fmt.Errorf("postgres: %s requires at least one child", n.Op)
		}
		joiner := " AND "
		if n.Op == docstore.OR {
			joiner = " OR "
		}
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			s, err := renderExpr(b, c)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "(" + strings.Join(parts, joiner) + ")", nil
	default:
		return "", fmt.Errorf("postgres: unknown logical operator %q", n.Op)
	}
}

func renderRelational(b *sqlBuilder, n *docstore.Relational) (string, error) {
	col, segments, isJSON, err := pathSQL(n.Path)
	if err != nil {
		return "", err
	}

	if !isJSON {
		return renderColumnRelational(b, col, n)
	}
	return renderJSONRelational(b, segments, n)
}

func renderColumnRelational(b *sqlBuilder, col string, n *docstore.Relational) (string, error) {
	switch n.Op {
	case docstore.EQ:
		return fmt.Sprintf("%s = %s", col, b.bind(n.RHS)), nil
	case docstore.NEQ:
		return fmt.Sprintf("%s IS DISTINCT FROM %s", col, b.bind(n.RHS)), nil
	case docstore.LT:
		return fmt.Sprintf("%s < %s", col, b.bind(n.RHS)), nil
	case docstore.LTE:
		return fmt.Sprintf("%s <= %s", col, b.bind(n.RHS)), nil
	case docstore.GT:
		return fmt.Sprintf("%s > %s", col, b.bind(n.RHS)), nil
	case docstore.GTE:
		return fmt.Sprintf("%s >= %s", col, b.bind(n.RHS)), nil
	case docstore.LIKE:
		return fmt.Sprintf("%s LIKE %s", col, b.bind(n.RHS)), nil
	case docstore.EXISTS:
		return fmt.Sprintf("%s IS NOT NULL", col), nil
	case docstore.IN, docstore.NOTIN:
		return renderInClause(b, col, n.Op, n.RHS)
	default:
		return "", fmt.Errorf("postgres: unknown relational operator %q", n.Op)
	}
}

func renderJSONRelational(b *sqlBuilder, segments []string, n *docstore.Relational) (string, error) {
	extractJSONB := fmt.Sprintf("(config #> %s)", pgTextArray(segments))
	extractText := fmt.Sprintf("(config #>> %s)", pgTextArray(segments))

	switch n.Op {
	case docstore.EQ:
		lit, err := jsonLiteral(n.RHS)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %s::jsonb", extractJSONB, b.bind(lit)), nil
	case docstore.NEQ:
		lit, err := jsonLiteral(n.RHS)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s IS DISTINCT FROM %s::jsonb", extractJSONB, b.bind(lit)), nil
	case docstore.LT, docstore.LTE, docstore.GT, docstore.GTE:
		op := map[docstore.RelOp]string{docstore.LT: "<", docstore.LTE: "<=", docstore.GT: ">", docstore.GTE: ">="}[n.Op]
		return fmt.Sprintf("%s::numeric %s %s::numeric", extractText, op, b.bind(n.RHS)), nil
	case docstore.LIKE:
		return fmt.Sprintf("%s LIKE %s", extractText, b.bind(n.RHS)), nil
	case docstore.EXISTS:
		return fmt.Sprintf("%s IS NOT NULL", extractJSONB), nil
	case docstore.IN, docstore.NOTIN:
		return renderJSONInClause(b, extractJSONB, n.Op, n.RHS)
	default:
		return "", fmt.Errorf("postgres: unknown relational operator %q", n.Op)
	}
}

func renderInClause(b *sqlBuilder, col string, op docstore.RelOp, rhs any) (string, error) {
	values, err := toSlice(rhs)
	if err != nil {
		return "", err
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = b.bind(v)
	}
	keyword := "IN"
	if op == docstore.NOTIN {
		keyword = "NOT IN"
	}
	return fmt.Sprintf("%s %s (%s)", col, keyword, strings.Join(placeholders, ", ")), nil
}

func renderJSONInClause(b *sqlBuilder, extractJSONB string, op docstore.RelOp, rhs any) (string, error) {
	values, err := toSlice(rhs)
	if err != nil {
		return "", err
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		lit, err := jsonLiteral(v)
		if err != nil {
			return "", err
		}
		placeholders[i] = b.bind(lit) + "::jsonb"
	}
	arr := "ARRAY[" + strings.Join(placeholders, ", ") + "]"
	if op == docstore.NOTIN {
		return fmt.Sprintf("%s IS DISTINCT FROM ALL(%s)", extractJSONB, arr), nil
	}
	return fmt.Sprintf("%s = ANY(%s)", extractJSONB, arr), nil
}

func jsonLiteral(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("postgres: encoding predicate constant: %w", err)
	}
	return string(b), nil
}

func toSlice(rhs any) ([]any, error) {
	values, ok := rhs.([]any)
	if !ok {
		return nil, fmt.Errorf("postgres: IN/NOT_IN requires a list constant, got %T", rhs)
	}
	return values, nil
}

// sortSQL renders a docstore.Sort to an ORDER BY fragment.
func sortSQL(s docstore.Sort) (string, error) {
	col, segments, isJSON, err := pathSQL(s.Field)
	if err != nil {
		return "", err
	}
	dir := "ASC"
	if s.Dir == docstore.Desc {
		dir = "DESC"
	}
	if !isJSON {
		return col + " " + dir, nil
	}
	return fmt.Sprintf("(config #>> %s) %s", pgTextArray(segments), dir), nil
}
