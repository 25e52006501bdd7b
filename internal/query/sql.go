package query

import (
	"fmt"
	"strings"
)

// sqlOps maps comparison operators to their SQL tokens. Compilation
// consults this map rather than trusting the operator string.
var sqlOps = map[CompareOp]string{
	OpEq:  "=",
	OpNe:  "!=",
	OpLt:  "<",
	OpLte: "<=",
	OpGt:  ">",
	OpGte: ">=",
}

// Compile converts an expression to parameterized SQL against the
// documents table. Returns (sql, params, error).
//
// Every statement includes ORDER BY id ASC COLLATE BINARY so results
// are deterministic. All values are bind parameters.
func Compile(e Expr) (string, []any, error) {
	if err := Validate(e); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT id, data, version FROM documents WHERE collection = ?")
	params := []any{e.Collection}

	if e.Filter != nil {
		filterSQL, filterParams, err := compileFilter(e.Filter)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" AND ")
		b.WriteString(filterSQL)
		params = append(params, filterParams...)
	}

	b.WriteString(" ORDER BY id ASC COLLATE BINARY")

	if e.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, int64(e.Limit))
	}

	return b.String(), params, nil
}

func compileFilter(f Filter) (string, []any, error) {
	switch filter := f.(type) {
	case Compare:
		return compileCompare(filter)
	case *Compare:
		return compileCompare(*filter)
	case And:
		return compileAnd(filter)
	case *And:
		return compileAnd(*filter)
	default:
		return "", nil, fmt.Errorf("query: unsupported filter type %T", f)
	}
}

func compileCompare(c Compare) (string, []any, error) {
	op, ok := sqlOps[c.Op]
	if !ok {
		return "", nil, fmt.Errorf("query: unknown operator %q on field %q", c.Op, c.Field)
	}
	sql := fmt.Sprintf("json_extract(data, '$.%s') %s ?", c.Field, op)
	return sql, []any{toParam(c.Value)}, nil
}

// compileAnd joins member fragments with AND. An empty And compiles to
// a vacuous truth so callers need not special-case it.
func compileAnd(a And) (string, []any, error) {
	if len(a.Filters) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(a.Filters))
	var params []any
	for _, f := range a.Filters {
		sql, p, err := compileFilter(f)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}

// toParam widens ints so parameters bind uniformly regardless of how
// the caller spelled the literal.
func toParam(v any) any {
	if n, ok := v.(int); ok {
		return int64(n)
	}
	return v
}
