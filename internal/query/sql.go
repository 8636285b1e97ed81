package query

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Where renders the plan's predicates as a Postgres condition. Placeholders start at
// $argStart. An empty plan renders "TRUE".
func (p Plan) Where(argStart int) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", argStart+len(args)-1)
	}

	for _, pred := range p.Predicates {
		switch pred.Op {
		case OpIn:
			clauses = append(clauses, fmt.Sprintf("%s = ANY(%s)", pred.Column, next(pq.Array(pred.Values))))
		case OpContains:
			clauses = append(clauses, fmt.Sprintf("%s @> %s", pred.Column, next(pq.Array(pred.Values))))
		case OpBetween:
			if pred.Column == ColCreatedAt {
				switch {
				case !pred.From.IsZero() && !pred.To.IsZero():
					clauses = append(clauses, fmt.Sprintf("%s BETWEEN %s AND %s", pred.Column, next(pred.From), next(pred.To)))
				case !pred.From.IsZero():
					clauses = append(clauses, fmt.Sprintf("%s >= %s", pred.Column, next(pred.From)))
				case !pred.To.IsZero():
					clauses = append(clauses, fmt.Sprintf("%s <= %s", pred.Column, next(pred.To)))
				}
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s BETWEEN %s AND %s", pred.Column, next(pred.Min), next(pred.Max)))
		case OpLTE:
			clauses = append(clauses, fmt.Sprintf("%s <= %s", pred.Column, next(pred.Max)))
		case OpText:
			ph := next("%" + likeEscaper.Replace(pred.Text) + "%")
			parts := make([]string, len(pred.Columns))
			for i, col := range pred.Columns {
				if col == ColTags {
					col = "array_to_string(tags, ',')"
				}
				parts[i] = fmt.Sprintf("%s ILIKE %s", col, ph)
			}
			clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
		}
	}

	if len(clauses) == 0 {
		return "TRUE", nil
	}
	return strings.Join(clauses, " AND "), args
}

// OrderBy renders the plan's ordering without the ORDER BY keyword.
func (p Plan) OrderBy() string {
	terms := make([]string, len(p.Orders))
	for i, o := range p.Orders {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		term := o.Column + " " + dir
		if o.NullsLast {
			term += " NULLS LAST"
		}
		terms[i] = term
	}
	return strings.Join(terms, ", ")
}

// Select renders a page query against table.
func (p Plan) Select(table, columns string, limit, offset int) (string, []any) {
	where, args := p.Where(1)
	n := len(args)
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		columns, table, where, p.OrderBy(), n+1, n+2)
	return sql, append(args, limit, offset)
}

// Count renders the total-rows query for the plan's predicates.
func (p Plan) Count(table string) (string, []any) {
	where, args := p.Where(1)
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where), args
}
