package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/ConnorDW-SA/marketplace/internal/domain"
	"github.com/ConnorDW-SA/marketplace/internal/query"
)

var comparisons = map[query.Op]string{
	query.OpEq:  "=",
	query.OpNe:  "<>",
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

// column maps an allow-listed field to its SQL expression. Field names come
// from domain.ProductFields, never from raw input.
func column(field string, kind domain.FieldKind) string {
	switch {
	case field == domain.FieldID:
		return "id"
	case field == domain.FieldCreatedAt:
		return "created_at"
	case kind == domain.KindNumber:
		return fmt.Sprintf("(doc->>'%s')::double precision", field)
	case kind == domain.KindTime:
		return fmt.Sprintf("(doc->>'%s')::timestamptz", field)
	default:
		return fmt.Sprintf("COALESCE(doc->>'%s', '')", field)
	}
}

// whereClause renders the conditions as a WHERE clause with positional
// arguments starting at $1.
func whereClause(conds []query.Condition) (string, []any) {
	if len(conds) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(conds))
	args := make([]any, 0, len(conds))
	for _, c := range conds {
		col := column(c.Field, c.Kind)
		args = append(args, argValue(c))
		n := len(args)

		switch c.Op {
		case query.OpIn:
			parts = append(parts, fmt.Sprintf("%s = ANY($%d)", col, n))
		case query.OpNin:
			parts = append(parts, fmt.Sprintf("%s <> ALL($%d)", col, n))
		default:
			parts = append(parts, fmt.Sprintf("%s %s $%d", col, comparisons[c.Op], n))
		}
	}
	return "WHERE " + strings.Join(parts, " AND "), args
}

// argValue returns a typed slice for set operators so pgx encodes a
// Postgres array of the right element type.
func argValue(c query.Condition) any {
	if c.Op != query.OpIn && c.Op != query.OpNin {
		return c.Value()
	}
	switch c.Kind {
	case domain.KindNumber:
		out := make([]float64, 0, len(c.Values))
		for _, v := range c.Values {
			out = append(out, v.(float64))
		}
		return out
	case domain.KindTime:
		out := make([]time.Time, 0, len(c.Values))
		for _, v := range c.Values {
			out = append(out, v.(time.Time))
		}
		return out
	default:
		out := make([]string, 0, len(c.Values))
		for _, v := range c.Values {
			out = append(out, v.(string))
		}
		return out
	}
}

func orderClause(sorts []query.Sort) string {
	if len(sorts) == 0 {
		sorts = query.DefaultSort()
	}
	parts := make([]string, 0, len(sorts))
	for _, s := range sorts {
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		parts = append(parts, column(s.Field, domain.ProductFields[s.Field])+" "+dir)
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}
