package mongodb

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ConnorDW-SA/marketplace/internal/domain"
	"github.com/ConnorDW-SA/marketplace/internal/query"
)

var operators = map[query.Op]string{
	query.OpEq:  "$eq",
	query.OpNe:  "$ne",
	query.OpGt:  "$gt",
	query.OpGte: "$gte",
	query.OpLt:  "$lt",
	query.OpLte: "$lte",
	query.OpIn:  "$in",
	query.OpNin: "$nin",
}

// buildFilter groups conditions by field, so price>=10&price<=20 becomes
// {price: {$gte: 10, $lte: 20}}.
func buildFilter(conds []query.Condition) bson.D {
	filter := bson.D{}
	index := make(map[string]int)

	for _, c := range conds {
		var val any = c.Value()
		if c.Op == query.OpIn || c.Op == query.OpNin {
			val = bson.A(c.Values)
		}
		op := bson.E{Key: operators[c.Op], Value: val}

		name := documentField(c.Field)
		if i, ok := index[name]; ok {
			filter[i].Value = append(filter[i].Value.(bson.D), op)
			continue
		}
		index[name] = len(filter)
		filter = append(filter, bson.E{Key: name, Value: bson.D{op}})
	}
	return filter
}

func buildSort(sorts []query.Sort) bson.D {
	out := make(bson.D, 0, len(sorts))
	for _, s := range sorts {
		dir := 1
		if s.Desc {
			dir = -1
		}
		out = append(out, bson.E{Key: documentField(s.Field), Value: dir})
	}
	return out
}

func buildProjection(fields []string) bson.D {
	if len(fields) == 0 {
		return nil
	}
	out := make(bson.D, 0, len(fields))
	for _, f := range fields {
		out = append(out, bson.E{Key: documentField(f), Value: 1})
	}
	return out
}

func documentField(field string) string {
	if field == domain.FieldID {
		return "_id"
	}
	return field
}
