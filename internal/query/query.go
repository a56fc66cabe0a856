// Package query turns list-request query strings into store-neutral filter,
// sort, window and projection descriptors.
package query

import (
	"errors"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ConnorDW-SA/marketplace/internal/domain"
	apperrors "github.com/ConnorDW-SA/marketplace/pkg/errors"
	"github.com/ConnorDW-SA/marketplace/pkg/pagination"
)

// Reserved query-string keys. Every other key is a filter.
const (
	SortKey     = "sort"
	FieldsKey   = "fields"
	CategoryKey = "category"
	MinPriceKey = "minPrice"
	MaxPriceKey = "maxPrice"
)

// Op is a filter comparison.
type Op string

const (
	OpEq  Op = "eq"
	OpNe  Op = "ne"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
	OpNin Op = "nin"
)

// Condition is one filter term. Values holds a single typed value except for
// OpIn and OpNin.
type Condition struct {
	Field  string
	Kind   domain.FieldKind
	Op     Op
	Values []any
}

// Value returns the condition's first value.
func (c Condition) Value() any {
	if len(c.Values) == 0 {
		return nil
	}
	return c.Values[0]
}

// Sort orders results by one field.
type Sort struct {
	Field string
	Desc  bool
}

// Query is the parsed form of a list request. A zero Window.Limit means the
// result is not paginated.
type Query struct {
	Filter []Condition
	Sort   []Sort
	Window pagination.Window
	Fields []string
}

// DefaultSort orders by creation time, oldest first.
func DefaultSort() []Sort {
	return []Sort{{Field: domain.FieldCreatedAt}, {Field: domain.FieldID}}
}

const dateLayout = "2006-01-02"

// Parser converts query strings against the product field allow-list.
type Parser struct {
	limits pagination.Limits
}

// NewParser creates a parser that bounds page sizes with limits.
func NewParser(limits pagination.Limits) *Parser {
	return &Parser{limits: limits}
}

// Parse translates the general list query. Unknown keys and values that do
// not match the field type are reported together in one validation error.
func (p *Parser) Parse(values url.Values) (Query, error) {
	fieldErrs := make(map[string]string)
	var q Query

	w, err := pagination.ParseWindow(values.Get(pagination.SkipKey), values.Get(pagination.LimitKey), p.limits)
	if err != nil {
		mergeFieldErrors(fieldErrs, err)
	}
	q.Window = w

	q.Sort = parseSort(values.Get(SortKey), fieldErrs)
	q.Fields = parseFields(values.Get(FieldsKey), fieldErrs)

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch key {
		case SortKey, FieldsKey, pagination.SkipKey, pagination.LimitKey:
			continue
		}
		conds, err := parseFilter(key, values[key])
		if err != nil {
			fieldErrs[err.field] = err.msg
			continue
		}
		q.Filter = append(q.Filter, conds...)
	}

	if len(fieldErrs) > 0 {
		return Query{}, apperrors.Validation("invalid query", fieldErrs)
	}
	return q, nil
}

// ParseRange translates the category and price range query. It is not
// paginated and ignores keys other than category, minPrice and maxPrice.
func (p *Parser) ParseRange(values url.Values) (Query, error) {
	fieldErrs := make(map[string]string)
	q := Query{Sort: DefaultSort()}

	if category := values.Get(CategoryKey); category != "" {
		q.Filter = append(q.Filter, Condition{
			Field: domain.FieldCategory, Kind: domain.KindText, Op: OpEq, Values: []any{category},
		})
	}

	bound := func(key string) (float64, bool) {
		raw := values.Get(key)
		if raw == "" {
			return 0, false
		}
		f, err := parseNumber(raw)
		if err != nil {
			fieldErrs[key] = "must be a number"
			return 0, false
		}
		return f, true
	}
	minPrice, hasMin := bound(MinPriceKey)
	maxPrice, hasMax := bound(MaxPriceKey)

	if hasMin && hasMax && minPrice > maxPrice {
		fieldErrs[MinPriceKey] = "must not exceed maxPrice"
	}
	if len(fieldErrs) > 0 {
		return Query{}, apperrors.Validation("invalid query", fieldErrs)
	}

	if hasMin {
		q.Filter = append(q.Filter, Condition{
			Field: domain.FieldPrice, Kind: domain.KindNumber, Op: OpGte, Values: []any{minPrice},
		})
	}
	if hasMax {
		q.Filter = append(q.Filter, Condition{
			Field: domain.FieldPrice, Kind: domain.KindNumber, Op: OpLte, Values: []any{maxPrice},
		})
	}
	return q, nil
}

func mergeFieldErrors(dst map[string]string, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		for k, v := range appErr.Fields {
			dst[k] = v
		}
	}
}

func parseSort(raw string, fieldErrs map[string]string) []Sort {
	if strings.TrimSpace(raw) == "" {
		return DefaultSort()
	}

	var out []Sort
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		// A literal "+" arrives as a space once the query string is decoded.
		part = strings.TrimLeft(strings.TrimSpace(part), "+")
		if part == "" {
			continue
		}
		s := Sort{Field: part}
		if strings.HasPrefix(part, "-") {
			s = Sort{Field: part[1:], Desc: true}
		}
		if !sortable(s.Field) {
			fieldErrs[SortKey] = "unknown field " + strconv.Quote(s.Field)
			continue
		}
		if seen[s.Field] {
			continue
		}
		seen[s.Field] = true
		out = append(out, s)
	}

	if !seen[domain.FieldID] {
		out = append(out, Sort{Field: domain.FieldID})
	}
	return out
}

func sortable(field string) bool {
	if field == domain.FieldID {
		return true
	}
	_, ok := domain.ProductFields[field]
	return ok
}

func parseFields(raw string, fieldErrs map[string]string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		if !domain.Projectable(f) {
			fieldErrs[FieldsKey] = "unknown field " + strconv.Quote(f)
			continue
		}
		out = append(out, f)
	}
	return out
}

var errNotFinite = errors.New("not a finite number")

// parseNumber parses a finite float. NaN and the infinities are rejected.
func parseNumber(raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}

type filterError struct {
	field string
	msg   string
}

// parseFilter reads the operator from the raw key. Decoding "price>=10"
// yields key "price>" with value "10"; "price>10" yields key "price>10" with
// an empty value.
func parseFilter(key string, values []string) ([]Condition, *filterError) {
	field, op, raws := key, OpEq, values

	switch {
	case strings.HasSuffix(key, "!"):
		field, op = strings.TrimSuffix(key, "!"), OpNe
	case strings.HasSuffix(key, ">"):
		field, op = strings.TrimSuffix(key, ">"), OpGte
	case strings.HasSuffix(key, "<"):
		field, op = strings.TrimSuffix(key, "<"), OpLte
	default:
		if i := strings.IndexAny(key, "<>"); i > 0 && allEmpty(values) {
			field, raws = key[:i], []string{key[i+1:]}
			op = OpGt
			if key[i] == '<' {
				op = OpLt
			}
		}
	}

	kind, ok := domain.ProductFields[field]
	if !ok {
		return nil, &filterError{field: field, msg: "unknown filter field"}
	}

	if op == OpEq || op == OpNe {
		var parts []string
		for _, raw := range raws {
			parts = append(parts, strings.Split(raw, ",")...)
		}
		vals, ferr := typedValues(field, kind, parts)
		if ferr != nil {
			return nil, ferr
		}
		if len(vals) > 1 {
			op = map[Op]Op{OpEq: OpIn, OpNe: OpNin}[op]
		}
		return []Condition{{Field: field, Kind: kind, Op: op, Values: vals}}, nil
	}

	conds := make([]Condition, 0, len(raws))
	for _, raw := range raws {
		vals, ferr := typedValues(field, kind, []string{raw})
		if ferr != nil {
			return nil, ferr
		}
		conds = append(conds, Condition{Field: field, Kind: kind, Op: op, Values: vals})
	}
	return conds, nil
}

func allEmpty(values []string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}

func typedValues(field string, kind domain.FieldKind, raws []string) ([]any, *filterError) {
	out := make([]any, 0, len(raws))
	for _, raw := range raws {
		switch kind {
		case domain.KindNumber:
			f, err := parseNumber(strings.TrimSpace(raw))
			if err != nil {
				return nil, &filterError{field: field, msg: "must be a number"}
			}
			out = append(out, f)
		case domain.KindTime:
			ts, err := parseTime(strings.TrimSpace(raw))
			if err != nil {
				return nil, &filterError{field: field, msg: "must be an RFC 3339 timestamp or a YYYY-MM-DD date"}
			}
			out = append(out, ts)
		default:
			out = append(out, raw)
		}
	}
	return out, nil
}

func parseTime(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	return time.Parse(dateLayout, raw)
}
