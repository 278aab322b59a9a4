package query

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Query is a filter/sort/paginate/project pipeline over row maps, with
// optional aggregations. Build it with New and the chaining methods, then
// run it with Execute. A Query must not be modified while it executes.
type Query struct {
	Conditions   []Condition
	Fields       []string
	Sort         []SortKey
	RowLimit     *int
	RowOffset    int
	Aggregations []Aggregation
}

// New returns an empty query that selects every row and field.
func New() *Query {
	return &Query{}
}

// Where adds conditions; all of them must match.
func (q *Query) Where(conditions ...Condition) *Query {
	q.Conditions = append(q.Conditions, conditions...)
	return q
}

// Select restricts the output rows to the given fields.
func (q *Query) Select(fields ...string) *Query {
	q.Fields = append(q.Fields, fields...)
	return q
}

// OrderBy appends a sort key. Ordering the same field twice updates its
// direction but keeps its original priority.
func (q *Query) OrderBy(field string, order SortOrder) *Query {
	for i := range q.Sort {
		if q.Sort[i].Field == field {
			q.Sort[i].Order = order
			return q
		}
	}
	q.Sort = append(q.Sort, SortKey{Field: field, Order: order})
	return q
}

// Limit caps the number of rows returned. Negative values remove the cap.
func (q *Query) Limit(n int) *Query {
	if n < 0 {
		q.RowLimit = nil
		return q
	}
	q.RowLimit = &n
	return q
}

// Offset skips the first n rows after sorting.
func (q *Query) Offset(n int) *Query {
	if n < 0 {
		n = 0
	}
	q.RowOffset = n
	return q
}

// Aggregate adds an aggregation. An empty alias defaults to the lower-case
// type name joined with the field, e.g. "sum_price".
func (q *Query) Aggregate(field string, typ AggregationType, alias string) *Query {
	if alias == "" {
		alias = defaultAlias(field, typ)
	}
	q.Aggregations = append(q.Aggregations, Aggregation{Field: field, Type: typ, Alias: alias})
	return q
}

func (q *Query) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(q.Fields) == 0 && len(q.Aggregations) == 0 {
		b.WriteString("*")
	}
	parts := make([]string, 0, len(q.Fields)+len(q.Aggregations))
	parts = append(parts, q.Fields...)
	for _, agg := range q.Aggregations {
		field := agg.Field
		if field == "" {
			field = "*"
		}
		parts = append(parts, fmt.Sprintf("%s(%s) AS %s", agg.Type, field, agg.Alias))
	}
	b.WriteString(strings.Join(parts, ", "))
	for i, c := range q.Conditions {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(c.String())
	}
	for i, key := range q.Sort {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", key.Field, key.Order)
	}
	if q.RowLimit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *q.RowLimit)
	}
	if q.RowOffset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.RowOffset)
	}
	return b.String()
}

// Execute runs the query over rows. The steps always happen in the same
// order: filter, sort, offset and limit, then projection. Aggregations see
// the whole filtered set, not just the returned page.
//
// Input rows are never modified; projected rows are new maps.
func (q *Query) Execute(rows []map[string]interface{}) *Result {
	filtered := ApplyFilter(rows, q.Conditions)
	sorted := ApplyOrderBy(filtered, q.Sort)
	page := ApplyLimitOffset(sorted, q.RowLimit, q.RowOffset)
	projected := ApplyProjection(page, q.Fields)

	return &Result{
		rows:         projected,
		aggregations: computeAggregations(filtered, q.Aggregations),
	}
}

// ApplyOrderBy returns a stably sorted copy of rows. Missing and nil values
// sort first in ascending order and last in descending order.
func ApplyOrderBy(rows []map[string]interface{}, keys []SortKey) []map[string]interface{} {
	if len(rows) == 0 || len(keys) == 0 {
		return rows
	}

	sorted := make([]map[string]interface{}, len(rows))
	copy(sorted, rows)

	sort.SliceStable(sorted, func(i, j int) bool {
		for _, key := range keys {
			cmp := compareValues(sorted[i][key.Field], sorted[j][key.Field])
			if cmp == 0 {
				continue
			}
			if key.Order == Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return sorted
}

// compareValues orders two row values for sorting and returns -1, 0 or +1.
// Numbers compare numerically across Go types; strings, booleans and times
// compare naturally; any other pairing falls back to their text form.
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	if ai, ok := toInt64(a); ok {
		if bi, ok := toInt64(b); ok {
			switch {
			case ai < bi:
				return -1
			case ai > bi:
				return 1
			default:
				return 0
			}
		}
	}
	if af, ok := toFloat64(a); ok {
		if bf, ok := toFloat64(b); ok {
			return compareFloats(af, bf)
		}
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// ApplyLimitOffset returns a copy of the page of rows starting at offset. A
// nil limit returns everything after offset; an offset past the end returns
// no rows.
func ApplyLimitOffset(rows []map[string]interface{}, limit *int, offset int) []map[string]interface{} {
	start := offset
	if start < 0 {
		start = 0
	}
	if start >= len(rows) {
		return []map[string]interface{}{}
	}

	end := len(rows)
	if limit != nil && *limit >= 0 && start+*limit < end {
		end = start + *limit
	}
	page := make([]map[string]interface{}, end-start)
	copy(page, rows[start:end])
	return page
}

// ApplyProjection keeps only fields in each row. Fields a row lacks are
// omitted rather than set to nil. No fields means no projection.
func ApplyProjection(rows []map[string]interface{}, fields []string) []map[string]interface{} {
	if len(fields) == 0 {
		return rows
	}

	projected := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		out := make(map[string]interface{}, len(fields))
		for _, field := range fields {
			if v, ok := row[field]; ok {
				out[field] = v
			}
		}
		projected[i] = out
	}
	return projected
}
