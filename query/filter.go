package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Condition is a single predicate on one row field. A Query keeps rows for
// which every condition matches.
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
}

func Eq(field string, value interface{}) Condition  { return Condition{field, OpEquals, value} }
func Ne(field string, value interface{}) Condition  { return Condition{field, OpNotEquals, value} }
func Gt(field string, value interface{}) Condition  { return Condition{field, OpGreaterThan, value} }
func Gte(field string, value interface{}) Condition { return Condition{field, OpGreaterThanOrEquals, value} }
func Lt(field string, value interface{}) Condition  { return Condition{field, OpLessThan, value} }
func Lte(field string, value interface{}) Condition { return Condition{field, OpLessThanOrEquals, value} }

func Contains(field string, value interface{}) Condition {
	return Condition{field, OpContains, value}
}

func StartsWith(field, prefix string) Condition {
	return Condition{field, OpStartsWith, prefix}
}

func EndsWith(field, suffix string) Condition {
	return Condition{field, OpEndsWith, suffix}
}

func In(field string, values ...interface{}) Condition {
	return Condition{field, OpIn, values}
}

func NotIn(field string, values ...interface{}) Condition {
	return Condition{field, OpNotIn, values}
}

func Exists(field string) Condition    { return Condition{Field: field, Operator: OpExists} }
func NotExists(field string) Condition { return Condition{Field: field, Operator: OpNotExists} }

func (c Condition) String() string {
	switch c.Operator {
	case OpExists, OpNotExists:
		return fmt.Sprintf("%s %s", c.Field, c.Operator)
	}
	return fmt.Sprintf("%s %s %v", c.Field, c.Operator, c.Value)
}

// Matches reports whether row satisfies the condition. It never fails:
// values that cannot be compared simply do not match.
//
// A field counts as existing when its key is present, even with a nil
// value. For a nil field value only EQUALS (against nil) and its negation
// NOT_EQUALS can match.
func (c Condition) Matches(row map[string]interface{}) bool {
	v, exists := row[c.Field]
	if !exists {
		return c.Operator == OpNotExists
	}

	switch c.Operator {
	case OpExists:
		return true
	case OpNotExists:
		return false
	}

	if v == nil {
		switch c.Operator {
		case OpEquals:
			return c.Value == nil
		case OpNotEquals:
			return c.Value != nil
		default:
			return false
		}
	}

	switch c.Operator {
	case OpEquals:
		return valuesEqual(v, c.Value)
	case OpNotEquals:
		return !valuesEqual(v, c.Value)
	case OpGreaterThan:
		cmp, ok := compareOrdered(v, c.Value)
		return ok && cmp > 0
	case OpGreaterThanOrEquals:
		cmp, ok := compareOrdered(v, c.Value)
		return ok && cmp >= 0
	case OpLessThan:
		cmp, ok := compareOrdered(v, c.Value)
		return ok && cmp < 0
	case OpLessThanOrEquals:
		cmp, ok := compareOrdered(v, c.Value)
		return ok && cmp <= 0
	case OpContains:
		if s, ok := v.(string); ok {
			sub, ok := c.Value.(string)
			return ok && strings.Contains(s, sub)
		}
		items, ok := toSlice(v)
		return ok && containsValue(items, c.Value)
	case OpStartsWith:
		s, ok1 := v.(string)
		prefix, ok2 := c.Value.(string)
		return ok1 && ok2 && strings.HasPrefix(s, prefix)
	case OpEndsWith:
		s, ok1 := v.(string)
		suffix, ok2 := c.Value.(string)
		return ok1 && ok2 && strings.HasSuffix(s, suffix)
	case OpIn:
		items, ok := toSlice(c.Value)
		return ok && containsValue(items, v)
	case OpNotIn:
		items, ok := toSlice(c.Value)
		return ok && !containsValue(items, v)
	default:
		return false
	}
}

// ApplyFilter returns the rows matching every condition, in input order.
func ApplyFilter(rows []map[string]interface{}, conditions []Condition) []map[string]interface{} {
	if len(conditions) == 0 {
		return rows
	}

	filtered := make([]map[string]interface{}, 0)
	for _, row := range rows {
		if matchesAll(row, conditions) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func matchesAll(row map[string]interface{}, conditions []Condition) bool {
	for _, c := range conditions {
		if !c.Matches(row) {
			return false
		}
	}
	return true
}

// valuesEqual compares numbers by value regardless of their Go type, times
// by instant, and everything else structurally.
func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if ai, ok := toInt64(a); ok {
		if bi, ok := toInt64(b); ok {
			return ai == bi
		}
	}
	if af, ok := toFloat64(a); ok {
		if bf, ok := toFloat64(b); ok {
			return af == bf
		}
		return false
	}

	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}

	return reflect.DeepEqual(a, b)
}

// compareOrdered compares two numbers or two strings. Timestamps count as
// numbers of unix milliseconds. Any other pairing is not comparable.
func compareOrdered(a, b interface{}) (int, bool) {
	if an, ok := toOrderedNumber(a); ok {
		if bn, ok := toOrderedNumber(b); ok {
			return compareFloats(an, bn), true
		}
		return 0, false
	}

	as, ok1 := a.(string)
	bs, ok2 := b.(string)
	if ok1 && ok2 {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func containsValue(items []interface{}, target interface{}) bool {
	for _, item := range items {
		if valuesEqual(item, target) {
			return true
		}
	}
	return false
}

// toSlice converts any slice or array value into []interface{}.
func toSlice(v interface{}) ([]interface{}, bool) {
	if items, ok := v.([]interface{}); ok {
		return items, true
	}
	if v == nil {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]interface{}, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// toFloat64 converts a value to float64 if possible
func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	default:
		return 0, false
	}
}

func toOrderedNumber(v interface{}) (float64, bool) {
	if t, ok := v.(time.Time); ok {
		return float64(t.UnixMilli()), true
	}
	return toFloat64(v)
}

// distinctKey identifies a value for COUNT_DISTINCT. Numbers of different
// Go types with the same value share a key.
func distinctKey(v interface{}) string {
	if f, ok := toFloat64(v); ok {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	if t, ok := v.(time.Time); ok {
		return "t:" + strconv.FormatInt(t.UnixMilli(), 10)
	}
	return fmt.Sprintf("%T:%v", v, v)
}
