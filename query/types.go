package query

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownOperator is returned when an operator name cannot be parsed.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrUnknownAggregation is returned when an aggregation name cannot be parsed.
	ErrUnknownAggregation = errors.New("unknown aggregation type")

	// ErrUnknownSortOrder is returned when a sort order name cannot be parsed.
	ErrUnknownSortOrder = errors.New("unknown sort order")
)

// Operator is the comparison a Condition applies to a row field.
type Operator int

const (
	OpEquals Operator = iota
	OpNotEquals
	OpGreaterThan
	OpGreaterThanOrEquals
	OpLessThan
	OpLessThanOrEquals
	OpContains
	OpStartsWith
	OpEndsWith
	OpIn
	OpNotIn
	OpExists
	OpNotExists
)

var operatorNames = map[Operator]string{
	OpEquals:              "EQUALS",
	OpNotEquals:           "NOT_EQUALS",
	OpGreaterThan:         "GREATER_THAN",
	OpGreaterThanOrEquals: "GREATER_THAN_OR_EQUALS",
	OpLessThan:            "LESS_THAN",
	OpLessThanOrEquals:    "LESS_THAN_OR_EQUALS",
	OpContains:            "CONTAINS",
	OpStartsWith:          "STARTS_WITH",
	OpEndsWith:            "ENDS_WITH",
	OpIn:                  "IN",
	OpNotIn:               "NOT_IN",
	OpExists:              "EXISTS",
	OpNotExists:           "NOT_EXISTS",
}

// operatorAliases maps every accepted spelling (upper-cased) to an Operator.
var operatorAliases = map[string]Operator{
	"EQ": OpEquals, "=": OpEquals, "==": OpEquals,
	"NE": OpNotEquals, "NEQ": OpNotEquals, "!=": OpNotEquals, "<>": OpNotEquals,
	"GT": OpGreaterThan, ">": OpGreaterThan,
	"GTE": OpGreaterThanOrEquals, "GE": OpGreaterThanOrEquals, ">=": OpGreaterThanOrEquals,
	"LT": OpLessThan, "<": OpLessThan,
	"LTE": OpLessThanOrEquals, "LE": OpLessThanOrEquals, "<=": OpLessThanOrEquals,
	"STARTSWITH": OpStartsWith,
	"ENDSWITH":   OpEndsWith,
	"NOTIN":      OpNotIn,
	"NOTEXISTS":  OpNotExists,
}

func init() {
	for op, name := range operatorNames {
		operatorAliases[name] = op
	}
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// ParseOperator accepts long names (GREATER_THAN), short names (gt) and
// symbols (>), case-insensitively.
func ParseOperator(s string) (Operator, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if op, ok := operatorAliases[key]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOperator, s)
}

// SortOrder is the direction of one sort key.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

func (o SortOrder) String() string {
	if o == Descending {
		return "DESC"
	}
	return "ASC"
}

// ParseSortOrder accepts ASC/ASCENDING and DESC/DESCENDING. An empty string
// is ascending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC", "ASCENDING":
		return Ascending, nil
	case "DESC", "DESCENDING":
		return Descending, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSortOrder, s)
	}
}

// SortKey is one field of a multi-key sort.
type SortKey struct {
	Field string
	Order SortOrder
}

// AggregationType selects the function an Aggregation computes.
type AggregationType int

const (
	AggCount AggregationType = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggCountDistinct
)

var aggregationNames = map[AggregationType]string{
	AggCount:         "COUNT",
	AggSum:           "SUM",
	AggAvg:           "AVG",
	AggMin:           "MIN",
	AggMax:           "MAX",
	AggCountDistinct: "COUNT_DISTINCT",
}

func (a AggregationType) String() string {
	if name, ok := aggregationNames[a]; ok {
		return name
	}
	return fmt.Sprintf("AggregationType(%d)", int(a))
}

// ParseAggregationType parses an aggregation name case-insensitively.
func ParseAggregationType(s string) (AggregationType, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	for typ, name := range aggregationNames {
		if name == key {
			return typ, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAggregation, s)
}

// Aggregation computes one summary value over the filtered rows and stores
// it under Alias.
type Aggregation struct {
	Field string
	Type  AggregationType
	Alias string
}

// defaultAlias names an aggregation that was given no alias, e.g. "sum_price"
// or "count" for COUNT(*).
func defaultAlias(field string, typ AggregationType) string {
	name := strings.ToLower(typ.String())
	if field == "" || field == "*" {
		return name
	}
	return name + "_" + field
}
