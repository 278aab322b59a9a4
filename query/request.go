package query

import (
	"errors"
	"fmt"
	"io"

	"github.com/vegasq/ncfstore/internal/rowjson"
)

// Request is the JSON form of a query:
//
//	{
//	  "where":     [{"field": "age", "operator": "gt", "value": 21}],
//	  "select":    ["userId", "age"],
//	  "orderBy":   [{"field": "age", "order": "DESC"}],
//	  "limit":     10,
//	  "offset":    0,
//	  "aggregate": [{"field": "price", "type": "SUM", "alias": "total"}]
//	}
//
// Every member is optional.
type Request struct {
	Where     []ConditionSpec   `json:"where,omitempty"`
	Select    []string          `json:"select,omitempty"`
	OrderBy   []SortSpec        `json:"orderBy,omitempty"`
	Limit     *int              `json:"limit,omitempty"`
	Offset    *int              `json:"offset,omitempty"`
	Aggregate []AggregationSpec `json:"aggregate,omitempty"`
}

type ConditionSpec struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value,omitempty"`
}

type SortSpec struct {
	Field string `json:"field"`
	Order string `json:"order,omitempty"`
}

type AggregationSpec struct {
	Field string `json:"field"`
	Type  string `json:"type"`
	Alias string `json:"alias,omitempty"`
}

// DecodeRequest reads one JSON request from r. An empty body decodes to an
// empty request, which selects everything.
func DecodeRequest(r io.Reader) (*Request, error) {
	var req Request
	if err := rowjson.DecodeInto(r, &req); err != nil {
		if errors.Is(err, io.EOF) {
			return &req, nil
		}
		return nil, fmt.Errorf("invalid query request: %w", err)
	}
	for i := range req.Where {
		req.Where[i].Value = rowjson.Normalize(req.Where[i].Value)
	}
	return &req, nil
}

// Build validates the request and converts it to a Query.
func (r *Request) Build() (*Query, error) {
	q := New()

	for i, spec := range r.Where {
		if spec.Field == "" {
			return nil, fmt.Errorf("where[%d]: field is required", i)
		}
		op, err := ParseOperator(spec.Operator)
		if err != nil {
			return nil, fmt.Errorf("where[%d]: %w", i, err)
		}
		if (op == OpIn || op == OpNotIn) && spec.Value != nil {
			if _, ok := toSlice(spec.Value); !ok {
				return nil, fmt.Errorf("where[%d]: %s needs a list value", i, op)
			}
		}
		q.Where(Condition{Field: spec.Field, Operator: op, Value: spec.Value})
	}

	q.Select(r.Select...)

	for i, spec := range r.OrderBy {
		if spec.Field == "" {
			return nil, fmt.Errorf("orderBy[%d]: field is required", i)
		}
		order, err := ParseSortOrder(spec.Order)
		if err != nil {
			return nil, fmt.Errorf("orderBy[%d]: %w", i, err)
		}
		q.OrderBy(spec.Field, order)
	}

	if r.Limit != nil {
		if *r.Limit < 0 {
			return nil, fmt.Errorf("limit must not be negative, got %d", *r.Limit)
		}
		q.Limit(*r.Limit)
	}
	if r.Offset != nil {
		if *r.Offset < 0 {
			return nil, fmt.Errorf("offset must not be negative, got %d", *r.Offset)
		}
		q.Offset(*r.Offset)
	}

	for i, spec := range r.Aggregate {
		typ, err := ParseAggregationType(spec.Type)
		if err != nil {
			return nil, fmt.Errorf("aggregate[%d]: %w", i, err)
		}
		if spec.Field == "" && typ != AggCount {
			return nil, fmt.Errorf("aggregate[%d]: %s needs a field", i, typ)
		}
		q.Aggregate(spec.Field, typ, spec.Alias)
	}

	return q, nil
}
