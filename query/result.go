package query

import (
	"github.com/goccy/go-json"
)

// Result holds the rows and aggregation values produced by Execute.
type Result struct {
	rows         []map[string]interface{}
	aggregations map[string]interface{}
}

// NewResult wraps precomputed rows and aggregations.
func NewResult(rows []map[string]interface{}, aggregations map[string]interface{}) *Result {
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	if aggregations == nil {
		aggregations = map[string]interface{}{}
	}
	return &Result{rows: rows, aggregations: aggregations}
}

func (r *Result) Rows() []map[string]interface{} {
	return r.rows
}

func (r *Result) Aggregations() map[string]interface{} {
	return r.aggregations
}

func (r *Result) RowCount() int {
	return len(r.rows)
}

// IsEmpty reports whether no rows were returned. Aggregations are not
// considered.
func (r *Result) IsEmpty() bool {
	return len(r.rows) == 0
}

type resultJSON struct {
	Rows         []map[string]interface{} `json:"rows"`
	Aggregations map[string]interface{}   `json:"aggregations"`
}

// MarshalJSON renders {"rows": [...], "aggregations": {...}}.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{Rows: r.rows, Aggregations: r.aggregations}
	if out.Rows == nil {
		out.Rows = []map[string]interface{}{}
	}
	if out.Aggregations == nil {
		out.Aggregations = map[string]interface{}{}
	}
	return json.Marshal(out)
}
