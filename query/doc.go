// Package query filters, sorts, pages, projects and aggregates rows held as
// map[string]interface{}.
//
// A Query is built in code:
//
//	q := query.New().
//	    Where(query.Gt("age", 21)).
//	    Select("userId", "age").
//	    OrderBy("age", query.Descending).
//	    Limit(10)
//	result := q.Execute(rows)
//
// from JSON with DecodeRequest and Request.Build, or from SQL with Parse:
//
//	stmt, err := query.Parse("SELECT userId, age FROM users.ncf WHERE age > 21 ORDER BY age DESC")
//
// Execution never fails. Missing fields and values that cannot be compared
// make a condition false; aggregations skip values they cannot use.
//
// # Supported Operators
//
//   - Comparison: =, !=, <>, <, >, <=, >= (numbers and strings; timestamps
//     compare as unix milliseconds)
//   - Membership: IN, NOT IN
//   - Text: CONTAINS, STARTS WITH, ENDS WITH (CONTAINS also tests list fields)
//   - Presence: EXISTS, NOT EXISTS, IS NULL, IS NOT NULL
//
// # Aggregations
//
// COUNT, COUNT_DISTINCT, SUM, AVG, MIN and MAX are computed over every row
// that passed the filter, before LIMIT and OFFSET apply.
package query
