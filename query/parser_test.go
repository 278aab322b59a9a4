package query

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		table string
		check func(t *testing.T, q *Query)
	}{
		{
			name:  "select star",
			sql:   "SELECT * FROM events.ncf",
			table: "events.ncf",
			check: func(t *testing.T, q *Query) {
				if len(q.Fields) != 0 || len(q.Conditions) != 0 || len(q.Aggregations) != 0 {
					t.Errorf("unexpected clauses: %+v", q)
				}
			},
		},
		{
			name:  "fields where order limit offset",
			sql:   "select userId, age from 'data/users.ncf' where age > 21 and name != 'bob' order by age desc, userId limit 10 offset 5",
			table: "data/users.ncf",
			check: func(t *testing.T, q *Query) {
				if !reflect.DeepEqual(q.Fields, []string{"userId", "age"}) {
					t.Errorf("Fields = %v", q.Fields)
				}
				wantConds := []Condition{Gt("age", int64(21)), Ne("name", "bob")}
				if !reflect.DeepEqual(q.Conditions, wantConds) {
					t.Errorf("Conditions = %v, want %v", q.Conditions, wantConds)
				}
				wantSort := []SortKey{{"age", Descending}, {"userId", Ascending}}
				if !reflect.DeepEqual(q.Sort, wantSort) {
					t.Errorf("Sort = %v, want %v", q.Sort, wantSort)
				}
				if q.RowLimit == nil || *q.RowLimit != 10 {
					t.Errorf("RowLimit = %v, want 10", q.RowLimit)
				}
				if q.RowOffset != 5 {
					t.Errorf("RowOffset = %d, want 5", q.RowOffset)
				}
			},
		},
		{
			name:  "aggregates",
			sql:   "SELECT SUM(price) AS total, COUNT(*) AS cnt, count_distinct(userId), AVG(price) FROM e",
			table: "e",
			check: func(t *testing.T, q *Query) {
				want := []Aggregation{
					{"price", AggSum, "total"},
					{"", AggCount, "cnt"},
					{"userId", AggCountDistinct, "count_distinct_userId"},
					{"price", AggAvg, "avg_price"},
				}
				if !reflect.DeepEqual(q.Aggregations, want) {
					t.Errorf("Aggregations = %v, want %v", q.Aggregations, want)
				}
			},
		},
		{
			name:  "special conditions",
			sql:   "SELECT * FROM t WHERE a IN (1, 2.5, 'x') AND b NOT IN ('y') AND c CONTAINS 'z' AND d STARTS WITH 'pre' AND e ENDS WITH 'suf' AND f EXISTS AND g NOT EXISTS AND h IS NULL AND i IS NOT NULL AND j = true",
			table: "t",
			check: func(t *testing.T, q *Query) {
				want := []Condition{
					{"a", OpIn, []interface{}{int64(1), 2.5, "x"}},
					{"b", OpNotIn, []interface{}{"y"}},
					Contains("c", "z"),
					StartsWith("d", "pre"),
					EndsWith("e", "suf"),
					Exists("f"),
					NotExists("g"),
					Eq("h", nil),
					Ne("i", nil),
					Eq("j", true),
				}
				if !reflect.DeepEqual(q.Conditions, want) {
					t.Errorf("Conditions =\n%v\nwant\n%v", q.Conditions, want)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.sql)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if stmt.Table != tt.table {
				t.Errorf("Table = %q, want %q", stmt.Table, tt.table)
			}
			tt.check(t, stmt.Query)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantMsg string
	}{
		{"missing select", "FROM t", "must start with SELECT"},
		{"missing from", "SELECT *", "expected FROM"},
		{"missing table", "SELECT * FROM", "expected table name"},
		{"or unsupported", "SELECT * FROM t WHERE a = 1 OR b = 2", "OR is not supported"},
		{"missing value", "SELECT * FROM t WHERE a =", "expected value"},
		{"unknown aggregate", "SELECT MEDIAN(x) FROM t", "unknown aggregation"},
		{"sum star", "SELECT SUM(*) FROM t", "SUM(*)"},
		{"bad limit", "SELECT * FROM t LIMIT -1", "non-negative"},
		{"trailing tokens", "SELECT * FROM t extra", "unexpected"},
		{"invalid char", "SELECT * FROM t WHERE a = 1;", "syntax error"},
		{"starts without with", "SELECT * FROM t WHERE a STARTS 'x'", "expected WITH"},
		{"not without in", "SELECT * FROM t WHERE a NOT 'x'", "expected IN or EXISTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.sql)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", tt.sql)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Parse(%q) error = %v, want containing %q", tt.sql, err, tt.wantMsg)
			}
		})
	}
}

func TestParseLimits(t *testing.T) {
	_, err := Parse("SELECT * FROM t WHERE a = '" + strings.Repeat("x", MaxQueryLength) + "'")
	if !errors.Is(err, ErrQueryTooLong) {
		t.Errorf("long query error = %v, want ErrQueryTooLong", err)
	}

	_, err = Parse("SELECT " + strings.Repeat("a, ", MaxTokens) + "a FROM t")
	if !errors.Is(err, ErrTooManyTokens) {
		t.Errorf("many tokens error = %v, want ErrTooManyTokens", err)
	}

	_, err = Parse("SELECT " + strings.Repeat("c", MaxColumnNameLength+1) + " FROM t")
	if !errors.Is(err, ErrColumnNameTooLong) {
		t.Errorf("long column error = %v, want ErrColumnNameTooLong", err)
	}

	conds := make([]string, MaxConditions+1)
	for i := range conds {
		conds[i] = "a = 1"
	}
	_, err = Parse("SELECT * FROM t WHERE " + strings.Join(conds, " AND "))
	if !errors.Is(err, ErrTooManyConditions) {
		t.Errorf("many conditions error = %v, want ErrTooManyConditions", err)
	}
}

func TestParseAndExecute(t *testing.T) {
	stmt, err := Parse("SELECT name FROM users WHERE age >= 30 AND tags CONTAINS 'admin' ORDER BY name")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	rows := []map[string]interface{}{
		{"name": "zoe", "age": int64(40), "tags": []interface{}{"admin"}},
		{"name": "amy", "age": int64(31), "tags": []interface{}{"admin", "ops"}},
		{"name": "bob", "age": int64(50), "tags": []interface{}{"ops"}},
		{"name": "cy", "age": int64(20), "tags": []interface{}{"admin"}},
	}

	got := stmt.Query.Execute(rows).Rows()
	want := []map[string]interface{}{{"name": "amy"}, {"name": "zoe"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Execute() = %v, want %v", got, want)
	}
}
