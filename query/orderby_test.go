package query

import (
	"testing"
	"time"
)

func names(rows []map[string]interface{}) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i], _ = row["name"].(string)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApplyOrderBy_SingleColumn(t *testing.T) {
	rows := []map[string]interface{}{
		{"name": "charlie", "age": int64(25)},
		{"name": "alice", "age": int64(30)},
		{"name": "bob", "age": int64(20)},
	}

	tests := []struct {
		name string
		keys []SortKey
		want []string
	}{
		{"age ascending", []SortKey{{Field: "age", Order: Ascending}}, []string{"bob", "charlie", "alice"}},
		{"age descending", []SortKey{{Field: "age", Order: Descending}}, []string{"alice", "charlie", "bob"}},
		{"name ascending", []SortKey{{Field: "name", Order: Ascending}}, []string{"alice", "bob", "charlie"}},
		{"name descending", []SortKey{{Field: "name", Order: Descending}}, []string{"charlie", "bob", "alice"}},
		{"no keys keeps order", nil, []string{"charlie", "alice", "bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(ApplyOrderBy(rows, tt.keys))
			if !equalStrings(got, tt.want) {
				t.Errorf("ApplyOrderBy() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := names(rows); !equalStrings(got, []string{"charlie", "alice", "bob"}) {
		t.Errorf("ApplyOrderBy() modified its input: %v", got)
	}
}

func TestApplyOrderBy_MultipleColumns(t *testing.T) {
	rows := []map[string]interface{}{
		{"department": "sales", "name": "charlie", "age": int64(25)},
		{"department": "sales", "name": "alice", "age": int64(30)},
		{"department": "engineering", "name": "bob", "age": int64(20)},
		{"department": "engineering", "name": "david", "age": int64(35)},
	}

	keys := []SortKey{
		{Field: "department", Order: Ascending},
		{Field: "age", Order: Descending},
	}

	got := names(ApplyOrderBy(rows, keys))
	want := []string{"david", "bob", "alice", "charlie"}
	if !equalStrings(got, want) {
		t.Errorf("ApplyOrderBy() = %v, want %v", got, want)
	}
}

func TestApplyOrderBy_StableTies(t *testing.T) {
	rows := []map[string]interface{}{
		{"name": "a", "group": int64(2)},
		{"name": "b", "group": int64(1)},
		{"name": "c", "group": int64(2)},
		{"name": "d", "group": int64(1)},
		{"name": "e", "group": int64(2)},
	}

	got := names(ApplyOrderBy(rows, []SortKey{{Field: "group", Order: Ascending}}))
	want := []string{"b", "d", "a", "c", "e"}
	if !equalStrings(got, want) {
		t.Errorf("ascending = %v, want %v", got, want)
	}

	got = names(ApplyOrderBy(rows, []SortKey{{Field: "group", Order: Descending}}))
	want = []string{"a", "c", "e", "b", "d"}
	if !equalStrings(got, want) {
		t.Errorf("descending = %v, want %v", got, want)
	}
}

func TestApplyOrderBy_NullValues(t *testing.T) {
	rows := []map[string]interface{}{
		{"name": "alice", "age": int64(30)},
		{"name": "bob", "age": nil},
		{"name": "charlie", "age": int64(25)},
		{"name": "dave"},
	}

	got := names(ApplyOrderBy(rows, []SortKey{{Field: "age", Order: Ascending}}))
	want := []string{"bob", "dave", "charlie", "alice"}
	if !equalStrings(got, want) {
		t.Errorf("ascending = %v, want %v", got, want)
	}

	got = names(ApplyOrderBy(rows, []SortKey{{Field: "age", Order: Descending}}))
	want = []string{"alice", "charlie", "bob", "dave"}
	if !equalStrings(got, want) {
		t.Errorf("descending = %v, want %v", got, want)
	}
}

func TestCompareValues(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b interface{}
		want int
	}{
		{"ints", int64(1), int64(2), -1},
		{"int and float", int64(2), 1.5, 1},
		{"equal across types", 3, 3.0, 0},
		{"large ints stay exact", int64(1<<62 + 1), int64(1 << 62), 1},
		{"strings", "b", "a", 1},
		{"bools", false, true, -1},
		{"times", t0, t0.Add(time.Second), -1},
		{"nil first", nil, int64(0), -1},
		{"mixed kinds use text", "10", int64(9), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compareValues(tt.a, tt.b); got != tt.want {
				t.Errorf("compareValues(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestApplyLimitOffset(t *testing.T) {
	rows := []map[string]interface{}{
		{"name": "a"}, {"name": "b"}, {"name": "c"}, {"name": "d"}, {"name": "e"},
	}
	intPtr := func(n int) *int { return &n }

	tests := []struct {
		name   string
		limit  *int
		offset int
		want   []string
	}{
		{"no limit", nil, 0, []string{"a", "b", "c", "d", "e"}},
		{"limit", intPtr(2), 0, []string{"a", "b"}},
		{"offset", nil, 3, []string{"d", "e"}},
		{"limit and offset", intPtr(2), 1, []string{"b", "c"}},
		{"limit past end", intPtr(10), 3, []string{"d", "e"}},
		{"offset at end", nil, 5, []string{}},
		{"offset past end", intPtr(1), 9, []string{}},
		{"limit zero", intPtr(0), 0, []string{}},
		{"negative offset", nil, -2, []string{"a", "b", "c", "d", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyLimitOffset(rows, tt.limit, tt.offset)
			if got == nil {
				t.Fatal("ApplyLimitOffset() returned nil")
			}
			if !equalStrings(names(got), tt.want) {
				t.Errorf("ApplyLimitOffset() = %v, want %v", names(got), tt.want)
			}
		})
	}
}
