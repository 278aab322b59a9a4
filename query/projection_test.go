package query

import (
	"reflect"
	"testing"
)

func TestApplyProjection(t *testing.T) {
	tests := []struct {
		name   string
		rows   []map[string]interface{}
		fields []string
		want   []map[string]interface{}
	}{
		{
			name:   "empty rows",
			rows:   []map[string]interface{}{},
			fields: []string{"name"},
			want:   []map[string]interface{}{},
		},
		{
			name: "no fields keeps rows",
			rows: []map[string]interface{}{
				{"name": "alice", "age": 30},
			},
			fields: nil,
			want: []map[string]interface{}{
				{"name": "alice", "age": 30},
			},
		},
		{
			name: "select single column",
			rows: []map[string]interface{}{
				{"name": "alice", "age": 30},
				{"name": "bob", "age": 25},
			},
			fields: []string{"name"},
			want: []map[string]interface{}{
				{"name": "alice"},
				{"name": "bob"},
			},
		},
		{
			name: "absent fields are omitted",
			rows: []map[string]interface{}{
				{"name": "alice", "age": 30},
				{"age": 25},
			},
			fields: []string{"userId", "age"},
			want: []map[string]interface{}{
				{"age": 30},
				{"age": 25},
			},
		},
		{
			name: "nil values are kept",
			rows: []map[string]interface{}{
				{"name": nil},
			},
			fields: []string{"name"},
			want: []map[string]interface{}{
				{"name": nil},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyProjection(tt.rows, tt.fields)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ApplyProjection() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyProjectionCopiesRows(t *testing.T) {
	rows := []map[string]interface{}{{"name": "alice", "age": 30}}
	got := ApplyProjection(rows, []string{"name"})
	got[0]["name"] = "changed"

	if rows[0]["name"] != "alice" {
		t.Errorf("projection shares maps with input")
	}
}
