package reader

import (
	"testing"
)

func TestExtractSchemaInfo_Parquet(t *testing.T) {
	note := "x"
	path := writeParquet(t, t.TempDir(), "users.parquet", []userRow{
		{ID: 1, Name: "Alice", Age: 30, Score: 95.5, Active: true, Note: &note},
	})

	infos, err := ExtractSchemaInfo(path)
	if err != nil {
		t.Fatalf("ExtractSchemaInfo() error = %v", err)
	}
	if len(infos) != 6 {
		t.Fatalf("ExtractSchemaInfo() returned %d fields, want 6", len(infos))
	}

	byName := make(map[string]SchemaInfo)
	for _, info := range infos {
		byName[info.Name] = info
	}

	wantTypes := map[string]string{
		"id":     "INT64",
		"name":   "STRING",
		"age":    "INT32",
		"score":  "FLOAT64",
		"active": "BOOLEAN",
		"note":   "STRING",
	}
	for name, want := range wantTypes {
		info, ok := byName[name]
		if !ok {
			t.Errorf("field %s missing", name)
			continue
		}
		if info.Type != want {
			t.Errorf("field %s: type = %s, want %s", name, info.Type, want)
		}
	}

	if !byName["id"].Required || byName["id"].Optional {
		t.Errorf("id should be required: %+v", byName["id"])
	}
	if !byName["note"].Optional {
		t.Errorf("note should be optional: %+v", byName["note"])
	}
	if byName["score"].PhysicalType != "DOUBLE" {
		t.Errorf("score physical type = %s, want DOUBLE", byName["score"].PhysicalType)
	}
}

func TestExtractSchemaInfo_NCF(t *testing.T) {
	path := writeNCF(t, t.TempDir(), "events.ncf", []map[string]interface{}{
		{"eventName": "purchase", "price": 9.99, "tags": []interface{}{"a"}},
		{"eventName": "view", "price": nil, "tags": []interface{}{}},
	})

	infos, err := ExtractSchemaInfo(path)
	if err != nil {
		t.Fatalf("ExtractSchemaInfo() error = %v", err)
	}

	want := []struct {
		name     string
		typ      string
		optional bool
		repeated bool
	}{
		{"eventName", "STRING", false, false},
		{"price", "FLOAT", true, false},
		{"tags", "ARRAY", false, true},
	}
	if len(infos) != len(want) {
		t.Fatalf("ExtractSchemaInfo() returned %d fields, want %d", len(infos), len(want))
	}

	for i, w := range want {
		info := infos[i]
		if info.Name != w.name || info.Type != w.typ || info.Optional != w.optional || info.Repeated != w.repeated {
			t.Errorf("field %d = %+v, want %+v", i, info, w)
		}
		if info.Offset <= 0 || info.Length <= 0 {
			t.Errorf("field %s has no block location: offset=%d length=%d", info.Name, info.Offset, info.Length)
		}
	}
}

func TestExtractSchemaInfo_JSONL(t *testing.T) {
	path := writeText(t, t.TempDir(), "a.jsonl", "{}\n")
	if _, err := ExtractSchemaInfo(path); err == nil {
		t.Error("ExtractSchemaInfo() expected error for JSON Lines")
	}
}
