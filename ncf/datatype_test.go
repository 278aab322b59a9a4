package ncf

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestInferDataType(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  DataType
	}{
		{"nil", nil, TypeNull},
		{"bool", true, TypeBoolean},
		{"int", 7, TypeInteger},
		{"int64", int64(7), TypeInteger},
		{"uint16", uint16(7), TypeInteger},
		{"uint64", uint64(7), TypeInteger},
		{"uint64 above int64", uint64(math.MaxInt64) + 1, TypeFloat},
		{"float32", float32(1.5), TypeFloat},
		{"float64", 1.5, TypeFloat},
		{"string", "x", TypeString},
		{"bytes", []byte("x"), TypeString},
		{"time", time.Unix(0, 0), TypeTimestamp},
		{"slice", []interface{}{1, "a"}, TypeArray},
		{"typed slice", []string{"a"}, TypeArray},
		{"object", map[string]interface{}{"k": 1}, TypeObject},
		{"typed map", map[string]int{"k": 1}, TypeObject},
		{"struct", struct{ A int }{1}, TypeString},
		{"json integer", json.Number("12"), TypeInteger},
		{"json float", json.Number("1.25"), TypeFloat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferDataType(tt.value); got != tt.want {
				t.Errorf("InferDataType(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestDataTypeFromCode(t *testing.T) {
	for code := byte(0); code <= 7; code++ {
		dt, err := DataTypeFromCode(code)
		if err != nil {
			t.Fatalf("DataTypeFromCode(%d) error = %v", code, err)
		}
		if byte(dt) != code {
			t.Errorf("DataTypeFromCode(%d) = %d", code, dt)
		}
	}

	_, err := DataTypeFromCode(8)
	if !errors.Is(err, ErrUnknownDataType) || !errors.Is(err, ErrFormat) {
		t.Errorf("DataTypeFromCode(8) error = %v, want ErrUnknownDataType", err)
	}
}

func TestDataTypeString(t *testing.T) {
	if got := TypeTimestamp.String(); got != "TIMESTAMP" {
		t.Errorf("TypeTimestamp.String() = %q", got)
	}
	if got := DataType(42).String(); got != "DataType(42)" {
		t.Errorf("DataType(42).String() = %q", got)
	}
}

func TestWiden(t *testing.T) {
	tests := []struct {
		t, u   DataType
		want   DataType
		wantOK bool
	}{
		{TypeInteger, TypeInteger, TypeInteger, true},
		{TypeNull, TypeString, TypeString, true},
		{TypeString, TypeNull, TypeString, true},
		{TypeInteger, TypeFloat, TypeFloat, true},
		{TypeFloat, TypeInteger, TypeFloat, true},
		{TypeTimestamp, TypeInteger, TypeTimestamp, true},
		{TypeInteger, TypeTimestamp, TypeInteger, false},
		{TypeString, TypeInteger, TypeString, false},
		{TypeArray, TypeObject, TypeArray, false},
	}

	for _, tt := range tests {
		got, ok := Widen(tt.t, tt.u)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Widen(%v, %v) = %v, %v, want %v, %v", tt.t, tt.u, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDataTypeAccepts(t *testing.T) {
	tests := []struct {
		typ   DataType
		value interface{}
		want  bool
	}{
		{TypeFloat, int64(2), true},
		{TypeFloat, 2.5, true},
		{TypeInteger, 2.5, false},
		{TypeInteger, uint64(math.MaxUint64), false},
		{TypeTimestamp, int64(1700000000000), true},
		{TypeTimestamp, time.Now(), true},
		{TypeString, 1, false},
		{TypeBoolean, false, true},
		{TypeArray, map[string]interface{}{}, false},
	}

	for _, tt := range tests {
		if got := tt.typ.accepts(tt.value); got != tt.want {
			t.Errorf("%v.accepts(%#v) = %v, want %v", tt.typ, tt.value, got, tt.want)
		}
	}
}
