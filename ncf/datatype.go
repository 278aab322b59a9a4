package ncf

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/goccy/go-json"
)

// DataType is the physical encoding of a column. The numeric value is the
// wire code stored in column metadata.
type DataType byte

const (
	TypeNull      DataType = 0
	TypeBoolean   DataType = 1
	TypeInteger   DataType = 2
	TypeFloat     DataType = 3
	TypeString    DataType = 4
	TypeArray     DataType = 5
	TypeObject    DataType = 6
	TypeTimestamp DataType = 7
)

var dataTypeNames = [...]string{
	TypeNull:      "NULL",
	TypeBoolean:   "BOOLEAN",
	TypeInteger:   "INTEGER",
	TypeFloat:     "FLOAT",
	TypeString:    "STRING",
	TypeArray:     "ARRAY",
	TypeObject:    "OBJECT",
	TypeTimestamp: "TIMESTAMP",
}

// String returns the upper-case name of the type.
func (t DataType) String() string {
	if t.Valid() {
		return dataTypeNames[t]
	}
	return fmt.Sprintf("DataType(%d)", byte(t))
}

// Valid reports whether t is one of the eight defined types.
func (t DataType) Valid() bool {
	return t <= TypeTimestamp
}

// DataTypeFromCode maps a wire code back to its DataType.
func DataTypeFromCode(code byte) (DataType, error) {
	t := DataType(code)
	if !t.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownDataType, code)
	}
	return t, nil
}

// InferDataType picks the column type for the first value seen in a column.
//
// Byte slices are treated as strings, time.Time as a timestamp, and any
// kind without a dedicated type falls back to String. Unsigned values above
// math.MaxInt64 do not fit an INTEGER and are typed FLOAT.
func InferDataType(v interface{}) DataType {
	switch v.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBoolean
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return TypeInteger
	case uint, uint64:
		return unsignedType(reflect.ValueOf(v).Uint())
	case float32, float64:
		return TypeFloat
	case string, []byte:
		return TypeString
	case time.Time:
		return TypeTimestamp
	case json.Number:
		if _, err := v.(json.Number).Int64(); err == nil {
			return TypeInteger
		}
		return TypeFloat
	case []interface{}:
		return TypeArray
	case map[string]interface{}:
		return TypeObject
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool:
		return TypeBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return TypeInteger
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return unsignedType(reflect.ValueOf(v).Uint())
	case reflect.Float32, reflect.Float64:
		return TypeFloat
	case reflect.Slice, reflect.Array:
		return TypeArray
	case reflect.Map:
		return TypeObject
	default:
		return TypeString
	}
}

func unsignedType(u uint64) DataType {
	if u > math.MaxInt64 {
		return TypeFloat
	}
	return TypeInteger
}

// Widen returns the type a column of type t must take to also hold a value
// of type u. A NULL column takes u, and INTEGER widens to FLOAT. It reports
// false when no single type holds both.
func Widen(t, u DataType) (DataType, bool) {
	switch {
	case t == u || u == TypeNull:
		return t, true
	case t == TypeNull:
		return u, true
	case t == TypeFloat && u == TypeInteger, t == TypeInteger && u == TypeFloat:
		return TypeFloat, true
	case t == TypeTimestamp && u == TypeInteger:
		return TypeTimestamp, true
	default:
		return t, false
	}
}

// accepts reports whether a non-nil v can be encoded under t.
// Float columns take integers too; Timestamp columns take integral
// unix milliseconds.
func (t DataType) accepts(v interface{}) bool {
	inferred := InferDataType(v)
	switch t {
	case TypeFloat:
		return inferred == TypeFloat || inferred == TypeInteger
	case TypeTimestamp:
		return inferred == TypeTimestamp || inferred == TypeInteger
	default:
		return inferred == t
	}
}
