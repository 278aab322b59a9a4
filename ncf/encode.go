package ncf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/goccy/go-json"

	"github.com/vegasq/ncfstore/internal/rowjson"
)

// cursor walks a byte slice and fails with ErrTruncated instead of panicking.
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) next(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.data) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, c.pos, len(c.data)-c.pos)
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// bitmapSize is the null bitmap width for rows values.
func bitmapSize(rows int) int {
	return (rows + 7) / 8
}

func isNullAt(bitmap []byte, i int) bool {
	return bitmap[i/8]&(1<<(uint(i)%8)) != 0
}

// encodeColumn serializes values under typ. The null bitmap is written only
// when at least one value is nil; the returned flag says whether it was.
func encodeColumn(buf *bytes.Buffer, typ DataType, values []interface{}) (bool, error) {
	hasNulls := false
	for _, v := range values {
		if v == nil {
			hasNulls = true
			break
		}
	}

	if hasNulls {
		bitmap := make([]byte, bitmapSize(len(values)))
		for i, v := range values {
			if v == nil {
				bitmap[i/8] |= 1 << (uint(i) % 8)
			}
		}
		buf.Write(bitmap)
	}

	var scratch [8]byte
	for i, v := range values {
		if v == nil {
			continue
		}
		if err := encodeValue(buf, scratch[:], typ, v); err != nil {
			return false, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return hasNulls, nil
}

func encodeValue(buf *bytes.Buffer, scratch []byte, typ DataType, v interface{}) error {
	switch typ {
	case TypeBoolean:
		b, ok := asBool(v)
		if !ok {
			return fmt.Errorf("%w: %T is not BOOLEAN", ErrTypeMismatch, v)
		}
		if b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case TypeInteger:
		n, ok := asInt64(v)
		if !ok {
			return fmt.Errorf("%w: %T is not INTEGER", ErrTypeMismatch, v)
		}
		binary.BigEndian.PutUint64(scratch, uint64(n))
		buf.Write(scratch)
	case TypeFloat:
		f, ok := asFloat64(v)
		if !ok {
			return fmt.Errorf("%w: %T is not FLOAT", ErrTypeMismatch, v)
		}
		binary.BigEndian.PutUint64(scratch, math.Float64bits(f))
		buf.Write(scratch)
	case TypeString:
		writeLengthPrefixed(buf, scratch, []byte(asString(v)))
	case TypeArray, TypeObject:
		text, err := rowjson.Marshal(v)
		if err != nil {
			return fmt.Errorf("%w: encode %s as JSON: %v", ErrTypeMismatch, typ, err)
		}
		writeLengthPrefixed(buf, scratch, text)
	case TypeTimestamp:
		ms, ok := asUnixMilli(v)
		if !ok {
			return fmt.Errorf("%w: %T is not TIMESTAMP", ErrTypeMismatch, v)
		}
		binary.BigEndian.PutUint64(scratch, uint64(ms))
		buf.Write(scratch)
	default:
		return fmt.Errorf("%w: cannot encode non-null value %v as %s", ErrTypeMismatch, v, typ)
	}
	return nil
}

func writeLengthPrefixed(buf *bytes.Buffer, scratch []byte, data []byte) {
	binary.BigEndian.PutUint32(scratch[:4], uint32(len(data)))
	buf.Write(scratch[:4])
	buf.Write(data)
}

// decodeColumn is the inverse of encodeColumn for a block described by meta.
func decodeColumn(data []byte, meta ColumnMetadata, rows int) ([]interface{}, error) {
	c := &cursor{data: data}

	var bitmap []byte
	if meta.Nullable {
		b, err := c.next(bitmapSize(rows))
		if err != nil {
			return nil, fmt.Errorf("null bitmap: %w", err)
		}
		bitmap = b
	}

	values := make([]interface{}, rows)
	for i := 0; i < rows; i++ {
		if bitmap != nil && isNullAt(bitmap, i) {
			continue
		}
		v, err := decodeValue(c, meta.Type)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

func decodeValue(c *cursor, typ DataType) (interface{}, error) {
	switch typ {
	case TypeBoolean:
		b, err := c.next(1)
		if err != nil {
			return nil, err
		}
		return b[0] != 0, nil
	case TypeInteger:
		b, err := c.next(8)
		if err != nil {
			return nil, err
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	case TypeFloat:
		b, err := c.next(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case TypeString:
		b, err := readLengthPrefixed(c)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case TypeArray, TypeObject:
		b, err := readLengthPrefixed(c)
		if err != nil {
			return nil, err
		}
		v, err := rowjson.Unmarshal(b)
		if err != nil {
			return nil, fmt.Errorf("%w: %s JSON: %v", ErrFormat, typ, err)
		}
		if typ == TypeArray {
			if _, ok := v.([]interface{}); !ok {
				return nil, fmt.Errorf("%w: ARRAY value decoded as %T", ErrFormat, v)
			}
		} else if _, ok := v.(map[string]interface{}); !ok {
			return nil, fmt.Errorf("%w: OBJECT value decoded as %T", ErrFormat, v)
		}
		return v, nil
	case TypeTimestamp:
		b, err := c.next(8)
		if err != nil {
			return nil, err
		}
		return time.UnixMilli(int64(binary.BigEndian.Uint64(b))).UTC(), nil
	default:
		return nil, fmt.Errorf("%w: non-null value in %s column", ErrFormat, typ)
	}
}

func readLengthPrefixed(c *cursor) ([]byte, error) {
	lenBytes, err := c.next(4)
	if err != nil {
		return nil, err
	}
	return c.next(int(binary.BigEndian.Uint32(lenBytes)))
}

func asBool(v interface{}) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Bool {
		return rv.Bool(), true
	}
	return false, false
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return int64(u), true
		}
	}
	return 0, false
}

func asFloat64(v interface{}) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case json.Number:
		n, err := f.Float64()
		return n, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	if n, ok := asInt64(v); ok {
		return float64(n), true
	}
	return 0, false
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return fmt.Sprint(v)
}

func asUnixMilli(v interface{}) (int64, bool) {
	if t, ok := v.(time.Time); ok {
		return t.UnixMilli(), true
	}
	return asInt64(v)
}
