// Package rowjson converts between JSON text and the dynamically typed row
// values used across ncfstore.
//
// Numbers are decoded with UseNumber and then narrowed: integral literals
// become int64, everything else float64. This keeps integer columns integer
// after a trip through JSON text.
package rowjson

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
)

// Marshal encodes v as compact JSON text.
func Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes a single JSON value and normalizes its numbers.
func Unmarshal(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return Normalize(v), nil
}

// DecodeRow decodes a JSON object into a row map.
func DecodeRow(data []byte) (map[string]interface{}, error) {
	v, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	row, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", v)
	}
	return row, nil
}

// DecodeInto decodes JSON from r into target with UseNumber enabled.
// Callers normalize the interface{} parts themselves with Normalize.
func DecodeInto(r io.Reader, target interface{}) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec.Decode(target)
}

// ReadLines decodes newline-delimited JSON objects.
func ReadLines(r io.Reader) ([]map[string]interface{}, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	rows := make([]map[string]interface{}, 0)
	for {
		var v interface{}
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", len(rows)+1, err)
		}
		row, ok := Normalize(v).(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("line %d: expected JSON object, got %T", len(rows)+1, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Normalize walks v and replaces json.Number values with int64 or float64.
func Normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		return normalizeNumber(val)
	case []interface{}:
		for i := range val {
			val[i] = Normalize(val[i])
		}
		return val
	case map[string]interface{}:
		for k, item := range val {
			val[k] = Normalize(item)
		}
		return val
	default:
		return v
	}
}

func normalizeNumber(n json.Number) interface{} {
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(n.String(), 64); err == nil {
		return f
	}
	return n.String()
}
