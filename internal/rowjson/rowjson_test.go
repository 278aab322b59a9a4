package rowjson

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalNarrowsNumbers(t *testing.T) {
	v, err := Unmarshal([]byte(`{"i": 42, "f": 1.5, "big": 1e3, "list": [1, 2.5], "nested": {"n": 7}}`))
	require.NoError(t, err)

	obj := v.(map[string]interface{})
	assert.Equal(t, int64(42), obj["i"])
	assert.Equal(t, 1.5, obj["f"])
	assert.Equal(t, 1000.0, obj["big"])
	assert.Equal(t, []interface{}{int64(1), 2.5}, obj["list"])
	assert.Equal(t, map[string]interface{}{"n": int64(7)}, obj["nested"])
}

func TestDecodeRow(t *testing.T) {
	row, err := DecodeRow([]byte(`{"a": "x"}`))
	require.NoError(t, err)
	assert.Equal(t, "x", row["a"])

	_, err = DecodeRow([]byte(`[1, 2]`))
	assert.ErrorContains(t, err, "expected JSON object")

	_, err = DecodeRow([]byte(`{`))
	assert.Error(t, err)
}

func TestReadLines(t *testing.T) {
	rows, err := ReadLines(strings.NewReader("{\"n\": 1}\n\n{\"n\": 2}\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[1]["n"])

	rows, err = ReadLines(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)

	_, err = ReadLines(strings.NewReader("{\"n\": 1}\n\"text\"\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(map[string]interface{}{"tags": []interface{}{"a", int64(3)}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags": ["a", 3]}`, string(data))

	v, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"tags": []interface{}{"a", int64(3)}}, v)
}
