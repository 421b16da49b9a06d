package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRowsRewritesRecordIDs(t *testing.T) {
	input := []map[string]interface{}{
		{"id": map[string]interface{}{"tb": "components", "id": "abc-123"}, "name": "Foo"},
	}
	out := normalizeRows(input)
	rows, ok := out.([]interface{})
	require.True(t, ok)
	row, ok := rows[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "components:abc-123", row["id"])
	assert.Equal(t, "Foo", row["name"])
}

func TestNormalizeRowsRewritesDatetimeWrapper(t *testing.T) {
	input := []map[string]interface{}{
		{"created_at": map[string]interface{}{"Datetime": "2026-01-01T00:00:00Z"}},
	}
	out := normalizeRows(input)
	rows := out.([]interface{})
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "2026-01-01T00:00:00Z", row["created_at"])
}

func TestNormalizeRowsLeavesPlainValuesAlone(t *testing.T) {
	input := []map[string]interface{}{
		{"count": 3, "tags": []interface{}{"a", "b"}},
	}
	out := normalizeRows(input)
	rows := out.([]interface{})
	row := rows[0].(map[string]interface{})
	assert.Equal(t, 3, row["count"])
	assert.Equal(t, []interface{}{"a", "b"}, row["tags"])
}

func TestDecodeResultEmptyWhenNoRows(t *testing.T) {
	items, err := decodeResult[componentRow](nil)
	require.NoError(t, err)
	assert.Nil(t, items)

	items, err = decodeResult[componentRow]([]QueryResult{{Status: "OK", Result: nil}})
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestDecodeResultDecodesRows(t *testing.T) {
	results := []QueryResult{{
		Status: "OK",
		Result: []map[string]interface{}{
			{"id": map[string]interface{}{"tb": "components", "id": "xyz"}, "name": "Bar", "type": "function"},
		},
	}}
	items, err := decodeResult[componentRow](results)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "components:xyz", items[0].ID)
	assert.Equal(t, "Bar", items[0].Name)
	assert.Equal(t, "function", items[0].Type)
}

func TestIsAlreadyExistsError(t *testing.T) {
	assert.True(t, isAlreadyExistsError(&fakeErr{"table 'components' already exists"}))
	assert.True(t, isAlreadyExistsError(&fakeErr{"field 'name' already defined"}))
	assert.False(t, isAlreadyExistsError(&fakeErr{"unexpected token"}))
	assert.False(t, isAlreadyExistsError(nil))
}

func TestStripTablePrefix(t *testing.T) {
	assert.Equal(t, "abc-123", stripTablePrefix("components:abc-123", "components"))
	assert.Equal(t, "abc-123", stripTablePrefix("abc-123", "components"))
	assert.Equal(t, "relationships:abc", stripTablePrefix("relationships:abc", "components"))
}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }
