package value

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortedKeys(t *testing.T) {
	row := Object{"name": String("a"), "id": Int(1), "active": Bool(true)}

	got, err := MarshalCanonical(row)
	require.NoError(t, err)
	assert.Equal(t, `{"active":true,"id":1,"name":"a"}`, string(got))
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	got, err := MarshalCanonical(String("<a&b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(got))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	// "e" followed by a combining acute accent normalises to a single rune.
	got, err := MarshalCanonical(String("e\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonical_LineSeparators(t *testing.T) {
	got, err := MarshalCanonical(String("a\u2028b"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(got))

	// A literal backslash followed by the text u2028 stays escaped.
	got, err = MarshalCanonical(String(`a\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028"`, string(got))
}

func TestMarshalCanonical_Kinds(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	got, err := MarshalCanonical([]Value{Null{}, Float(1.5), Float(0), Bytes("hi"), Time(ts)})
	require.NoError(t, err)
	assert.Equal(t, `[null,1.5,0,"aGk=","2024-01-02T03:04:05Z"]`, string(got))
}

func TestMarshalCanonical_PlainGo(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"b": []any{"x", 2},
		"a": map[string]any{"z": true},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"z":true},"b":["x",2]}`, string(got))
}

func TestMarshalCanonical_RejectsNonFinite(t *testing.T) {
	_, err := MarshalCanonical(Float(math.Inf(1)))
	assert.Error(t, err)

	_, err = MarshalCanonical(Object{"f": Float(math.NaN())})
	assert.Error(t, err)
}

func TestMarshalCanonical_Unsupported(t *testing.T) {
	_, err := MarshalCanonical(struct{}{})
	assert.Error(t, err)
}

func TestSortedKeys_UTF16Order(t *testing.T) {
	// U+1F600 encodes as a surrogate pair (0xD83D...) which sorts before U+FF61
	// in UTF-16 but after it in UTF-8.
	obj := Object{"\uFF61": Int(1), "\U0001F600": Int(2)}
	assert.Equal(t, []string{"\U0001F600", "\uFF61"}, obj.SortedKeys())
}

func TestRowDigest_Stable(t *testing.T) {
	a, err := RowDigest(Object{"id": Int(1), "name": String("a")})
	require.NoError(t, err)
	b, err := RowDigest(Object{"name": String("a"), "id": Int(1)})
	require.NoError(t, err)
	c, err := RowDigest(Object{"id": Int(1), "name": String("b")})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestDigest_DomainSeparation(t *testing.T) {
	data := []byte(`{"id":1}`)
	assert.NotEqual(t, Digest(DomainRow, data), Digest(DomainPlan, data))
}
