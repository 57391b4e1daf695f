package jsonv

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) Object {
	t.Helper()
	var obj Object
	require.NoError(t, json.Unmarshal([]byte(raw), &obj))
	return obj
}

func TestStringAccess(t *testing.T) {
	obj := decode(t, `{"name":"session","count":3}`)

	s, ok := String(obj, "name")
	assert.True(t, ok)
	assert.Equal(t, "session", s)

	_, ok = String(obj, "count")
	assert.False(t, ok, "type mismatch must not succeed")

	assert.Equal(t, "fallback", StringOr(obj, "missing", "fallback"))
}

func TestNumericAccess(t *testing.T) {
	obj := decode(t, `{"limit":25,"ratio":0.5,"label":"x"}`)

	n, ok := Int(obj, "limit")
	assert.True(t, ok)
	assert.Equal(t, int64(25), n)

	_, ok = Int(obj, "ratio")
	assert.False(t, ok, "non-integral value must not read as int")

	f, ok := Float(obj, "ratio")
	assert.True(t, ok)
	assert.Equal(t, 0.5, f)

	_, ok = Float(obj, "label")
	assert.False(t, ok)

	assert.Equal(t, int64(10), IntOr(obj, "absent", 10))
}

func TestIntAcceptsGoIntegers(t *testing.T) {
	obj := Object{"id": 7}

	n, ok := Int(obj, "id")
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)
}

func TestOptBoolTriState(t *testing.T) {
	obj := decode(t, `{"paused":false,"exists":true,"danger":"nope"}`)

	p := OptBool(obj, "paused")
	require.NotNil(t, p)
	assert.False(t, *p)

	e := OptBool(obj, "exists")
	require.NotNil(t, e)
	assert.True(t, *e)

	assert.Nil(t, OptBool(obj, "danger"), "mismatched type reads as unset")
	assert.Nil(t, OptBool(obj, "absent"))
}

func TestNestedAccess(t *testing.T) {
	obj := decode(t, `{"buttons":[{"title":"hi"}],"terms":["a",3,"b"]}`)

	buttons, ok := ArrayAt(obj, "buttons")
	require.True(t, ok)
	first, ok := Arg(buttons, 0)
	require.True(t, ok)
	assert.Equal(t, "hi", StringOr(first, "title", ""))

	assert.Equal(t, []string{"a", "b"}, Strings(obj, "terms"))
}

func TestPositionalArgs(t *testing.T) {
	var args Array
	require.NoError(t, json.Unmarshal([]byte(`[{"url":"https://a/"}, "name"]`), &args))

	details, ok := Arg(args, 0)
	require.True(t, ok)
	assert.Equal(t, "https://a/", StringOr(details, "url", ""))

	s, ok := ArgString(args, 1)
	require.True(t, ok)
	assert.Equal(t, "name", s)

	_, ok = Arg(args, 5)
	assert.False(t, ok)
	_, ok = ArgString(args, -1)
	assert.False(t, ok)
}
