package jsonbuild

import (
	"encoding/json"
	"errors"
	"testing"

	gyaml "github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedSetMaterializesByNextComponent(t *testing.T) {
	got, err := orderedSet(gyaml.MapSlice{}, MustParsePath("$.a[0].b"), 1)
	require.NoError(t, err)
	out, err := EncodeJSON(got)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[{"b":1}]}`, string(out))
}

func TestOrderedSetOverwriteKeepsKeyPosition(t *testing.T) {
	ms := gyaml.MapSlice{{Key: "z", Value: 1}, {Key: "a", Value: 2}}
	got, err := orderedSet(ms, MustParsePath("$.a"), 9)
	require.NoError(t, err)
	out, err := EncodeJSON(got)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":9}`, string(out))
}

func TestOrderedSetAppendsAtLength(t *testing.T) {
	ms := gyaml.MapSlice{{Key: "l", Value: []any{1}}}
	got, err := orderedSet(ms, MustParsePath("$.l[1]"), 2)
	require.NoError(t, err)
	out, err := EncodeJSON(got)
	require.NoError(t, err)
	assert.Equal(t, `{"l":[1,2]}`, string(out))
}

func TestOrderedSetTypeMismatch(t *testing.T) {
	ms := gyaml.MapSlice{{Key: "a", Value: 1}}
	_, err := orderedSet(ms, MustParsePath("$.a.b"), 2)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	assert.Contains(t, err.Error(), "ordered view")
}

func TestOrderedSetIndexGap(t *testing.T) {
	ms := gyaml.MapSlice{{Key: "l", Value: []any{}}}
	_, err := orderedSet(ms, MustParsePath("$.l[5]"), 1)
	if !errors.Is(err, ErrIndexGap) {
		t.Fatalf("expected ErrIndexGap, got %v", err)
	}
}

func TestOrderedSetTerminalRootSentinelDropsValue(t *testing.T) {
	ms := gyaml.MapSlice{{Key: "a", Value: 1}}
	got, err := orderedSet(ms, MustParsePath("$"), 99)
	require.NoError(t, err)
	out, err := EncodeJSON(got)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(out))
}

func TestOrderedSetDescendsPlainMaps(t *testing.T) {
	// goccy can leave plain maps nested inside sequences; writes must still
	// land.
	ms := gyaml.MapSlice{{Key: "l", Value: []any{map[string]any{"x": 1}}}}
	got, err := orderedSet(ms, MustParsePath("$.l[0].y"), 2)
	require.NoError(t, err)
	out, err := EncodeJSON(got)
	require.NoError(t, err)
	assert.Equal(t, `{"l":[{"x":1,"y":2}]}`, string(out))
}

func TestToOrderedValueNormalizes(t *testing.T) {
	v := toOrderedValue([]any{
		map[string]any{"z": json.Number("5"), "a": json.Number("2.5")},
	})
	out, err := EncodeJSON(v)
	require.NoError(t, err)
	assert.Equal(t, `[{"a":2.5,"z":5}]`, string(out))
}

func TestKeyEquals(t *testing.T) {
	assert.True(t, keyEquals("a", "a"))
	assert.False(t, keyEquals("a", "b"))
	assert.True(t, keyEquals(5, "5"))
}
