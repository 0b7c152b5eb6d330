package jsonbuild

import (
	"errors"
	"testing"

	jsonpatch "github.com/evanphx/json-patch/v5"
	gyaml "github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestApplyJSONPatchBytesAddAndReplace(t *testing.T) {
	root := map[string]any{"a": map[string]any{"b": 1}}
	got, err := ApplyJSONPatchBytes(root, []byte(`[
		{"op":"add","path":"/a/c","value":2},
		{"op":"replace","path":"/a/b","value":9}
	]`))
	require.NoError(t, err)
	requireDocEqual(t, `{"a":{"b":9,"c":2}}`, got)
}

func TestApplyJSONPatchAppendMarker(t *testing.T) {
	root := map[string]any{"list": []any{1}}
	got, err := ApplyJSONPatchBytes(root, []byte(`[
		{"op":"add","path":"/list/-","value":2},
		{"op":"add","path":"/list/2","value":3}
	]`))
	require.NoError(t, err)
	requireDocEqual(t, `{"list":[1,2,3]}`, got)
}

func TestApplyJSONPatchAddAtExistingIndexOverwrites(t *testing.T) {
	// Unlike RFC 6902 insert-and-shift, adds below the length overwrite,
	// matching the path walk's array rules.
	root := map[string]any{"list": []any{1, 2, 3}}
	got, err := ApplyJSONPatchBytes(root, []byte(`[{"op":"add","path":"/list/1","value":9}]`))
	require.NoError(t, err)
	requireDocEqual(t, `{"list":[1,9,3]}`, got)
}

func TestApplyJSONPatchCreatesIntermediates(t *testing.T) {
	got, err := ApplyJSONPatchBytes(map[string]any{}, []byte(`[{"op":"add","path":"/a/b/0/c","value":1}]`))
	require.NoError(t, err)
	requireDocEqual(t, `{"a":{"b":[{"c":1}]}}`, got)
}

func TestApplyJSONPatchIndexGapFailsWithoutTrace(t *testing.T) {
	root := map[string]any{"l": []any{}}
	_, err := ApplyJSONPatchBytes(root, []byte(`[{"op":"add","path":"/l/5","value":1}]`))
	if !errors.Is(err, ErrIndexGap) {
		t.Fatalf("expected ErrIndexGap, got %v", err)
	}
	requireDocEqual(t, `{"l":[]}`, root)
}

func TestApplyJSONPatchEarlierOpsStayApplied(t *testing.T) {
	root := map[string]any{}
	_, err := ApplyJSONPatchBytes(root, []byte(`[
		{"op":"add","path":"/a","value":1},
		{"op":"add","path":"/a/b","value":2}
	]`))
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	requireDocEqual(t, `{"a":1}`, root)
}

func TestApplyJSONPatchReplaceMissingPathFails(t *testing.T) {
	root := map[string]any{}
	_, err := ApplyJSONPatchBytes(root, []byte(`[{"op":"replace","path":"/nope","value":1}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.Empty(t, root)
}

func TestApplyJSONPatchRejectsReadOps(t *testing.T) {
	for _, op := range []string{"remove", "move", "copy", "test"} {
		t.Run(op, func(t *testing.T) {
			patch := []byte(`[{"op":"` + op + `","path":"/a","from":"/b","value":1}]`)
			_, err := ApplyJSONPatchBytes(map[string]any{"a": 1, "b": 2}, patch)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "unsupported op")
		})
	}
}

func TestApplyJSONPatchEscapedKeys(t *testing.T) {
	got, err := ApplyJSONPatchBytes(map[string]any{}, []byte(`[
		{"op":"add","path":"/a~1b/m~0n","value":1}
	]`))
	require.NoError(t, err)
	requireDocEqual(t, `{"a/b":{"m~n":1}}`, got)
}

func TestApplyJSONPatchNumericObjectKey(t *testing.T) {
	root := map[string]any{"a": map[string]any{"x": 1}}
	got, err := ApplyJSONPatchBytes(root, []byte(`[{"op":"add","path":"/a/0","value":2}]`))
	require.NoError(t, err)
	requireDocEqual(t, `{"a":{"x":1,"0":2}}`, got)
}

func TestApplyJSONPatchWholeDocumentRejected(t *testing.T) {
	_, err := ApplyJSONPatchBytes(map[string]any{}, []byte(`[{"op":"add","path":"","value":{}}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "whole document")
}

func TestApplyJSONPatchDecodeErrors(t *testing.T) {
	if _, err := ApplyJSONPatchBytes(map[string]any{}, []byte(`[]`)); err == nil {
		t.Fatalf("expected error for empty patch")
	}
	if _, err := ApplyJSONPatchBytes(map[string]any{}, []byte(`{"op":"add"}`)); err == nil {
		t.Fatalf("expected error for non-array patch")
	}
	if _, err := ApplyJSONPatchBytes(map[string]any{}, []byte(`[{"op":"add","path":"/a","bogus":1}]`)); err == nil {
		t.Fatalf("expected error for unknown field")
	}
	if _, err := ApplyJSONPatchBytes(map[string]any{}, []byte(`[{"op":"add","path":"/a"}]`)); err == nil {
		t.Fatalf("expected error for missing value")
	}
	if _, err := ApplyJSONPatchBytes(map[string]any{}, []byte(`[{"op":"add","path":"a","value":1}]`)); err == nil {
		t.Fatalf("expected error for pointer without leading slash")
	}
}

func TestApplyJSONPatchFromDecodedPatch(t *testing.T) {
	root := map[string]any{}
	patch := mustDecodePatch(t, `[{"op":"add","path":"/svc/ports/-","value":{"port":80}}]`)
	got, err := ApplyJSONPatch(root, patch)
	require.NoError(t, err)
	requireDocEqual(t, `{"svc":{"ports":[{"port":80}]}}`, got)
}

func TestApplyJSONPatchNumberFidelity(t *testing.T) {
	got, err := ApplyJSONPatchBytes(map[string]any{}, []byte(`[
		{"op":"add","path":"/i","value":5},
		{"op":"add","path":"/f","value":1.5},
		{"op":"add","path":"/big","value":9007199254740993}
	]`))
	require.NoError(t, err)
	out, err := EncodeJSON(got)
	require.NoError(t, err)
	assert.Equal(t, "5", gjson.GetBytes(out, "i").Raw)
	assert.Equal(t, "1.5", gjson.GetBytes(out, "f").Raw)
	assert.Equal(t, "9007199254740993", gjson.GetBytes(out, "big").Raw)
}

func TestApplyJSONPatchErrorCarriesPointerContext(t *testing.T) {
	root := map[string]any{"a": 1}
	_, err := ApplyJSONPatchBytes(root, []byte(`[{"op":"add","path":"/a/b","value":2}]`))
	var tm *TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, "/a/b", tm.Path)
	assert.Contains(t, tm.Root, `"a":1`)
}

func TestApplyJSONPatchOnOrderedTree(t *testing.T) {
	root := gyaml.MapSlice{{Key: "z", Value: 1}}
	got, err := ApplyJSONPatchBytes(root, []byte(`[
		{"op":"add","path":"/a/inner","value":2},
		{"op":"replace","path":"/z","value":9}
	]`))
	require.NoError(t, err)
	out, err := EncodeJSON(got)
	require.NoError(t, err)
	assert.Equal(t, `{"z":9,"a":{"inner":2}}`, string(out))
}

func mustDecodePatch(t *testing.T, s string) jsonpatch.Patch {
	t.Helper()
	patch, err := jsonpatch.DecodePatch([]byte(s))
	if err != nil {
		t.Fatalf("jsonpatch decode error: %v", err)
	}
	return patch
}
