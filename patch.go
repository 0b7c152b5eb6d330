package jsonbuild

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	gyaml "github.com/goccy/go-yaml"
)

// ApplyJSONPatch applies a github.com/evanphx/json-patch/v5 Patch to a tree.
// Internally this marshals the patch back to JSON and delegates to
// ApplyJSONPatchBytes.
func ApplyJSONPatch(root any, patch jsonpatch.Patch) (any, error) {
	b, err := json.Marshal(patch)
	if err != nil {
		return root, fmt.Errorf("jsonbuild: cannot marshal jsonpatch.Patch; pass bytes instead: %w", err)
	}
	return ApplyJSONPatchBytes(root, b)
}

// ApplyJSONPatchBytes applies the "add" and "replace" operations of a JSON
// Patch (RFC 6902) to a tree, creating missing containers the same way Add
// does. The tree is write-only, so "remove", "move", "copy" and "test" are
// rejected. Array adds follow the builder's rules: an index equal to the
// length (or "-") appends, a smaller index overwrites in place, a larger one
// is an error. Ops already applied stay applied when a later op fails; the
// failing op itself writes nothing.
func ApplyJSONPatchBytes(root any, patchJSON []byte) (any, error) {
	ops, err := decodePatchOps(patchJSON)
	if err != nil {
		return root, err
	}
	for _, op := range ops {
		segs, err := parseJSONPointer(op.Path)
		if err != nil {
			return root, err
		}
		switch strings.ToLower(op.Op) {
		case "add":
			root, err = applyWriteOp(root, op, segs, false)
		case "replace":
			root, err = applyWriteOp(root, op, segs, true)
		default:
			return root, fmt.Errorf("jsonbuild: unsupported op %q (only add and replace are supported)", op.Op)
		}
		if err != nil {
			return root, err
		}
	}
	return root, nil
}

type patchOp struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
	From  string          `json:"from,omitempty"`
}

func decodePatchOps(b []byte) ([]patchOp, error) {
	var ops []patchOp
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ops); err != nil {
		return nil, fmt.Errorf("jsonbuild: invalid JSON Patch: %w", err)
	}
	if len(ops) == 0 {
		return nil, errors.New("jsonbuild: empty JSON Patch")
	}
	return ops, nil
}

// ptrSegment models one JSON Pointer segment: a mapping key or an array
// index/append. Numeric segments keep their raw text so they can still
// address numeric object keys.
type ptrSegment struct {
	key    string
	index  int
	isIdx  bool
	append bool // "-": only meaningful for add into arrays
}

func parseJSONPointer(p string) ([]ptrSegment, error) {
	if p == "" {
		return nil, nil
	}
	if !strings.HasPrefix(p, "/") {
		return nil, fmt.Errorf("jsonbuild: JSON Pointer must start with '/': %q", p)
	}
	parts := strings.Split(p, "/")[1:]
	segs := make([]ptrSegment, 0, len(parts))
	for _, s := range parts {
		seg := strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
		if seg == "-" {
			segs = append(segs, ptrSegment{key: seg, isIdx: true, append: true})
			continue
		}
		if i, err := strconv.Atoi(seg); err == nil && i >= 0 {
			segs = append(segs, ptrSegment{key: seg, index: i, isIdx: true})
			continue
		}
		segs = append(segs, ptrSegment{key: seg})
	}
	return segs, nil
}

func applyWriteOp(root any, op patchOp, segs []ptrSegment, mustExist bool) (any, error) {
	if len(segs) == 0 {
		return root, fmt.Errorf("jsonbuild: patch path %q addresses the whole document; replacing the root is not supported", op.Path)
	}
	value, err := decodePatchValue(op.Value)
	if err != nil {
		return root, err
	}
	if mustExist {
		if _, ok := nodeAt(root, segs); !ok {
			return root, fmt.Errorf("jsonbuild: replace: path %q does not exist", op.Path)
		}
	}
	ordered := false
	if _, ok := root.(gyaml.MapSlice); ok {
		ordered = true
		value = toOrderedValue(value)
	}
	out, err := writeSeg(root, segs, 0, value, ordered)
	if err != nil {
		return root, stampPointer(err, op.Path, root)
	}
	return out, nil
}

// writeSeg descends one pointer segment at a time, returning the (possibly
// reallocated) node. Containers are only stored back on success, so a failed
// op leaves the tree as it was.
func writeSeg(node any, segs []ptrSegment, i int, value any, ordered bool) (any, error) {
	if i == len(segs) {
		return value, nil
	}
	s := segs[i]
	switch t := node.(type) {
	case map[string]any:
		ex, ok := t[s.key]
		if !ok {
			ex = emptyForSeg(segs, i+1, ordered)
		}
		next, err := writeSeg(ex, segs, i+1, value, ordered)
		if err != nil {
			return nil, err
		}
		t[s.key] = next
		return t, nil
	case gyaml.MapSlice:
		for j, it := range t {
			if keyEquals(it.Key, s.key) {
				next, err := writeSeg(t[j].Value, segs, i+1, value, ordered)
				if err != nil {
					return nil, err
				}
				t[j].Value = next
				return t, nil
			}
		}
		next, err := writeSeg(emptyForSeg(segs, i+1, ordered), segs, i+1, value, ordered)
		if err != nil {
			return nil, err
		}
		return append(t, gyaml.MapItem{Key: s.key, Value: next}), nil
	case []any:
		if !s.isIdx {
			return nil, &TypeMismatchError{Key: s.key}
		}
		idx := s.index
		if s.append {
			idx = len(t)
		}
		if idx > len(t) {
			return nil, &IndexGapError{Index: idx, Len: len(t)}
		}
		if idx == len(t) {
			next, err := writeSeg(emptyForSeg(segs, i+1, ordered), segs, i+1, value, ordered)
			if err != nil {
				return nil, err
			}
			return append(t, next), nil
		}
		next, err := writeSeg(t[idx], segs, i+1, value, ordered)
		if err != nil {
			return nil, err
		}
		t[idx] = next
		return t, nil
	default:
		if s.isIdx {
			return nil, &TypeMismatchError{Index: s.index, IsIndex: true}
		}
		return nil, &TypeMismatchError{Key: s.key}
	}
}

func emptyForSeg(segs []ptrSegment, i int, ordered bool) any {
	if i >= len(segs) {
		return nil
	}
	if segs[i].isIdx {
		return []any{}
	}
	if ordered {
		return gyaml.MapSlice{}
	}
	return map[string]any{}
}

// nodeAt resolves a pointer read-only. The append marker never resolves.
func nodeAt(root any, segs []ptrSegment) (any, bool) {
	cur := root
	for _, s := range segs {
		switch t := cur.(type) {
		case map[string]any:
			v, ok := t[s.key]
			if !ok {
				return nil, false
			}
			cur = v
		case gyaml.MapSlice:
			found := false
			for _, it := range t {
				if keyEquals(it.Key, s.key) {
					cur = it.Value
					found = true
					break
				}
			}
			if !found {
				return nil, false
			}
		case []any:
			if !s.isIdx || s.append || s.index >= len(t) {
				return nil, false
			}
			cur = t[s.index]
		default:
			return nil, false
		}
	}
	return cur, true
}

func decodePatchValue(raw json.RawMessage) (any, error) {
	if raw == nil {
		return nil, errors.New("jsonbuild: missing 'value' for operation")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("jsonbuild: invalid 'value': %w", err)
	}
	return normalizeNumbers(v), nil
}

// normalizeNumbers rewrites json.Number leaves to int where integral and
// float64 otherwise, in place for containers.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

// stampPointer mirrors withContext for pointer-addressed writes.
func stampPointer(err error, ptr string, root any) error {
	var tm *TypeMismatchError
	if errors.As(err, &tm) {
		tm.Path = ptr
		tm.Root = snapshot(root)
		return tm
	}
	var gap *IndexGapError
	if errors.As(err, &gap) {
		gap.Path = ptr
		gap.Root = snapshot(root)
		return gap
	}
	return err
}
