package jsonbuild

import (
	"encoding/json"
	"fmt"
	"sort"

	gyaml "github.com/goccy/go-yaml"
)

// toOrderedValue normalizes a value for insertion into the ordered view.
// Plain maps become MapSlices with sorted keys (stable ordering to avoid
// nondeterminism); json.Number collapses to int when integral.
func toOrderedValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ms := make(gyaml.MapSlice, 0, len(t))
		for _, k := range keys {
			ms = append(ms, gyaml.MapItem{Key: k, Value: toOrderedValue(t[k])})
		}
		return ms
	case gyaml.MapSlice:
		ms := make(gyaml.MapSlice, 0, len(t))
		for _, it := range t {
			ms = append(ms, gyaml.MapItem{Key: it.Key, Value: toOrderedValue(it.Value)})
		}
		return ms
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toOrderedValue(e)
		}
		return out
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

// keyEquals reports whether a MapSlice key matches want. goccy decodes
// keys as interface{}, so both string and stringable keys are accepted.
func keyEquals(k any, want string) bool {
	if s, ok := k.(string); ok {
		return s == want
	}
	return fmt.Sprint(k) == want
}

// orderedSet applies a compiled path to the ordered view, mirroring the
// semantics of the primary walk: the root-key sentinel is a no-op step,
// missing intermediates are materialized, and existing arrays are grown
// by at most one element per step. Errors mirror the primary walk's kinds
// so a failed Add leaves both views diverging by at most the failed step.
func orderedSet(root any, p Path, value any) (any, error) {
	comps := p.comps
	var set func(node any, i int) (any, error)
	set = func(node any, i int) (any, error) {
		if i == len(comps) {
			return toOrderedValue(value), nil
		}
		c := comps[i]
		if c.kind == compKey {
			if c.key == rootKey {
				if i == len(comps)-1 {
					// Terminal root sentinel: drop the value, keep the node.
					return node, nil
				}
				return set(node, i+1)
			}
			switch t := node.(type) {
			case gyaml.MapSlice:
				for j, it := range t {
					if keyEquals(it.Key, c.key) {
						next, err := set(t[j].Value, i+1)
						if err != nil {
							return nil, err
						}
						t[j].Value = next
						return t, nil
					}
				}
				next, err := set(emptyFor(comps, i+1), i+1)
				if err != nil {
					return nil, err
				}
				return append(t, gyaml.MapItem{Key: c.key, Value: next}), nil
			case map[string]any:
				// goccy occasionally leaves plain maps nested in slices.
				ex, ok := t[c.key]
				if !ok {
					ex = emptyFor(comps, i+1)
				}
				next, err := set(ex, i+1)
				if err != nil {
					return nil, err
				}
				t[c.key] = next
				return t, nil
			default:
				return nil, fmt.Errorf("jsonbuild: ordered view: %w", &TypeMismatchError{Key: c.key})
			}
		}
		arr, ok := node.([]any)
		if !ok {
			return nil, fmt.Errorf("jsonbuild: ordered view: %w", &TypeMismatchError{Index: c.index, IsIndex: true})
		}
		if c.index > len(arr) {
			return nil, fmt.Errorf("jsonbuild: ordered view: %w", &IndexGapError{Index: c.index, Len: len(arr)})
		}
		if c.index == len(arr) {
			next, err := set(emptyFor(comps, i+1), i+1)
			if err != nil {
				return nil, err
			}
			return append(arr, next), nil
		}
		if i == len(comps)-1 {
			arr[c.index] = toOrderedValue(value)
			return arr, nil
		}
		next, err := set(arr[c.index], i+1)
		if err != nil {
			return nil, err
		}
		arr[c.index] = next
		return arr, nil
	}
	return set(root, 0)
}

// emptyFor picks the empty container the component at i expects, or nil
// when i is past the end (the terminal value replaces it anyway).
func emptyFor(comps []component, i int) any {
	if i >= len(comps) {
		return nil
	}
	if comps[i].kind == compIndex {
		return []any{}
	}
	return gyaml.MapSlice{}
}
